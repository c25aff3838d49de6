package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/tabula-io/tabula/core"
	filedriver "github.com/tabula-io/tabula/driver/file"
)

// config carries the persistent settings. Environment variables seed the
// defaults, flags override them.
type config struct {
	Store   string `env:"TABULA_STORE" envDefault:"tabula.json"`
	Config  string `env:"TABULA_CONFIG" envDefault:"tabula.yaml"`
	Verbose bool   `env:"TABULA_VERBOSE"`
}

var flags config

var rootCmd = &cobra.Command{
	Use:   "tabula",
	Short: "Inspect and edit the documents behind a table registry",
	Long: `tabula works against a YAML table registry and a JSON document store.
Every subcommand addresses one registered table by name.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error { return rootCmd.Execute() }

func init() {
	defaults := config{}
	if err := env.Parse(&defaults); err != nil {
		defaults = config{Store: "tabula.json", Config: "tabula.yaml"}
	}
	rootCmd.PersistentFlags().StringVar(&flags.Store, "store", defaults.Store, "path of the JSON document store")
	rootCmd.PersistentFlags().StringVar(&flags.Config, "config", defaults.Config, "path of the YAML table registry")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", defaults.Verbose, "enable debug logging")
}

// newLogger builds the CLI logger; verbose switches it to debug level.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flags.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openRepository wires a repository for the named table: registry lookup,
// file store handle, logging middleware.
func openRepository(tableName string) (*core.Repository, error) {
	registry, err := core.LoadRegistry(flags.Config)
	if err != nil {
		return nil, err
	}
	table, ok := registry.Get(tableName)
	if !ok {
		return nil, fmt.Errorf("table %s is not registered in %s", tableName, flags.Config)
	}
	store, err := filedriver.NewFileStore(flags.Store)
	if err != nil {
		return nil, err
	}

	logger := newLogger()
	return core.New(table, store,
		core.WithLogger(logger),
		core.WithMiddleware(core.LoggingMiddleware(logger)),
	), nil
}

// printEntity renders one entity as field: value lines, fields sorted.
func printEntity(cmd *cobra.Command, entity *core.Entity) {
	attributes := entity.Attributes()
	fields := make([]string, 0, len(attributes))
	for field := range attributes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		value := attributes[field]
		if ts, ok := value.(time.Time); ok {
			value = ts.Format(time.RFC3339)
		}
		cmd.Printf("%s: %v\n", field, value)
	}
}

// parseWhere turns repeated field=value clauses into an AND condition.
// No clauses means no condition at all.
func parseWhere(clauses []string) (*core.Condition, error) {
	conditions := make([]*core.Condition, 0, len(clauses))
	for _, clause := range clauses {
		field, raw, ok := strings.Cut(clause, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --where clause %q, want field=value", clause)
		}
		conditions = append(conditions, core.Field(field).Eq(parseValue(raw)))
	}
	switch len(conditions) {
	case 0:
		return nil, nil
	case 1:
		return conditions[0], nil
	default:
		return conditions[0].And(conditions[1:]...), nil
	}
}

// parseValue decodes numbers, booleans and null the way JSON would, and
// falls back to the literal string.
func parseValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return value
}
