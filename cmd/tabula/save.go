package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabula-io/tabula/core"
)

var saveFlags struct {
	id  string
	set []string
}

var saveCmd = &cobra.Command{
	Use:   "save <table>",
	Short: "Create or update an entity from field assignments",
	Long: `save builds an entity from repeated --set field=value assignments and
persists it. With --id it loads the existing entity first and applies the
assignments as an update; an unknown id creates the entity under that key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(args[0])
		if err != nil {
			return err
		}

		var entity *core.Entity
		switch {
		case saveFlags.id != "":
			entity, err = repo.Get(cmd.Context(), saveFlags.id)
			if err != nil {
				var notFound *core.NotFoundError
				if !errors.As(err, &notFound) {
					return err
				}
				entity = core.NewEntity()
				entity.Set(repo.Table().PrimaryKeyField(), saveFlags.id)
			}
		default:
			entity = core.NewEntity()
		}

		for _, assignment := range saveFlags.set {
			field, raw, ok := strings.Cut(assignment, "=")
			if !ok || field == "" {
				return fmt.Errorf("invalid --set assignment %q, want field=value", assignment)
			}
			entity.Set(field, parseValue(raw))
		}

		result, err := repo.Save(cmd.Context(), entity)
		if err != nil {
			return err
		}
		if result.Vetoed {
			return fmt.Errorf("save vetoed: %v", result.Result)
		}
		if !result.OK {
			for field, messages := range entity.Errors() {
				for _, message := range messages {
					cmd.PrintErrf("%s: %s\n", field, message)
				}
			}
			return fmt.Errorf("save was not acknowledged")
		}
		printEntity(cmd, entity)
		return nil
	},
}

func init() {
	saveCmd.Flags().StringVar(&saveFlags.id, "id", "", "primary key of the entity to update")
	saveCmd.Flags().StringArrayVar(&saveFlags.set, "set", nil, "field=value assignment, repeatable")
	rootCmd.AddCommand(saveCmd)
}
