package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabula-io/tabula/core"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables registered in the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := core.LoadRegistry(flags.Config)
		if err != nil {
			return err
		}
		for _, table := range registry.Tables() {
			cmd.Printf("%s\talias=%s\tkey=%s\n",
				table.Name, table.Alias, strings.Join(table.PrimaryKey, ","))
		}
		return nil
	},
}

func init() { rootCmd.AddCommand(tablesCmd) }
