package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabula-io/tabula/core"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <table> <key>",
	Short: "Remove the entity with the given primary key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(args[0])
		if err != nil {
			return err
		}

		entity := core.NewEntity()
		entity.Set(repo.Table().PrimaryKeyField(), args[1])
		if !repo.Delete(cmd.Context(), entity) {
			return fmt.Errorf("delete was not acknowledged")
		}
		cmd.Println("deleted")
		return nil
	},
}

func init() { rootCmd.AddCommand(deleteCmd) }
