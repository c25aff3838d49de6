package main

import "github.com/spf13/cobra"

var getCmd = &cobra.Command{
	Use:   "get <table> <key>",
	Short: "Fetch one entity by primary key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(args[0])
		if err != nil {
			return err
		}
		entity, err := repo.Get(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		printEntity(cmd, entity)
		return nil
	},
}

func init() { rootCmd.AddCommand(getCmd) }
