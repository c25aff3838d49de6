package main

import "github.com/spf13/cobra"

var countFlags struct {
	where []string
}

var countCmd = &cobra.Command{
	Use:   "count <table>",
	Short: "Count entities matching simple field filters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(args[0])
		if err != nil {
			return err
		}
		condition, err := parseWhere(countFlags.where)
		if err != nil {
			return err
		}
		n, err := repo.Count(cmd.Context(), condition)
		if err != nil {
			return err
		}
		cmd.Println(n)
		return nil
	},
}

func init() {
	countCmd.Flags().StringArrayVar(&countFlags.where, "where", nil, "field=value equality filter, repeatable")
	rootCmd.AddCommand(countCmd)
}
