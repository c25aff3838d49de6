package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabula-io/tabula/core"
)

var findFlags struct {
	kind   string
	where  []string
	sort   []string
	limit  int
	offset int
	fields []string
	page   bool
}

var findCmd = &cobra.Command{
	Use:   "find <table>",
	Short: "List entities matching simple field filters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(args[0])
		if err != nil {
			return err
		}

		condition, err := parseWhere(findFlags.where)
		if err != nil {
			return err
		}
		query := core.NewQuery()
		if condition != nil {
			query.Where(condition)
		}
		for _, field := range findFlags.sort {
			order := core.SortAsc
			if strings.HasPrefix(field, "-") {
				order = core.SortDesc
				field = strings.TrimPrefix(field, "-")
			}
			query.OrderBy(field, order)
		}
		if findFlags.limit > 0 {
			query.Limit(findFlags.limit)
		}
		if findFlags.offset > 0 {
			query.Offset(findFlags.offset)
		}
		if len(findFlags.fields) > 0 {
			query.Select(findFlags.fields...)
		}

		if findFlags.page {
			page, err := repo.FindPage(cmd.Context(), findFlags.kind, query)
			if err != nil {
				return err
			}
			printEntities(cmd, page.Entities)
			cmd.Printf("total: %d\n", page.Total)
			return nil
		}

		entities, err := repo.Find(cmd.Context(), findFlags.kind, query)
		if err != nil {
			return err
		}
		printEntities(cmd, entities)
		return nil
	},
}

func printEntities(cmd *cobra.Command, entities []*core.Entity) {
	for i, entity := range entities {
		if i > 0 {
			cmd.Println("--")
		}
		printEntity(cmd, entity)
	}
}

func init() {
	findCmd.Flags().StringVar(&findFlags.kind, "kind", core.FinderAll, "find strategy: all, first, list or count")
	findCmd.Flags().StringArrayVar(&findFlags.where, "where", nil, "field=value equality filter, repeatable")
	findCmd.Flags().StringArrayVar(&findFlags.sort, "sort", nil, "sort field, prefix with - for descending")
	findCmd.Flags().IntVar(&findFlags.limit, "limit", 0, "maximum number of entities")
	findCmd.Flags().IntVar(&findFlags.offset, "offset", 0, "number of entities to skip")
	findCmd.Flags().StringSliceVar(&findFlags.fields, "fields", nil, "restrict the returned fields")
	findCmd.Flags().BoolVar(&findFlags.page, "page", false, "print the total match count as well")
	rootCmd.AddCommand(findCmd)
}
