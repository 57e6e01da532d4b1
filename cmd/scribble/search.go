package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search notes by title and content",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fail(err)
		}
		defer a.close()

		query := strings.Join(args, " ")
		results, err := a.svc.Search(context.Background(), query)
		if err != nil {
			fail(err)
		}

		for _, n := range results {
			fmt.Printf("%-28s %-24s %s\n", n.ID, n.Title, n.UpdatedAt.Format("2006-01-02 15:04"))
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
