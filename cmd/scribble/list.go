package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes in manual order",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fail(err)
		}
		defer a.close()

		all, err := a.store.Load()
		if err != nil {
			fail(err)
		}

		// Manual order first, unordered notes last.
		sort.SliceStable(all, func(i, j int) bool {
			si, sj := all[i].SortOrder, all[j].SortOrder
			if si == nil {
				return false
			}
			if sj == nil {
				return true
			}
			return *si < *sj
		})

		for _, n := range all {
			marker := " "
			if n.Dirty {
				marker = "*"
			}
			fmt.Printf("%s %-28s %-24s %s\n", marker, n.ID, n.Title, n.UpdatedAt.Format("2006-01-02 15:04"))
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
