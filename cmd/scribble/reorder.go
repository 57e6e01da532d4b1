package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reorderCmd = &cobra.Command{
	Use:   "reorder <id> [id...]",
	Short: "Set the manual display order of notes",
	Long:  `Assigns each listed note a sort position matching its place in the argument list.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fail(err)
		}
		defer a.close()

		if _, err := a.svc.Reorder(context.Background(), args); err != nil {
			fail(err)
		}
		fmt.Printf("Reordered %d notes\n", len(args))
	},
}

func init() {
	rootCmd.AddCommand(reorderCmd)
}
