package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local notes with the server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fail(err)
		}
		defer a.close()

		res, err := a.engine.Reconcile(context.Background())
		if err != nil {
			fail(err)
		}

		fmt.Printf("Migrated %d, pushed %d, pulled %d, adopted %d\n",
			res.Migrated, res.Pushed, res.Pulled, res.Adopted)
		for _, e := range res.Errors {
			fmt.Printf("  warning: %v\n", e)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
