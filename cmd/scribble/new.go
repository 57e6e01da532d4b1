package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	newTitle   string
	newContent string
	newColor   string
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a note",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fail(err)
		}
		defer a.close()

		m, err := a.svc.Create(context.Background(), newTitle, newContent, newColor)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Created %s (%s)\n", m.Note.ID, m.Note.Title)
	},
}

func init() {
	newCmd.Flags().StringVarP(&newTitle, "title", "t", "", "note title")
	newCmd.Flags().StringVarP(&newContent, "content", "c", "", "note content")
	newCmd.Flags().StringVar(&newColor, "color", "", "display color tag")
	rootCmd.AddCommand(newCmd)
}
