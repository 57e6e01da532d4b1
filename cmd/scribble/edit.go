package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbellotti/scribble/internal/notes"
)

var (
	editTitle   string
	editContent string
	editColor   string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a note's title, content, or color",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fail(err)
		}
		defer a.close()

		var upd notes.Update
		if cmd.Flags().Changed("title") {
			upd.Title = &editTitle
		}
		if cmd.Flags().Changed("content") {
			upd.Content = &editContent
		}
		if cmd.Flags().Changed("color") {
			upd.Color = &editColor
		}

		m, err := a.svc.UpdateNote(context.Background(), args[0], upd)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Updated %s\n", m.Note.ID)
	},
}

func init() {
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "new title")
	editCmd.Flags().StringVarP(&editContent, "content", "c", "", "new content")
	editCmd.Flags().StringVar(&editColor, "color", "", "new color tag")
	rootCmd.AddCommand(editCmd)
}
