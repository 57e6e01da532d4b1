package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbellotti/scribble/internal/remote"
)

var registerFlag bool

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in to the configured server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fail(err)
		}
		defer a.close()

		if !a.client.IsConfigured() {
			fail(fmt.Errorf("no server configured; set server.url in %s", configPath))
		}

		fmt.Print("Password: ")
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			fail(err)
		}
		password = strings.TrimSpace(password)

		ctx := context.Background()
		var resp *remote.LoginResponse
		if registerFlag {
			resp, err = a.client.Register(ctx, args[0], password)
		} else {
			resp, err = a.client.Login(ctx, args[0], password)
		}
		if err != nil {
			fail(err)
		}

		a.cfg.Server.Enabled = true
		a.cfg.Server.Token = resp.Token
		a.cfg.Server.Username = resp.Username
		if err := a.cfg.Save(configPath); err != nil {
			fail(err)
		}

		fmt.Printf("Signed in as %s. Run 'scribble sync' to reconcile.\n", resp.Username)
	},
}

func init() {
	loginCmd.Flags().BoolVar(&registerFlag, "register", false, "create a new account instead of signing in")
	rootCmd.AddCommand(loginCmd)
}
