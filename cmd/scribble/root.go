package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mbellotti/scribble/internal/config"
	"github.com/mbellotti/scribble/internal/identity"
	"github.com/mbellotti/scribble/internal/notes"
	"github.com/mbellotti/scribble/internal/remote"
	"github.com/mbellotti/scribble/internal/storage"
	syncer "github.com/mbellotti/scribble/internal/sync"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "scribble",
	Short: "Offline-first personal notes with optional server sync",
	Long: `Scribble keeps your notes on-device and, when signed in, reconciles
them with a remote store using last-write-wins conflict resolution.
Every command works offline; sync catches up later.`,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// app wires the store, remote client, and services for one command run.
type app struct {
	cfg    *config.Client
	store  *storage.Store
	client *remote.Client
	svc    *notes.Service
	engine *syncer.Engine
	log    *zap.Logger
}

func newApp() (*app, error) {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if verbose {
		log, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}

	kv, err := storage.NewSQLiteKV(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	store := storage.New(kv)

	client := remote.NewClient(cfg.Server.URL)
	token := ""
	if cfg.Server.Enabled && cfg.Server.URL != "" {
		token = cfg.Server.Token
	}
	client.SetToken(token)
	ident := identity.NewTokenProvider(token)

	return &app{
		cfg:    cfg,
		store:  store,
		client: client,
		svc:    notes.NewService(store, client, ident, log),
		engine: syncer.New(store, client, ident, log),
		log:    log,
	}, nil
}

func (a *app) close() {
	a.store.Close()
	a.log.Sync()
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
