package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/mbellotti/scribble/internal/auth"
	"github.com/mbellotti/scribble/internal/config"
	"github.com/mbellotti/scribble/internal/server"
	"github.com/mbellotti/scribble/internal/server/store"
)

func main() {
	configPath := flag.String("config", "", "config file path (optional; env vars also apply)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	st, err := store.New(store.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	srv := server.New(st, jwtManager, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("starting server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, srv); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
