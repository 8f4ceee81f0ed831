package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/passvault-app/passvault/internal/buildinfo"
	"github.com/passvault-app/passvault/internal/cli"
	"github.com/passvault-app/passvault/internal/config"
	"github.com/passvault-app/passvault/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg, found, err := config.LoadFromArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if !found {
		log.Printf("no config found, starting first-time setup at %s", cfg.Path())
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	app := cli.NewApp(cfg, logger)
	app.Run(context.Background())
}
