package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/homesite/internal/logging"
	"github.com/dmitrijs2005/homesite/internal/server"
	"github.com/dmitrijs2005/homesite/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stdout, logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, AddSource: true})

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "init failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	app.Run(ctx)

}
