// Command finlit answers personal finance questions from a curated PDF library.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/finlit/internal/adapters/driven/ai"
	"github.com/custodia-labs/finlit/internal/adapters/driven/config/file"
	"github.com/custodia-labs/finlit/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/finlit/internal/adapters/driving/cli"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/core/services"
	"github.com/custodia-labs/finlit/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is normal; keys may come from the environment.
	_ = godotenv.Load()

	var configStore driven.ConfigStore
	fileStore, err := file.NewConfigStore("")
	if err != nil {
		logger.Error("config unavailable, using defaults for this run: %v", err)
		configStore = memory.NewConfigStore()
	} else {
		configStore = fileStore
	}
	promptStore, err := file.NewPromptStore("")
	if err != nil {
		logger.Error("failed to open prompts: %v", err)
		return 1
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	app := &application{prompts: promptStore}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, settingsService, app.wire, version); err != nil {
		return 1
	}
	return 0
}
