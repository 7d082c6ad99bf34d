// Command docqa answers questions about PDF and plain-text documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	configDir, store := openConfigStore()
	settings := services.NewSettingsService(store, ai.NewConfigValidator())

	cli.SetVersion(version)
	cli.SetSettingsService(settings)
	cli.SetPipelineFactory(newPipelineFactory(settings, configDir))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openConfigStore opens ~/.docqa/config.toml, falling back to an in-memory
// store so the binary still runs from environment variables alone.
func openConfigStore() (string, driven.ConfigStore) {
	dir, err := file.DefaultDir()
	if err == nil {
		var store *file.ConfigStore
		store, err = file.NewConfigStore(dir)
		if err == nil {
			return dir, store
		}
	}
	logger.Warn("Config file unavailable, settings will not persist: %v", err)
	return "", memory.NewConfigStore()
}
