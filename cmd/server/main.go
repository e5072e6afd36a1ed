package main

import (
	"context"
	"log/slog"
	"os"

	"go-bookshelf/internal/logger"
)

func main() {
	// Until config is loaded the logger uses defaults.
	slog.SetDefault(logger.New(os.Stdout, logger.FormatPretty, "info"))

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
