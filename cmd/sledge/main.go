package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sledgehq/sledge/adapter/cli"
	cliBilling "github.com/sledgehq/sledge/adapter/cli/billing"
	"github.com/sledgehq/sledge/internal/app"
	"github.com/sledgehq/sledge/pkg/config"
	"github.com/sledgehq/sledge/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", observability.ErrorKey, err)
		os.Exit(1)
	}
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger, observability.NoopMetrics{})
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize container", observability.ErrorKey, err)
			os.Exit(1)
		}
		// version and help still work without a database
		logger.Warn("failed to initialize container, running in limited mode", observability.ErrorKey, err)
	} else {
		defer container.Close()
		cli.SetApp(cli.NewApp(container))
	}

	cli.AddCommand(cliBilling.Cmd)
	cli.ExecuteContext(ctx)
}
