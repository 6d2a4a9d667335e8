package main

import (
	"context"
	"errors"
	"os"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/services"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var workflow services.Workflow
	if config.Credentials.Coze.APIToken != "" {
		if svc, err := services.NewCozeService(config.Credentials.Coze, nil); err == nil {
			svc.SetRetryPolicy(config.Workflow.MaxAttempts, config.Workflow.BaseDelay())
			workflow = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Workflow: workflow,
		Logger:   logger,
	})

	app := appCommand(runner)

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

func appCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "shuaigou",
		Usage:    "Rewrite short-video captions with Coze workflows",
		Version:  "0.3.0",
		Commands: r.register(),
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}
