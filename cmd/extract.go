package main

import (
	"context"
	"fmt"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/formatter"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
	"github.com/urfave/cli/v3"
)

// Extract pulls the caption text out of a short-video link. Extraction is
// free and does not touch the point balance.
func (r *Runner) Extract(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: video url is required", shared.ErrMissingArgument)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}

	engine, _, users, err := r.buildEngine(db)
	if err != nil {
		return err
	}

	userID, err := r.resolveUserID(users, cmd.String("user"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Workflow.Timeout())
	defer cancel()

	progress, done := r.renderProgress()
	extraction, err := engine.Extract(ctx, progress, userID, url)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rendered, err := formatter.ExtractionToJSON(extraction)
		if err != nil {
			return fmt.Errorf("failed to render result: %w", err)
		}
		if outputPath := cmd.String("output"); outputPath != "" {
			return formatter.WriteExport(outputPath, rendered)
		}
		return r.writePlain("%s\n", rendered)
	}

	rendered := formatter.ExtractionToText(extraction)
	if outputPath := cmd.String("output"); outputPath != "" {
		if err := formatter.WriteExport(outputPath, rendered); err != nil {
			return err
		}
		r.writePlain("✓ Caption written to %s\n", outputPath)
		return nil
	}

	return r.writePlain("%s", rendered)
}
