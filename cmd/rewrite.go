package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/formatter"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Rewrite runs the full rewrite pipeline for one piece of text, streaming
// phase updates to the terminal while it works.
func (r *Runner) Rewrite(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	sourceText := cmd.String("text")
	if filePath := cmd.String("file"); filePath != "" {
		if sourceText != "" {
			return fmt.Errorf("%w: cannot specify both --text and --file", shared.ErrInvalidArgument)
		}
		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read text file: %w", err)
		}
		sourceText = string(data)
	}
	if strings.TrimSpace(sourceText) == "" {
		return fmt.Errorf("%w: --text or --file is required", shared.ErrMissingArgument)
	}

	instruction := cmd.String("instruction")
	format := cmd.String("format")
	switch format {
	case "text", "markdown", "json":
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
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
	result, err := engine.Rewrite(ctx, progress, userID, sourceText, instruction)
	close(progress)
	<-done

	if err != nil {
		// A debit failure can still carry verified content worth showing.
		if result != nil {
			r.writePlainln("⚠ Rewrite succeeded but charging points failed:")
			r.writePlain("%s\n", result.Content)
		}
		return err
	}

	export := &formatter.RewriteExport{
		SourceText:  sourceText,
		Instruction: instruction,
		Result:      result,
	}

	var rendered []byte
	switch format {
	case "markdown":
		rendered = formatter.RewriteToMarkdown(export)
	case "json":
		if rendered, err = formatter.RewriteToJSON(export); err != nil {
			return fmt.Errorf("failed to render result: %w", err)
		}
	default:
		rendered = formatter.RewriteToText(export)
	}

	if outputPath := cmd.String("output"); outputPath != "" {
		if err := formatter.WriteExport(outputPath, rendered); err != nil {
			return err
		}
		r.logger.Info("result written", "path", outputPath)
		r.writePlain("✓ Result written to %s\n", outputPath)
		return nil
	}

	return r.writePlain("%s", rendered)
}

// renderProgress prints phase updates as the engine emits them. The returned
// done channel closes once the progress channel drains.
func (r *Runner) renderProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progress := make(chan tasks.ProgressUpdate, 8)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("→ %s\n", update.Message)
		}
	}()

	return progress, done
}
