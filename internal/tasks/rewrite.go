package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/services"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
)

// Rewrite runs the full rewrite pipeline: validate → precheck → transport
// with retry and proxy fallback → parse → debit.
//
// Ordering is the correctness property of the whole pipeline: the debit
// happens only after the parsed result is in hand, so transport and parse
// failures never cost points. The returned error wraps one of the shared
// taxonomy sentinels; on ErrDebitFailed the result is still returned when
// Options.ShowOnDebitFailure is set.
func (e *RewriteEngine) Rewrite(ctx context.Context, progress chan<- ProgressUpdate, userID, sourceText, instruction string) (*services.RewriteResult, error) {
	if e.workflow == nil || e.ledger == nil || e.users == nil {
		return nil, fmt.Errorf("%w: engine not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, validateUpdate())

	if _, err := e.authenticate(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sourceText) == "" {
		return nil, fmt.Errorf("%w: source text is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("%w: rewrite instruction is required", shared.ErrInvalidInput)
	}

	e.sendProgress(progress, checkPointsUpdate())

	balance, err := e.ledger.ResetIfNeeded(userID, e.opts.DailyAllowance)
	if err != nil {
		return nil, err
	}
	if balance < e.opts.RewriteCost {
		return nil, fmt.Errorf("%w: have %d, need %d", shared.ErrInsufficientPoints, balance, e.opts.RewriteCost)
	}

	if err := e.waitForSlot(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	e.sendProgress(progress, callWorkflowUpdate())

	raw, err := e.workflow.Rewrite(ctx, sourceText, instruction)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, parseStreamUpdate())

	result, err := services.ParseRewriteStream(raw, e.opts.MinOutputLength)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, debitUpdate(e.opts.RewriteCost))

	// The ledger re-validates sufficiency inside the store; the precheck
	// balance above is never reused here.
	if err := e.ledger.Debit(userID, e.opts.RewriteCost); err != nil {
		wrapped := fmt.Errorf("%w: %v", shared.ErrDebitFailed, err)
		if e.opts.ShowOnDebitFailure {
			return result, wrapped
		}
		return nil, wrapped
	}

	e.sendProgress(progress, doneUpdate(result))
	return result, nil
}

// Extract runs the caption-extraction workflow. Extraction is free; only the
// account check gates it.
func (e *RewriteEngine) Extract(ctx context.Context, progress chan<- ProgressUpdate, userID, url string) (*services.Extraction, error) {
	if e.workflow == nil || e.users == nil {
		return nil, fmt.Errorf("%w: engine not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, validateUpdate())

	if _, err := e.authenticate(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: video link is required", shared.ErrInvalidInput)
	}

	if err := e.waitForSlot(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	e.sendProgress(progress, callWorkflowUpdate())

	raw, err := e.workflow.Extract(ctx, url)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, parseStreamUpdate())

	extraction, err := services.ParseExtractStream(raw)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, extractedUpdate(extraction))
	return extraction, nil
}
