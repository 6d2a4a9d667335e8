// package tasks implements the rewrite orchestration between the workflow API and the points ledger.
package tasks

import (
	"context"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/models"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/services"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
	"golang.org/x/time/rate"
)

// Engine defines the externally invoked rewrite operations.
type Engine interface {
	// Rewrite produces an AI rewrite of sourceText following instruction,
	// charging the user's point budget on success.
	Rewrite(ctx context.Context, progress chan<- ProgressUpdate, userID, sourceText, instruction string) (*services.RewriteResult, error)

	// Extract pulls caption text and title from a short-video link.
	Extract(ctx context.Context, progress chan<- ProgressUpdate, userID, url string) (*services.Extraction, error)
}

// Ledger defines the point budget operations the engine consumes.
// Implemented by repositories.PointsLedger; atomicity is the store's promise.
type Ledger interface {
	Balance(userID string) (int, error)
	Debit(userID string, amount int) error
	ResetIfNeeded(userID string, allowance int) (int, error)
}

// UserStore defines the account lookup the engine uses to decide whether a
// caller is authenticated.
type UserStore interface {
	Get(id string) (*models.User, error)
}

// Options tunes the engine's charging and pipeline policy.
type Options struct {
	RewriteCost     int     // Points charged per confirmed rewrite
	DailyAllowance  int     // Balance restored by the daily reset
	SignInBonus     int     // Points awarded by the daily sign-in bonus
	MinOutputLength int     // Parser plausibility threshold, in runes
	RateLimit       float64 // Workflow API calls per second (0 disables)

	// ShowOnDebitFailure controls whether a parsed result is still returned
	// alongside ErrDebitFailed.
	ShowOnDebitFailure bool
}

// RewriteEngine implements [Engine].
type RewriteEngine struct {
	workflow services.Workflow
	ledger   Ledger
	users    UserStore
	limiter  *rate.Limiter
	opts     Options
}

// NewRewriteEngine creates a new RewriteEngine with the provided collaborators.
func NewRewriteEngine(workflow services.Workflow, ledger Ledger, users UserStore, opts Options) *RewriteEngine {
	if opts.RewriteCost <= 0 {
		opts.RewriteCost = 30
	}
	if opts.DailyAllowance <= 0 {
		opts.DailyAllowance = 100
	}
	if opts.SignInBonus <= 0 {
		opts.SignInBonus = 10
	}
	if opts.MinOutputLength <= 0 {
		opts.MinOutputLength = services.DefaultMinOutputLength
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &RewriteEngine{
		workflow: workflow,
		ledger:   ledger,
		users:    users,
		limiter:  limiter,
		opts:     opts,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *RewriteEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// authenticate resolves the calling user, failing fast when the account is
// unknown. Authentication itself is the provider's job; an account row is
// the engine's proof it happened.
func (e *RewriteEngine) authenticate(userID string) (*models.User, error) {
	if userID == "" {
		return nil, shared.ErrNotAuthenticated
	}
	user, err := e.users.Get(userID)
	if err != nil {
		return nil, shared.ErrNotAuthenticated
	}
	return user, nil
}

// waitForSlot blocks on the rate limiter when one is configured.
func (e *RewriteEngine) waitForSlot(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}
