package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
)

// PointsLedger manages the per-user consumable point budget.
//
// All balance mutation happens here. Debit is a single conditional UPDATE, so
// the sufficiency check and the decrement are one atomic statement inside
// SQLite — callers must never treat a previously read balance as authoritative.
type PointsLedger struct {
	db  *sql.DB
	now func() time.Time
}

// NewPointsLedger creates a new [PointsLedger] with the given database connection
func NewPointsLedger(db *sql.DB) *PointsLedger {
	return &PointsLedger{db: db, now: time.Now}
}

// Balance returns the user's current point balance.
func (l *PointsLedger) Balance(userID string) (int, error) {
	var points int
	err := l.db.QueryRow(
		"SELECT points FROM users WHERE id = ? AND deleted_at IS NULL", userID,
	).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}
	return points, nil
}

// Debit deducts amount from the user's balance, failing closed when the
// balance is insufficient. The condition lives in the UPDATE itself, so a
// race between two debits can reject one but never overdraw.
func (l *PointsLedger) Debit(userID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit amount must be positive, got %d", shared.ErrInvalidArgument, amount)
	}

	query := `
		UPDATE users
		SET points = points - ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL AND points >= ?
	`

	result, err := l.db.Exec(query, amount, l.now(), userID, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDebitFailed, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDebitFailed, err)
	}
	if rows == 0 {
		// Either the user is gone or the balance was drained by a
		// concurrent debit since the caller's precheck.
		if _, berr := l.Balance(userID); berr != nil {
			return berr
		}
		return fmt.Errorf("%w: balance below %d at debit time", shared.ErrInsufficientPoints, amount)
	}

	return nil
}

// ResetIfNeeded restores the daily allowance once per calendar day.
// Returns the balance after any reset.
func (l *PointsLedger) ResetIfNeeded(userID string, allowance int) (int, error) {
	var (
		points    int
		resetDate time.Time
	)
	err := l.db.QueryRow(
		"SELECT points, points_reset_date FROM users WHERE id = ? AND deleted_at IS NULL", userID,
	).Scan(&points, &resetDate)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query reset date: %w", err)
	}

	now := l.now()
	if sameDay(resetDate, now) {
		return points, nil
	}

	query := `
		UPDATE users
		SET points = ?, points_reset_date = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL AND points_reset_date = ?
	`

	// The reset-date guard makes concurrent resets idempotent: the loser of
	// the race matches zero rows and the balance is already fresh.
	if _, err := l.db.Exec(query, allowance, now, now, userID, resetDate); err != nil {
		return 0, fmt.Errorf("failed to reset points: %w", err)
	}

	return l.Balance(userID)
}

// CreditSignInBonus awards the daily sign-in bonus, at most once per calendar
// day. Returns false when today's bonus was already claimed.
func (l *PointsLedger) CreditSignInBonus(userID string, amount int) (bool, error) {
	var lastSignIn sql.NullTime
	err := l.db.QueryRow(
		"SELECT last_sign_in_date FROM users WHERE id = ? AND deleted_at IS NULL", userID,
	).Scan(&lastSignIn)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to query sign-in date: %w", err)
	}

	now := l.now()
	if lastSignIn.Valid && sameDay(lastSignIn.Time, now) {
		return false, nil
	}

	query := `
		UPDATE users
		SET points = points + ?, last_sign_in_date = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
		  AND (last_sign_in_date IS NULL OR last_sign_in_date < ?)
	`

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	result, err := l.db.Exec(query, amount, now, now, userID, startOfDay)
	if err != nil {
		return false, fmt.Errorf("failed to credit sign-in bonus: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
