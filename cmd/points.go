package main

import (
	"context"
	"fmt"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/repositories"
	"github.com/urfave/cli/v3"
)

// PointsBalance shows the user's balance after applying any pending daily reset.
func (r *Runner) PointsBalance(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	db, err := r.openDB()
	if err != nil {
		return err
	}

	users := repositories.NewUserRepository(db)
	ledger := repositories.NewPointsLedger(db)

	userID, err := r.resolveUserID(users, cmd.String("user"))
	if err != nil {
		return err
	}

	points, err := ledger.ResetIfNeeded(userID, r.config.Points.DailyAllowance)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]int{"points": points}, false)
	}

	r.writePlain("Balance: %d points\n", points)
	return nil
}

// PointsSignIn claims the once-per-day sign-in bonus.
func (r *Runner) PointsSignIn(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	db, err := r.openDB()
	if err != nil {
		return err
	}

	users := repositories.NewUserRepository(db)
	ledger := repositories.NewPointsLedger(db)

	userID, err := r.resolveUserID(users, cmd.String("user"))
	if err != nil {
		return err
	}

	credited, err := ledger.CreditSignInBonus(userID, r.config.Points.SignInBonus)
	if err != nil {
		return fmt.Errorf("failed to credit sign-in bonus: %w", err)
	}

	points, err := ledger.Balance(userID)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	if credited {
		r.writePlain("✓ Sign-in bonus credited: +%d points\n", r.config.Points.SignInBonus)
	} else {
		r.writePlainln("Sign-in bonus already claimed today.")
	}
	r.writePlain("Balance: %d points\n", points)
	return nil
}
