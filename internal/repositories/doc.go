// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [UserRepository] : User account persistence with email-based lookups
//   - [PointsLedger] : The consumable point budget gating rewrite requests
//
// The ledger is the only writer of the points column. Its debit is a single
// conditional UPDATE so concurrent rewrites for one user can never drive the
// balance negative, regardless of what the callers pre-checked.
package repositories
