// Package tasks orchestrates the content-rewrite pipeline with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines two operations:
//
//  1. [Engine.Rewrite] : AI-driven rewrite of caption text
//     - Validates the user, the source text, and the instruction
//     - Applies the daily point reset and prechecks the balance
//     - Calls the workflow API (direct, then proxy fallback, with retry)
//     - Parses the event stream for the terminal result
//     - Debits the point cost, atomically, only after the content is verified
//
//  2. [Engine.Extract] : caption extraction from a short-video link
//     - Same validation, no point charge
//
// # Charging Order
//
// The pipeline's correctness property is charge-after-verify: the debit is
// the last step, so a transport or parse failure can never cost points, and
// cancellation before the debit has no ledger effect. The precheck balance is
// advisory only — the ledger's conditional decrement re-validates sufficiency
// inside the store, which is what keeps concurrent rewrites safe.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, and messages for
// CLI/UI rendering. Updates use select with default to prevent blocking.
//
// # Implementation
//
// [RewriteEngine] implements [Engine] with dependencies on:
//   - [services.Workflow] : the Coze workflow client
//   - [Ledger] : the point budget (repositories.PointsLedger)
//   - [UserStore] : account lookups (repositories.UserRepository)
//   - [rate.Limiter] : caps workflow-API call rate
package tasks
