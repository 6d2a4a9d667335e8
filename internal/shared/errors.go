package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrUserNotFound     = fmt.Errorf("user not found")

	// Workflow API errors. ErrAPIRequest marks transport-level failures
	// (non-2xx status, connection refused) and is the only class the retry
	// controller resends. ErrBadResponse marks a response that arrived but
	// could not be decoded; resending would return the same bytes.
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrBadResponse        = fmt.Errorf("response format error")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Points ledger errors
	ErrInsufficientPoints = fmt.Errorf("insufficient points")
	ErrDebitFailed        = fmt.Errorf("points could not be deducted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
