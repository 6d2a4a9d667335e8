package tasks

import (
	"fmt"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Validate Phase = iota
	CheckPoints
	CallWorkflow
	ParseStream
	DebitPoints
	Done
)

func (p Phase) String() string {
	switch p {
	case Validate:
		return "validate"
	case CheckPoints:
		return "check_points"
	case CallWorkflow:
		return "call_workflow"
	case ParseStream:
		return "parse_stream"
	case DebitPoints:
		return "debit_points"
	case Done:
		return "done"
	default:
		return ""
	}
}

func validateUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Message: "Validating request...",
	}
}

func checkPointsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckPoints,
		Message: "Checking point balance...",
	}
}

func callWorkflowUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   CallWorkflow,
		Message: "Calling workflow...",
	}
}

func parseStreamUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParseStream,
		Message: "Parsing workflow stream...",
	}
}

func debitUpdate(cost int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DebitPoints,
		Message: fmt.Sprintf("Deducting %d points...", cost),
	}
}

func doneUpdate(result *services.RewriteResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Message: "Rewrite complete",
		Data:    result,
	}
}

func extractedUpdate(extraction *services.Extraction) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Message: fmt.Sprintf("Extracted: %s", extraction.Title),
		Data:    extraction,
	}
}
