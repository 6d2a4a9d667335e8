// package services defines the workflow client for the Coze API
package services

import (
	"context"
	"fmt"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
)

// Transport selects how a workflow request reaches the upstream API.
type Transport int

const (
	// TransportDirect calls the upstream workflow endpoint with a
	// client-attached bearer header.
	TransportDirect Transport = iota
	// TransportProxy relays through the same-origin proxy endpoint, used
	// when direct calls are blocked.
	TransportProxy
)

func (t Transport) String() string {
	switch t {
	case TransportDirect:
		return "direct"
	case TransportProxy:
		return "proxy"
	default:
		return ""
	}
}

// Workflow defines the interface for the upstream AI workflow provider.
//
// Both operations return the raw stream text; decoding is the caller's
// concern so that transport retries and parse failures stay distinct.
type Workflow interface {
	// Rewrite runs the rewrite workflow for the given source text and
	// instruction, returning the raw event-stream text.
	Rewrite(ctx context.Context, text, userInput string) (string, error)

	// Extract runs the caption-extraction workflow for a short-video link,
	// returning the raw event-stream text.
	Extract(ctx context.Context, url string) (string, error)

	// Name returns the provider name (e.g., "Coze")
	Name() string
}

// WorkflowEvent is the decoded envelope of one "data:" line in the stream.
//
// Content is itself a JSON-encoded payload, decoded again once the terminal
// event is identified.
type WorkflowEvent struct {
	Content      string `json:"content"`
	ContentType  string `json:"content_type"`
	Cost         string `json:"cost"`
	NodeIsFinish bool   `json:"node_is_finish"`
	NodeSeqID    string `json:"node_seq_id"`
	NodeTitle    string `json:"node_title"`
	Token        int    `json:"token"`
}

// RewriteResult is the sole successful output of the rewrite pipeline.
type RewriteResult struct {
	Content string `json:"content"`
}

// Extraction is the payload of the caption-extraction workflow.
type Extraction struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

// StatusError reports a non-success HTTP status from the workflow API or the
// proxy. Unwraps to [shared.ErrAPIRequest] so errors.Is treats it as a
// retryable transport failure.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("workflow API error: status %d", e.Status)
	}
	return fmt.Sprintf("workflow API error: status %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return shared.ErrAPIRequest
}
