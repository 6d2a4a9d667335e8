// Pseudo-SSE stream decoding for Coze workflow responses.
package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
)

const (
	eventDelimiter = "\n\n"
	dataPrefix     = "data: "

	// terminalNodeTitle marks the one stream event carrying the final
	// rewrite output.
	terminalNodeTitle = "End"

	// DefaultMinOutputLength is the fallback plausibility threshold for
	// rewrite output. An output shorter than this is treated as a parse
	// failure rather than a valid result. Heuristic, not an upstream
	// contract — override via workflow.min_output_length.
	DefaultMinOutputLength = 2
)

// ParseRewriteStream decodes a rewrite workflow response into its terminal
// result. The stream is scanned once; the first event titled "End" wins and
// any later ones are never consulted.
//
// minOutput is the minimum rune count accepted for the output; values < 1
// fall back to [DefaultMinOutputLength].
func ParseRewriteStream(raw string, minOutput int) (*RewriteResult, error) {
	if minOutput < 1 {
		minOutput = DefaultMinOutputLength
	}

	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty response", shared.ErrBadResponse)
	}

	for _, event := range strings.Split(raw, eventDelimiter) {
		if strings.TrimSpace(event) == "" {
			continue
		}

		for _, line := range strings.Split(event, "\n") {
			if !strings.HasPrefix(line, dataPrefix) {
				continue
			}

			var envelope WorkflowEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, dataPrefix)), &envelope); err != nil {
				// Interleaved non-JSON data lines (pings, partial
				// chunks) are irrelevant, not an error.
				continue
			}

			if envelope.NodeTitle != terminalNodeTitle {
				continue
			}

			var payload struct {
				Output string `json:"output"`
			}
			if err := json.Unmarshal([]byte(envelope.Content), &payload); err != nil {
				return nil, fmt.Errorf("%w: malformed terminal event: %v", shared.ErrBadResponse, err)
			}
			if payload.Output == "" {
				return nil, fmt.Errorf("%w: terminal event missing output", shared.ErrBadResponse)
			}
			if utf8.RuneCountInString(payload.Output) < minOutput {
				return nil, fmt.Errorf("%w: implausibly short output (%d runes)", shared.ErrBadResponse, utf8.RuneCountInString(payload.Output))
			}

			return &RewriteResult{Content: payload.Output}, nil
		}
	}

	return nil, fmt.Errorf("%w: no terminal event in stream", shared.ErrBadResponse)
}

// ParseExtractStream decodes an extraction workflow response.
//
// The extraction workflow emits its payload on whichever data line carries
// both content and title; there is no terminal marker, so the first complete
// payload wins.
func ParseExtractStream(raw string) (*Extraction, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty response", shared.ErrBadResponse)
	}

	for _, line := range strings.Split(raw, "\n") {
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		var envelope WorkflowEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, dataPrefix)), &envelope); err != nil {
			continue
		}
		if envelope.Content == "" {
			continue
		}

		var payload Extraction
		if err := json.Unmarshal([]byte(envelope.Content), &payload); err != nil {
			continue
		}
		if payload.Content != "" && payload.Title != "" {
			return &payload, nil
		}
	}

	return nil, fmt.Errorf("%w: no extraction payload in stream", shared.ErrBadResponse)
}
