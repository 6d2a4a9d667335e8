// Coze workflow API implementation of [Workflow]
//
// Request and stream shapes based on https://www.coze.com/docs/developer_guides/workflow_stream_run
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
)

const streamRunPath = "/v1/workflow/stream_run"

// streamRunRequest is the JSON body sent to the workflow endpoint, identical
// for both transports.
type streamRunRequest struct {
	WorkflowID string            `json:"workflow_id"`
	Parameters map[string]string `json:"parameters"`
}

// proxyEnvelope is the proxy's success or failure response body.
type proxyEnvelope struct {
	Data    string `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// CozeService implements the [Workflow] interface against the Coze API.
//
// Retry and transport-fallback policy lives here so every caller gets the
// same behavior: direct first, proxy on transport failure, the whole pair
// retried with backoff.
type CozeService struct {
	cfg         shared.CozeConfig
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
}

// NewCozeService creates a new Coze workflow client.
//
// A nil client falls back to [http.DefaultClient]; per-attempt timeouts come
// from the client, the overall deadline from the caller's context.
func NewCozeService(cfg shared.CozeConfig, client *http.Client) (*CozeService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.coze.com"
	}
	if cfg.APIToken == "" && cfg.RewriteAPIToken == "" {
		return nil, fmt.Errorf("%w: coze api token", shared.ErrMissingCredentials)
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &CozeService{
		cfg:         cfg,
		httpClient:  client,
		maxAttempts: defaultRetryAttempts,
		baseDelay:   defaultRetryBaseDelay,
	}, nil
}

// SetRetryPolicy overrides the default retry bound and backoff base.
func (c *CozeService) SetRetryPolicy(maxAttempts int, baseDelay time.Duration) {
	if maxAttempts > 0 {
		c.maxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		c.baseDelay = baseDelay
	}
}

// Name returns the provider name.
func (c *CozeService) Name() string {
	return "Coze"
}

// Rewrite runs the rewrite workflow and returns the raw event-stream text.
//
// Each attempt walks the transport state machine Direct → (on transport
// error) → Proxy → Failed; decode failures happen above this layer and are
// never a reason to switch transports.
func (c *CozeService) Rewrite(ctx context.Context, text, userInput string) (string, error) {
	req := streamRunRequest{
		WorkflowID: c.cfg.RewriteWorkflowID,
		Parameters: map[string]string{
			"user_id":    "default_user",
			"text":       text,
			"user_input": userInput,
		},
	}
	token := c.cfg.RewriteAPIToken
	if token == "" {
		token = c.cfg.APIToken
	}

	return withRetry(ctx, c.maxAttempts, c.baseDelay, func(ctx context.Context) (string, error) {
		return c.sendWithFallback(ctx, token, req)
	})
}

// Extract runs the caption-extraction workflow for a short-video link.
func (c *CozeService) Extract(ctx context.Context, url string) (string, error) {
	req := streamRunRequest{
		WorkflowID: c.cfg.ExtractWorkflowID,
		Parameters: map[string]string{
			"user_id":        "default",
			"BOT_USER_INPUT": url,
		},
	}

	return withRetry(ctx, c.maxAttempts, c.baseDelay, func(ctx context.Context) (string, error) {
		return c.sendWithFallback(ctx, c.cfg.APIToken, req)
	})
}

// sendWithFallback attempts the direct transport, then the proxy when the
// direct call fails at the transport level and a proxy is configured.
func (c *CozeService) sendWithFallback(ctx context.Context, token string, req streamRunRequest) (string, error) {
	raw, err := c.StreamRun(ctx, TransportDirect, token, req)
	if err == nil {
		return raw, nil
	}
	if c.cfg.ProxyURL == "" || !errors.Is(err, shared.ErrAPIRequest) {
		return "", err
	}

	raw, proxyErr := c.StreamRun(ctx, TransportProxy, token, req)
	if proxyErr != nil {
		return "", fmt.Errorf("direct transport failed (%v); proxy fallback: %w", err, proxyErr)
	}
	return raw, nil
}

// StreamRun performs one workflow call over the selected transport and
// returns the raw response text.
func (c *CozeService) StreamRun(ctx context.Context, mode Transport, token string, req streamRunRequest) (string, error) {
	var endpoint string
	switch mode {
	case TransportDirect:
		endpoint = c.cfg.BaseURL + streamRunPath
	case TransportProxy:
		endpoint = c.cfg.ProxyURL
	default:
		return "", fmt.Errorf("%w: unknown transport %d", shared.ErrInvalidArgument, mode)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrTimeout, ctx.Err())
		}
		return "", fmt.Errorf("%w: %s transport: %v", shared.ErrAPIRequest, mode, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if mode == TransportProxy {
		return decodeProxyEnvelope(resp.StatusCode, respBody)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return string(respBody), nil
}

// decodeProxyEnvelope unwraps the proxy's {data} / {error,message,status}
// body, handing the raw stream text to the caller unchanged.
func decodeProxyEnvelope(status int, body []byte) (string, error) {
	var envelope proxyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		if status < 200 || status >= 300 {
			return "", &StatusError{Status: status}
		}
		return "", fmt.Errorf("%w: proxy returned non-JSON body", shared.ErrBadResponse)
	}

	if status < 200 || status >= 300 {
		msg := envelope.Message
		if msg == "" {
			msg = envelope.Error
		}
		return "", &StatusError{Status: status, Message: msg}
	}

	return envelope.Data, nil
}
