package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
)

const proxyRoute = "/api/coze-proxy"

// proxyError is the JSON failure envelope returned by the proxy endpoint.
type proxyError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// ProxyHandler relays workflow requests from the browser client to the
// upstream API, working around environments where the direct call is blocked.
//
// The request body and Authorization header pass through unchanged; the
// upstream response text comes back wrapped in a {data} envelope so the
// client can tell a relayed stream from a proxy failure. The proxy holds no
// credentials of its own.
type ProxyHandler struct {
	upstreamURL string
	client      *http.Client
	logger      *log.Logger
}

// NewProxyHandler creates a proxy handler forwarding to the given upstream
// endpoint. A nil client falls back to [http.DefaultClient].
func NewProxyHandler(upstreamURL string, client *http.Client, logger *log.Logger) *ProxyHandler {
	if client == nil {
		client = http.DefaultClient
	}
	return &ProxyHandler{
		upstreamURL: upstreamURL,
		client:      client,
		logger:      logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *ProxyHandler) Routes() []string {
	return []string{proxyRoute}
}

// ServeHTTP forwards one workflow request to the upstream API.
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProxyError(w, http.StatusMethodNotAllowed, proxyError{
			Error:   "Method not allowed",
			Message: "Only POST requests are allowed",
		})
		return
	}

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.upstreamURL, r.Body)
	if err != nil {
		writeProxyError(w, http.StatusInternalServerError, proxyError{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}
	upstream.Header.Set("Authorization", r.Header.Get("Authorization"))
	upstream.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(upstream)
	if err != nil {
		h.logger.Error("proxy request failed", "error", err)
		writeProxyError(w, http.StatusInternalServerError, proxyError{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeProxyError(w, http.StatusInternalServerError, proxyError{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.logger.Error("upstream API error", "status", resp.StatusCode)
		writeProxyError(w, resp.StatusCode, proxyError{
			Error:   "Coze API error",
			Status:  resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"data": string(body)})
}

func writeProxyError(w http.ResponseWriter, status int, e proxyError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(e)
}
