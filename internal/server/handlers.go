package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/services"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/tasks"
)

// Ledger defines the point operations the HTTP API exposes directly.
// Implemented by repositories.PointsLedger.
type Ledger interface {
	Balance(userID string) (int, error)
	ResetIfNeeded(userID string, allowance int) (int, error)
	CreditSignInBonus(userID string, amount int) (bool, error)
}

// APIHandler serves the JSON endpoints backing the browser client.
type APIHandler struct {
	engine tasks.Engine
	ledger Ledger
	opts   tasks.Options
	logger *log.Logger
}

// NewAPIHandler creates the JSON API handler.
func NewAPIHandler(engine tasks.Engine, ledger Ledger, opts tasks.Options, logger *log.Logger) *APIHandler {
	return &APIHandler{
		engine: engine,
		ledger: ledger,
		opts:   opts,
		logger: logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{"/api/rewrite", "/api/extract", "/api/points", "/api/signin", "/health"}
}

// ServeHTTP dispatches to the endpoint handlers.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/rewrite":
		h.handleRewrite(w, r)
	case "/api/extract":
		h.handleExtract(w, r)
	case "/api/points":
		h.handlePoints(w, r)
	case "/api/signin":
		h.handleSignIn(w, r)
	case "/health":
		h.handleHealth(w, r)
	default:
		http.NotFound(w, r)
	}
}

type rewriteRequest struct {
	UserID      string `json:"user_id"`
	Text        string `json:"text"`
	Instruction string `json:"user_input"`
}

func (h *APIHandler) handleRewrite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "only POST requests are allowed")
		return
	}

	var req rewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.engine.Rewrite(r.Context(), nil, req.UserID, req.Text, req.Instruction)
	if err != nil {
		// A rewrite can exist alongside a failed charge; the client
		// shows the content with a billing warning.
		if errors.Is(err, shared.ErrDebitFailed) && result != nil {
			h.logger.Warn("rewrite delivered without charge", "user", req.UserID, "error", err)
			writeJSON(w, http.StatusConflict, map[string]string{
				"content": result.Content,
				"error":   err.Error(),
			})
			return
		}
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"content": result.Content})
}

type extractRequest struct {
	UserID string `json:"user_id"`
	URL    string `json:"url"`
}

func (h *APIHandler) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "only POST requests are allowed")
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	extraction, err := h.engine.Extract(r.Context(), nil, req.UserID, req.URL)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, services.Extraction{Content: extraction.Content, Title: extraction.Title})
}

func (h *APIHandler) handlePoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "only GET requests are allowed")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	// Reading the balance also applies any pending daily reset, so a user
	// opening the page on a new day sees the restored allowance.
	balance, err := h.ledger.ResetIfNeeded(userID, h.opts.DailyAllowance)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"points": balance})
}

type signInRequest struct {
	UserID string `json:"user_id"`
}

func (h *APIHandler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "only POST requests are allowed")
		return
	}

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	credited, err := h.ledger.CreditSignInBonus(req.UserID, h.opts.SignInBonus)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	balance, err := h.ledger.Balance(req.UserID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"awarded": credited,
		"points":  balance,
	})
}

func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeEngineError maps the error taxonomy to HTTP statuses.
func (h *APIHandler) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, shared.ErrUserNotFound):
		status = http.StatusUnauthorized
	case errors.Is(err, shared.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrInsufficientPoints):
		status = http.StatusPaymentRequired
	case errors.Is(err, shared.ErrDebitFailed):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrAPIRequest), errors.Is(err, shared.ErrBadResponse):
		status = http.StatusBadGateway
	}

	if status >= 500 {
		h.logger.Error("request failed", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
