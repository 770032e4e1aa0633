package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openrisk-labs/kestrel/internal/auth"
	"github.com/openrisk-labs/kestrel/internal/detector"
	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/metrics"
	"github.com/openrisk-labs/kestrel/internal/repository"
	"github.com/openrisk-labs/kestrel/internal/scoring"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	detector *detector.Detector
	engine   *scoring.Engine
	recorder *metrics.Recorder
	authMgr  *auth.Manager
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, det *detector.Detector, engine *scoring.Engine, recorder *metrics.Recorder, authMgr *auth.Manager, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		detector: det,
		engine:   engine,
		recorder: recorder,
		authMgr:  authMgr,
		version:  version,
	}
}

// DetectFraud handles POST /api/v1/fraud/detect.
func (h *Handler) DetectFraud(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var txn domain.TransactionRecord
	if err := json.NewDecoder(r.Body).Decode(&txn); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if err := txn.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Persist the record; scoring proceeds even if this fails.
	if h.repo != nil {
		if err := h.repo.SaveTransaction(ctx, &txn); err != nil {
			slog.Error("failed to save transaction",
				"transaction_id", txn.TransactionID,
				"error", err,
			)
		}
	}

	outcome, err := h.detector.Evaluate(ctx, &txn)
	if err != nil {
		slog.Error("scoring failed",
			"transaction_id", txn.TransactionID,
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, "scoring failed")
		return
	}

	if h.recorder != nil {
		h.recorder.Record(outcome.IsFraud, float64(outcome.ProcessingTimeMs))
	}

	h.publishOutcome(r, outcome)

	writeJSON(w, http.StatusOK, outcome)
}

// BatchRequest is the request body for POST /api/v1/fraud/detect/batch.
type BatchRequest struct {
	Transactions []*domain.TransactionRecord `json:"transactions"`
}

// DetectBatch handles POST /api/v1/fraud/detect/batch.
func (h *Handler) DetectBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if len(req.Transactions) == 0 {
		writeError(w, r, http.StatusBadRequest, "transactions must not be empty")
		return
	}

	for i, txn := range req.Transactions {
		if txn == nil {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("transactions[%d] is null", i))
			return
		}
		if err := txn.Validate(); err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("transactions[%d]: %v", i, err))
			return
		}
	}

	batch, err := h.detector.EvaluateBatch(ctx, req.Transactions)
	if err != nil {
		var tooLarge *domain.BatchTooLargeError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusBadRequest, tooLarge.Error())
			return
		}
		slog.Error("batch scoring failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "batch scoring failed")
		return
	}

	for _, item := range batch.Results {
		if item.Outcome == nil {
			continue
		}
		if h.recorder != nil {
			h.recorder.Record(item.Outcome.IsFraud, float64(item.Outcome.ProcessingTimeMs))
		}
		h.publishOutcome(r, item.Outcome)
	}

	writeJSON(w, http.StatusOK, batch)
}

// publishOutcome emits the outcome to the event bus, plus an alert for
// elevated tiers. Publish failures are logged, never surfaced to clients.
func (h *Handler) publishOutcome(r *http.Request, outcome *domain.ScoringOutcome) {
	if h.bus == nil {
		return
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		return
	}

	ctx := r.Context()
	if err := h.bus.Publish(ctx, domain.TopicOutcome, payload); err != nil {
		slog.Error("failed to publish outcome",
			"transaction_id", outcome.TransactionID,
			"error", err,
		)
	}

	if outcome.RiskTier == domain.TierHigh || outcome.RiskTier == domain.TierCritical {
		if err := h.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"transaction_id", outcome.TransactionID,
				"error", err,
			)
		}
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// Metrics returns service-level counters.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil {
		writeJSON(w, http.StatusOK, metrics.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, h.recorder.Snapshot())
}

// GetTransaction retrieves a stored transaction by ID.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txnID := chi.URLParam(r, "id")

	if txnID == "" {
		writeError(w, r, http.StatusBadRequest, "transaction id is required")
		return
	}

	if h.repo == nil {
		writeError(w, r, http.StatusServiceUnavailable, "repository not available")
		return
	}

	txn, err := h.repo.GetTransaction(ctx, txnID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "transaction not found")
			return
		}
		slog.Error("failed to get transaction", "id", txnID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to get transaction")
		return
	}

	writeJSON(w, http.StatusOK, txn)
}

// ListSignals returns the extension signals active in the engine.
func (h *Handler) ListSignals(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, r, http.StatusServiceUnavailable, "repository not available")
		return
	}

	signals, err := h.repo.ListSignalConfigs(r.Context())
	if err != nil {
		slog.Error("failed to list signals", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to list signals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"signals": signals,
		"count":   len(signals),
		"loaded":  h.engine.SignalCount(),
	})
}

// CreateSignalRequest is the request body for creating an extension signal.
type CreateSignalRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Expression  string  `json:"expression"`
	Weight      float64 `json:"weight"`
	Reason      string  `json:"reason"`
	Enabled     bool    `json:"enabled"`
}

// CreateSignal validates and persists an extension signal. Signals are
// compiled into the engine at startup, so a restart applies the change.
func (h *Handler) CreateSignal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeError(w, r, http.StatusBadRequest, "id, name, and expression are required")
		return
	}

	sig := &domain.SignalConfig{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Weight:      req.Weight,
		Reason:      req.Reason,
		Enabled:     req.Enabled,
	}

	if err := scoring.ValidateSignal(sig); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid signal: "+err.Error())
		return
	}

	if h.repo == nil {
		writeError(w, r, http.StatusServiceUnavailable, "repository not available")
		return
	}

	if err := h.repo.SaveSignalConfig(ctx, sig); err != nil {
		slog.Error("failed to save signal", "id", sig.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to save signal")
		return
	}

	slog.Info("signal created", "id", sig.ID, "name", sig.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"signal":  sig,
		"message": "Signal created. Restart the service to apply changes.",
	})
}

// TokenRequest is the request body for POST /api/v1/auth/token.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the response for POST /api/v1/auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token issues a bearer token for the configured service account.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if h.authMgr == nil || !h.authMgr.Enabled() {
		writeError(w, r, http.StatusNotFound, "authentication is disabled")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	token, expiresIn, err := h.authMgr.IssueToken(req.Username, req.Password)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse is the envelope for all error replies.
type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:         msg,
		CorrelationID: GetCorrelationID(r.Context()),
	})
}
