package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"fincrew/internal/domain"
	"fincrew/internal/usecase"
)

// ChatRouter dispatches one chat turn.
type ChatRouter interface {
	Route(ctx context.Context, req usecase.RouteRequest) (*usecase.RouteResult, error)
}

// HealthSnapshotter reports per-provider availability.
type HealthSnapshotter interface {
	Snapshot() []domain.ProviderHealth
}

// Handler holds the HTTP endpoint implementations.
type Handler struct {
	router ChatRouter
	health HealthSnapshotter
	logger *slog.Logger
}

// NewHandler creates the endpoint handler.
func NewHandler(router ChatRouter, health HealthSnapshotter, logger *slog.Logger) *Handler {
	return &Handler{router: router, health: health, logger: logger}
}

type chatRequest struct {
	Query    string `json:"query"`
	Provider string `json:"provider,omitempty"`
}

type chatResponse struct {
	Response     string `json:"response"`
	ProviderUsed string `json:"provider_used"`
	AgentUsed    string `json:"agent_used"`
	Query        string `json:"query"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind     string `json:"kind"`
	Provider string `json:"provider,omitempty"`
	Message  string `json:"message"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errorDetail{
			Kind:    "bad_request",
			Message: "method not allowed",
		})
		return
	}

	// Limit request body to 1MB to prevent DoS
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		msg := "invalid JSON: " + err.Error()
		if err.Error() == "http: request body too large" {
			msg = "request body too large (max 1MB)"
		}
		writeError(w, http.StatusBadRequest, errorDetail{Kind: "bad_request", Message: msg})
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, errorDetail{Kind: "bad_request", Message: "query is required"})
		return
	}

	result, err := h.router.Route(r.Context(), usecase.RouteRequest{
		Query:      req.Query,
		Provider:   req.Provider,
		Credential: r.Header.Get("X-Api-Key"),
	})
	if err != nil {
		h.writeRouteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:     result.Response,
		ProviderUsed: result.ProviderUsed,
		AgentUsed:    result.AgentUsed,
		Query:        req.Query,
	})
}

// writeRouteError maps routing failures to HTTP status codes.
func (h *Handler) writeRouteError(w http.ResponseWriter, err error) {
	re := domain.RouteErrorOf(err)
	if re == nil {
		h.logger.Error("chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, errorDetail{
			Kind:    string(domain.FailureServerError),
			Message: err.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	switch re.Kind {
	case domain.FailureProviderDown, domain.FailureAllDown:
		status = http.StatusServiceUnavailable
	case domain.FailureNeedsCredential:
		status = http.StatusUnauthorized
	}

	h.logger.Warn("chat request failed",
		"kind", string(re.Kind),
		"provider", re.Provider,
		"error", re.Err,
	)
	writeError(w, status, errorDetail{
		Kind:     string(re.Kind),
		Provider: re.Provider,
		Message:  re.Err.Error(),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type providerStatus struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	ResetTime string `json:"reset_time,omitempty"`
}

func (h *Handler) handleProviders(w http.ResponseWriter, r *http.Request) {
	snapshot := h.health.Snapshot()
	out := make([]providerStatus, 0, len(snapshot))
	for _, p := range snapshot {
		ps := providerStatus{Name: p.Name, State: string(p.State)}
		if !p.ResetTime.IsZero() {
			ps.ResetTime = p.ResetTime.Format(time.RFC3339)
		}
		out = append(out, ps)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail errorDetail) {
	writeJSON(w, status, errorBody{Error: detail})
}
