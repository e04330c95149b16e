// Package chi is the HTTP transport for the assistant pipeline.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/concierge/internal/domain"
	"github.com/kailas-cloud/concierge/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/concierge/internal/usecase/health"
	"github.com/kailas-cloud/concierge/internal/version"
)

const serviceName = "concierge"

// Error codes returned on the wire.
const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
)

// Server exposes the assistant pipeline over HTTP.
type Server struct {
	assistant *assistant.Service
	health    *healthuc.Service
	logger    *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(a *assistant.Service, h *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{assistant: a, health: h, logger: logger}
}

// Routes registers all handlers on the router.
func (s *Server) Routes(r chirouter.Router) {
	r.Post("/assistant/query", s.handleQuery)
	r.Get("/health", s.handleHealth)
	r.Get("/health/detailed", s.handleHealthDetailed)
	r.Post("/internal/invalidate/{businessID}", s.handleInvalidate)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type queryRequest struct {
	Query       string         `json:"query"`
	BusinessID  string         `json:"business_id"`
	UserContext map[string]any `json:"user_context,omitempty"`
}

// handleQuery serves POST /assistant/query. Malformed input is the only
// condition that yields a non-2xx response; downstream failures are
// absorbed into a best-effort answer.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	ans, err := s.assistant.Answer(r.Context(), req.Query, req.BusinessID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
		s.logger.Error("unexpected pipeline error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  report.Status,
		"service": serviceName,
		"version": version.Version,
		"checks":  report.Checks,
	})
}

func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.health.CheckDetailed(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           report.Status,
		"service":          serviceName,
		"version":          version.Version,
		"checks":           report.Checks,
		"breakers":         report.Breakers,
		"limiter_slots":    report.LimiterSlots,
		"cache_l1_entries": report.CacheL1Entries,
	})
}

// handleInvalidate serves the ingestion data-change signal.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	businessID := chirouter.URLParam(r, "businessID")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "businessID is required")
		return
	}

	removed := s.assistant.Invalidate(r.Context(), businessID)
	writeJSON(w, http.StatusOK, map[string]any{
		"business_id": businessID,
		"removed":     removed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": msg,
	})
}
