package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/metrics"
)

const (
	defaultDecisionLimit = 50
	maxDecisionLimit     = 1000
	historyTimeout       = 5 * time.Second
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/status", s.handleStatus)

	if s.history != nil {
		s.router.Get("/decisions", s.handleDecisions)
	}
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status.Status())
}

// handleDecisions returns recorded decisions, newest first. ?limit= caps the
// result at maxDecisionLimit.
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	limit := defaultDecisionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(v, maxDecisionLimit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), historyTimeout)
	defer cancel()

	rows, err := s.history.Recent(ctx, limit)
	if err != nil {
		s.logger.ErrorWithCode(errors.New().Wrap(ErrReadHistory, err)).Msg("Failed to read decision history")
		s.writeError(w, http.StatusInternalServerError, "history_unavailable", "Decision history unavailable")
		return
	}
	if rows == nil {
		rows = []metrics.DecisionSnapshot{}
	}

	s.writeJSON(w, http.StatusOK, rows)
}
