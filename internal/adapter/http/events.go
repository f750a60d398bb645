package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/pipeline"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type subjectKey struct{}

func (s *Server) handleNextEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.runner.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrFetch) {
			writeDetail(w, http.StatusBadGateway, err.Error())
			return
		}
		s.logger.Error("pipeline run failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if events == nil {
		events = []domain.EnrichedEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	subject, _ := r.Context().Value(subjectKey{}).(string)
	s.logger.Debug("listing stored events", "user", subject, "limit", limit)

	events, err := s.events.ListEvents(r.Context(), limit)
	if err != nil {
		s.logger.Error("list events failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if events == nil {
		events = []domain.EnrichedEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// requireToken rejects requests without a valid bearer token and stores the
// token subject in the request context.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		subject, err := s.accounts.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, subject)))
	})
}
