package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hotelops/staffxp/internal/app/engagement"
	"github.com/hotelops/staffxp/internal/domain"
	"github.com/hotelops/staffxp/internal/infra/metrics"
)

// ─── Actions ────────────────────────────────────────────────────────────────

// actionRequest is the body of POST /api/users/{userID}/actions.
type actionRequest struct {
	Kind       string     `json:"kind" validate:"required"`
	Score      *float64   `json:"score" validate:"omitempty,gte=0,lte=100"`
	OccurredAt *time.Time `json:"occurredAt"`
	ID         string     `json:"id" validate:"omitempty,max=128"`
}

func (s *Server) handlePerformAction(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if s.limiter != nil && !s.limiter.Allow(userID) {
		metrics.RateLimited.Inc()
		s.log.Warn().Str("user", userID).Msg("action rate limit exceeded")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
		return
	}

	var req actionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	kind, err := engagement.ParseActionKind(req.Kind)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	action := domain.Action{ID: req.ID, Kind: kind, Score: req.Score}
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
		action.ID = key
	}
	if req.OccurredAt != nil {
		action.OccurredAt = *req.OccurredAt
	}

	res, err := s.engine.PerformAction(r.Context(), userID, action)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !res.Duplicate {
		s.hub.Broadcast(res)
	}
	writeJSON(w, http.StatusOK, res)
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "gte", "lte":
			msgs = append(msgs, field+" must be between 0 and 100")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// ─── User Views ─────────────────────────────────────────────────────────────

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.GetStats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.engine.GetSummary(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	lvl, err := s.engine.GetLevel(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lvl)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	rank, err := s.engine.GetRank(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rank)
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var (
		badges []domain.BadgeStatus
		err    error
	)
	if cat := r.URL.Query().Get("category"); cat != "" {
		badges, err = s.engine.GetBadgesByCategory(r.Context(), userID, domain.BadgeCategory(cat))
	} else {
		badges, err = s.engine.GetBadges(r.Context(), userID)
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	unlocked := 0
	for _, b := range badges {
		if b.Unlocked {
			unlocked++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"badges":   badges,
		"unlocked": unlocked,
		"total":    s.engine.CatalogView().BadgeCount,
	})
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetChallenges(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ─── Catalog & Leaderboard ──────────────────────────────────────────────────

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.CatalogView())
}

func (s *Server) handleCatalogBadge(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.Badge(chi.URLParam(r, "badgeID"))
	if err != nil || b.Hidden {
		writeError(w, http.StatusNotFound, "badge not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	board, err := s.engine.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": board,
	})
}
