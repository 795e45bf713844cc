package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/focusnest/gamification-engine/internal/apperrors"
	"github.com/focusnest/gamification-engine/internal/auth"
	"github.com/focusnest/gamification-engine/internal/streak"
)

const requestTimeout = 8 * time.Second

type streakConfigurationRequest struct {
	StreakID             string `json:"streak_id"`
	EventsRequiredPerDay int    `json:"events_required_per_day"`
	LeewayHours          int    `json:"leeway_hours"`
	FreezeBehavior       string `json:"freeze_behavior"`
}

type calculateStreakRequest struct {
	Configuration      streakConfigurationRequest `json:"configuration"`
	RootCollectionName string                     `json:"rootCollectionName"`
	Timezone           string                     `json:"timezone"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// streakSummaryResponse adds the latent state projection (spec §4.3's
// "no stored state fields" note) alongside the persisted summary.
type streakSummaryResponse struct {
	streak.Summary
	State streak.State `json:"state"`
}

// RegisterStreakRoutes mounts the calculateStreak callable and its
// read-only summary endpoint (spec §6). rootCollection is the Firestore
// root collection the engine's repositories were constructed against; it
// is used to validate the callable's optional rootCollectionName override.
func RegisterStreakRoutes(r chi.Router, orch *streak.Orchestrator, rootCollection string) {
	r.Route("/v1/streaks/{streakKey}", func(r chi.Router) {
		r.Post("/calculate", calculateStreak(orch, rootCollection))
		r.Get("/", getStreakSummary(orch))
	})
}

func calculateStreak(orch *streak.Orchestrator, rootCollection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		streakKey := chi.URLParam(r, "streakKey")

		var body calculateStreakRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeAppError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "malformed request body"))
				return
			}
		}

		if err := validateRootCollection(body.RootCollectionName, rootCollection); err != nil {
			writeAppError(w, r, err)
			return
		}

		cfg := streak.Config{
			StreakKey:            streakKey,
			EventsRequiredPerDay: body.Configuration.EventsRequiredPerDay,
			LeewayHours:          body.Configuration.LeewayHours,
			FreezeBehavior:       streak.FreezeBehavior(body.Configuration.FreezeBehavior),
		}
		if cfg.EventsRequiredPerDay == 0 {
			cfg.EventsRequiredPerDay = 1
		}
		if cfg.FreezeBehavior == "" {
			cfg.FreezeBehavior = streak.FreezeBehaviorNone
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		if _, err := orch.Calculate(ctx, userID, cfg, body.Timezone); err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func getStreakSummary(orch *streak.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		streakKey := chi.URLParam(r, "streakKey")

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		summary, err := orch.ReadSummary(ctx, userID, streakKey)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, streakSummaryResponse{
			Summary: summary,
			State:   streak.ProjectState(summary),
		})
	}
}

func requireUserID(r *http.Request) (string, error) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		if u, ok := auth.UserFromContext(r.Context()); ok {
			userID = u.UserID
		}
	}
	if userID == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "missing user id")
	}
	return userID, nil
}
