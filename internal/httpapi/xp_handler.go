package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/focusnest/gamification-engine/internal/apperrors"
	"github.com/focusnest/gamification-engine/internal/xp"
)

type experienceConfigurationRequest struct {
	ExperienceID string `json:"experience_id"`
}

type calculateExperienceRequest struct {
	Configuration      experienceConfigurationRequest `json:"configuration"`
	RootCollectionName string                          `json:"rootCollectionName"`
	Timezone           string                          `json:"timezone"`
}

// RegisterXPRoutes mounts the calculateExperiencePoints callable and its
// read-only summary endpoint (spec §6). rootCollection is the Firestore
// root collection the engine's repositories were constructed against; it
// is used to validate the callable's optional rootCollectionName override.
func RegisterXPRoutes(r chi.Router, orch *xp.Orchestrator, rootCollection string) {
	r.Route("/v1/experience/{experienceKey}", func(r chi.Router) {
		r.Post("/calculate", calculateExperience(orch, rootCollection))
		r.Get("/", getExperienceSummary(orch))
	})
}

func calculateExperience(orch *xp.Orchestrator, rootCollection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		experienceKey := chi.URLParam(r, "experienceKey")

		var body calculateExperienceRequest
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

		cfg := xp.Config{ExperienceKey: experienceKey}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		if _, err := orch.Calculate(ctx, userID, cfg, body.Timezone); err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func getExperienceSummary(orch *xp.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		experienceKey := chi.URLParam(r, "experienceKey")

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		summary, err := orch.ReadSummary(ctx, userID, experienceKey)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
