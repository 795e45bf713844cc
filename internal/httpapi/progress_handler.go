package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/focusnest/gamification-engine/internal/apperrors"
	"github.com/focusnest/gamification-engine/internal/metadata"
	"github.com/focusnest/gamification-engine/internal/progress"
)

type progressItemResponse struct {
	ID   string       `json:"id"`
	Data metadata.Map `json:"data"`
}

type putItemRequest struct {
	Data metadata.Map `json:"data"`
}

// RegisterProgressRoutes mounts the progress-item CRUD surface (spec §6).
// Unlike streaks and XP, there is no calculator in front of this data: the
// handlers talk straight to the repository.
func RegisterProgressRoutes(r chi.Router, repo progress.Repository) {
	r.Route("/v1/progress/{progressKey}/items", func(r chi.Router) {
		r.Get("/", listProgressItems(repo))
		r.Delete("/", deleteAllProgressItems(repo))
		r.Put("/{itemID}", putProgressItem(repo))
		r.Delete("/{itemID}", deleteProgressItem(repo))
	})
}

func listProgressItems(repo progress.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		progressKey := chi.URLParam(r, "progressKey")

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		items, err := repo.ListItems(ctx, userID, progressKey)
		if err != nil {
			writeAppError(w, r, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to list progress items", err))
			return
		}

		out := make([]progressItemResponse, 0, len(items))
		for _, item := range items {
			out = append(out, progressItemResponse{ID: item.ID, Data: item.Data})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func putProgressItem(repo progress.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		progressKey := chi.URLParam(r, "progressKey")
		itemID := chi.URLParam(r, "itemID")

		var body putItemRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeAppError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "malformed request body"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		item := progress.Item{ID: itemID, Key: progressKey, Data: metadata.Clean(body.Data)}
		if err := repo.UpsertItem(ctx, userID, progressKey, item); err != nil {
			writeAppError(w, r, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to upsert progress item", err))
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func deleteProgressItem(repo progress.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		progressKey := chi.URLParam(r, "progressKey")
		itemID := chi.URLParam(r, "itemID")

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		if err := repo.DeleteItem(ctx, userID, progressKey, itemID); err != nil {
			if errors.Is(err, progress.ErrNotFound) {
				writeAppError(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "progress item not found", err))
				return
			}
			writeAppError(w, r, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to delete progress item", err))
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func deleteAllProgressItems(repo progress.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		progressKey := chi.URLParam(r, "progressKey")

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		if err := repo.DeleteAll(ctx, userID, progressKey); err != nil {
			writeAppError(w, r, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to delete progress items", err))
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}
