package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/focusnest/gamification-engine/internal/apperrors"
)

func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	writeJSON(w, apperrors.ToStatusCode(code), apperrors.ErrorResponse{
		Code:      string(code),
		Message:   err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// validateRootCollection enforces the calculateStreak/calculateExperiencePoints
// callables' optional rootCollectionName override (spec.md §6): this engine
// binds its repositories to a single configured root collection at startup
// rather than re-resolving it per call, so a caller-supplied override that
// doesn't match is rejected rather than silently ignored.
func validateRootCollection(requested, configured string) error {
	if requested == "" || requested == configured {
		return nil
	}
	return apperrors.New(apperrors.CodeInvalidArgument,
		fmt.Sprintf("rootCollectionName %q does not match the configured root collection %q", requested, configured))
}
