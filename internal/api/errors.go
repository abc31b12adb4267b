package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/campusqa/moderation/internal/auth"
	"github.com/campusqa/moderation/internal/content"
	"github.com/campusqa/moderation/internal/moderation"
	"github.com/campusqa/moderation/internal/report"
	"github.com/campusqa/moderation/internal/resolution"
	"github.com/campusqa/moderation/internal/rules"
	"github.com/campusqa/moderation/internal/suspension"
	"github.com/campusqa/moderation/internal/user"
)

var (
	errForbidden   = errors.New("api: admin access required")
	errRateLimited = errors.New("api: rate limited")
	errInvalidBody = errors.New("api: invalid request body")
)

func mapError(err error) (int, string, string) {
	var rejected *moderation.RejectedError
	switch {
	case errors.As(err, &rejected):
		return http.StatusBadRequest, "CONTENT_REJECTED", rejected.Error()
	case errors.Is(err, moderation.ErrRulesUnavailable):
		return http.StatusServiceUnavailable, "FILTER_UNAVAILABLE", "content filter is temporarily unavailable"
	case errors.Is(err, errInvalidBody),
		errors.Is(err, report.ErrInvalid),
		errors.Is(err, content.ErrInvalid),
		errors.Is(err, rules.ErrInvalidRule):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, resolution.ErrSelfAction):
		return http.StatusBadRequest, "SELF_ACTION", "moderators cannot suspend themselves"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "FORBIDDEN", "admin access required"
	case errors.Is(err, report.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "report not found"
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "content not found"
	case errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "user not found"
	case errors.Is(err, rules.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "word is not restricted"
	case errors.Is(err, report.ErrAlreadyResolved):
		return http.StatusConflict, "ALREADY_RESOLVED", "report has already been resolved"
	case errors.Is(err, rules.ErrDuplicate):
		return http.StatusConflict, "CONFLICT", "word is already restricted"
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

// writeMappedError writes the response for err and logs server errors with
// the request id.
func writeMappedError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var suspended *suspension.SuspendedError
	if errors.As(err, &suspended) {
		writeSuspended(w, suspended)
		return
	}

	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[api] %s failed request_id=%s: %v", op, requestIDFromContext(r.Context()), err)
	}
	writeError(w, status, code, msg)
}

func writeSuspended(w http.ResponseWriter, e *suspension.SuspendedError) {
	body := suspendedError{
		apiError: apiError{
			Status:  "error",
			Code:    "ACCOUNT_SUSPENDED",
			Message: e.Error(),
		},
		Permanent:        e.Permanent,
		RemainingSeconds: int64(e.Remaining / time.Second),
		Reason:           e.Reason,
	}
	if e.EndsAt != nil {
		s := e.EndsAt.UTC().Format(time.RFC3339)
		body.SuspensionEndsAt = &s
	}
	writeJSON(w, http.StatusForbidden, body)
}
