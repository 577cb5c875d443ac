// Package apperr holds the error kinds shared by the workflow services and
// their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Workflow error kinds. Services wrap these with context using %w; callers
// match them with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotApproved            = errors.New("not approved")
	ErrInvalidDate            = errors.New("invalid date")
	ErrDuplicateDischarge     = errors.New("duplicate discharge")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrValidation             = errors.New("validation failed")
	ErrSlotTaken              = errors.New("appointment slot already taken")
	ErrUsernameTaken          = errors.New("username already taken")
	ErrUnauthenticated        = errors.New("invalid credentials")
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrInvalidStateTransition, http.StatusConflict},
	{ErrNotApproved, http.StatusUnprocessableEntity},
	{ErrInvalidDate, http.StatusBadRequest},
	{ErrDuplicateDischarge, http.StatusConflict},
	{ErrPermissionDenied, http.StatusForbidden},
	{ErrValidation, http.StatusBadRequest},
	{ErrSlotTaken, http.StatusConflict},
	{ErrUsernameTaken, http.StatusConflict},
	{ErrUnauthenticated, http.StatusUnauthorized},
}

// Status returns the HTTP status code for err, or 500 when err is not one of
// the known kinds.
func Status(err error) int {
	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// HTTP converts a service error into an echo HTTP error. Known kinds keep
// their message so the caller sees a validation message; anything else is
// reported as a generic server error with the cause kept as Internal for the
// request logger.
func HTTP(err error) error {
	if err == nil {
		return nil
	}
	status := Status(err)
	if status == http.StatusInternalServerError {
		he := echo.NewHTTPError(status, "internal server error")
		he.Internal = err
		return he
	}
	return echo.NewHTTPError(status, err.Error())
}

// Kind returns the name of the error kind, used in logs and metrics labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidStateTransition):
		return "invalid_state_transition"
	case errors.Is(err, ErrNotApproved):
		return "not_approved"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrDuplicateDischarge):
		return "duplicate_discharge"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "internal"
	}
}
