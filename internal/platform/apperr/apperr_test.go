package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("doctor %s: %w", "x", ErrNotFound), http.StatusNotFound},
		{ErrInvalidStateTransition, http.StatusConflict},
		{ErrNotApproved, http.StatusUnprocessableEntity},
		{ErrInvalidDate, http.StatusBadRequest},
		{ErrDuplicateDischarge, http.StatusConflict},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrValidation, http.StatusBadRequest},
		{ErrSlotTaken, http.StatusConflict},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHTTP_KnownKindKeepsMessage(t *testing.T) {
	err := HTTP(fmt.Errorf("patient is pending: %w", ErrNotApproved))
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if he.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", he.Code)
	}
	if he.Message != "patient is pending: not approved" {
		t.Errorf("unexpected message %v", he.Message)
	}
}

func TestHTTP_UnknownErrorIsHidden(t *testing.T) {
	cause := errors.New("pq: relation does not exist")
	he := HTTP(cause).(*echo.HTTPError)
	if he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", he.Code)
	}
	if he.Message != "internal server error" {
		t.Errorf("cause leaked into message: %v", he.Message)
	}
	if !errors.Is(he.Internal, cause) {
		t.Error("expected cause kept as Internal")
	}
}

func TestHTTP_Nil(t *testing.T) {
	if HTTP(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestKind(t *testing.T) {
	if got := Kind(fmt.Errorf("x: %w", ErrDuplicateDischarge)); got != "duplicate_discharge" {
		t.Errorf("got %q", got)
	}
	if got := Kind(nil); got != "ok" {
		t.Errorf("got %q", got)
	}
	if got := Kind(errors.New("boom")); got != "internal" {
		t.Errorf("got %q", got)
	}
}
