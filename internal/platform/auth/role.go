package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
)

// Role is the closed set of account kinds. Every account has exactly one.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleDoctor, RolePatient}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q: %w", s, apperr.ErrValidation)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Capability names an action checked by the services.
type Capability string

const (
	CapReviewRegistrations Capability = "review_registrations"
	CapManageAccounts      Capability = "manage_accounts"
	CapAssignDoctor        Capability = "assign_doctor"
	CapBookAppointment     Capability = "book_appointment"
	CapBookForAnyPatient   Capability = "book_for_any_patient"
	CapCancelAppointment   Capability = "cancel_appointment"
	CapDischarge           Capability = "discharge"
	CapReadmit             Capability = "readmit"
	CapViewAllRecords      Capability = "view_all_records"
	CapViewOwnPatients     Capability = "view_own_patients"
	CapSubscribeEvents     Capability = "subscribe_events"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapReviewRegistrations: true,
		CapManageAccounts:      true,
		CapAssignDoctor:        true,
		CapBookAppointment:     true,
		CapBookForAnyPatient:   true,
		CapCancelAppointment:   true,
		CapDischarge:           true,
		CapReadmit:             true,
		CapViewAllRecords:      true,
		CapSubscribeEvents:     true,
	},
	RoleDoctor: {
		CapCancelAppointment: true,
		CapDischarge:         true,
		CapViewOwnPatients:   true,
	},
	RolePatient: {
		CapBookAppointment:   true,
		CapCancelAppointment: true,
	},
}

// Principal is the authenticated identity of a request.
type Principal struct {
	AccountID uuid.UUID `json:"account_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
}

// Can reports whether the principal's role grants the capability.
func (p Principal) Can(c Capability) bool {
	return roleCapabilities[p.Role][c]
}

func (p Principal) IsZero() bool {
	return p.AccountID == uuid.Nil
}

// Require returns ErrPermissionDenied when the principal lacks the capability.
func (p Principal) Require(c Capability) error {
	if p.IsZero() {
		return apperr.ErrUnauthenticated
	}
	if !p.Can(c) {
		return fmt.Errorf("%s may not %s: %w", p.Role, c, apperr.ErrPermissionDenied)
	}
	return nil
}

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal set by JWTMiddleware, or
// ErrUnauthenticated when the request carried none.
func PrincipalFromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok || p.IsZero() {
		return Principal{}, apperr.ErrUnauthenticated
	}
	return p, nil
}
