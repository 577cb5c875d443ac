package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/auth"
)

// Usernames follow the rules of the original user model: letters, digits
// and @ . + - _ up to 150 characters.
var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

// LoginObserver records login outcomes. *metrics.Registry implements it.
type LoginObserver interface {
	ObserveLogin(role, outcome string)
}

type Service struct {
	repo   Repository
	hasher *auth.PasswordHasher
	tokens *auth.TokenIssuer
	logins LoginObserver
	logger zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewService(repo Repository, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer, logins LoginObserver, logger zerolog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens, logins: logins, logger: logger}
}

func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username must be 1-150 letters, digits or @.+-_: %w", apperr.ErrValidation)
	}
	return nil
}

// Create registers a login account. Profiles call it inside their signup
// transaction.
func (s *Service) Create(ctx context.Context, username, password string, role auth.Role) (*Account, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("role %q: %w", role, apperr.ErrValidation)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	a := &Account{Username: username, PasswordHash: hash, Role: role}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

// Authenticate checks the credentials against an account of the given role
// and issues a bearer token. Unknown usernames, wrong passwords and role
// mismatches all fail with ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, username, password string, role auth.Role) (*Token, error) {
	a, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		// Keep timing comparable with a real mismatch.
		_, _ = s.hasher.Verify(s.fallbackHash(), password)
		s.observe(role, "unknown_user")
		return nil, fmt.Errorf("login as %s: %w", role, apperr.ErrUnauthenticated)
	}

	ok, err := s.hasher.Verify(a.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.observe(role, "bad_password")
		return nil, fmt.Errorf("login as %s: %w", role, apperr.ErrUnauthenticated)
	}
	if a.Role != role {
		s.observe(role, "wrong_role")
		return nil, fmt.Errorf("login as %s: %w", role, apperr.ErrUnauthenticated)
	}

	signed, exp, err := s.tokens.Issue(a.Principal())
	if err != nil {
		return nil, err
	}
	s.observe(role, "success")
	s.logger.Info().Str("account_id", a.ID.String()).Str("role", string(a.Role)).Msg("login")
	return &Token{Token: signed, ExpiresAt: exp, Role: a.Role, AccountID: a.ID}, nil
}

// ChangePassword replaces the caller's own password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, actor auth.Principal, oldPassword, newPassword string) error {
	if actor.IsZero() {
		return apperr.ErrUnauthenticated
	}
	a, err := s.repo.GetByID(ctx, actor.AccountID)
	if err != nil {
		return err
	}
	ok, err := s.hasher.Verify(a.PasswordHash, oldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("current password does not match: %w", apperr.ErrUnauthenticated)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, a.ID, hash)
}

// ResetPassword sets a new password on any account. Admin only.
func (s *Service) ResetPassword(ctx context.Context, actor auth.Principal, accountID uuid.UUID, newPassword string) error {
	if err := actor.Require(auth.CapManageAccounts); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", accountID.String()).Str("actor_id", actor.AccountID.String()).Msg("password reset")
	return nil
}

func (s *Service) observe(role auth.Role, outcome string) {
	if s.logins != nil {
		s.logins.ObserveLogin(string(role), outcome)
	}
}

func (s *Service) fallbackHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("unused-password-placeholder")
		if err != nil {
			s.logger.Error().Err(err).Msg("build fallback password hash")
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
