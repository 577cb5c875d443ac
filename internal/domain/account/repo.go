package account

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the account, returning apperr.ErrUsernameTaken when the
	// username is in use under any letter case.
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}
