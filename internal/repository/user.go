package repository

import (
	"context"
	"time"

	"github.com/azamatbayne/user-service/internal/domain"
)

// UserRepository is the persistence contract of the lifecycle engine.
// Implementations must make Insert and ConsumeToken safe under concurrent
// access: email and confirmation-token uniqueness are enforced here, not in
// the engine.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByConfirmationToken(ctx context.Context, token string) (*domain.User, error)
	FindByInviter(ctx context.Context, inviterID string) ([]*domain.User, error)

	// Insert persists a new user and assigns its ID. A duplicate email
	// yields domain.ErrEmailUsed.
	Insert(ctx context.Context, u *domain.User) (*domain.User, error)

	Update(ctx context.Context, u *domain.User) error

	// ConsumeToken persists u only if the stored confirmation token still
	// equals token at write time. When another request already consumed it,
	// domain.ErrTokenInvalid is returned and nothing is written. This is
	// what makes concurrent resets exactly-one-wins.
	ConsumeToken(ctx context.Context, u *domain.User, token string) error

	// CountStaleTokens counts users still holding a confirmation token
	// requested before the cutoff. Read-only; expired tokens are never
	// cleaned up automatically.
	CountStaleTokens(ctx context.Context, cutoff time.Time) (int64, error)
}
