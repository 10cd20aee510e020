// Package memory holds an in-memory UserRepository. It backs tests and
// DATABASE_URL-less local runs; all uniqueness and token-consumption
// guarantees are provided under a single mutex.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/google/uuid"
)

var errTokenCollision = errors.New("confirmation token collision")

type UserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User // keyed by ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) FindByConfirmationToken(_ context.Context, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ConfirmationToken != nil && *u.ConfirmationToken == token {
			return clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByInviter(_ context.Context, inviterID string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.User
	for _, u := range r.users {
		if u.CustomFields[domain.CustomFieldInvitedBy] == inviterID {
			out = append(out, clone(u))
		}
	}
	return out, nil
}

func (r *UserRepository) Insert(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, domain.ErrEmailUsed
		}
	}
	if r.tokenTaken(u, "") {
		return nil, errTokenCollision
	}

	stored := clone(u)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.users[stored.ID] = stored

	return clone(stored), nil
}

func (r *UserRepository) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if r.tokenTaken(u, u.ID) {
		return errTokenCollision
	}
	stored := clone(u)
	stored.UpdatedAt = time.Now()
	r.users[u.ID] = stored
	return nil
}

// tokenTaken reports whether another user already holds u's confirmation
// token. Mirrors the external store's unique constraint; with 256-bit random
// tokens a hit means the generator is broken.
func (r *UserRepository) tokenTaken(u *domain.User, excludeID string) bool {
	if u.ConfirmationToken == nil {
		return false
	}
	for id, existing := range r.users {
		if id == excludeID {
			continue
		}
		if existing.ConfirmationToken != nil && *existing.ConfirmationToken == *u.ConfirmationToken {
			return true
		}
	}
	return false
}

func (r *UserRepository) ConsumeToken(_ context.Context, u *domain.User, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if current.ConfirmationToken == nil || *current.ConfirmationToken != token {
		return domain.ErrTokenInvalid
	}
	stored := clone(u)
	stored.UpdatedAt = time.Now()
	r.users[u.ID] = stored
	return nil
}

func (r *UserRepository) CountStaleTokens(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, u := range r.users {
		if u.ConfirmationToken != nil && u.PasswordResetRequestedAt != nil &&
			u.PasswordResetRequestedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// Ping satisfies health.Pinger so DATABASE_URL-less local runs still report
// ready.
func (r *UserRepository) Ping(_ context.Context) error {
	return nil
}

// Delete removes a user. Not part of the engine contract; kept for test
// teardown parity with the external repository.
func (r *UserRepository) Delete(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	if u.CustomFields != nil {
		c.CustomFields = maps.Clone(u.CustomFields)
	}
	if u.ConfirmationToken != nil {
		tok := *u.ConfirmationToken
		c.ConfirmationToken = &tok
	}
	if u.PasswordResetRequestedAt != nil {
		ts := *u.PasswordResetRequestedAt
		c.PasswordResetRequestedAt = &ts
	}
	return &c
}
