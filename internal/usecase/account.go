package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/azamatbayne/user-service/internal/authz"
	"github.com/azamatbayne/user-service/internal/catalog"
	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/azamatbayne/user-service/internal/email"
	"github.com/azamatbayne/user-service/internal/metrics"
	"github.com/azamatbayne/user-service/internal/password"
	"github.com/azamatbayne/user-service/internal/repository"
	"github.com/go-playground/validator/v10"
)

// Interfaces for collaborators, defined at point of use so tests can inject
// fakes.

type notifier interface {
	Send(ctx context.Context, template, route string, user *domain.User, extra map[string]string) error
}

type tokenSigner interface {
	Encode(u domain.PublicUser) (string, error)
}

type credentialHasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) error
}

type tokenGenerator interface {
	Generate() (string, error)
}

// Options is the immutable feature configuration captured by the engine at
// construction. There is no ambient mutable state.
type Options struct {
	RegistrationsEnabled bool
	ConfirmRegistrations bool
	InviteEnabled        bool
	ForgetEnabled        bool
	ResetTokenTTL        time.Duration
	UsernameRequired     bool
	// DevMode echoes issued confirmation tokens in invite/forget payloads
	// so flows can be exercised without live email delivery.
	DevMode bool
	// WelcomeEmail controls the optional welcome message after
	// direct-activation registration.
	WelcomeEmail bool
}

// Payload is the success result of a lifecycle operation: a message code for
// the boundary layer to render, and an optional token (signed bearer token,
// or an echoed confirmation token in dev mode).
type Payload struct {
	Message catalog.Code
	Token   string
}

// UpdatePatch carries the optional fields of an update call. Empty fields are
// left untouched (sparse patch, not a full replace).
type UpdatePatch struct {
	Email        string
	Password     string
	Name         string
	Username     string
	CustomFields map[string]string
}

// AccountUsecase is the account lifecycle engine. It is stateless between
// calls; all durable state lives in the repository.
type AccountUsecase struct {
	users    repository.UserRepository
	notifier notifier
	signer   tokenSigner
	hasher   credentialHasher
	tokens   tokenGenerator
	policy   *authz.Policy
	opts     Options
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*AccountUsecase)

// WithClock overrides the engine's clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(u *AccountUsecase) { u.now = now }
}

func NewAccountUsecase(
	users repository.UserRepository,
	notifier notifier,
	signer tokenSigner,
	hasher credentialHasher,
	tokens tokenGenerator,
	policy *authz.Policy,
	opts Options,
	logger *slog.Logger,
	options ...Option,
) *AccountUsecase {
	u := &AccountUsecase{
		users:    users,
		notifier: notifier,
		signer:   signer,
		hasher:   hasher,
		tokens:   tokens,
		policy:   policy,
		opts:     opts,
		logger:   logger.With("component", "account_usecase"),
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range options {
		opt(u)
	}
	return u
}

// Register creates a self-service account. In confirm mode the account starts
// disabled and the user receives a confirmation link; otherwise it is active
// immediately and the payload carries a signed bearer token.
func (u *AccountUsecase) Register(ctx context.Context, emailAddr, pw string) (p *Payload, err error) {
	defer u.observe("register", time.Now(), &err)

	if !u.opts.RegistrationsEnabled {
		return nil, domain.ErrRegistrationsDisabled
	}
	if emailAddr == "" || pw == "" {
		return nil, domain.ErrEmailOrPasswordMissing
	}
	if err := u.validate.Var(emailAddr, "email"); err != nil {
		return nil, domain.ErrEmailInvalid
	}
	if err := u.ensureEmailFree(ctx, emailAddr); err != nil {
		return nil, err
	}

	hash, err := u.hasher.Hash(pw)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        emailAddr,
		PasswordHash: hash,
		Enabled:      true,
	}
	user.AddRole(domain.RoleRegistered)

	if u.opts.ConfirmRegistrations {
		if err := u.stampResetToken(user); err != nil {
			return nil, err
		}
		user.Enabled = false
	}

	created, err := u.users.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrEmailUsed) {
			return nil, domain.ErrEmailUsed
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if u.opts.ConfirmRegistrations {
		u.send(ctx, email.TemplateConfirm, email.RouteReset, created,
			map[string]string{"token": *created.ConfirmationToken})
		return &Payload{Message: catalog.RegisterSuccess}, nil
	}

	bearer, err := u.signer.Encode(created.Public())
	if err != nil {
		return nil, fmt.Errorf("sign bearer token: %w", err)
	}
	if u.opts.WelcomeEmail {
		u.send(ctx, email.TemplateWelcome, email.RouteLogin, created, nil)
	}
	return &Payload{Message: catalog.RegisterSuccess, Token: bearer}, nil
}

// Login verifies credentials and returns a signed bearer token. Read-only.
func (u *AccountUsecase) Login(ctx context.Context, emailAddr, pw string) (p *Payload, err error) {
	defer u.observe("login", time.Now(), &err)

	if emailAddr == "" || pw == "" {
		return nil, domain.ErrEmailOrPasswordMissing
	}
	if err := u.validate.Var(emailAddr, "email"); err != nil {
		return nil, domain.ErrEmailInvalid
	}

	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrEmailUnknown
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := u.hasher.Verify(user.PasswordHash, pw); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, domain.ErrPasswordInvalid
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !user.Enabled {
		return nil, domain.ErrAccountDisabled
	}

	bearer, err := u.signer.Encode(user.Public())
	if err != nil {
		return nil, fmt.Errorf("sign bearer token: %w", err)
	}
	return &Payload{Token: bearer}, nil
}

// Invite creates a disabled account on behalf of the principal, with a
// throwaway credential and a confirmation token delivered by email.
func (u *AccountUsecase) Invite(ctx context.Context, principal *domain.Principal, emailAddr string) (p *Payload, err error) {
	defer u.observe("invite", time.Now(), &err)

	if !u.opts.InviteEnabled {
		return nil, domain.ErrInvitationsDisabled
	}
	if principal == nil || !u.policy.IsGranted(principal.Roles, domain.RoleAllowInvite) {
		return nil, domain.ErrInvitationsForbidden
	}
	if emailAddr == "" {
		return nil, domain.ErrEmailMissing
	}
	if err := u.validate.Var(emailAddr, "email"); err != nil {
		return nil, domain.ErrEmailInvalid
	}
	if err := u.ensureEmailFree(ctx, emailAddr); err != nil {
		return nil, err
	}

	// The invited user cannot know this password; they pick their own
	// through the reset flow.
	throwaway, err := u.tokens.Generate()
	if err != nil {
		return nil, err
	}
	hash, err := u.hasher.Hash(throwaway)
	if err != nil {
		return nil, fmt.Errorf("hash placeholder password: %w", err)
	}

	user := &domain.User{
		Email:        emailAddr,
		PasswordHash: hash,
		Enabled:      false,
	}
	user.AddRole(domain.RoleInvited)
	user.SetCustomField(domain.CustomFieldInvitedBy, principal.ID)
	if err := u.stampResetToken(user); err != nil {
		return nil, err
	}

	created, err := u.users.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrEmailUsed) {
			return nil, domain.ErrEmailUsed
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	u.send(ctx, email.TemplateInvite, email.RouteReset, created,
		map[string]string{"token": *created.ConfirmationToken})

	payload := &Payload{Message: catalog.InvitationsSuccess}
	if u.opts.DevMode {
		payload.Token = *created.ConfirmationToken
	}
	return payload, nil
}

// Friends returns the public projection of every user invited by the
// principal.
func (u *AccountUsecase) Friends(ctx context.Context, principal *domain.Principal) (_ []domain.PublicUser, err error) {
	defer u.observe("friends", time.Now(), &err)

	if principal == nil {
		return nil, domain.ErrNotAuthorized
	}

	users, err := u.users.FindByInviter(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("find invited users: %w", err)
	}

	friends := make([]domain.PublicUser, 0, len(users))
	for _, f := range users {
		friends = append(friends, f.Public())
	}
	return friends, nil
}

// Forget issues a fresh reset token for an existing account and emails the
// reset link. The account does not need to be enabled.
func (u *AccountUsecase) Forget(ctx context.Context, emailAddr string) (p *Payload, err error) {
	defer u.observe("forget", time.Now(), &err)

	if !u.opts.ForgetEnabled {
		return nil, domain.ErrForgetDisabled
	}
	if emailAddr == "" {
		return nil, domain.ErrEmailMissing
	}
	if err := u.validate.Var(emailAddr, "email"); err != nil {
		return nil, domain.ErrEmailInvalid
	}

	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrEmailUnknown
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := u.stampResetToken(user); err != nil {
		return nil, err
	}
	if err := u.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	u.send(ctx, email.TemplateForget, email.RouteReset, user,
		map[string]string{"token": *user.ConfirmationToken})

	payload := &Payload{Message: catalog.ForgetSuccess}
	if u.opts.DevMode {
		payload.Token = *user.ConfirmationToken
	}
	return payload, nil
}

// Reset consumes a confirmation token, sets the new password, and enables the
// account. The expiry check never mutates state: an expired token stays in
// storage and keeps failing until a new forget/invite overwrites it.
func (u *AccountUsecase) Reset(ctx context.Context, token, pw string) (p *Payload, err error) {
	defer u.observe("reset", time.Now(), &err)

	if !u.opts.ForgetEnabled {
		return nil, domain.ErrResetDisabled
	}
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}
	if pw == "" {
		return nil, domain.ErrPasswordMissing
	}

	user, err := u.users.FindByConfirmationToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find user by token: %w", err)
	}

	// Requested-at is set iff a token is outstanding; a user without it
	// cannot pass the repository lookup, but guard anyway.
	if user.PasswordResetRequestedAt == nil {
		return nil, domain.ErrTokenInvalid
	}
	// An attempt at exactly requested+TTL still succeeds.
	if u.now().Sub(*user.PasswordResetRequestedAt) > u.opts.ResetTokenTTL {
		return nil, domain.ErrTokenExpired
	}

	hash, err := u.hasher.Hash(pw)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user.Enabled = true
	user.PasswordHash = hash
	user.ConfirmationToken = nil
	user.PasswordResetRequestedAt = nil

	// Conditioned on the token still matching at write time; a concurrent
	// reset that lost the race gets ErrTokenInvalid.
	if err := u.users.ConsumeToken(ctx, user, token); err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("consume token: %w", err)
	}

	bearer, err := u.signer.Encode(user.Public())
	if err != nil {
		return nil, fmt.Errorf("sign bearer token: %w", err)
	}
	return &Payload{Message: catalog.ResetSuccess, Token: bearer}, nil
}

// Update applies a sparse patch to the principal's own account, or to another
// account when the principal holds the admin role. Returns a fresh bearer
// token reflecting any changed claims.
func (u *AccountUsecase) Update(ctx context.Context, principal *domain.Principal, targetID string, patch UpdatePatch) (p *Payload, err error) {
	defer u.observe("update", time.Now(), &err)

	if principal == nil {
		return nil, domain.ErrNotAuthorized
	}

	// Any explicit target id requires the admin role, even the principal's
	// own; self-update is the no-target form.
	id := principal.ID
	if targetID != "" {
		if !u.policy.IsGranted(principal.Roles, domain.RoleAdmin) {
			return nil, domain.ErrNotAuthorized
		}
		id = targetID
	}

	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrEmailUnknown
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if patch.Email != "" && patch.Email != user.Email {
		if err := u.validate.Var(patch.Email, "email"); err != nil {
			return nil, domain.ErrEmailInvalid
		}
		if err := u.ensureEmailFree(ctx, patch.Email); err != nil {
			return nil, err
		}
		user.Email = patch.Email
	}

	if patch.Password != "" {
		hash, err := u.hasher.Hash(patch.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if patch.Username != "" && u.opts.UsernameRequired {
		user.Username = patch.Username
	}

	if patch.Name != "" {
		user.Name = patch.Name
	}

	if patch.CustomFields != nil {
		user.CustomFields = patch.CustomFields
	}

	if err := u.users.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailUsed) {
			return nil, domain.ErrEmailUsed
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	bearer, err := u.signer.Encode(user.Public())
	if err != nil {
		return nil, fmt.Errorf("sign bearer token: %w", err)
	}
	return &Payload{Token: bearer}, nil
}

// stampResetToken issues a fresh confirmation token and request timestamp.
// Both fields move together.
func (u *AccountUsecase) stampResetToken(user *domain.User) error {
	tok, err := u.tokens.Generate()
	if err != nil {
		return err
	}
	now := u.now()
	user.ConfirmationToken = &tok
	user.PasswordResetRequestedAt = &now
	return nil
}

func (u *AccountUsecase) ensureEmailFree(ctx context.Context, emailAddr string) error {
	_, err := u.users.FindByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		return domain.ErrEmailUsed
	case errors.Is(err, domain.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("find user: %w", err)
	}
}

// send dispatches a notification and swallows failures: email delivery is
// best-effort and must never roll back a committed transition.
func (u *AccountUsecase) send(ctx context.Context, template, route string, user *domain.User, extra map[string]string) {
	if err := u.notifier.Send(ctx, template, route, user, extra); err != nil {
		u.logger.ErrorContext(ctx, "notification dispatch failed",
			"template", template, "to", user.Email, "error", err)
	}
}

func (u *AccountUsecase) observe(op string, start time.Time, errp *error) {
	outcome := "success"
	if err := *errp; err != nil {
		if e, ok := domain.AsError(err); ok {
			outcome = kindLabel(e.Kind)
		} else {
			outcome = "internal"
		}
	}
	metrics.OperationsTotal.WithLabelValues(op, outcome).Inc()
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func kindLabel(k domain.Kind) string {
	switch k {
	case domain.KindFeatureDisabled:
		return "feature_disabled"
	case domain.KindInvalidInput:
		return "invalid_input"
	case domain.KindConflict:
		return "conflict"
	case domain.KindNotFound:
		return "not_found"
	case domain.KindUnauthorized:
		return "unauthorized"
	case domain.KindForbidden:
		return "forbidden"
	case domain.KindExpired:
		return "expired"
	default:
		return "unknown"
	}
}
