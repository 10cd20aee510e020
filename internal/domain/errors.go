package domain

import (
	"errors"

	"github.com/azamatbayne/user-service/internal/catalog"
)

// Kind classifies an operation failure so the transport layer can pick a
// status code without inspecting message text.
type Kind int

const (
	KindFeatureDisabled Kind = iota
	KindInvalidInput
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindExpired
)

// Error is a typed operation failure. Code selects the user-facing message
// from the configured language catalog; Error() exposes only the code so no
// language-specific text leaks into logs or wrapped errors.
type Error struct {
	Kind Kind
	Code catalog.Code
}

func (e *Error) Error() string {
	return string(e.Code)
}

// AsError extracts a typed *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

var (
	ErrRegistrationsDisabled = &Error{Kind: KindFeatureDisabled, Code: catalog.RegistrationsDisabled}
	ErrInvitationsDisabled   = &Error{Kind: KindFeatureDisabled, Code: catalog.InvitationsDisabled}
	ErrForgetDisabled        = &Error{Kind: KindFeatureDisabled, Code: catalog.ForgetDisabled}
	ErrResetDisabled         = &Error{Kind: KindFeatureDisabled, Code: catalog.ResetDisabled}

	ErrEmailMissing           = &Error{Kind: KindInvalidInput, Code: catalog.EmailMissing}
	ErrEmailOrPasswordMissing = &Error{Kind: KindInvalidInput, Code: catalog.EmailOrPasswordMissing}
	ErrPasswordMissing        = &Error{Kind: KindInvalidInput, Code: catalog.PasswordMissing}
	ErrEmailInvalid           = &Error{Kind: KindInvalidInput, Code: catalog.EmailInvalid}
	ErrTokenInvalid           = &Error{Kind: KindInvalidInput, Code: catalog.TokenInvalid}

	ErrEmailUsed = &Error{Kind: KindConflict, Code: catalog.EmailUsed}

	ErrEmailUnknown = &Error{Kind: KindNotFound, Code: catalog.EmailUnknown}

	ErrPasswordInvalid = &Error{Kind: KindUnauthorized, Code: catalog.PasswordInvalid}

	ErrAccountDisabled      = &Error{Kind: KindForbidden, Code: catalog.AccountDisabled}
	ErrInvitationsForbidden = &Error{Kind: KindForbidden, Code: catalog.InvitationsForbidden}
	ErrNotAuthorized        = &Error{Kind: KindForbidden, Code: catalog.NotAuthorized}

	ErrTokenExpired = &Error{Kind: KindExpired, Code: catalog.TokenExpired}
)

// ErrUserNotFound is the repository-level sentinel for missing users. The
// usecase layer translates it into the operation-appropriate typed failure.
var ErrUserNotFound = errors.New("user not found")
