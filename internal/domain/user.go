package domain

import (
	"slices"
	"time"
)

const (
	RoleUser        = "ROLE_USER"
	RoleInvited     = "ROLE_INVITED"
	RoleRegistered  = "ROLE_REGISTERED"
	RoleAllowInvite = "ROLE_ALLOW_INVITE"
	RoleAdmin       = "ROLE_ADMIN"
)

// CustomFieldInvitedBy records which user issued the invitation.
const CustomFieldInvitedBy = "invited_by"

type User struct {
	ID           string
	Email        string
	Name         string
	Username     string
	PasswordHash string
	Roles        []string
	Enabled      bool

	// ConfirmationToken and PasswordResetRequestedAt are set and cleared
	// together: both non-nil while a confirmation or reset is outstanding,
	// both nil in the steady active state.
	ConfirmationToken        *string
	PasswordResetRequestedAt *time.Time

	CustomFields map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddRole appends a role if the user does not already hold it.
func (u *User) AddRole(role string) {
	if !slices.Contains(u.Roles, role) {
		u.Roles = append(u.Roles, role)
	}
}

// SetCustomField sets a single custom field, allocating the map if needed.
func (u *User) SetCustomField(key, value string) {
	if u.CustomFields == nil {
		u.CustomFields = make(map[string]string)
	}
	u.CustomFields[key] = value
}

// PublicUser is the fixed public projection of a user, the only shape that
// ever leaves the service inside signed tokens or response bodies.
type PublicUser struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	Roles   []string `json:"roles"`
	Enabled bool     `json:"enabled"`
}

// Public returns the projection used for token claims and API responses.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:      u.ID,
		Email:   u.Email,
		Roles:   slices.Clone(u.Roles),
		Enabled: u.Enabled,
	}
}

// Principal is the acting identity established upstream from a verified
// bearer token. A nil *Principal means the request is anonymous.
type Principal struct {
	ID    string
	Email string
	Roles []string
}
