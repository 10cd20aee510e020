// Package signer turns the public user projection into signed bearer tokens
// and back. The lifecycle engine only encodes; decoding happens upstream in
// the auth middleware to establish the acting principal.
package signer

import (
	"errors"
	"fmt"
	"time"

	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid bearer token")

type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func New(key []byte, ttl time.Duration) *Signer {
	return &Signer{key: key, ttl: ttl, now: time.Now}
}

// Encode signs the public claims of a user with HS256.
func (s *Signer) Encode(u domain.PublicUser) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":     u.ID,
		"email":   u.Email,
		"roles":   u.Roles,
		"enabled": u.Enabled,
		"iat":     now.Unix(),
		"exp":     now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode validates a bearer token and reconstructs the acting principal.
func (s *Signer) Decode(raw string) (*domain.Principal, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)

	p := &domain.Principal{ID: sub, Email: email}
	if raw, ok := claims["roles"].([]any); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				p.Roles = append(p.Roles, role)
			}
		}
	}
	return p, nil
}
