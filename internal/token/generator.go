// Package token produces opaque single-use confirmation/reset tokens.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// 32 bytes of entropy, hex-encoded to a 64-character string. Uniqueness in
// storage is backed by a constraint on confirmation_token; randomness here is
// the primary defense.
const entropyBytes = 32

type Generator struct{}

func NewGenerator() Generator {
	return Generator{}
}

func (Generator) Generate() (string, error) {
	raw := make([]byte, entropyBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
