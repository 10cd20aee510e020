// seed inserts a local admin and a few demo accounts into the dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/azamatbayne/user-service/internal/infrastructure/postgres"
	"github.com/azamatbayne/user-service/internal/password"
	"github.com/azamatbayne/user-service/internal/token"
)

const seedPassword = "changeme"

type accountSpec struct {
	email   string
	roles   []string
	enabled bool
}

var accounts = []accountSpec{
	{"admin@dev.local", []string{domain.RoleRegistered, domain.RoleAdmin}, true},
	{"alice@dev.local", []string{domain.RoleRegistered}, true},
	{"bob@dev.local", []string{domain.RoleRegistered}, true},

	// Awaiting confirmation, carries an outstanding token
	{"pending@dev.local", []string{domain.RoleInvited}, false},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewUserRepository(pool)
	hasher := password.NewHasher()
	tokens := token.NewGenerator()

	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	for _, spec := range accounts {
		user := &domain.User{
			Email:        spec.email,
			PasswordHash: hash,
			Roles:        spec.roles,
			Enabled:      spec.enabled,
		}
		if !spec.enabled {
			raw, err := tokens.Generate()
			if err != nil {
				log.Fatalf("generate token: %v", err)
			}
			now := time.Now()
			user.ConfirmationToken = &raw
			user.PasswordResetRequestedAt = &now
		}

		switch _, err := repo.Insert(ctx, user); {
		case err == nil:
			fmt.Printf("created %s (roles=%v enabled=%v)\n", spec.email, spec.roles, spec.enabled)
		case errors.Is(err, domain.ErrEmailUsed):
			fmt.Printf("skipped %s (already exists)\n", spec.email)
		default:
			log.Fatalf("insert %s: %v", spec.email, err)
		}
	}

	fmt.Printf("\ndone — all accounts use password %q\n", seedPassword)
}
