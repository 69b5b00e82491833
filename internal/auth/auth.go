// Package auth resolves API bearer tokens to the owning user.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"budgeteer/internal/core"
	"budgeteer/internal/ports"
)

const tokenPrefix = "bgt_"

// NewToken returns a random API token.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return tokenPrefix + hex.EncodeToString(b), nil
}

// HashToken is the form tokens are stored and looked up in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NormalizeEmail validates an address and lowercases it.
func NormalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", &core.ValidationError{Field: "email", Err: core.ErrInvalidEmail}
	}
	return strings.ToLower(addr.Address), nil
}

type Resolver struct {
	users ports.UserStore
}

func NewResolver(users ports.UserStore) *Resolver {
	return &Resolver{users: users}
}

// Resolve maps an Authorization header value to a user. Any failure to
// identify the caller is core.ErrUnauthenticated.
func (r *Resolver) Resolve(ctx context.Context, header string) (core.User, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return core.User{}, core.ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return core.User{}, core.ErrUnauthenticated
	}
	u, err := r.users.UserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrUnauthenticated) || errors.Is(err, core.ErrNotFound) {
			return core.User{}, core.ErrUnauthenticated
		}
		return core.User{}, fmt.Errorf("resolve token: %w", err)
	}
	return u, nil
}

type contextKey string

const userContextKey contextKey = "user"

func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext returns the caller stored by WithUser.
func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userContextKey).(core.User)
	return u, ok && u.ID != ""
}
