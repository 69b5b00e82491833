package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"budgeteer/internal/auth"
	"budgeteer/internal/core"
)

// CreateUser implements ports.UserStore
func (r *Repository) CreateUser(ctx context.Context, email string) (core.User, string, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return core.User{}, "", err
	}
	token, err := auth.NewToken()
	if err != nil {
		return core.User{}, "", err
	}
	u := core.User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	_, err = r.db.ExecContext(ctx,
		r.dialect.rebind("INSERT INTO users (id, email, token_hash, created_at) VALUES (?, ?, ?, ?)"),
		u.ID, u.Email, auth.HashToken(token), u.CreatedAt.Format(time.RFC3339))
	if isUniqueViolation(err) {
		return core.User{}, "", &core.ValidationError{Field: "email", Err: core.ErrUserExists}
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("insert user: %w", err)
	}
	return u, token, nil
}

func (r *Repository) UserByToken(ctx context.Context, token string) (core.User, error) {
	var (
		u       core.User
		created string
	)
	err := r.db.QueryRowContext(ctx,
		r.dialect.rebind("SELECT id, email, created_at FROM users WHERE token_hash = ?"),
		auth.HashToken(token)).Scan(&u.ID, &u.Email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUnauthenticated
	}
	if err != nil {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return core.User{}, fmt.Errorf("stored created_at %q: %w", created, err)
	}
	return u, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, email, created_at FROM users ORDER BY email")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []core.User{}
	for rows.Next() {
		var (
			u       core.User
			created string
		)
		if err := rows.Scan(&u.ID, &u.Email, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if u.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("stored created_at %q: %w", created, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
