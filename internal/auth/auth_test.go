package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgeteer/internal/core"
	"budgeteer/internal/ports"
)

type fakeUsers struct {
	byHash map[string]core.User
	err    error
}

func (f fakeUsers) CreateUser(context.Context, string) (core.User, string, error) {
	return core.User{}, "", errors.New("not implemented")
}

func (f fakeUsers) UserByToken(_ context.Context, token string) (core.User, error) {
	if f.err != nil {
		return core.User{}, f.err
	}
	u, ok := f.byHash[HashToken(token)]
	if !ok {
		return core.User{}, core.ErrUnauthenticated
	}
	return u, nil
}

func (f fakeUsers) ListUsers(context.Context) ([]core.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]core.User, 0, len(f.byHash))
	for _, u := range f.byHash {
		out = append(out, u)
	}
	return out, nil
}

var _ ports.UserStore = fakeUsers{}

func TestResolver(t *testing.T) {
	token, err := NewToken()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "bgt_"))

	alice := core.User{ID: "u1", Email: "alice@example.com"}
	r := NewResolver(fakeUsers{byHash: map[string]core.User{HashToken(token): alice}})

	got, err := r.Resolve(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	got, err = r.Resolve(context.Background(), "bearer  "+token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic abc", token, "Bearer nope"} {
		_, err := r.Resolve(context.Background(), header)
		assert.ErrorIs(t, err, core.ErrUnauthenticated, header)
	}
}

func TestResolver_StoreFailure(t *testing.T) {
	r := NewResolver(fakeUsers{err: errors.New("db down")})
	_, err := r.Resolve(context.Background(), "Bearer x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrUnauthenticated)
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got)

	_, err = NormalizeEmail("not-an-email")
	assert.ErrorIs(t, err, core.ErrInvalidEmail)
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), core.User{ID: "u1"})
	u, ok := UserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", u.ID)
	assert.NotEqual(t, HashToken("a"), HashToken("b"))
}
