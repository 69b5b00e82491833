// Package memory is a process-local store used by tests and the memory
// backend. Data is lost on exit.
package memory

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgeteer/internal/auth"
	"budgeteer/internal/core"
)

// owned is a record table where every lookup is checked against the owner.
// A record of another owner is indistinguishable from a missing one.
type owned[T any] struct {
	resource string
	owner    func(T) string
	rows     map[string]T
}

func newOwned[T any](resource string, owner func(T) string) owned[T] {
	return owned[T]{resource: resource, owner: owner, rows: make(map[string]T)}
}

func (o owned[T]) get(ownerID, id string) (T, error) {
	v, ok := o.rows[id]
	if !ok || o.owner(v) != ownerID {
		var zero T
		return zero, &core.NotFoundError{Resource: o.resource, ID: id}
	}
	return v, nil
}

func (o owned[T]) delete(ownerID, id string) error {
	if _, err := o.get(ownerID, id); err != nil {
		return err
	}
	delete(o.rows, id)
	return nil
}

func (o owned[T]) deleteAll(ownerID string) int {
	n := 0
	for id, v := range o.rows {
		if o.owner(v) == ownerID {
			delete(o.rows, id)
			n++
		}
	}
	return n
}

func (o owned[T]) list(ownerID string, keep func(T) bool) []T {
	var out []T
	for _, v := range o.rows {
		if o.owner(v) == ownerID && (keep == nil || keep(v)) {
			out = append(out, v)
		}
	}
	return out
}

type Store struct {
	mu           sync.Mutex
	transactions owned[core.Transaction]
	budgets      owned[core.Budget]
	users        map[string]core.User // by id
	tokens       map[string]string    // token hash -> user id
	seq          map[string]int64     // insertion order for stable sorting
	next         int64
}

func New() *Store {
	return &Store{
		transactions: newOwned("transaction", func(t core.Transaction) string { return t.OwnerID }),
		budgets:      newOwned("budget", func(b core.Budget) string { return b.OwnerID }),
		users:        make(map[string]core.User),
		tokens:       make(map[string]string),
		seq:          make(map[string]int64),
	}
}

// NewFromFiles returns a store seeded with the users listed in
// base/seed_users.txt, one "email token" pair per line.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_users.txt")) {
		email, token, ok := strings.Cut(line, " ")
		if !ok || strings.TrimSpace(token) == "" {
			return nil, fmt.Errorf("seed user line %q: want \"email token\"", line)
		}
		if _, err := s.addUser(strings.TrimSpace(email), strings.TrimSpace(token)); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", email, err)
		}
	}
	return s, nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) newID() string {
	id := uuid.NewString()
	s.next++
	s.seq[id] = s.next
	return id
}

// FindTransactions implements ports.TransactionStore
func (s *Store) FindTransactions(_ context.Context, ownerID string, r *core.DateRange) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keep func(core.Transaction) bool
	if r != nil {
		keep = func(t core.Transaction) bool { return r.Contains(t.Date) }
	}
	out := s.transactions.list(ownerID, keep)
	slices.SortFunc(out, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(s.seq[b.ID], s.seq[a.ID])
	})
	return nonNil(out), nil
}

func (s *Store) GetTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions.get(ownerID, id)
}

func (s *Store) CreateTransaction(_ context.Context, ownerID string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.newID()
	tx.OwnerID = ownerID
	s.transactions.rows[tx.ID] = tx
	return tx, nil
}

func (s *Store) CreateTransactions(_ context.Context, ownerID string, txs []core.Transaction) (int, error) {
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			if ve, ok := err.(*core.ValidationError); ok {
				ve.Row = i + 1
			}
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		tx.ID = s.newID()
		tx.OwnerID = ownerID
		s.transactions.rows[tx.ID] = tx
	}
	return len(txs), nil
}

func (s *Store) UpdateTransaction(_ context.Context, ownerID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.transactions.get(ownerID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	tx = patch.Apply(tx)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.transactions.rows[id] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions.delete(ownerID, id)
}

func (s *Store) DeleteAllTransactions(_ context.Context, ownerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions.deleteAll(ownerID), nil
}

// FindBudgets implements ports.BudgetStore
func (s *Store) FindBudgets(_ context.Context, ownerID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.budgets.list(ownerID, nil)
	slices.SortFunc(out, func(a, b core.Budget) int { return cmp.Compare(a.Category, b.Category) })
	return nonNil(out), nil
}

func (s *Store) UpsertBudget(_ context.Context, ownerID string, category core.Category, limit core.Money) (core.Budget, error) {
	b := core.Budget{OwnerID: ownerID, Category: category, Limit: limit}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := core.ResolveUpsertKey(ownerID, category)
	if existing, ok := s.budgetByKey(key); ok {
		existing.Limit = limit
		s.budgets.rows[existing.ID] = existing
		return existing, nil
	}
	b.ID = s.newID()
	s.budgets.rows[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, ownerID, id string, patch core.BudgetPatch) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.budgets.get(ownerID, id)
	if err != nil {
		return core.Budget{}, err
	}
	b = patch.Apply(b)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if other, ok := s.budgetByKey(core.ResolveUpsertKey(ownerID, b.Category)); ok && other.ID != id {
		return core.Budget{}, &core.ValidationError{Field: "category", Err: core.ErrBudgetExists}
	}
	s.budgets.rows[id] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgets.delete(ownerID, id)
}

func (s *Store) DeleteAllBudgets(_ context.Context, ownerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgets.deleteAll(ownerID), nil
}

func (s *Store) budgetByKey(key core.BudgetKey) (core.Budget, bool) {
	for _, b := range s.budgets.rows {
		if core.ResolveUpsertKey(b.OwnerID, b.Category) == key {
			return b, true
		}
	}
	return core.Budget{}, false
}

// CreateUser implements ports.UserStore
func (s *Store) CreateUser(_ context.Context, email string) (core.User, string, error) {
	token, err := auth.NewToken()
	if err != nil {
		return core.User{}, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.addUserLocked(email, token)
	if err != nil {
		return core.User{}, "", err
	}
	return u, token, nil
}

func (s *Store) UserByToken(_ context.Context, token string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[auth.HashToken(token)]
	if !ok {
		return core.User{}, core.ErrUnauthenticated
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b core.User) int { return strings.Compare(a.Email, b.Email) })
	return users, nil
}

func (s *Store) addUser(email, token string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, token)
}

func (s *Store) addUserLocked(email, token string) (core.User, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return core.User{}, err
	}
	for _, u := range s.users {
		if u.Email == email {
			return core.User{}, &core.ValidationError{Field: "email", Err: core.ErrUserExists}
		}
	}
	u := core.User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	s.users[u.ID] = u
	s.tokens[auth.HashToken(token)] = u.ID
	return u, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
