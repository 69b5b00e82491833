// Package storage is the SQL store shared by the sqlite and postgres
// backends. Dates are kept as YYYY-MM-DD text and money as integer cents.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budgeteer/internal/core"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) String() string { return string(d) }

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) connString(dsn string) string {
	if d == SQLite && !strings.Contains(dsn, "?") {
		return dsn + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return dsn
}

// rebind rewrites ? placeholders to $n for postgres.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRepository opens (creating if needed) the database file at dbPath
// and applies migrations.
func NewSQLiteRepository(ctx context.Context, dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(ctx, SQLite, dbPath)
}

// NewPostgresRepository connects through the pgx stdlib driver and applies
// migrations.
func NewPostgresRepository(ctx context.Context, dsn string) (*Repository, error) {
	return open(ctx, Postgres, dsn)
}

func open(ctx context.Context, d Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(d.driverName(), d.connString(dsn))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if d == SQLite {
		// one writer at a time avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "Database ready", "dialect", d.String())
	return &Repository{db: db, dialect: d}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Dialect() Dialect { return r.dialect }

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ownedTable is a table whose rows carry an owner_id column.
type ownedTable struct {
	name     string
	resource string
	columns  string
}

// getOwned loads a row only if it belongs to ownerID.
func getOwned[T any](ctx context.Context, r *Repository, q querier, t ownedTable, scan func(rowScanner) (T, error), ownerID, id string) (T, error) {
	query := r.dialect.rebind("SELECT " + t.columns + " FROM " + t.name + " WHERE id = ? AND owner_id = ?")
	v, err := scan(q.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, &core.NotFoundError{Resource: t.resource, ID: id}
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("get %s: %w", t.resource, err)
	}
	return v, nil
}

func (r *Repository) deleteOwned(ctx context.Context, t ownedTable, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind("DELETE FROM "+t.name+" WHERE id = ? AND owner_id = ?"), id, ownerID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.resource, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.resource, err)
	}
	if n == 0 {
		return &core.NotFoundError{Resource: t.resource, ID: id}
	}
	return nil
}

func (r *Repository) deleteAllOwned(ctx context.Context, t ownedTable, ownerID string) (int, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind("DELETE FROM "+t.name+" WHERE owner_id = ?"), ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete all %ss: %w", t.resource, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete all %ss: %w", t.resource, err)
	}
	return int(n), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
