// Package backend builds the storage and integration adapters selected by
// configuration.
package backend

import (
	"context"

	"budgeteer/internal/ports"
)

// CleanupFunc releases resources held by a created backend.
type CleanupFunc func() error

// BackendResult contains the store and its optional cleanup function.
type BackendResult struct {
	Store   ports.Store
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the store selected by config.Type.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreatePublisher connects to the broker. It returns a nil publisher
	// when AMQP is not configured.
	CreatePublisher(ctx context.Context, config Config) (ports.ChangePublisher, CleanupFunc, error)
	// CreateSummaryWriter returns the Google Sheets writer when a
	// spreadsheet is configured and an in-memory writer otherwise.
	CreateSummaryWriter(ctx context.Context, config Config) (ports.SummaryWriter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresDSN string

	// Memory backend specific
	DataDirectory string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSummarySheetPrefix string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
