package backend

import (
	"context"
	"fmt"

	"budgeteer/internal/amqp"
	applog "budgeteer/internal/log"
	"budgeteer/internal/ports"
	gsheet "budgeteer/internal/sheets/google"
	sheetsmemory "budgeteer/internal/sheets/memory"
	"budgeteer/internal/storage"
	"budgeteer/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLBackend(ctx, config.Type, func() (*storage.Repository, error) {
			return storage.NewSQLiteRepository(ctx, config.SQLiteDBPath)
		})
	case PostgresBackend:
		return f.createSQLBackend(ctx, config.Type, func() (*storage.Repository, error) {
			return storage.NewPostgresRepository(ctx, config.PostgresDSN)
		})
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, bt BackendType, open func() (*storage.Repository, error)) (*BackendResult, error) {
	repo, err := open()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", bt, err)
	}

	f.logger.InfoContext(ctx, "Initialized SQL backend", "type", bt.String())

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

// CreatePublisher implements Factory.CreatePublisher. A broker that cannot
// be reached is an error; the caller decides whether to continue without it.
func (f *DefaultFactory) CreatePublisher(ctx context.Context, config Config) (ports.ChangePublisher, CleanupFunc, error) {
	if config.AMQPURL == "" {
		f.logger.InfoContext(ctx, "AMQP not configured, ledger changes will not be published")
		return nil, nil, nil
	}

	client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	return client, client.Close, nil
}

// CreateSummaryWriter implements Factory.CreateSummaryWriter.
func (f *DefaultFactory) CreateSummaryWriter(ctx context.Context, config Config) (ports.SummaryWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.InfoContext(ctx, "Google Sheets not configured, summaries are kept in memory")
		return sheetsmemory.New(), nil
	}

	w, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetPrefix:     config.GoogleSummarySheetPrefix,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets summary writer",
		"spreadsheet_id", config.GoogleSpreadsheetID)
	return w, nil
}
