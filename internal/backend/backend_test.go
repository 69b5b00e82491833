package backend

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgeteer/internal/config"
	applog "budgeteer/internal/log"
	sheetsmemory "budgeteer/internal/sheets/memory"
)

func testFactory() Factory {
	return NewFactory(applog.New(applog.Config{Output: &bytes.Buffer{}}))
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "./data/x.db",
		DataDir:      "./seed",
		AMQPURL:      "amqp://localhost",
		AMQPExchange: "ex",
		AMQPQueue:    "q",
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "./data/x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "./seed", cfg.DataDirectory)
	assert.Equal(t, "amqp://localhost", cfg.AMQPURL)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without dsn", Config{Type: PostgresBackend}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
		{"sheets without credentials", Config{Type: MemoryBackend, GoogleSpreadsheetID: "id"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"memory", "sqlite", "postgres"}, GetBackendTypeStrings())
}

func TestCreateBackend_Memory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_users.txt"),
		[]byte("ana@example.com tok-ana\n"), 0o600))

	ctx := context.Background()
	res, err := testFactory().CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: dir})
	require.NoError(t, err)
	defer res.Cleanup()

	u, err := res.Store.UserByToken(ctx, "tok-ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
}

func TestCreateBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "budgeteer.db")

	res, err := testFactory().CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	require.NoError(t, res.Store.Ping(ctx))
	require.NoError(t, res.Cleanup())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCreateBackend_Invalid(t *testing.T) {
	_, err := testFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.Error(t, err)
}

func TestCreatePublisher_Disabled(t *testing.T) {
	p, cleanup, err := testFactory().CreatePublisher(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Nil(t, cleanup)
}

func TestCreateSummaryWriter_DefaultsToMemory(t *testing.T) {
	w, err := testFactory().CreateSummaryWriter(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.IsType(t, &sheetsmemory.Writer{}, w)
}
