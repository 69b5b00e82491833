package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgeteer/internal/amqp"
	"budgeteer/internal/core"
	sheetsmem "budgeteer/internal/sheets/memory"
	"budgeteer/internal/services"
	"budgeteer/internal/storage/memory"
)

type fixture struct {
	store   *memory.Store
	ledger  *services.LedgerService
	writer  *sheetsmem.Writer
	worker  *SummaryWorker
	ownerID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	// the worker's cache is separate from the one the ledger invalidates
	workerSummaries := services.NewSummaryService(store, store, 16, time.Hour)
	writer := sheetsmem.New()
	w := NewSummaryWorker(workerSummaries, store, writer)
	w.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }

	u, _, err := store.CreateUser(context.Background(), "a@example.com")
	require.NoError(t, err)
	return &fixture{
		store:   store,
		ledger:  services.NewLedgerService(store, nil, nil),
		writer:  writer,
		worker:  w,
		ownerID: u.ID,
	}
}

func (f *fixture) add(t *testing.T, date, amount string) {
	t.Helper()
	_, err := f.ledger.Create(context.Background(), f.ownerID, core.TransactionInput{Date: date, Description: "x", Amount: core.RawAmount(amount)})
	require.NoError(t, err)
}

func TestHandleLedgerChanged_ExportsEachMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "2024-01-10", "100")
	f.add(t, "2024-02-10", "-40")

	jan, feb := core.YearMonth{Year: 2024, Month: 1}, core.YearMonth{Year: 2024, Month: 2}
	err := f.worker.HandleLedgerChanged(ctx, amqp.NewLedgerChangedMessage(f.ownerID, []core.YearMonth{jan, feb}, services.ReasonImported))
	require.NoError(t, err)

	got, ok := f.writer.Latest(f.ownerID, jan)
	require.True(t, ok)
	assert.Equal(t, int64(10000), got.TotalIncome.Cents)
	got, ok = f.writer.Latest(f.ownerID, feb)
	require.True(t, ok)
	assert.Equal(t, int64(4000), got.TotalExpenses.Cents)
}

func TestHandleLedgerChanged_RecomputesAfterChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jan := core.YearMonth{Year: 2024, Month: 1}
	msg := amqp.NewLedgerChangedMessage(f.ownerID, []core.YearMonth{jan}, services.ReasonTransactionCreated)

	f.add(t, "2024-01-10", "-10")
	require.NoError(t, f.worker.HandleLedgerChanged(ctx, msg))
	f.add(t, "2024-01-11", "-15")
	require.NoError(t, f.worker.HandleLedgerChanged(ctx, msg))

	got, _ := f.writer.Latest(f.ownerID, jan)
	assert.Equal(t, int64(2500), got.TotalExpenses.Cents)
}

func TestHandleLedgerChanged_NoMonthsMeansCurrent(t *testing.T) {
	f := newFixture(t)
	f.add(t, "2024-03-01", "-5")

	err := f.worker.HandleLedgerChanged(context.Background(), amqp.NewLedgerChangedMessage(f.ownerID, nil, services.ReasonBudgetChanged))
	require.NoError(t, err)

	writes := f.writer.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, 3, writes[0].Summary.Month)
	assert.Equal(t, int64(500), writes[0].Summary.TotalExpenses.Cents)
}

func TestHandleLedgerChanged_WriterFailure(t *testing.T) {
	f := newFixture(t)
	f.writer.Err = errors.New("sheets down")

	err := f.worker.HandleLedgerChanged(context.Background(),
		amqp.NewLedgerChangedMessage(f.ownerID, []core.YearMonth{{Year: 2024, Month: 1}}, services.ReasonImported))
	assert.ErrorContains(t, err, "sheets down")
}

func TestRefreshCurrentMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, _, err := f.store.CreateUser(ctx, "b@example.com")
	require.NoError(t, err)
	f.add(t, "2024-03-02", "-7")

	require.NoError(t, f.worker.RefreshCurrentMonth(ctx))

	mar := core.YearMonth{Year: 2024, Month: 3}
	got, ok := f.writer.Latest(f.ownerID, mar)
	require.True(t, ok)
	assert.Equal(t, int64(700), got.TotalExpenses.Cents)
	_, ok = f.writer.Latest(other.ID, mar)
	assert.True(t, ok)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx, time.Millisecond) }()

	require.Eventually(t, func() bool { return len(f.writer.Writes()) >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
