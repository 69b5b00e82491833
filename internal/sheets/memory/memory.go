// Package memory records exported summaries in process. It backs the worker
// when no spreadsheet is configured and is used by tests.
package memory

import (
	"context"
	"sync"

	"budgeteer/internal/core"
	"budgeteer/internal/ports"
)

var _ ports.SummaryWriter = (*Writer)(nil)

// Write is one recorded WriteSummary call.
type Write struct {
	OwnerID string
	Summary core.MonthlySummary
}

type Writer struct {
	mu     sync.Mutex
	writes []Write
	// Err, when set, is returned by WriteSummary instead of recording.
	Err error
}

func New() *Writer {
	return &Writer{}
}

// WriteSummary implements ports.SummaryWriter
func (w *Writer) WriteSummary(_ context.Context, ownerID string, s core.MonthlySummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.writes = append(w.writes, Write{OwnerID: ownerID, Summary: s})
	return nil
}

// Writes returns every recorded call in order.
func (w *Writer) Writes() []Write {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Write(nil), w.writes...)
}

// Latest returns the most recent summary written for an owner's month.
func (w *Writer) Latest(ownerID string, ym core.YearMonth) (core.MonthlySummary, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.writes) - 1; i >= 0; i-- {
		wr := w.writes[i]
		if wr.OwnerID == ownerID && wr.Summary.Year == ym.Year && wr.Summary.Month == ym.Month {
			return wr.Summary, true
		}
	}
	return core.MonthlySummary{}, false
}
