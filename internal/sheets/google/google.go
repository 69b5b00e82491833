// Package google exports monthly summaries to a Google Sheets spreadsheet,
// one tab per owner and month.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgeteer/internal/core"
	"budgeteer/internal/ports"
)

const (
	defaultPrefix     = "Budget"
	defaultRetryDelay = 2 * time.Second
	writeAttempts     = 3
	// summary tabs never grow past the category list plus the totals block
	clearRange = "A1:E100"
)

var _ ports.SummaryWriter = (*Writer)(nil)

// Options configures New. Exactly one credential source is required unless
// ClientOptions supply their own.
type Options struct {
	SpreadsheetID   string
	SheetPrefix     string
	CredentialsJSON string
	CredentialsFile string
	ClientOptions   []goption.ClientOption
}

type Writer struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
	retryDelay    time.Duration

	mu     sync.Mutex
	sheets map[string]bool // known tab titles
}

// New creates a writer authenticated with a service account.
func New(ctx context.Context, opts Options) (*Writer, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	clientOpts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case opts.CredentialsJSON != "":
		clientOpts = append(clientOpts, goption.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case opts.CredentialsFile != "":
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(data))
	case len(opts.ClientOptions) == 0:
		return nil, errors.New("missing service account credentials")
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets summary writer ready", "spreadsheet_id", opts.SpreadsheetID)
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetPrefix), nil
}

func NewWithService(svc *gsheet.Service, spreadsheetID, prefix string) *Writer {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Writer{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		prefix:        prefix,
		retryDelay:    defaultRetryDelay,
		sheets:        make(map[string]bool),
	}
}

// SheetName returns the tab title for an owner's month, e.g.
// "Budget 2024-01 3f2a9c1d".
func (w *Writer) SheetName(ownerID string, ym core.YearMonth) string {
	name := fmt.Sprintf("%s %s", w.prefix, ym)
	if ownerID != "" {
		short, _, _ := strings.Cut(ownerID, "-")
		name += " " + short
	}
	return name
}

// WriteSummary implements ports.SummaryWriter. The tab is created when
// missing and fully replaced otherwise.
func (w *Writer) WriteSummary(ctx context.Context, ownerID string, s core.MonthlySummary) error {
	if w.svc == nil {
		return errors.New("sheets service not initialized")
	}
	title := w.SheetName(ownerID, core.YearMonth{Year: s.Year, Month: s.Month})

	if err := w.ensureSheet(ctx, title); err != nil {
		return err
	}

	ref := quoteSheet(title)
	err := w.withRetry(ctx, func() error {
		_, err := w.svc.Spreadsheets.Values.Clear(w.spreadsheetID, ref+"!"+clearRange, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", title, err)
	}

	vr := &gsheet.ValueRange{Values: summaryRows(s)}
	err = w.withRetry(ctx, func() error {
		_, err := w.svc.Spreadsheets.Values.Update(w.spreadsheetID, ref+"!A1", vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", title, err)
	}

	slog.DebugContext(ctx, "Summary written to sheet", "sheet", title, "rows", len(vr.Values))
	return nil
}

func (w *Writer) ensureSheet(ctx context.Context, title string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sheets[title] {
		return nil
	}

	var ss *gsheet.Spreadsheet
	err := w.withRetry(ctx, func() error {
		var err error
		ss, err = w.svc.Spreadsheets.Get(w.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			w.sheets[sh.Properties.Title] = true
		}
	}
	if w.sheets[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	err = w.withRetry(ctx, func() error {
		_, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	w.sheets[title] = true
	slog.InfoContext(ctx, "Created summary sheet", "sheet", title)
	return nil
}

// withRetry retries rate limited and server-side failures.
func (w *Writer) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.RetryIf(isRetryable),
		retry.Attempts(writeAttempts),
		retry.Delay(w.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.WarnContext(ctx, "Sheets API call failed, retrying", "attempt", n+1, "error", err)
		}),
	)
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}

func summaryRows(s core.MonthlySummary) [][]any {
	rows := [][]any{
		{"Month", core.YearMonth{Year: s.Year, Month: s.Month}.String()},
		{"Total income", s.TotalIncome.Float64()},
		{"Total expenses", s.TotalExpenses.Float64()},
		{"Net savings", s.NetSavings.Float64()},
		{},
		{"Category", "Limit", "Spent", "Remaining", "% Used"},
	}
	for _, b := range s.CategoryBreakdown {
		rows = append(rows, []any{b.Category, b.Limit.Float64(), b.Spent.Float64(), b.Remaining.Float64(), b.PercentUsed})
	}
	return rows
}

// quoteSheet quotes a tab title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
