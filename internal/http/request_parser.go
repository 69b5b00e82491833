package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budgeteer/internal/core"
)

const maxJSONBodyBytes = 1 << 20

// ParseListMonth returns the month filter of a transaction listing. The
// listing is only restricted when both year and month are present.
func ParseListMonth(query url.Values) (*core.YearMonth, error) {
	ys := strings.TrimSpace(query.Get("year"))
	ms := strings.TrimSpace(query.Get("month"))
	if ys == "" || ms == "" {
		return nil, nil
	}
	ym, err := parseYearMonth(ys, ms)
	if err != nil {
		return nil, err
	}
	return &ym, nil
}

// ParseSummaryMonth returns the requested month, defaulting each missing
// part to now.
func ParseSummaryMonth(query url.Values, now time.Time) (core.YearMonth, error) {
	ys := strings.TrimSpace(query.Get("year"))
	if ys == "" {
		ys = strconv.Itoa(now.Year())
	}
	ms := strings.TrimSpace(query.Get("month"))
	if ms == "" {
		ms = strconv.Itoa(int(now.Month()))
	}
	return parseYearMonth(ys, ms)
}

func parseYearMonth(ys, ms string) (core.YearMonth, error) {
	year, err := strconv.Atoi(ys)
	if err != nil || year < 1 || year > 9999 {
		return core.YearMonth{}, &core.ValidationError{Field: "year", Err: core.ErrInvalidDate}
	}
	month, err := strconv.Atoi(ms)
	if err != nil || month < 1 || month > 12 {
		return core.YearMonth{}, &core.ValidationError{Field: "month", Err: core.ErrInvalidMonth}
	}
	return core.YearMonth{Year: year, Month: month}, nil
}

// decodeJSON reads a single JSON value from the request body into v.
// Malformed bodies are parse errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		var ve *core.ValidationError
		switch {
		case errors.As(err, &maxErr), errors.As(err, &ve):
			return err
		case errors.Is(err, io.EOF):
			return &core.ParseError{Err: errors.New("empty request body")}
		default:
			return &core.ParseError{Err: fmt.Errorf("decode request body: %w", err)}
		}
	}
	if dec.More() {
		return &core.ParseError{Err: errors.New("unexpected data after request body")}
	}
	return nil
}

// ParseTransactionPatch decodes a partial update. Absent keys are left
// untouched; an explicit null clears subDescription and category.
func ParseTransactionPatch(fields map[string]json.RawMessage) (core.TransactionPatch, error) {
	var p core.TransactionPatch

	if raw, ok := fields["date"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return p, &core.ValidationError{Field: "date", Err: core.ErrInvalidDate}
		}
		d, err := core.ParseDate(s)
		if err != nil {
			return p, &core.ValidationError{Field: "date", Err: err}
		}
		p.Date = &d
	}

	if raw, ok := fields["description"]; ok {
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil || s == nil || strings.TrimSpace(*s) == "" {
			return p, &core.ValidationError{Field: "description", Err: core.ErrEmptyDescription}
		}
		p.Description = s
	}

	if raw, ok := fields["subDescription"]; ok {
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil {
			return p, &core.ValidationError{Field: "subDescription", Err: err}
		}
		p.SubDescription = &s
	}

	if raw, ok := fields["amount"]; ok {
		var a core.RawAmount
		if err := json.Unmarshal(raw, &a); err != nil {
			return p, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
		}
		m, err := core.ParseNumber(string(a))
		if err != nil {
			return p, &core.ValidationError{Field: "amount", Err: err}
		}
		p.Amount = &m
	}

	if raw, ok := fields["category"]; ok {
		c, err := parseCategory(raw, true)
		if err != nil {
			return p, err
		}
		p.Category = &c
	}

	return p, nil
}

// ParseBudgetPatch decodes a partial budget update. A budget always has a
// category, so null is rejected.
func ParseBudgetPatch(fields map[string]json.RawMessage) (core.BudgetPatch, error) {
	var p core.BudgetPatch

	if raw, ok := fields["category"]; ok {
		c, err := parseCategory(raw, false)
		if err != nil {
			return p, err
		}
		p.Category = &c
	}

	if raw, ok := fields["limit"]; ok {
		var a core.RawAmount
		if err := json.Unmarshal(raw, &a); err != nil || strings.TrimSpace(string(a)) == "" {
			return p, &core.ValidationError{Field: "limit", Err: core.ErrInvalidAmount}
		}
		m, err := core.ParseNumber(string(a))
		if err != nil {
			return p, &core.ValidationError{Field: "limit", Err: err}
		}
		p.Limit = &m
	}

	return p, nil
}

func parseCategory(raw json.RawMessage, nullable bool) (core.Category, error) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return core.Uncategorized, &core.ValidationError{Field: "category", Err: core.ErrUnknownCategory}
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		if nullable {
			return core.Uncategorized, nil
		}
		return core.Uncategorized, &core.ValidationError{Field: "category", Err: core.ErrMissingField}
	}
	c, err := core.ParseCategory(*s)
	if err != nil {
		return core.Uncategorized, &core.ValidationError{Field: "category", Err: err}
	}
	return c, nil
}
