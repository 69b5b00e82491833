package core

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the storage and wire form of a calendar date.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order. Slash and dash numeric forms are read as
// month first.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Mon, 02 Jan 2006",
	"20060102",
}

// ParseDate reads s in ISO-8601 or a common locale form and returns the
// calendar date it names. Time of day and zone are discarded.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, ErrInvalidDate
}

// DateRange is an inclusive time window.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls inside r.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// MonthRange returns the window from the first day of the month at 00:00:00
// to the last day at 23:59:59.
func MonthRange(year, month int) (DateRange, error) {
	if month < 1 || month > 12 {
		return DateRange{}, ErrInvalidMonth
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := from.AddDate(0, 1, -1)
	to := time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, time.UTC)
	return DateRange{From: from, To: to}, nil
}

// YearMonth names a calendar month.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

func (ym YearMonth) Range() (DateRange, error) {
	return MonthRange(ym.Year, ym.Month)
}

// MonthsOf returns the distinct months touched by txs in ascending order.
func MonthsOf(txs ...Transaction) []YearMonth {
	seen := make(map[YearMonth]bool)
	var out []YearMonth
	for _, tx := range txs {
		ym := tx.Date.YearMonth()
		if !seen[ym] {
			seen[ym] = true
			out = append(out, ym)
		}
	}
	slices.SortFunc(out, func(a, b YearMonth) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Month - b.Month
	})
	return out
}
