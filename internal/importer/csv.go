package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"budgeteer/internal/core"
)

var requiredColumns = []string{core.ColumnDate, core.ColumnDescription, core.ColumnAmount}

// ReadCSV reads a headed CSV file lazily. Columns are matched by name,
// ignoring case, order and surrounding whitespace; unknown columns are
// ignored and Sub-description is optional. Structural problems are reported
// as *core.ParseError and end the sequence.
func ReadCSV(r io.Reader) iter.Seq2[core.RawRow, error] {
	return func(yield func(core.RawRow, error) bool) {
		cr := csv.NewReader(r)
		cr.TrimLeadingSpace = true

		header, err := cr.Read()
		if errors.Is(err, io.EOF) {
			yield(core.RawRow{}, &core.ParseError{Line: 1, Err: errors.New("missing header row")})
			return
		}
		if err != nil {
			yield(core.RawRow{}, csvParseError(err))
			return
		}
		idx, err := columnIndex(header)
		if err != nil {
			yield(core.RawRow{}, &core.ParseError{Line: 1, Err: err})
			return
		}

		for {
			rec, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(core.RawRow{}, csvParseError(err))
				return
			}
			row := core.RawRow{
				Date:           field(rec, idx[core.ColumnDate]),
				Description:    field(rec, idx[core.ColumnDescription]),
				SubDescription: field(rec, idx[core.ColumnSubDescription]),
				Amount:         field(rec, idx[core.ColumnAmount]),
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

func columnIndex(header []string) (map[string]int, error) {
	known := []string{core.ColumnDate, core.ColumnDescription, core.ColumnSubDescription, core.ColumnAmount}
	idx := map[string]int{core.ColumnSubDescription: -1}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for _, col := range known {
			if strings.EqualFold(h, col) {
				idx[col] = i
			}
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing column(s): %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func csvParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &core.ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &core.ParseError{Err: err}
}
