package core

import (
	"encoding/json"
	"iter"
	"strings"
)

// Column names of the import schema.
const (
	ColumnDate           = "Date"
	ColumnDescription    = "Description"
	ColumnSubDescription = "Sub-description"
	ColumnAmount         = "Amount"
)

type (
	// RawRow is one imported record before any coercion.
	RawRow struct {
		Date           string
		Description    string
		SubDescription string
		Amount         string
	}

	// TransactionInput is a manually entered or programmatically submitted
	// record.
	TransactionInput struct {
		Date           string    `json:"date"`
		Description    string    `json:"description"`
		SubDescription *string   `json:"subDescription"`
		Amount         RawAmount `json:"amount"`
		Category       *string   `json:"category"`
	}

	// RawAmount holds an amount as the caller sent it, either a JSON number or
	// a numeric string.
	RawAmount string

	// Batch is the result of normalizing imported rows.
	Batch struct {
		Transactions    []Transaction `json:"transactions"`
		AutoCategorized int           `json:"categorizedCount"`
	}
)

func (a *RawAmount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*a = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
	default:
		*a = RawAmount(raw)
	}
	return nil
}

// NormalizeSingle validates a manually entered record. The category is taken
// as given; an absent category stays uncategorized.
func NormalizeSingle(in TransactionInput) (Transaction, error) {
	if strings.TrimSpace(in.Date) == "" {
		return Transaction{}, &ValidationError{Field: "date", Err: ErrMissingField}
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return Transaction{}, &ValidationError{Field: "date", Err: err}
	}
	if strings.TrimSpace(string(in.Amount)) == "" {
		return Transaction{}, &ValidationError{Field: "amount", Err: ErrMissingField}
	}
	amount, err := ParseNumber(string(in.Amount))
	if err != nil {
		return Transaction{}, &ValidationError{Field: "amount", Err: err}
	}

	category := Uncategorized
	if in.Category != nil && strings.TrimSpace(*in.Category) != "" {
		category, err = ParseCategory(*in.Category)
		if err != nil {
			return Transaction{}, &ValidationError{Field: "category", Err: err}
		}
	}

	tx := Transaction{
		Date:           date,
		Description:    strings.TrimSpace(in.Description),
		SubDescription: NormalizeSubDescription(in.SubDescription),
		Amount:         amount,
		Category:       category,
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// NormalizeInputs runs NormalizeSingle over a submitted batch. The first
// failure rejects the batch and carries its 1-based position.
func NormalizeInputs(inputs []TransactionInput) ([]Transaction, error) {
	out := make([]Transaction, 0, len(inputs))
	for i, in := range inputs {
		tx, err := NormalizeSingle(in)
		if err != nil {
			return nil, withRow(err, i+1)
		}
		out = append(out, tx)
	}
	return out, nil
}

// Rows adapts a slice to the row source shape used by PendingTransactions.
func Rows(rows ...RawRow) iter.Seq2[RawRow, error] {
	return func(yield func(RawRow, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// PendingTransactions lazily turns imported rows into categorized
// transactions. Rows with a blank Date or Amount are skipped. Source errors
// are passed through and end the sequence, as does the first row that fails
// validation. The source is consumed once.
func PendingTransactions(rows iter.Seq2[RawRow, error]) iter.Seq2[Transaction, error] {
	return func(yield func(Transaction, error) bool) {
		n := 0
		for row, err := range rows {
			if err != nil {
				yield(Transaction{}, err)
				return
			}
			n++
			if strings.TrimSpace(row.Date) == "" || strings.TrimSpace(row.Amount) == "" {
				continue
			}
			tx, err := normalizeRow(row)
			if err != nil {
				yield(Transaction{}, withRow(err, n))
				return
			}
			if !yield(tx, nil) {
				return
			}
		}
	}
}

// NormalizeBatch collects PendingTransactions. Any failing row rejects the
// whole batch.
func NormalizeBatch(rows iter.Seq2[RawRow, error]) (Batch, error) {
	batch := Batch{Transactions: []Transaction{}}
	for tx, err := range PendingTransactions(rows) {
		if err != nil {
			return Batch{}, err
		}
		if tx.Category != Uncategorized {
			batch.AutoCategorized++
		}
		batch.Transactions = append(batch.Transactions, tx)
	}
	return batch, nil
}

func normalizeRow(row RawRow) (Transaction, error) {
	date, err := ParseDate(row.Date)
	if err != nil {
		return Transaction{}, &ValidationError{Field: "date", Err: err}
	}
	amount, err := ParseAmount(row.Amount)
	if err != nil {
		return Transaction{}, &ValidationError{Field: "amount", Err: err}
	}
	sub := NormalizeSubDescription(&row.SubDescription)
	tx := Transaction{
		Date:           date,
		Description:    strings.TrimSpace(row.Description),
		SubDescription: sub,
		Amount:         amount,
	}
	tx.Category, _ = Categorize(tx.Description, sub)
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func withRow(err error, row int) error {
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{Field: ve.Field, Row: row, Err: ve.Err}
	}
	return err
}
