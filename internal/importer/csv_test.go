package importer

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgeteer/internal/core"
)

func collect(t *testing.T, src string) ([]core.RawRow, error) {
	t.Helper()
	var rows []core.RawRow
	for row, err := range ReadCSV(strings.NewReader(src)) {
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func TestReadCSV(t *testing.T) {
	src := "Date,Description,Sub-description,Amount\n" +
		"2024-01-15,Shell gas,,-45.00\n" +
		"\n" +
		"2024-01-16,\"Trader Joe's, Inc\",weekly,-82.10\n"

	rows, err := collect(t, src)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.RawRow{Date: "2024-01-15", Description: "Shell gas", Amount: "-45.00"}, rows[0])
	assert.Equal(t, "Trader Joe's, Inc", rows[1].Description)
	assert.Equal(t, "weekly", rows[1].SubDescription)
}

func TestReadCSV_HeaderTolerance(t *testing.T) {
	src := "\ufeff amount , DESCRIPTION,Account, date\n" +
		"12.50,Coffee,checking,2024-02-01\n"

	rows, err := collect(t, src)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, core.RawRow{Date: "2024-02-01", Description: "Coffee", Amount: "12.50"}, rows[0])
}

func TestReadCSV_FeedsNormalizer(t *testing.T) {
	src := "Date,Description,Sub-description,Amount\n" +
		"2024-01-15,Shell gas,,-45.00\n" +
		",skipped,,\n" +
		"2024-01-20,Paycheck,,2000\n"

	batch, err := core.NormalizeBatch(ReadCSV(strings.NewReader(src)))
	require.NoError(t, err)
	require.Len(t, batch.Transactions, 2)
	assert.Equal(t, core.Gas, batch.Transactions[0].Category)
	assert.Nil(t, batch.Transactions[0].SubDescription)
	assert.Equal(t, int64(-4500), batch.Transactions[0].Amount.Cents)
	assert.Equal(t, 1, batch.AutoCategorized)
}

func TestReadCSV_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"empty input", "", 1},
		{"missing amount column", "Date,Description\n2024-01-01,x\n", 1},
		{"ragged row", "Date,Description,Amount\n2024-01-01,x,1\n2024-01-02,y\n", 3},
		{"bad quoting", "Date,Description,Amount\n2024-01-01,\"x\"y,1\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := collect(t, tt.src)
			var pe *core.ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestReadCSV_RaggedRowRejectsBatch(t *testing.T) {
	src := "Date,Description,Amount\n2024-01-01,Shell,1\n2024-01-02,y\n"
	_, err := core.NormalizeBatch(ReadCSV(strings.NewReader(src)))
	assert.ErrorIs(t, err, csv.ErrFieldCount)
}

func TestReadCSV_StopsEarly(t *testing.T) {
	src := "Date,Description,Amount\n2024-01-01,a,1\n2024-01-02,b,2\n2024-01-03,c,3\n"
	n := 0
	for _, err := range ReadCSV(strings.NewReader(src)) {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestFormatFromFilename(t *testing.T) {
	for name, want := range map[string]Format{
		"jan.csv":      FormatCSV,
		"JAN.CSV":      FormatCSV,
		"export.ofx":   FormatOFX,
		"download.qfx": FormatOFX,
	} {
		got, err := FormatFromFilename(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := FormatFromFilename("statement.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, core.IsValidation(err))
}

func TestRead_UnknownFormat(t *testing.T) {
	for _, err := range Read(strings.NewReader(""), Format("xls")) {
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	}
}
