// Package importer reads bank statement files into raw rows for
// core.PendingTransactions.
package importer

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"

	"budgeteer/internal/core"
)

type Format string

const (
	FormatCSV Format = "csv"
	FormatOFX Format = "ofx"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// FormatFromFilename picks the format from the file extension. QFX files are
// read as OFX.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".ofx", ".qfx":
		return FormatOFX, nil
	default:
		return "", &core.ValidationError{Field: "file", Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))}
	}
}

// Read returns the rows of r in the given format.
func Read(r io.Reader, f Format) iter.Seq2[core.RawRow, error] {
	switch f {
	case FormatCSV:
		return ReadCSV(r)
	case FormatOFX:
		return ReadOFX(r)
	default:
		return func(yield func(core.RawRow, error) bool) {
			yield(core.RawRow{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f))
		}
	}
}

// ReadFile is Read with the format taken from name.
func ReadFile(r io.Reader, name string) (iter.Seq2[core.RawRow, error], error) {
	f, err := FormatFromFilename(name)
	if err != nil {
		return nil, err
	}
	return Read(r, f), nil
}
