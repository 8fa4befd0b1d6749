// Package sheet reads uploaded spreadsheets (.xlsx) and delimited text
// (.csv) into a header plus rows of strings.
package sheet

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither .csv nor .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx or .csv")
	// ErrEmpty is returned when a file has no header row.
	ErrEmpty = errors.New("file has no header row")
	// ErrTooLarge is returned when a file exceeds the configured limits.
	ErrTooLarge = errors.New("file exceeds size limits")
)

// Default limits applied when Limits fields are zero.
const (
	DefaultMaxRows    = 20000
	DefaultMaxColumns = 1024
)

// how often the context is polled while reading rows
const ctxCheckEvery = 256

// Limits bounds how much of a file is read.
type Limits struct {
	MaxRows    int
	MaxColumns int
}

func (l Limits) withDefaults() Limits {
	if l.MaxRows <= 0 {
		l.MaxRows = DefaultMaxRows
	}
	if l.MaxColumns <= 0 {
		l.MaxColumns = DefaultMaxColumns
	}
	return l
}

// Table is the parsed content of one file. Header cells are normalised;
// row cells are trimmed but otherwise raw. Every row has len(Header) cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Column returns the index of the first header matching any of names, or -1.
func (t *Table) Column(names ...string) int {
	for _, n := range names {
		for i, h := range t.Header {
			if h == n {
				return i
			}
		}
	}
	return -1
}

// Read parses r according to the extension of name.
func Read(ctx context.Context, name string, r io.Reader, lim Limits) (*Table, error) {
	lim = lim.withDefaults()
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		records, err = readCSV(ctx, r, lim)
	case ".xlsx":
		records, err = readXLSX(ctx, r, lim)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	t, err := build(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	t.Name = name
	return t, nil
}

// Normalize trims, NFC-composes and lower-cases s. A Caser is not safe for
// concurrent use, so one is built per call.
func Normalize(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.Join(strings.Fields(s), " ")
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

func readCSV(ctx context.Context, r io.Reader, lim Limits) ([][]string, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	cr := csv.NewReader(io.MultiReader(strings.NewReader(first), br))
	cr.Comma = sniffComma(first)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := checkRow(ctx, len(out), rec, lim); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// sniffComma picks ';' for exports from locales that use it as the list separator.
func sniffComma(header string) rune {
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

func readXLSX(ctx context.Context, r io.Reader, lim Limits) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		rec, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		if err := checkRow(ctx, len(out), rec, lim); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Error()
}

func checkRow(ctx context.Context, n int, rec []string, lim Limits) error {
	if n%ctxCheckEvery == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	// header row plus MaxRows data rows
	if n > lim.MaxRows {
		return fmt.Errorf("%w: more than %d rows", ErrTooLarge, lim.MaxRows)
	}
	if len(rec) > lim.MaxColumns {
		return fmt.Errorf("%w: row %d has %d columns, limit is %d", ErrTooLarge, n+1, len(rec), lim.MaxColumns)
	}
	return nil
}

func build(records [][]string) (*Table, error) {
	// skip leading blank lines
	for len(records) > 0 && blank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = Normalize(h)
	}
	// trailing empty header cells are spreadsheet padding
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, ErrEmpty
	}

	t := &Table{Header: header}
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make([]string, len(header))
		for j, cell := range rec {
			cell = strings.TrimSpace(cell)
			if j >= len(header) {
				if cell != "" {
					return nil, fmt.Errorf("row %d: value %q outside of any column", i+2, cell)
				}
				continue
			}
			row[j] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
