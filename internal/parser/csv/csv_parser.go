// Package csv reads a delimited file into an in-memory records.Table.
//
// The reader follows the conventions warehouse CSV exports are usually
// written against: the first row is the header, empty cells are NULL, short
// rows are padded with NULL, and a row wider than the header is a parse
// error that fails the whole read.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"starload/pkg/records"
)

var (
	// ErrNoHeader is returned for input without a single row.
	ErrNoHeader = errors.New("csv: no header row")
	// ErrParse wraps every malformed-input failure.
	ErrParse = errors.New("csv: parse error")
)

// ctxCheckEvery is how many rows are read between context checks.
const ctxCheckEvery = 1024

// Options configures ReadTable. The zero value reads comma-separated input
// without trimming.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// TrimSpace trims leading/trailing whitespace from each value.
	TrimSpace bool

	// HeaderMap renames source headers to destination columns.
	HeaderMap map[string]string
}

// ReadTable consumes r and returns its header and rows.
//
// On any error the returned table is empty; partial results are never
// returned.
func ReadTable(ctx context.Context, r io.Reader, opt Options) (records.Table, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return records.Table{}, ErrNoHeader
	}
	if err != nil {
		return records.Table{}, fmt.Errorf("%w: header: %v", ErrParse, err)
	}
	headers := normalizeHeaders(h, opt)

	var rows []records.Record
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return records.Table{}, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records.Table{}, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if len(row) > len(headers) {
			line, _ := cr.FieldPos(0)
			return records.Table{}, fmt.Errorf("%w: line %d: expected %d fields, saw %d",
				ErrParse, line, len(headers), len(row))
		}

		rec := make(records.Record, len(headers))
		for i, col := range headers {
			if i >= len(row) {
				rec[col] = nil
				continue
			}
			val := row[i]
			if opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[col] = emptyToNil(val)
		}
		rows = append(rows, rec)
	}

	return records.Table{Columns: headers, Rows: rows}, nil
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders strips the BOM, trims names and applies HeaderMap. Case is
// preserved. Blank names become "Unnamed: N" and repeats get the first free
// ".N" suffix so every column stays addressable.
func normalizeHeaders(h []string, opt Options) []string {
	res := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		if i == 0 {
			col = strings.TrimPrefix(col, "\uFEFF")
		}
		c := strings.TrimSpace(col)
		if m, ok := opt.HeaderMap[c]; ok {
			c = m
		}
		if c == "" {
			c = fmt.Sprintf("Unnamed: %d", i)
		}
		if n := seen[c]; n > 0 {
			base := c
			for ; ; n++ {
				c = fmt.Sprintf("%s.%d", base, n)
				if seen[c] == 0 {
					break
				}
			}
			seen[base] = n + 1
		}
		seen[c]++
		res[i] = c
	}
	return res
}

// Reader adapts ReadTable to parser.TableReader.
type Reader struct{ Options Options }

// ReadTable implements parser.TableReader.
func (rd Reader) ReadTable(ctx context.Context, r io.Reader) (records.Table, error) {
	return ReadTable(ctx, r, rd.Options)
}
