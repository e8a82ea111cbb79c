// Package parser defines the contract for turning raw input into a table.
package parser

import (
	"context"
	"io"

	"starload/pkg/records"
)

// TableReader reads a whole input into memory.
type TableReader interface {
	ReadTable(ctx context.Context, r io.Reader) (records.Table, error)
}
