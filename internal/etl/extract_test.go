package etl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starload/internal/parser/csv"
	"starload/pkg/records"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestExtract(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ok := writeFile(t, dir, "dim-store-csv.csv", "store_id,store_name\n1,Main\n2,\n")
	headerOnly := writeFile(t, dir, "header.csv", "store_id,store_name\n")
	empty := writeFile(t, dir, "empty.csv", "")
	broken := writeFile(t, dir, "broken.csv", "a,b\n1,\"x\n")
	wide := writeFile(t, dir, "wide.csv", "a,b\n1,2,3\n")

	tests := []struct {
		name     string
		path     string
		wantErr  error
		wantRows int
		wantCols []string
	}{
		{name: "reads rows", path: ok, wantRows: 2, wantCols: []string{"store_id", "store_name"}},
		{name: "header only", path: headerOnly, wantRows: 0, wantCols: []string{"store_id", "store_name"}},
		{name: "missing file", path: filepath.Join(dir, "nope.csv"), wantErr: ErrFileNotFound},
		{name: "zero bytes", path: empty, wantErr: ErrEmptyFile},
		{name: "bare quote", path: broken, wantErr: ErrParse},
		{name: "too many fields", path: wide, wantErr: ErrParse},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tbl, err := Extract(context.Background(), tt.path, csv.Options{})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.True(t, tbl.Empty())
				assert.Empty(t, tbl.Columns)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, tbl.Len())
			assert.Equal(t, tt.wantCols, tbl.Columns)
		})
	}
}

func TestExtract_NullCells(t *testing.T) {
	t.Parallel()

	p := writeFile(t, t.TempDir(), "p.csv", "product_id,category\n1,\n")
	tbl, err := Extract(context.Background(), p, csv.Options{})
	require.NoError(t, err)
	assert.Nil(t, tbl.Rows[0]["category"])
	assert.Equal(t, "1", tbl.Rows[0]["product_id"])
}

func TestExtract_Remote(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exports/dim_date.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("DateKey;Year\n20230101;2023\n"))
	}))
	defer srv.Close()

	tbl, err := Extract(context.Background(), srv.URL+"/exports/dim_date.csv", csv.Options{Comma: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"DateKey", "Year"}, tbl.Columns)
	assert.Equal(t, 1, tbl.Len())

	_, err = Extract(context.Background(), srv.URL+"/exports/missing.csv", csv.Options{})
	assert.True(t, errors.Is(err, ErrFileNotFound), "got %v", err)
}

type failingReader struct{ err error }

func (f failingReader) ReadTable(context.Context, io.Reader) (records.Table, error) {
	return records.Table{Columns: []string{"partial"}}, f.err
}

func TestExtract_CustomReader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tsv := writeFile(t, dir, "stores.tsv", "store_id\tstore_name\n1\tMain\n")

	ex := Extractor{Reader: csv.Reader{Options: csv.Options{Comma: '\t'}}}
	tbl, err := ex.Extract(context.Background(), tsv, csv.Options{Comma: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"store_id", "store_name"}, tbl.Columns)
	assert.Equal(t, "Main", tbl.Rows[0]["store_name"])

	for _, tc := range []struct {
		err  error
		want error
	}{
		{csv.ErrNoHeader, ErrEmptyFile},
		{errors.Wrap(csv.ErrParse, "line 3"), ErrParse},
	} {
		tbl, err := Extractor{Reader: failingReader{tc.err}}.Extract(context.Background(), tsv, csv.Options{})
		assert.ErrorIs(t, err, tc.want)
		assert.True(t, tbl.Empty())
	}
}
