package etl

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"starload/internal/datasource"
	"starload/internal/datasource/httpds"
	"starload/internal/parser"
	"starload/internal/parser/csv"
	"starload/pkg/records"
)

var (
	// ErrFileNotFound means the input file (or URL) does not exist.
	ErrFileNotFound = errors.New("etl: file not found")
	// ErrEmptyFile means the input has no header row.
	ErrEmptyFile = errors.New("etl: empty file")
	// ErrParse means the input is not valid CSV.
	ErrParse = errors.New("etl: parse error")
	// ErrConnection means the warehouse could not be opened.
	ErrConnection = errors.New("etl: connection failed")
)

// Extractor reads one CSV input into a records.Table.
type Extractor struct {
	// Client fetches http(s) locations; nil uses a default client.
	Client *httpds.Client
	Logger logrus.FieldLogger

	// Reader parses the opened input. nil means a csv.Reader built from the
	// options passed to Extract; a set Reader ignores them.
	Reader parser.TableReader
}

// Extract reads the CSV at path with the default Extractor.
func Extract(ctx context.Context, path string, opt csv.Options) (records.Table, error) {
	return Extractor{}.Extract(ctx, path, opt)
}

// Extract reads the CSV at loc, a local path or an http(s) URL.
//
// Every failure returns an empty table together with ErrFileNotFound,
// ErrEmptyFile or ErrParse, so a caller that ignores the error still sees
// nothing extracted. A header-only file is not an error; it yields the
// columns and no rows.
func (e Extractor) Extract(ctx context.Context, loc string, opt csv.Options) (records.Table, error) {
	log := e.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("file", loc)

	rc, err := datasource.Resolve(loc, e.Client).Open(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Error("extract: file not found")
			return records.Table{}, errors.Wrapf(ErrFileNotFound, "%s", loc)
		}
		log.WithError(err).Error("extract: open failed")
		return records.Table{}, errors.Wrapf(err, "extract %s", loc)
	}
	defer rc.Close()

	rd := e.Reader
	if rd == nil {
		rd = csv.Reader{Options: opt}
	}
	t, err := rd.ReadTable(ctx, rc)
	switch {
	case err == nil:
	case errors.Is(err, csv.ErrNoHeader):
		log.Error("extract: file is empty")
		return records.Table{}, errors.Wrapf(ErrEmptyFile, "%s", loc)
	case errors.Is(err, csv.ErrParse):
		log.WithError(err).Error("extract: parse failed")
		return records.Table{}, errors.Wrapf(ErrParse, "%s: %v", loc, err)
	default:
		log.WithError(err).Error("extract: read failed")
		return records.Table{}, errors.Wrapf(err, "extract %s", loc)
	}

	log.WithField("records", t.Len()).Infof("extracted %d records from %s", t.Len(), loc)
	return t, nil
}
