package config

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"

	"starload/internal/datasource"
	"starload/internal/datasource/httpds"
	"starload/internal/parser/csv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Manifest is an optional JSON job list that replaces a catalog's default
// chain. Zero-valued fields fall back to the environment configuration.
//
//	{
//	  "catalog":  "vehicle",
//	  "data_dir": "out",
//	  "csv":      { "comma": ";" },
//	  "jobs": [
//	    { "file": "dim_vehicle.csv", "table": "DIM_VEHICLE" },
//	    { "file": "fact_sales.csv",  "table": "FACT_SALES", "header_map": { "Sale ID": "SaleID" } }
//	  ]
//	}
type Manifest struct {
	Catalog string        `json:"catalog"`
	DataDir string        `json:"data_dir,omitempty"`
	CSV     CSVOptions    `json:"csv"`
	Jobs    []ManifestJob `json:"jobs"`
	Runtime Runtime       `json:"runtime"`
}

// ManifestJob binds one input file to a destination table.
type ManifestJob struct {
	Name      string            `json:"name,omitempty"`
	File      string            `json:"file"`
	Table     string            `json:"table"`
	HeaderMap map[string]string `json:"header_map,omitempty"`

	// Dedup overrides the table's duplicate-key policy: keep-last,
	// keep-first or most-complete.
	Dedup string `json:"dedup,omitempty"`
}

// CSVOptions configures the CSV reader for every job in the manifest.
type CSVOptions struct {
	Comma     string `json:"comma,omitempty"`
	TrimSpace *bool  `json:"trim_space,omitempty"`
}

// ReaderOptions converts c to parser options. Values are trimmed unless
// trim_space is false.
func (c CSVOptions) ReaderOptions() csv.Options {
	opt := csv.Options{TrimSpace: true}
	if c.TrimSpace != nil {
		opt.TrimSpace = *c.TrimSpace
	}
	if c.Comma != "" {
		opt.Comma, _ = utf8.DecodeRuneInString(c.Comma)
	}
	return opt
}

// Runtime overrides the ETL_* switches when set.
type Runtime struct {
	BatchSize         int   `json:"batch_size,omitempty"`
	ReferentialChecks *bool `json:"referential_checks,omitempty"`
	AutoCreate        *bool `json:"auto_create,omitempty"`
	Verify            *bool `json:"verify,omitempty"`
}

// Apply copies the manifest's non-zero settings onto e.
func (r Runtime) Apply(e *ETL) {
	if r.BatchSize > 0 {
		e.BatchSize = r.BatchSize
	}
	if r.ReferentialChecks != nil {
		e.ReferentialChecks = *r.ReferentialChecks
	}
	if r.AutoCreate != nil {
		e.AutoCreate = *r.AutoCreate
	}
	if r.Verify != nil {
		e.Verify = *r.Verify
	}
}

// ReadManifest decodes a manifest from r.
func ReadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("config: decode manifest: %w", err)
	}
	return m, nil
}

// LoadManifest reads the manifest at loc, a path or an http(s) URL.
func LoadManifest(ctx context.Context, loc string, client *httpds.Client) (Manifest, error) {
	rc, err := datasource.Resolve(loc, client).Open(ctx)
	if err != nil {
		return Manifest{}, fmt.Errorf("config: open manifest: %w", err)
	}
	defer rc.Close()
	return ReadManifest(rc)
}
