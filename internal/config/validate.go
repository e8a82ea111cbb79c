package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"starload/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// manifest, e.g. "jobs[2].table".
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateManifest lints m against the built-in catalogs. It does not
// mutate m; callers decide whether warnings are fatal.
func ValidateManifest(m Manifest) []Issue {
	var issues []Issue

	cat, ok := schema.Catalog{}, false
	switch strings.TrimSpace(m.Catalog) {
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "catalog",
			Message:  "catalog must not be empty",
		})
	default:
		cat, ok = schema.Lookup(m.Catalog)
		if !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "catalog",
				Message:  fmt.Sprintf("unknown catalog %q; known: %s", m.Catalog, strings.Join(schema.Names(), ", ")),
			})
		}
	}

	issues = append(issues, validateCSV(m.CSV)...)
	issues = append(issues, validateRuntime(m.Runtime)...)

	if len(m.Jobs) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "jobs",
			Message:  "no jobs listed; the catalog's default chain runs",
		})
		return issues
	}
	if !ok {
		return issues
	}
	return append(issues, validateJobs(cat, m.Jobs)...)
}

func validateCSV(c CSVOptions) []Issue {
	if c.Comma == "" {
		return nil
	}
	r, size := utf8.DecodeRuneInString(c.Comma)
	if size != len(c.Comma) || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return []Issue{{
			Severity: SeverityError,
			Path:     "csv.comma",
			Message:  fmt.Sprintf("comma %q must be a single character other than quote or newline", c.Comma),
		}}
	}
	return nil
}

func validateRuntime(r Runtime) []Issue {
	if r.BatchSize < 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		}}
	}
	return nil
}

func validateJobs(cat schema.Catalog, jobs []ManifestJob) []Issue {
	var (
		issues []Issue
		files  = map[string]int{}
		loaded = map[string]bool{}
	)
	for i, j := range jobs {
		path := fmt.Sprintf("jobs[%d]", i)

		if strings.TrimSpace(j.File) == "" {
			issues = append(issues, Issue{SeverityError, path + ".file", "file must not be empty"})
		} else if prev, dup := files[j.File]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".file",
				Message:  fmt.Sprintf("file %q is also loaded by jobs[%d]; rows will be appended twice", j.File, prev),
			})
		} else {
			files[j.File] = i
		}

		if strings.TrimSpace(j.Table) == "" {
			issues = append(issues, Issue{SeverityError, path + ".table", "table must not be empty"})
			continue
		}
		tbl, ok := cat.Table(j.Table)
		if !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".table",
				Message:  fmt.Sprintf("catalog %s has no table %q", cat.Name, j.Table),
			})
			continue
		}

		for _, ref := range tbl.References {
			if !loaded[ref.Table] && jobsLoad(jobs[i+1:], ref.Table) {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     path + ".table",
					Message:  fmt.Sprintf("%s is loaded before %s; its rows will be rejected by %s", j.Table, ref.Table, ref),
				})
			}
		}
		loaded[j.Table] = true

		if !schema.DedupPolicy(j.Dedup).Valid() {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".dedup",
				Message:  fmt.Sprintf("unknown dedup policy %q; use keep-last, keep-first or most-complete", j.Dedup),
			})
		}

		for src, dst := range j.HeaderMap {
			if _, ok := tbl.Column(dst); !ok {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     fmt.Sprintf("%s.header_map[%s]", path, src),
					Message:  fmt.Sprintf("%q is not a column of %s", dst, j.Table),
				})
			}
		}
	}
	return issues
}

func jobsLoad(jobs []ManifestJob, table string) bool {
	for _, j := range jobs {
		if j.Table == table {
			return true
		}
	}
	return false
}
