// Package transformer interprets a schema.Table rule set as an ordered chain
// of record transforms. One generic routine serves every destination table;
// the per-table behavior lives entirely in the rule set.
package transformer

import (
	"starload/internal/schema"
	"starload/internal/transformer/builtin"
	"starload/pkg/records"
)

// Transformer rewrites or filters a batch of records.
type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// Stats summarizes one Transform call.
type Stats struct {
	Input             int `json:"input"`
	Ensured           int `json:"ensured_columns"`
	Filled            int `json:"filled"`
	Coerced           int `json:"coerced_to_default"`
	DroppedNegative   int `json:"dropped_negative"`
	DroppedDuplicates int `json:"dropped_duplicates"`
	Output            int `json:"output"`
}

// Pipeline is the compiled transform for one table.
type Pipeline struct {
	table schema.Table
}

// ForTable compiles the rule set of t.
func ForTable(t schema.Table) *Pipeline {
	return &Pipeline{table: t}
}

// Transform runs, in order: ensure columns, normalize strings, fill defaults,
// coerce types, drop negatives, de-duplicate by the table's policy. Rows are modified in
// place; the returned table shares them with in.
func (p *Pipeline) Transform(in records.Table) (records.Table, Stats) {
	st := Stats{Input: len(in.Rows)}
	out := records.Table{
		Columns: append([]string(nil), in.Columns...),
		Rows:    in.Rows,
	}

	for _, c := range p.table.Columns {
		if c.Ensure && !out.HasColumn(c.Name) {
			out.AddColumn(c.Name, c.Default)
			st.Ensured++
		}
	}

	var (
		rules    = map[string]builtin.StringRule{}
		defaults = map[string]any{}
		coerce   []schema.Column
		nonNeg   []string
	)
	for _, c := range p.table.Columns {
		if !out.HasColumn(c.Name) {
			continue
		}
		if c.Type == schema.TypeString {
			rules[c.Name] = builtin.StringRule{Trim: c.Trim, Case: c.Case}
		}
		if c.Default != nil {
			defaults[c.Name] = c.Default
		}
		coerce = append(coerce, c)
		if c.NonNegative {
			nonNeg = append(nonNeg, c.Name)
		}
	}

	var key []string
	for _, k := range p.table.Key {
		if out.HasColumn(k) {
			key = append(key, k)
		}
	}

	rows := Chain{
		builtin.Normalize{Rules: rules},
		builtin.FillDefaults{Defaults: defaults, Filled: &st.Filled},
		builtin.Coerce{Columns: coerce, Failed: &st.Coerced},
	}.Apply(out.Rows)

	before := len(rows)
	rows = builtin.NonNegative{Fields: nonNeg}.Apply(rows)
	st.DroppedNegative = before - len(rows)

	// A key with a missing column would key nothing; skip rather than dedup
	// on a partial key.
	if len(key) == len(p.table.Key) {
		before = len(rows)
		rows = builtin.DeDup{
			Keys:         key,
			Policy:       string(p.table.EffectiveDedup()),
			PreferFields: p.table.PreferFields,
		}.Apply(rows)
		st.DroppedDuplicates = before - len(rows)
	}

	out.Rows = rows
	st.Output = len(rows)
	return out, st
}
