// Package schema declares the per-table rule sets of the warehouse: which
// columns a destination expects, how each column is defaulted, coerced and
// cased, which columns must be non-negative, the de-duplication key, and the
// foreign keys checked before a fact table is appended.
//
// Rule sets are plain data; internal/transformer interprets them and
// internal/storage uses the key and reference declarations.
package schema

import (
	"fmt"
	"strings"
)

// Type is the logical type of a column.
type Type string

const (
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeMoney  Type = "money"
	TypeString Type = "string"
	TypeDate   Type = "date"
)

// Numeric reports whether values of t are parsed as numbers.
func (t Type) Numeric() bool {
	return t == TypeInt || t == TypeFloat || t == TypeMoney
}

// Case is the casing normalization applied to string columns.
type Case string

const (
	CaseNone  Case = ""
	CaseLower Case = "lower"
	CaseUpper Case = "upper"
	CaseTitle Case = "title"
)

// Kind tells dimensions apart from facts.
type Kind string

const (
	KindDimension Kind = "dimension"
	KindFact      Kind = "fact"
)

// DefaultDateLayout is used when a date column does not declare one.
const DefaultDateLayout = "2006-01-02"

// Column is the rule set for one destination column.
type Column struct {
	Name string
	Type Type

	// Default replaces missing or blank cells and, for numeric columns, values
	// that do not parse. A nil Default on a numeric column means zero; on a
	// date column it means NULL.
	Default any

	// Case and Trim apply to string columns only.
	Case Case
	Trim bool

	// NonNegative drops rows whose coerced value is below zero.
	NonNegative bool

	// Ensure adds the column with Default when the input lacks it.
	Ensure bool

	// Layout is the time layout for date columns.
	Layout string

	Nullable bool
}

// DateLayout returns the column's layout or DefaultDateLayout.
func (c Column) DateLayout() string {
	if c.Layout != "" {
		return c.Layout
	}
	return DefaultDateLayout
}

// Reference is a foreign key checked in-process before a load.
type Reference struct {
	Column    string
	Table     string
	RefColumn string
}

func (r Reference) String() string {
	return fmt.Sprintf("%s->%s.%s", r.Column, r.Table, r.RefColumn)
}

// Table is the rule set for one destination table.
type Table struct {
	Name       string
	Kind       Kind
	Columns    []Column
	Key        []string
	References []Reference

	// Dedup picks the surviving row among rows sharing Key; empty means
	// DedupKeepLast. PreferFields weigh more under DedupMostComplete.
	Dedup        DedupPolicy
	PreferFields []string
}

// DedupPolicy names a duplicate-key resolution.
type DedupPolicy string

const (
	DedupKeepLast     DedupPolicy = "keep-last"
	DedupKeepFirst    DedupPolicy = "keep-first"
	DedupMostComplete DedupPolicy = "most-complete"
)

// Valid reports whether p is empty or a known policy.
func (p DedupPolicy) Valid() bool {
	switch p {
	case "", DedupKeepLast, DedupKeepFirst, DedupMostComplete:
		return true
	}
	return false
}

// EffectiveDedup returns the policy in force for t.
func (t Table) EffectiveDedup() DedupPolicy {
	if t.Dedup == "" {
		return DedupKeepLast
	}
	return t.Dedup
}

// ColumnNames returns the destination columns in declaration order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks a column up by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks the rule set for internal consistency.
func (t Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("schema: table name is required")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("schema: %s: at least one column is required", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("schema: %s: column with empty name", t.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("schema: %s: duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = struct{}{}
		switch c.Type {
		case TypeInt, TypeFloat, TypeMoney, TypeString, TypeDate:
		default:
			return fmt.Errorf("schema: %s.%s: unknown type %q", t.Name, c.Name, c.Type)
		}
		if c.NonNegative && !c.Type.Numeric() {
			return fmt.Errorf("schema: %s.%s: non-negative check on non-numeric column", t.Name, c.Name)
		}
	}
	for _, k := range t.Key {
		if _, ok := seen[k]; !ok {
			return fmt.Errorf("schema: %s: key column %q is not declared", t.Name, k)
		}
	}
	if !t.Dedup.Valid() {
		return fmt.Errorf("schema: %s: unknown dedup policy %q", t.Name, t.Dedup)
	}
	for _, f := range t.PreferFields {
		if _, ok := seen[f]; !ok {
			return fmt.Errorf("schema: %s: prefer field %q is not declared", t.Name, f)
		}
	}
	for _, r := range t.References {
		if _, ok := seen[r.Column]; !ok {
			return fmt.Errorf("schema: %s: reference column %q is not declared", t.Name, r.Column)
		}
		if r.Table == "" || r.RefColumn == "" {
			return fmt.Errorf("schema: %s: reference %s is incomplete", t.Name, r)
		}
	}
	return nil
}
