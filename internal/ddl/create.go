// Package ddl defines a small, backend-agnostic model for SQL DDL and the
// renderer shared by the backend CREATE TABLE builders.
//
// The renderer is parameterised by a Style: how identifiers are quoted and
// whether IF NOT EXISTS is emitted. Backends that need more than that (SQL
// Server has no IF NOT EXISTS) render the column list with Columns and wrap it
// themselves.
//
// ColumnDef.Default is emitted as raw SQL; the caller is responsible for
// safety and dialect correctness.
package ddl

import (
	"fmt"
	"strings"
)

// Style describes the dialect-specific parts of a CREATE TABLE statement.
type Style struct {
	// Name prefixes error messages, e.g. "postgres ddl".
	Name string

	// Quote quotes one identifier segment. Nil emits identifiers verbatim.
	Quote Quoter

	IfNotExists bool
}

func (s Style) prefix() string {
	if s.Name == "" {
		return "ddl"
	}
	return s.Name
}

// Columns validates t and renders its column definitions and trailing PRIMARY
// KEY clause. It also returns the quoted FQN.
//
// A column renders as:
//
//	<Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
// Primary-key columns are always NOT NULL.
func Columns(t TableDef, s Style) (fqn string, cols []string, err error) {
	name := strings.TrimSpace(t.FQN)
	if name == "" {
		return "", nil, fmt.Errorf("%s: table FQN must not be empty", s.prefix())
	}
	if len(t.Columns) == 0 {
		return "", nil, fmt.Errorf("%s: at least one column is required", s.prefix())
	}

	cols = make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		col := strings.TrimSpace(c.Name)
		if col == "" {
			return "", nil, fmt.Errorf("%s: column with empty name in table %s", s.prefix(), name)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", nil, fmt.Errorf("%s: column %s missing SQLType", s.prefix(), col)
		}

		var sb strings.Builder
		sb.WriteString(s.Quote.Ident(col))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}

		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, s.Quote.Ident(col))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	return s.Quote.FQN(name), cols, nil
}

// BuildCreateTableSQL renders a CREATE TABLE statement of the form:
//
//	CREATE TABLE [IF NOT EXISTS] <FQN> (
//	  <col1-def>,
//	  ...,
//	  [PRIMARY KEY (<pk-cols>)]
//	);
func BuildCreateTableSQL(t TableDef, s Style) (string, error) {
	fqn, cols, err := Columns(t, s)
	if err != nil {
		return "", err
	}

	head := "CREATE TABLE "
	if s.IfNotExists {
		head += "IF NOT EXISTS "
	}
	return fmt.Sprintf("%s%s (\n  %s\n);", head, fqn, strings.Join(cols, ",\n  ")), nil
}
