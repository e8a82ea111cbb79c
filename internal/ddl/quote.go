package ddl

import "strings"

// Quoter quotes a single identifier segment.
type Quoter func(id string) string

// Ident quotes id. A nil Quoter returns id unchanged.
func (q Quoter) Ident(id string) string {
	if q == nil {
		return id
	}
	return q(id)
}

// FQN quotes each dot-separated segment of a possibly schema-qualified name.
// Blank segments are dropped.
func (q Quoter) FQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, q.Ident(p))
	}
	return strings.Join(out, ".")
}

// DoubleQuote is the ANSI quoting used by Postgres and SQLite.
//
//	weird"name -> "weird""name"
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// Bracket is SQL Server quoting.
//
//	weird]id -> [weird]]id]
func Bracket(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// Backtick is MySQL quoting.
func Backtick(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}
