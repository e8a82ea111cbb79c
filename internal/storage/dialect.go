package storage

import (
	"github.com/Masterminds/squirrel"

	"starload/internal/ddl"
)

// Dialect is what the backend-agnostic SQL in this module needs to know
// about a backend: its placeholder style and identifier quoting.
type Dialect struct {
	Kind        string
	Placeholder squirrel.PlaceholderFormat
	Quote       ddl.Quoter
}

var (
	Postgres = Dialect{Kind: "postgres", Placeholder: squirrel.Dollar, Quote: ddl.DoubleQuote}
	MSSQL    = Dialect{Kind: "mssql", Placeholder: squirrel.AtP, Quote: ddl.Bracket}
	SQLite   = Dialect{Kind: "sqlite", Placeholder: squirrel.Question, Quote: ddl.DoubleQuote}
	MySQL    = Dialect{Kind: "mysql", Placeholder: squirrel.Question, Quote: ddl.Backtick}
)

// QuoteIdent quotes a single column or table name.
func (d Dialect) QuoteIdent(id string) string { return d.Quote.Ident(id) }

// QuoteFQN quotes a possibly schema-qualified table name.
func (d Dialect) QuoteFQN(name string) string { return d.Quote.FQN(name) }

// Builder returns a squirrel statement builder using the dialect's
// placeholders.
func (d Dialect) Builder() squirrel.StatementBuilderType {
	ph := d.Placeholder
	if ph == nil {
		ph = squirrel.Question
	}
	return squirrel.StatementBuilder.PlaceholderFormat(ph)
}
