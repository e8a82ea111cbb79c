// Package ddl provides MSSQL-specific helpers for generating CREATE TABLE
// statements from the generic ddl.TableDef model.
//
// T-SQL has no CREATE TABLE IF NOT EXISTS, so the statement is wrapped in an
// IF OBJECT_ID(...) IS NULL guard.
package ddl

import (
	"fmt"
	"strings"

	gddl "starload/internal/ddl"
)

var style = gddl.Style{Name: "mssql ddl", Quote: gddl.Bracket}

// BuildCreateTableSQL returns a T-SQL script of the form:
//
//	IF OBJECT_ID(N'[schema].[table]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [schema].[table] (
//	    [col1] TYPE [NOT NULL] [DEFAULT expr],
//	    ...
//	  );
//	END;
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	fqn, cols, err := gddl.Columns(t, style)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		strings.ReplaceAll(fqn, "'", "''"),
		fqn,
		strings.Join(cols, ",\n    "),
	), nil
}
