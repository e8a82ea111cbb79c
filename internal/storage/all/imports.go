// Package all wires every built-in storage backend into the storage factory.
//
// It exists purely for side effects: importing it runs the init functions of
// each backend, which register their factories and DDL bootstrappers. After
//
//	import _ "starload/internal/storage/all"
//
// storage.New accepts the kinds "postgres", "mssql", "sqlite" and "mysql".
// A binary that needs only a subset can import the backend packages
// individually instead.
package all

import (
	_ "starload/internal/storage/mssql"
	_ "starload/internal/storage/mysql"
	_ "starload/internal/storage/postgres"
	_ "starload/internal/storage/sqlite"
)
