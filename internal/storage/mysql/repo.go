// Package mysql implements a MySQL-backed storage.Repository using
// go-sql-driver/mysql. Appends are multi-row INSERTs built with squirrel,
// committed in one transaction per CopyFrom call.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	mysqldrv "github.com/go-sql-driver/mysql"

	"starload/internal/ddl"
	"starload/internal/storage"
)

// maxPlaceholders is the protocol limit on bind parameters per statement.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	DSN            string
	MaxConns       int
	ConnectTimeout time.Duration
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens the pool and returns a Close function for cleanup.
// parseTime is forced on so DATE columns scan into time.Time.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysqldrv.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}

	connector, err := mysqldrv.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom appends rows to table. Rows are split into as many multi-row
// INSERT statements as the placeholder limit requires; all of them commit
// together.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	stmts, err := insertStatements(table, columns, rows)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	var n int64
	for _, s := range stmts {
		res, err := tx.ExecContext(ctx, s.sql, s.args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

type statement struct {
	sql  string
	args []any
}

func insertStatements(table string, columns []string, rows [][]any) ([]statement, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = ddl.Backtick(c)
	}
	per := maxPlaceholders / len(columns)
	if per < 1 {
		return nil, fmt.Errorf("mysql: %d columns exceed the placeholder limit", len(columns))
	}

	var out []statement
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		b := squirrel.Insert(ddl.Quoter(ddl.Backtick).FQN(table)).Columns(quoted...)
		for _, row := range rows[start:end] {
			if len(row) != len(columns) {
				return nil, fmt.Errorf("mysql: CopyFrom: row length %d != columns length %d", len(row), len(columns))
			}
			b = b.Values(row...)
		}
		q, args, err := b.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}
		out = append(out, statement{sql: q, args: args})
	}
	return out, nil
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string, args ...any) error {
	_, err := r.db.ExecContext(ctx, sqlText, args...)
	return err
}

// Query runs sqlText and returns all rows.
func (r *Repository) Query(ctx context.Context, sqlText string, args ...any) ([][]any, error) {
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	return storage.ScanRows(rows)
}
