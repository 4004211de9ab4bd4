// Package mysql implements database.DB for MySQL with go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/djb258/client-sub001/internal/database"
	"github.com/djb258/client-sub001/internal/errs"
)

// Driver is a MySQL implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

var _ database.DB = (*Driver)(nil)

// New opens a MySQL connection pool using the provided Config and returns a Driver.
// Multi-statement execution is always enabled so migration scripts run whole.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	dsn, err := scriptDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func scriptDSN(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindConfig, "invalid mysql DSN", err)
	}
	mc.MultiStatements = true
	return mc.FormatDSN(), nil
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Driver() database.Driver { return database.DriverMySQL }

func (d *Driver) ExecScript(ctx context.Context, script string) error {
	if _, err := d.db.ExecContext(ctx, script); err != nil {
		return mapError(err, "exec failed")
	}
	return nil
}

// InspectSchema reads information_schema for the MySQL database named schema.
func (d *Driver) InspectSchema(ctx context.Context, schema string) (*database.Schema, error) {
	const q = `
		SELECT c.table_name,
		       c.column_name,
		       c.data_type,
		       c.is_nullable = 'YES',
		       c.column_default
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema
		 AND t.table_name   = c.table_name
		WHERE c.table_schema = ?
		  AND t.table_type   = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := d.db.QueryContext(ctx, q, schema)
	if err != nil {
		return nil, mapError(err, "failed to inspect schema")
	}
	defer rows.Close()

	out := &database.Schema{Name: schema, Tables: map[string]*database.TableInfo{}}
	for rows.Next() {
		var (
			table string
			def   sql.NullString
		)
		col := &database.ColumnInfo{}
		if err := rows.Scan(&table, &col.Name, &col.DataType, &col.Nullable, &def); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		if def.Valid {
			col.Default = &def.String
		}
		out.AddColumn(table, col)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}
	return out, nil
}

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case 1044, 1045, 1142, 1227: // access denied
		return errs.ErrKindPermissionDenied
	case 1040, 1046, 1049, 1203: // too many connections, unknown database
		return errs.ErrKindConnectionFailed
	default: // 1054 unknown column, 1064 syntax, 1146 no such table
		return errs.ErrKindQueryFailed
	}
}
