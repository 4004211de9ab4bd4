// Package postgres implements database.DB for PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/djb258/client-sub001/internal/database"
	"github.com/djb258/client-sub001/internal/errs"
)

// Driver is a PostgreSQL implementation of database.DB backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool *pgxpool.Pool
}

var _ database.DB = (*Driver)(nil)

// New connects to PostgreSQL using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfig, "invalid postgres DSN", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}

	d := &Driver{pool: pool}
	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return d, nil
}

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (d *Driver) Close() {
	d.pool.Close()
}

func (d *Driver) Driver() database.Driver { return database.DriverPostgres }

// ExecScript runs sql without arguments, which pgx sends over the simple
// protocol so a multi-statement script executes as one unit.
func (d *Driver) ExecScript(ctx context.Context, sql string) error {
	if _, err := d.pool.Exec(ctx, sql); err != nil {
		return mapError(err, "exec failed")
	}
	return nil
}

// InspectSchema lists base-table columns in schema from information_schema.
// Array and user-defined types are reported by their udt name.
func (d *Driver) InspectSchema(ctx context.Context, schema string) (*database.Schema, error) {
	const q = `
		SELECT c.table_name,
		       c.column_name,
		       CASE WHEN c.data_type IN ('ARRAY', 'USER-DEFINED') THEN c.udt_name ELSE c.data_type END,
		       c.is_nullable = 'YES',
		       c.column_default
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema
		 AND t.table_name   = c.table_name
		WHERE c.table_schema = $1
		  AND t.table_type   = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := d.pool.Query(ctx, q, schema)
	if err != nil {
		return nil, mapError(err, "failed to inspect schema")
	}
	defer rows.Close()

	out := &database.Schema{Name: schema, Tables: map[string]*database.TableInfo{}}
	for rows.Next() {
		var table string
		col := &database.ColumnInfo{}
		if err := rows.Scan(&table, &col.Name, &col.DataType, &col.Nullable, &col.Default); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		out.AddColumn(table, col)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}
	return out, nil
}

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQueryFailed
		switch {
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08": // connection exception
			kind = errs.ErrKindConnectionFailed
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "28": // invalid authorization
			kind = errs.ErrKindPermissionDenied
		case pgErr.Code == "42501": // insufficient_privilege
			kind = errs.ErrKindPermissionDenied
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
