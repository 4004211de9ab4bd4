// Package sqlite implements database.DB on an embedded SQLite file through
// modernc.org/sqlite. It backs the local gateway in development and tests;
// SQLite has no schemas, so InspectSchema reports every table in the file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"

	"github.com/djb258/client-sub001/internal/database"
	"github.com/djb258/client-sub001/internal/errs"
)

// Driver is a SQLite implementation of database.DB.
type Driver struct {
	db *sql.DB
}

var _ database.DB = (*Driver)(nil)

// New opens the SQLite database named by cfg.DSN, for example "file:dev.db"
// or a plain path.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errs.New(errs.ErrKindConfig, "sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "sqlite: open", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db}
	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
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

func (d *Driver) Driver() database.Driver { return database.DriverSQLite }

func (d *Driver) ExecScript(ctx context.Context, script string) error {
	if _, err := d.db.ExecContext(ctx, script); err != nil {
		return mapError(err, "exec failed")
	}
	return nil
}

// InspectSchema lists every user table. The schema argument only names the
// result.
func (d *Driver) InspectSchema(ctx context.Context, schema string) (*database.Schema, error) {
	const q = `
		SELECT m.name, p.name, p.type, p."notnull" = 0, p.dflt_value
		FROM sqlite_master m
		JOIN pragma_table_info(m.name) p
		WHERE m.type = 'table'
		  AND m.name NOT LIKE 'sqlite_%'
		ORDER BY m.name, p.cid`

	rows, err := d.db.QueryContext(ctx, q)
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

// Primary result codes, see https://sqlite.org/rescode.html.
const (
	codePerm     = 3
	codeBusy     = 5
	codeReadOnly = 8
	codeCantOpen = 14
	codeAuth     = 23
)

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

	var se *msqlite.Error
	if errors.As(err, &se) {
		kind := errs.ErrKindQueryFailed
		switch se.Code() & 0xff {
		case codePerm, codeAuth, codeReadOnly:
			kind = errs.ErrKindPermissionDenied
		case codeCantOpen, codeBusy:
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, se.Error()), err)
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
