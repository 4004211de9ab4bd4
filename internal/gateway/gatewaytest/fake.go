// Package gatewaytest provides an in-memory gateway.Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/djb258/client-sub001/internal/gateway"
)

// Fake records every call and answers from preset state.
type Fake struct {
	mu        sync.Mutex
	schemas   map[string]*gateway.LiveSchema
	schemaErr error
	execErr   func(gateway.ExecuteRequest) error
	executed  []gateway.ExecuteRequest
	fetches   []string
}

var _ gateway.Gateway = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{schemas: make(map[string]*gateway.LiveSchema)}
}

// SetSchema sets the live structure returned for schema.
func (f *Fake) SetSchema(schema string, live *gateway.LiveSchema) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas[schema] = live
	return f
}

// FailFetch makes every FetchSchema call return err.
func (f *Fake) FailFetch(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemaErr = err
	return f
}

// FailExecute installs a hook deciding the error, if any, for each execution.
// The request is recorded either way.
func (f *Fake) FailExecute(fn func(gateway.ExecuteRequest) error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execErr = fn
	return f
}

// Executed returns the execution requests received so far, in order.
func (f *Fake) Executed() []gateway.ExecuteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.ExecuteRequest(nil), f.executed...)
}

// Fetches returns the schema names fetched so far, in order.
func (f *Fake) Fetches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetches...)
}

func (f *Fake) ExecuteSQL(ctx context.Context, req gateway.ExecuteRequest) (*gateway.ExecuteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, req)
	if f.execErr != nil {
		if err := f.execErr(req); err != nil {
			return nil, err
		}
	}
	return &gateway.ExecuteResult{JobID: fmt.Sprintf("job-%d", len(f.executed))}, nil
}

func (f *Fake) FetchSchema(ctx context.Context, schema string) (*gateway.LiveSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, schema)
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	if live, ok := f.schemas[schema]; ok {
		return live, nil
	}
	return &gateway.LiveSchema{Tables: map[string]gateway.LiveTable{}}, nil
}

// Schema builds a LiveSchema from table -> column -> type.
func Schema(tables map[string]map[string]string) *gateway.LiveSchema {
	live := &gateway.LiveSchema{Tables: make(map[string]gateway.LiveTable, len(tables))}
	for name, cols := range tables {
		lt := gateway.LiveTable{Columns: make(map[string]gateway.LiveColumn, len(cols))}
		for col, typ := range cols {
			lt.Columns[col] = gateway.LiveColumn{Type: typ}
		}
		live.Tables[name] = lt
	}
	return live
}
