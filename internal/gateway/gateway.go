// Package gateway talks to the database gateway: the remote service that
// executes SQL and reports live schema structure on the tools' behalf.
package gateway

import (
	"context"
	"fmt"
	"strings"
)

// Gateway is the contract the validator and migration runner depend on.
type Gateway interface {
	// ExecuteSQL submits a SQL text for execution against schema.
	ExecuteSQL(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error)
	// FetchSchema returns the live table and column structure of schema.
	FetchSchema(ctx context.Context, schema string) (*LiveSchema, error)
}

// Route paths, relative to the gateway base URL.
const (
	ExecutePath = "/mcp/db/execute"
	SchemaPath  = "/mcp/db/schema"
)

// ExecuteRequest is the body of an execute call.
type ExecuteRequest struct {
	SQL       string `json:"sql"`
	Schema    string `json:"schema"`
	Migration bool   `json:"migration"`
}

// ExecuteResult is the gateway's acknowledgement of an execution.
type ExecuteResult struct {
	JobID string `json:"job_id"`
}

// SchemaRequest is the body of a schema call.
type SchemaRequest struct {
	Schema string `json:"schema"`
}

// LiveSchema is the database structure as the gateway reports it.
type LiveSchema struct {
	Tables map[string]LiveTable `json:"tables"`
}

// LiveTable is one live table.
type LiveTable struct {
	Columns map[string]LiveColumn `json:"columns"`
}

// LiveColumn is one live column.
type LiveColumn struct {
	Type string `json:"type"`
}

// Table looks a live table up by exact name.
func (s *LiveSchema) Table(name string) (LiveTable, bool) {
	if s == nil {
		return LiveTable{}, false
	}
	t, ok := s.Tables[name]
	return t, ok
}

// Column looks a live column up by exact name.
func (t LiveTable) Column(name string) (LiveColumn, bool) {
	c, ok := t.Columns[name]
	return c, ok
}

// StatusError carries a non-2xx gateway response. It is the cause of the
// errs.Error returned to callers.
type StatusError struct {
	Route  string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Route, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Route, e.Status, body)
}
