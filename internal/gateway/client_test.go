package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djb258/client-sub001/internal/config"
	"github.com/djb258/client-sub001/internal/errs"
)

func newTestClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&config.Gateway{URL: srv.URL, APIKey: "secret", Timeout: timeout})
}

func TestClient_ExecuteSQL(t *testing.T) {
	var got ExecuteRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ExecutePath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"job_id":"job-42"}`))
	}, time.Second)

	res, err := c.ExecuteSQL(context.Background(), ExecuteRequest{SQL: "SELECT 1", Schema: "clnt", Migration: true})
	require.NoError(t, err)
	assert.Equal(t, "job-42", res.JobID)
	assert.Equal(t, ExecuteRequest{SQL: "SELECT 1", Schema: "clnt", Migration: true}, got)
}

func TestClient_FetchSchema(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SchemaPath, r.URL.Path)
		var req SchemaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "clnt", req.Schema)
		_, _ = w.Write([]byte(`{"tables":{"client":{"columns":{"client_id":{"type":"uuid"},"legal_name":{"type":"text"}}}}}`))
	}, time.Second)

	live, err := c.FetchSchema(context.Background(), "clnt")
	require.NoError(t, err)

	client, ok := live.Table("client")
	require.True(t, ok)
	col, ok := client.Column("legal_name")
	require.True(t, ok)
	assert.Equal(t, "text", col.Type)
	_, ok = live.Table("plan")
	assert.False(t, ok)
}

func TestClient_FetchSchemaEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, time.Second)

	live, err := c.FetchSchema(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, live.Tables)
	assert.Empty(t, live.Tables)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   errs.ErrKind
	}{
		{"unauthorized", http.StatusUnauthorized, "bad token", errs.ErrKindPermissionDenied},
		{"forbidden", http.StatusForbidden, "", errs.ErrKindPermissionDenied},
		{"server error", http.StatusInternalServerError, "syntax error at or near", errs.ErrKindGateway},
		{"bad gateway", http.StatusBadGateway, "upstream", errs.ErrKindGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, time.Second)

			_, err := c.ExecuteSQL(context.Background(), ExecuteRequest{SQL: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err))
			assert.Equal(t, errs.ExitDivergence, errs.ExitCode(err))

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, tt.body, se.Body)
		})
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}, time.Second)

	_, err := c.FetchSchema(context.Background(), "clnt")
	assert.True(t, errs.IsGateway(err))
}

func TestClient_ExecuteMissingJobID(t *testing.T) {
	for _, body := range []string{`{}`, `{"job_id":""}`, `{"job_id":"  "}`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}, time.Second)

		res, err := c.ExecuteSQL(context.Background(), ExecuteRequest{SQL: "SELECT 1", Schema: "clnt"})
		assert.Nil(t, res, body)
		assert.True(t, errs.IsGateway(err), body)
		assert.Contains(t, err.Error(), "missing job_id", body)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	start := time.Now()
	_, err := c.FetchSchema(context.Background(), "clnt")
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err), "kind = %s", errs.KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(&config.Gateway{URL: url, APIKey: "k", Timeout: time.Second})
	_, err := c.ExecuteSQL(context.Background(), ExecuteRequest{SQL: "x"})
	assert.True(t, errs.IsConnectionFailed(err), "kind = %s", errs.KindOf(err))
}
