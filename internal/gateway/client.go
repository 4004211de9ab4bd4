package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/djb258/client-sub001/internal/config"
	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/logger"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// Client is the HTTP implementation of Gateway. Calls are never retried.
type Client struct {
	base    string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	log     *logger.Logger
}

var _ Gateway = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a client from validated gateway settings.
func NewClient(cfg *config.Gateway, opts ...Option) *Client {
	c := &Client{
		base:    cfg.URL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		http:    &http.Client{},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Component("gateway")
	return c
}

// ExecuteSQL submits req and returns the gateway job id.
func (c *Client) ExecuteSQL(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	var res ExecuteResult
	if err := c.post(ctx, ExecutePath, req, &res); err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.JobID) == "" {
		return nil, errs.New(errs.ErrKindGateway, ExecutePath+": response missing job_id")
	}
	return &res, nil
}

// FetchSchema returns the live structure of schema. A schema the gateway
// knows nothing about comes back with no tables.
func (c *Client) FetchSchema(ctx context.Context, schema string) (*LiveSchema, error) {
	var res LiveSchema
	if err := c.post(ctx, SchemaPath, SchemaRequest{Schema: schema}, &res); err != nil {
		return nil, err
	}
	if res.Tables == nil {
		res.Tables = map[string]LiveTable{}
	}
	return &res, nil
}

func (c *Client) post(ctx context.Context, route string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(in)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "encode "+route+" request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+route, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(errs.ErrKindConfig, "build "+route+" request", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return transportErr(ctx, route, err)
	}
	defer resp.Body.Close()

	c.log.Debug("gateway call",
		logger.F("route", route),
		logger.F("request_id", requestID),
		logger.F("status", resp.StatusCode),
		logger.F("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &StatusError{Route: route, Status: resp.StatusCode, Body: string(raw)}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return errs.Wrap(errs.ErrKindPermissionDenied, "gateway rejected credential", se)
		}
		return errs.Wrap(errs.ErrKindGateway, fmt.Sprintf("gateway %s failed", route), se)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return transportErr(ctx, route, err)
		}
		return errs.Wrap(errs.ErrKindGateway, "decode "+route+" response", err)
	}
	return nil
}

// transportErr classifies a failure that happened before a response arrived.
func transportErr(ctx context.Context, route string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrKindTimeout, "gateway "+route+" timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "gateway "+route+" cancelled", err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, "gateway "+route+" unreachable", err)
}
