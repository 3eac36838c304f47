// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

/*
Package backend is the gateway's client for the external service that owns
members, groups, locations, schedules and the notification log.

Client Features:
  - JSON request bodies, X-Request-ID and X-Member-Idx propagation
  - Optional X-API-Key authentication
  - Retries with exponential backoff (1s, 2s, 4s, ... capped at 30s) on
    HTTP 429/502/503/504 and transport errors, honouring Retry-After
  - Envelope decoding for both the FastAPI and the PHP response shapes
  - Circuit breaker wrapper (CircuitBreakerClient)
  - Canned fallback payloads for demo deployments (Mock)
  - Cached group membership lookups (Memberships)

Errors:
  - *Error for any non-success answer
  - ErrNotFound (404) and ErrUnavailable (5xx, transport, open breaker) via errors.Is
*/
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
	"github.com/tomtom215/gathermap/internal/models"
)

const (
	// apiPrefix is prepended to every Request.Path.
	apiPrefix = "/api/v1"

	// maxErrorBodySize limits how much of a response body is read.
	maxErrorBodySize = 64 * 1024

	// maxResponseSize bounds successful bodies.
	maxResponseSize = 8 << 20

	maxBackoff = 30 * time.Second

	// MemberIdxHeader tells the backend which member the gateway is acting for.
	MemberIdxHeader = "X-Member-Idx"
)

// Doer is implemented by Client and CircuitBreakerClient.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Request is one backend call.
type Request struct {
	// Operation names the call for metrics, logs and mock lookup (see ops.go).
	Operation string
	Method    string
	// Path is relative to /api/v1, e.g. "/groups/3/members".
	Path      string
	Query     url.Values
	Body      interface{}
	MemberIdx models.Idx
}

// Response is a successful backend answer.
type Response struct {
	Status  int
	Message string
	// Data is the raw JSON payload: the envelope's data field, or the whole
	// body when the backend did not wrap it. Nil when there is no payload.
	Data []byte
	// Mock is set when the payload came from the fallback registry.
	Mock bool
}

// Decode unmarshals Data into v. An empty payload leaves v untouched.
func (r *Response) Decode(v interface{}) error {
	if len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode backend payload: %w", err)
	}
	return nil
}

// Typed decodes a response payload into T. It is meant to wrap a Do call:
//
//	groups, err := backend.Typed[[]models.Group](client.Do(ctx, req))
func Typed[T any](resp *Response, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// Client handles communication with the backend HTTP API.
//
// Thread Safety: Safe for concurrent use. Each call builds its own request.
type Client struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
	logger         zerolog.Logger
}

// NewClient creates a backend client from configuration.
func NewClient(cfg *config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: time.Second,
		logger:         logging.WithComponent("backend"),
	}
}

// Do performs req, retrying transient failures, and decodes the envelope.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := c.do(ctx, req)
	metrics.RecordBackendCall(req.Operation, outcomeOf(err), time.Since(start))
	return resp, err
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", req.Operation, err)
		}
	}

	reqURL := c.baseURL + apiPrefix + req.Path
	if len(req.Query) > 0 {
		reqURL += "?" + req.Query.Encode()
	}

	httpResp, err := c.doWithRetry(ctx, req, reqURL, payload)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	limit := int64(maxResponseSize)
	if httpResp.StatusCode >= 400 {
		limit = maxErrorBodySize
	}
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", ErrUnavailable, req.Operation, err)
	}

	env, malformed := parseEnvelope(httpResp.StatusCode, body)
	if malformed && httpResp.StatusCode < 500 {
		return nil, &Error{Operation: req.Operation, Status: http.StatusBadGateway, Message: "malformed response: " + env.message}
	}
	if !env.ok {
		status := httpResp.StatusCode
		if status < 400 {
			// A 2xx with a failed envelope is the backend refusing the request.
			status = http.StatusBadRequest
		}
		return nil, &Error{Operation: req.Operation, Status: status, Message: env.message}
	}

	return &Response{Status: httpResp.StatusCode, Message: env.message, Data: env.data}, nil
}

// doWithRetry implements exponential backoff for 429/502/503/504 and transport
// errors. The context cancels any pending wait.
func (c *Client) doWithRetry(ctx context.Context, req Request, reqURL string, payload []byte) (*http.Response, error) {
	log := c.logger.With().
		Str("operation", req.Operation).
		Str("request_id", logging.RequestIDFromContext(ctx)).
		Logger()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		httpReq, err := c.newRequest(ctx, req, reqURL, payload)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(httpReq)
		var delay time.Duration
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = fmt.Errorf("%w: %s request failed: %v", ErrUnavailable, req.Operation, err)
			metrics.BackendRetries.WithLabelValues("transport").Inc()
			delay = c.backoff(attempt)
		case retryableStatus(resp.StatusCode):
			body := readBodyForError(resp.Body)
			_ = resp.Body.Close()
			env, _ := parseEnvelope(resp.StatusCode, body)
			lastErr = &Error{Operation: req.Operation, Status: resp.StatusCode, Message: env.message}
			metrics.BackendRetries.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
			delay = c.backoff(attempt)
			if retryAfter, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
				delay = min(retryAfter, maxBackoff)
			}
		default:
			return resp, nil
		}

		if attempt == c.maxRetries {
			break
		}

		log.Debug().Err(lastErr).Int("attempt", attempt+1).Dur("delay", delay).Msg("Retrying backend request")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	log.Warn().Err(lastErr).Int("attempts", c.maxRetries+1).Msg("Backend request failed after retries")
	return nil, lastErr
}

func (c *Client) newRequest(ctx context.Context, req Request, reqURL string, payload []byte) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", req.Operation, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}
	if req.MemberIdx > 0 {
		httpReq.Header.Set(MemberIdxHeader, req.MemberIdx.String())
	}
	return httpReq, nil
}

// backoff returns 1s, 2s, 4s, ... capped at 30s for the given attempt.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.retryBaseDelay << uint(attempt)
	if delay <= 0 || delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

// Ping checks the backend health endpoint. It does not retry.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create ping request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))

	if resp.StatusCode != http.StatusOK {
		return &Error{Operation: OpHealth, Status: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// parseRetryAfter accepts delta-seconds or an HTTP date (RFC 9110).
func parseRetryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// readBodyForError reads at most 64KB of an error body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return nil
	}
	return body
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, ErrUnavailable) {
		return "unavailable"
	}
	if be, ok := AsError(err); ok && be.IsClientError() {
		return "client_error"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}
