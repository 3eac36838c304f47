// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/models"
)

// newTestClient points a client at srv with millisecond backoff.
func newTestClient(t *testing.T, srv *httptest.Server, retries int) *Client {
	t.Helper()
	c := NewClient(&config.BackendConfig{
		URL:        srv.URL,
		APIKey:     "backend-key",
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	})
	c.retryBaseDelay = time.Millisecond
	return c
}

func TestClientDoSendsHeadersAndBody(t *testing.T) {
	t.Parallel()

	var got struct {
		method, path, query, apiKey, requestID, member, contentType string
		body                                                        models.LocationLog
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.apiKey = r.Header.Get("X-API-Key")
		got.requestID = r.Header.Get("X-Request-ID")
		got.member = r.Header.Get(MemberIdxHeader)
		got.contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		_, _ = io.WriteString(w, `{"success":true,"data":{"mlt_idx":"55"},"message":"saved"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 0)
	ctx := logging.ContextWithRequestID(context.Background(), "req-1")

	resp, err := c.Do(ctx, Request{
		Operation: OpLocationCreate,
		Method:    http.MethodPost,
		Path:      LocationsPath,
		Query:     url.Values{"source": {"app"}},
		Body:      models.LocationLog{MtIdx: 7, Lat: 37.5, Lng: 127.0},
		MemberIdx: 7,
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if got.method != http.MethodPost || got.path != "/api/v1/locations" || got.query != "source=app" {
		t.Errorf("request line = %s %s?%s", got.method, got.path, got.query)
	}
	if got.apiKey != "backend-key" || got.requestID != "req-1" || got.member != "7" {
		t.Errorf("headers: api key %q, request id %q, member %q", got.apiKey, got.requestID, got.member)
	}
	if got.contentType != "application/json" {
		t.Errorf("Content-Type = %q", got.contentType)
	}
	if got.body.MtIdx != 7 || got.body.Lat != 37.5 {
		t.Errorf("body = %+v", got.body)
	}

	if resp.Message != "saved" {
		t.Errorf("Message = %q", resp.Message)
	}
	var saved models.LocationLog
	if err := resp.Decode(&saved); err != nil || saved.MltIdx != 55 {
		t.Errorf("Decode = %+v, %v", saved, err)
	}
}

func TestClientErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		notFound    bool
		unavailable bool
		wantStatus  int
		wantMessage string
	}{
		{"not found", 404, `{"success":false,"message":"no such group"}`, true, false, 404, "no such group"},
		{"forbidden", 403, `{"detail":"not allowed"}`, false, false, 403, "not allowed"},
		{"validation", 422, `{"detail":[{"loc":["body","mt_hp"],"msg":"field required"}]}`, false, false, 422, "field required"},
		{"php refusal", 200, `{"result":"N","msg":"wrong password"}`, false, false, 400, "wrong password"},
		{"fastapi refusal", 200, `{"success":false,"message":"duplicate"}`, false, false, 400, "duplicate"},
		{"server error", 500, `{"detail":"boom"}`, false, true, 500, "boom"},
		{"html 200", 200, `<html>maintenance</html>`, false, true, 502, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv, 0).Do(context.Background(), Request{Operation: OpGroupGet, Path: GroupPath(3)})
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrNotFound) != tt.notFound {
				t.Errorf("errors.Is(ErrNotFound) = %v", !tt.notFound)
			}
			if IsUnavailable(err) != tt.unavailable {
				t.Errorf("IsUnavailable = %v", !tt.unavailable)
			}
			be, ok := AsError(err)
			if !ok {
				t.Fatalf("error %v is not *Error", err)
			}
			if be.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", be.Status, tt.wantStatus)
			}
			if tt.wantMessage != "" && be.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", be.Message, tt.wantMessage)
			}
		})
	}
}

func TestClientRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = io.WriteString(w, `{"result":"Y","data":[{"sgt_idx":1},{"sgt_idx":2}]}`)
		}
	}))
	defer srv.Close()

	groups, err := Typed[[]models.Group](newTestClient(t, srv, 3).Do(context.Background(), Request{Operation: OpGroupsList, Path: GroupsPath}))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(groups) != 2 || groups[1].SgtIdx != 2 {
		t.Errorf("groups = %+v", groups)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 2).Do(context.Background(), Request{Operation: OpGroupsList, Path: GroupsPath})
	if !IsUnavailable(err) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, _ = newTestClient(t, srv, 3).Do(context.Background(), Request{Operation: OpGroupCreate, Method: http.MethodPost, Path: GroupsPath})
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClientTransportErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c := newTestClient(t, srv, 1)
	srv.Close()

	_, err := c.Do(context.Background(), Request{Operation: OpGroupsList, Path: GroupsPath})
	if !IsUnavailable(err) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestClientContextCancelStopsBackoff(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "10")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(t, srv, 5).Do(ctx, Request{Operation: OpGroupsList, Path: GroupsPath})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("backoff wait was not cancelled")
	}
}

func TestClientPing(t *testing.T) {
	t.Parallel()

	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 0)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping healthy: %v", err)
	}
	healthy.Store(false)
	if err := c.Ping(context.Background()); !IsUnavailable(err) {
		t.Errorf("Ping unhealthy = %v, want ErrUnavailable", err)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	t.Parallel()

	c := &Client{retryBaseDelay: time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second}
	for attempt, w := range want {
		if got := c.backoff(attempt); got != w {
			t.Errorf("backoff(%d) = %v, want %v", attempt, got, w)
		}
	}
	if got := c.backoff(70); got != maxBackoff {
		t.Errorf("backoff overflow = %v", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Errorf("seconds: %v, %v", d, ok)
	}
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if d, ok := parseRetryAfter(future); !ok || d <= 0 || d > time.Minute {
		t.Errorf("http date: %v, %v", d, ok)
	}
	for _, bad := range []string{"", "-1", "soon"} {
		if _, ok := parseRetryAfter(bad); ok {
			t.Errorf("parseRetryAfter(%q) should fail", bad)
		}
	}
}
