// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package audit

import (
	"bufio"
	"bytes"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
	"github.com/tomtom215/gathermap/internal/models"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) events() []gjson.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []gjson.Result
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		out = append(out, gjson.Get(sc.Text(), "event"))
	}
	return out
}

func TestLogger_WritesEventLine(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	l := NewLogger(DefaultConfig(), zerolog.New(out))

	r := httptest.NewRequest("DELETE", "/api/v1/groups/10", nil)
	r.RemoteAddr = "203.0.113.7:5123"
	r.Header.Set("User-Agent", "gathermap-ios/3.2")
	r = r.WithContext(logging.ContextWithRequestID(r.Context(), "req-42"))

	l.GroupDeleted(r, 1, 10)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := out.events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	checks := map[string]string{
		"type":              "group.deleted",
		"severity":          "warning",
		"outcome":           "success",
		"source.ip_address": "203.0.113.7",
		"source.user_agent": "gathermap-ios/3.2",
		"request_id":        "req-42",
	}
	for path, want := range checks {
		if got := e.Get(path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
	if e.Get("id").String() == "" || e.Get("timestamp").String() == "" {
		t.Errorf("id/timestamp not filled: %s", e.Raw)
	}
	if e.Get("target.sgt_idx").Int() != 10 || e.Get("actor.mt_idx").Int() != 1 {
		t.Errorf("actor/target = %s / %s", e.Get("actor").Raw, e.Get("target").Raw)
	}
}

func TestLogger_MinSeverity(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	l := NewLogger(Config{MinSeverity: SeverityWarning, BufferSize: 10}, zerolog.New(out))
	r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)

	// Info is below the threshold and dropped.
	l.LoginSucceeded(r, 7)
	l.LoginFailed(r, "alice@example.com", 401)
	l.VerificationFailed(r, "01012345678", "too_many_attempts")
	_ = l.Close()

	events := out.events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[1].Get("severity").String() != string(SeverityCritical) {
		t.Errorf("too_many_attempts severity = %s", events[1].Get("severity").String())
	}
}

func TestLogger_CountsEvents(t *testing.T) {
	t.Parallel()

	counter := metrics.AuditEvents.WithLabelValues(string(EventTypeRoleChanged), string(OutcomeSuccess))
	before := testutil.ToFloat64(counter)

	l := NewLogger(DefaultConfig(), zerolog.Nop())
	r := httptest.NewRequest("PUT", "/api/v1/groups/10/members/300/role", nil)
	l.RoleChanged(r, 1, 10, &models.GroupMember{SgdtIdx: 300, MtIdx: 3}, true)
	_ = l.Close()

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("audit_events_total delta = %v, want 1", got)
	}
}

func TestLogger_NilAndClosed(t *testing.T) {
	t.Parallel()

	var nilLogger *Logger
	r := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	nilLogger.LoggedOut(r, 1)
	if err := nilLogger.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}

	out := &syncBuffer{}
	l := NewLogger(DefaultConfig(), zerolog.New(out))
	_ = l.Close()
	_ = l.Close()
	l.LoggedOut(r, 1)
	if n := len(out.events()); n != 0 {
		t.Errorf("events after Close = %d, want 0", n)
	}
}

func TestMaskLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"alice", "*****"},
		{"alice1", "ali*e1"},
		{"01012345678", "010******78"},
	}
	for _, tt := range tests {
		if got := MaskLogin(tt.in); got != tt.want {
			t.Errorf("MaskLogin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSourceFromRequest(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "[2001:db8::1]:443"
	if got := SourceFromRequest(r).IPAddress; got != "2001:db8::1" {
		t.Errorf("IPAddress = %q", got)
	}

	r.RemoteAddr = "198.51.100.3"
	if got := SourceFromRequest(r).IPAddress; got != "198.51.100.3" {
		t.Errorf("IPAddress without port = %q", got)
	}
}
