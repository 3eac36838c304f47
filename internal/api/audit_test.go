// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"bufio"
	"bytes"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/tomtom215/gathermap/internal/audit"
	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/config"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines() []gjson.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []gjson.Result
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		out = append(out, gjson.Parse(sc.Text()))
	}
	return out
}

func withAudit(l *audit.Logger) envOption {
	return func(_ *config.Config, d *Dependencies) { d.Audit = l }
}

func TestAuditTrail(t *testing.T) {
	t.Parallel()

	out := &lockedBuffer{}
	logger := audit.NewLogger(audit.DefaultConfig(), zerolog.New(out))
	env := newTestEnv(t, withAudit(logger))
	env.backend.on(backend.OpGroupMemberRemove, payload(nil))
	env.backend.on(backend.OpLogin, fail(&backend.Error{Operation: backend.OpLogin, Status: http.StatusUnauthorized}))

	assertStatus(t, env.do(t, http.MethodDelete, "/api/v1/groups/10/members/300", "", 2), http.StatusOK)
	assertStatus(t, env.do(t, http.MethodDelete, "/api/v1/groups/10", "", 3), http.StatusForbidden)
	assertStatus(t, env.do(t, http.MethodPost, "/api/v1/auth/login", `{"mt_id":"01012345678","mt_pass":"nope!"}`, 0), http.StatusUnauthorized)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	byType := map[string]gjson.Result{}
	for _, line := range out.lines() {
		byType[line.Get("audit_type").String()] = line.Get("event")
	}

	kick, ok := byType["member.kicked"]
	if !ok {
		t.Fatalf("no member.kicked event in %v", byType)
	}
	if kick.Get("actor.mt_idx").Int() != 2 || kick.Get("target.mt_idx").Int() != 3 || kick.Get("target.sgt_idx").Int() != 10 {
		t.Errorf("kick event = %s", kick.Raw)
	}

	denied, ok := byType["authz.denied"]
	if !ok {
		t.Fatal("no authz.denied event")
	}
	if denied.Get("metadata.role").String() != "member" || denied.Get("outcome").String() != "failure" {
		t.Errorf("denied event = %s", denied.Raw)
	}

	failed, ok := byType["auth.login_failed"]
	if !ok {
		t.Fatal("no auth.login_failed event")
	}
	if got := failed.Get("actor.login").String(); got != "010******78" {
		t.Errorf("masked login = %q", got)
	}
	if failed.Get("metadata.backend_status").Int() != http.StatusUnauthorized {
		t.Errorf("login_failed metadata = %s", failed.Get("metadata").Raw)
	}
}
