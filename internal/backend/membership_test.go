// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gathermap/internal/models"
)

// fakeDoer answers from a map of operation to payload and counts calls.
type fakeDoer struct {
	mu       sync.Mutex
	payloads map[string]interface{}
	err      error
	calls    map[string]int
	last     Request
}

func newFakeDoer() *fakeDoer {
	return &fakeDoer{payloads: map[string]interface{}{}, calls: map[string]int{}}
}

func (f *fakeDoer) Do(_ context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Operation]++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	payload, ok := f.payloads[req.Operation]
	if !ok {
		return nil, &Error{Operation: req.Operation, Status: 404}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Response{Status: 200, Data: data}, nil
}

func (f *fakeDoer) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func TestMembershipResolvesAndCaches(t *testing.T) {
	t.Parallel()

	fake := newFakeDoer()
	fake.payloads[OpGroupMembers] = []models.GroupMember{
		{SgdtIdx: 1, MtIdx: 10, OwnerCheck: models.Yes},
		{SgdtIdx: 2, MtIdx: 11, LeaderCheck: models.Yes},
		{SgdtIdx: 3, MtIdx: 12, Exit: models.Yes},
	}

	m := NewMemberships(fake, time.Minute, false)
	defer m.Close()

	gm, err := m.Membership(context.Background(), 11, 5)
	if err != nil {
		t.Fatalf("Membership: %v", err)
	}
	if gm.SgdtIdx != 2 || gm.SgtIdx != 5 || !gm.LeaderCheck.Bool() {
		t.Errorf("membership = %+v", gm)
	}
	if fake.last.Path != "/groups/5/members" || fake.last.MemberIdx != 11 {
		t.Errorf("request = %+v", fake.last)
	}

	if _, err := m.Membership(context.Background(), 12, 5); !errors.Is(err, ErrNotMember) {
		t.Errorf("exited member err = %v, want ErrNotMember", err)
	}
	if _, err := m.Membership(context.Background(), 99, 5); !errors.Is(err, ErrNotMember) {
		t.Errorf("stranger err = %v, want ErrNotMember", err)
	}
	if n := fake.count(OpGroupMembers); n != 1 {
		t.Errorf("backend called %d times, want 1 (cached)", n)
	}

	m.InvalidateGroup(5)
	if _, err := m.Membership(context.Background(), 10, 5); err != nil {
		t.Fatalf("after invalidate: %v", err)
	}
	if n := fake.count(OpGroupMembers); n != 2 {
		t.Errorf("backend called %d times after invalidate, want 2", n)
	}
}

func TestGroupsOf(t *testing.T) {
	t.Parallel()

	fake := newFakeDoer()
	fake.payloads[OpGroupsList] = []models.Group{{SgtIdx: 3}, {SgtIdx: 8}}

	m := NewMemberships(fake, time.Minute, false)
	defer m.Close()

	ids, err := m.GroupsOf(context.Background(), 42)
	if err != nil {
		t.Fatalf("GroupsOf: %v", err)
	}
	if fmt.Sprint(ids) != "[3 8]" {
		t.Errorf("ids = %v", ids)
	}
	if fake.last.Query.Get("mt_idx") != "42" {
		t.Errorf("query = %v", fake.last.Query)
	}

	_, _ = m.GroupsOf(context.Background(), 42)
	if n := fake.count(OpGroupsList); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}

	m.ForgetGroup(3)
	_, _ = m.GroupsOf(context.Background(), 42)
	if n := fake.count(OpGroupsList); n != 2 {
		t.Errorf("calls after ForgetGroup = %d, want 2", n)
	}

	m.InvalidateMember(42)
	_, _ = m.GroupsOf(context.Background(), 42)
	if n := fake.count(OpGroupsList); n != 3 {
		t.Errorf("calls after InvalidateMember = %d, want 3", n)
	}
}

func TestMembershipMockFallback(t *testing.T) {
	t.Parallel()

	fake := newFakeDoer()
	fake.err = fmt.Errorf("%w: connection refused", ErrUnavailable)

	strict := NewMemberships(fake, time.Minute, false)
	defer strict.Close()
	if _, err := strict.Membership(context.Background(), 7, 4); !IsUnavailable(err) {
		t.Errorf("without fallback err = %v, want ErrUnavailable", err)
	}

	demo := NewMemberships(fake, time.Minute, true)
	defer demo.Close()
	gm, err := demo.Membership(context.Background(), 7, 4)
	if err != nil {
		t.Fatalf("with fallback: %v", err)
	}
	if gm.MtIdx != 7 || gm.SgtIdx != 4 || !gm.OwnerCheck.Bool() {
		t.Errorf("mock membership = %+v", gm)
	}
}

// gatedDoer holds the first member-list fetch until released and answers
// from whatever list is current when it returns.
type gatedDoer struct {
	mu      sync.Mutex
	list    []models.GroupMember
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedDoer) Do(_ context.Context, _ Request) (*Response, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	list := g.list
	g.mu.Unlock()

	if first {
		close(g.entered)
		<-g.release
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return &Response{Status: 200, Data: data}, nil
}

func TestMembershipInvalidateDuringFetch(t *testing.T) {
	t.Parallel()

	doer := &gatedDoer{
		list: []models.GroupMember{
			{SgdtIdx: 1, SgtIdx: 8, MtIdx: 1, OwnerCheck: models.Yes},
			{SgdtIdx: 2, SgtIdx: 8, MtIdx: 2},
		},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := NewMemberships(doer, time.Minute, false)
	defer m.Close()

	done := make(chan error, 1)
	go func() {
		_, err := m.Members(context.Background(), 1, 8)
		done <- err
	}()
	<-doer.entered

	// Member 2 is kicked while the old list is in flight.
	doer.mu.Lock()
	doer.list = doer.list[:1]
	doer.mu.Unlock()
	m.InvalidateGroup(8)

	close(doer.release)
	if err := <-done; err != nil {
		t.Fatalf("Members: %v", err)
	}

	if _, err := m.Membership(context.Background(), 2, 8); !errors.Is(err, ErrNotMember) {
		t.Errorf("kicked member = %v, want ErrNotMember", err)
	}
	doer.mu.Lock()
	calls := doer.calls
	doer.mu.Unlock()
	if calls != 2 {
		t.Errorf("backend calls = %d, want 2 (stale list must not be cached)", calls)
	}
}
