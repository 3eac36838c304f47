// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/gathermap/internal/cache"
	"github.com/tomtom215/gathermap/internal/models"
)

// Memberships answers "is this member in that group, and as what" without a
// backend round trip on every request. Member lists are cached per group and
// group ids per member, both for the configured TTL.
type Memberships struct {
	backend   Doer
	mockable  bool
	members   *cache.Cache[[]models.GroupMember]
	groups    *cache.Cache[[]models.Idx]
	memberGen generations
	groupGen  generations
}

// generations versions cache keys so a fetch that raced an invalidation does
// not store its stale result.
type generations struct {
	mu    sync.Mutex
	byKey map[string]uint64
	all   uint64
}

// current returns the version a fetch for key starts from. Both counters
// only grow, so their sum changes whenever either does.
func (g *generations) current(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.all + g.byKey[key]
}

// bump invalidates key; drop runs under the same lock.
func (g *generations) bump(key string, drop func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.byKey == nil {
		g.byKey = make(map[string]uint64)
	}
	g.byKey[key]++
	drop()
}

// bumpAll invalidates every key.
func (g *generations) bumpAll(drop func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.all++
	drop()
}

// store runs set only if key is still at version gen.
func (g *generations) store(key string, gen uint64, set func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.all+g.byKey[key] == gen {
		set()
	}
}

// NewMemberships creates a membership resolver. When mockFallback is set,
// an unavailable backend is answered from the mock registry.
func NewMemberships(b Doer, ttl time.Duration, mockFallback bool) *Memberships {
	return &Memberships{
		backend:  b,
		mockable: mockFallback,
		members:  cache.New[[]models.GroupMember](ttl),
		groups:   cache.New[[]models.Idx](ttl),
	}
}

func groupKey(sgtIdx models.Idx) string { return "g:" + sgtIdx.String() }
func memberKey(mtIdx models.Idx) string { return "m:" + mtIdx.String() }

// Members returns the active members of a group as seen by caller.
func (m *Memberships) Members(ctx context.Context, caller, sgtIdx models.Idx) ([]models.GroupMember, error) {
	key := groupKey(sgtIdx)
	if list, ok := m.members.Get(key); ok {
		return list, nil
	}
	gen := m.memberGen.current(key)

	list, err := Typed[[]models.GroupMember](m.call(ctx, Request{
		Operation: OpGroupMembers,
		Method:    http.MethodGet,
		Path:      GroupMembersPath(sgtIdx),
		MemberIdx: caller,
	}))
	if err != nil {
		return nil, fmt.Errorf("list members of group %d: %w", sgtIdx, err)
	}

	active := list[:0]
	for _, gm := range list {
		if gm.Active() {
			if gm.SgtIdx == 0 {
				gm.SgtIdx = sgtIdx
			}
			active = append(active, gm)
		}
	}
	m.memberGen.store(key, gen, func() { m.members.Set(key, active) })
	return active, nil
}

// Membership returns mtIdx's row in the group, or ErrNotMember.
func (m *Memberships) Membership(ctx context.Context, mtIdx, sgtIdx models.Idx) (*models.GroupMember, error) {
	list, err := m.Members(ctx, mtIdx, sgtIdx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].MtIdx == mtIdx {
			gm := list[i]
			return &gm, nil
		}
	}
	return nil, ErrNotMember
}

// GroupsOf returns the ids of every group mtIdx belongs to.
func (m *Memberships) GroupsOf(ctx context.Context, mtIdx models.Idx) ([]models.Idx, error) {
	key := memberKey(mtIdx)
	if ids, ok := m.groups.Get(key); ok {
		return ids, nil
	}
	gen := m.groupGen.current(key)

	groups, err := Typed[[]models.Group](m.call(ctx, Request{
		Operation: OpGroupsList,
		Method:    http.MethodGet,
		Path:      GroupsPath,
		Query:     url.Values{"mt_idx": {mtIdx.String()}},
		MemberIdx: mtIdx,
	}))
	if err != nil {
		return nil, fmt.Errorf("list groups of member %d: %w", mtIdx, err)
	}

	ids := make([]models.Idx, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.SgtIdx)
	}
	m.groupGen.store(key, gen, func() { m.groups.Set(key, ids) })
	return ids, nil
}

// InvalidateGroup drops the cached member list of a group.
func (m *Memberships) InvalidateGroup(sgtIdx models.Idx) {
	key := groupKey(sgtIdx)
	m.memberGen.bump(key, func() { m.members.Delete(key) })
}

// InvalidateMember drops the cached group list of a member.
func (m *Memberships) InvalidateMember(mtIdx models.Idx) {
	key := memberKey(mtIdx)
	m.groupGen.bump(key, func() { m.groups.Delete(key) })
}

// ForgetGroup drops a deleted group's member list and every cached group
// list, since any member may have belonged to it.
func (m *Memberships) ForgetGroup(sgtIdx models.Idx) {
	m.InvalidateGroup(sgtIdx)
	m.groupGen.bumpAll(func() {
		m.groups.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, "m:") })
	})
}

// Close stops the cache sweepers.
func (m *Memberships) Close() {
	m.members.Close()
	m.groups.Close()
}

func (m *Memberships) call(ctx context.Context, req Request) (*Response, error) {
	resp, err := m.backend.Do(ctx, req)
	if err != nil && m.mockable && IsUnavailable(err) {
		if mock, ok := Mock(req); ok {
			return mock, nil
		}
	}
	return resp, err
}
