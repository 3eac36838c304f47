// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package authz

import (
	"errors"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/gathermap/internal/models"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(0)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEnforcer_Policy(t *testing.T) {
	t.Parallel()

	e := newTestEnforcer(t)

	tests := []struct {
		role, obj, act string
		want           bool
	}{
		{RoleMember, ObjGroup, ActRead, true},
		{RoleMember, ObjMember, ActRead, true},
		{RoleMember, ObjSchedule, ActRead, true},
		{RoleMember, ObjLocation, ActRead, true},
		{RoleMember, ObjNotification, ActRead, true},
		{RoleMember, ObjGroup, ActWrite, false},
		{RoleMember, ObjSchedule, ActWrite, false},
		{RoleMember, ObjMember, ActDelete, false},
		{RoleMember, ObjNotification, ActWrite, false},

		{RoleLeader, ObjGroup, ActRead, true},
		{RoleLeader, ObjGroup, ActWrite, true},
		{RoleLeader, ObjSchedule, ActWrite, true},
		{RoleLeader, ObjSchedule, ActDelete, true},
		{RoleLeader, ObjMember, ActDelete, true},
		{RoleLeader, ObjNotification, ActWrite, true},
		{RoleLeader, ObjGroup, ActDelete, false},
		{RoleLeader, ObjMember, ActManage, false},

		{RoleOwner, ObjLocation, ActRead, true},
		{RoleOwner, ObjSchedule, ActDelete, true},
		{RoleOwner, ObjGroup, ActDelete, true},
		{RoleOwner, ObjMember, ActManage, true},

		{"stranger", ObjGroup, ActRead, false},
		{RoleOwner, "billing", ActRead, false},
	}

	for _, tt := range tests {
		if got := e.Can(tt.role, tt.obj, tt.act); got != tt.want {
			t.Errorf("Can(%s, %s, %s) = %v, want %v", tt.role, tt.obj, tt.act, got, tt.want)
		}
	}
}

func TestEnforcer_CacheHits(t *testing.T) {
	t.Parallel()

	e := newTestEnforcer(t)
	before := testutil.ToFloat64(AuthzCacheHitsTotal)

	for i := 0; i < 3; i++ {
		if !e.Can(RoleLeader, ObjSchedule, ActWrite) {
			t.Fatal("leader should write schedules")
		}
	}

	if hits := testutil.ToFloat64(AuthzCacheHitsTotal) - before; hits < 2 {
		t.Errorf("cache hits grew by %v, want at least 2", hits)
	}
}

func TestRoleOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gm   models.GroupMember
		want string
	}{
		{"owner", models.GroupMember{OwnerCheck: models.Yes, LeaderCheck: models.No}, RoleOwner},
		{"owner and leader", models.GroupMember{OwnerCheck: models.Yes, LeaderCheck: models.Yes}, RoleOwner},
		{"leader", models.GroupMember{LeaderCheck: models.Yes}, RoleLeader},
		{"member", models.GroupMember{OwnerCheck: models.No, LeaderCheck: models.No}, RoleMember},
		{"unset flags", models.GroupMember{}, RoleMember},
	}

	for _, tt := range tests {
		if got := RoleOf(&tt.gm); got != tt.want {
			t.Errorf("%s: RoleOf = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	e := newTestEnforcer(t)

	leader := &models.GroupMember{MtIdx: 1, LeaderCheck: models.Yes}
	if err := e.Authorize(leader, ObjSchedule, ActWrite); err != nil {
		t.Errorf("leader schedule write = %v", err)
	}
	if err := e.Authorize(leader, ObjGroup, ActDelete); !errors.Is(err, ErrForbidden) {
		t.Errorf("leader group delete = %v, want ErrForbidden", err)
	}

	departed := &models.GroupMember{MtIdx: 2, OwnerCheck: models.Yes, Exit: models.Yes}
	if err := e.Authorize(departed, ObjGroup, ActRead); !errors.Is(err, ErrForbidden) {
		t.Errorf("departed owner = %v, want ErrForbidden", err)
	}

	if err := e.Authorize(nil, ObjGroup, ActRead); !errors.Is(err, ErrForbidden) {
		t.Errorf("nil membership = %v, want ErrForbidden", err)
	}
}

func TestRoles(t *testing.T) {
	t.Parallel()

	e := newTestEnforcer(t)
	roles := e.Roles(RoleOwner)
	for _, want := range []string{RoleOwner, RoleLeader, RoleMember} {
		if !slices.Contains(roles, want) {
			t.Errorf("Roles(owner) = %v, missing %s", roles, want)
		}
	}
}

func TestLoadEmbeddedPolicy_Malformed(t *testing.T) {
	t.Parallel()

	e := newTestEnforcer(t)
	if err := loadEmbeddedPolicy(e.enforcer, "p, member, group"); err == nil {
		t.Error("expected error for short policy line")
	}
}
