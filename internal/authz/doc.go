// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

// Package authz decides what a member may do inside a group, using Casbin.
//
// A member's role in a group comes from the membership row the backend
// returns (see RoleOf); the gateway never stores roles itself. The policy is
// embedded and read-only.
//
// # RBAC Model
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[role_definition]
//	g = _, _
//
//	[policy_effect]
//	e = some(where (p.eft == allow))
//
//	[matchers]
//	m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
//
// # Roles
//
//	owner  ->  leader  ->  member
//
//   - member: read group, member, schedule, location, notification
//   - leader: write group, write/delete schedule, remove members, send notifications
//   - owner: delete group, change member roles
//
// # Usage
//
//	gm, err := memberships.Membership(ctx, claims.MtIdx, sgtIdx)
//	if err := enforcer.Authorize(gm, authz.ObjSchedule, authz.ActWrite); err != nil {
//	    // 403
//	}
package authz
