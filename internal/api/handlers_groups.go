// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"net/http"
	"net/url"

	"github.com/tomtom215/gathermap/internal/authz"
	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/models"
	ws "github.com/tomtom215/gathermap/internal/websocket"
)

// roleRank orders roles for kick decisions: a caller may only remove members
// ranked below them.
var roleRank = map[string]int{
	authz.RoleMember: 1,
	authz.RoleLeader: 2,
	authz.RoleOwner:  3,
}

// MemberEvent is the websocket payload of member_joined and member_left.
type MemberEvent struct {
	SgtIdx models.Idx `json:"sgt_idx"`
	MtIdx  models.Idx `json:"mt_idx"`
	Reason string     `json:"reason,omitempty"`
}

// ListGroups lists the caller's groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpGroupsList,
		Method:    http.MethodGet,
		Path:      backend.GroupsPath,
		Query:     url.Values{"mt_idx": {claims.MtIdx.String()}},
		MemberIdx: claims.MtIdx,
	})
}

// CreateGroup creates a group owned by the caller.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	req, ok := decodeBody[models.CreateGroupRequest](w, r)
	if !ok {
		return
	}

	if _, ok := h.forward(w, r, http.StatusCreated, backend.Request{
		Operation: backend.OpGroupCreate,
		Method:    http.MethodPost,
		Path:      backend.GroupsPath,
		Body:      req,
		MemberIdx: claims.MtIdx,
	}); ok {
		h.memberships.InvalidateMember(claims.MtIdx)
	}
}

// JoinGroup adds the caller to the group with the given invite code.
func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	req, ok := decodeBody[models.JoinGroupRequest](w, r)
	if !ok {
		return
	}

	var gm models.GroupMember
	resp, err := h.callInto(r.Context(), backend.Request{
		Operation: backend.OpGroupJoin,
		Method:    http.MethodPost,
		Path:      backend.GroupJoinPath,
		Body:      req,
		MemberIdx: claims.MtIdx,
	}, &gm)
	if err != nil {
		h.respondBackendError(w, r, err)
		return
	}

	h.memberships.InvalidateMember(claims.MtIdx)
	if gm.SgtIdx > 0 {
		h.memberships.InvalidateGroup(gm.SgtIdx)
		h.publish(gm.SgtIdx, ws.MessageTypeMemberJoined, MemberEvent{SgtIdx: gm.SgtIdx, MtIdx: claims.MtIdx})
	}
	respondData(w, r, http.StatusCreated, gm, resp)
}

// GetGroup returns one group.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjGroup, authz.ActRead)
	if !ok {
		return
	}
	h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpGroupGet,
		Method:    http.MethodGet,
		Path:      backend.GroupPath(access.sgtIdx),
		MemberIdx: access.claims.MtIdx,
	})
}

// UpdateGroup edits a group's title or memo. Leaders and the owner only.
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjGroup, authz.ActWrite)
	if !ok {
		return
	}
	req, ok := decodeBody[models.UpdateGroupRequest](w, r)
	if !ok {
		return
	}
	h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpGroupUpdate,
		Method:    http.MethodPut,
		Path:      backend.GroupPath(access.sgtIdx),
		Body:      req,
		MemberIdx: access.claims.MtIdx,
	})
}

// DeleteGroup deletes a group. Owner only.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjGroup, authz.ActDelete)
	if !ok {
		return
	}

	members, _ := h.memberships.Members(r.Context(), access.claims.MtIdx, access.sgtIdx)
	if _, ok := h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpGroupDelete,
		Method:    http.MethodDelete,
		Path:      backend.GroupPath(access.sgtIdx),
		MemberIdx: access.claims.MtIdx,
	}); !ok {
		return
	}

	h.memberships.ForgetGroup(access.sgtIdx)
	for _, gm := range members {
		h.publish(access.sgtIdx, ws.MessageTypeMemberLeft, MemberEvent{SgtIdx: access.sgtIdx, MtIdx: gm.MtIdx, Reason: "group_deleted"})
		h.leaveRoom(access.sgtIdx, gm.MtIdx)
	}
	logging.Ctx(r.Context()).Info().Int64("sgt_idx", int64(access.sgtIdx)).Msg("Group deleted")
	h.audit.GroupDeleted(r, access.claims.MtIdx, access.sgtIdx)
}

// ListGroupMembers lists the active members of a group. Push tokens are
// stripped from the response.
func (h *Handler) ListGroupMembers(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjMember, authz.ActRead)
	if !ok {
		return
	}

	members, err := h.memberships.Members(r.Context(), access.claims.MtIdx, access.sgtIdx)
	if err != nil {
		h.respondBackendError(w, r, err)
		return
	}

	out := make([]models.GroupMember, len(members))
	for i, gm := range members {
		gm.MtPushToken = ""
		out[i] = gm
	}
	n := len(out)
	NewResponseWriter(w, r).SuccessWithMeta(http.StatusOK, out, &models.Meta{Count: &n})
}

// LeaveGroup removes the caller from a group. The owner cannot leave; the
// group has to be deleted instead.
func (h *Handler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjGroup, authz.ActRead)
	if !ok {
		return
	}
	if access.role == authz.RoleOwner {
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "The group owner cannot leave; delete the group instead", nil)
		return
	}

	h.removeMember(w, r, access, access.member, "left")
}

// KickMember removes another member. Leaders may remove members, the owner
// may remove anyone but themselves.
func (h *Handler) KickMember(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjMember, authz.ActDelete)
	if !ok {
		return
	}
	target, ok := h.targetMember(w, r, access)
	if !ok {
		return
	}

	if target.MtIdx == access.claims.MtIdx {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Use leave to remove yourself", nil)
		return
	}
	if roleRank[authz.RoleOf(target)] >= roleRank[access.role] {
		respondError(w, r, http.StatusForbidden, ErrCodeForbidden, "Cannot remove a member with an equal or higher role", nil)
		return
	}

	if h.removeMember(w, r, access, target, "removed") {
		h.audit.MemberKicked(r, access.claims.MtIdx, access.sgtIdx, target)
	}
}

// SetMemberRole grants or revokes the leader role. Owner only.
func (h *Handler) SetMemberRole(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjMember, authz.ActManage)
	if !ok {
		return
	}
	target, ok := h.targetMember(w, r, access)
	if !ok {
		return
	}
	req, ok := decodeBody[models.MemberRoleRequest](w, r)
	if !ok {
		return
	}
	if target.OwnerCheck.Bool() {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "The owner's role cannot be changed", nil)
		return
	}

	if _, ok := h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpGroupMemberRole,
		Method:    http.MethodPut,
		Path:      backend.GroupMemberRolePath(access.sgtIdx, target.SgdtIdx),
		Body:      map[string]models.YN{"sgdt_leader_chk": models.FromBool(*req.Leader)},
		MemberIdx: access.claims.MtIdx,
	}); ok {
		h.memberships.InvalidateGroup(access.sgtIdx)
		h.audit.RoleChanged(r, access.claims.MtIdx, access.sgtIdx, target, *req.Leader)
	}
}

// targetMember finds the {sgdt_idx} row among the group's active members.
func (h *Handler) targetMember(w http.ResponseWriter, r *http.Request, access *groupAccess) (*models.GroupMember, bool) {
	sgdtIdx, ok := pathIdx(w, r, "sgdt_idx")
	if !ok {
		return nil, false
	}

	members, err := h.memberships.Members(r.Context(), access.claims.MtIdx, access.sgtIdx)
	if err != nil {
		h.respondBackendError(w, r, err)
		return nil, false
	}
	for i := range members {
		if members[i].SgdtIdx == sgdtIdx {
			gm := members[i]
			return &gm, true
		}
	}
	respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Member not found in this group", nil)
	return nil, false
}

// removeMember deletes a membership row, refreshes the caches and closes the
// member's subscription to the group room. It reports whether the backend
// accepted the removal.
func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request, access *groupAccess, target *models.GroupMember, reason string) bool {
	if _, ok := h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpGroupMemberRemove,
		Method:    http.MethodDelete,
		Path:      backend.GroupMemberPath(access.sgtIdx, target.SgdtIdx),
		MemberIdx: access.claims.MtIdx,
	}); !ok {
		return false
	}

	h.memberships.InvalidateGroup(access.sgtIdx)
	h.memberships.InvalidateMember(target.MtIdx)
	h.leaveRoom(access.sgtIdx, target.MtIdx)
	h.publish(access.sgtIdx, ws.MessageTypeMemberLeft, MemberEvent{SgtIdx: access.sgtIdx, MtIdx: target.MtIdx, Reason: reason})

	logging.Ctx(r.Context()).Info().
		Int64("sgt_idx", int64(access.sgtIdx)).
		Int64("target_mt_idx", int64(target.MtIdx)).
		Str("reason", reason).
		Msg("Group member removed")
	return true
}
