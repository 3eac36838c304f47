// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package models

// Group is a row of the backend group table (smap_group_t).
type Group struct {
	SgtIdx      Idx      `json:"sgt_idx"`
	SgtTitle    string   `json:"sgt_title"`
	SgtCode     string   `json:"sgt_code,omitempty"` // invite code
	SgtMemo     string   `json:"sgt_memo,omitempty"`
	SgtOwnerIdx Idx      `json:"mt_idx"`
	MemberCount int      `json:"member_cnt,omitempty"`
	SgtShow     YN       `json:"sgt_show,omitempty"`
	SgtWdate    DateTime `json:"sgt_wdate"`
}

// GroupMember is a row of the group membership table (smap_group_detail_t)
// joined with the member's display fields.
type GroupMember struct {
	SgdtIdx      Idx    `json:"sgdt_idx"`
	SgtIdx       Idx    `json:"sgt_idx"`
	MtIdx        Idx    `json:"mt_idx"`
	OwnerCheck   YN     `json:"sgdt_owner_chk"`
	LeaderCheck  YN     `json:"sgdt_leader_chk"`
	Show         YN     `json:"sgdt_show,omitempty"`
	Exit         YN     `json:"sgdt_exit,omitempty"`
	MtName       string `json:"mt_name,omitempty"`
	MtNickname   string `json:"mt_nickname,omitempty"`
	MtFile1      string `json:"mt_file1,omitempty"`
	MtPushToken  string `json:"mt_token_id,omitempty"`
	MtPushEnable YN     `json:"mt_push_chk,omitempty"`
}

// Active reports whether the member is still in the group.
func (gm *GroupMember) Active() bool {
	return !gm.Exit.Bool()
}

// WantsPush reports whether a push can be sent to this member. Members that
// never set the flag receive pushes.
func (gm *GroupMember) WantsPush() bool {
	return gm.MtPushToken != "" && gm.MtPushEnable != No
}

// CreateGroupRequest is POST /groups.
type CreateGroupRequest struct {
	SgtTitle string `json:"sgt_title" validate:"required,max=50"`
	SgtMemo  string `json:"sgt_memo,omitempty" validate:"omitempty,max=500"`
}

// UpdateGroupRequest is PUT /groups/{sgt_idx}.
type UpdateGroupRequest struct {
	SgtTitle string `json:"sgt_title,omitempty" validate:"omitempty,max=50"`
	SgtMemo  string `json:"sgt_memo,omitempty" validate:"omitempty,max=500"`
}

// JoinGroupRequest is POST /groups/join.
type JoinGroupRequest struct {
	Code string `json:"sgt_code" validate:"required,alphanum,min=4,max=16"`
}

// MemberRoleRequest is PUT /groups/{sgt_idx}/members/{sgdt_idx}/role.
// Leader is a pointer so an explicit false is distinguishable from a missing field.
type MemberRoleRequest struct {
	Leader *bool `json:"leader" validate:"required"`
}
