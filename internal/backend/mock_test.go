// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package backend

import (
	"testing"

	"github.com/tomtom215/gathermap/internal/models"
)

func TestMockEchoesWithGeneratedIdx(t *testing.T) {
	t.Parallel()

	resp, ok := Mock(Request{
		Operation: OpGroupCreate,
		Body:      &models.CreateGroupRequest{SgtTitle: "Family"},
		MemberIdx: 9,
	})
	if !ok || !resp.Mock {
		t.Fatalf("Mock = %+v, %v", resp, ok)
	}

	group, err := Typed[models.Group](resp, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if group.SgtTitle != "Family" || group.SgtIdx <= 900000 || group.SgtOwnerIdx != 9 {
		t.Errorf("group = %+v", group)
	}
}

func TestMockNeverEchoesPasswords(t *testing.T) {
	t.Parallel()

	resp, _ := Mock(Request{
		Operation: OpJoin,
		Body:      &models.JoinRequest{MtHp: "01012345678", Password: "secret-pass", MtName: "Kim"},
	})
	var out map[string]interface{}
	if err := resp.Decode(&out); err != nil {
		t.Fatal(err)
	}
	if _, leaked := out["mt_pass"]; leaked {
		t.Error("mock echoed mt_pass")
	}
	if out["mt_name"] != "Kim" {
		t.Errorf("echo = %v", out)
	}
}

func TestMockListsAreEmpty(t *testing.T) {
	t.Parallel()

	for _, op := range []string{OpGroupsList, OpLocationsLatest, OpSchedulesList, OpNotificationsList, OpSchedulesUpcoming} {
		resp, ok := Mock(Request{Operation: op})
		if !ok {
			t.Errorf("%s: no mock", op)
			continue
		}
		if string(resp.Data) != "[]" {
			t.Errorf("%s: data = %s, want []", op, resp.Data)
		}
	}
}

func TestMockUnknownOperation(t *testing.T) {
	t.Parallel()

	if _, ok := Mock(Request{Operation: "nope"}); ok {
		t.Error("unknown operation should have no mock")
	}
}

func TestPathIdx(t *testing.T) {
	t.Parallel()

	if got := pathIdx("/groups/12/members/4", "groups"); got != 12 {
		t.Errorf("groups idx = %d", got)
	}
	if got := pathIdx("/groups/12/members/4", "members"); got != 4 {
		t.Errorf("members idx = %d", got)
	}
	if got := pathIdx("/groups", "groups"); got != 0 {
		t.Errorf("missing idx = %d", got)
	}
}
