// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package backend

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gathermap/internal/models"
)

// MockFunc builds a canned payload for a request.
type MockFunc func(req Request) interface{}

// mockIdx hands out identifiers for echoed creations. It starts high so
// demo data is easy to tell apart from real rows.
var mockIdx atomic.Int64

func init() {
	mockIdx.Store(900000)
}

// demoMember is returned wherever the backend would return a member.
func demoMember(req Request) models.Member {
	mtIdx := req.MemberIdx
	if mtIdx == 0 {
		mtIdx = 1
	}
	return models.Member{
		MtIdx:   mtIdx,
		MtID:    "demo",
		MtName:  "Demo",
		MtLevel: 2,
		MtLang:  "ko",
		MtWdate: models.DateTime{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)},
	}
}

func emptyList(Request) interface{} { return []struct{}{} }

func ack(Request) interface{} { return map[string]bool{"ok": true} }

// Mocks maps operation names to canned payloads served while the backend is
// unreachable and mock fallback is enabled.
var Mocks = map[string]MockFunc{
	OpLogin: func(req Request) interface{} {
		m := demoMember(req)
		if body, ok := req.Body.(*models.LoginRequest); ok && body != nil {
			m.MtID = body.MtID
		}
		return m
	},
	OpJoin:         func(req Request) interface{} { return echo(req, "mt_idx") },
	OpMemberGet:    func(req Request) interface{} { return demoMember(req) },
	OpMemberUpdate: func(req Request) interface{} { return echo(req, "mt_idx") },
	OpPushToken:    ack,

	OpGroupsList:  emptyList,
	OpGroupCreate: func(req Request) interface{} { return echo(req, "sgt_idx") },
	OpGroupGet: func(req Request) interface{} {
		return models.Group{SgtIdx: pathIdx(req.Path, "groups"), SgtTitle: "Demo group", SgtOwnerIdx: req.MemberIdx, MemberCount: 1}
	},
	OpGroupUpdate: func(req Request) interface{} { return echo(req, "sgt_idx") },
	OpGroupDelete: ack,
	OpGroupJoin:   func(req Request) interface{} { return echo(req, "sgdt_idx") },
	// The caller owns every demo group so role checks pass.
	OpGroupMembers: func(req Request) interface{} {
		return []models.GroupMember{{
			SgdtIdx:     1,
			SgtIdx:      pathIdx(req.Path, "groups"),
			MtIdx:       req.MemberIdx,
			OwnerCheck:  models.Yes,
			LeaderCheck: models.No,
			MtName:      "Demo",
		}}
	},
	OpGroupMemberRemove: ack,
	OpGroupMemberRole:   ack,

	OpLocationCreate:   func(req Request) interface{} { return echo(req, "mlt_idx") },
	OpLocationsLatest:  emptyList,
	OpLocationsHistory: emptyList,

	OpSchedulesList:     emptyList,
	OpScheduleCreate:    func(req Request) interface{} { return echo(req, "sst_idx") },
	OpScheduleUpdate:    func(req Request) interface{} { return echo(req, "sst_idx") },
	OpScheduleDelete:    ack,
	OpSchedulesUpcoming: emptyList,

	OpNotificationsList: emptyList,
	OpNotificationRead:  ack,
	OpNotificationLog:   func(req Request) interface{} { return echo(req, "plt_idx") },
}

// Mock returns the canned response for req, or false when the operation has
// no fallback.
func Mock(req Request) (*Response, bool) {
	fn, ok := Mocks[req.Operation]
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(fn(req))
	if err != nil {
		return nil, false
	}
	return &Response{Status: http.StatusOK, Data: data, Mock: true}, true
}

// echo returns the submitted body as an object with a generated identifier
// under idxField.
func echo(req Request, idxField string) map[string]interface{} {
	out := map[string]interface{}{}
	if req.Body != nil {
		if raw, err := json.Marshal(req.Body); err == nil {
			_ = json.Unmarshal(raw, &out)
		}
	}
	if out == nil {
		out = map[string]interface{}{}
	}
	delete(out, "mt_pass")
	out[idxField] = mockIdx.Add(1)
	if req.MemberIdx > 0 {
		if _, set := out["mt_idx"]; !set {
			out["mt_idx"] = int64(req.MemberIdx)
		}
	}
	return out
}

// pathIdx extracts the identifier following segment in path.
func pathIdx(path, segment string) models.Idx {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == segment {
			if idx, err := models.ParseIdx(parts[i+1]); err == nil {
				return idx
			}
		}
	}
	return 0
}
