// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestIdxUnmarshal(t *testing.T) {
	t.Parallel()

	var member struct {
		A Idx `json:"a"`
		B Idx `json:"b"`
		C Idx `json:"c"`
		D Idx `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a":12,"b":"34","c":null,"d":""}`), &member); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if member.A != 12 || member.B != 34 || member.C != 0 || member.D != 0 {
		t.Errorf("got %+v", member)
	}

	var bad struct {
		A Idx `json:"a"`
	}
	if err := json.Unmarshal([]byte(`{"a":"x1"}`), &bad); err == nil {
		t.Error("expected error for non-numeric idx")
	}
}

func TestParseIdx(t *testing.T) {
	t.Parallel()

	if id, err := ParseIdx("42"); err != nil || id != 42 {
		t.Errorf("ParseIdx(42) = %d, %v", id, err)
	}
	for _, s := range []string{"", "0", "-3", "abc"} {
		if _, err := ParseIdx(s); err == nil {
			t.Errorf("ParseIdx(%q) should fail", s)
		}
	}
}

func TestDateTimeRoundTrip(t *testing.T) {
	t.Parallel()

	var s Schedule
	body := `{"sst_idx":"5","sst_sdate":"2026-03-01 09:30:00","sst_edate":"2026-03-01T10:30:00+09:00","sst_alram":10}`
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.SDate.Hour() != 9 || s.SDate.Minute() != 30 {
		t.Errorf("SDate = %v", s.SDate)
	}
	if want := s.SDate.Add(-10 * time.Minute); !s.RemindAt().Equal(want) {
		t.Errorf("RemindAt = %v, want %v", s.RemindAt(), want)
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), `"sst_sdate":"2026-03-01 09:30:00"`) {
		t.Errorf("encoded = %s", out)
	}
}

// Not parallel: swaps time.Local.
func TestDateTimeZonedInputKeepsInstant(t *testing.T) {
	saved := time.Local
	time.Local = time.FixedZone("KST", 9*60*60)
	defer func() { time.Local = saved }()

	var l LocationLog
	if err := json.Unmarshal([]byte(`{"mlt_gps_time":"2026-10-18T01:00:00Z"}`), &l); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	out, err := json.Marshal(l.GPSTime)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `"2026-10-18 10:00:00"` {
		t.Errorf("encoded = %s, want backend local time", out)
	}

	var back DateTime
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal encoded: %v", err)
	}
	if !back.Equal(l.GPSTime.Time) {
		t.Errorf("instant shifted by %v", back.Sub(l.GPSTime.Time))
	}
}

func TestDateTimeZeroValues(t *testing.T) {
	t.Parallel()

	var n Notification
	if err := json.Unmarshal([]byte(`{"plt_wdate":"0000-00-00 00:00:00"}`), &n); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !n.Wdate.IsZero() {
		t.Error("zero date should decode to zero time")
	}
	out, _ := json.Marshal(n.Wdate)
	if string(out) != "null" {
		t.Errorf("zero time encodes as %s", out)
	}
}

func TestScheduleRequestRangeError(t *testing.T) {
	t.Parallel()

	start, _ := ParseDateTime("2026-05-01 10:00:00")
	end, _ := ParseDateTime("2026-05-01 11:00:00")
	lat := 37.5

	tests := []struct {
		name string
		req  ScheduleRequest
		want string
	}{
		{"ok", ScheduleRequest{SDate: start, EDate: end}, ""},
		{"same instant", ScheduleRequest{SDate: start, EDate: start}, ""},
		{"missing start", ScheduleRequest{EDate: end}, "sst_sdate is required"},
		{"reversed", ScheduleRequest{SDate: end, EDate: start}, "must not be before"},
		{"lat without lng", ScheduleRequest{SDate: start, EDate: end, LocationLat: &lat}, "sent together"},
	}
	for _, tt := range tests {
		got := tt.req.RangeError()
		if tt.want == "" && got != "" || tt.want != "" && !strings.Contains(got, tt.want) {
			t.Errorf("%s: RangeError() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestAddressLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr Address
		want string
	}{
		{Address{RoadAddress: "서울 중구 세종대로 110", JibunAddress: "서울 중구 태평로1가 31"}, "서울 중구 세종대로 110"},
		{Address{JibunAddress: "서울 중구 태평로1가 31"}, "서울 중구 태평로1가 31"},
		{Address{Region1: "서울특별시", Region3: "태평로1가"}, "서울특별시 태평로1가"},
		{Address{}, ""},
	}
	for _, tt := range tests {
		if got := tt.addr.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
	if !(&Address{Provider: "kakao"}).Empty() {
		t.Error("address with only a provider should be empty")
	}
}

func TestGroupMemberFlags(t *testing.T) {
	t.Parallel()

	gm := GroupMember{MtPushToken: "tok", Exit: No}
	if !gm.Active() || !gm.WantsPush() {
		t.Errorf("expected active member accepting push: %+v", gm)
	}
	gm.MtPushEnable = No
	if gm.WantsPush() {
		t.Error("push disabled member should not want push")
	}
	gm.Exit = Yes
	if gm.Active() {
		t.Error("exited member should not be active")
	}
}
