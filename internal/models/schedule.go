// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package models

import "time"

// Schedule is a row of the backend schedule table (smap_schedule_t).
// AlarmMinutes is how long before SDate the reminder fires; zero disables it.
type Schedule struct {
	SstIdx        Idx      `json:"sst_idx"`
	SgtIdx        Idx      `json:"sgt_idx"`
	MtIdx         Idx      `json:"mt_idx"`
	Title         string   `json:"sst_title"`
	Memo          string   `json:"sst_memo,omitempty"`
	LocationTitle string   `json:"sst_location_title,omitempty"`
	LocationAddr  string   `json:"sst_location_add,omitempty"`
	LocationLat   *float64 `json:"sst_location_lat,omitempty"`
	LocationLng   *float64 `json:"sst_location_long,omitempty"`
	SDate         DateTime `json:"sst_sdate"`
	EDate         DateTime `json:"sst_edate"`
	AlarmMinutes  int      `json:"sst_alram"`
	AllDay        YN       `json:"sst_all_day,omitempty"`
	// Recipients is filled by the backend's upcoming-schedules endpoint only.
	Recipients []GroupMember `json:"recipients,omitempty"`
}

// MaxAlarmMinutes is the longest sst_alram a schedule may carry.
const MaxAlarmMinutes = 1440

// RemindAt is when the reminder for this schedule is due.
func (s *Schedule) RemindAt() time.Time {
	return s.SDate.Add(-time.Duration(s.AlarmMinutes) * time.Minute)
}

// ScheduleRequest is the body of schedule create and update.
type ScheduleRequest struct {
	Title         string   `json:"sst_title" validate:"required,max=100"`
	Memo          string   `json:"sst_memo,omitempty" validate:"omitempty,max=1000"`
	LocationTitle string   `json:"sst_location_title,omitempty" validate:"omitempty,max=100"`
	LocationAddr  string   `json:"sst_location_add,omitempty" validate:"omitempty,max=200"`
	LocationLat   *float64 `json:"sst_location_lat,omitempty" validate:"omitempty,latitude"`
	LocationLng   *float64 `json:"sst_location_long,omitempty" validate:"omitempty,longitude"`
	SDate         DateTime `json:"sst_sdate"`
	EDate         DateTime `json:"sst_edate"`
	AlarmMinutes  int      `json:"sst_alram" validate:"oneof=0 5 10 30 60 1440"`
	AllDay        bool     `json:"sst_all_day"`
}

// RangeError describes the first problem with the schedule's time range, or
// returns "" when the range is usable. validator cannot compare DateTime
// fields, so handlers call this after ValidateStruct.
func (r *ScheduleRequest) RangeError() string {
	switch {
	case r.SDate.IsZero():
		return "sst_sdate is required"
	case r.EDate.IsZero():
		return "sst_edate is required"
	case r.EDate.Before(r.SDate.Time):
		return "sst_edate must not be before sst_sdate"
	case (r.LocationLat == nil) != (r.LocationLng == nil):
		return "sst_location_lat and sst_location_long must be sent together"
	default:
		return ""
	}
}
