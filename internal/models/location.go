// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package models

// LocationLog is a row of the backend location log table (member_location_log_t).
type LocationLog struct {
	MltIdx      Idx      `json:"mlt_idx,omitempty"`
	MtIdx       Idx      `json:"mt_idx"`
	Lat         float64  `json:"mlt_lat"`
	Lng         float64  `json:"mlt_long"`
	Accuracy    float64  `json:"mlt_accuacy"`
	Speed       float64  `json:"mlt_speed"`
	Battery     int      `json:"mlt_battery"`
	GPSTime     DateTime `json:"mlt_gps_time"`
	MtName      string   `json:"mt_name,omitempty"`
	MtNickname  string   `json:"mt_nickname,omitempty"`
	MtFile1     string   `json:"mt_file1,omitempty"`
	AddressText string   `json:"address,omitempty"`
}

// LocationRequest is POST /locations, sent by the mobile app every few seconds
// while sharing is on.
type LocationRequest struct {
	Lat      float64  `json:"lat" validate:"latitude"`
	Lng      float64  `json:"lng" validate:"longitude"`
	Accuracy float64  `json:"accuracy" validate:"gte=0,lte=100000"`
	Speed    float64  `json:"speed" validate:"gte=0,lte=1000"`
	Battery  int      `json:"battery" validate:"gte=0,lte=100"`
	GPSTime  DateTime `json:"gps_time"`
}

// IsNullIsland is true for the (0,0) fix devices report before they have a lock.
func (r *LocationRequest) IsNullIsland() bool {
	return r.Lat == 0 && r.Lng == 0
}

// ToLog converts the request into the backend row for mtIdx.
func (r *LocationRequest) ToLog(mtIdx Idx) LocationLog {
	return LocationLog{
		MtIdx:    mtIdx,
		Lat:      r.Lat,
		Lng:      r.Lng,
		Accuracy: r.Accuracy,
		Speed:    r.Speed,
		Battery:  r.Battery,
		GPSTime:  r.GPSTime,
	}
}
