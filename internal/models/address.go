// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package models

// Address is a reverse-geocoding result.
type Address struct {
	RoadAddress  string `json:"road_address,omitempty"`
	JibunAddress string `json:"jibun_address,omitempty"`
	Region1      string `json:"region_1depth,omitempty"` // province / metropolitan city
	Region2      string `json:"region_2depth,omitempty"` // city / district
	Region3      string `json:"region_3depth,omitempty"` // neighbourhood
	BuildingName string `json:"building_name,omitempty"`
	Provider     string `json:"provider"`
}

// Label is the best single-line description: road address, then lot-number
// address, then the region names.
func (a *Address) Label() string {
	switch {
	case a.RoadAddress != "":
		return a.RoadAddress
	case a.JibunAddress != "":
		return a.JibunAddress
	}
	label := a.Region1
	for _, part := range []string{a.Region2, a.Region3} {
		if part == "" {
			continue
		}
		if label != "" {
			label += " "
		}
		label += part
	}
	return label
}

// Empty reports whether the result carries nothing usable.
func (a *Address) Empty() bool {
	return a.Label() == ""
}
