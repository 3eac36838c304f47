// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package geocode

import (
	"errors"
	"math"
	"strconv"
)

const (
	// DefaultPrecision keeps 4 decimals, roughly 11 metres.
	DefaultPrecision = 4
	minPrecision     = 1
	maxPrecision     = 6
)

var (
	// ErrInvalidCoordinates is returned for out-of-range coordinates and for
	// 0,0 which phones report when they have no fix.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrNoResult means every provider answered but none had an address.
	ErrNoResult = errors.New("no address for coordinates")

	// ErrUnavailable means no provider could answer.
	ErrUnavailable = errors.New("geocoding unavailable")

	// ErrDisabled is returned when geocoding is switched off or unconfigured.
	ErrDisabled = errors.New("geocoding disabled")
)

// ValidateCoordinates checks ranges and rejects the null island.
func ValidateCoordinates(lat, lng float64) error {
	switch {
	case math.IsNaN(lat) || math.IsNaN(lng):
		return ErrInvalidCoordinates
	case lat < -90 || lat > 90:
		return ErrInvalidCoordinates
	case lng < -180 || lng > 180:
		return ErrInvalidCoordinates
	case lat == 0 && lng == 0:
		return ErrInvalidCoordinates
	}
	return nil
}

// Key rounds a coordinate pair to precision decimals and formats it as
// "lat,lng". Nearby points share a key, which is what makes the cache useful.
// Precision is clamped to 1..6.
func Key(lat, lng float64, precision int) string {
	precision = clampPrecision(precision)
	return formatRounded(lat, precision) + "," + formatRounded(lng, precision)
}

func clampPrecision(p int) int {
	switch {
	case p < minPrecision:
		return minPrecision
	case p > maxPrecision:
		return maxPrecision
	}
	return p
}

func formatRounded(v float64, precision int) string {
	factor := math.Pow10(precision)
	rounded := math.Round(v*factor) / factor
	if rounded == 0 {
		// Collapse -0 so both sides of the equator share a key.
		rounded = 0
	}
	return strconv.FormatFloat(rounded, 'f', precision, 64)
}
