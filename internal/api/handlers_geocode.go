// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tomtom215/gathermap/internal/geocode"
	"github.com/tomtom215/gathermap/internal/models"
)

// ReverseGeocode resolves ?lat=&lng= to an address. Cached answers carry the
// cache tier in meta.cached.
func (h *Handler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireClaims(w, r); !ok {
		return
	}
	if h.geocoder == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Geocoding is not configured", nil)
		return
	}

	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "lat and lng must be numbers", nil)
		return
	}

	res, err := h.geocoder.Reverse(r.Context(), lat, lng)
	switch {
	case err == nil:
	case errors.Is(err, geocode.ErrInvalidCoordinates):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "lat/lng out of range", nil)
		return
	case errors.Is(err, geocode.ErrNoResult):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "No address found for these coordinates", nil)
		return
	case errors.Is(err, geocode.ErrDisabled):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Geocoding is not configured", nil)
		return
	default:
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Geocoding is temporarily unavailable", err)
		return
	}

	meta := &models.Meta{}
	if res.Cached() {
		meta.Cached = res.Tier
	}
	NewResponseWriter(w, r).SuccessWithMeta(http.StatusOK, res.Address, meta)
}
