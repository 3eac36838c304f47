// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

// Package geocode turns coordinates into Korean street addresses using the
// Kakao and Naver reverse geocoders, behind a memory tier and a persistent
// badger tier.
package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tomtom215/gathermap/internal/models"
)

// Provider defines the interface for reverse geocoding services.
type Provider interface {
	// Reverse returns the address at lat/lng, or ErrNoResult.
	Reverse(ctx context.Context, lat, lng float64) (*models.Address, error)

	// Name returns the provider name for logging and metrics.
	Name() string
}

// maxProviderBody bounds provider responses.
const maxProviderBody = 256 * 1024

// getJSON performs a GET and returns the body when the status is 200 and the
// body is valid JSON.
func getJSON(ctx context.Context, client *http.Client, provider, reqURL string, headers map[string]string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: failed to create request: %w", provider, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: read response: %w", provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "errorMessage").String()
		}
		return gjson.Result{}, fmt.Errorf("%s returned status %d: %s", provider, resp.StatusCode, msg)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s: response is not JSON", provider)
	}
	return gjson.ParseBytes(body), nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
