// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package geocode

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tomtom215/gathermap/internal/models"
)

// DefaultKakaoURL is the Kakao Local API base.
const DefaultKakaoURL = "https://dapi.kakao.com"

// KakaoProvider implements Provider using the Kakao Local coord2address API.
// Kakao takes x=longitude, y=latitude.
type KakaoProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewKakaoProvider creates a Kakao provider. An empty baseURL uses DefaultKakaoURL.
func NewKakaoProvider(apiKey, baseURL string, timeout time.Duration) *KakaoProvider {
	if baseURL == "" {
		baseURL = DefaultKakaoURL
	}
	return &KakaoProvider{
		client:  newHTTPClient(timeout),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (p *KakaoProvider) Name() string {
	return "kakao"
}

// Reverse queries /v2/local/geo/coord2address.json.
func (p *KakaoProvider) Reverse(ctx context.Context, lat, lng float64) (*models.Address, error) {
	q := url.Values{}
	q.Set("x", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("y", strconv.FormatFloat(lat, 'f', -1, 64))
	reqURL := p.baseURL + "/v2/local/geo/coord2address.json?" + q.Encode()

	root, err := getJSON(ctx, p.client, p.Name(), reqURL, map[string]string{
		"Authorization": "KakaoAK " + p.apiKey,
	})
	if err != nil {
		return nil, err
	}

	return parseKakao(root)
}

func parseKakao(root gjson.Result) (*models.Address, error) {
	doc := root.Get("documents.0")
	if !doc.Exists() {
		return nil, ErrNoResult
	}

	road := doc.Get("road_address")
	jibun := doc.Get("address")

	addr := &models.Address{
		RoadAddress:  road.Get("address_name").String(),
		JibunAddress: jibun.Get("address_name").String(),
		BuildingName: road.Get("building_name").String(),
		Provider:     "kakao",
	}

	region := jibun
	if !region.Get("region_1depth_name").Exists() {
		region = road
	}
	addr.Region1 = region.Get("region_1depth_name").String()
	addr.Region2 = region.Get("region_2depth_name").String()
	addr.Region3 = region.Get("region_3depth_name").String()

	if addr.Empty() {
		return nil, ErrNoResult
	}
	return addr, nil
}
