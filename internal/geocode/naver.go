// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tomtom215/gathermap/internal/models"
)

// DefaultNaverURL is the NCP Maps API gateway.
const DefaultNaverURL = "https://naveropenapi.apigw.ntruss.com"

// naverNoResults is status.code for "no results".
const naverNoResults = 3

// NaverProvider implements Provider using the NCP reverse geocoding API.
type NaverProvider struct {
	client       *http.Client
	clientID     string
	clientSecret string
	baseURL      string
}

// NewNaverProvider creates a Naver provider. An empty baseURL uses DefaultNaverURL.
func NewNaverProvider(clientID, clientSecret, baseURL string, timeout time.Duration) *NaverProvider {
	if baseURL == "" {
		baseURL = DefaultNaverURL
	}
	return &NaverProvider{
		client:       newHTTPClient(timeout),
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

func (p *NaverProvider) Name() string {
	return "naver"
}

// Reverse queries /map-reversegeocode/v2/gc with coords=lng,lat.
func (p *NaverProvider) Reverse(ctx context.Context, lat, lng float64) (*models.Address, error) {
	q := url.Values{}
	q.Set("coords", strconv.FormatFloat(lng, 'f', -1, 64)+","+strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("orders", "roadaddr,addr")
	q.Set("output", "json")
	reqURL := p.baseURL + "/map-reversegeocode/v2/gc?" + q.Encode()

	root, err := getJSON(ctx, p.client, p.Name(), reqURL, map[string]string{
		"X-NCP-APIGW-API-KEY-ID": p.clientID,
		"X-NCP-APIGW-API-KEY":    p.clientSecret,
	})
	if err != nil {
		return nil, err
	}

	return parseNaver(root)
}

func parseNaver(root gjson.Result) (*models.Address, error) {
	switch code := root.Get("status.code").Int(); code {
	case 0:
	case naverNoResults:
		return nil, ErrNoResult
	default:
		return nil, fmt.Errorf("naver status %d: %s", code, root.Get("status.message").String())
	}

	addr := &models.Address{Provider: "naver"}
	for _, result := range root.Get("results").Array() {
		region := result.Get("region")
		if addr.Region1 == "" {
			addr.Region1 = region.Get("area1.name").String()
			addr.Region2 = region.Get("area2.name").String()
			addr.Region3 = region.Get("area3.name").String()
		}

		land := result.Get("land")
		switch result.Get("name").String() {
		case "roadaddr":
			addr.RoadAddress = joinNonEmpty(
				region.Get("area1.name").String(),
				region.Get("area2.name").String(),
				land.Get("name").String(),
				landNumber(land),
			)
			if land.Get("addition0.type").String() == "building" {
				addr.BuildingName = land.Get("addition0.value").String()
			}
		case "addr":
			number := landNumber(land)
			if land.Get("type").String() == "2" {
				number = "산 " + number
			}
			addr.JibunAddress = joinNonEmpty(
				region.Get("area1.name").String(),
				region.Get("area2.name").String(),
				region.Get("area3.name").String(),
				region.Get("area4.name").String(),
				number,
			)
		}
	}

	if addr.Empty() {
		return nil, ErrNoResult
	}
	return addr, nil
}

// landNumber formats number1-number2 ("12-3"), or just number1.
func landNumber(land gjson.Result) string {
	n1 := land.Get("number1").String()
	n2 := land.Get("number2").String()
	if n2 == "" || n2 == "0" {
		return n1
	}
	return n1 + "-" + n2
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
