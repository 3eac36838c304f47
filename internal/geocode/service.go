// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package geocode

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/tomtom215/gathermap/internal/cache"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
	"github.com/tomtom215/gathermap/internal/models"
)

// Tiers reported in Result.Tier and the geocode_lookups_total metric.
const (
	TierMemory   = "memory"
	TierStore    = "store"
	TierProvider = "provider"
	TierMiss     = "miss"
)

// Result is a resolved address and where it came from.
type Result struct {
	Address *models.Address `json:"address"`
	Key     string          `json:"key"`
	Tier    string          `json:"tier"`
}

// Cached reports whether the address was served without a provider call.
func (r *Result) Cached() bool {
	return r.Tier == TierMemory || r.Tier == TierStore
}

// Service resolves coordinates through the memory cache, then the
// persistent store, then the providers, filling both tiers on the way back.
type Service struct {
	provider  Provider
	memory    *cache.Cache[*models.Address]
	store     Store
	precision int
	ttl       time.Duration
}

// NewService creates a geocoding service. store may be nil. A nil provider
// makes every lookup fail with ErrDisabled.
func NewService(provider Provider, store Store, precision int, ttl time.Duration) *Service {
	if precision == 0 {
		precision = DefaultPrecision
	}
	return &Service{
		provider:  provider,
		memory:    cache.New[*models.Address](ttl),
		store:     store,
		precision: clampPrecision(precision),
		ttl:       ttl,
	}
}

// Reverse returns the address for lat/lng.
func (s *Service) Reverse(ctx context.Context, lat, lng float64) (*Result, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, ErrDisabled
	}

	key := Key(lat, lng, s.precision)
	log := logging.Ctx(ctx).With().Str("geo_key", key).Logger()

	if addr, ok := s.memory.Get(key); ok {
		metrics.GeocodeLookups.WithLabelValues(TierMemory).Inc()
		return &Result{Address: addr, Key: key, Tier: TierMemory}, nil
	}

	if s.store != nil {
		addr, err := s.store.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("Geocode store read failed")
		}
		if addr != nil {
			s.memory.Set(key, addr)
			metrics.GeocodeLookups.WithLabelValues(TierStore).Inc()
			return &Result{Address: addr, Key: key, Tier: TierStore}, nil
		}
	}

	// Providers see the rounded point so every caller of one key gets the
	// same answer.
	rlat, rlng := roundedPoint(lat, lng, s.precision)
	addr, err := s.provider.Reverse(ctx, rlat, rlng)
	if err != nil {
		if errors.Is(err, ErrNoResult) {
			metrics.GeocodeLookups.WithLabelValues(TierMiss).Inc()
		}
		return nil, err
	}

	s.memory.Set(key, addr)
	if s.store != nil {
		if err := s.store.Put(ctx, key, addr, s.ttl); err != nil {
			log.Warn().Err(err).Msg("Geocode store write failed")
		}
	}

	metrics.GeocodeLookups.WithLabelValues(TierProvider).Inc()
	return &Result{Address: addr, Key: key, Tier: TierProvider}, nil
}

// Close stops the memory sweeper and closes the store.
func (s *Service) Close() error {
	s.memory.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func roundedPoint(lat, lng float64, precision int) (float64, float64) {
	factor := math.Pow10(precision)
	return math.Round(lat*factor) / factor, math.Round(lng*factor) / factor
}
