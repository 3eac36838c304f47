// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
	"github.com/tomtom215/gathermap/internal/models"
)

// providerBreakerTimeout is how long a tripped provider is skipped.
const providerBreakerTimeout = time.Minute

type guardedProvider struct {
	Provider
	cb *gobreaker.CircuitBreaker[*models.Address]
}

// Chain tries providers in order, each behind its own circuit breaker, and
// returns the first address found. It implements Provider.
type Chain struct {
	providers []guardedProvider
}

// NewChain wraps providers. Order is preserved.
func NewChain(providers ...Provider) *Chain {
	c := &Chain{providers: make([]guardedProvider, 0, len(providers))}
	for _, p := range providers {
		c.providers = append(c.providers, guardedProvider{
			Provider: p,
			cb:       backend.NewBreaker[*models.Address]("geocode-"+p.Name(), providerBreakerTimeout, noResultIsSuccess),
		})
	}
	return c
}

// NewProviders builds the configured providers, Kakao first.
func NewProviders(cfg *config.GeocodeConfig) []Provider {
	var providers []Provider
	if cfg.KakaoAPIKey != "" {
		providers = append(providers, NewKakaoProvider(cfg.KakaoAPIKey, cfg.KakaoURL, cfg.Timeout))
	}
	if cfg.NaverClientID != "" && cfg.NaverClientSecret != "" {
		providers = append(providers, NewNaverProvider(cfg.NaverClientID, cfg.NaverClientSecret, cfg.NaverURL, cfg.Timeout))
	}
	return providers
}

func noResultIsSuccess(err error) bool {
	return err == nil || errors.Is(err, ErrNoResult) || errors.Is(err, context.Canceled)
}

func (c *Chain) Name() string {
	return "chain"
}

// Len returns the number of providers.
func (c *Chain) Len() int {
	return len(c.providers)
}

// Reverse returns ErrNoResult only when every provider answered without an
// address; any provider failure turns an overall miss into ErrUnavailable.
func (c *Chain) Reverse(ctx context.Context, lat, lng float64) (*models.Address, error) {
	if len(c.providers) == 0 {
		return nil, ErrDisabled
	}

	var lastErr error
	for _, p := range c.providers {
		addr, err := p.cb.Execute(func() (*models.Address, error) {
			return p.Reverse(ctx, lat, lng)
		})
		if err == nil {
			return addr, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrNoResult) {
			continue
		}

		metrics.GeocodeProviderErrors.WithLabelValues(p.Name()).Inc()
		logging.Ctx(ctx).Debug().Err(err).Str("provider", p.Name()).Msg("Geocode provider failed")
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}
	return nil, ErrNoResult
}
