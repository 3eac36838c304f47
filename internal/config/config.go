// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

// Package config loads gateway configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence
// (environment wins).
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Invalid configuration")
//	}
package config

import (
	"fmt"
	"time"
)

// Config is the complete gateway configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Backend      BackendConfig      `koanf:"backend"`
	Security     SecurityConfig     `koanf:"security"`
	Verification VerificationConfig `koanf:"verification"`
	Geocode      GeocodeConfig      `koanf:"geocode"`
	Push         PushConfig         `koanf:"push"`
	SMS          SMSConfig          `koanf:"sms"`
	Reminder     ReminderConfig     `koanf:"reminder"`
	WebSocket    WebSocketConfig    `koanf:"websocket"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig describes the external service that owns members, groups,
// locations, schedules and notification logs.
//
// Environment Variables:
//   - BACKEND_URL: base URL, e.g. https://api.example.com (required)
//   - BACKEND_API_KEY: sent as X-API-Key when set
//   - BACKEND_TIMEOUT: per-attempt timeout (default: 10s)
//   - BACKEND_MAX_RETRIES: retries on 429/502/503/504 (default: 3)
//   - BACKEND_MOCK_FALLBACK: serve canned responses while the backend is down (default: false)
//   - BACKEND_MEMBERSHIP_CACHE_TTL: how long group roles are cached (default: 30s)
type BackendConfig struct {
	URL                string        `koanf:"url"`
	APIKey             string        `koanf:"api_key"`
	Timeout            time.Duration `koanf:"timeout"`
	MaxRetries         int           `koanf:"max_retries"`
	MockFallback       bool          `koanf:"mock_fallback"`
	MembershipCacheTTL time.Duration `koanf:"membership_cache_ttl"`
}

// SecurityConfig holds session and request-limiting settings.
type SecurityConfig struct {
	JWTSecret                string        `koanf:"jwt_secret"`
	SessionTimeout           time.Duration `koanf:"session_timeout"`
	CookieName               string        `koanf:"cookie_name"`
	CookieSecure             bool          `koanf:"cookie_secure"`
	CORSOrigins              []string      `koanf:"cors_origins"`
	RateLimitReqs            int           `koanf:"rate_limit_reqs"`
	RateLimitWindow          time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled        bool          `koanf:"rate_limit_disabled"`
	RequirePhoneVerification bool          `koanf:"require_phone_verification"`
}

// VerificationConfig tunes SMS phone verification codes.
type VerificationConfig struct {
	CodeLength     int           `koanf:"code_length"`
	CodeTTL        time.Duration `koanf:"code_ttl"`
	MaxAttempts    int           `koanf:"max_attempts"`
	ResendInterval time.Duration `koanf:"resend_interval"`
	VerifiedTTL    time.Duration `koanf:"verified_ttl"`
}

// GeocodeConfig configures reverse geocoding and its cache.
//
// Precision is the number of decimal places kept when building cache keys.
// 4 places is roughly 11 metres at the equator.
type GeocodeConfig struct {
	Enabled           bool          `koanf:"enabled"`
	KakaoAPIKey       string        `koanf:"kakao_api_key"`
	KakaoURL          string        `koanf:"kakao_url"`
	NaverClientID     string        `koanf:"naver_client_id"`
	NaverClientSecret string        `koanf:"naver_client_secret"`
	NaverURL          string        `koanf:"naver_url"`
	Precision         int           `koanf:"precision"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	StorePath         string        `koanf:"store_path"` // empty keeps the persistent tier in memory
	Timeout           time.Duration `koanf:"timeout"`
}

// HasProvider reports whether at least one geocoder is configured.
func (g GeocodeConfig) HasProvider() bool {
	return g.KakaoAPIKey != "" || (g.NaverClientID != "" && g.NaverClientSecret != "")
}

// PushConfig configures the FCM-style push endpoint.
type PushConfig struct {
	Enabled   bool    `koanf:"enabled"`
	Endpoint  string  `koanf:"endpoint"`
	ServerKey string  `koanf:"server_key"`
	RateLimit float64 `koanf:"rate_limit"` // requests per second
}

// SMSConfig configures the SMS gateway used for phone verification.
type SMSConfig struct {
	Enabled   bool    `koanf:"enabled"`
	Endpoint  string  `koanf:"endpoint"`
	APIKey    string  `koanf:"api_key"`
	Sender    string  `koanf:"sender"`
	RateLimit float64 `koanf:"rate_limit"`
}

// ReminderConfig configures the schedule reminder job.
type ReminderConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Spec     string        `koanf:"spec"` // cron expression or descriptor such as "@every 1m"
	LeadTime time.Duration `koanf:"lead_time"`
}

// WebSocketConfig toggles the live location hub.
type WebSocketConfig struct {
	Enabled bool `koanf:"enabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load is the entry point used by main.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
