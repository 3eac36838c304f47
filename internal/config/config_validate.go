// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate checks that required configuration is present and within bounds.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateVerification(); err != nil {
		return err
	}
	if err := c.validateGeocode(); err != nil {
		return err
	}
	if err := c.validateNotifiers(); err != nil {
		return err
	}
	if err := c.validateReminder(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if err := validateHTTPURL(c.Backend.URL, "BACKEND_URL"); err != nil {
		return err
	}
	if c.Backend.MaxRetries < 0 || c.Backend.MaxRetries > 10 {
		return fmt.Errorf("BACKEND_MAX_RETRIES must be between 0 and 10")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.Backend.MockFallback && c.IsProduction() {
		return fmt.Errorf("BACKEND_MOCK_FALLBACK=true is not allowed when ENVIRONMENT=production")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if c.Security.CookieName == "" {
		return fmt.Errorf("AUTH_COOKIE_NAME must not be empty")
	}
	if c.Security.SessionTimeout < time.Minute {
		return fmt.Errorf("SESSION_TIMEOUT must be at least 1m")
	}
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* is not allowed in production because the session cookie is sent with credentials; " +
			"set explicit origins such as CORS_ORIGINS=https://app.example.com")
	}
	return c.validateRateLimits()
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate one with: openssl rand -base64 32")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS is true when wildcard CORS is configured outside production.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateVerification() error {
	v := c.Verification
	if v.CodeLength < 4 || v.CodeLength > 10 {
		return fmt.Errorf("VERIFY_CODE_LENGTH must be between 4 and 10")
	}
	if v.CodeTTL <= 0 || v.VerifiedTTL <= 0 {
		return fmt.Errorf("VERIFY_CODE_TTL and VERIFY_VERIFIED_TTL must be positive")
	}
	if v.MaxAttempts < 1 {
		return fmt.Errorf("VERIFY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Security.RequirePhoneVerification && !c.SMS.Enabled && c.IsProduction() {
		return fmt.Errorf("REQUIRE_PHONE_VERIFICATION=true needs SMS_ENABLED=true in production")
	}
	return nil
}

func (c *Config) validateGeocode() error {
	g := c.Geocode
	if !g.Enabled {
		return nil
	}
	if g.Precision < 1 || g.Precision > 6 {
		return fmt.Errorf("GEOCODE_PRECISION must be between 1 and 6")
	}
	if g.CacheTTL <= 0 {
		return fmt.Errorf("GEOCODE_CACHE_TTL must be positive")
	}
	if g.KakaoAPIKey != "" {
		if err := validateHTTPURL(g.KakaoURL, "KAKAO_API_URL"); err != nil {
			return err
		}
	}
	if g.NaverClientID != "" {
		if g.NaverClientSecret == "" {
			return fmt.Errorf("NAVER_CLIENT_SECRET is required when NAVER_CLIENT_ID is set")
		}
		if err := validateHTTPURL(g.NaverURL, "NAVER_API_URL"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateNotifiers() error {
	if c.Push.Enabled {
		if c.Push.Endpoint == "" || c.Push.ServerKey == "" {
			return fmt.Errorf("PUSH_ENDPOINT and PUSH_SERVER_KEY are required when PUSH_ENABLED=true")
		}
		if _, err := url.ParseRequestURI(c.Push.Endpoint); err != nil {
			return fmt.Errorf("PUSH_ENDPOINT is invalid: %w", err)
		}
	}
	if c.SMS.Enabled {
		if c.SMS.Endpoint == "" || c.SMS.Sender == "" {
			return fmt.Errorf("SMS_ENDPOINT and SMS_SENDER are required when SMS_ENABLED=true")
		}
		if _, err := url.ParseRequestURI(c.SMS.Endpoint); err != nil {
			return fmt.Errorf("SMS_ENDPOINT is invalid: %w", err)
		}
	}
	if c.Push.RateLimit <= 0 || c.SMS.RateLimit <= 0 {
		return fmt.Errorf("PUSH_RATE_LIMIT and SMS_RATE_LIMIT must be positive")
	}
	return nil
}

// cronParser accepts standard five-field expressions and descriptors like @every 1m.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func (c *Config) validateReminder() error {
	if !c.Reminder.Enabled {
		return nil
	}
	if _, err := cronParser.Parse(c.Reminder.Spec); err != nil {
		return fmt.Errorf("REMINDER_CRON is invalid: %w", err)
	}
	if c.Reminder.LeadTime < time.Minute {
		return fmt.Errorf("REMINDER_LEAD_TIME must be at least 1m")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// IsProduction reports ENVIRONMENT=production (or prod).
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// validateHTTPURL requires an http(s) base URL without path or query.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}
	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}
	return nil
}

var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
