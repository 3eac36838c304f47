// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/gathermap/config.yaml",
	"/etc/gathermap/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Backend: BackendConfig{
			Timeout:            10 * time.Second,
			MaxRetries:         3,
			MockFallback:       false,
			MembershipCacheTTL: 30 * time.Second,
		},
		Security: SecurityConfig{
			SessionTimeout:           30 * 24 * time.Hour,
			CookieName:               "token",
			CookieSecure:             true,
			CORSOrigins:              []string{"*"},
			RateLimitReqs:            100,
			RateLimitWindow:          time.Minute,
			RequirePhoneVerification: true,
		},
		Verification: VerificationConfig{
			CodeLength:     6,
			CodeTTL:        3 * time.Minute,
			MaxAttempts:    5,
			ResendInterval: 30 * time.Second,
			VerifiedTTL:    30 * time.Minute,
		},
		Geocode: GeocodeConfig{
			Enabled:   true,
			KakaoURL:  "https://dapi.kakao.com",
			NaverURL:  "https://naveropenapi.apigw.ntruss.com",
			Precision: 4,
			CacheTTL:  24 * time.Hour,
			Timeout:   5 * time.Second,
		},
		Push: PushConfig{
			RateLimit: 20,
		},
		SMS: SMSConfig{
			RateLimit: 5,
		},
		Reminder: ReminderConfig{
			Enabled:  true,
			Spec:     "@every 1m",
			LeadTime: 10 * time.Minute,
		},
		WebSocket: WebSocketConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration in three layers:
//  1. defaults from defaultConfig
//  2. optional YAML file
//  3. environment variables (highest priority, explicit name map)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths arrive as comma-separated strings from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Variables not listed are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Backend
	"backend_url":                  "backend.url",
	"backend_api_key":              "backend.api_key",
	"backend_timeout":              "backend.timeout",
	"backend_max_retries":          "backend.max_retries",
	"backend_mock_fallback":        "backend.mock_fallback",
	"backend_membership_cache_ttl": "backend.membership_cache_ttl",

	// Security
	"jwt_secret":                 "security.jwt_secret",
	"session_timeout":            "security.session_timeout",
	"auth_cookie_name":           "security.cookie_name",
	"auth_cookie_secure":         "security.cookie_secure",
	"cors_origins":               "security.cors_origins",
	"rate_limit_requests":        "security.rate_limit_reqs",
	"rate_limit_window":          "security.rate_limit_window",
	"disable_rate_limit":         "security.rate_limit_disabled",
	"require_phone_verification": "security.require_phone_verification",

	// Phone verification
	"verify_code_length":     "verification.code_length",
	"verify_code_ttl":        "verification.code_ttl",
	"verify_max_attempts":    "verification.max_attempts",
	"verify_resend_interval": "verification.resend_interval",
	"verify_verified_ttl":    "verification.verified_ttl",

	// Geocode
	"geocode_enabled":     "geocode.enabled",
	"kakao_rest_api_key":  "geocode.kakao_api_key",
	"kakao_api_url":       "geocode.kakao_url",
	"naver_client_id":     "geocode.naver_client_id",
	"naver_client_secret": "geocode.naver_client_secret",
	"naver_api_url":       "geocode.naver_url",
	"geocode_precision":   "geocode.precision",
	"geocode_cache_ttl":   "geocode.cache_ttl",
	"geocode_store_path":  "geocode.store_path",
	"geocode_timeout":     "geocode.timeout",

	// Push
	"push_enabled":    "push.enabled",
	"push_endpoint":   "push.endpoint",
	"push_server_key": "push.server_key",
	"push_rate_limit": "push.rate_limit",

	// SMS
	"sms_enabled":    "sms.enabled",
	"sms_endpoint":   "sms.endpoint",
	"sms_api_key":    "sms.api_key",
	"sms_sender":     "sms.sender",
	"sms_rate_limit": "sms.rate_limit",

	// Reminders
	"reminder_enabled":   "reminder.enabled",
	"reminder_cron":      "reminder.spec",
	"reminder_lead_time": "reminder.lead_time",

	"websocket_enabled": "websocket.enabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path, or ""
// to skip it.
//
//	BACKEND_URL        -> backend.url
//	KAKAO_REST_API_KEY -> geocode.kakao_api_key
//	HTTP_PORT          -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
