// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package notify

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
)

type smsPayload struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
}

// SMSSender posts text messages to an SMS gateway.
type SMSSender struct {
	endpoint string
	apiKey   string
	sender   string
	enabled  bool
	client   *http.Client
	limiter  *rate.Limiter
}

// NewSMSSender creates an SMS sender from configuration.
func NewSMSSender(cfg *config.SMSConfig) *SMSSender {
	return &SMSSender{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		sender:   cfg.Sender,
		enabled:  cfg.Enabled && cfg.Endpoint != "",
		client:   &http.Client{Timeout: defaultTimeout},
		limiter:  newLimiter(cfg.RateLimit),
	}
}

func (s *SMSSender) Name() string {
	return ChannelSMS
}

// Enabled reports whether messages are actually delivered.
func (s *SMSSender) Enabled() bool {
	return s.enabled
}

// Send delivers text to a normalized phone number. When disabled the text is
// written to the debug log instead.
func (s *SMSSender) Send(ctx context.Context, to, text string) error {
	if !s.enabled {
		metrics.RecordNotify(ChannelSMS, ResultSkipped, 1)
		logging.Ctx(ctx).Debug().Str("to", to).Str("text", text).Msg("SMS disabled, message skipped")
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limit: %w", err)
	}

	_, err := postJSON(ctx, s.client, s.endpoint, map[string]string{
		"X-API-Key": s.apiKey,
	}, smsPayload{To: to, From: s.sender, Text: text})
	if err != nil {
		metrics.RecordNotify(ChannelSMS, ResultFailed, 1)
		return fmt.Errorf("sms: %w", err)
	}

	metrics.RecordNotify(ChannelSMS, ResultSent, 1)
	return nil
}
