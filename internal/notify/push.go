// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
)

// MaxPushBatch is the registration id limit of one push request.
const MaxPushBatch = 500

// PushMessage is the notification shown on the device plus optional data.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushResult counts recipients by outcome.
type PushResult struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Skipped int `json:"skipped"`
}

func (r *PushResult) add(o PushResult) {
	r.Success += o.Success
	r.Failure += o.Failure
	r.Skipped += o.Skipped
}

// Pusher delivers a push message to device tokens.
type Pusher interface {
	Push(ctx context.Context, tokens []string, msg PushMessage) (PushResult, error)
}

type pushPayload struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    pushNotification  `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushSender posts FCM-style multicast requests.
type PushSender struct {
	endpoint  string
	serverKey string
	enabled   bool
	client    *http.Client
	limiter   *rate.Limiter
}

// NewPushSender creates a push sender from configuration.
func NewPushSender(cfg *config.PushConfig) *PushSender {
	return &PushSender{
		endpoint:  cfg.Endpoint,
		serverKey: cfg.ServerKey,
		enabled:   cfg.Enabled && cfg.Endpoint != "",
		client:    &http.Client{Timeout: defaultTimeout},
		limiter:   newLimiter(cfg.RateLimit),
	}
}

func (s *PushSender) Name() string {
	return ChannelPush
}

// Enabled reports whether messages are actually delivered.
func (s *PushSender) Enabled() bool {
	return s.enabled
}

// Push sends msg to every distinct non-empty token, MaxPushBatch at a time.
// A failing batch counts its tokens as failures; the remaining batches are
// still attempted and the batch errors are joined.
func (s *PushSender) Push(ctx context.Context, tokens []string, msg PushMessage) (PushResult, error) {
	tokens = uniqueTokens(tokens)
	var total PushResult
	if len(tokens) == 0 {
		return total, nil
	}

	if !s.enabled {
		total.Skipped = len(tokens)
		metrics.RecordNotify(ChannelPush, ResultSkipped, total.Skipped)
		logging.Ctx(ctx).Debug().Int("recipients", total.Skipped).Str("title", msg.Title).Msg("Push disabled, message skipped")
		return total, nil
	}

	var errs []error
	for start := 0; start < len(tokens); start += MaxPushBatch {
		end := min(start+MaxPushBatch, len(tokens))
		batch := tokens[start:end]

		res, err := s.sendBatch(ctx, batch, msg)
		if err != nil {
			if ctx.Err() != nil {
				// Unsent batches are neither delivered nor failed.
				res.Skipped = len(tokens) - start
				total.add(res)
				metrics.RecordNotify(ChannelPush, ResultSkipped, res.Skipped)
				errs = append(errs, ctx.Err())
				break
			}
			res = PushResult{Failure: len(batch)}
			errs = append(errs, err)
		}
		total.add(res)
		metrics.RecordNotify(ChannelPush, ResultSent, res.Success)
		metrics.RecordNotify(ChannelPush, ResultFailed, res.Failure)
	}

	if err := errors.Join(errs...); err != nil {
		return total, fmt.Errorf("push: %w", err)
	}
	return total, nil
}

func (s *PushSender) sendBatch(ctx context.Context, batch []string, msg PushMessage) (PushResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return PushResult{}, err
	}

	body, err := postJSON(ctx, s.client, s.endpoint, map[string]string{
		"Authorization": "key=" + s.serverKey,
	}, pushPayload{
		RegistrationIDs: batch,
		Notification:    pushNotification{Title: msg.Title, Body: msg.Body},
		Data:            msg.Data,
	})
	if err != nil {
		return PushResult{}, err
	}

	return parsePushResult(body, len(batch)), nil
}

// parsePushResult reads success/failure counts. Endpoints that acknowledge
// without counts are taken to have delivered the whole batch.
func parsePushResult(body []byte, n int) PushResult {
	success := gjson.GetBytes(body, "success")
	failure := gjson.GetBytes(body, "failure")
	if !success.Exists() && !failure.Exists() {
		return PushResult{Success: n}
	}

	res := PushResult{Success: int(success.Int()), Failure: int(failure.Int())}
	if res.Success+res.Failure > n {
		res.Success = max(n-res.Failure, 0)
		res.Failure = n - res.Success
	}
	return res
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
