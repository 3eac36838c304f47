// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

// Package scheduler runs the periodic schedule reminder job.
//
// Every cron tick the Reminder asks the backend for schedules starting within
// the configured lead time and, for each schedule whose alarm is due and that
// has not been reminded yet:
//  1. pushes a notification to the members' device tokens
//  2. publishes a schedule message to the group's websocket room
//  3. logs the notification in the backend so it shows in members' inboxes
//
// The Reminder is a suture service; overlapping runs are skipped.
package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/cache"
	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
	"github.com/tomtom215/gathermap/internal/models"
	"github.com/tomtom215/gathermap/internal/notify"
	"github.com/tomtom215/gathermap/internal/websocket"
)

const (
	// DefaultJobTimeout bounds one reminder run.
	DefaultJobTimeout = 45 * time.Second

	// dedupeSlack keeps reminded keys past the longest alarm (one day).
	dedupeSlack = 25 * time.Hour

	reminderTitle = "일정 알림"
)

// Publisher delivers a message to a group room. websocket.Hub implements it.
type Publisher interface {
	Publish(sgtIdx models.Idx, messageType string, data interface{}) bool
}

// ReminderEvent is the websocket payload of a schedule reminder.
type ReminderEvent struct {
	Event    string           `json:"event"`
	Schedule *models.Schedule `json:"schedule"`
}

// Reminder sends schedule reminders on a cron schedule.
type Reminder struct {
	backend   backend.Doer
	pusher    notify.Pusher
	publisher Publisher
	spec      string
	leadTime  time.Duration
	timeout   time.Duration
	reminded  *cache.Cache[struct{}]
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	baseCtx context.Context
}

// NewReminder validates the cron spec and builds the job. publisher may be nil
// when websockets are disabled.
func NewReminder(cfg config.ReminderConfig, b backend.Doer, pusher notify.Pusher, publisher Publisher) (*Reminder, error) {
	if _, err := cron.ParseStandard(cfg.Spec); err != nil {
		return nil, fmt.Errorf("invalid reminder spec %q: %w", cfg.Spec, err)
	}
	leadTime := cfg.LeadTime
	if leadTime <= 0 {
		leadTime = 10 * time.Minute
	}

	return &Reminder{
		backend:   b,
		pusher:    pusher,
		publisher: publisher,
		spec:      cfg.Spec,
		leadTime:  leadTime,
		timeout:   DefaultJobTimeout,
		reminded:  cache.New[struct{}](leadTime + dedupeSlack),
		logger:    logging.WithComponent("reminder"),
		now:       time.Now,
		baseCtx:   context.Background(),
	}, nil
}

// Serve runs the cron loop until ctx is canceled. It implements suture.Service.
func (r *Reminder) Serve(ctx context.Context) error {
	cl := cronLogger{log: r.logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl))
	if _, err := c.AddFunc(r.spec, r.tick); err != nil {
		return fmt.Errorf("schedule reminder job: %w", err)
	}

	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()

	r.logger.Info().Str("spec", r.spec).Dur("lead_time", r.leadTime).Msg("Starting schedule reminder")
	c.Start()

	<-ctx.Done()

	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(r.timeout):
		r.logger.Warn().Msg("Reminder run still in progress at shutdown")
	}
	r.logger.Info().Msg("Schedule reminder stopped")
	return ctx.Err()
}

func (r *Reminder) String() string {
	return "reminder"
}

// Close releases the dedupe cache.
func (r *Reminder) Close() {
	r.reminded.Close()
}

// tick is the cron job.
func (r *Reminder) tick() {
	r.mu.Lock()
	base := r.baseCtx
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, r.timeout)
	defer cancel()
	ctx = logging.ContextWithNewCorrelationID(ctx)

	start := time.Now()
	sent, err := r.RunOnce(ctx)
	switch {
	case err != nil:
		metrics.ReminderRuns.WithLabelValues("error").Inc()
		r.logger.Error().Err(err).Msg("Reminder run failed")
	case sent == 0:
		metrics.ReminderRuns.WithLabelValues("idle").Inc()
	default:
		metrics.ReminderRuns.WithLabelValues("ok").Inc()
		r.logger.Info().Int("reminded", sent).Dur("duration", time.Since(start)).Msg("Reminder run completed")
	}
}

// RunOnce performs one reminder pass and returns the number of schedules
// reminded.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	q := url.Values{}
	q.Set("within", strconv.Itoa(int(r.window()/time.Minute)))

	schedules, err := backend.Typed[[]models.Schedule](r.backend.Do(ctx, backend.Request{
		Operation: backend.OpSchedulesUpcoming,
		Method:    http.MethodGet,
		Path:      backend.UpcomingSchedulesPath,
		Query:     q,
	}))
	if err != nil {
		return 0, fmt.Errorf("fetch upcoming schedules: %w", err)
	}

	now := r.now()
	sent := 0
	for i := range schedules {
		s := &schedules[i]
		if !r.due(s, now) {
			continue
		}
		key := dedupeKey(s)
		if _, done := r.reminded.Get(key); done {
			continue
		}
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if r.remind(ctx, s) {
			r.reminded.Set(key, struct{}{})
			sent++
		}
	}
	return sent, nil
}

// window is how far ahead schedules are fetched: far enough for the longest
// alarm, and at least the lead time for schedules without one.
func (r *Reminder) window() time.Duration {
	return max(r.leadTime, models.MaxAlarmMinutes*time.Minute)
}

// due reports whether s should be reminded at now: not started yet and past
// its alarm time. Schedules without an alarm are due as soon as they fall
// inside the lead time window.
func (r *Reminder) due(s *models.Schedule, now time.Time) bool {
	if s.SDate.IsZero() || !now.Before(s.SDate.Time) {
		return false
	}
	if s.AlarmMinutes > 0 {
		return !now.Before(s.RemindAt())
	}
	return s.SDate.Sub(now) <= r.leadTime
}

// remind delivers one reminder and reports whether it counts as sent.
func (r *Reminder) remind(ctx context.Context, s *models.Schedule) bool {
	log := r.logger.With().Int64("sst_idx", int64(s.SstIdx)).Int64("sgt_idx", int64(s.SgtIdx)).Logger()

	var tokens []string
	recipients := make([]models.Idx, 0, len(s.Recipients))
	for i := range s.Recipients {
		m := &s.Recipients[i]
		if !m.Active() {
			continue
		}
		recipients = append(recipients, m.MtIdx)
		if m.WantsPush() {
			tokens = append(tokens, m.MtPushToken)
		}
	}

	body := fmt.Sprintf("%s · %s 시작", s.Title, s.SDate.Format("15:04"))
	res, err := r.pusher.Push(ctx, tokens, notify.PushMessage{
		Title: reminderTitle,
		Body:  body,
		Data: map[string]string{
			"type":    models.NotificationSchedule,
			"sgt_idx": s.SgtIdx.String(),
			"sst_idx": s.SstIdx.String(),
		},
	})
	if err != nil {
		log.Warn().Err(err).Int("success", res.Success).Int("failure", res.Failure).Msg("Reminder push failed")
		if res.Success == 0 && len(tokens) > 0 {
			return false
		}
	}

	if r.publisher != nil {
		r.publisher.Publish(s.SgtIdx, websocket.MessageTypeSchedule, ReminderEvent{Event: "reminder", Schedule: s})
	}

	_, err = r.backend.Do(ctx, backend.Request{
		Operation: backend.OpNotificationLog,
		Method:    http.MethodPost,
		Path:      backend.NotificationsPath,
		Body: models.NotificationLog{
			Type:       models.NotificationSchedule,
			SgtIdx:     s.SgtIdx,
			SstIdx:     s.SstIdx,
			Title:      reminderTitle,
			Content:    body,
			Recipients: recipients,
			Delivered:  res.Success,
		},
	})
	if err != nil {
		// The push went out; a missing inbox entry is not worth a duplicate push.
		log.Warn().Err(err).Msg("Failed to log reminder notification")
	}

	metrics.RemindersSent.Inc()
	return true
}

func dedupeKey(s *models.Schedule) string {
	return s.SstIdx.String() + "@" + strconv.FormatInt(s.SDate.Unix(), 10)
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
