// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package audit

import (
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
	"github.com/tomtom215/gathermap/internal/models"
)

// Config holds audit logger settings.
type Config struct {
	// MinSeverity drops events below this level.
	MinSeverity Severity

	// BufferSize is the number of events queued for the writer. Events are
	// dropped, and counted, when the queue is full.
	BufferSize int
}

// DefaultConfig keeps every event with a 1000 event queue.
func DefaultConfig() Config {
	return Config{MinSeverity: SeverityInfo, BufferSize: 1000}
}

// Logger writes audit events asynchronously so request handlers never wait
// on log output. A nil *Logger discards everything.
type Logger struct {
	config    Config
	out       zerolog.Logger
	eventChan chan *Event
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger starts the writer goroutine. Events go to out, normally
// logging.WithComponent("audit").
func NewLogger(cfg Config, out zerolog.Logger) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if _, ok := severityOrder[cfg.MinSeverity]; !ok {
		cfg.MinSeverity = SeverityInfo
	}

	l := &Logger{
		config:    cfg,
		out:       out,
		eventChan: make(chan *Event, cfg.BufferSize),
		stopChan:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Drain what was queued before Close.
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to marshal audit event")
		return
	}
	l.out.Log().
		Str("audit_type", string(event.Type)).
		Str("outcome", string(event.Outcome)).
		RawJSON("event", data).
		Msg("Audit event")
}

// Log queues an event, filling ID and Timestamp when empty.
func (l *Logger) Log(event *Event) {
	if l == nil || event == nil {
		return
	}
	if severityOrder[event.Severity] < severityOrder[l.config.MinSeverity] {
		return
	}
	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case <-l.stopChan:
		return
	default:
	}

	select {
	case l.eventChan <- event:
		metrics.AuditEvents.WithLabelValues(string(event.Type), string(event.Outcome)).Inc()
	default:
		metrics.AuditEventsDropped.Inc()
		logging.Warn().Str("event_id", event.ID).Str("audit_type", string(event.Type)).Msg("Audit event buffer full, dropping event")
	}
}

// Close flushes queued events and stops the writer. Later events are
// discarded.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// record fills Source and RequestID from r.
func (l *Logger) record(r *http.Request, event *Event) {
	if l == nil {
		return
	}
	event.Source = SourceFromRequest(r)
	event.RequestID = logging.RequestIDFromContext(r.Context())
	l.Log(event)
}

// LoginSucceeded records a new session.
func (l *Logger) LoginSucceeded(r *http.Request, mtIdx models.Idx) {
	l.record(r, &Event{
		Type:     EventTypeLogin,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    Actor{MtIdx: mtIdx},
	})
}

// LoginFailed records rejected credentials. The login id is masked.
func (l *Logger) LoginFailed(r *http.Request, login string, status int) {
	l.record(r, &Event{
		Type:     EventTypeLoginFailed,
		Severity: SeverityWarning,
		Outcome:  OutcomeFailure,
		Actor:    Actor{Login: MaskLogin(login)},
		Metadata: mustJSON(map[string]int{"backend_status": status}),
	})
}

// LoggedOut records a revoked session.
func (l *Logger) LoggedOut(r *http.Request, mtIdx models.Idx) {
	l.record(r, &Event{
		Type:     EventTypeLogout,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    Actor{MtIdx: mtIdx},
	})
}

// SignedUp records a registration accepted by the backend.
func (l *Logger) SignedUp(r *http.Request, login string) {
	l.record(r, &Event{
		Type:     EventTypeSignup,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    Actor{Login: MaskLogin(login)},
	})
}

// VerificationFailed records a wrong, expired or exhausted code.
func (l *Logger) VerificationFailed(r *http.Request, phone, reason string) {
	severity := SeverityWarning
	if reason == "too_many_attempts" {
		severity = SeverityCritical
	}
	l.record(r, &Event{
		Type:        EventTypeVerifyFailed,
		Severity:    severity,
		Outcome:     OutcomeFailure,
		Actor:       Actor{Login: MaskLogin(phone)},
		Description: reason,
	})
}

// GroupDeleted records the owner deleting a group.
func (l *Logger) GroupDeleted(r *http.Request, actor, sgtIdx models.Idx) {
	l.record(r, &Event{
		Type:     EventTypeGroupDeleted,
		Severity: SeverityWarning,
		Outcome:  OutcomeSuccess,
		Actor:    Actor{MtIdx: actor},
		Target:   &Target{SgtIdx: sgtIdx},
	})
}

// MemberKicked records a member removed by someone else.
func (l *Logger) MemberKicked(r *http.Request, actor, sgtIdx models.Idx, target *models.GroupMember) {
	l.record(r, &Event{
		Type:     EventTypeMemberKicked,
		Severity: SeverityWarning,
		Outcome:  OutcomeSuccess,
		Actor:    Actor{MtIdx: actor},
		Target:   &Target{SgtIdx: sgtIdx, SgdtIdx: target.SgdtIdx, MtIdx: target.MtIdx},
	})
}

// RoleChanged records the leader flag being granted or revoked.
func (l *Logger) RoleChanged(r *http.Request, actor, sgtIdx models.Idx, target *models.GroupMember, leader bool) {
	l.record(r, &Event{
		Type:     EventTypeRoleChanged,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    Actor{MtIdx: actor},
		Target:   &Target{SgtIdx: sgtIdx, SgdtIdx: target.SgdtIdx, MtIdx: target.MtIdx},
		Metadata: mustJSON(map[string]bool{"leader": leader}),
	})
}

// AccessDenied records a casbin denial inside a group.
func (l *Logger) AccessDenied(r *http.Request, actor, sgtIdx models.Idx, role, object, action string) {
	l.record(r, &Event{
		Type:     EventTypeAuthzDenied,
		Severity: SeverityWarning,
		Outcome:  OutcomeFailure,
		Actor:    Actor{MtIdx: actor},
		Target:   &Target{SgtIdx: sgtIdx},
		Metadata: mustJSON(map[string]string{"role": role, "object": object, "action": action}),
	})
}

// SourceFromRequest takes the client address from RemoteAddr, which
// chi's RealIP middleware has already resolved from proxy headers.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Source{IPAddress: ip, UserAgent: r.UserAgent()}
}

// MaskLogin keeps the first three and last two characters of a login id or
// phone number.
func MaskLogin(s string) string {
	if len(s) < 6 {
		return strings.Repeat("*", len(s))
	}
	return s[:3] + strings.Repeat("*", len(s)-5) + s[len(s)-2:]
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

func generateEventID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}
