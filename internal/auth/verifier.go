// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/gathermap/internal/cache"
	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
)

// Verification errors.
var (
	ErrResendTooSoon    = errors.New("verification code was sent recently")
	ErrCodeExpired      = errors.New("verification code expired or not requested")
	ErrCodeMismatch     = errors.New("verification code does not match")
	ErrTooManyAttempts  = errors.New("too many verification attempts")
	ErrPhoneNotVerified = errors.New("phone number not verified")
)

const (
	defaultCodeLength = 6
	verifyMessage     = "[Gathermap] 인증번호 [%s]를 입력해주세요."
)

// CodeSender delivers a verification text. notify.SMSSender implements it.
type CodeSender interface {
	Send(ctx context.Context, to, text string) error
}

type pendingCode struct {
	hash      []byte
	sentAt    time.Time
	expiresAt time.Time
	attempts  int
}

// Verifier issues and checks SMS verification codes. Only bcrypt hashes of
// codes are held in memory.
type Verifier struct {
	cfg    config.VerificationConfig
	sender CodeSender
	cost   int

	mu       sync.Mutex
	pending  *cache.Cache[*pendingCode]
	verified *cache.Cache[struct{}]

	generate func(length int) (string, error)
	hashCode func(code []byte, cost int) ([]byte, error)
	now      func() time.Time
}

// NewVerifier creates a verifier sending codes through sender.
func NewVerifier(cfg config.VerificationConfig, sender CodeSender) *Verifier {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = defaultCodeLength
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Verifier{
		cfg:      cfg,
		sender:   sender,
		cost:     bcrypt.DefaultCost,
		pending:  cache.New[*pendingCode](cfg.CodeTTL),
		verified: cache.New[struct{}](cfg.VerifiedTTL),
		generate: numericCode,
		hashCode: bcrypt.GenerateFromPassword,
		now:      time.Now,
	}
}

// Send generates a code for phone, stores its hash and texts it. It returns
// when the code expires. The lock covers the cache reads and writes only;
// hashing and delivery run outside it.
func (v *Verifier) Send(ctx context.Context, phone string) (time.Time, error) {
	now := v.now()

	v.mu.Lock()
	if p, ok := v.pending.Get(phone); ok && now.Sub(p.sentAt) < v.cfg.ResendInterval {
		v.mu.Unlock()
		metrics.VerificationEvents.WithLabelValues("throttled").Inc()
		return time.Time{}, ErrResendTooSoon
	}
	// Reserve the slot so concurrent sends for phone are throttled. A
	// reservation without a hash cannot be confirmed.
	p := &pendingCode{sentAt: now, expiresAt: now.Add(v.cfg.CodeTTL)}
	v.pending.Set(phone, p)
	v.mu.Unlock()

	code, err := v.generate(v.cfg.CodeLength)
	if err != nil {
		v.release(phone, p)
		return time.Time{}, fmt.Errorf("generate code: %w", err)
	}
	hash, err := v.hashCode([]byte(code), v.cost)
	if err != nil {
		v.release(phone, p)
		return time.Time{}, fmt.Errorf("hash code: %w", err)
	}

	v.mu.Lock()
	p.hash = hash
	v.mu.Unlock()

	if err := v.sender.Send(ctx, phone, fmt.Sprintf(verifyMessage, code)); err != nil {
		v.release(phone, p)
		metrics.VerificationEvents.WithLabelValues("send_failed").Inc()
		return time.Time{}, fmt.Errorf("send verification code: %w", err)
	}

	metrics.VerificationEvents.WithLabelValues("sent").Inc()
	logging.Ctx(ctx).Info().Str("phone", maskPhone(phone)).Msg("Verification code sent")
	return p.expiresAt, nil
}

// release drops p unless a newer code replaced it.
func (v *Verifier) release(phone string, p *pendingCode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if cur, ok := v.pending.Get(phone); ok && cur == p {
		v.pending.Delete(phone)
	}
}

// Confirm checks code for phone. A match marks the phone verified and
// discards the code; MaxAttempts mismatches discard it as well. The attempt
// is counted before the comparison, so concurrent guesses share the budget.
func (v *Verifier) Confirm(ctx context.Context, phone, code string) error {
	v.mu.Lock()
	p, ok := v.pending.Get(phone)
	if !ok || p.hash == nil || v.now().After(p.expiresAt) {
		v.mu.Unlock()
		metrics.VerificationEvents.WithLabelValues("expired").Inc()
		return ErrCodeExpired
	}
	if p.attempts >= v.cfg.MaxAttempts {
		v.pending.Delete(phone)
		v.mu.Unlock()
		metrics.VerificationEvents.WithLabelValues("locked").Inc()
		return ErrTooManyAttempts
	}
	p.attempts++
	attempts, hash := p.attempts, p.hash
	v.mu.Unlock()

	match := bcrypt.CompareHashAndPassword(hash, []byte(strings.TrimSpace(code))) == nil

	v.mu.Lock()
	defer v.mu.Unlock()
	if cur, ok := v.pending.Get(phone); !ok || cur != p {
		// Confirmed, locked or replaced while comparing.
		metrics.VerificationEvents.WithLabelValues("expired").Inc()
		return ErrCodeExpired
	}

	if !match {
		if attempts >= v.cfg.MaxAttempts {
			v.pending.Delete(phone)
			metrics.VerificationEvents.WithLabelValues("locked").Inc()
			logging.Ctx(ctx).Warn().Str("phone", maskPhone(phone)).Int("attempts", attempts).Msg("Verification locked after repeated mismatches")
			return ErrTooManyAttempts
		}
		metrics.VerificationEvents.WithLabelValues("mismatch").Inc()
		return ErrCodeMismatch
	}

	v.pending.Delete(phone)
	v.verified.Set(phone, struct{}{})
	metrics.VerificationEvents.WithLabelValues("confirmed").Inc()
	return nil
}

// IsVerified reports whether phone passed Confirm within VerifiedTTL.
func (v *Verifier) IsVerified(phone string) bool {
	_, ok := v.verified.Get(phone)
	return ok
}

// Consume clears the verified mark after a successful signup.
func (v *Verifier) Consume(phone string) {
	v.verified.Delete(phone)
}

// Close stops the cache sweepers.
func (v *Verifier) Close() {
	v.pending.Close()
	v.verified.Close()
}

func numericCode(length int) (string, error) {
	var sb strings.Builder
	sb.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

// maskPhone keeps the prefix and the last four digits.
func maskPhone(phone string) string {
	if len(phone) < 8 {
		return "****"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-7) + phone[len(phone)-4:]
}
