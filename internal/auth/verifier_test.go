// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/gathermap/internal/config"
)

type recordingSender struct {
	mu    sync.Mutex
	texts map[string]string
	err   error
}

func (s *recordingSender) Send(_ context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.texts == nil {
		s.texts = make(map[string]string)
	}
	s.texts[to] = text
	return nil
}

func (s *recordingSender) last(to string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.texts[to]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestVerifier(t *testing.T, sender CodeSender) (*Verifier, *fakeClock) {
	t.Helper()
	v := NewVerifier(config.VerificationConfig{
		CodeLength:     6,
		CodeTTL:        3 * time.Minute,
		MaxAttempts:    3,
		ResendInterval: 30 * time.Second,
		VerifiedTTL:    10 * time.Minute,
	}, sender)
	v.cost = bcrypt.MinCost
	v.generate = func(int) (string, error) { return "123456", nil }
	clock := &fakeClock{now: time.Now()}
	v.now = clock.Now
	t.Cleanup(v.Close)
	return v, clock
}

func TestVerifier_SendAndConfirm(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	v, _ := newTestVerifier(t, sender)
	ctx := context.Background()

	if _, err := v.Send(ctx, "01012345678"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if text := sender.last("01012345678"); !strings.Contains(text, "123456") {
		t.Errorf("sms text = %q", text)
	}
	if v.IsVerified("01012345678") {
		t.Fatal("verified before confirm")
	}

	if err := v.Confirm(ctx, "01012345678", " 123456 "); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !v.IsVerified("01012345678") {
		t.Error("phone should be verified")
	}

	// The code is single use.
	if err := v.Confirm(ctx, "01012345678", "123456"); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("second confirm = %v, want ErrCodeExpired", err)
	}

	v.Consume("01012345678")
	if v.IsVerified("01012345678") {
		t.Error("Consume should clear the verified mark")
	}
}

func TestVerifier_ResendThrottle(t *testing.T) {
	t.Parallel()

	v, clock := newTestVerifier(t, &recordingSender{})
	ctx := context.Background()

	if _, err := v.Send(ctx, "01011112222"); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Send(ctx, "01011112222"); !errors.Is(err, ErrResendTooSoon) {
		t.Errorf("immediate resend = %v, want ErrResendTooSoon", err)
	}

	clock.Advance(31 * time.Second)
	if _, err := v.Send(ctx, "01011112222"); err != nil {
		t.Errorf("resend after interval = %v", err)
	}
}

func TestVerifier_AttemptsLockout(t *testing.T) {
	t.Parallel()

	v, _ := newTestVerifier(t, &recordingSender{})
	ctx := context.Background()
	phone := "01033334444"

	if _, err := v.Send(ctx, phone); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := v.Confirm(ctx, phone, "000000"); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("attempt %d = %v, want ErrCodeMismatch", i+1, err)
		}
	}
	if err := v.Confirm(ctx, phone, "000000"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("third attempt = %v, want ErrTooManyAttempts", err)
	}
	if err := v.Confirm(ctx, phone, "123456"); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("correct code after lockout = %v, want ErrCodeExpired", err)
	}
}

func TestVerifier_Expiry(t *testing.T) {
	t.Parallel()

	v, clock := newTestVerifier(t, &recordingSender{})
	ctx := context.Background()

	if _, err := v.Send(ctx, "01055556666"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(4 * time.Minute)

	if err := v.Confirm(ctx, "01055556666", "123456"); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("err = %v, want ErrCodeExpired", err)
	}
}

func TestVerifier_SendFailureAllowsRetry(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{err: errors.New("gateway down")}
	v, _ := newTestVerifier(t, sender)
	ctx := context.Background()

	if _, err := v.Send(ctx, "01077778888"); err == nil {
		t.Fatal("expected send error")
	}

	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()

	if _, err := v.Send(ctx, "01077778888"); err != nil {
		t.Errorf("retry after failed send = %v", err)
	}
}

func TestVerifier_HashingDoesNotBlockOtherPhones(t *testing.T) {
	t.Parallel()

	v, _ := newTestVerifier(t, &recordingSender{})
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	v.hashCode = func(code []byte, cost int) ([]byte, error) {
		first := false
		once.Do(func() { first = true })
		if first {
			close(entered)
			<-release
		}
		return bcrypt.GenerateFromPassword(code, cost)
	}

	slowDone := make(chan error, 1)
	go func() {
		_, err := v.Send(ctx, "01010001000")
		slowDone <- err
	}()
	<-entered

	// The same phone is throttled by the reservation while it hashes.
	if _, err := v.Send(ctx, "01010001000"); !errors.Is(err, ErrResendTooSoon) {
		t.Errorf("concurrent resend = %v, want ErrResendTooSoon", err)
	}
	if err := v.Confirm(ctx, "01010001000", "123456"); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("confirm before hash = %v, want ErrCodeExpired", err)
	}

	otherDone := make(chan error, 1)
	go func() {
		_, err := v.Send(ctx, "01020002000")
		otherDone <- err
	}()
	select {
	case err := <-otherDone:
		if err != nil {
			t.Errorf("other phone Send = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send for another phone waited on an unrelated hash")
	}

	close(release)
	if err := <-slowDone; err != nil {
		t.Fatalf("slow Send = %v", err)
	}
	if err := v.Confirm(ctx, "01010001000", "123456"); err != nil {
		t.Errorf("Confirm after hash = %v", err)
	}
}

func TestVerifier_ConcurrentGuessesShareBudget(t *testing.T) {
	t.Parallel()

	v, _ := newTestVerifier(t, &recordingSender{})
	ctx := context.Background()
	phone := "01030003000"
	if _, err := v.Send(ctx, phone); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- v.Confirm(ctx, phone, "000000")
		}()
	}
	wg.Wait()
	close(errs)

	mismatches := 0
	for err := range errs {
		if errors.Is(err, ErrCodeMismatch) {
			mismatches++
		}
	}
	// MaxAttempts is 3: at most two plain mismatches before the lockout.
	if mismatches > 2 {
		t.Errorf("mismatches = %d, want at most 2", mismatches)
	}
	if err := v.Confirm(ctx, phone, "123456"); err == nil {
		t.Error("correct code accepted after the attempt budget was spent")
	}
}

func TestNumericCode(t *testing.T) {
	t.Parallel()

	for i := 0; i < 20; i++ {
		code, err := numericCode(6)
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 6 || strings.Trim(code, "0123456789") != "" {
			t.Fatalf("code = %q", code)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	t.Parallel()

	if got := maskPhone("01012345678"); got != "010****5678" {
		t.Errorf("maskPhone = %q", got)
	}
	if got := maskPhone("123"); got != "****" {
		t.Errorf("short maskPhone = %q", got)
	}
}
