// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockService runs until canceled, optionally failing its first few starts.
type mockService struct {
	name       string
	failFirst  int32
	starts     atomic.Int32
	stops      atomic.Int32
	failures   atomic.Int32
	started    chan struct{}
	startedSet atomic.Bool
}

func newMockService(name string) *mockService {
	return &mockService{name: name, started: make(chan struct{})}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	defer m.stops.Add(1)

	if m.failures.Load() < m.failFirst {
		m.failures.Add(1)
		return errors.New("simulated failure")
	}
	if m.startedSet.CompareAndSwap(false, true) {
		close(m.started)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func (m *mockService) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-m.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not start", m.name)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{FailureBackoff: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor is nil")
	}
	if tree.config.FailureBackoff != time.Second {
		t.Errorf("FailureBackoff = %v, want explicit 1s", tree.config.FailureBackoff)
	}
	if tree.config.FailureThreshold != 5.0 || tree.config.FailureDecay != 30.0 {
		t.Errorf("threshold/decay = %v/%v, want 5/30", tree.config.FailureThreshold, tree.config.FailureDecay)
	}
	if tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", tree.config.ShutdownTimeout)
	}
}

func TestNewSupervisorTree_NilLogger(t *testing.T) {
	t.Parallel()

	if _, err := NewSupervisorTree(nil, DefaultTreeConfig()); err != nil {
		t.Fatalf("NewSupervisorTree(nil): %v", err)
	}
}

func TestSupervisorTree_RunsEveryLayer(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	hub := newMockService("hub")
	job := newMockService("reminder")
	api := newMockService("http")
	tree.AddMessagingService(hub)
	tree.AddJobService(job)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*mockService{hub, job, api} {
		svc.waitStarted(t)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}

	for _, svc := range []*mockService{hub, job, api} {
		if svc.stops.Load() < 1 {
			t.Errorf("%s was not stopped", svc.name)
		}
	}
}

func TestSupervisorTree_FailingJobIsRestartedInIsolation(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	job := newMockService("reminder")
	job.failFirst = 2
	api := newMockService("http")
	tree.AddJobService(job)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	job.waitStarted(t)
	api.waitStarted(t)

	if got := job.starts.Load(); got < 3 {
		t.Errorf("job starts = %d, want at least 3", got)
	}
	if got := api.starts.Load(); got != 1 {
		t.Errorf("api starts = %d, want 1", got)
	}

	cancel()
	<-errCh
}

func TestSupervisorTree_RemoveFromChildLayer(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	job := newMockService("reminder")
	token := tree.AddJobService(job)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)
	job.waitStarted(t)

	if err := tree.RemoveAndWait(token, time.Second); err != nil {
		t.Fatalf("RemoveAndWait: %v", err)
	}
	if job.stops.Load() != 1 {
		t.Errorf("job stops = %d, want 1", job.stops.Load())
	}

	// A token from another supervisor is rejected.
	other := suture.NewSimple("other")
	foreign := other.Add(newMockService("foreign"))
	if err := tree.Remove(foreign); !errors.Is(err, suture.ErrWrongSupervisor) {
		t.Errorf("Remove(foreign) = %v, want ErrWrongSupervisor", err)
	}

	cancel()
	<-errCh
}

func TestDefaultTreeConfig(t *testing.T) {
	t.Parallel()

	c := DefaultTreeConfig()
	if c.FailureThreshold != 5.0 || c.FailureDecay != 30.0 || c.FailureBackoff != 15*time.Second || c.ShutdownTimeout != 10*time.Second {
		t.Errorf("DefaultTreeConfig() = %+v", c)
	}
}
