// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/gathermap/internal/api"
	"github.com/tomtom215/gathermap/internal/audit"
	"github.com/tomtom215/gathermap/internal/auth"
	"github.com/tomtom215/gathermap/internal/authz"
	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/geocode"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/notify"
	"github.com/tomtom215/gathermap/internal/scheduler"
	"github.com/tomtom215/gathermap/internal/supervisor"
	"github.com/tomtom215/gathermap/internal/supervisor/services"
	"github.com/tomtom215/gathermap/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet; the package default writes JSON to stderr.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("backend", cfg.Backend.URL).
		Msg("Starting Gathermap with supervisor tree")

	closers := services.NewCloserService()

	auditLogger := audit.NewLogger(audit.DefaultConfig(), logging.WithComponent("audit"))
	closers.Add("audit", auditLogger.Close)

	// === BACKEND ===

	backendClient := backend.NewCircuitBreakerClient(backend.NewClient(&cfg.Backend))
	memberships := backend.NewMemberships(backendClient, cfg.Backend.MembershipCacheTTL, cfg.Backend.MockFallback)
	closers.Add("memberships", closeFunc(memberships.Close))
	if cfg.Backend.MockFallback {
		logging.Warn().Msg("Mock fallback enabled: canned responses are served while the backend is unavailable")
	}

	// === AUTH ===

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	closers.Add("jwt-revocations", closeFunc(jwtManager.Close))

	enforcer, err := authz.NewEnforcer(cfg.Backend.MembershipCacheTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization enforcer")
	}
	closers.Add("authz", closeFunc(enforcer.Close))

	smsSender := notify.NewSMSSender(&cfg.SMS)
	verifier := auth.NewVerifier(cfg.Verification, smsSender)
	closers.Add("verifier", closeFunc(verifier.Close))
	if !smsSender.Enabled() {
		logging.Info().Msg("SMS gateway disabled, verification codes are logged at debug level")
	}

	authMiddleware := auth.NewMiddleware(jwtManager, auth.CookieOptions{
		Name:   cfg.Security.CookieName,
		Secure: cfg.Security.CookieSecure,
	})

	// === OUTBOUND INTEGRATIONS ===

	pusher := notify.NewPushSender(&cfg.Push)
	if !pusher.Enabled() {
		logging.Info().Msg("Push delivery disabled (PUSH_ENABLED=false)")
	}

	geocoder := initGeocoder(cfg, closers)

	var hub *websocket.Hub
	if cfg.WebSocket.Enabled {
		hub = websocket.NewHub()
	} else {
		logging.Info().Msg("WebSocket hub disabled (WEBSOCKET_ENABLED=false)")
	}

	// === HTTP ===

	deps := api.Dependencies{
		Backend:     backendClient,
		Readiness:   backendClient,
		Memberships: memberships,
		Enforcer:    enforcer,
		JWT:         jwtManager,
		Verifier:    verifier,
		Pusher:      pusher,
		Hub:         hub,
		Audit:       auditLogger,
	}
	if geocoder != nil {
		deps.Geocoder = geocoder
	}
	handler := api.NewHandler(cfg, deps)
	router := api.NewRouter(handler, authMiddleware, cfg)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if hub != nil {
		tree.AddMessagingService(services.NewWebSocketHubService(hub))
		logging.Info().Msg("WebSocket hub added to supervisor tree")
	}

	if reminder := initReminder(cfg, backendClient, pusher, hub); reminder != nil {
		tree.AddJobService(reminder)
		closers.Add("reminder", closeFunc(reminder.Close))
		logging.Info().Str("spec", cfg.Reminder.Spec).Msg("Schedule reminder added to supervisor tree")
	}
	tree.AddJobService(closers)

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === RUN ===

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// initGeocoder returns nil when reverse geocoding is switched off, in which
// case the endpoint answers 503.
func initGeocoder(cfg *config.Config, closers *services.CloserService) *geocode.Service {
	if !cfg.Geocode.Enabled {
		logging.Info().Msg("Reverse geocoding disabled (GEOCODE_ENABLED=false)")
		return nil
	}

	store, err := geocode.NewBadgerStore(cfg.Geocode.StorePath)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Geocode.StorePath).Msg("Failed to open geocode store")
	}

	var provider geocode.Provider
	chain := geocode.NewChain(geocode.NewProviders(&cfg.Geocode)...)
	if chain.Len() > 0 {
		provider = chain
		logging.Info().Str("providers", chain.Name()).Msg("Reverse geocoding enabled")
	} else {
		logging.Warn().Msg("Reverse geocoding enabled without providers; lookups will return 503")
	}

	svc := geocode.NewService(provider, store, cfg.Geocode.Precision, cfg.Geocode.CacheTTL)
	closers.Add("geocode", svc.Close)
	return svc
}

// initReminder returns nil when reminders are disabled. The cron spec was
// checked by config validation, so a parse failure here is fatal.
func initReminder(cfg *config.Config, b backend.Doer, pusher notify.Pusher, hub *websocket.Hub) *scheduler.Reminder {
	if !cfg.Reminder.Enabled {
		logging.Info().Msg("Schedule reminders disabled (REMINDER_ENABLED=false)")
		return nil
	}

	var publisher scheduler.Publisher
	if hub != nil {
		publisher = hub
	}

	reminder, err := scheduler.NewReminder(cfg.Reminder, b, pusher, publisher)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize schedule reminder")
	}
	return reminder
}

func closeFunc(fn func()) func() error {
	return func() error {
		fn()
		return nil
	}
}
