package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dwaltig/agentdeck/internal/chat"
	"github.com/dwaltig/agentdeck/internal/client"
	"github.com/dwaltig/agentdeck/internal/config"
	"github.com/dwaltig/agentdeck/internal/control"
	"github.com/dwaltig/agentdeck/internal/probe"
	"github.com/dwaltig/agentdeck/internal/store"
	"github.com/dwaltig/agentdeck/internal/stream"
	"github.com/dwaltig/agentdeck/internal/view"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	backendURL := flag.String("backend", "", "backend origin, overrides BACKEND_URL")
	controlPort := flag.String("control-port", "", "control API port, overrides CONTROL_PORT")
	logLevel := flag.String("log-level", "", "log level, overrides LOG_LEVEL")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}
	if *controlPort != "" {
		cfg.ControlPort = *controlPort
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("backend_url", cfg.BackendURL).
		Str("control_port", cfg.ControlPort).
		Str("log_level", cfg.LogLevel).
		Msg("starting agentdeck console")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared state
	metricsStore := store.NewStore()
	convo := store.NewConversationLog(store.DefaultConversationLimit)
	alerts := view.NewAlerts(cfg.AlertTTL)

	// Backend API client
	apiClient := client.NewClient(cfg.BackendURL, cfg.RequestTimeout)

	// Chat controller
	chatCtl := chat.NewController(apiClient, log.Logger)

	// Event stream connection
	conn := stream.NewConn(cfg.BackendURL+cfg.StreamPath, log.Logger)

	// View controller rendering to stdout
	viewCtl := view.NewController(
		apiClient,
		metricsStore,
		convo,
		chatCtl,
		alerts,
		os.Stdout,
		conn.IsConnected,
		cfg.RefreshInterval,
		log.Logger,
	)

	// Frame router
	router := stream.NewRouter(metricsStore, convo, log.Logger)
	router.OnUpdate(viewCtl.Render)

	// Refresh the active view whenever the stream comes back, since
	// frames sent while disconnected are lost.
	conn.OnStateChange(func(s stream.State) {
		log.Info().Str("state", string(s)).Msg("stream state changed")
		if s == stream.StateOpen {
			go viewCtl.Refresh(ctx)
		}
	})

	// Test orchestrator over the processing pipeline, in stage order
	orchestrator := probe.NewOrchestrator([]probe.Target{
		{Name: "intake", BaseURL: cfg.IntakeURL},
		{Name: "intelligence", BaseURL: cfg.IntelligenceURL},
		{Name: "decision", BaseURL: cfg.DecisionURL},
	}, cfg.HealthTimeout, cfg.ProcessTimeout, log.Logger)
	orchestrator.OnStatus(func(target string, status probe.TargetStatus) {
		if status != probe.StatusHealthy {
			alerts.Push("warning", target+" is "+string(status))
		}
		viewCtl.Render()
	})

	// Local control API
	api := control.NewAPI(cfg.AllowedOrigins, log.Logger)
	api.SetHandlers(
		func() map[string]interface{} {
			return map[string]interface{}{
				"connection_state": string(conn.State()),
				"reconnects":       conn.Reconnects(),
				"active_view":      string(viewCtl.Active()),
				"metric_keys":      metricsStore.Keys(),
				"conversations":    convo.Size(),
				"chat_messages":    chatCtl.Size(),
			}
		},
		orchestrator.Run,
		orchestrator.LastReport,
		func(ctx context.Context, v string) error {
			return viewCtl.Activate(ctx, view.View(v))
		},
	)

	// Start background loops
	go conn.Run(ctx)
	go func() {
		for frame := range conn.Frames() {
			router.Dispatch(frame)
		}
	}()
	go viewCtl.Run(ctx)

	// Initial load
	go func() {
		if err := viewCtl.Activate(ctx, view.ViewDashboard); err != nil {
			log.Error().Err(err).Msg("initial view load failed")
		}
	}()

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.ControlPort,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("control API listening on :%s", cfg.ControlPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start control API")
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down console...")

	conn.Close()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("control API forced to shutdown")
	}

	log.Info().Msg("console stopped")
}
