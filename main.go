package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/giygas/drugsafe-api/analysis"
	"github.com/giygas/drugsafe-api/config"
	"github.com/giygas/drugsafe-api/data"
	"github.com/giygas/drugsafe-api/extraction"
	"github.com/giygas/drugsafe-api/handlers"
	"github.com/giygas/drugsafe-api/health"
	"github.com/giygas/drugsafe-api/interfaces"
	"github.com/giygas/drugsafe-api/logging"
	"github.com/giygas/drugsafe-api/refdata"
	"github.com/giygas/drugsafe-api/scheduler"
	"github.com/giygas/drugsafe-api/server"
	"github.com/giygas/drugsafe-api/session"
	"github.com/giygas/drugsafe-api/validation"
)

// app is the wired service.
type app struct {
	store     *data.ReferenceContainer
	sessions  *session.Manager
	server    *server.Server
	scheduler *scheduler.Scheduler
}

// newApp wires every component from cfg. Nothing runs until start.
func newApp(cfg *config.Config) *app {
	store := data.NewReferenceContainer()
	store.SetServerStartTime(time.Now())

	var loader interfaces.ReferenceLoader = refdata.BuiltinLoader{}
	var refresh, staleAfter time.Duration
	if cfg.ReferenceDataDir != "" {
		loader = refdata.NewDirLoader(cfg.ReferenceDataDir)
		refresh = cfg.ReferenceRefreshInterval
		staleAfter = 2 * cfg.ReferenceRefreshInterval
	}

	extractor := extraction.NewBreakerExtractor(
		extraction.NewMockExtractor(cfg.ExtractionDelay),
		extraction.DefaultBreakerSettings(),
	)

	sessions := session.NewManager(extractor, session.ManagerConfig{
		TTL:               cfg.SessionTTL,
		MaxSessions:       cfg.MaxSessions,
		ExtractionTimeout: cfg.ExtractionTimeout,
	})

	validator := validation.NewDataValidator()
	handler := handlers.NewHTTPHandler(
		sessions,
		store,
		validator,
		analysis.NewStaticEvaluator(store),
		health.NewHealthChecker(store, sessions, staleAfter),
		handlers.Options{
			MaxBody:     cfg.MaxRequestBody,
			WaitTimeout: cfg.ExtractionTimeout + 5*time.Second,
		},
	)

	srv := server.NewServer(cfg, handler)

	sched := scheduler.NewScheduler(store, loader, validator, scheduler.Options{
		RefreshInterval: refresh,
		StaleAfter:      staleAfter,
		Limiter:         srv.RateLimiter(),
		Sessions:        sessions,
	})

	return &app{store: store, sessions: sessions, server: srv, scheduler: sched}
}

// start loads the reference data and starts the background jobs.
func (a *app) start() error {
	return a.scheduler.Start()
}

// shutdown stops serving, then drops every session.
func (a *app) shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.scheduler.Stop()
	a.sessions.Close()
	return err
}

// loadEnv reads .env from the working directory, falling back to the
// directory of the executable.
func loadEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	ex, err := os.Executable()
	if err != nil {
		return
	}
	exPath := filepath.Dir(ex)
	if err := godotenv.Load(filepath.Join(exPath, ".env")); err == nil {
		if err := os.Chdir(exPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to change directory: %v\n", err)
		}
	}
}

func main() {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Expected environment variables: %v\n", config.GetEnvVars())
		os.Exit(1)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		ConsoleLevel:   level,
		FileLevel:      level,
	})
	defer logging.Close()

	logging.Info("Configuration loaded",
		"env", cfg.Env,
		"address", cfg.Address,
		"port", cfg.Port,
		"reference_data_dir", cfg.ReferenceDataDir,
		"session_ttl", cfg.SessionTTL.String(),
		"max_sessions", cfg.MaxSessions)

	a := newApp(cfg)
	if err := a.start(); err != nil {
		logging.Error("Failed to start background jobs", "error", err)
		logging.Close()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logging.Error("Server failed to start", "error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.shutdown(shutdownCtx); err != nil {
		logging.Error("Shutdown error", "error", err)
	}
}
