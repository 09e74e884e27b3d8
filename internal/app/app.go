package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"ticketdesk/internal/adapter/httpapi"
	"ticketdesk/internal/adapter/scheduler"
	"ticketdesk/internal/config"
	"ticketdesk/internal/model"
	"ticketdesk/internal/platform/logger"
	"ticketdesk/internal/respond"
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "ticketdesk",
	})
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewWithConfig(cfg, log), nil
}

// NewWithConfig creates an App from an already loaded configuration.
func NewWithConfig(cfg config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{cfg: cfg, log: log}
}

// Run serves until SIGINT or SIGTERM.
func (a *App) Run() error {
	defer func() { _ = logger.Close(a.log) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.HTTP.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server and background jobs on ln until ctx is done,
// then shuts both down within the configured timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			a.log.Warn("close store", slog.Any("error", err))
		}
	}()

	mc := model.NewModelController(store)
	router := httpapi.NewRouter(httpapi.Deps{
		Log:            a.log,
		Model:          mc,
		Responder:      respond.New(a.log),
		Login:          httpapi.Credentials{Username: a.cfg.Login.Username, Password: a.cfg.Login.Password},
		StaticDir:      a.cfg.HTTP.StaticDir,
		HiddenDirs:     a.hiddenDirs(),
		RateInterval:   a.cfg.HTTP.RateInterval,
		TrustedProxies: a.cfg.HTTP.TrustedProxies,
	})

	sched := scheduler.New(scheduler.Config{Logger: a.log})
	if schedule := a.cfg.Store.StatsSchedule; schedule != "" {
		if _, err := sched.Add(schedule, scheduler.StoreStatsJob(mc, a.log), scheduler.JobOptions{
			Name:          "store-stats",
			Timeout:       5 * time.Second,
			OverlapPolicy: scheduler.SkipIfRunning,
		}); err != nil {
			_ = ln.Close()
			return err
		}
	}
	sched.Start()

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", slog.String("addr", ln.Addr().String()), slog.String("store", a.cfg.Store.Backend))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	a.log.Info("shutting down")
	timeout := a.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err = errors.Join(serveErr, srv.Shutdown(shutdownCtx), sched.Stop(shutdownCtx))
	if err != nil {
		return err
	}
	a.log.Info("stopped")
	return nil
}

// hiddenDirs lists directories the static fallback must never expose.
func (a *App) hiddenDirs() []string {
	if a.cfg.Log.File == "" {
		return nil
	}
	return []string{filepath.Dir(a.cfg.Log.File)}
}

func (a *App) openStore(ctx context.Context) (model.Store, func() error, error) {
	switch a.cfg.Store.Backend {
	case "sqlite":
		s, err := model.OpenSQLiteStore(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s.Close, nil
	case "", "memory":
		return model.NewMemoryStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
}
