package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Canary-Prism/TimeBot/internal/bot"
	"github.com/Canary-Prism/TimeBot/internal/config"
	"github.com/Canary-Prism/TimeBot/internal/domain"
	"github.com/Canary-Prism/TimeBot/internal/gateway"
	"github.com/Canary-Prism/TimeBot/internal/registry"
	"github.com/Canary-Prism/TimeBot/internal/scheduler"
	"github.com/Canary-Prism/TimeBot/internal/store"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	httpSrv *http.Server
	repo    store.Repo
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if _, err := domain.ValidateTZ(cfg.DefaultTZ); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting timebot",
		zap.String("db", a.cfg.DBPath),
		zap.String("default_tz", a.cfg.DefaultTZ),
		zap.String("http", a.cfg.HTTPAddr),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	reg := registry.New(repo, a.log)
	if err := reg.Load(ctx); err != nil {
		a.log.Error("load preferences failed", zap.Error(err))
		return err
	}

	engine := bot.New(a.log, reg, repo, a.cfg.DefaultTZ)
	gw := gateway.New(a.log, engine, os.Stdin, os.Stdout)
	sched := scheduler.New(a.log, repo, reg, gw, a.cfg.PollInterval)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.Run(ctx)

	// The gateway returns on stdin EOF; treat that like a shutdown request.
	gwDone := make(chan error, 1)
	go func() { gwDone <- gw.Run(ctx) }()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-gwDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("gateway error", zap.Error(err))
		} else {
			a.log.Info("input closed")
		}
	}

	// Create a short-lived shutdown context and cancel it immediately after use.
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = a.httpSrv.Shutdown(shCtx)
	cancel()

	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
	return nil
}
