// Package server owns the application lifecycle.
package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"CandleScope/internal/domain/repository"
	"CandleScope/internal/stream"
	"CandleScope/internal/usecase"
	"CandleScope/internal/viewstate"
	"CandleScope/pkg/config"
	xhttp "CandleScope/pkg/http"
	applogger "CandleScope/pkg/logger"

	"github.com/robfig/cron/v3"
)

// App encapsulates the entire application lifecycle: HTTP server, stream
// broker, background schedules, and graceful shutdown.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	handler   xhttp.Handler
	broker    *stream.Broker
	alerts    *usecase.AlertsUseCase
	stats     *usecase.StatsUseCase
	view      *viewstate.Store
	publisher repository.AlertPublisher

	httpServer *xhttp.Server
	scheduler  *cron.Cron

	refreshMu   sync.Mutex
	lastRefresh time.Time
}

// New creates an App with all dependencies injected.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	broker *stream.Broker,
	alerts *usecase.AlertsUseCase,
	stats *usecase.StatsUseCase,
	view *viewstate.Store,
	publisher repository.AlertPublisher,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		handler:   handler,
		broker:    broker,
		alerts:    alerts,
		stats:     stats,
		view:      view,
		publisher: publisher,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if err := a.startSchedules(ctx); err != nil {
		return err
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Strings("symbols", a.cfg.Binance.Symbols),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// startSchedules installs the auto-refresh and anomaly-sweep jobs.
func (a *App) startSchedules(ctx context.Context) error {
	a.scheduler = cron.New()

	if a.cfg.Refresh.Auto {
		spec := "@every " + a.cfg.Refresh.Interval.String()
		if _, err := a.scheduler.AddFunc(spec, func() {
			a.refreshSelected(ctx)
		}); err != nil {
			return err
		}
		a.log.Info("auto refresh scheduled", applogger.Duration("interval", a.cfg.Refresh.Interval))
	}

	if a.cfg.Alerts.Enabled {
		if _, err := a.scheduler.AddFunc("@hourly", func() {
			a.alerts.Sweep(ctx)
		}); err != nil {
			return err
		}
		a.log.Info("anomaly sweep scheduled")
	}

	a.scheduler.Start()
	return nil
}

// refreshDue reports whether enough time has passed since the last refresh
// for the view's configured cadence. The cron tick is the floor; a larger
// RefreshMs stretches the effective interval.
func refreshDue(last, now time.Time, refreshMs int) bool {
	if refreshMs <= 0 {
		return true
	}
	return now.Sub(last) >= time.Duration(refreshMs)*time.Millisecond
}

// refreshSelected refetches the 24h snapshot for the symbol on screen. The
// view's own auto-refresh toggle and RefreshMs cadence gate the work, not
// the schedule.
func (a *App) refreshSelected(ctx context.Context) {
	state := a.view.Current()
	if !state.AutoRefresh {
		return
	}

	now := time.Now()
	a.refreshMu.Lock()
	due := refreshDue(a.lastRefresh, now, state.RefreshMs)
	if due {
		a.lastRefresh = now
	}
	a.refreshMu.Unlock()
	if !due {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if _, err := a.stats.Get24h(fetchCtx, state.Symbol); err != nil {
		a.log.Warn("auto refresh failed",
			applogger.String("symbol", state.Symbol),
			applogger.Error(err),
		)
	}
}

// shutdown stops everything in reverse start order.
func (a *App) shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		stopCtx := a.scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			a.log.Warn("scheduler jobs still running at shutdown")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.broker.Close()

	if err := a.publisher.Close(); err != nil {
		a.log.Warn("alert publisher close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
