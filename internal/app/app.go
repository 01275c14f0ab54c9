// Package app wires config, storage, scheduler and the HTTP server together.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Raimguhinov/alarm-go/internal/config"
	"github.com/Raimguhinov/alarm-go/internal/metrics"
	"github.com/Raimguhinov/alarm-go/internal/notify"
	"github.com/Raimguhinov/alarm-go/internal/scheduler"
	"github.com/Raimguhinov/alarm-go/internal/storage"
	"github.com/Raimguhinov/alarm-go/internal/timer"
	"github.com/Raimguhinov/alarm-go/pkg/httpserver"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

func Run(cfg *config.Config) {
	l := logger.New(cfg.Log.Level, cfg.App.Env)

	ctx := context.Background()

	// Repository
	store, err := storage.NewFromURL(ctx, cfg, l)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - storage.NewFromURL: %w", err).Error())
		os.Exit(1)
	}
	defer store.Close()

	// Scheduler
	registry := prometheus.NewRegistry()
	rec := metrics.New(registry)

	timerSvc := timer.New(l, rec)
	defer timerSvc.Stop()

	presenter := notify.Fanout{notify.NewLog(l, rec)}
	if cfg.Notify.NatsURL != "" {
		natsPresenter, err := notify.NewNATS(cfg.Notify.NatsURL, cfg.Notify.Subject, l, rec)
		if err != nil {
			l.Error(fmt.Errorf("app - Run - notify.NewNATS: %w", err).Error())
			os.Exit(1)
		}
		defer natsPresenter.Close()
		presenter = append(presenter, natsPresenter)
	}

	sched := scheduler.New(store, timerSvc, presenter, l, rec)
	timerSvc.SetHandler(func(id uuid.UUID) {
		sched.OnFired(context.Background(), id)
	})

	if err := sched.RestoreAll(ctx); err != nil {
		l.Error(fmt.Errorf("app - Run - sched.RestoreAll: %w", err).Error())
		os.Exit(1)
	}

	// HTTP Server
	router := SetupRouter(l, sched, store, registry, cfg)
	httpServer := httpserver.New(
		router,
		httpserver.Addr(cfg.HTTP.IP, cfg.HTTP.Port),
		httpserver.ReadTimeout(cfg.HTTP.Timeout),
		httpserver.WriteTimeout(cfg.HTTP.Timeout),
	)

	l.Info("app started", "name", cfg.App.Name, "version", cfg.App.Version, "port", cfg.HTTP.Port)

	// Waiting signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: " + s.String())
	case err = <-httpServer.Notify():
		l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err).Error())
	}

	// Shutdown
	err = httpServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err).Error())
	}
}
