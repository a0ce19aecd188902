package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/config"
	"github.com/diewo77/voyage-billing/internal/server"
)

const shutdownTimeout = 10 * time.Second

// run serves the API and the scheduled sweeps until SIGINT or SIGTERM. SIGHUP purges the
// catalog cache.
func run(cfg *config.Config, conn *gorm.DB, log *logrus.Logger, sweepOnce bool) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := server.NewApp(conn, cfg.Billing, log, registry)

	if sweepOnce {
		return app.Sweep(context.Background(), time.Now())
	}

	c := cron.New()
	if err := app.ScheduleSweeps(c, cfg.Billing.SweepSchedule); err != nil {
		return err
	}
	c.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Server.Port, "dev": cfg.App.Dev, "sweep": cfg.Billing.SweepSchedule}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
wait:
	for {
		select {
		case <-hup:
			app.RefreshCatalog()
		case sig := <-quit:
			log.WithField("signal", sig.String()).Info("shutdown signal received")
			break wait
		case err := <-errCh:
			<-c.Stop().Done()
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
	<-c.Stop().Done()
	log.Info("server stopped gracefully")
	return nil
}
