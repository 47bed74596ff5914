package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"energy-billing/internal/api"
	"energy-billing/internal/config"
	"energy-billing/internal/engine"
	"energy-billing/internal/logger"
	"energy-billing/internal/metrics"
	"energy-billing/internal/options"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfgPath := flag.String("config", os.Getenv("EB_CONFIG"), "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	metrics.Init(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := engine.FromConfig(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open instance")
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Error().Err(err).Msg("close instance")
		}
	}()

	if cfg.OptionsFile != "" {
		w, err := options.Watch(ctx, cfg.OptionsFile, func(ctx context.Context, doc options.Document) error {
			_, err := rt.ApplyOptions(ctx, doc)
			return err
		}, log)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.OptionsFile).Msg("watch options file")
		}
		defer w.Close()
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		InstanceID:   cfg.InstanceID,
		Instance:     rt,
		Ledger:       rt.Ledger(),
		BuySchedule:  rt.BuySchedule(),
		SellRate:     rt.SellRate(),
		Currency:     cfg.Tariff.Currency,
		CostDecimals: cfg.Tariff.CostDecimals,
		CORSOrigins:  cfg.API.CORSOrigins,
		Logger:       log,
	})
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := rt.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("instance", cfg.InstanceID).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("shut down")
}
