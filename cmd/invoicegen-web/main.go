package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"invoicegen/internal/adapter/backend"
	adapthttp "invoicegen/internal/adapter/http"
	"invoicegen/internal/adapter/memory"
	"invoicegen/internal/adapter/postgres"
	"invoicegen/internal/adapter/redis"
	"invoicegen/internal/adapter/sealed"
	"invoicegen/internal/app"
	"invoicegen/internal/config"
	"invoicegen/internal/domain"
	"invoicegen/internal/jobs"
	"invoicegen/internal/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)
	ctx := context.Background()

	store, closer, err := openTokenStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open token store")
	}
	if cfg.Store.SealKey != "" {
		store, err = sealed.New(store, cfg.Store.SealKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init token sealing")
		}
	}

	gw := backend.New(backend.Config{BaseURL: cfg.API.URL, Timeout: cfg.API.Timeout}, store, logger)
	sessions := app.NewSessionService(gw, store, cfg.Store.TokenTTL, logger)
	invoices := app.NewInvoiceService(gw, memory.NewCache(), logger)
	sessions.Subscribe(invoices.OnSession)

	opts := adapthttp.Options{SecureCookies: cfg.Cookie.Secure}
	if cfg.Auth.GoogleEnabled {
		opts.GoogleLoginURL = gw.GoogleLoginURL()
	}
	web, err := adapthttp.New(sessions, invoices, opts, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load views")
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      web.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	sweeper := jobs.NewSweeper(store, cfg.Store.SweepSchedule, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error().Err(err).Msg("sweeper start failed")
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("api", gw.BaseURL()).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, srv, sweeper, closer)
}

func openTokenStore(ctx context.Context, cfg config.StoreConfig) (domain.TokenStore, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case config.DriverRedis:
		rs, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return rs, rs, nil
	default:
		return memory.New(), nil, nil
	}
}

func waitForShutdown(logger zerolog.Logger, srv *http.Server, sweeper *jobs.Sweeper, closer io.Closer) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	sweeper.Stop()

	if closer != nil {
		if err := closer.Close(); err != nil {
			logger.Error().Err(err).Msg("token store close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
