// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TimPolDev/memoriesDev/internal/auth"
	"github.com/TimPolDev/memoriesDev/internal/cache"
	"github.com/TimPolDev/memoriesDev/internal/config"
	"github.com/TimPolDev/memoriesDev/internal/database"
	"github.com/TimPolDev/memoriesDev/internal/game"
	"github.com/TimPolDev/memoriesDev/internal/server"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := game.RoomOptions{
		RevealDelay: cfg.RevealDelay,
		Logger:      log,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("database unavailable")
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.WithError(err).Fatal("database schema")
		}
		opts.OnGameEnd = server.StatsHook(database.NewStatsStore(pool), log)
		log.Info("player statistics enabled")
	} else {
		log.Info("DATABASE_URL not set, player statistics disabled")
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Fatal("redis unavailable")
		}
		defer rdb.Close()
		pub := cache.NewActionPublisher(rdb, cfg.ActionLogKey, 0, log)
		opts.ActionLog = pub
		g.Go(func() error { return pub.Run(gctx) })
		log.WithField("key", cfg.ActionLogKey).Info("room action log enabled")
	}

	gw := server.NewGateway(log)
	opts.Broadcast = gw.Publish
	rooms := game.NewRegistry(opts)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	if !verifier.Enabled() {
		log.Warn("JWT_SECRET not set, connections are anonymous")
	}
	srv := server.New(rooms, gw, server.Options{
		OriginPatterns: cfg.OriginAllowlist,
		SendBuffer:     cfg.SendBuffer,
		Verifier:       verifier,
		Logger:         log,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.WithField("addr", httpSrv.Addr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(sctx)
		srv.CloseAll("server shutting down")
		return err
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped with error")
		os.Exit(1)
	}
	log.Info("server stopped")
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
