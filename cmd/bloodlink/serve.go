package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-bloodlink-backend/internal/config"
	httpapi "github.com/tbourn/go-bloodlink-backend/internal/http"
	"github.com/tbourn/go-bloodlink-backend/internal/observability"
	"github.com/tbourn/go-bloodlink-backend/internal/push"
	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
	"github.com/tbourn/go-bloodlink-backend/internal/sysutil"
)

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = time.Hour
)

func serveCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), g.cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.Version())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	hub, bridge, err := newHub(ctx, cfg.Realtime)
	if err != nil {
		return err
	}
	defer hub.Close()
	if bridge != nil {
		go func() {
			if err := bridge.Run(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("redis bridge stopped")
			}
		}()
	}

	surface, err := newSurface(cfg.Push)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, hub, surface, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeIdempotency(ctx, db, purgeInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	// Streams only end when the hub closes, so close it before draining.
	_ = hub.Close()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newHub builds the realtime hub with the configured bridges. The Redis
// bridge is returned separately because it also relays peer events.
func newHub(ctx context.Context, rc config.RealtimeConfig) (*realtime.Hub, *realtime.RedisBridge, error) {
	var sinks []realtime.Sink
	if rc.MQTTBroker != "" {
		sink, err := realtime.NewMQTTSink(realtime.MQTTOptions{
			Broker:      rc.MQTTBroker,
			ClientID:    rc.MQTTClientID,
			TopicPrefix: rc.MQTTTopicPrefix,
		}, log.Logger)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, sink)
	}

	var bridge *realtime.RedisBridge
	if rc.RedisURL != "" {
		b, err := realtime.NewRedisBridge(ctx, rc.RedisURL, rc.RedisChannelPrefix, log.Logger)
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, nil, err
		}
		bridge = b
		sinks = append(sinks, b)
	}
	return realtime.NewHub(rc.Buffer, log.Logger, sinks...), bridge, nil
}

// newSurface returns the shoutrrr push surface, or a no-op one when no URL
// is configured.
func newSurface(pc config.PushConfig) (push.Surface, error) {
	if len(pc.URLs) == 0 {
		return push.NopSurface{}, nil
	}
	s, err := push.NewShoutrrrSurface(pc.URLs, pc.Timeout, pc.DedupeTTL, log.Logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// purgeIdempotency deletes expired idempotency records until ctx ends.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("idempotency purge")
			}
		}
	}
}
