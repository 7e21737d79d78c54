package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"inventorypro/backend/internal/cache"
	"inventorypro/backend/internal/config"
	"inventorypro/backend/internal/events"
	"inventorypro/backend/internal/httpapi"
	"inventorypro/backend/internal/service"
	"inventorypro/backend/internal/store"
	"inventorypro/backend/internal/store/memory"
	pgstore "inventorypro/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		if cfg.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				log.Fatal().Err(err).Msg("apply schema")
			}
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Info().Msg("repository: in-memory")
	}

	cacheTTL := time.Duration(cfg.PermissionCacheTTLSeconds) * time.Second
	var perms cache.PermissionCache = cache.NewLRUPermissionCache(cacheTTL)
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisPermissionCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cacheTTL)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-process permission cache")
		} else {
			perms = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Msg("permission cache: redis")
		}
	} else {
		log.Info().Msg("permission cache: in-process")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.StockEventsExchange)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, stock events disabled")
		} else {
			publisher = rabbit
			closers = append(closers, rabbit.Close)
			log.Info().Str("exchange", cfg.StockEventsExchange).Msg("stock events: rabbitmq")
		}
	}

	svc := service.New(repo, perms, publisher)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, svc)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, cfg.CookieSecure)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("inventory backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AllowedOrigin == "*" {
		return fmt.Errorf("ALLOWED_ORIGIN must name a single origin when cookies carry credentials")
	}
	return nil
}
