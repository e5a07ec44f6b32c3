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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/cenkalti/backoff.v1"

	"contact-gateway/contact"
	"contact-gateway/contact/application"
	"contact-gateway/contact/domain"
	"contact-gateway/contact/infra"
	"contact-gateway/internal/config"
	"contact-gateway/internal/logger"
)

func run(parent context.Context, loader *config.Loader, cfg config.Config) error {
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loader.Watch(onReload(log))

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		if err := pingRedis(ctx, rdb); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	gw := application.Gateway{
		Captcha: infra.NewRecaptchaVerifier(cfg.RecaptchaSecret,
			infra.WithVerifyURL(cfg.RecaptchaVerifyURL),
			infra.WithMinScore(cfg.RecaptchaMinScore),
			infra.WithVerifierLogger(log.With().Str("component", "recaptcha").Logger()),
		),
		Mailer: infra.NewSMTPDispatcher(infra.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			To:       cfg.MailTo,
		}),
		CaptchaTimeout: cfg.CaptchaTimeout,
		MailTimeout:    cfg.MailTimeout,
		LockTimeout:    cfg.LockTimeout,
	}

	if cfg.RateBackend == "redis" {
		gw.Store = infra.NewRedisStore(rdb, cfg.RateLimit, cfg.RateWindow, infra.WithRedisPrefix(cfg.RedisPrefix))
		gw.Locker = infra.NewRedisLocker(rdb, infra.WithLockPrefix(cfg.RedisPrefix), infra.WithLockTTL(cfg.LockTTL))
	} else {
		mem := infra.NewMemoryStore(cfg.RateLimit, cfg.RateWindow)
		mem.StartJanitor(ctx)
		gw.Store = mem
		gw.Locker = infra.NewMemoryLocker()
	}

	var (
		stats  domain.StatsStore
		reader domain.StatsReader
	)
	switch cfg.StatsBackend {
	case "redis":
		s := infra.NewRedisStatsStore(rdb, infra.WithStatsPrefix(cfg.RedisPrefix+":stats"))
		stats, reader = s, s
	case "memory":
		s := infra.NewMemoryStatsStore()
		stats, reader = s, s
	}

	keyFn := contact.DefaultKeyFunc(cfg.KeyHeader, cfg.TrustXFF)

	h := http.Handler(contact.NewHandler(contact.HandlerOptions{
		Gateway:      gw,
		Stats:        stats,
		KeyFn:        keyFn,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}))
	h = contact.ConcurrencyMiddleware(contact.ConcurrencyOptions{
		Max:            cfg.ConcurrencyMax,
		AcquireTimeout: cfg.ConcurrencyTimeout,
	})(h)
	if cfg.FloodRPS > 0 && cfg.FloodBurst > 0 {
		flood := infra.NewFloodStore(cfg.FloodRPS, cfg.FloodBurst)
		flood.StartJanitor(ctx)
		h = contact.FloodGuard(contact.FloodOptions{Limiter: flood, KeyFn: keyFn})(h)
	}

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: contact.NewRouter(contact.RouterOptions{
			ContactPath: cfg.ContactPath,
			Contact:     h,
			Stats:       reader,
			Log:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.CaptchaTimeout + cfg.MailTimeout + cfg.LockTimeout + 5*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("path", cfg.ContactPath).
		Int("limit", cfg.RateLimit).
		Dur("window", cfg.RateWindow).
		Str("rate_backend", cfg.RateBackend).
		Str("stats_backend", cfg.StatsBackend).
		Bool("trust_xff", cfg.TrustXFF).
		Msg("contact gateway listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// onReload aplica uma configuração nova vinda do Watch. Só o nível de log é
// aplicado a quente; o resto pede restart.
func onReload(log zerolog.Logger) func(config.Config, error) {
	return func(next config.Config, err error) {
		if err != nil {
			log.Error().Err(err).Msg("config reload rejected")
			return
		}
		lvl, err := logger.SetLevel(next.LogLevel)
		if err != nil {
			log.Error().Err(err).Msg("config reload rejected")
			return
		}
		log.Info().Str("level", lvl.String()).Msg("config reloaded")
	}
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 15 * time.Second

	var canceled error
	err := backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			// nil encerra o Retry; o erro real volta por canceled.
			canceled = err
			return nil
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	}, b)
	if canceled != nil {
		return canceled
	}
	return err
}
