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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hongminglow/access-web-be/internal/auth"
	"github.com/hongminglow/access-web-be/internal/billing"
	"github.com/hongminglow/access-web-be/internal/config"
	"github.com/hongminglow/access-web-be/internal/content"
	"github.com/hongminglow/access-web-be/internal/lockout"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/server"
	"github.com/hongminglow/access-web-be/internal/storage"
	"github.com/hongminglow/access-web-be/internal/storage/memory"
	"github.com/hongminglow/access-web-be/internal/storage/postgres"
)

func main() {
	envLoaded := loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.NewJSON(os.Stdout, cfg.LogLevel)
	ctx := context.Background()
	if !envLoaded {
		log.Info(ctx, "no .env file found; relying on existing environment")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logging.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	lockStore, closeLock, err := openLockoutStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init lockout store: %w", err)
	}
	defer closeLock()

	cms, err := openContentProvider(cfg)
	if err != nil {
		return fmt.Errorf("init content provider: %w", err)
	}

	var provider billing.PaymentProvider
	if cfg.PaymentsEnabled() {
		provider = billing.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Warn(ctx, "STRIPE_SECRET_KEY not set; payment routes disabled")
	}
	if cfg.PaymentTrustClientPrefix {
		log.Warn(ctx, "PAYMENT_TRUST_CLIENT_PREFIX is on; payments are confirmed without provider verification")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	tracker := lockout.NewTracker(lockStore, cfg.LockoutMaxAttempts, cfg.LockoutWindow)

	srv := server.New(cfg, server.Deps{
		Store:    store,
		Tokens:   tokens,
		Verifier: auth.NewVerifier(store, tokens, tracker, log),
		Billing:  billing.NewReconciler(store, provider, log, billing.WithTrustClientPrefix(cfg.PaymentTrustClientPrefix)),
		Content:  content.NewResolver(cms, log),
		Log:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "access-web backend listening", "addr", cfg.HTTPAddress(), "env", cfg.Env,
			"storage", cfg.StorageDriver, "lockout_store", cfg.LockoutStore, "cms", cfg.CMSProvider)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-sigCh:
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error(ctx, "graceful shutdown error", "error", err.Error())
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memory.New()
		if err := store.SeedDefaultPlans(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return postgres.NewStore(ctx, cfg.DatabaseURL)
}

func openLockoutStore(ctx context.Context, cfg config.Config) (lockout.Store, func(), error) {
	if cfg.LockoutStore != config.LockoutStoreRedis {
		return lockout.NewMemoryStore(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return lockout.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func openContentProvider(cfg config.Config) (content.Provider, error) {
	if cfg.CMSProvider == config.CMSProviderStrapi {
		return content.NewStrapiProvider(cfg.StrapiURL, cfg.StrapiAPIToken, cfg.CMSTimeout), nil
	}
	if cfg.ContentSeedFile == "" {
		return content.NewMemoryProvider(content.Seed{}), nil
	}
	return content.LoadSeedFile(cfg.ContentSeedFile)
}

func loadLocalEnv() bool {
	return godotenv.Load() == nil
}
