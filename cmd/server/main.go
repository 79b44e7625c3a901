package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lpgpos/backend/internal/cache"
	"lpgpos/backend/internal/config"
	"lpgpos/backend/internal/httpapi"
	"lpgpos/backend/internal/restock"
	"lpgpos/backend/internal/service"
	"lpgpos/backend/internal/store"
	"lpgpos/backend/internal/store/memory"
	"lpgpos/backend/internal/store/seed"
	"lpgpos/backend/internal/store/sqlstore"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	shopZone, err := time.LoadLocation(cfg.ShopTimezone)
	if err != nil {
		log.Fatalf("invalid SHOP_TIMEZONE %q: %v", cfg.ShopTimezone, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("repository unavailable: %v", err)
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}

	cacheStore := cache.Cache(cache.Noop{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			cacheStore = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	cacheTTL := time.Duration(cfg.ReportCacheTTLSeconds) * time.Second
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute)
	svc := service.New(repo, restock.NewEngine(cacheStore, cacheTTL), service.Config{
		ReportCache: cacheStore,
		ReportTTL:   cacheTTL,
		Location:    shopZone,
		Passwords:   auth,
	})
	api, err := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		LoginRate:     cfg.LoginRate,
	})
	if err != nil {
		log.Fatalf("http api: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("LPG POS backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// openRepository uses the SQL store when DATABASE_URL is set, migrating and
// seeding an empty database, and the seeded memory store otherwise. A SQL
// store that cannot be reached is fatal rather than silently replaced.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	if cfg.DatabaseURL == "" {
		log.Println("repository: in-memory")
		return memory.NewSeeded(), nil, nil
	}

	db, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", cfg.DatabaseDriver, err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	data, err := seed.Load()
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	seeded, err := db.SeedIfEmpty(ctx, data)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("seed: %w", err)
	}
	if seeded {
		log.Println("repository: seeded empty database")
	}
	log.Printf("repository: %s", cfg.DatabaseDriver)
	return db, db.Close, nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	switch cfg.DatabaseDriver {
	case sqlstore.DriverPostgres, sqlstore.DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q", sqlstore.DriverPostgres, sqlstore.DriverSQLite)
	}
	return nil
}
