package main

import (
	"context"
	"path/filepath"
	"testing"

	"lpgpos/backend/internal/config"
	"lpgpos/backend/internal/store/memory"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", DatabaseDriver: "pgx"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
	err = validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", DatabaseDriver: "mysql"})
	if err == nil {
		t.Fatalf("expected unknown database driver to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", DatabaseDriver: "sqlite"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestOpenRepositoryFallsBackToMemory(t *testing.T) {
	repo, closeFn, err := openRepository(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	if closeFn != nil {
		t.Fatalf("memory repository needs no closer")
	}
	if _, ok := repo.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", repo)
	}
}

func TestOpenRepositorySeedsSQLite(t *testing.T) {
	t.Setenv("SEED_USER_PASSWORD", "test-pass-123")
	dsn := filepath.Join(t.TempDir(), "lpgpos.db")

	repo, closeFn, err := openRepository(context.Background(), config.Config{DatabaseDriver: "sqlite", DatabaseURL: dsn})
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	defer closeFn()

	products, err := repo.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) == 0 {
		t.Fatalf("expected seeded catalog")
	}
}
