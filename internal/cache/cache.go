package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values under string keys. A miss is reported
// as false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type Noop struct{}

func (Noop) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (Noop) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

func (Noop) DeletePrefix(_ context.Context, _ string) error {
	return nil
}
