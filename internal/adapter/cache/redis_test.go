//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
)

func TestRedisCache_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	c, err := NewRedisCache(url, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRedisCache failed: %v", err)
	}
	defer c.Close()

	if err := c.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	if err := c.Set(ctx, "call:1", `{"call_id":"1"}`, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get(ctx, "call:1")
	if err != nil || got != `{"call_id":"1"}` {
		t.Fatalf("unexpected value %q (%v)", got, err)
	}

	if err := c.Delete(ctx, "call:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "call:1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	t.Run("Expiration", func(t *testing.T) {
		if err := c.Set(ctx, "call:2", "x", 100*time.Millisecond); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		time.Sleep(250 * time.Millisecond)
		if _, err := c.Get(ctx, "call:2"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("key should have expired, got %v", err)
		}
	})
}
