package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set; skipping Redis cache tests")
	}
	ctx := context.Background()
	c, err := NewRedis(ctx, RedisConfig{Addr: addr, KeyPrefix: "fpldraft-test:"})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "state:D1", []byte("v1"), time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "state:D1")
	if err != nil || string(got) != "v1" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := c.Delete(ctx, "state:D1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "state:D1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get after delete = %v, want ErrMiss", err)
	}
}
