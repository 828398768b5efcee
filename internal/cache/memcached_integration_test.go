//go:build integration

package cache

import (
	"context"
	"testing"
	"time"
)

// newIntegrationCache returns a cache against a local memcached, skipping
// the test when none is reachable.
func newIntegrationCache(t *testing.T) *MemcachedCache {
	t.Helper()
	c, err := NewMemcachedCache("localhost:11211", 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	if err := c.Ping(); err != nil {
		t.Skipf("memcached not reachable: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemcachedCache_RoundTrip_Integration(t *testing.T) {
	c := newIntegrationCache(t)
	ctx := context.Background()

	views := map[string][]byte{
		"scatter:2020":             []byte(`{"view":"scatter","state":"populated"}`),
		"line:China|United States": []byte(`{"view":"line","state":"populated"}`),
		"line:":                    []byte(`{"view":"line","state":"empty"}`),
	}
	for key, body := range views {
		if err := c.Set(ctx, key, body, time.Minute); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}
	for key, want := range views {
		got, ok, err := c.Get(ctx, key)
		if err != nil || !ok {
			t.Fatalf("Get(%q) = ok %v, err %v", key, ok, err)
		}
		if string(got) != string(want) {
			t.Errorf("Get(%q) = %s, want %s", key, got, want)
		}
	}
}

func TestMemcachedCache_Miss_Integration(t *testing.T) {
	c := newIntegrationCache(t)

	_, ok, err := c.Get(context.Background(), "scatter:1066")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}
