package cache

import (
	"context"
	"testing"
	"time"
)

func TestHashIP_Deterministic(t *testing.T) {
	t.Parallel()

	ip := "192.168.1.100"

	if hashIP(ip) != hashIP(ip) {
		t.Error("Same IP should produce same hash")
	}
}

func TestHashIP_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv4 localhost", "127.0.0.1"},
		{"IPv6 localhost", "::1"},
		{"IPv6 full", "2001:0db8:85a3:0000:0000:8a2e:0370:7334"},
		{"empty", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash := hashIP(tt.ip)
			// hashIP uses first 8 bytes of SHA256, encoded as 16 hex chars
			if len(hash) != 16 {
				t.Errorf("hashIP(%q) length = %d, want 16", tt.ip, len(hash))
			}
		})
	}
}

func TestHashIP_Different(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip1  string
		ip2  string
	}{
		{"different IPv4", "192.168.1.1", "192.168.1.2"},
		{"IPv4 vs IPv6", "127.0.0.1", "::1"},
		{"public vs private", "8.8.8.8", "192.168.1.1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if hashIP(tt.ip1) == hashIP(tt.ip2) {
				t.Errorf("Different IPs should produce different hashes: %q and %q", tt.ip1, tt.ip2)
			}
		})
	}
}

func TestMemoryLimiter_BurstThenBlock(t *testing.T) {
	t.Parallel()

	limiter := NewMemoryLimiter()
	frozen := time.Now()
	limiter.now = func() time.Time { return frozen }

	ctx := context.Background()
	const burst = 5

	for i := 0; i < burst; i++ {
		result, err := limiter.CheckAPIRateLimit(ctx, "key-1", 60, burst)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Allowed {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}

	result, err := limiter.CheckAPIRateLimit(ctx, "key-1", 60, burst)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("request past burst should be blocked")
	}
	if result.RetryAfter <= 0 {
		t.Fatal("blocked request should carry a retry-after hint")
	}
}

func TestMemoryLimiter_Refills(t *testing.T) {
	t.Parallel()

	limiter := NewMemoryLimiter()
	current := time.Now()
	limiter.now = func() time.Time { return current }

	ctx := context.Background()

	// Drain the bucket at 60/min (1 token per second), burst 1.
	if result, _ := limiter.CheckAPIRateLimit(ctx, "key-1", 60, 1); !result.Allowed {
		t.Fatal("first request should be allowed")
	}
	if result, _ := limiter.CheckAPIRateLimit(ctx, "key-1", 60, 1); result.Allowed {
		t.Fatal("drained bucket should block")
	}

	current = current.Add(2 * time.Second)

	if result, _ := limiter.CheckAPIRateLimit(ctx, "key-1", 60, 1); !result.Allowed {
		t.Fatal("bucket should refill after waiting")
	}
}

func TestMemoryLimiter_UnlimitedTier(t *testing.T) {
	t.Parallel()

	limiter := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		result, err := limiter.CheckAPIRateLimit(ctx, "key-1", 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Allowed {
			t.Fatal("unlimited tier must never block")
		}
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	limiter := NewMemoryLimiter()
	frozen := time.Now()
	limiter.now = func() time.Time { return frozen }

	ctx := context.Background()

	if result, _ := limiter.CheckAPIRateLimit(ctx, "key-1", 60, 1); !result.Allowed {
		t.Fatal("key-1 first request should be allowed")
	}
	if result, _ := limiter.CheckAPIRateLimit(ctx, "key-1", 60, 1); result.Allowed {
		t.Fatal("key-1 should now be drained")
	}
	if result, _ := limiter.CheckAPIRateLimit(ctx, "key-2", 60, 1); !result.Allowed {
		t.Fatal("key-2 must not share key-1's bucket")
	}
}

func TestMemoryLimiter_IPLimit(t *testing.T) {
	t.Parallel()

	limiter := NewMemoryLimiter()
	frozen := time.Now()
	limiter.now = func() time.Time { return frozen }

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.CheckIPRateLimit(ctx, "203.0.113.7", 1, 3)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Allowed {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if result, _ := limiter.CheckIPRateLimit(ctx, "203.0.113.7", 1, 3); result.Allowed {
		t.Fatal("IP past burst should be blocked")
	}
}
