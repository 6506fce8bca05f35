package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestFixedWindowLimiter(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "test:ratelimit", 2, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	if !limiter.Allow("ip-1") {
		t.Fatalf("first request should pass")
	}
	if !limiter.Allow("ip-1") {
		t.Fatalf("second request should pass")
	}
	if limiter.Allow("ip-1") {
		t.Fatalf("third request should be blocked")
	}
	if !limiter.Allow("ip-2") {
		t.Fatalf("other keys should be unaffected")
	}
}

func TestFixedWindowLimiterFailsClosed(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "test:ratelimit", 1, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	srv.Close()
	if limiter.Allow("ip-1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestFixedWindowLimiterValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisFixedWindowLimiter("", "", "", 1, time.Second); err == nil {
		t.Fatalf("empty addr should fail")
	}
	if _, err := NewRedisFixedWindowLimiter("127.0.0.1:6379", "", "", 0, time.Second); err == nil {
		t.Fatalf("zero limit should fail")
	}
}
