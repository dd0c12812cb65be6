package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func TestStoreLimiterAllow(t *testing.T) {
	l := StoreLimiter{Store: memory.NewStore()}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, remaining, _, err := l.Allow(ctx, "ip", time.Minute, 2)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
		if remaining != 2-(i+1) {
			t.Fatalf("unexpected remaining: %d", remaining)
		}
	}

	allowed, _, reset, err := l.Allow(ctx, "ip", time.Minute, 2)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatal("expected third request to be rejected")
	}
	if !reset.After(time.Now()) {
		t.Fatalf("expected reset in the future, got %v", reset)
	}
}

func TestStoreLimiterWithoutStore(t *testing.T) {
	allowed, remaining, _, err := StoreLimiter{}.Allow(context.Background(), "ip", time.Minute, 5)
	if err != nil || !allowed || remaining != 5 {
		t.Fatalf("unexpected result: %v %d %v", allowed, remaining, err)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	if got := ClientIP(req); got != "10.0.0.7" {
		t.Fatalf("unexpected ip: %q", got)
	}
	req.RemoteAddr = "10.0.0.8"
	if got := ClientIP(req); got != "10.0.0.8" {
		t.Fatalf("unexpected ip: %q", got)
	}
}
