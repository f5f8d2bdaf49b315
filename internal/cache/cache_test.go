package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"stopdesk/internal/domain"
)

func TestKeys(t *testing.T) {
	if got := KeyResolved("https://maps.app.goo.gl/x"); got != "resolve:https://maps.app.goo.gl/x" {
		t.Errorf("KeyResolved = %q", got)
	}
	if got := KeyVisitsByCompany("dhd"); got != "visits:company:dhd" {
		t.Errorf("KeyVisitsByCompany = %q", got)
	}
	if got := KeyVisitsByCompany(""); got != "visits:company:default" {
		t.Errorf("KeyVisitsByCompany(\"\") = %q", got)
	}
}

func TestUnreachableRedisDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := newRedisCache(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer c.Close()

	ctx := context.Background()
	c.SetCoordinates(ctx, "https://short", domain.Coordinates{Lat: 1.5, Lng: 2.5})
	if _, ok := c.GetCoordinates(ctx, "https://short"); ok {
		t.Error("Expected a miss when redis is unreachable")
	}
	if err := c.IncrVisit(ctx, "dhd", "ALG01"); err == nil {
		t.Error("Expected IncrVisit to report the connection failure")
	}
}
