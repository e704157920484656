package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/BuyBio/BuyBio/internal/collector"
)

func unreachableClient() *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestKey(t *testing.T) {
	if got := Key("kis", "005930", 250); got != "buybio:bars:kis:005930:250" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestNewBarCache_PingFails(t *testing.T) {
	_, err := NewBarCache(Config{Addr: "127.0.0.1:1"}, &collector.MockFetcher{})
	if err == nil {
		t.Fatal("expected ping error for unreachable redis")
	}
}

func TestBarCache_FallsBackWhenRedisDown(t *testing.T) {
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	next := &collector.MockFetcher{Price: 1000, End: end}
	c := newBarCache(unreachableClient(), next, time.Minute)
	defer c.Close()

	if c.Name() != "mock" {
		t.Errorf("cache should report the wrapped source, got %q", c.Name())
	}
	bars, err := c.FetchDailyBars(context.Background(), "005930", 60)
	if err != nil {
		t.Fatalf("fetch through broken cache: %v", err)
	}
	want, _ := next.FetchDailyBars(context.Background(), "005930", 60)
	if len(bars) != len(want) || bars[59].Close != want[59].Close {
		t.Errorf("expected the wrapped fetcher's bars, got %d bars", len(bars))
	}
}
