package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestGenerateQueryCacheKeyIgnoresParamOrder(t *testing.T) {
	a := GenerateQueryCacheKey("listings:0", map[string]string{"location": "pune", "bhk": "2", "page": "1"})
	b := GenerateQueryCacheKey("listings:0", map[string]string{"page": "1", "bhk": "2", "location": "pune"})
	if a != b {
		t.Fatalf("keys differ: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "listings:0:") {
		t.Fatalf("missing prefix: %s", a)
	}
}

func TestGenerateQueryCacheKeySeparatesGenerations(t *testing.T) {
	params := map[string]string{"location": "pune"}
	if GenerateQueryCacheKey("listings:0", params) == GenerateQueryCacheKey("listings:1", params) {
		t.Fatal("generations must not share keys")
	}
	if GenerateQueryCacheKey("listings:0", params) == GenerateQueryCacheKey("listings:0", map[string]string{"location": "goa"}) {
		t.Fatal("different filters must not share keys")
	}
}

func TestNoopAlwaysMisses(t *testing.T) {
	var c ListingCache = Noop{}
	ctx := context.Background()
	if err := c.Set(ctx, "listings:0:abc", []int{1}); err != nil {
		t.Fatal(err)
	}
	var dest []int
	if key, hit, err := c.Get(ctx, nil, &dest); key != "" || hit || err != nil {
		t.Fatalf("Noop.Get = %q, %v, %v", key, hit, err)
	}
}

func newRedis(t *testing.T) *RedisListingCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisListingCache(client, 0)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c := newRedis(t)
	ctx := context.Background()
	params := map[string]string{"location": "pune"}

	var dest []string
	key, hit, err := c.Get(ctx, params, &dest)
	if err != nil || hit {
		t.Fatalf("cold Get = %v, %v", hit, err)
	}
	if err := c.Set(ctx, key, []string{"a", "b"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, err := c.Get(ctx, params, &dest); err != nil || !hit || len(dest) != 2 {
		t.Fatalf("warm Get = %v, %v, %v", hit, err, dest)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, hit, _ := c.Get(ctx, params, &dest); hit {
		t.Fatal("Invalidate must drop cached pages")
	}
}

func TestRedisCacheWriteAfterInvalidateStaysInOldGeneration(t *testing.T) {
	c := newRedis(t)
	ctx := context.Background()
	params := map[string]string{"location": "pune"}

	var dest []string
	key, _, err := c.Get(ctx, params, &dest)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := c.Set(ctx, key, []string{"stale"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, hit, err := c.Get(ctx, params, &dest); err != nil || hit {
		t.Fatalf("page computed before invalidation was served: hit=%v err=%v dest=%v", hit, err, dest)
	}
}
