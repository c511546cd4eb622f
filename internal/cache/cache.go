// Package cache holds the tenant listing search cache. Entries are keyed by a
// generation counter so one INCR invalidates every cached page at once.
//
// Get returns the key it looked up; Set must be given that key so a page
// computed before an invalidation is never written under the newer generation.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

type ListingCache interface {
	Get(ctx context.Context, params map[string]string, dest interface{}) (key string, hit bool, err error)
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context) error
}

func GenerateQueryCacheKey(prefix string, queryParams map[string]string) string {
	keys := make([]string, 0, len(queryParams))
	for k := range queryParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(":")
		}
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(queryParams[k])
	}

	hash := md5.Sum([]byte(builder.String()))
	return prefix + ":" + hex.EncodeToString(hash[:])
}

type Noop struct{}

func (Noop) Get(ctx context.Context, params map[string]string, dest interface{}) (string, bool, error) {
	return "", false, nil
}

func (Noop) Set(ctx context.Context, key string, value interface{}) error {
	return nil
}

func (Noop) Invalidate(ctx context.Context) error {
	return nil
}
