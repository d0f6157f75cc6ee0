// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// response.go provides a Valkey-backed cache of negotiated responses (L2).
// A representation is identified by the request path, its query string,
// the negotiated media type and the active language, so one resource
// can have several cached bodies. Entries are msgpack-encoded.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// responseKeyPrefix is the Valkey key prefix for cached representations.
	responseKeyPrefix = "repr:"

	// DefaultResponseTTL is how long a rendered representation stays cached.
	DefaultResponseTTL = 5 * time.Minute
)

// Entry is one cached representation.
type Entry struct {
	ContentType string `msgpack:"ct"`
	Body        []byte `msgpack:"b"`
}

// ResponseCache stores rendered representations in Valkey. A nil
// *ResponseCache is valid and never hits.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponseCache creates a new response cache backed by the given Valkey client.
func NewResponseCache(client *redis.Client, ttl time.Duration) *ResponseCache {
	if ttl == 0 {
		ttl = DefaultResponseTTL
	}
	return &ResponseCache{client: client, ttl: ttl}
}

// Get returns the cached representation for key.
func (rc *ResponseCache) Get(ctx context.Context, key string) (Entry, bool) {
	if rc == nil {
		return Entry{}, false
	}
	val, err := rc.client.Get(ctx, responseKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return Entry{}, false
	}
	if err != nil {
		slog.Warn("response cache get error", "key", key, "error", err)
		return Entry{}, false
	}
	var e Entry
	if err := msgpack.Unmarshal(val, &e); err != nil {
		slog.Warn("response cache decode error", "key", key, "error", err)
		return Entry{}, false
	}
	slog.Debug("response cache hit", "key", key)
	return e, true
}

// Set stores a representation with the configured TTL.
func (rc *ResponseCache) Set(ctx context.Context, key string, e Entry) {
	if rc == nil {
		return
	}
	data, err := msgpack.Marshal(e)
	if err != nil {
		slog.Warn("response cache encode error", "key", key, "error", err)
		return
	}
	if err := rc.client.Set(ctx, responseKeyPrefix+key, data, rc.ttl).Err(); err != nil {
		slog.Warn("response cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes all cached representations by scanning for the
// prefix. Called after the catalog is re-collected.
func (rc *ResponseCache) InvalidateAll(ctx context.Context) {
	if rc == nil {
		return
	}
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := rc.client.Scan(ctx, cursor, responseKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("response cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("response cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("response cache cleared", "deleted", deleted)
	}
}

// Key derives the cache key of a representation. Query parameters are
// sorted so equivalent URLs share a key.
func Key(path string, query url.Values, mediaType, lang string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(query.Encode()))
	h.Write([]byte{0})
	h.Write([]byte(mediaType))
	h.Write([]byte{0})
	h.Write([]byte(lang))
	return hex.EncodeToString(h.Sum(nil))
}
