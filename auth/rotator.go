// Package auth manages the YouTube API key pool and round-robin rotation.
package auth

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrNoKeys indicates the rotator was asked for a key but the pool is empty.
var ErrNoKeys = errors.New("auth: no api keys configured")

// KeyRotator hands out API keys round-robin so quota consumption spreads
// evenly across the pool. The pool is immutable after construction; only the
// cursor mutates, guarded by a mutex so concurrent Next calls are atomic.
type KeyRotator struct {
	mu   sync.Mutex
	keys []string
	next int
}

// NewKeyRotator creates a rotator over the given ordered key pool.
// An empty pool is allowed at construction; Next will fail with ErrNoKeys.
func NewKeyRotator(keys []string) *KeyRotator {
	pool := make([]string, len(keys))
	copy(pool, keys)
	return &KeyRotator{keys: pool}
}

// Next returns the key at the current cursor and advances the cursor modulo
// the pool size.
func (r *KeyRotator) Next() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return "", ErrNoKeys
	}
	key := r.keys[r.next]
	r.next = (r.next + 1) % len(r.keys)
	return key, nil
}

// Size returns the number of keys in the pool.
func (r *KeyRotator) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// KeysFromEnv loads API keys from the environment. A single YOUTUBE_API_KEY
// wins; otherwise YOUTUBE_API_KEY_1..n are collected until the first gap.
// When the environment provides nothing, fallback is returned.
func KeysFromEnv(fallback []string) []string {
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		return []string{key}
	}

	var keys []string
	for i := 1; ; i++ {
		key := os.Getenv(fmt.Sprintf("YOUTUBE_API_KEY_%d", i))
		if key == "" {
			break
		}
		keys = append(keys, key)
	}
	if len(keys) > 0 {
		return keys
	}
	return fallback
}
