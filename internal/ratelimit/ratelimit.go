// Package ratelimit provides a keyed token-bucket limiter for inbound
// request protection, one independent bucket per client key.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// maxKeys bounds the bucket map. When the cap is hit the map is reset
// wholesale; briefly refilling every client is cheaper than tracking
// last-access times per bucket.
const maxKeys = 16384

// Keyed hands out one token bucket per key. Keys are typically client IPs.
type Keyed struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// New creates a keyed limiter allowing rps requests per second with the
// given burst per key.
func New(rps float64, burst int) *Keyed {
	return &Keyed{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether a request for the given key may proceed now.
func (k *Keyed) Allow(key string) bool {
	return k.bucket(key).Allow()
}

func (k *Keyed) bucket(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	if b, ok := k.buckets[key]; ok {
		return b
	}
	if len(k.buckets) >= maxKeys {
		k.buckets = make(map[string]*rate.Limiter)
	}
	b := rate.NewLimiter(k.limit, k.burst)
	k.buckets[key] = b
	return b
}
