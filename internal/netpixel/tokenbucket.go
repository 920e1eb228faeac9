package netpixel

import (
	"sync"
	"time"
)

// tokenBucket throttles inbound bytes to a configured bits-per-second rate.
// Tokens (bytes) refill continuously at rate and are capped at capacity, so
// a client can burst up to one second's worth of traffic before being made
// to wait.
type tokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	rate     float64 // bytes per second
	last     time.Time
	now      func() time.Time
}

func newTokenBucket(bitsPerSec uint64) *tokenBucket {
	rate := float64(bitsPerSec) / 8
	return &tokenBucket{
		capacity: rate,
		tokens:   rate,
		rate:     rate,
		last:     time.Now(),
		now:      time.Now,
	}
}

// acquire blocks until n bytes worth of tokens are available, then consumes
// them.
func (tb *tokenBucket) acquire(n int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	for {
		now := tb.now()
		tb.tokens += now.Sub(tb.last).Seconds() * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.last = now

		if tb.tokens >= float64(n) {
			tb.tokens -= float64(n)
			return
		}

		deficit := float64(n) - tb.tokens
		wait := time.Duration(deficit / tb.rate * float64(time.Second))
		tb.mu.Unlock()
		time.Sleep(wait)
		tb.mu.Lock()
	}
}
