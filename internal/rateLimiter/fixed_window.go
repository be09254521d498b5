package ratelimiter

import (
	"sync"
	"time"
)

type FixedWindowRateLimiter struct {
	sync.Mutex
	client map[string]int
	limit  int
	window time.Duration
}

func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		client: make(map[string]int),
		limit:  limit,
		window: window,
	}
}

// Allow counts a request for key; the first request of a window schedules its reset.
func (rateLimit *FixedWindowRateLimiter) Allow(key string) (bool, time.Duration) {
	rateLimit.Lock()
	defer rateLimit.Unlock()

	count, exist := rateLimit.client[key]
	if exist && count >= rateLimit.limit {
		return false, rateLimit.window
	}

	if !exist {
		time.AfterFunc(rateLimit.window, func() { rateLimit.resetCount(key) })
	}
	rateLimit.client[key]++

	return true, 0
}

func (rateLimit *FixedWindowRateLimiter) resetCount(key string) {
	rateLimit.Lock()
	delete(rateLimit.client, key)
	rateLimit.Unlock()
}
