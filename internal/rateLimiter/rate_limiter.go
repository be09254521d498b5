package ratelimiter

import "time"

// Limiter counts requests per key, usually the client address or the acting user.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

type Config struct {
	RequestPerTimeForIP int
	TimeFrame           time.Duration
	Enabled             bool
	// SendsPerTimeForUser bounds wizard dispatches per user in TimeFrame.
	SendsPerTimeForUser int
}
