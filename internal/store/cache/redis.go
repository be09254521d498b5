package cache

import (
	"time"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient connects to the instance holding wizard sessions and cached users.
// Wizard states carry uploaded files, so writes get a longer timeout than reads.
func NewRedisClient(address, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         address,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
}
