package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

const UserExpTime = time.Minute * 5

var errNoRedis = errors.New("redis client not initialized")

// UserStore caches the acting user between authenticated requests.
// A miss is reported as (nil, nil).
type UserStore struct {
	rdb *redis.Client
}

func userKey(id int64) string {
	return fmt.Sprintf("user-%d", id)
}

func (storage *UserStore) Get(ctx context.Context, userID int64) (*models.User, error) {
	if storage.rdb == nil {
		return nil, errNoRedis
	}

	data, err := storage.rdb.Get(ctx, userKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}

	return &user, nil
}

func (storage *UserStore) Set(ctx context.Context, user *models.User) error {
	if storage.rdb == nil {
		return errNoRedis
	}

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return storage.rdb.SetEX(ctx, userKey(user.ID), data, UserExpTime).Err()
}

// Delete drops a cached user, e.g. after its role or signature changed.
func (storage *UserStore) Delete(ctx context.Context, userID int64) error {
	if storage.rdb == nil {
		return errNoRedis
	}
	return storage.rdb.Del(ctx, userKey(userID)).Err()
}
