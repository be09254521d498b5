package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

type Storage struct {
	Users interface {
		Get(context.Context, int64) (*models.User, error)
		Set(context.Context, *models.User) error
	}
	Wizards interface {
		Get(ctx context.Context, id string) (*models.WizardState, error)
		Set(ctx context.Context, state *models.WizardState) error
		Delete(ctx context.Context, id string) error
	}
}

func NewRedisStorage(rdb *redis.Client, wizardTTL time.Duration) Storage {
	return Storage{
		Users:   &UserStore{rdb: rdb},
		Wizards: &WizardStore{rdb: rdb, ttl: wizardTTL},
	}
}
