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

var ErrWizardNotFound = errors.New("wizard session not found or expired")

const DefaultWizardExpTime = time.Hour

type WizardStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func wizardKey(id string) string {
	return fmt.Sprintf("wizard-%s", id)
}

func (storage *WizardStore) Get(ctx context.Context, id string) (*models.WizardState, error) {
	if storage.rdb == nil {
		return nil, errNoRedis
	}

	data, err := storage.rdb.Get(ctx, wizardKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrWizardNotFound
	} else if err != nil {
		return nil, err
	}

	var state models.WizardState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// Set stores the state and restarts its expiry.
func (storage *WizardStore) Set(ctx context.Context, state *models.WizardState) error {
	if storage.rdb == nil {
		return errNoRedis
	}

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	ttl := storage.ttl
	if ttl <= 0 {
		ttl = DefaultWizardExpTime
	}

	return storage.rdb.SetEX(ctx, wizardKey(state.ID), data, ttl).Err()
}

func (storage *WizardStore) Delete(ctx context.Context, id string) error {
	if storage.rdb == nil {
		return errNoRedis
	}
	return storage.rdb.Del(ctx, wizardKey(id)).Err()
}
