package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

// RoleStore reads roles by name. Roles are fixed by migrations, so lookups are
// memoized for the life of the process.
type RoleStore struct {
	db *sql.DB

	mu     sync.RWMutex
	byName map[string]models.Role
}

func (storage *RoleStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	storage.mu.RLock()
	role, ok := storage.byName[name]
	storage.mu.RUnlock()
	if ok {
		return &role, nil
	}

	query := `SELECT id, name, description, level FROM roles WHERE name = ?`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var description sql.NullString
	err := storage.db.QueryRowContext(ctx, query, name).Scan(
		&role.ID,
		&role.Name,
		&description,
		&role.Level,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	role.Description = description.String

	storage.mu.Lock()
	if storage.byName == nil {
		storage.byName = make(map[string]models.Role)
	}
	storage.byName[name] = role
	storage.mu.Unlock()

	return &role, nil
}
