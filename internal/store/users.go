package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

type UserStore struct {
	db *sql.DB
}

func (storage *UserStore) CreateUserTx(ctx context.Context, user *models.User) error {
	return withTx(ctx, storage.db, func(tx *sql.Tx) error {
		return storage.Create(ctx, tx, user)
	})
}

func (storage *UserStore) Create(ctx context.Context, tx *sql.Tx, user *models.User) error {
	query := `
    INSERT INTO users (username, email, normalized_email, password, language, signature, signature_html, is_active, role_id)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT id FROM roles WHERE name = ?))`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	role := user.Role.Name
	if role == "" {
		role = models.RoleViewer
	}

	result, err := tx.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		normalizeEmail(user.Email),
		user.Password.Hash,
		user.Language,
		user.Signature,
		user.SignatureHTML,
		user.IsActive,
		role,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			switch {
			case strings.Contains(mysqlErr.Message, "email"):
				return ErrDuplicateEmail
			case strings.Contains(mysqlErr.Message, "username"):
				return ErrDuplicateUsername
			default:
				return ErrConflict
			}
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id

	return tx.QueryRowContext(
		ctx,
		`SELECT created_at, updated_at FROM users WHERE id = ?`,
		id,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

const userColumns = `
	u.id, u.username, u.email, u.password, u.language, u.signature, u.signature_html,
	u.is_active, u.created_at, u.updated_at, u.role_id,
	r.id, r.name, r.level, r.description`

func (storage *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		JOIN roles r ON u.role_id = r.id
		WHERE u.id = ? AND u.is_active = true`

	user, err := storage.scanOne(ctx, query, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (storage *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		JOIN roles r ON u.role_id = r.id
		WHERE u.normalized_email = ?`

	user, err := storage.scanOne(ctx, query, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountNotVerified
	}

	return user, nil
}

func (storage *UserStore) scanOne(ctx context.Context, query string, arg any) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &models.User{}
	err := storage.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password.Hash,
		&user.Language,
		&user.Signature,
		&user.SignatureHTML,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.RoleID,
		&user.Role.ID,
		&user.Role.Name,
		&user.Role.Level,
		&user.Role.Description,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return user, nil
}
