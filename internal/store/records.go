package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

var ErrUnknownModel = errors.New("unknown record model")

type RecordStore struct {
	db *sql.DB
}

func (storage *RecordStore) Get(ctx context.Context, model string, id int64) (*models.Record, error) {
	return getRecord(ctx, storage.db, model, id)
}

func getRecord(ctx context.Context, q querier, model string, id int64) (*models.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var table string
	err := q.QueryRowContext(ctx, `SELECT table_name FROM record_models WHERE model = ?`, model).Scan(&table)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
		}
		return nil, err
	}
	if !validIdentifier(table) {
		return nil, fmt.Errorf("%w: invalid table %q", ErrUnknownModel, table)
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT * FROM `%s` WHERE id = ? LIMIT 1", table), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	values := make(map[string]any, len(columns))
	for i, col := range columns {
		values[col.Name()] = normalizeValue(col.DatabaseTypeName(), raw[i])
	}

	return &models.Record{Model: model, ID: id, Values: values}, nil
}

// normalizeValue maps driver values to string, int, float64, bool or nil.
func normalizeValue(typeName string, v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case []byte:
		return normalizeText(typeName, string(value))
	case string:
		return normalizeText(typeName, value)
	case int64:
		return int(value)
	case int32:
		return int(value)
	case uint64:
		return int(value)
	case float32:
		return float64(value)
	case float64:
		return value
	case bool:
		return value
	case time.Time:
		return value.Format(time.DateTime)
	default:
		return fmt.Sprint(value)
	}
}

func normalizeText(typeName, value string) any {
	switch strings.ToUpper(strings.TrimPrefix(strings.ToUpper(typeName), "UNSIGNED ")) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return int(n)
		}
	case "DECIMAL", "FLOAT", "DOUBLE":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case "BIT", "BOOL", "BOOLEAN":
		return value != "" && value != "0" && value != "\x00"
	}
	return value
}

func validIdentifier(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
