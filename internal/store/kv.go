package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Boolean values round-trip through these literal strings.
const (
	TrueString  = "true"
	FalseString = "false"
)

// Get returns the value stored under (scope, key), or an empty string
// when the key has never been written. Absence is not an error.
func (s *Store) Get(ctx context.Context, scope, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM config WHERE scope = ? AND key = ?
	`, scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s/%s: %w", scope, key, err)
	}
	return value, nil
}

// Put stores value under (scope, key), replacing any previous value.
func (s *Store) Put(ctx context.Context, scope, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (scope, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value
	`, scope, key, value)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", scope, key, err)
	}
	return nil
}

// GetBool reads a boolean stored as "true"/"false". Absent or
// unrecognized values read as false.
func (s *Store) GetBool(ctx context.Context, scope, key string) (bool, error) {
	value, err := s.Get(ctx, scope, key)
	if err != nil {
		return false, err
	}
	return value == TrueString, nil
}

// PutBool stores a boolean as the literal string "true" or "false".
func (s *Store) PutBool(ctx context.Context, scope, key string, value bool) error {
	str := FalseString
	if value {
		str = TrueString
	}
	return s.Put(ctx, scope, key, str)
}
