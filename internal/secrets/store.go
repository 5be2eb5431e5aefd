// Package secrets provides the parameter store holding shared credentials:
// the WebSub HMAC secret, channel identity, and downstream API keys.
//
// The store is a plain name→value lookup. The HMAC secret is the only
// parameter written at runtime (by subscription renewal); everything else is
// seeded from configuration at startup.
package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Well-known parameter names.
const (
	ParamHMACSecret  = "websub/hmac-secret"
	ParamChannelID   = "youtube/channel-id"
	ParamCallbackURL = "websub/callback-url"
	ParamAPIKey      = "youtube/api-key"
	ParamNotifyURL   = "notify/webhook-url"
	ParamNotifyToken = "notify/token"
)

// ErrNotFound is returned when a parameter has no stored value.
var ErrNotFound = errors.New("parameter not found")

// Store is a name→value parameter store with read-your-writes semantics.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name, value string) error
}

// SQLStore is a Store backed by the parameters table.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("parameter name is empty")
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM parameters WHERE name = ?;", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("read parameter %q: %w", name, err)
	}
	return value, nil
}

func (s *SQLStore) Put(ctx context.Context, name, value string) error {
	if name == "" {
		return fmt.Errorf("parameter name is empty")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO parameters(name, value, updated_at)
VALUES(?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  value = excluded.value,
  updated_at = excluded.updated_at;
`, name, value, now)
	if err != nil {
		return fmt.Errorf("upsert parameter %q: %w", name, err)
	}
	return nil
}

// Seed upserts the given parameters. Used at startup to publish non-rotating
// configuration values; empty values are skipped so a missing optional
// setting does not erase an existing one.
func Seed(ctx context.Context, store Store, params map[string]string) error {
	for name, value := range params {
		if value == "" {
			continue
		}
		if err := store.Put(ctx, name, value); err != nil {
			return err
		}
	}
	return nil
}
