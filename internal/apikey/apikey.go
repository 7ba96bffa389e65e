// Package apikey manages the admin API keys of the scoring service. Raw keys
// are generated with crypto/rand and only their SHA-256 digest is stored in
// PostgreSQL; a presented key is checked by hashing it and looking the digest
// up.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/postgres"
	"github.com/google/uuid"
)

var (
	ErrInvalidKey = errors.New("invalid api key")
	ErrExpiredKey = errors.New("api key expired")
)

// KeyInfo is the metadata of a stored key. The hash never leaves the store.
type KeyInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Store keeps API keys in the api_keys table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "apikey-store"),
	}
}

// EnsureSchema creates the api_keys table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.Migrate(ctx, "api_keys",
		`CREATE TABLE IF NOT EXISTS api_keys (
			id         UUID PRIMARY KEY,
			key_hash   TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			is_active  BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ
		)`,
	)
}

// Validate returns the active key matching rawKey, or ErrInvalidKey /
// ErrExpiredKey.
func (s *Store) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	var info KeyInfo
	var expiresAt sql.NullTime
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, name, created_at, expires_at
		 FROM api_keys
		 WHERE key_hash = $1 AND is_active = true`,
		HashKey(rawKey),
	).Scan(&info.ID, &info.Name, &info.CreatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}

	if expiresAt.Valid {
		if expiresAt.Time.Before(time.Now()) {
			return nil, ErrExpiredKey
		}
		info.ExpiresAt = &expiresAt.Time
	}
	return &info, nil
}

// Create stores a new key and returns the raw key. The raw key cannot be
// recovered later.
func (s *Store) Create(ctx context.Context, name string, expiresAt *time.Time) (string, error) {
	rawKey, err := generateRawKey()
	if err != nil {
		return "", err
	}

	var expiry sql.NullTime
	if expiresAt != nil {
		expiry = sql.NullTime{Time: *expiresAt, Valid: true}
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO api_keys (id, key_hash, name, expires_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), HashKey(rawKey), name, expiry,
	)
	if err != nil {
		return "", fmt.Errorf("creating api key: %w", err)
	}

	s.logger.Info("api key created", "name", name)
	return rawKey, nil
}

// Revoke deactivates a key.
func (s *Store) Revoke(ctx context.Context, rawKey string) error {
	result, err := s.db.DB.ExecContext(ctx,
		`UPDATE api_keys SET is_active = false WHERE key_hash = $1 AND is_active = true`,
		HashKey(rawKey),
	)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrInvalidKey
	}

	s.logger.Info("api key revoked")
	return nil
}

// List returns the active keys, newest first.
func (s *Store) List(ctx context.Context) ([]KeyInfo, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, name, created_at, expires_at FROM api_keys WHERE is_active = true ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var keys []KeyInfo
	for rows.Next() {
		var k KeyInfo
		var expiresAt sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &k.CreatedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		if expiresAt.Valid {
			k.ExpiresAt = &expiresAt.Time
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// HashKey returns the hex SHA-256 digest of a raw key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateRawKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
