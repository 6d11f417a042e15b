package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redroostertech/slop-ai/pkg/models"
)

// conflictKey is the single key under which the whole conflict list lives.
const conflictKey = "conflicts"

// PostgresConflictStore persists the conflict ledger as one list-valued
// blob: the list is read and replaced wholesale. The engine owns the
// schema of the list, not the storage mechanism.
type PostgresConflictStore struct {
	db *sql.DB
}

// NewPostgresConflictStore creates a conflict blob store.
func NewPostgresConflictStore(db *sql.DB) *PostgresConflictStore {
	return &PostgresConflictStore{db: db}
}

// Get returns the full conflict list. A missing blob is an empty ledger,
// not an error.
func (s *PostgresConflictStore) Get(ctx context.Context) ([]models.Conflict, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, conflictKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Conflict{}, nil
		}
		return nil, fmt.Errorf("read conflict store: %w", err)
	}

	var conflicts []models.Conflict
	if err := json.Unmarshal(raw, &conflicts); err != nil {
		return nil, fmt.Errorf("decode conflict store: %w", err)
	}
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}

	return conflicts, nil
}

// Set replaces the full conflict list.
func (s *PostgresConflictStore) Set(ctx context.Context, conflicts []models.Conflict) error {
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	raw, err := json.Marshal(conflicts)
	if err != nil {
		return fmt.Errorf("encode conflict store: %w", err)
	}

	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, conflictKey, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("write conflict store: %w", err)
	}

	return nil
}
