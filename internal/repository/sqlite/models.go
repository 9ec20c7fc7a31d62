package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"FinGenius/internal/domain/models"
)

// ModelStore keeps every saved version of a model as its own row.
type ModelStore struct {
	store *Store
}

func NewModelStore(s *Store) *ModelStore { return &ModelStore{store: s} }

// Save writes the next version of key and returns it.
func (m *ModelStore) Save(ctx context.Context, key, kind string, blob []byte) (int64, error) {
	var version int64
	err := m.store.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM models WHERE model_key = ?`, key).
			Scan(&version); err != nil {
			return fmt.Errorf("next model version: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO models (model_key, version, kind, blob, created_at) VALUES (?, ?, ?, ?, ?)`,
			key, version, kind, blob, formatTime(m.store.now())); err != nil {
			return fmt.Errorf("insert model: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// Load returns the latest version of key.
func (m *ModelStore) Load(ctx context.Context, key string) (*models.ModelRecord, error) {
	const q = `
        SELECT model_key, kind, version, blob, created_at FROM models
        WHERE model_key = ? ORDER BY version DESC LIMIT 1
    `
	var rec models.ModelRecord
	var created string
	err := m.store.db.QueryRowContext(ctx, q, key).Scan(&rec.Key, &rec.Kind, &rec.Version, &rec.Blob, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %s: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	rec.CreatedAt = parseTime(created)
	return &rec, nil
}
