package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillhq/till/internal/domain/settings"
)

// SettingsRepository stores the single store-settings document as raw JSONB;
// the settings parser handles whatever shape clients have written.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a SettingsRepository that uses the given pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get loads and parses the settings document, falling back to defaults when
// none has been written yet.
func (r *SettingsRepository) Get(ctx context.Context) (settings.Settings, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM store_settings WHERE id = 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings.Default(), nil
		}
		return settings.Settings{}, fmt.Errorf("loading settings: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return settings.Settings{}, fmt.Errorf("unmarshaling settings: %w", err)
	}
	return settings.Parse(doc), nil
}

// Put replaces the settings document.
func (r *SettingsRepository) Put(ctx context.Context, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO store_settings (id, doc)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, raw)
	if err != nil {
		return fmt.Errorf("storing settings: %w", err)
	}
	return nil
}
