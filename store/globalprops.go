package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/idxerr"
)

// GetGlobalProperty reads a process-wide property.
func (tx *Tx) GetGlobalProperty(ctx context.Context, key catalog.PropertyKey) (string, bool, error) {
	var value string
	err := tx.tx.QueryRowContext(ctx, `SELECT value FROM global_properties WHERE key = ?`, string(key)).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, idxerr.Wrap(idxerr.Storage, fmt.Errorf("get global property %s: %w", key, err))
	}
	return value, true, nil
}

// SetGlobalProperty upserts a process-wide property.
func (tx *Tx) SetGlobalProperty(ctx context.Context, key catalog.PropertyKey, value string) error {
	_, err := tx.tx.ExecContext(ctx,
		`INSERT INTO global_properties (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		string(key), value,
	)
	if err != nil {
		return idxerr.Wrap(idxerr.Storage, fmt.Errorf("set global property %s: %w", key, err))
	}
	return nil
}
