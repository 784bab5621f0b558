package store

import (
	"context"
	"fmt"

	"github.com/kestrelhealth/pacsindex/idxerr"
)

// SetMainTags writes a resource's main tags. Called once at creation time;
// the core treats main tags as immutable thereafter.
func (tx *Tx) SetMainTags(ctx context.Context, resourceID int64, tags map[string]string) error {
	stmt, err := tx.tx.PrepareContext(ctx, `INSERT INTO main_tags (resource_id, tag, value) VALUES (?, ?, ?)`)
	if err != nil {
		return idxerr.Wrap(idxerr.Storage, fmt.Errorf("prepare set main tags: %w", err))
	}
	defer stmt.Close()

	for tag, value := range tags {
		if _, err := stmt.ExecContext(ctx, resourceID, tag, value); err != nil {
			return idxerr.Wrap(idxerr.Storage, fmt.Errorf("set main tag %s: %w", tag, err))
		}
	}
	return nil
}

// GetMainTags reads a resource's main tags.
func (tx *Tx) GetMainTags(ctx context.Context, resourceID int64) (map[string]string, error) {
	rows, err := tx.tx.QueryContext(ctx, `SELECT tag, value FROM main_tags WHERE resource_id = ?`, resourceID)
	if err != nil {
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("get main tags: %w", err))
	}
	defer rows.Close()

	tags := make(map[string]string)
	for rows.Next() {
		var tag, value string
		if err := rows.Scan(&tag, &value); err != nil {
			return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("scan main tag: %w", err))
		}
		tags[tag] = value
	}
	return tags, rows.Err()
}
