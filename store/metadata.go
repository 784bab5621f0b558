package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/idxerr"
)

// SetMetadata upserts one metadata value; last write wins.
func (tx *Tx) SetMetadata(ctx context.Context, resourceID int64, kind catalog.MetadataKind, value string) error {
	_, err := tx.tx.ExecContext(ctx,
		`INSERT INTO metadata (resource_id, kind, value) VALUES (?, ?, ?)
		 ON CONFLICT (resource_id, kind) DO UPDATE SET value = excluded.value`,
		resourceID, string(kind), value,
	)
	if err != nil {
		return idxerr.Wrap(idxerr.Storage, fmt.Errorf("set metadata %s: %w", kind, err))
	}
	return nil
}

// GetMetadata reads one metadata value.
func (tx *Tx) GetMetadata(ctx context.Context, resourceID int64, kind catalog.MetadataKind) (string, bool, error) {
	var value string
	err := tx.tx.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE resource_id = ? AND kind = ?`,
		resourceID, string(kind),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, idxerr.Wrap(idxerr.Storage, fmt.Errorf("get metadata %s: %w", kind, err))
	}
	return value, true, nil
}

// ChildMetadataValue pairs a child resource's internal id with one of its
// metadata values, used by the completeness evaluator to scan every
// instance of a series without materializing full resource rows.
type ChildMetadataValue struct {
	ResourceID int64
	Value      string
	Present    bool
}

// GetChildrenMetadata reads one metadata kind across all of a resource's
// direct children in a single query. It returns one row per actual child,
// bounded by how many instances actually exist rather than by how many
// were ever expected.
func (tx *Tx) GetChildrenMetadata(ctx context.Context, parentID int64, kind catalog.MetadataKind) ([]ChildMetadataValue, error) {
	rows, err := tx.tx.QueryContext(ctx,
		`SELECT r.id, m.value
		   FROM resources r
		   LEFT JOIN metadata m ON m.resource_id = r.id AND m.kind = ?
		  WHERE r.parent_id = ?`,
		string(kind), parentID,
	)
	if err != nil {
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("get children metadata %s: %w", kind, err))
	}
	defer rows.Close()

	var out []ChildMetadataValue
	for rows.Next() {
		var v ChildMetadataValue
		var value sql.NullString
		if err := rows.Scan(&v.ResourceID, &value); err != nil {
			return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("scan child metadata: %w", err))
		}
		v.Value = value.String
		v.Present = value.Valid
		out = append(out, v)
	}
	return out, rows.Err()
}
