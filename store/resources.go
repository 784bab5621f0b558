package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/idxerr"
)

// ResourceRow is one row of the resources table.
type ResourceRow struct {
	ID       int64
	PublicID string
	Level    catalog.ResourceLevel
	ParentID sql.NullInt64
}

// GetResourceByPublicID looks up a resource by its public id at any level;
// LookupResource and DeleteResource compare the returned Level themselves
// and reject a mismatch.
func (tx *Tx) GetResourceByPublicID(ctx context.Context, publicID string) (*ResourceRow, error) {
	row := tx.tx.QueryRowContext(ctx,
		`SELECT id, public_id, level, parent_id FROM resources WHERE public_id = ?`,
		publicID,
	)
	return scanResourceRow(row)
}

// GetResourceByID looks up a resource by its internal id. The internal id
// never crosses the facade boundary.
func (tx *Tx) GetResourceByID(ctx context.Context, id int64) (*ResourceRow, error) {
	row := tx.tx.QueryRowContext(ctx,
		`SELECT id, public_id, level, parent_id FROM resources WHERE id = ?`,
		id,
	)
	return scanResourceRow(row)
}

func scanResourceRow(row *sql.Row) (*ResourceRow, error) {
	var r ResourceRow
	var level int
	if err := row.Scan(&r.ID, &r.PublicID, &level, &r.ParentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("get resource: %w", err))
	}
	r.Level = catalog.ResourceLevel(level)
	return &r, nil
}

// CreateResource inserts a new resource row. parentID is nil for a
// Patient; every other level requires a parent.
func (tx *Tx) CreateResource(ctx context.Context, publicID string, level catalog.ResourceLevel, parentID *int64) (int64, error) {
	var parent sql.NullInt64
	if parentID != nil {
		parent = sql.NullInt64{Int64: *parentID, Valid: true}
	}

	res, err := tx.tx.ExecContext(ctx,
		`INSERT INTO resources (public_id, level, parent_id) VALUES (?, ?, ?)`,
		publicID, int(level), parent,
	)
	if err != nil {
		return 0, idxerr.Wrap(idxerr.Storage, fmt.Errorf("create resource %s: %w", publicID, err))
	}
	return res.LastInsertId()
}

// ListChildren returns the internal ids of a resource's direct children.
func (tx *Tx) ListChildren(ctx context.Context, id int64) ([]int64, error) {
	rows, err := tx.tx.QueryContext(ctx, `SELECT id FROM resources WHERE parent_id = ?`, id)
	if err != nil {
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("list children: %w", err))
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var childID int64
		if err := rows.Scan(&childID); err != nil {
			return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("scan child id: %w", err))
		}
		ids = append(ids, childID)
	}
	return ids, rows.Err()
}

// ListChildrenPublicIDs returns the public ids of a resource's direct
// children, for LookupResource's Studies/Series/Instances fields.
func (tx *Tx) ListChildrenPublicIDs(ctx context.Context, id int64) ([]string, error) {
	rows, err := tx.tx.QueryContext(ctx, `SELECT public_id FROM resources WHERE parent_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("list children public ids: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var publicID string
		if err := rows.Scan(&publicID); err != nil {
			return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("scan child public id: %w", err))
		}
		ids = append(ids, publicID)
	}
	return ids, rows.Err()
}

// CountChildren reports how many direct children a resource has.
func (tx *Tx) CountChildren(ctx context.Context, id int64) (int, error) {
	var count int
	err := tx.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources WHERE parent_id = ?`, id).Scan(&count)
	if err != nil {
		return 0, idxerr.Wrap(idxerr.Storage, fmt.Errorf("count children: %w", err))
	}
	return count, nil
}

// DeleteResourceRow deletes one resource row (main_tags/metadata/
// attachments cascade via the schema's foreign keys). The caller must have
// already removed or accounted for its children.
func (tx *Tx) DeleteResourceRow(ctx context.Context, id int64) error {
	if _, err := tx.tx.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id); err != nil {
		return idxerr.Wrap(idxerr.Storage, fmt.Errorf("delete resource: %w", err))
	}
	return nil
}

// GetAllPublicIds returns every public id at a level.
func (tx *Tx) GetAllPublicIds(ctx context.Context, level catalog.ResourceLevel) ([]string, error) {
	rows, err := tx.tx.QueryContext(ctx, `SELECT public_id FROM resources WHERE level = ? ORDER BY id`, int(level))
	if err != nil {
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("list public ids: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var publicID string
		if err := rows.Scan(&publicID); err != nil {
			return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("scan public id: %w", err))
		}
		ids = append(ids, publicID)
	}
	return ids, rows.Err()
}

// GetResourceCount returns the number of resources at a level, used
// directly by ComputeStatistics.
func (tx *Tx) GetResourceCount(ctx context.Context, level catalog.ResourceLevel) (int64, error) {
	var count int64
	err := tx.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources WHERE level = ?`, int(level)).Scan(&count)
	if err != nil {
		return 0, idxerr.Wrap(idxerr.Storage, fmt.Errorf("count resources: %w", err))
	}
	return count, nil
}

// BufferFileDelete records a blob uuid slated for removal once the
// enclosing transaction commits.
func (tx *Tx) BufferFileDelete(uuid string) {
	tx.bufferFileDelete(uuid)
}

// BufferRemainingAncestor records a surviving ancestor discovered while
// cascading a delete upward.
func (tx *Tx) BufferRemainingAncestor(level catalog.ResourceLevel, publicID string) {
	tx.bufferRemainingAncestor(int(level), publicID)
}
