package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/idxerr"
)

// AppendChange appends one ChangeEvent and returns its assigned sequence
// number, strictly increasing and gap-free within a run.
func (tx *Tx) AppendChange(ctx context.Context, kind catalog.ChangeKind, resourcePublicID string, level catalog.ResourceLevel, timestampISO string) (int64, error) {
	res, err := tx.tx.ExecContext(ctx,
		`INSERT INTO changes (kind, resource_public_id, resource_level, timestamp_iso) VALUES (?, ?, ?, ?)`,
		string(kind), resourcePublicID, int(level), timestampISO,
	)
	if err != nil {
		return 0, idxerr.Wrap(idxerr.Storage, fmt.Errorf("append change: %w", err))
	}
	return res.LastInsertId()
}

// GetChanges returns events with seq > since, up to max, ascending, plus
// done, which is true when no events remain beyond what was returned.
func (tx *Tx) GetChanges(ctx context.Context, since int64, max int) ([]catalog.ChangeEvent, bool, error) {
	rows, err := tx.tx.QueryContext(ctx,
		`SELECT seq, kind, resource_public_id, resource_level, timestamp_iso
		   FROM changes WHERE seq > ? ORDER BY seq ASC LIMIT ?`,
		since, max+1,
	)
	if err != nil {
		return nil, false, idxerr.Wrap(idxerr.Storage, fmt.Errorf("get changes: %w", err))
	}
	defer rows.Close()

	var events []catalog.ChangeEvent
	for rows.Next() {
		var e catalog.ChangeEvent
		var kind string
		var level int
		if err := rows.Scan(&e.Seq, &kind, &e.ResourceID, &level, &e.TimestampISO); err != nil {
			return nil, false, idxerr.Wrap(idxerr.Storage, fmt.Errorf("scan change: %w", err))
		}
		e.Kind = catalog.ChangeKind(kind)
		e.ResourceLevel = catalog.ResourceLevel(level)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, idxerr.Wrap(idxerr.Storage, fmt.Errorf("iterate changes: %w", err))
	}

	done := true
	if len(events) > max {
		events = events[:max]
		done = false
	}
	return events, done, nil
}

// GetLastChange returns the highest-seq ChangeEvent, or nil if the log is
// empty.
func (tx *Tx) GetLastChange(ctx context.Context) (*catalog.ChangeEvent, error) {
	var e catalog.ChangeEvent
	var kind string
	var level int
	err := tx.tx.QueryRowContext(ctx,
		`SELECT seq, kind, resource_public_id, resource_level, timestamp_iso
		   FROM changes ORDER BY seq DESC LIMIT 1`,
	).Scan(&e.Seq, &kind, &e.ResourceID, &level, &e.TimestampISO)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("get last change: %w", err))
	}
	e.Kind = catalog.ChangeKind(kind)
	e.ResourceLevel = catalog.ResourceLevel(level)
	return &e, nil
}
