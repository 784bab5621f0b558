package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/idxerr"
)

// AddAttachment records one attachment on a resource. The embedded
// store's UNIQUE(resource_id, content_kind) constraint enforces the
// "exactly one attachment of kind Dicom" invariant at the storage layer
// for re-adds of the same kind.
func (tx *Tx) AddAttachment(ctx context.Context, resourceID int64, att catalog.Attachment) error {
	_, err := tx.tx.ExecContext(ctx,
		`INSERT INTO attachments (resource_id, content_kind, uuid, compressed_size, uncompressed_size)
		 VALUES (?, ?, ?, ?, ?)`,
		resourceID, string(att.ContentKind), att.UUID, att.CompressedSize, att.UncompressedSize,
	)
	if err != nil {
		return idxerr.Wrap(idxerr.Storage, fmt.Errorf("add attachment %s: %w", att.ContentKind, err))
	}
	return nil
}

// GetAttachment looks up one attachment by kind.
func (tx *Tx) GetAttachment(ctx context.Context, resourceID int64, kind catalog.ContentKind) (*catalog.Attachment, error) {
	var att catalog.Attachment
	att.ContentKind = kind
	err := tx.tx.QueryRowContext(ctx,
		`SELECT uuid, compressed_size, uncompressed_size FROM attachments WHERE resource_id = ? AND content_kind = ?`,
		resourceID, string(kind),
	).Scan(&att.UUID, &att.CompressedSize, &att.UncompressedSize)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("get attachment %s: %w", kind, err))
	}
	return &att, nil
}

// ListAttachments returns every attachment on a resource, for the
// deletion walker to signal before the attachment rows vanish.
func (tx *Tx) ListAttachments(ctx context.Context, resourceID int64) ([]catalog.Attachment, error) {
	rows, err := tx.tx.QueryContext(ctx,
		`SELECT content_kind, uuid, compressed_size, uncompressed_size FROM attachments WHERE resource_id = ?`,
		resourceID,
	)
	if err != nil {
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("list attachments: %w", err))
	}
	defer rows.Close()

	var out []catalog.Attachment
	for rows.Next() {
		var att catalog.Attachment
		var kind string
		if err := rows.Scan(&kind, &att.UUID, &att.CompressedSize, &att.UncompressedSize); err != nil {
			return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("scan attachment: %w", err))
		}
		att.ContentKind = catalog.ContentKind(kind)
		out = append(out, att)
	}
	return out, rows.Err()
}
