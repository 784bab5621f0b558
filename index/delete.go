package index

import (
	"context"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/store"
)

// DeleteResource removes a resource and every descendant, then cascades
// upward: an ancestor left with zero children is removed too, and the walk
// stops at the first ancestor that still has other children. That ancestor
// is reported back as the RemainingAncestor so a caller can refresh its
// view of the hierarchy without re-walking it from the root.
//
// If level is non-nil and the resource exists at a different level, the
// delete is rejected rather than silently deleting the wrong thing.
func (f *Facade) DeleteResource(ctx context.Context, publicID string, level *catalog.ResourceLevel) (catalog.DeleteResult, error) {
	ctx, log := f.beginOperation(ctx, "DeleteResource")
	f.mu.Lock()
	defer f.mu.Unlock()

	var result catalog.DeleteResult

	fileDeletes, remaining, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		row, err := tx.GetResourceByPublicID(ctx, publicID)
		if err != nil {
			return err
		}
		if row == nil {
			return errResourceNotFound
		}
		if level != nil && row.Level != *level {
			return errResourceNotFound
		}

		if err := deleteSubtree(ctx, tx, row.ID); err != nil {
			return err
		}
		result.Removed = true

		parentID := row.ParentID
		for parentID.Valid {
			parentRow, err := tx.GetResourceByID(ctx, parentID.Int64)
			if err != nil {
				return err
			}
			if parentRow == nil {
				break
			}

			count, err := tx.CountChildren(ctx, parentRow.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				tx.BufferRemainingAncestor(parentRow.Level, parentRow.PublicID)
				break
			}

			if err := deleteResourceAndAttachments(ctx, tx, parentRow.ID); err != nil {
				return err
			}
			parentID = parentRow.ParentID
		}

		return nil
	})
	if err != nil {
		log.WithError(err).Error("delete failed")
		return catalog.DeleteResult{}, err
	}

	f.cache.InvalidateAll()

	for _, uuid := range fileDeletes {
		f.sink.DeleteFile(uuid)
	}
	for _, signal := range remaining {
		ancestor := catalog.RemainingAncestor{Level: catalog.ResourceLevel(signal.Level), PublicID: signal.PublicID}
		if result.RemainingAncestor == nil || ancestor.Level < result.RemainingAncestor.Level {
			result.RemainingAncestor = &ancestor
		}
		f.sink.SignalRemainingAncestor(ancestor)
	}

	log.Info("delete completed", "resource", publicID, "files_deleted", len(fileDeletes))
	return result, nil
}

// deleteSubtree removes id and all of its descendants, depth-first, so a
// parent row is never deleted while a child still references it.
func deleteSubtree(ctx context.Context, tx *store.Tx, id int64) error {
	children, err := tx.ListChildren(ctx, id)
	if err != nil {
		return err
	}
	for _, childID := range children {
		if err := deleteSubtree(ctx, tx, childID); err != nil {
			return err
		}
	}
	return deleteResourceAndAttachments(ctx, tx, id)
}

// deleteResourceAndAttachments buffers every attachment's blob uuid for
// removal once the transaction commits, then deletes the resource row
// itself (which cascades main_tags/metadata/attachments via the schema).
func deleteResourceAndAttachments(ctx context.Context, tx *store.Tx, id int64) error {
	attachments, err := tx.ListAttachments(ctx, id)
	if err != nil {
		return err
	}
	for _, att := range attachments {
		tx.BufferFileDelete(att.UUID)
	}
	return tx.DeleteResourceRow(ctx, id)
}
