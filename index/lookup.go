package index

import (
	"context"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/idxerr"
	"github.com/kestrelhealth/pacsindex/store"
)

// LookupResource returns the read model for a resource. If level is
// non-nil, a resource found at a different level is reported as not found
// rather than silently returned.
func (f *Facade) LookupResource(ctx context.Context, publicID string, level *catalog.ResourceLevel) (*catalog.ResourceView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var view *catalog.ResourceView

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		row, err := tx.GetResourceByPublicID(ctx, publicID)
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		if level != nil && row.Level != *level {
			return nil
		}
		view, err = buildResourceView(ctx, tx, row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// LookupAttachment returns the named attachment of a resource, or nil if
// the resource or the attachment does not exist.
func (f *Facade) LookupAttachment(ctx context.Context, publicID string, kind catalog.ContentKind) (*catalog.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var att *catalog.Attachment

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		row, err := tx.GetResourceByPublicID(ctx, publicID)
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		att, err = tx.GetAttachment(ctx, row.ID, kind)
		return err
	})
	if err != nil {
		return nil, err
	}
	return att, nil
}

// GetAllPublicIds returns every public id at a level, serving from cache
// when the level has not been invalidated by an intervening write.
func (f *Facade) GetAllPublicIds(ctx context.Context, level catalog.ResourceLevel) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ids, ok := f.cache.Get(level); ok {
		return ids, nil
	}

	var ids []string
	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		ids, err = tx.GetAllPublicIds(ctx, level)
		return err
	})
	if err != nil {
		return nil, err
	}

	f.cache.Set(level, ids)
	return ids, nil
}

// ComputeStatistics aggregates disk usage and resource counts across the
// whole hierarchy.
func (f *Facade) ComputeStatistics(ctx context.Context) (*catalog.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var stats catalog.Statistics

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		compressed, uncompressed, err := tx.SumAttachmentSizes(ctx)
		if err != nil {
			return err
		}
		stats.TotalDiskSize = compressed
		stats.TotalUncompressedSize = uncompressed

		counts := map[catalog.ResourceLevel]*int64{
			catalog.Patient:  &stats.CountPatients,
			catalog.Study:    &stats.CountStudies,
			catalog.Series:   &stats.CountSeries,
			catalog.Instance: &stats.CountInstances,
		}
		for level, dest := range counts {
			count, err := tx.GetResourceCount(ctx, level)
			if err != nil {
				return err
			}
			*dest = count
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

var errResourceNotFound = idxerr.Newf(idxerr.BadRequest, "resource not found")
