package index

import (
	"context"
	"time"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/completeness"
	"github.com/kestrelhealth/pacsindex/idhash"
	"github.com/kestrelhealth/pacsindex/idxerr"
	"github.com/kestrelhealth/pacsindex/maintags"
	"github.com/kestrelhealth/pacsindex/store"
)

// firstTag returns the value of the first of keywords that is present on
// summary, preferring earlier keywords over later ones.
func firstTag(summary catalog.DicomSummary, keywords ...string) (string, bool) {
	for _, keyword := range keywords {
		if value, ok := summary.Tag(keyword); ok {
			return value, true
		}
	}
	return "", false
}

// Store ingests one DICOM instance received from remoteAet. It is
// idempotent: re-ingesting an instance whose identifying tags hash to an
// already-known public id returns StoreAlreadyStored without touching the
// hierarchy or the attachment.
//
// Ancestors (Patient, Study, Series) are created lazily, keyed by the same
// content hash, regardless of the order in which their existence is
// checked: whichever ancestor already exists becomes the attachment point
// for whatever is missing beneath it.
func (f *Facade) Store(ctx context.Context, summary catalog.DicomSummary, attachment catalog.AttachmentInput, remoteAet string) (catalog.StoreOutcome, *catalog.ResourceView, error) {
	ctx, log := f.beginOperation(ctx, "Store")
	hashes := idhash.Compute(summary)
	now := time.Now().UTC().Format(time.RFC3339)

	f.mu.Lock()
	defer f.mu.Unlock()

	var outcome catalog.StoreOutcome
	var view *catalog.ResourceView
	var touchedLevels []catalog.ResourceLevel
	var changeEvents []catalog.ChangeEvent

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		existing, err := tx.GetResourceByPublicID(ctx, hashes.Instance)
		if err != nil {
			return err
		}
		if existing != nil {
			outcome = catalog.StoreAlreadyStored
			view, err = buildResourceView(ctx, tx, existing)
			return err
		}

		patientID, err := ensureAncestor(ctx, tx, hashes.Patient, catalog.Patient, nil, summary)
		if err != nil {
			return err
		}
		studyID, err := ensureAncestor(ctx, tx, hashes.Study, catalog.Study, &patientID, summary)
		if err != nil {
			return err
		}
		seriesID, err := ensureAncestor(ctx, tx, hashes.Series, catalog.Series, &studyID, summary)
		if err != nil {
			return err
		}

		instanceID, err := tx.CreateResource(ctx, hashes.Instance, catalog.Instance, &seriesID)
		if err != nil {
			return err
		}
		if err := tx.SetMainTags(ctx, instanceID, maintags.Project(catalog.Instance, summary)); err != nil {
			return err
		}
		if indexInSeries, ok := firstTag(summary, "InstanceNumber", "ImageIndex"); ok {
			if err := tx.SetMetadata(ctx, instanceID, catalog.MetadataIndexInSeries, indexInSeries); err != nil {
				return err
			}
		}
		if err := tx.SetMetadata(ctx, instanceID, catalog.MetadataReceptionDate, now); err != nil {
			return err
		}
		if err := tx.SetMetadata(ctx, instanceID, catalog.MetadataRemoteAet, remoteAet); err != nil {
			return err
		}
		if err := tx.AddAttachment(ctx, instanceID, catalog.Attachment{
			ContentKind:      attachment.ContentKind,
			UUID:             attachment.UUID,
			CompressedSize:   attachment.CompressedSize,
			UncompressedSize: attachment.UncompressedSize,
		}); err != nil {
			return err
		}

		touchedLevels = []catalog.ResourceLevel{catalog.Patient, catalog.Study, catalog.Series, catalog.Instance}

		for _, entry := range []struct {
			kind  catalog.ChangeKind
			id    string
			level catalog.ResourceLevel
		}{
			{catalog.ChangeModifiedInstance, hashes.Instance, catalog.Instance},
			{catalog.ChangeModifiedSeries, hashes.Series, catalog.Series},
			{catalog.ChangeModifiedStudy, hashes.Study, catalog.Study},
			{catalog.ChangeModifiedPatient, hashes.Patient, catalog.Patient},
		} {
			seq, err := tx.AppendChange(ctx, entry.kind, entry.id, entry.level, now)
			if err != nil {
				return err
			}
			changeEvents = append(changeEvents, catalog.ChangeEvent{
				Seq: seq, Kind: entry.kind, ResourceID: entry.id, ResourceLevel: entry.level, TimestampISO: now,
			})
		}

		status, err := seriesCompleteness(ctx, tx, seriesID)
		if err != nil {
			return err
		}
		if status == catalog.StatusComplete {
			seq, err := tx.AppendChange(ctx, catalog.ChangeCompletedSeries, hashes.Series, catalog.Series, now)
			if err != nil {
				return err
			}
			changeEvents = append(changeEvents, catalog.ChangeEvent{
				Seq: seq, Kind: catalog.ChangeCompletedSeries, ResourceID: hashes.Series, ResourceLevel: catalog.Series, TimestampISO: now,
			})
		}

		outcome = catalog.StoreSuccess
		resourceRow, err := tx.GetResourceByPublicID(ctx, hashes.Instance)
		if err != nil {
			return err
		}
		view, err = buildResourceView(ctx, tx, resourceRow)
		return err
	})
	if err != nil {
		log.WithError(err).Error("store failed")
		return catalog.StoreFailure, nil, err
	}

	for _, level := range touchedLevels {
		f.cache.Invalidate(level)
	}
	for _, event := range changeEvents {
		f.hub.PublishChange(ctx, event)
	}

	log.Info("store completed", "outcome", outcome, "instance", hashes.Instance)
	return outcome, view, nil
}

// ensureAncestor returns the internal id of the resource identified by
// publicID at level, creating (and seeding its main tags) on first sight.
func ensureAncestor(ctx context.Context, tx *store.Tx, publicID string, level catalog.ResourceLevel, parentID *int64, summary catalog.DicomSummary) (int64, error) {
	existing, err := tx.GetResourceByPublicID(ctx, publicID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	id, err := tx.CreateResource(ctx, publicID, level, parentID)
	if err != nil {
		return 0, err
	}
	if err := tx.SetMainTags(ctx, id, maintags.Project(level, summary)); err != nil {
		return 0, err
	}
	if level == catalog.Series {
		if expected, ok := firstTag(summary, "NumberOfSlices", "ImagesInAcquisition", "CardiacNumberOfImages"); ok {
			if err := tx.SetMetadata(ctx, id, catalog.MetadataExpectedInstances, expected); err != nil {
				return 0, err
			}
		}
	}
	return id, nil
}

func seriesCompleteness(ctx context.Context, tx *store.Tx, seriesID int64) (catalog.SeriesStatus, error) {
	expected, hasExpected, err := tx.GetMetadata(ctx, seriesID, catalog.MetadataExpectedInstances)
	if err != nil {
		return "", err
	}

	children, err := tx.GetChildrenMetadata(ctx, seriesID, catalog.MetadataIndexInSeries)
	if err != nil {
		return "", err
	}

	indices := make([]completeness.ChildIndex, len(children))
	for i, child := range children {
		indices[i] = completeness.ChildIndex{Value: child.Value, Present: child.Present}
	}

	return completeness.Evaluate(expected, hasExpected, indices), nil
}

func buildResourceView(ctx context.Context, tx *store.Tx, row *store.ResourceRow) (*catalog.ResourceView, error) {
	if row == nil {
		return nil, idxerr.Newf(idxerr.InternalError, "build resource view: nil row")
	}

	tags, err := tx.GetMainTags(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	view := &catalog.ResourceView{
		PublicID: row.PublicID,
		Level:    row.Level,
		MainTags: tags,
	}

	if row.ParentID.Valid {
		parent, err := tx.GetResourceByID(ctx, row.ParentID.Int64)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			view.HasParent = true
			view.ParentPublicID = parent.PublicID
		}
	}

	children, err := tx.ListChildrenPublicIDs(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	view.ChildrenPublicIDs = children

	switch row.Level {
	case catalog.Series:
		status, err := seriesCompleteness(ctx, tx, row.ID)
		if err != nil {
			return nil, err
		}
		view.Status = status
		if expected, ok, err := tx.GetMetadata(ctx, row.ID, catalog.MetadataExpectedInstances); err != nil {
			return nil, err
		} else if ok {
			view.ExpectedNumberOfInstances = expected
			view.HasExpectedNumberOfInstances = true
		}
	case catalog.Instance:
		att, err := tx.GetAttachment(ctx, row.ID, catalog.ContentDicom)
		if err != nil {
			return nil, err
		}
		if att != nil {
			view.FileSize = att.UncompressedSize
			view.FileUUID = att.UUID
		}
		if idx, ok, err := tx.GetMetadata(ctx, row.ID, catalog.MetadataIndexInSeries); err != nil {
			return nil, err
		} else if ok {
			view.IndexInSeries = idx
		}
	}

	return view, nil
}
