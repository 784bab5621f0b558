package index

import (
	"context"
	"time"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/store"
)

// LogExportedResource records that a resource was sent to a remote
// modality. It does not touch the resource hierarchy; it only appends to
// the export log.
func (f *Facade) LogExportedResource(ctx context.Context, level catalog.ResourceLevel, publicID, remoteModality string, tags catalog.DicomSummary) (catalog.ExportedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	patientID, _ := tags.Tag("PatientID")
	studyUID, _ := tags.Tag("StudyInstanceUID")
	seriesUID, _ := tags.Tag("SeriesInstanceUID")
	sopUID, _ := tags.Tag("SOPInstanceUID")

	event := catalog.ExportedEvent{
		ResourceLevel:  level,
		PublicID:       publicID,
		RemoteModality: remoteModality,
		PatientDicomID: patientID,
		StudyUID:       studyUID,
		SeriesUID:      seriesUID,
		SOPInstanceUID: sopUID,
		TimestampISO:   now,
	}

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		seq, err := tx.AppendExported(ctx, event)
		if err != nil {
			return err
		}
		event.Seq = seq
		return nil
	})
	if err != nil {
		return catalog.ExportedEvent{}, err
	}

	f.hub.PublishExport(ctx, event)
	return event, nil
}

// GetExportedResources returns export events after since, up to max, and
// done, which is true when no events remain beyond what was returned.
func (f *Facade) GetExportedResources(ctx context.Context, since int64, max int) ([]catalog.ExportedEvent, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var events []catalog.ExportedEvent
	var done bool

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		events, done, err = tx.GetExportedResources(ctx, since, max)
		return err
	})
	return events, done, err
}

// GetLastExportedResource returns the most recent export event, or nil if
// the log is empty.
func (f *Facade) GetLastExportedResource(ctx context.Context) (*catalog.ExportedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var event *catalog.ExportedEvent

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		event, err = tx.GetLastExportedResource(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}
