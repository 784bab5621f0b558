package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/idxerr"
)

// AppendExported appends one ExportedEvent and returns its sequence
// number.
func (tx *Tx) AppendExported(ctx context.Context, e catalog.ExportedEvent) (int64, error) {
	res, err := tx.tx.ExecContext(ctx,
		`INSERT INTO exported_resources
		   (resource_level, public_id, remote_modality, patient_dicom_id, study_uid, series_uid, sop_instance_uid, timestamp_iso)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int(e.ResourceLevel), e.PublicID, e.RemoteModality, e.PatientDicomID, e.StudyUID, e.SeriesUID, e.SOPInstanceUID, e.TimestampISO,
	)
	if err != nil {
		return 0, idxerr.Wrap(idxerr.Storage, fmt.Errorf("append exported resource: %w", err))
	}
	return res.LastInsertId()
}

// GetExportedResources returns events with seq > since, up to max,
// ascending, plus done, which is true when no events remain beyond what was
// returned.
func (tx *Tx) GetExportedResources(ctx context.Context, since int64, max int) ([]catalog.ExportedEvent, bool, error) {
	rows, err := tx.tx.QueryContext(ctx,
		`SELECT seq, resource_level, public_id, remote_modality, patient_dicom_id, study_uid, series_uid, sop_instance_uid, timestamp_iso
		   FROM exported_resources WHERE seq > ? ORDER BY seq ASC LIMIT ?`,
		since, max+1,
	)
	if err != nil {
		return nil, false, idxerr.Wrap(idxerr.Storage, fmt.Errorf("get exported resources: %w", err))
	}
	defer rows.Close()

	var events []catalog.ExportedEvent
	for rows.Next() {
		var e catalog.ExportedEvent
		var level int
		if err := rows.Scan(&e.Seq, &level, &e.PublicID, &e.RemoteModality, &e.PatientDicomID, &e.StudyUID, &e.SeriesUID, &e.SOPInstanceUID, &e.TimestampISO); err != nil {
			return nil, false, idxerr.Wrap(idxerr.Storage, fmt.Errorf("scan exported resource: %w", err))
		}
		e.ResourceLevel = catalog.ResourceLevel(level)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, idxerr.Wrap(idxerr.Storage, fmt.Errorf("iterate exported resources: %w", err))
	}

	done := true
	if len(events) > max {
		events = events[:max]
		done = false
	}
	return events, done, nil
}

// GetLastExportedResource returns the highest-seq ExportedEvent, or nil if
// the log is empty.
func (tx *Tx) GetLastExportedResource(ctx context.Context) (*catalog.ExportedEvent, error) {
	var e catalog.ExportedEvent
	var level int
	err := tx.tx.QueryRowContext(ctx,
		`SELECT seq, resource_level, public_id, remote_modality, patient_dicom_id, study_uid, series_uid, sop_instance_uid, timestamp_iso
		   FROM exported_resources ORDER BY seq DESC LIMIT 1`,
	).Scan(&e.Seq, &level, &e.PublicID, &e.RemoteModality, &e.PatientDicomID, &e.StudyUID, &e.SeriesUID, &e.SOPInstanceUID, &e.TimestampISO)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("get last exported resource: %w", err))
	}
	e.ResourceLevel = catalog.ResourceLevel(level)
	return &e, nil
}
