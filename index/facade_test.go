package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/idhash"
	"github.com/kestrelhealth/pacsindex/logger"
	"github.com/kestrelhealth/pacsindex/store"
)

type recordingSink struct {
	deletedFiles []string
	remaining    []catalog.RemainingAncestor
}

func (s *recordingSink) DeleteFile(uuid string) {
	s.deletedFiles = append(s.deletedFiles, uuid)
}

func (s *recordingSink) SignalRemainingAncestor(ancestor catalog.RemainingAncestor) {
	s.remaining = append(s.remaining, ancestor)
}

func newTestFacade(t *testing.T) (*Facade, *recordingSink) {
	t.Helper()
	log := logger.New("error", "text")
	st, err := store.Open(":memory:", log)
	require.NoError(t, err)

	sink := &recordingSink{}
	f := New(st, sink, log, time.Hour)
	t.Cleanup(func() { _ = f.Close() })
	return f, sink
}

func summaryFor(patientID, studyUID, seriesUID, sopUID string, extra map[string]string) catalog.DicomSummary {
	tags := map[string]string{
		"PatientID":         patientID,
		"StudyInstanceUID":  studyUID,
		"SeriesInstanceUID": seriesUID,
		"SOPInstanceUID":    sopUID,
	}
	for k, v := range extra {
		tags[k] = v
	}
	return catalog.DicomSummary{Tags: tags}
}

func TestStoreNewInstanceCreatesFullHierarchy(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	summary := summaryFor("P1", "ST1", "SE1", "SOP1", map[string]string{"InstanceNumber": "1"})
	outcome, view, err := f.Store(ctx, summary, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "uuid-1", CompressedSize: 100, UncompressedSize: 200}, "MODALITY1")
	require.NoError(t, err)
	assert.Equal(t, catalog.StoreSuccess, outcome)
	require.NotNil(t, view)
	assert.Equal(t, catalog.Instance, view.Level)
	assert.True(t, view.HasParent)

	patients, err := f.GetAllPublicIds(ctx, catalog.Patient)
	require.NoError(t, err)
	assert.Len(t, patients, 1)
}

func TestStoreDuplicateInstanceIsIdempotent(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	summary := summaryFor("P1", "ST1", "SE1", "SOP1", map[string]string{"InstanceNumber": "1"})
	attachment := catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "uuid-1", CompressedSize: 100, UncompressedSize: 200}

	outcome1, _, err := f.Store(ctx, summary, attachment, "MODALITY1")
	require.NoError(t, err)
	assert.Equal(t, catalog.StoreSuccess, outcome1)

	outcome2, view2, err := f.Store(ctx, summary, attachment, "MODALITY1")
	require.NoError(t, err)
	assert.Equal(t, catalog.StoreAlreadyStored, outcome2)
	require.NotNil(t, view2)

	instances, err := f.GetAllPublicIds(ctx, catalog.Instance)
	require.NoError(t, err)
	assert.Len(t, instances, 1)
}

func TestStorePartialSeriesIsMissingUntilComplete(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	for i, sop := range []string{"SOP1", "SOP2"} {
		summary := summaryFor("P1", "ST1", "SE1", sop, map[string]string{
			"InstanceNumber": []string{"1", "2"}[i],
			"NumberOfSlices": "3",
		})
		_, _, err := f.Store(ctx, summary, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: sop, CompressedSize: 1, UncompressedSize: 1}, "MODALITY1")
		require.NoError(t, err)
	}

	series, err := f.LookupResource(ctx, hashOf(t, "P1", "ST1", "SE1"), levelPtr(catalog.Series))
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.Equal(t, catalog.StatusMissing, series.Status)

	summary := summaryFor("P1", "ST1", "SE1", "SOP3", map[string]string{"InstanceNumber": "3", "NumberOfSlices": "3"})
	_, _, err = f.Store(ctx, summary, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "SOP3", CompressedSize: 1, UncompressedSize: 1}, "MODALITY1")
	require.NoError(t, err)

	series, err = f.LookupResource(ctx, hashOf(t, "P1", "ST1", "SE1"), levelPtr(catalog.Series))
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.Equal(t, catalog.StatusComplete, series.Status)
}

func TestDeleteResourceCascadesToOnlyChild(t *testing.T) {
	f, sink := newTestFacade(t)
	ctx := context.Background()

	summary := summaryFor("P1", "ST1", "SE1", "SOP1", map[string]string{"InstanceNumber": "1"})
	_, _, err := f.Store(ctx, summary, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "uuid-1", CompressedSize: 1, UncompressedSize: 1}, "MODALITY1")
	require.NoError(t, err)

	patientID := hashOf(t, "P1", "", "")
	result, err := f.DeleteResource(ctx, patientID, levelPtr(catalog.Patient))
	require.NoError(t, err)
	assert.True(t, result.Removed)
	assert.Nil(t, result.RemainingAncestor)
	assert.Contains(t, sink.deletedFiles, "uuid-1")

	patients, err := f.GetAllPublicIds(ctx, catalog.Patient)
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func TestDeleteResourcePartialCascadeSignalsRemainingAncestor(t *testing.T) {
	f, sink := newTestFacade(t)
	ctx := context.Background()

	for _, seriesUID := range []string{"SE1", "SE2"} {
		summary := summaryFor("P1", "ST1", seriesUID, seriesUID+"-SOP1", map[string]string{"InstanceNumber": "1"})
		_, _, err := f.Store(ctx, summary, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: seriesUID + "-uuid", CompressedSize: 1, UncompressedSize: 1}, "MODALITY1")
		require.NoError(t, err)
	}

	seriesID := hashOf(t, "P1", "ST1", "SE1")
	result, err := f.DeleteResource(ctx, seriesID, levelPtr(catalog.Series))
	require.NoError(t, err)
	assert.True(t, result.Removed)
	require.NotNil(t, result.RemainingAncestor)
	assert.Equal(t, catalog.Study, result.RemainingAncestor.Level)
	assert.Len(t, sink.remaining, 1)

	studyView, err := f.LookupResource(ctx, hashOf(t, "P1", "ST1", ""), levelPtr(catalog.Study))
	require.NoError(t, err)
	require.NotNil(t, studyView)
	assert.Len(t, studyView.ChildrenPublicIDs, 1)
}

func TestGetChangesPaginates(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	for i, sop := range []string{"SOP1", "SOP2", "SOP3"} {
		summary := summaryFor("P1", "ST1", "SE1", sop, map[string]string{"InstanceNumber": []string{"1", "2", "3"}[i]})
		_, _, err := f.Store(ctx, summary, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: sop, CompressedSize: 1, UncompressedSize: 1}, "MODALITY1")
		require.NoError(t, err)
	}

	events, done, err := f.GetChanges(ctx, 0, 2)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Len(t, events, 2)

	last, err := f.GetLastChange(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Greater(t, last.Seq, events[len(events)-1].Seq)
}

func TestStoreRecordsRemoteAet(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	summary := summaryFor("P1", "ST1", "SE1", "SOP1", map[string]string{"InstanceNumber": "1"})
	instanceHash := idhash.Compute(summary).Instance
	_, view, err := f.Store(ctx, summary, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "uuid-1", CompressedSize: 1, UncompressedSize: 1}, "MODALITY1")
	require.NoError(t, err)
	require.NotNil(t, view)

	var remoteAet string
	var hasRemoteAet bool
	_, _, err = f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		row, err := tx.GetResourceByPublicID(ctx, instanceHash)
		if err != nil {
			return err
		}
		remoteAet, hasRemoteAet, err = tx.GetMetadata(ctx, row.ID, catalog.MetadataRemoteAet)
		return err
	})
	require.NoError(t, err)
	assert.True(t, hasRemoteAet)
	assert.Equal(t, "MODALITY1", remoteAet)
}

func TestStoreIndexInSeriesFallsBackToImageIndex(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	summary := summaryFor("P1", "ST1", "SE1", "SOP1", map[string]string{"ImageIndex": "7"})
	_, view, err := f.Store(ctx, summary, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "uuid-1", CompressedSize: 1, UncompressedSize: 1}, "MOD1")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "7", view.IndexInSeries)
}

func TestStoreExpectedInstancesFallsBackThroughChain(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	summary := summaryFor("P1", "ST1", "SE1", "SOP1", map[string]string{
		"InstanceNumber":      "1",
		"ImagesInAcquisition": "4",
	})
	_, _, err := f.Store(ctx, summary, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "uuid-1", CompressedSize: 1, UncompressedSize: 1}, "MOD1")
	require.NoError(t, err)

	series, err := f.LookupResource(ctx, hashOf(t, "P1", "ST1", "SE1"), levelPtr(catalog.Series))
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.True(t, series.HasExpectedNumberOfInstances)
	assert.Equal(t, "4", series.ExpectedNumberOfInstances)

	summary2 := summaryFor("P2", "ST2", "SE2", "SOP1", map[string]string{
		"InstanceNumber":         "1",
		"CardiacNumberOfImages": "6",
	})
	_, _, err = f.Store(ctx, summary2, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "uuid-2", CompressedSize: 1, UncompressedSize: 1}, "MOD1")
	require.NoError(t, err)

	series2, err := f.LookupResource(ctx, hashOf(t, "P2", "ST2", "SE2"), levelPtr(catalog.Series))
	require.NoError(t, err)
	require.NotNil(t, series2)
	assert.True(t, series2.HasExpectedNumberOfInstances)
	assert.Equal(t, "6", series2.ExpectedNumberOfInstances)
}

func TestStoreSeriesStatusIsUnknownWhenAChildHasNoIndex(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	summary1 := summaryFor("P1", "ST1", "SE1", "SOP1", map[string]string{"InstanceNumber": "1", "NumberOfSlices": "2"})
	_, _, err := f.Store(ctx, summary1, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "uuid-1", CompressedSize: 1, UncompressedSize: 1}, "MOD1")
	require.NoError(t, err)

	// SOP2 carries neither InstanceNumber nor ImageIndex, so it has no
	// IndexInSeries metadata at all.
	summary2 := summaryFor("P1", "ST1", "SE1", "SOP2", map[string]string{"NumberOfSlices": "2"})
	_, _, err = f.Store(ctx, summary2, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "uuid-2", CompressedSize: 1, UncompressedSize: 1}, "MOD1")
	require.NoError(t, err)

	series, err := f.LookupResource(ctx, hashOf(t, "P1", "ST1", "SE1"), levelPtr(catalog.Series))
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.Equal(t, catalog.StatusUnknown, series.Status)
}

func TestStoreSeriesStatusIsUnknownWhenAChildIndexIsNonNumeric(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	summary1 := summaryFor("P1", "ST1", "SE1", "SOP1", map[string]string{"InstanceNumber": "abc", "NumberOfSlices": "1"})
	_, _, err := f.Store(ctx, summary1, catalog.AttachmentInput{ContentKind: catalog.ContentDicom, UUID: "uuid-1", CompressedSize: 1, UncompressedSize: 1}, "MOD1")
	require.NoError(t, err)

	series, err := f.LookupResource(ctx, hashOf(t, "P1", "ST1", "SE1"), levelPtr(catalog.Series))
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.Equal(t, catalog.StatusUnknown, series.Status)
}

func levelPtr(l catalog.ResourceLevel) *catalog.ResourceLevel { return &l }

// hashOf mirrors idhash.Compute for the subset of levels these tests need,
// so assertions can address a resource by the same id Store assigned it.
func hashOf(t *testing.T, patientID, studyUID, seriesUID string) string {
	t.Helper()
	summary := catalog.DicomSummary{Tags: map[string]string{
		"PatientID":         patientID,
		"StudyInstanceUID":  studyUID,
		"SeriesInstanceUID": seriesUID,
	}}
	hashes := idhash.Compute(summary)
	switch {
	case seriesUID != "":
		return hashes.Series
	case studyUID != "":
		return hashes.Study
	default:
		return hashes.Patient
	}
}
