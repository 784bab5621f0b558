package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:", logger.New("error", "text"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCreateResourceAndGetByPublicID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var id int64
	_, _, err := st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		id, err = tx.CreateResource(ctx, "patient-1", catalog.Patient, nil)
		return err
	})
	require.NoError(t, err)
	assert.NotZero(t, id)

	var row *ResourceRow
	_, _, err = st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		row, err = tx.GetResourceByPublicID(ctx, "patient-1")
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, catalog.Patient, row.Level)
	assert.False(t, row.ParentID.Valid)
}

func TestDeleteResourceRowCascadesOwnedTables(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var resourceID int64
	_, _, err := st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		resourceID, err = tx.CreateResource(ctx, "patient-1", catalog.Patient, nil)
		if err != nil {
			return err
		}
		if err := tx.SetMainTags(ctx, resourceID, map[string]string{"PatientID": "P1"}); err != nil {
			return err
		}
		return tx.SetMetadata(ctx, resourceID, catalog.MetadataReceptionDate, "2026-01-01")
	})
	require.NoError(t, err)

	_, _, err = st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.DeleteResourceRow(ctx, resourceID)
	})
	require.NoError(t, err)

	var tags map[string]string
	_, _, err = st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		tags, err = tx.GetMainTags(ctx, resourceID)
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		if _, err := tx.CreateResource(ctx, "patient-1", catalog.Patient, nil); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.Error(t, err)

	var row *ResourceRow
	_, _, err = st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		row, err = tx.GetResourceByPublicID(ctx, "patient-1")
		return err
	})
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestWithTxBuffersSignalsOnlyAfterCommit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	fileDeletes, remaining, err := st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		tx.BufferFileDelete("uuid-1")
		tx.BufferRemainingAncestor(catalog.Study, "study-1")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"uuid-1"}, fileDeletes)
	require.Len(t, remaining, 1)
	assert.Equal(t, "study-1", remaining[0].PublicID)
}

func TestSetMetadataUpsertsLastWriteWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var resourceID int64
	_, _, err := st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		resourceID, err = tx.CreateResource(ctx, "series-1", catalog.Series, nil)
		if err != nil {
			return err
		}
		if err := tx.SetMetadata(ctx, resourceID, catalog.MetadataExpectedInstances, "10"); err != nil {
			return err
		}
		return tx.SetMetadata(ctx, resourceID, catalog.MetadataExpectedInstances, "20")
	})
	require.NoError(t, err)

	var value string
	var ok bool
	_, _, err = st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		value, ok, err = tx.GetMetadata(ctx, resourceID, catalog.MetadataExpectedInstances)
		return err
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "20", value)
}

func TestAppendChangeAssignsIncreasingSeq(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var firstSeq, secondSeq int64
	_, _, err := st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		firstSeq, err = tx.AppendChange(ctx, catalog.ChangeModifiedPatient, "p1", catalog.Patient, "2026-01-01T00:00:00Z")
		if err != nil {
			return err
		}
		secondSeq, err = tx.AppendChange(ctx, catalog.ChangeModifiedStudy, "s1", catalog.Study, "2026-01-01T00:00:01Z")
		return err
	})
	require.NoError(t, err)
	assert.Greater(t, secondSeq, firstSeq)
}

func TestGlobalPropertyRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.SetGlobalProperty(ctx, catalog.PropertyFlushSleep, "30")
	})
	require.NoError(t, err)

	var value string
	var ok bool
	_, _, err = st.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		value, ok, err = tx.GetGlobalProperty(ctx, catalog.PropertyFlushSleep)
		return err
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "30", value)
}
