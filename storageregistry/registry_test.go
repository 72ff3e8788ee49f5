package storageregistry

import (
	"testing"
	"time"

	"github.com/INLOpen/journalset/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ReportErrorOnDirectory(t *testing.T) {
	dir := t.TempDir()
	r, err := New("0x6969", 100, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, r.ErrorCount(dir))
	r.ReportErrorOnDirectory(dir)
	r.ReportErrorOnDirectory(dir)
	assert.Equal(t, 2, r.ErrorCount(dir))
}

func TestRegistry_IsPreferredCachesClassification(t *testing.T) {
	dir := t.TempDir()
	r, err := New("0x6969", 100, nil)
	require.NoError(t, err)

	first := r.IsPreferred(core.StorageLocal, dir)
	second := r.IsPreferred(core.StorageLocal, dir)
	assert.Equal(t, first, second, "classification must be stable once cached")
}

func TestRegistry_UpdateJournalMetrics(t *testing.T) {
	r, err := New("0x6969", 100, nil)
	require.NoError(t, err)

	// Exercises the metrics surface; UpdateJournalMetrics has no return
	// value to assert on, so this confirms it does not panic.
	r.UpdateJournalMetrics(3)
}

func TestRegistry_RecordSyncLatency(t *testing.T) {
	r, err := New("0x6969", 100, nil)
	require.NoError(t, err)

	require.NoError(t, r.RecordSyncLatency(5*time.Millisecond))
	require.NoError(t, r.RecordSyncLatency(10*time.Millisecond))
	assert.Greater(t, r.SyncLatencyPercentile(0.5), 0.0)
}

func TestRegistry_NewRejectsInvalidMagic(t *testing.T) {
	_, err := New("not-hex", 100, nil)
	assert.Error(t, err)
}
