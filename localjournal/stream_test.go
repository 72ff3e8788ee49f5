package localjournal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_WriteAndSync(t *testing.T) {
	tempDir := t.TempDir()
	s, err := newStream(tempDir, 1, true)
	require.NoError(t, err)

	require.NoError(t, s.Write([]byte("edit-1")))
	assert.True(t, s.ShouldForceSync())
	assert.Equal(t, int64(0), s.GetNumSync())

	require.NoError(t, s.FlushAndSync())
	assert.False(t, s.ShouldForceSync())
	assert.Equal(t, int64(1), s.GetNumSync())
	assert.GreaterOrEqual(t, s.GetTotalSyncTime(), int64(0))
}

func TestStream_ShouldForceSyncHonorsAlwaysSyncFlag(t *testing.T) {
	tempDir := t.TempDir()
	s, err := newStream(tempDir, 1, false)
	require.NoError(t, err)

	require.NoError(t, s.Write([]byte("edit-1")))
	assert.False(t, s.ShouldForceSync(), "alwaysSync=false must never force an out-of-band sync")
}

func TestStream_CloseThenFinalizeRenamesFile(t *testing.T) {
	tempDir := t.TempDir()
	s, err := newStream(tempDir, 10, true)
	require.NoError(t, err)

	require.NoError(t, s.Write([]byte("edit-1")))
	require.NoError(t, s.Close())

	path, err := s.finalize(15)
	require.NoError(t, err)

	sr, err := openSegmentForRead(path)
	require.NoError(t, err)
	defer sr.close()

	rec, err := sr.readRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte("edit-1"), rec)
}

func TestStream_Abort(t *testing.T) {
	tempDir := t.TempDir()
	s, err := newStream(tempDir, 1, true)
	require.NoError(t, err)
	require.NoError(t, s.Write([]byte("edit-1")))

	require.NoError(t, s.Abort())

	_, err = openSegmentForRead(s.writer.path)
	assert.Error(t, err)
}
