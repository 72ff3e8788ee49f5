package localjournal

import (
	"context"
	"io"
	"testing"

	"github.com/INLOpen/journalset/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_StartAndFinalizeLogSegment(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	stream, err := m.StartLogSegment(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, stream.Write([]byte("edit-1")))
	require.NoError(t, stream.Write([]byte("edit-2")))
	require.NoError(t, stream.SetReadyToFlush())
	require.NoError(t, stream.FlushAndSync())

	require.NoError(t, m.FinalizeLogSegment(ctx, 1, 2))

	manifest, err := m.GetEditLogManifest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, manifest, 1)
	assert.Equal(t, core.RemoteEditLog{StartTxID: 1, EndTxID: 2, InProgress: false}, manifest[0])
}

func TestManager_StartLogSegmentRejectsSecondOpen(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	_, err := m.StartLogSegment(ctx, 1)
	require.NoError(t, err)

	_, err = m.StartLogSegment(ctx, 5)
	assert.Error(t, err)
	var alreadyOpen *core.StreamAlreadyOpenError
	assert.ErrorAs(t, err, &alreadyOpen)
}

func TestManager_RecoverUnfinalizedSegments(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m := NewManager(dir)

	stream, err := m.StartLogSegment(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, stream.Write([]byte("edit-1")))
	require.NoError(t, stream.Write([]byte("edit-2")))
	require.NoError(t, stream.Write([]byte("edit-3")))
	require.NoError(t, stream.FlushAndSync())
	require.NoError(t, stream.Close())
	// Simulate a crash: the manager's in-memory notion of an open segment is
	// dropped without a FinalizeLogSegment call.
	m2 := NewManager(dir)

	require.NoError(t, m2.RecoverUnfinalizedSegments(ctx))

	manifest, err := m2.GetEditLogManifest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, manifest, 1)
	assert.Equal(t, uint64(1), manifest[0].StartTxID)
	assert.Equal(t, uint64(3), manifest[0].EndTxID)
}

func TestManager_GetEditLogManifestDiscardsGap(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	writeSegment := func(start, end uint64) {
		stream, err := m.StartLogSegment(ctx, start)
		require.NoError(t, err)
		for i := start; i <= end; i++ {
			require.NoError(t, stream.Write([]byte{byte(i)}))
		}
		require.NoError(t, stream.FlushAndSync())
		require.NoError(t, m.FinalizeLogSegment(ctx, start, end))
	}

	writeSegment(100, 199)
	writeSegment(200, 299)
	writeSegment(400, 499)

	manifest, err := m.GetEditLogManifest(ctx, 100)
	require.NoError(t, err)
	require.Len(t, manifest, 1)
	assert.Equal(t, uint64(400), manifest[0].StartTxID)
	assert.Equal(t, uint64(499), manifest[0].EndTxID)
}

func TestManager_GetInputStreamConcatenatesSegments(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	stream, err := m.StartLogSegment(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, stream.Write([]byte("a")))
	require.NoError(t, stream.Write([]byte("b")))
	require.NoError(t, stream.FlushAndSync())
	require.NoError(t, m.FinalizeLogSegment(ctx, 1, 2))

	rc, err := m.GetInputStream(ctx, 1)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestManager_GetInputStreamNoCoverageIsCorruption(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	_, err := m.GetInputStream(ctx, 1)
	assert.Error(t, err)
	var corrupt *core.CorruptionError
	assert.ErrorAs(t, err, &corrupt)
}

func TestManager_PurgeLogsOlderThan(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	for _, r := range [][2]uint64{{1, 10}, {11, 20}, {21, 30}} {
		stream, err := m.StartLogSegment(ctx, r[0])
		require.NoError(t, err)
		require.NoError(t, stream.Write([]byte("x")))
		require.NoError(t, stream.FlushAndSync())
		require.NoError(t, m.FinalizeLogSegment(ctx, r[0], r[1]))
	}

	require.NoError(t, m.PurgeLogsOlderThan(ctx, 21))

	manifest, err := m.GetEditLogManifest(ctx, 1)
	require.NoError(t, err)
	// Everything up through txid 20 was purged; the gap-discarding merge
	// skips straight to the surviving segment.
	require.Len(t, manifest, 1)
	assert.Equal(t, uint64(21), manifest[0].StartTxID)
}

func TestManager_Format(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir() + "/ns"
	m := NewManager(dir)

	require.NoError(t, m.Format(ctx, core.NamespaceInfo{ClusterID: "cluster-1", NamespaceID: 7}))

	manifest, err := m.GetEditLogManifest(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, manifest)
}

func TestManager_Identity(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	assert.Equal(t, dir, m.Identity())
	assert.Equal(t, dir, m.GetStorageDirectory())
}
