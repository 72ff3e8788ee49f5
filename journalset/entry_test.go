package journalset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_StartLogSegmentOpensStreamAndClearsDisabled(t *testing.T) {
	j := &fakeJournal{identity: "j1"}
	e := newEntry(j, false, false, false)
	e.disabled = true

	require.NoError(t, e.startLogSegment(context.Background(), 1))
	assert.True(t, e.isActive())
	assert.False(t, e.disabled)
}

func TestEntry_StartLogSegmentRejectsSecondOpen(t *testing.T) {
	j := &fakeJournal{identity: "j1"}
	e := newEntry(j, false, false, false)
	require.NoError(t, e.startLogSegment(context.Background(), 1))

	err := e.startLogSegment(context.Background(), 2)
	assert.Error(t, err)
}

func TestEntry_CloseStreamIsIdempotent(t *testing.T) {
	j := &fakeJournal{identity: "j1"}
	e := newEntry(j, false, false, false)
	require.NoError(t, e.startLogSegment(context.Background(), 1))

	require.NoError(t, e.closeStream())
	assert.False(t, e.isActive())
	require.NoError(t, e.closeStream())
}

func TestEntry_AbortOnInactiveEntryIsNoOp(t *testing.T) {
	j := &fakeJournal{identity: "j1"}
	e := newEntry(j, false, false, false)

	e.abort()
	e.abort()
	assert.False(t, e.isActive())
}

func TestEntry_AbortClearsStream(t *testing.T) {
	j := &fakeJournal{identity: "j1"}
	e := newEntry(j, false, false, false)
	require.NoError(t, e.startLogSegment(context.Background(), 1))

	e.abort()
	assert.False(t, e.isActive())
	assert.True(t, j.lastStream.aborted)
}

func TestEntry_DisableImpliesNoStream(t *testing.T) {
	j := &fakeJournal{identity: "j1"}
	e := newEntry(j, false, false, false)
	require.NoError(t, e.startLogSegment(context.Background(), 1))

	e.disable()
	assert.True(t, e.disabled)
	assert.False(t, e.isActive())
	assert.False(t, e.isResourceAvailable())
}

func TestEntry_IsNonLocalCandidate(t *testing.T) {
	j := &fakeJournal{identity: "j1"}

	local := newEntry(j, false, false, false)
	assert.False(t, local.isNonLocalCandidate())

	shared := newEntry(j, false, true, false)
	assert.True(t, shared.isNonLocalCandidate())

	remote := newEntry(j, false, false, true)
	assert.True(t, remote.isNonLocalCandidate())
}

func TestEntry_FileBacked(t *testing.T) {
	plain := newEntry(&fakeJournal{identity: "j1"}, false, false, false)
	_, ok := plain.fileBacked()
	assert.False(t, ok)

	fileJournal := &fakeFileJournal{fakeJournal: &fakeJournal{identity: "j2"}, dir: "/data"}
	backed := newEntry(fileJournal, false, false, false)
	fb, ok := backed.fileBacked()
	require.True(t, ok)
	assert.Equal(t, "/data", fb.GetStorageDirectory())
}
