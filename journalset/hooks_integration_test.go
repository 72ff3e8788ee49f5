package journalset

import (
	"context"
	"testing"

	"github.com/INLOpen/journalset/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingListener appends every event type it sees to events, in order.
type recordingListener struct {
	events []hooks.EventType
}

func (l *recordingListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	l.events = append(l.events, event.Type())
	return nil
}

func (l *recordingListener) Priority() int { return 0 }
func (l *recordingListener) IsAsync() bool { return false }

func newTestFacadeWithHooks(minJournals, minNonLocal int, reg *fakeRegistry, hm hooks.HookManager) *Facade {
	return NewFacade(4, Options{MinJournals: minJournals, MinNonLocalJournals: minNonLocal, Registry: reg, Hooks: hm})
}

func TestHooks_AddAndRemoveFireLifecycleEvents(t *testing.T) {
	rec := &recordingListener{}
	hm := hooks.NewHookManager(nil)
	hm.Register(hooks.EventPreAddJournal, rec)
	hm.Register(hooks.EventPostAddJournal, rec)
	hm.Register(hooks.EventPostRemoveJournal, rec)

	f := newTestFacadeWithHooks(0, 0, nil, hm)
	j := &fakeJournal{identity: "j1"}
	f.Add(j, false, false, false)
	require.NoError(t, f.Remove(j))

	assert.Equal(t, []hooks.EventType{
		hooks.EventPreAddJournal,
		hooks.EventPostAddJournal,
		hooks.EventPostRemoveJournal,
	}, rec.events)
}

func TestHooks_JournalDisabledAndQuorumLostFireOnWriteFailure(t *testing.T) {
	rec := &recordingListener{}
	hm := hooks.NewHookManager(nil)
	hm.Register(hooks.EventPostJournalDisabled, rec)
	hm.Register(hooks.EventPostQuorumLost, rec)

	f := newTestFacadeWithHooks(2, 0, &fakeRegistry{}, hm)
	j1 := &fakeJournal{identity: "j1"}
	j2 := &fakeJournal{identity: "j2"}
	f.Add(j1, false, false, false)
	f.Add(j2, false, false, false)

	stream, err := f.StartLogSegment(context.Background(), 1)
	require.NoError(t, err)
	j1.lastStream.writeErr = assertErr

	err = stream.Write(context.Background(), []byte("x"))
	require.Error(t, err)

	assert.Contains(t, rec.events, hooks.EventPostJournalDisabled)
	assert.Contains(t, rec.events, hooks.EventPostQuorumLost)
}

func TestHooks_QuorumRestoredFiresAfterRecovery(t *testing.T) {
	rec := &recordingListener{}
	hm := hooks.NewHookManager(nil)
	hm.Register(hooks.EventPostQuorumLost, rec)
	hm.Register(hooks.EventPostQuorumRestored, rec)
	hm.Register(hooks.EventPostJournalRestored, rec)

	f := newTestFacadeWithHooks(1, 0, &fakeRegistry{}, hm)
	j := &fakeJournal{identity: "j1"}
	f.Add(j, false, false, false)

	j.startErr = assertErr
	_, err := f.StartLogSegment(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, rec.events, hooks.EventPostQuorumLost)

	j.startErr = nil
	_, err = f.StartLogSegment(context.Background(), 1)
	require.NoError(t, err)

	assert.Contains(t, rec.events, hooks.EventPostJournalRestored)
	assert.Contains(t, rec.events, hooks.EventPostQuorumRestored)
}

func TestHooks_CloseFiresPreAndPostEvents(t *testing.T) {
	rec := &recordingListener{}
	hm := hooks.NewHookManager(nil)
	hm.Register(hooks.EventPreCloseSet, rec)
	hm.Register(hooks.EventPostCloseSet, rec)

	f := newTestFacadeWithHooks(0, 0, nil, hm)
	f.Add(&fakeJournal{identity: "j1"}, false, false, false)

	require.NoError(t, f.Close())
	assert.Equal(t, []hooks.EventType{hooks.EventPreCloseSet, hooks.EventPostCloseSet}, rec.events)
}

func TestHooks_ManifestBuiltFires(t *testing.T) {
	rec := &recordingListener{}
	hm := hooks.NewHookManager(nil)
	hm.Register(hooks.EventPostManifestBuilt, rec)

	f := newTestFacadeWithHooks(0, 0, nil, hm)
	_, err := f.GetEditLogManifest(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []hooks.EventType{hooks.EventPostManifestBuilt}, rec.events)
}
