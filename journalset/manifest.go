package journalset

import (
	"context"

	"github.com/INLOpen/journalset/core"
	"github.com/INLOpen/journalset/hooks"
)

// GetEditLogManifest merges the segment listings of every file-backed
// journal in the set into one gap-respecting, greedy-longest manifest
// starting at fromTxID. Remote journals do not publish a manifest surface
// and are skipped entirely. A per-journal error is swallowed with a
// warning: a missing directory must not block manifest generation for the
// journals that are still readable.
func (f *Facade) GetEditLogManifest(ctx context.Context, fromTxID uint64) ([]core.RemoteEditLog, error) {
	var all []core.RemoteEditLog
	for _, e := range f.entries {
		fb, ok := e.fileBacked()
		if !ok {
			continue
		}
		segments, err := fb.GetEditLogManifest(ctx, fromTxID)
		if err != nil {
			f.logger.Warn("failed to read manifest from journal, skipping", "journal", e.journal.Identity(), "error", err)
			continue
		}
		all = append(all, segments...)
	}
	manifest := core.BuildManifest(fromTxID, all)
	f.trigger(ctx, hooks.NewPostManifestBuiltEvent(hooks.ManifestBuiltPayload{FromTxID: fromTxID, Segments: manifest}))
	return manifest, nil
}
