package journalset

import (
	"context"
	"errors"
	"io"

	"github.com/INLOpen/journalset/core"
)

// GetInputStream picks the single best underlying journal to read from
// starting at fromTxID. Every entry is asked how many transactions it can
// serve; the candidate with the largest count wins, with local storage
// preferred on a tie. If no entry can serve any transactions, the call
// fails with the Corruption error when at least one journal reported
// Corruption, and otherwise returns a nil stream with no error.
func (f *Facade) GetInputStream(ctx context.Context, fromTxID uint64) (*InputStreamResult, error) {
	var (
		bestEntry *entry
		bestCount int64
		bestLocal bool
		sawCorrupt error
	)

	for _, e := range f.entries {
		count, err := e.journal.GetNumberOfTransactions(ctx, fromTxID)
		if err != nil {
			var corrupt *core.CorruptionError
			if errors.As(err, &corrupt) {
				sawCorrupt = err
			}
			// Any other I/O error is skipped silently; a flaky journal
			// should not block reading from a healthy one.
			continue
		}
		if count <= 0 {
			continue
		}

		local := f.isLocal(e)
		switch {
		case bestEntry == nil:
			bestEntry, bestCount, bestLocal = e, count, local
		case count > bestCount:
			bestEntry, bestCount, bestLocal = e, count, local
		case count == bestCount && local && !bestLocal:
			bestEntry, bestCount, bestLocal = e, count, local
		}
	}

	if bestEntry == nil {
		if sawCorrupt != nil {
			return nil, &core.CorruptionError{FromTxID: fromTxID, Cause: sawCorrupt}
		}
		return nil, nil
	}

	stream, err := bestEntry.journal.GetInputStream(ctx, fromTxID)
	if err != nil {
		return nil, err
	}
	return &InputStreamResult{Stream: stream, JournalIdentity: bestEntry.journal.Identity(), Local: bestLocal}, nil
}

// InputStreamResult is the winning journal's input stream plus the
// identity and locality of the journal it came from, useful for
// diagnostics and logging at the call site.
type InputStreamResult struct {
	Stream          io.ReadCloser
	JournalIdentity string
	Local           bool
}

// isLocal reports whether e is local: file-backed and classified LOCAL by
// the storage registry.
func (f *Facade) isLocal(e *entry) bool {
	fb, ok := e.fileBacked()
	if !ok || f.arbiter.registry == nil {
		return false
	}
	return f.arbiter.registry.IsPreferred(core.StorageLocal, fb.GetStorageDirectory())
}
