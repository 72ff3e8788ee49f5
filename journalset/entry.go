package journalset

import (
	"context"

	"github.com/INLOpen/journalset/core"
)

// entry is the fan-out layer's per-journal record: the underlying journal
// plus its current stream, role flags, and disabled bit. Role flags never
// change after construction; current_stream and disabled are the only
// mutable fields, and disabled implies current_stream is absent.
type entry struct {
	journal  core.UnderlyingJournal
	required bool
	shared   bool
	remote   bool

	stream   core.OutputStream
	disabled bool
}

func newEntry(journal core.UnderlyingJournal, required, shared, remote bool) *entry {
	return &entry{journal: journal, required: required, shared: shared, remote: remote}
}

// isActive reports whether a stream is currently open on this entry.
func (e *entry) isActive() bool {
	return e.stream != nil
}

// isResourceAvailable reports whether this entry is not disabled,
// independent of whether a stream is open.
func (e *entry) isResourceAvailable() bool {
	return !e.disabled
}

// isNonLocalCandidate reports whether this entry counts toward the
// non-local quorum threshold.
func (e *entry) isNonLocalCandidate() bool {
	return e.shared || e.remote
}

// fileBacked reports the entry's underlying journal as a
// core.FileBackedJournal if it is one.
func (e *entry) fileBacked() (core.FileBackedJournal, bool) {
	fb, ok := e.journal.(core.FileBackedJournal)
	return fb, ok
}

// startLogSegment requires no current stream; it opens a new stream for
// txID and clears disabled on success.
func (e *entry) startLogSegment(ctx context.Context, txID uint64) error {
	if e.stream != nil {
		return &core.StreamAlreadyOpenError{TxID: txID}
	}
	stream, err := e.journal.StartLogSegment(ctx, txID)
	if err != nil {
		return err
	}
	e.stream = stream
	e.disabled = false
	return nil
}

// closeStream closes the current stream and clears it; idempotent if no
// stream is open.
func (e *entry) closeStream() error {
	if e.stream == nil {
		return nil
	}
	err := e.stream.Close()
	e.stream = nil
	return err
}

// closeEntry closes the current stream, then the underlying journal.
// Errors from either step propagate.
func (e *entry) closeEntry() error {
	if err := e.closeStream(); err != nil {
		return err
	}
	return e.journal.Close()
}

// abort requests a best-effort stream abort, swallowing any I/O error, and
// clears the stream field. It is a no-op, never failing, when no stream is
// open.
func (e *entry) abort() {
	if e.stream == nil {
		return
	}
	_ = e.stream.Abort()
	e.stream = nil
}

// disable marks the entry disabled and aborts its stream, maintaining the
// invariant that disabled implies no stream.
func (e *entry) disable() {
	e.abort()
	e.disabled = true
}
