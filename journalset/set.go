package journalset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/INLOpen/journalset/core"
	"github.com/INLOpen/journalset/hooks"
)

// Facade is the Journal Set: an ordered sequence of journal entries plus
// the quorum thresholds and worker pool the fan-out layer needs to drive
// them through a shared lifecycle. It is the type the metadata server
// talks to; everything else in this package is an implementation detail
// reached only through it.
type Facade struct {
	entries []*entry

	minJournals         int
	minNonLocalJournals int
	forceCheck          bool

	executor *executor
	arbiter  *arbiter
	hooks    hooks.HookManager
	logger   *slog.Logger
}

// Options configures a Facade at construction time.
type Options struct {
	MinJournals         int
	MinNonLocalJournals int
	Registry            core.StorageRegistry
	Hooks               hooks.HookManager
	Logger              *slog.Logger
}

// NewFacade constructs an empty Journal Set. The worker pool used by
// parallel fan-outs is sized to initialCapacity, which callers should set
// to the number of journals they intend to Add immediately afterward.
func NewFacade(initialCapacity int, opts Options) *Facade {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "journalset.Facade")

	if initialCapacity < 1 {
		initialCapacity = 1
	}

	arb := newArbiter(opts.MinJournals, opts.MinNonLocalJournals, opts.Registry, logger)
	arb.setHooks(opts.Hooks)

	return &Facade{
		minJournals:         opts.MinJournals,
		minNonLocalJournals: opts.MinNonLocalJournals,
		executor:            newExecutor(initialCapacity),
		arbiter:             arb,
		hooks:               opts.Hooks,
		logger:              logger,
	}
}

// trigger fires a Post-style event, logging rather than propagating any
// listener error: by the time a Post event fires the operation it
// describes has already happened.
func (f *Facade) trigger(ctx context.Context, event hooks.HookEvent) {
	if f.hooks == nil {
		return
	}
	if err := f.hooks.Trigger(ctx, event); err != nil {
		f.logger.Error("post-hook failed", "event", event.Type(), "error", err)
	}
}

// triggerPre fires a Pre-style event. A listener error cancels the
// operation it guards.
func (f *Facade) triggerPre(ctx context.Context, event hooks.HookEvent) error {
	if f.hooks == nil {
		return nil
	}
	return f.hooks.Trigger(ctx, event)
}

// Add appends a new entry wrapping journal, refreshing the disabled-count
// metric afterward (a freshly added entry starts enabled with no stream).
func (f *Facade) Add(journal core.UnderlyingJournal, required, shared, remote bool) {
	payload := hooks.AddJournalPayload{Identity: journal.Identity(), Required: required, Shared: shared}
	f.trigger(context.Background(), hooks.NewPreAddJournalEvent(payload))

	f.entries = append(f.entries, newEntry(journal, required, shared, remote))
	if f.arbiter.registry != nil {
		f.arbiter.registry.UpdateJournalMetrics(countDisabled(f.entries))
	}

	f.trigger(context.Background(), hooks.NewPostAddJournalEvent(payload))
}

// Remove finds the entry wrapping journal by identity equality, aborts its
// stream, and drops it from the set.
func (f *Facade) Remove(journal core.UnderlyingJournal) error {
	idx := -1
	for i, e := range f.entries {
		if e.journal.Identity() == journal.Identity() {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("journalset: no entry found for journal %q", journal.Identity())
	}
	f.entries[idx].abort()
	f.entries = append(f.entries[:idx], f.entries[idx+1:]...)
	if f.arbiter.registry != nil {
		f.arbiter.registry.UpdateJournalMetrics(countDisabled(f.entries))
	}
	f.trigger(context.Background(), hooks.NewPostRemoveJournalEvent(hooks.RemoveJournalPayload{Identity: journal.Identity()}))
	return nil
}

// Status is a point-in-time diagnostic snapshot of the set's quorum state,
// meant for operator-facing tooling rather than the hot write path.
type Status struct {
	TotalJournals       int
	ActiveJournals      int
	DisabledJournals    int
	ActiveNonLocal      int
	MinJournals         int
	MinNonLocalJournals int
	QuorumLatched       bool
}

// Status reports the current quorum state without touching any journal.
func (f *Facade) Status() Status {
	s := Status{
		TotalJournals:       len(f.entries),
		MinJournals:         f.minJournals,
		MinNonLocalJournals: f.minNonLocalJournals,
		QuorumLatched:       f.forceCheck,
	}
	for _, e := range f.entries {
		if e.isResourceAvailable() {
			s.ActiveJournals++
			if e.isNonLocalCandidate() {
				s.ActiveNonLocal++
			}
		} else {
			s.DisabledJournals++
		}
	}
	return s
}

// IsEmpty reports whether the set currently has no entries.
func (f *Facade) IsEmpty() bool {
	return len(f.entries) == 0
}

// IsSharedJournalAvailable reports whether some entry is shared and
// resource-available.
func (f *Facade) IsSharedJournalAvailable() bool {
	for _, e := range f.entries {
		if e.shared && e.isResourceAvailable() {
			return true
		}
	}
	return false
}

// GetSyncTimes diagnostically concatenates the cumulative sync time of
// every active entry.
func (f *Facade) GetSyncTimes() []int64 {
	var times []int64
	for _, e := range f.entries {
		if e.isActive() {
			times = append(times, e.stream.GetTotalSyncTime())
		}
	}
	return times
}

// GetNumberOfTransactions reports the largest transaction count any
// currently active journal reports from fromTxID, used by callers deciding
// whether a segment roll is worthwhile before committing to one. Unlike
// GetInputStream this never opens a stream, and a per-journal error is
// swallowed: it is a best-effort estimate, not a read.
func (f *Facade) GetNumberOfTransactions(ctx context.Context, fromTxID uint64) int64 {
	var best int64
	for _, e := range f.entries {
		if !e.isActive() {
			continue
		}
		n, err := e.journal.GetNumberOfTransactions(ctx, fromTxID)
		if err != nil {
			f.logger.Warn("failed to read transaction count from journal, skipping", "journal", e.journal.Identity(), "error", err)
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}

// Journals returns the underlying journal handle of every entry in
// insertion order, for callers that need direct access (diagnostics).
func (f *Facade) Journals() []core.UnderlyingJournal {
	out := make([]core.UnderlyingJournal, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.journal
	}
	return out
}

// FormatNonFileJournals applies Format to every entry whose journal is
// not file-backed. This runs before the set is live, so errors propagate
// directly rather than through the Health Arbiter: silent degradation at
// format time is wrong.
func (f *Facade) FormatNonFileJournals(ctx context.Context, nsInfo core.NamespaceInfo) error {
	for _, e := range f.entries {
		if _, ok := e.fileBacked(); ok {
			continue
		}
		if err := e.journal.Format(ctx, nsInfo); err != nil {
			return fmt.Errorf("journalset: format failed for journal %q: %w", e.journal.Identity(), err)
		}
	}
	return nil
}

// StartLogSegment opens a new segment at txID on every entry, including
// disabled ones (a successful open clears disabled), and returns an
// AggregateOutputStream multiplexing writes to every entry that opened
// successfully.
func (f *Facade) StartLogSegment(ctx context.Context, txID uint64) (*AggregateOutputStream, error) {
	if err := f.triggerPre(ctx, hooks.NewPreStartLogSegmentEvent(hooks.PreStartLogSegmentPayload{TxID: &txID})); err != nil {
		return nil, err
	}

	wasDisabled := make([]bool, len(f.entries))
	for i, e := range f.entries {
		wasDisabled[i] = e.disabled
	}

	b := behavior{
		status: "startLogSegment",
		apply: func(ctx context.Context, e *entry) error {
			return e.startLogSegment(ctx, txID)
		},
	}
	err := f.fanOutAll(ctx, b, true)

	for i, e := range f.entries {
		if wasDisabled[i] && !e.disabled {
			f.logger.Info("restoring journal", "journal", e.journal.Identity())
			f.trigger(ctx, hooks.NewPostJournalRestoredEvent(hooks.JournalRestoredPayload{Identity: e.journal.Identity()}))
		}
	}

	active := 0
	for _, e := range f.entries {
		if e.isResourceAvailable() {
			active++
		}
	}
	f.trigger(ctx, hooks.NewPostStartLogSegmentEvent(hooks.PostStartLogSegmentPayload{TxID: txID, ActiveJournals: active, Error: err}))

	if err != nil {
		return nil, err
	}
	return &AggregateOutputStream{facade: f}, nil
}

// FinalizeLogSegment seals the segment covering [firstTxID, lastTxID] on
// every active entry.
func (f *Facade) FinalizeLogSegment(ctx context.Context, firstTxID, lastTxID uint64) error {
	if err := f.triggerPre(ctx, hooks.NewPreFinalizeLogSegmentEvent(hooks.PreFinalizeLogSegmentPayload{FirstTxID: firstTxID, LastTxID: lastTxID})); err != nil {
		return err
	}

	b := behavior{
		status: "finalizeLogSegment",
		apply: func(ctx context.Context, e *entry) error {
			if !e.isActive() {
				return nil
			}
			if err := e.journal.FinalizeLogSegment(ctx, firstTxID, lastTxID); err != nil {
				return err
			}
			e.stream = nil
			return nil
		},
	}
	err := f.fanOutAll(ctx, b, true)
	f.trigger(ctx, hooks.NewPostFinalizeLogSegmentEvent(hooks.PostFinalizeLogSegmentPayload{FirstTxID: firstTxID, LastTxID: lastTxID, Error: err}))
	return err
}

// PurgeLogsOlderThan discards segments entirely before minTxIDToKeep on
// every entry.
func (f *Facade) PurgeLogsOlderThan(ctx context.Context, minTxIDToKeep uint64) error {
	if err := f.triggerPre(ctx, hooks.NewPrePurgeEvent(hooks.PrePurgePayload{MinTxIDToKeep: minTxIDToKeep})); err != nil {
		return err
	}

	b := behavior{
		status: "purgeLogsOlderThan",
		apply: func(ctx context.Context, e *entry) error {
			return e.journal.PurgeLogsOlderThan(ctx, minTxIDToKeep)
		},
	}
	err := f.fanOutAll(ctx, b, true)
	f.trigger(ctx, hooks.NewPostPurgeEvent(hooks.PostPurgePayload{MinTxIDToKeep: minTxIDToKeep, Error: err}))
	return err
}

// RecoverUnfinalizedSegments asks every entry to finalize any segment left
// open by an unclean shutdown.
func (f *Facade) RecoverUnfinalizedSegments(ctx context.Context) error {
	f.trigger(ctx, hooks.NewPreRecoverEvent())

	b := behavior{
		status: "recoverUnfinalizedSegments",
		apply: func(ctx context.Context, e *entry) error {
			return e.journal.RecoverUnfinalizedSegments(ctx)
		},
	}
	err := f.fanOutAll(ctx, b, true)

	recovered := 0
	for _, e := range f.entries {
		if e.isResourceAvailable() {
			recovered++
		}
	}
	f.trigger(ctx, hooks.NewPostRecoverEvent(hooks.PostRecoverPayload{RecoveredJournals: recovered, Error: err}))
	return err
}

// Close closes every entry (stream then underlying journal), then stops
// the hook manager regardless of per-entry errors.
func (f *Facade) Close() error {
	f.trigger(context.Background(), hooks.NewPreCloseSetEvent())

	b := behavior{
		status: "close",
		apply: func(ctx context.Context, e *entry) error {
			return e.closeEntry()
		},
	}
	err := f.fanOutAll(context.Background(), b, true)

	f.trigger(context.Background(), hooks.NewPostCloseSetEvent())
	if f.hooks != nil {
		f.hooks.Stop()
	}
	return err
}

// fanOutAll runs b over every entry in the set (no is_active filtering —
// lifecycle operations are attempted even on disabled entries, since a
// successful one is how an entry recovers) and feeds the result to the
// Health Arbiter. parallel selects the fan-out mode per the spec's choice
// rule: lifecycle and flush operations use the worker pool.
func (f *Facade) fanOutAll(ctx context.Context, b behavior, parallel bool) error {
	var bad []*entry
	if parallel {
		var err error
		bad, err = f.executor.runParallel(ctx, f.entries, b)
		if err != nil {
			return err
		}
	} else {
		bad = f.executor.runSequential(ctx, f.entries, b)
	}
	return f.arbiter.run(ctx, b.status, f.entries, bad, &f.forceCheck)
}

// The following operations are explicitly not offered by the Journal Set;
// the metadata server is expected to call them directly on the underlying
// journals it manages outside of this facade.

func (f *Facade) Format(ctx context.Context, nsInfo core.NamespaceInfo) error {
	return &core.UnsupportedError{Operation: "format"}
}

func (f *Facade) HasSomeData() (bool, error) {
	return false, &core.UnsupportedError{Operation: "hasSomeData"}
}

func (f *Facade) IsSegmentInProgress(txID uint64) (bool, error) {
	return false, &core.UnsupportedError{Operation: "isSegmentInProgress"}
}

func (f *Facade) ReadWithValidation(ctx context.Context, fromTxID uint64) (interface{}, error) {
	return nil, &core.UnsupportedError{Operation: "readWithValidation"}
}
