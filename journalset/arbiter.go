package journalset

import (
	"context"
	"log/slog"

	"github.com/INLOpen/journalset/core"
	"github.com/INLOpen/journalset/hooks"
)

// arbiter disables the entries a fan-out reports as bad, notifies the
// storage registry, and re-evaluates quorum. It never decides to run on
// its own: the facade calls it after every fan-out, passing the bad set
// (possibly empty) that fan-out produced.
type arbiter struct {
	minJournals         int
	minNonLocalJournals int
	registry            core.StorageRegistry
	hooks               hooks.HookManager
	logger              *slog.Logger
}

func newArbiter(minJournals, minNonLocalJournals int, registry core.StorageRegistry, logger *slog.Logger) *arbiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &arbiter{
		minJournals:         minJournals,
		minNonLocalJournals: minNonLocalJournals,
		registry:            registry,
		logger:              logger.With("component", "journalset.arbiter"),
	}
}

// setHooks wires a hook manager in after construction, so existing
// construction sites and tests that build an arbiter without one keep
// working; a nil manager leaves notification calls as no-ops.
func (a *arbiter) setHooks(hm hooks.HookManager) {
	a.hooks = hm
}

func (a *arbiter) trigger(ctx context.Context, event hooks.HookEvent) {
	if a.hooks == nil {
		return
	}
	_ = a.hooks.Trigger(ctx, event)
}

// run implements the Health Arbiter algorithm: disable every entry in bad,
// report it to the storage registry, and re-evaluate quorum. If bad is
// empty and forceCheck is not set, it returns immediately without
// touching quorum state at all; if bad is empty but forceCheck is set, it
// clears the latch and re-evaluates anyway, since a prior operation's
// quorum loss might not otherwise surface until the next failure.
func (a *arbiter) run(ctx context.Context, status string, entries []*entry, bad []*entry, forceCheck *bool) error {
	wasLost := *forceCheck

	if len(bad) == 0 {
		if !wasLost {
			return nil
		}
		*forceCheck = false
		return a.checkQuorum(ctx, status, entries, forceCheck, wasLost)
	}

	for _, e := range bad {
		a.logger.Error("journal entry failed, disabling", "status", status, "required", e.required)
		e.disable()
		if fb, ok := e.fileBacked(); ok && a.registry != nil {
			a.registry.ReportErrorOnDirectory(fb.GetStorageDirectory())
		}
		a.trigger(ctx, hooks.NewPostJournalDisabledEvent(hooks.JournalDisabledPayload{
			Identity: e.journal.Identity(),
			Required: e.required,
		}))
	}

	if a.registry != nil {
		a.registry.UpdateJournalMetrics(countDisabled(entries))
	}

	return a.checkQuorum(ctx, status, entries, forceCheck, wasLost)
}

// checkQuorum walks every entry, counting active and non-local-active
// resource-available entries. Any disabled required entry, or a shortfall
// against either threshold, sets forceCheck and fails with QuorumLost.
// wasLost is the latch's value before this evaluation, used only to decide
// whether a clean result is a restoration worth announcing.
func (a *arbiter) checkQuorum(ctx context.Context, status string, entries []*entry, forceCheck *bool, wasLost bool) error {
	active := 0
	nonLocalActive := 0
	requiredDisabled := false

	for _, e := range entries {
		if e.isResourceAvailable() {
			active++
			if e.isNonLocalCandidate() {
				nonLocalActive++
			}
		} else if e.required {
			requiredDisabled = true
		}
	}

	if requiredDisabled || active < a.minJournals || nonLocalActive < a.minNonLocalJournals {
		*forceCheck = true
		a.trigger(ctx, hooks.NewPostQuorumLostEvent(hooks.QuorumLostPayload{
			Status:              status,
			MinJournals:         a.minJournals,
			ActiveJournals:      active,
			MinNonLocalJournals: a.minNonLocalJournals,
			ActiveNonLocal:      nonLocalActive,
		}))
		return &core.QuorumLostError{
			Status:              status,
			MinJournals:         a.minJournals,
			ActiveJournals:      active,
			MinNonLocalJournals: a.minNonLocalJournals,
			ActiveNonLocal:      nonLocalActive,
		}
	}
	if wasLost {
		a.trigger(ctx, hooks.NewPostQuorumRestoredEvent(hooks.QuorumRestoredPayload{
			ActiveJournals: active,
			ActiveNonLocal: nonLocalActive,
		}))
	}
	return nil
}

func countDisabled(entries []*entry) int {
	count := 0
	for _, e := range entries {
		if e.disabled {
			count++
		}
	}
	return count
}
