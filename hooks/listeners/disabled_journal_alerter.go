package listeners

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/INLOpen/journalset/hooks"
)

// DisabledJournalAlerterListener logs a warning whenever the Health Arbiter
// latches a journal off, and an error when quorum is subsequently lost.
type DisabledJournalAlerterListener struct {
	logger *slog.Logger
}

// NewDisabledJournalAlerterListener creates a new listener for monitoring
// journal health transitions.
func NewDisabledJournalAlerterListener(logger *slog.Logger) *DisabledJournalAlerterListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DisabledJournalAlerterListener{
		logger: logger.With("component", "DisabledJournalAlerterListener"),
	}
}

// OnEvent handles PostJournalDisabled and PostQuorumLost events.
func (l *DisabledJournalAlerterListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	switch event.Type() {
	case hooks.EventPostJournalDisabled:
		payload, ok := event.Payload().(hooks.JournalDisabledPayload)
		if !ok {
			l.logger.Error("received PostJournalDisabled event with incorrect payload type", "payload_type", fmt.Sprintf("%T", event.Payload()))
			return nil
		}
		l.logger.Warn("journal disabled",
			"identity", payload.Identity,
			"required", payload.Required,
			"cause", payload.Cause,
		)
	case hooks.EventPostQuorumLost:
		payload, ok := event.Payload().(hooks.QuorumLostPayload)
		if !ok {
			l.logger.Error("received PostQuorumLost event with incorrect payload type", "payload_type", fmt.Sprintf("%T", event.Payload()))
			return nil
		}
		l.logger.Error("quorum lost",
			"status", payload.Status,
			"min_journals", payload.MinJournals,
			"active_journals", payload.ActiveJournals,
			"min_nonlocal_journals", payload.MinNonLocalJournals,
			"active_nonlocal", payload.ActiveNonLocal,
		)
	}
	return nil
}

// Priority defines the execution order.
func (l *DisabledJournalAlerterListener) Priority() int { return 100 }

// IsAsync indicates this listener can run in the background.
func (l *DisabledJournalAlerterListener) IsAsync() bool { return true }
