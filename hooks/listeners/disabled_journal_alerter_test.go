package listeners

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/INLOpen/journalset/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledJournalAlerterListener_OnEvent(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	listener := NewDisabledJournalAlerterListener(logger)
	require.NotNil(t, listener)

	t.Run("Handles PostJournalDisabled event", func(t *testing.T) {
		logBuf.Reset()

		payload := hooks.JournalDisabledPayload{
			Identity: "/var/lib/journalset/a",
			Required: true,
			Cause:    errors.New("write failed"),
		}
		event := hooks.NewPostJournalDisabledEvent(payload)

		err := listener.OnEvent(context.Background(), event)
		require.NoError(t, err)

		logOutput := logBuf.String()
		assert.Contains(t, logOutput, "journal disabled")
		assert.Contains(t, logOutput, `"identity":"/var/lib/journalset/a"`)
	})

	t.Run("Handles PostQuorumLost event", func(t *testing.T) {
		logBuf.Reset()

		payload := hooks.QuorumLostPayload{
			Status:              "flush_and_sync",
			MinJournals:         2,
			ActiveJournals:      1,
			MinNonLocalJournals: 0,
			ActiveNonLocal:      0,
		}
		event := hooks.NewPostQuorumLostEvent(payload)

		err := listener.OnEvent(context.Background(), event)
		require.NoError(t, err)

		logOutput := logBuf.String()
		assert.Contains(t, logOutput, "quorum lost")
		assert.Contains(t, logOutput, `"min_journals":2`)
	})

	t.Run("Ignores other event types", func(t *testing.T) {
		logBuf.Reset()
		event := hooks.NewPostQuorumRestoredEvent(hooks.QuorumRestoredPayload{ActiveJournals: 2})
		require.NoError(t, listener.OnEvent(context.Background(), event))
		assert.Empty(t, logBuf.String(), "listener should not log for untracked event types")
	})
}
