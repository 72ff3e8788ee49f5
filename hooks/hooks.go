package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/INLOpen/journalset/core"
)

// EventType defines the type of a hook event.
type EventType string

// --- Event Type Constants ---
const (
	// Segment Lifecycle Events
	EventPreStartLogSegment     EventType = "PreStartLogSegment"
	EventPostStartLogSegment    EventType = "PostStartLogSegment"
	EventPreFinalizeLogSegment  EventType = "PreFinalizeLogSegment"
	EventPostFinalizeLogSegment EventType = "PostFinalizeLogSegment"

	// Health Arbiter Events
	EventPostJournalDisabled  EventType = "PostJournalDisabled"
	EventPostJournalRestored  EventType = "PostJournalRestored"
	EventPostQuorumLost       EventType = "PostQuorumLost"
	EventPostQuorumRestored   EventType = "PostQuorumRestored"

	// Manifest & Recovery Events
	EventPostManifestBuilt EventType = "PostManifestBuilt"
	EventPreRecover        EventType = "PreRecover"
	EventPostRecover       EventType = "PostRecover"
	EventPrePurge          EventType = "PrePurge"
	EventPostPurge         EventType = "PostPurge"

	// Journal Set Lifecycle Events
	EventPreAddJournal    EventType = "PreAddJournal"
	EventPostAddJournal   EventType = "PostAddJournal"
	EventPostRemoveJournal EventType = "PostRemoveJournal"
	EventPreCloseSet      EventType = "PreCloseSet"
	EventPostCloseSet     EventType = "PostCloseSet"
)

// --- HookManager Interface and Implementation ---

// HookManager defines the interface for managing and triggering hooks.
type HookManager interface {
	// Register adds a listener for a specific event type.
	Register(eventType EventType, listener HookListener)
	// Trigger fires all registered listeners for a given event.
	// It handles synchronous vs. asynchronous execution based on the event type and listener preference.
	Trigger(ctx context.Context, event HookEvent) error
	// Stop waits for all asynchronous listeners to complete. Useful for graceful shutdown.
	Stop()
}

// HookEvent is the interface that all event objects must implement.
type HookEvent interface {
	// Type returns the type of the event.
	Type() EventType
	// Payload returns the data associated with the event.
	Payload() interface{}
}

// BaseEvent provides a base implementation for HookEvent.
type BaseEvent struct {
	eventType EventType
	payload   interface{}
}

func (e *BaseEvent) Type() EventType      { return e.eventType }
func (e *BaseEvent) Payload() interface{} { return e.payload }

// --- Segment Lifecycle Payloads ---

// PreStartLogSegmentPayload contains the data for a PreStartLogSegment event.
// TxID is a pointer so a listener may rewrite it; the segment is then
// opened at the rewritten id. A listener that returns an error cancels
// the call.
type PreStartLogSegmentPayload struct {
	TxID *uint64
}

func NewPreStartLogSegmentEvent(payload PreStartLogSegmentPayload) HookEvent {
	return &BaseEvent{eventType: EventPreStartLogSegment, payload: payload}
}

// PostStartLogSegmentPayload contains the data for a PostStartLogSegment event.
type PostStartLogSegmentPayload struct {
	TxID           uint64
	ActiveJournals int
	Error          error
}

func NewPostStartLogSegmentEvent(payload PostStartLogSegmentPayload) HookEvent {
	return &BaseEvent{eventType: EventPostStartLogSegment, payload: payload}
}

// PreFinalizeLogSegmentPayload contains the data for a PreFinalizeLogSegment event.
type PreFinalizeLogSegmentPayload struct {
	FirstTxID uint64
	LastTxID  uint64
}

func NewPreFinalizeLogSegmentEvent(payload PreFinalizeLogSegmentPayload) HookEvent {
	return &BaseEvent{eventType: EventPreFinalizeLogSegment, payload: payload}
}

// PostFinalizeLogSegmentPayload contains the data for a PostFinalizeLogSegment event.
type PostFinalizeLogSegmentPayload struct {
	FirstTxID uint64
	LastTxID  uint64
	Error     error
}

func NewPostFinalizeLogSegmentEvent(payload PostFinalizeLogSegmentPayload) HookEvent {
	return &BaseEvent{eventType: EventPostFinalizeLogSegment, payload: payload}
}

// --- Health Arbiter Payloads ---

// JournalDisabledPayload describes one entry the Health Arbiter latched off.
type JournalDisabledPayload struct {
	Identity string
	Required bool
	Cause    error
}

func NewPostJournalDisabledEvent(payload JournalDisabledPayload) HookEvent {
	return &BaseEvent{eventType: EventPostJournalDisabled, payload: payload}
}

// JournalRestoredPayload describes one entry whose disabled latch was
// cleared by a successful StartLogSegment.
type JournalRestoredPayload struct {
	Identity string
}

func NewPostJournalRestoredEvent(payload JournalRestoredPayload) HookEvent {
	return &BaseEvent{eventType: EventPostJournalRestored, payload: payload}
}

// QuorumLostPayload mirrors the fields of core.QuorumLostError so listeners
// do not need to type-assert the underlying error.
type QuorumLostPayload struct {
	Status              string
	MinJournals          int
	ActiveJournals       int
	MinNonLocalJournals  int
	ActiveNonLocal       int
}

func NewPostQuorumLostEvent(payload QuorumLostPayload) HookEvent {
	return &BaseEvent{eventType: EventPostQuorumLost, payload: payload}
}

// QuorumRestoredPayload marks a re-evaluation that found the thresholds
// satisfied again after a prior loss.
type QuorumRestoredPayload struct {
	ActiveJournals int
	ActiveNonLocal int
}

func NewPostQuorumRestoredEvent(payload QuorumRestoredPayload) HookEvent {
	return &BaseEvent{eventType: EventPostQuorumRestored, payload: payload}
}

// --- Manifest & Recovery Payloads ---

// ManifestBuiltPayload reports the outcome of a manifest build.
type ManifestBuiltPayload struct {
	FromTxID uint64
	Segments []core.RemoteEditLog
}

func NewPostManifestBuiltEvent(payload ManifestBuiltPayload) HookEvent {
	return &BaseEvent{eventType: EventPostManifestBuilt, payload: payload}
}

// RecoverPayload carries no data on the Pre side and the outcome on the Post side.
type PreRecoverPayload struct{}

func NewPreRecoverEvent() HookEvent {
	return &BaseEvent{eventType: EventPreRecover, payload: PreRecoverPayload{}}
}

type PostRecoverPayload struct {
	RecoveredJournals int
	Error             error
}

func NewPostRecoverEvent(payload PostRecoverPayload) HookEvent {
	return &BaseEvent{eventType: EventPostRecover, payload: payload}
}

// PurgePayload carries the retention boundary for a purge operation.
type PrePurgePayload struct {
	MinTxIDToKeep uint64
}

func NewPrePurgeEvent(payload PrePurgePayload) HookEvent {
	return &BaseEvent{eventType: EventPrePurge, payload: payload}
}

type PostPurgePayload struct {
	MinTxIDToKeep uint64
	Error         error
}

func NewPostPurgeEvent(payload PostPurgePayload) HookEvent {
	return &BaseEvent{eventType: EventPostPurge, payload: payload}
}

// --- Journal Set Lifecycle Payloads ---

// AddJournalPayload describes an entry being wired into (or removed from) the set.
type AddJournalPayload struct {
	Identity string
	Required bool
	Shared   bool
}

func NewPreAddJournalEvent(payload AddJournalPayload) HookEvent {
	return &BaseEvent{eventType: EventPreAddJournal, payload: payload}
}

func NewPostAddJournalEvent(payload AddJournalPayload) HookEvent {
	return &BaseEvent{eventType: EventPostAddJournal, payload: payload}
}

type RemoveJournalPayload struct {
	Identity string
}

func NewPostRemoveJournalEvent(payload RemoveJournalPayload) HookEvent {
	return &BaseEvent{eventType: EventPostRemoveJournal, payload: payload}
}

type CloseSetPayload struct{}

func NewPreCloseSetEvent() HookEvent {
	return &BaseEvent{eventType: EventPreCloseSet, payload: CloseSetPayload{}}
}

func NewPostCloseSetEvent() HookEvent {
	return &BaseEvent{eventType: EventPostCloseSet, payload: CloseSetPayload{}}
}

// --- HookListener Interface ---

// HookListener defines the interface for components that want to listen to events.
type HookListener interface {
	// OnEvent is called by the HookManager when a registered event is triggered.
	// Returning an error from a "Pre" hook (e.g., PreStartLogSegment) can cancel the operation.
	// Errors from "Post" hooks are typically logged without affecting the main operation.
	OnEvent(ctx context.Context, event HookEvent) error

	// Priority returns the listener's priority. Lower numbers are executed first.
	Priority() int

	// IsAsync indicates if the listener should be called asynchronously for Post-events.
	IsAsync() bool
}

// listenerWithPriority wraps a listener with its priority so the per-event
// slice can be kept sorted by priority.
type listenerWithPriority struct {
	listener HookListener
	priority int
}

// DefaultHookManager is a concrete implementation of HookManager.
type DefaultHookManager struct {
	// The map stores slices of listeners, kept sorted by priority.
	listeners map[EventType][]*listenerWithPriority
	mu        sync.RWMutex
	wg        sync.WaitGroup // For tracking async listeners
	logger    *slog.Logger
}

// NewHookManager creates a new DefaultHookManager.
func NewHookManager(logger *slog.Logger) HookManager {
	if logger == nil {
		// Default to a discard logger to prevent nil panics if no logger is provided.
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DefaultHookManager{
		listeners: make(map[EventType][]*listenerWithPriority),
		logger:    logger,
	}
}

// Register adds a listener for a specific event type, maintaining priority order.
func (m *DefaultHookManager) Register(eventType EventType, listener HookListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &listenerWithPriority{
		listener: listener,
		priority: listener.Priority(),
	}

	l := m.listeners[eventType]

	// sort.Search finds the first index i where l[i].priority >= item.priority.
	idx := sort.Search(len(l), func(i int) bool {
		return l[i].priority >= item.priority
	})

	l = append(l, nil)
	copy(l[idx+1:], l[idx:])
	l[idx] = item

	m.listeners[eventType] = l
}

// Trigger fires all registered listeners for a given event in priority order.
func (m *DefaultHookManager) Trigger(ctx context.Context, event HookEvent) error {
	m.mu.RLock()
	listeners, ok := m.listeners[event.Type()]
	m.mu.RUnlock()

	if !ok || len(listeners) == 0 {
		return nil
	}

	isPreHook := strings.HasPrefix(string(event.Type()), "Pre")

	for _, item := range listeners {
		isListenerAsync := item.listener.IsAsync()

		// Pre-hooks MUST be synchronous to allow for cancellation.
		// Post-hooks can be sync or async based on the listener's preference.
		if isPreHook || !isListenerAsync {
			if isPreHook && isListenerAsync {
				m.logger.Warn("listener for pre-hook requested async execution, but pre-hooks are always synchronous", "event", event.Type(), "priority", item.priority)
			}

			if err := item.listener.OnEvent(ctx, event); err != nil {
				if isPreHook {
					// For Pre-hooks, the error is critical and cancels the operation.
					return fmt.Errorf("pre-hook for event %s (priority %d) failed: %w", event.Type(), item.priority, err)
				}
				m.logger.Error("error from synchronous post-hook listener", "event", event.Type(), "priority", item.priority, "error", err)
			}
		} else {
			m.wg.Add(1)
			go func(currentItem *listenerWithPriority) {
				defer m.wg.Done()
				if err := currentItem.listener.OnEvent(ctx, event); err != nil {
					m.logger.Error("error from asynchronous post-hook listener", "event", event.Type(), "priority", currentItem.priority, "error", err)
				}
			}(item)
		}
	}
	return nil
}

// Stop waits for all asynchronous listeners to complete.
func (m *DefaultHookManager) Stop() {
	m.wg.Wait()
}
