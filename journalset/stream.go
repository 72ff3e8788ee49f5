package journalset

import "context"

// AggregateOutputStream exposes a single write/flush/close surface that
// multiplexes to every active entry of the Journal Set that produced it,
// via the same fan-out + Health Arbiter pipeline every other operation
// uses. The caller is responsible for single-writer discipline: write,
// set_ready_to_flush, and flush_and_sync form a strict logical sequence
// per transaction batch.
type AggregateOutputStream struct {
	facade *Facade
}

// Write buffers record on every active entry. In-memory and fast, so it
// runs sequentially.
func (s *AggregateOutputStream) Write(ctx context.Context, record []byte) error {
	b := behavior{
		status: "write",
		apply: func(ctx context.Context, e *entry) error {
			return e.stream.Write(record)
		},
	}
	return s.facade.fanOutAll(ctx, s.skipInactive(b), false)
}

// Create writes the segment header on every active entry.
func (s *AggregateOutputStream) Create(ctx context.Context) error {
	b := behavior{
		status: "create",
		apply: func(ctx context.Context, e *entry) error {
			return e.stream.Create()
		},
	}
	return s.facade.fanOutAll(ctx, s.skipInactive(b), false)
}

// SetReadyToFlush marks every active entry's stream ready to flush.
func (s *AggregateOutputStream) SetReadyToFlush(ctx context.Context) error {
	b := behavior{
		status: "setReadyToFlush",
		apply: func(ctx context.Context, e *entry) error {
			return e.stream.SetReadyToFlush()
		},
	}
	return s.facade.fanOutAll(ctx, s.skipInactive(b), false)
}

// FlushAndSync is the durability barrier: it runs in parallel so one
// journal's fsync latency does not serialize behind another's.
func (s *AggregateOutputStream) FlushAndSync(ctx context.Context) error {
	b := behavior{
		status: "flushAndSync",
		apply: func(ctx context.Context, e *entry) error {
			return e.stream.FlushAndSync()
		},
	}
	return s.facade.fanOutAll(ctx, s.skipInactive(b), true)
}

// Flush runs in parallel, same rationale as FlushAndSync but without the
// durability guarantee.
func (s *AggregateOutputStream) Flush(ctx context.Context) error {
	b := behavior{
		status: "flush",
		apply: func(ctx context.Context, e *entry) error {
			return e.stream.Flush()
		},
	}
	return s.facade.fanOutAll(ctx, s.skipInactive(b), true)
}

// Close closes the stream on every entry (not just active ones — close is
// idempotent), propagating a quorum-lost error consistent with every
// other fan-out rather than swallowing it.
func (s *AggregateOutputStream) Close(ctx context.Context) error {
	b := behavior{
		status: "closeStream",
		apply: func(ctx context.Context, e *entry) error {
			return e.closeStream()
		},
	}
	return s.facade.fanOutAll(ctx, b, false)
}

// Abort requests a best-effort abort on every entry (idempotent, never
// fails).
func (s *AggregateOutputStream) Abort(ctx context.Context) error {
	b := behavior{
		status: "abort",
		apply: func(ctx context.Context, e *entry) error {
			e.abort()
			return nil
		},
	}
	return s.facade.fanOutAll(ctx, b, false)
}

// ShouldForceSync is a pure read: true if any active entry reports true.
// It is not routed through the Health Arbiter — a read can't disable
// anything.
func (s *AggregateOutputStream) ShouldForceSync() bool {
	for _, e := range s.facade.entries {
		if e.isActive() && e.stream.ShouldForceSync() {
			return true
		}
	}
	return false
}

// GetNumSync returns the value from the first active entry. All entries
// share the same sync counter semantics when driven by this aggregate, so
// the first is treated as representative of the whole set.
func (s *AggregateOutputStream) GetNumSync() int64 {
	for _, e := range s.facade.entries {
		if e.isActive() {
			return e.stream.GetNumSync()
		}
	}
	return 0
}

// skipInactive wraps b so its apply function is only invoked for active
// entries; entries with no open stream are still visited by the fan-out
// but succeed without running the operation. This is the default for
// aggregate stream operations other than close and abort.
func (s *AggregateOutputStream) skipInactive(b behavior) behavior {
	inner := b.apply
	return behavior{
		status: b.status,
		apply: func(ctx context.Context, e *entry) error {
			if !e.isActive() {
				return nil
			}
			return inner(ctx, e)
		},
	}
}
