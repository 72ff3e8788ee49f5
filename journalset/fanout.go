package journalset

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/INLOpen/journalset/core"
)

// behavior is a closure over one operation applied to every live entry by
// a fan-out, plus a human-readable status string used in QuorumLost and
// InternalPoolError messages.
type behavior struct {
	status string
	apply  func(ctx context.Context, e *entry) error
}

// executor applies a behavior to a sequence of entries, either
// sequentially or via a fixed-size worker pool, and reports which entries
// failed. Every entry is attempted exactly once per call; neither mode
// short-circuits on the first failure.
type executor struct {
	poolSize int
}

func newExecutor(poolSize int) *executor {
	if poolSize < 1 {
		poolSize = 1
	}
	return &executor{poolSize: poolSize}
}

// runSequential applies b to each entry in order, catching any error
// (including a panic) per entry and recording it in the returned bad set.
func (x *executor) runSequential(ctx context.Context, entries []*entry, b behavior) []*entry {
	var bad []*entry
	for _, e := range entries {
		if err := x.applyOne(ctx, e, b); err != nil {
			bad = append(bad, e)
		}
	}
	return bad
}

// runParallel submits one task per entry to a fixed-size worker pool and
// waits for every task to complete. If a worker panics, the whole fan-out
// fails with InternalPoolError; this is fatal because it violates the
// total-fan-out property the spec requires.
func (x *executor) runParallel(ctx context.Context, entries []*entry, b behavior) ([]*entry, error) {
	g := new(errgroup.Group)
	g.SetLimit(x.poolSize)

	var mu sync.Mutex
	var bad []*entry
	var poolErr error

	for _, e := range entries {
		e := e
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if poolErr == nil {
						poolErr = fmt.Errorf("recovered panic: %v", r)
					}
					mu.Unlock()
				}
			}()
			if err := b.apply(ctx, e); err != nil {
				mu.Lock()
				bad = append(bad, e)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &core.InternalPoolError{Status: b.status, Cause: err}
	}
	if poolErr != nil {
		return nil, &core.InternalPoolError{Status: b.status, Cause: poolErr}
	}
	return bad, nil
}

// applyOne runs b against a single entry, converting any panic escaping
// the closure into an ordinary error so runSequential can still attempt
// every remaining entry.
func (x *executor) applyOne(ctx context.Context, e *entry, b behavior) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s: %v", b.status, r)
		}
	}()
	return b.apply(ctx, e)
}
