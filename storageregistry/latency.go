package storageregistry

import (
	"sync"
	"time"

	"github.com/caio/go-tdigest/v4"
)

// latencyWindow maintains a rolling t-digest of sync latencies so the
// registry can answer percentile queries without retaining every sample.
// A fixed compression parameter bounds the digest's memory use regardless
// of how many samples flow through it.
type latencyWindow struct {
	mu  sync.Mutex
	td  *tdigest.TDigest
	max int
	n   int
}

func newLatencyWindow(windowSize int) (*latencyWindow, error) {
	td, err := tdigest.New(tdigest.Compression(100))
	if err != nil {
		return nil, err
	}
	return &latencyWindow{td: td, max: windowSize}, nil
}

// Observe records one sync latency sample. Once the configured window size
// has been observed, the digest is reset and starts accumulating afresh,
// so percentile queries reflect recent behavior rather than the entire
// process lifetime.
func (w *latencyWindow) Observe(d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.max > 0 && w.n >= w.max {
		td, err := tdigest.New(tdigest.Compression(100))
		if err != nil {
			return err
		}
		w.td = td
		w.n = 0
	}
	if err := w.td.AddWeighted(float64(d.Microseconds()), 1); err != nil {
		return err
	}
	w.n++
	return nil
}

// Percentile returns the q-th percentile (0..1) sync latency in
// microseconds observed in the current window.
func (w *latencyWindow) Percentile(q float64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.td.Quantile(q)
}

// Count reports how many samples are in the current window.
func (w *latencyWindow) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}
