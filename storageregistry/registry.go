package storageregistry

import (
	"expvar"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/INLOpen/journalset/core"
)

// directoryState tracks what the registry knows about one storage
// directory: its cached local/shared classification and how many errors
// have been reported against it.
type directoryState struct {
	location   core.StorageLocationType
	classified bool
	errorCount int
	lastError  time.Time
}

// Registry is the storage-directory health registry the journal set
// notifies on every journal failure. It never drives journal behavior
// itself; the Health Arbiter is the only caller that mutates the journal
// set in response to what the registry observes.
type Registry struct {
	mu            sync.Mutex
	dirs          map[string]*directoryState
	nonLocalMagic int64
	latency       *latencyWindow
	logger        *slog.Logger

	disabledJournals *expvar.Int
	reportedErrors    *expvar.Int
}

var _ core.StorageRegistry = (*Registry)(nil)

// New constructs a Registry. nonLocalStatfsMagicHex is the hex-encoded
// filesystem magic number (e.g. "0x6969" for NFS) that marks a directory
// as shared rather than local storage; syncLatencyWindowSize bounds the
// rolling percentile window before it resets.
func New(nonLocalStatfsMagicHex string, syncLatencyWindowSize int, logger *slog.Logger) (*Registry, error) {
	magic, err := parseMagic(nonLocalStatfsMagicHex)
	if err != nil {
		return nil, err
	}
	window, err := newLatencyWindow(syncLatencyWindowSize)
	if err != nil {
		return nil, fmt.Errorf("storageregistry: failed to build latency window: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		dirs:             make(map[string]*directoryState),
		nonLocalMagic:    magic,
		latency:          window,
		logger:           logger.With("component", "storageregistry.Registry"),
		disabledJournals: publishedInt("journalset_disabled_journals"),
		reportedErrors:   publishedInt("journalset_directory_errors_total"),
	}, nil
}

// publishedInt returns the expvar.Int already published under name, or
// publishes a new one, so New can be called more than once per process.
func publishedInt(name string) *expvar.Int {
	if v, ok := expvar.Get(name).(*expvar.Int); ok {
		return v
	}
	return expvar.NewInt(name)
}

func (r *Registry) stateFor(dir string) *directoryState {
	st, ok := r.dirs[dir]
	if !ok {
		st = &directoryState{}
		r.dirs[dir] = st
	}
	return st
}

// ReportErrorOnDirectory records a failure against dir. Called by the
// Health Arbiter for every entry it disables that wraps a file-backed
// journal.
func (r *Registry) ReportErrorOnDirectory(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stateFor(dir)
	st.errorCount++
	st.lastError = time.Now()
	r.reportedErrors.Add(1)
	r.logger.Warn("directory error reported", "directory", dir, "error_count", st.errorCount)
}

// UpdateJournalMetrics publishes the current count of disabled journal
// entries. Called once per Health Arbiter pass.
func (r *Registry) UpdateJournalMetrics(failedCount int) {
	r.disabledJournals.Set(int64(failedCount))
}

// IsPreferred reports whether dir is classified as location. The journal
// set calls this only with core.StorageLocal, to decide the Input
// Selector's local-preference tie-break.
func (r *Registry) IsPreferred(location core.StorageLocationType, dir string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stateFor(dir)
	if !st.classified {
		loc, err := classifyDirectory(dir, r.nonLocalMagic)
		if err != nil {
			r.logger.Warn("failed to classify storage directory, assuming non-local", "directory", dir, "error", err)
			st.location = core.StorageShared
		} else {
			st.location = loc
		}
		st.classified = true
	}
	return st.location == location
}

// RecordSyncLatency feeds one fsync duration into the rolling percentile
// window. Called by diagnostics code, not by the journal set itself.
func (r *Registry) RecordSyncLatency(d time.Duration) error {
	return r.latency.Observe(d)
}

// SyncLatencyPercentile reports the q-th percentile (0..1) sync latency in
// microseconds observed in the current window.
func (r *Registry) SyncLatencyPercentile(q float64) float64 {
	return r.latency.Percentile(q)
}

// ErrorCount reports how many errors have been reported against dir.
func (r *Registry) ErrorCount(dir string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.dirs[dir]; ok {
		return st.errorCount
	}
	return 0
}
