package localjournal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/INLOpen/journalset/core"
)

// Manager implements core.FileBackedJournal by storing edit log segments as
// files in a single directory.
type Manager struct {
	dir        string
	alwaysSync bool
	logger     *slog.Logger

	mu      sync.Mutex
	current *Stream
}

var (
	_ core.UnderlyingJournal  = (*Manager)(nil)
	_ core.FileBackedJournal = (*Manager)(nil)
)

// Option configures a Manager.
type Option func(*Manager)

// WithAlwaysSync makes the stream's ShouldForceSync report true whenever
// unsynced bytes are pending (mirrors config.LocalJournalConfig.SyncMode ==
// "always"). FlushAndSync fsyncs on every call either way.
func WithAlwaysSync(always bool) Option {
	return func(m *Manager) { m.alwaysSync = always }
}

// WithLogger attaches a logger to the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager rooted at dir. The directory must already
// exist; Format is responsible for creating it on a fresh namespace.
func NewManager(dir string, opts ...Option) *Manager {
	m := &Manager{dir: dir, alwaysSync: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "localjournal.Manager", "dir", dir)
	return m
}

// Identity reports the storage directory, which is stable and unique per
// journal the way the specification expects for Facade.Remove matching.
func (m *Manager) Identity() string {
	return m.dir
}

// GetStorageDirectory returns the directory backing this journal.
func (m *Manager) GetStorageDirectory() string {
	return m.dir
}

// StartLogSegment creates a new in-progress segment file for txID and
// returns the stream writing to it.
func (m *Manager) StartLogSegment(ctx context.Context, txID uint64) (core.OutputStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, &core.StreamAlreadyOpenError{TxID: txID}
	}

	stream, err := newStream(m.dir, txID, m.alwaysSync)
	if err != nil {
		return nil, err
	}
	m.current = stream
	return stream, nil
}

// FinalizeLogSegment closes the current stream and renames its file to the
// finalized, range-named form.
func (m *Manager) FinalizeLogSegment(ctx context.Context, firstTxID, lastTxID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.startTxID != firstTxID {
		return fmt.Errorf("localjournal: no open segment starting at txid %d", firstTxID)
	}
	if err := m.current.Close(); err != nil {
		return fmt.Errorf("localjournal: failed to close segment before finalizing: %w", err)
	}
	newPath, err := m.current.finalize(lastTxID)
	if err != nil {
		return err
	}
	m.logger.Info("finalized log segment", "path", newPath, "first_txid", firstTxID, "last_txid", lastTxID)
	m.current = nil
	return nil
}

// Close closes any open stream without finalizing it, leaving it as an
// in-progress segment for the next RecoverUnfinalizedSegments call.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}

// Format wipes and recreates the storage directory, stamping it for a fresh
// namespace. Existing content is removed.
func (m *Manager) Format(ctx context.Context, nsInfo core.NamespaceInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("localjournal: failed to clear directory %s: %w", m.dir, err)
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("localjournal: failed to create directory %s: %w", m.dir, err)
	}
	m.logger.Info("formatted journal directory", "cluster_id", nsInfo.ClusterID, "namespace_id", nsInfo.NamespaceID)
	return nil
}

// finalizedSegments lists the finalized segments on disk, plus any
// in-progress segment with its estimated end, sorted by start txid.
func (m *Manager) finalizedSegments() ([]core.RemoteEditLog, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("localjournal: failed to read directory %s: %w", m.dir, err)
	}

	var logs []core.RemoteEditLog
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if start, end, ok := parseFinalizedFileName(e.Name()); ok {
			logs = append(logs, core.RemoteEditLog{StartTxID: start, EndTxID: end, InProgress: false})
		} else if start, ok := parseInProgressFileName(e.Name()); ok {
			end, ferr := m.inProgressEndEstimate(e.Name())
			if ferr != nil {
				m.logger.Warn("failed to estimate in-progress segment end", "file", e.Name(), "error", ferr)
				continue
			}
			logs = append(logs, core.RemoteEditLog{StartTxID: start, EndTxID: end, InProgress: true})
		}
	}
	logs = core.SortByStart(logs)
	return logs, nil
}

// inProgressEndEstimate counts records in an in-progress segment to derive
// an end txid estimate. Each record is assumed to correspond to one
// transaction, consistent with the edit log's append-per-operation model.
func (m *Manager) inProgressEndEstimate(name string) (uint64, error) {
	startTxID, _ := parseInProgressFileName(name)
	reader, err := openSegmentForRead(filepath.Join(m.dir, name))
	if err != nil {
		return startTxID, err
	}
	defer reader.close()

	count := uint64(0)
	for {
		if _, err := reader.readRecord(); err != nil {
			break
		}
		count++
	}
	if count == 0 {
		return startTxID, nil
	}
	return startTxID + count - 1, nil
}

// GetEditLogManifest builds a gap-respecting manifest of this journal's
// segments starting at fromTxID.
func (m *Manager) GetEditLogManifest(ctx context.Context, fromTxID uint64) ([]core.RemoteEditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logs, err := m.finalizedSegments()
	if err != nil {
		return nil, err
	}
	return core.BuildManifest(fromTxID, logs), nil
}

// GetNumberOfTransactions returns the count of transactions covered by
// segments from fromTxID onward, per the gap-respecting manifest.
func (m *Manager) GetNumberOfTransactions(ctx context.Context, fromTxID uint64) (int64, error) {
	manifest, err := m.GetEditLogManifest(ctx, fromTxID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, seg := range manifest {
		total += int64(seg.EndTxID-seg.StartTxID) + 1
	}
	return total, nil
}

// GetInputStream opens a reader over the continuous run of segments
// starting at fromTxID, as determined by the manifest.
func (m *Manager) GetInputStream(ctx context.Context, fromTxID uint64) (io.ReadCloser, error) {
	manifest, err := m.GetEditLogManifest(ctx, fromTxID)
	if err != nil {
		return nil, err
	}
	if len(manifest) == 0 {
		return nil, &core.CorruptionError{FromTxID: fromTxID}
	}

	var paths []string
	for _, seg := range manifest {
		var name string
		if seg.InProgress {
			name = segmentFileName(seg.StartTxID)
		} else {
			name = finalizedFileName(seg.StartTxID, seg.EndTxID)
		}
		paths = append(paths, filepath.Join(m.dir, name))
	}
	return newChainReader(paths)
}

// RecoverUnfinalizedSegments finalizes any in-progress segment left behind
// by an unclean shutdown, using the record count as its end txid.
func (m *Manager) RecoverUnfinalizedSegments(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("localjournal: failed to read directory %s: %w", m.dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		startTxID, ok := parseInProgressFileName(e.Name())
		if !ok {
			continue
		}
		endTxID, err := m.inProgressEndEstimate(e.Name())
		if err != nil {
			m.logger.Error("failed to recover unfinalized segment", "file", e.Name(), "error", err)
			continue
		}
		oldPath := filepath.Join(m.dir, e.Name())
		newPath := filepath.Join(m.dir, finalizedFileName(startTxID, endTxID))
		if err := os.Rename(oldPath, newPath); err != nil {
			return fmt.Errorf("localjournal: failed to recover segment %s: %w", oldPath, err)
		}
		m.logger.Info("recovered unfinalized segment", "path", newPath, "first_txid", startTxID, "last_txid", endTxID)
	}
	return nil
}

// PurgeLogsOlderThan removes finalized segments that end before
// minTxIDToKeep. The currently open segment, if any, is never purged.
func (m *Manager) PurgeLogsOlderThan(ctx context.Context, minTxIDToKeep uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logs, err := m.finalizedSegments()
	if err != nil {
		return err
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].StartTxID < logs[j].StartTxID })

	var purged int
	for _, seg := range logs {
		if seg.InProgress || seg.EndTxID >= minTxIDToKeep {
			continue
		}
		path := filepath.Join(m.dir, finalizedFileName(seg.StartTxID, seg.EndTxID))
		if err := os.Remove(path); err != nil {
			m.logger.Error("failed to purge segment", "path", path, "error", err)
			continue
		}
		purged++
	}
	if purged > 0 {
		m.logger.Info("purged log segments", "count", purged, "min_txid_to_keep", minTxIDToKeep)
	}
	return nil
}
