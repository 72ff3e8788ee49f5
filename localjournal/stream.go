package localjournal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Stream is a core.OutputStream backed by an in-progress segment file. It is
// returned by Manager.StartLogSegment and finalized into a permanent,
// range-named file by Manager.FinalizeLogSegment.
type Stream struct {
	dir        string
	startTxID  uint64
	writer     *segmentWriter
	alwaysSync bool

	numSync       int64
	totalSyncTime int64
	pendingBytes  int
}

// newStream creates the in-progress segment file backing a newly opened
// log segment.
func newStream(dir string, startTxID uint64, alwaysSync bool) (*Stream, error) {
	w, err := createSegment(dir, startTxID)
	if err != nil {
		return nil, err
	}
	return &Stream{dir: dir, startTxID: startTxID, writer: w, alwaysSync: alwaysSync}, nil
}

// Create is a no-op: the segment file is already created by newStream so
// that StartLogSegment can fail fast if the directory is unwritable.
func (s *Stream) Create() error {
	return nil
}

// Write appends a single record to the segment.
func (s *Stream) Write(record []byte) error {
	if err := s.writer.writeRecord(record); err != nil {
		return err
	}
	s.pendingBytes += len(record)
	return nil
}

// SetReadyToFlush flushes buffered writes to the OS without fsyncing.
func (s *Stream) SetReadyToFlush() error {
	return s.writer.flush()
}

// FlushAndSync fsyncs the segment file, tracking sync count and latency.
func (s *Stream) FlushAndSync() error {
	start := time.Now()
	err := s.writer.sync()
	atomic.AddInt64(&s.numSync, 1)
	atomic.AddInt64(&s.totalSyncTime, time.Since(start).Nanoseconds()/int64(time.Millisecond))
	if err == nil {
		s.pendingBytes = 0
	}
	return err
}

// Flush flushes buffered writes without fsyncing; an alias of
// SetReadyToFlush kept distinct to mirror the aggregate stream's own Flush
// and SetReadyToFlush operations.
func (s *Stream) Flush() error {
	return s.writer.flush()
}

// Close finalizes the underlying segment writer without renaming the file;
// Manager.FinalizeLogSegment performs the rename after closing the stream.
func (s *Stream) Close() error {
	return s.writer.close()
}

// Abort discards the segment file entirely; used when a journal is
// disabled mid-segment and its partial writes must not be trusted.
func (s *Stream) Abort() error {
	return s.writer.abort()
}

// ShouldForceSync reports true when the stream was opened with always-sync
// enabled and any unsynced bytes are pending.
func (s *Stream) ShouldForceSync() bool {
	return s.pendingBytes > 0 && s.alwaysSync
}

// GetNumSync returns how many times FlushAndSync has been called, whether
// or not the sync succeeded.
func (s *Stream) GetNumSync() int64 {
	return atomic.LoadInt64(&s.numSync)
}

// GetTotalSyncTime returns the cumulative time, in milliseconds, spent
// inside FlushAndSync.
func (s *Stream) GetTotalSyncTime() int64 {
	return atomic.LoadInt64(&s.totalSyncTime)
}

// finalize renames the in-progress segment file to its finalized,
// range-named form. Must be called after Close.
func (s *Stream) finalize(endTxID uint64) (string, error) {
	oldPath := filepath.Join(s.dir, segmentFileName(s.startTxID))
	newPath := filepath.Join(s.dir, finalizedFileName(s.startTxID, endTxID))
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("failed to finalize segment %s: %w", oldPath, err)
	}
	return newPath, nil
}
