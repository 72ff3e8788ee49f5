package journalset

import (
	"context"
	"io"

	"github.com/INLOpen/journalset/core"
)

// fakeStream is a minimal core.OutputStream double used to exercise the
// Aggregate Output Stream and entry lifecycle without any real I/O.
type fakeStream struct {
	writeErr        error
	createErr       error
	setReadyErr     error
	flushAndSyncErr error
	flushErr        error
	closeErr        error

	forceSync     bool
	numSync       int64
	totalSyncTime int64

	writes []string
	closed bool
	aborted bool
}

var _ core.OutputStream = (*fakeStream)(nil)

func (s *fakeStream) Write(record []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, string(record))
	return nil
}
func (s *fakeStream) Create() error               { return s.createErr }
func (s *fakeStream) SetReadyToFlush() error      { return s.setReadyErr }
func (s *fakeStream) FlushAndSync() error         { return s.flushAndSyncErr }
func (s *fakeStream) Flush() error                { return s.flushErr }
func (s *fakeStream) Close() error                { s.closed = true; return s.closeErr }
func (s *fakeStream) Abort() error                { s.aborted = true; return nil }
func (s *fakeStream) ShouldForceSync() bool       { return s.forceSync }
func (s *fakeStream) GetNumSync() int64           { return s.numSync }
func (s *fakeStream) GetTotalSyncTime() int64     { return s.totalSyncTime }

// fakeJournal is a minimal core.UnderlyingJournal double.
type fakeJournal struct {
	identity string

	startErr    error
	finalizeErr error
	closeErr    error
	purgeErr    error
	recoverErr  error
	formatErr   error

	numTx    int64
	numTxErr error

	inputStream io.ReadCloser
	inputErr    error

	lastStream *fakeStream
	startCalls int
}

var _ core.UnderlyingJournal = (*fakeJournal)(nil)

func (j *fakeJournal) Identity() string { return j.identity }

func (j *fakeJournal) StartLogSegment(ctx context.Context, txID uint64) (core.OutputStream, error) {
	j.startCalls++
	if j.startErr != nil {
		return nil, j.startErr
	}
	j.lastStream = &fakeStream{}
	return j.lastStream, nil
}

func (j *fakeJournal) FinalizeLogSegment(ctx context.Context, firstTxID, lastTxID uint64) error {
	return j.finalizeErr
}

func (j *fakeJournal) Close() error { return j.closeErr }

func (j *fakeJournal) GetNumberOfTransactions(ctx context.Context, fromTxID uint64) (int64, error) {
	return j.numTx, j.numTxErr
}

func (j *fakeJournal) GetInputStream(ctx context.Context, fromTxID uint64) (io.ReadCloser, error) {
	return j.inputStream, j.inputErr
}

func (j *fakeJournal) PurgeLogsOlderThan(ctx context.Context, minTxIDToKeep uint64) error {
	return j.purgeErr
}

func (j *fakeJournal) RecoverUnfinalizedSegments(ctx context.Context) error {
	return j.recoverErr
}

func (j *fakeJournal) Format(ctx context.Context, nsInfo core.NamespaceInfo) error {
	return j.formatErr
}

// fakeFileJournal additionally satisfies core.FileBackedJournal.
type fakeFileJournal struct {
	*fakeJournal
	dir      string
	manifest []core.RemoteEditLog
	manifestErr error
}

var _ core.FileBackedJournal = (*fakeFileJournal)(nil)

func (j *fakeFileJournal) GetStorageDirectory() string { return j.dir }

func (j *fakeFileJournal) GetEditLogManifest(ctx context.Context, fromTxID uint64) ([]core.RemoteEditLog, error) {
	return j.manifest, j.manifestErr
}

// fakeRegistry is a minimal core.StorageRegistry double.
type fakeRegistry struct {
	reportedDirs  []string
	metricsCalls  []int
	localDirs     map[string]bool
}

var _ core.StorageRegistry = (*fakeRegistry)(nil)

func (r *fakeRegistry) ReportErrorOnDirectory(dir string) {
	r.reportedDirs = append(r.reportedDirs, dir)
}

func (r *fakeRegistry) UpdateJournalMetrics(failedCount int) {
	r.metricsCalls = append(r.metricsCalls, failedCount)
}

func (r *fakeRegistry) IsPreferred(location core.StorageLocationType, dir string) bool {
	if location != core.StorageLocal {
		return false
	}
	return r.localDirs[dir]
}

type nopReadCloser struct{}

func (nopReadCloser) Read(p []byte) (int, error) { return 0, io.EOF }
func (nopReadCloser) Close() error               { return nil }
