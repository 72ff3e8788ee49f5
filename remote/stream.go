package remote

import (
	"context"
	"sync/atomic"

	"github.com/INLOpen/journalset/core"
)

// stream implements core.OutputStream by shipping every operation to the
// remote service as a unary RPC scoped to the txid StartLogSegment opened.
// Read-only accessors (ShouldForceSync, GetNumSync, GetTotalSyncTime) poll
// the remote service with a GetSyncStatus RPC on every call. FlushAndSync
// also refreshes the cached counters from its response. When a poll fails,
// GetNumSync and GetTotalSyncTime return the cached values and
// ShouldForceSync returns false.
type stream struct {
	journal *Journal
	txID    uint64

	shouldForceSync int32
	numSync         int64
	totalSyncTime   int64
}

var _ core.OutputStream = (*stream)(nil)

func newStream(j *Journal, txID uint64) *stream {
	return &stream{journal: j, txID: txID}
}

func (s *stream) Create() error {
	_, err := s.journal.invoke(context.Background(), methodCreate, encodeTxIDRequest(s.txID))
	return err
}

func (s *stream) Write(record []byte) error {
	payload := record
	codec := uint64(core.CompressionNone)
	if s.journal.compressor != nil {
		compressed, err := s.journal.compressor.Compress(record)
		if err != nil {
			return err
		}
		payload = compressed
		codec = uint64(s.journal.compressor.Type())
	}
	_, err := s.journal.invoke(context.Background(), methodWrite, encodeWriteRequest(s.txID, codec, payload))
	return err
}

func (s *stream) SetReadyToFlush() error {
	_, err := s.journal.invoke(context.Background(), methodSetReadyToFlush, encodeTxIDRequest(s.txID))
	return err
}

func (s *stream) FlushAndSync() error {
	resp, err := s.journal.invoke(context.Background(), methodFlushAndSync, encodeTxIDRequest(s.txID))
	if err != nil {
		return err
	}
	s.absorbSyncStatus(resp)
	return nil
}

func (s *stream) Flush() error {
	_, err := s.journal.invoke(context.Background(), methodFlush, encodeTxIDRequest(s.txID))
	return err
}

func (s *stream) Close() error {
	_, err := s.journal.invoke(context.Background(), methodCloseStream, encodeTxIDRequest(s.txID))
	return err
}

func (s *stream) Abort() error {
	// Best-effort: the Journal Entry contract swallows abort errors, so we
	// do the same rather than surface a half-torn-down remote stream.
	_, _ = s.journal.invoke(context.Background(), methodAbort, encodeTxIDRequest(s.txID))
	return nil
}

func (s *stream) ShouldForceSync() bool {
	if s.refreshSyncStatus() {
		return atomic.LoadInt32(&s.shouldForceSync) != 0
	}
	return false
}

func (s *stream) GetNumSync() int64 {
	s.refreshSyncStatus()
	return atomic.LoadInt64(&s.numSync)
}

func (s *stream) GetTotalSyncTime() int64 {
	s.refreshSyncStatus()
	return atomic.LoadInt64(&s.totalSyncTime)
}

// refreshSyncStatus polls the remote service for its current sync
// counters. It reports false (and leaves the cached values as-is) if the
// round trip fails, since these accessors have no error return of their
// own to surface a transient failure through.
func (s *stream) refreshSyncStatus() bool {
	resp, err := s.journal.invoke(context.Background(), methodGetSyncStatus, encodeTxIDRequest(s.txID))
	if err != nil {
		return false
	}
	s.absorbSyncStatus(resp)
	return true
}

func (s *stream) absorbSyncStatus(resp []byte) {
	force, numSync, totalSyncTime, err := decodeSyncStatusResponse(resp)
	if err != nil {
		return
	}
	if force {
		atomic.StoreInt32(&s.shouldForceSync, 1)
	} else {
		atomic.StoreInt32(&s.shouldForceSync, 0)
	}
	atomic.StoreInt64(&s.numSync, numSync)
	atomic.StoreInt64(&s.totalSyncTime, totalSyncTime)
}
