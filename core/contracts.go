package core

import (
	"context"
	"io"
)

// StorageLocationType classifies where a storage directory physically
// lives, mirroring the distinction the storage registry uses to decide
// whether a journal counts toward the non-local quorum.
type StorageLocationType int

const (
	// StorageLocal is a directory on storage local to this host.
	StorageLocal StorageLocationType = iota
	// StorageShared is a directory on shared (e.g. NFS) storage, reachable
	// from more than one host.
	StorageShared
)

// OutputStream is the per-journal stream contract a Journal Entry wraps.
// It is the unit of work the Aggregate Output Stream multiplexes over.
type OutputStream interface {
	Write(record []byte) error
	Create() error
	SetReadyToFlush() error
	FlushAndSync() error
	Flush() error
	Close() error
	Abort() error
	ShouldForceSync() bool
	GetNumSync() int64
	GetTotalSyncTime() int64
}

// UnderlyingJournal is the contract every journal implementation (local
// file directory, shared storage, remote log service) must satisfy. It is
// an external collaborator: the journal set drives it through a shared
// lifecycle but never inspects its internals.
type UnderlyingJournal interface {
	StartLogSegment(ctx context.Context, txID uint64) (OutputStream, error)
	FinalizeLogSegment(ctx context.Context, firstTxID, lastTxID uint64) error
	Close() error
	GetNumberOfTransactions(ctx context.Context, fromTxID uint64) (int64, error)
	GetInputStream(ctx context.Context, fromTxID uint64) (io.ReadCloser, error)
	PurgeLogsOlderThan(ctx context.Context, minTxIDToKeep uint64) error
	RecoverUnfinalizedSegments(ctx context.Context) error
	Format(ctx context.Context, nsInfo NamespaceInfo) error

	// Identity reports a stable, comparable handle used by Facade.Remove to
	// find the entry wrapping a given journal (commonly a path or endpoint).
	Identity() string
}

// FileBackedJournal is satisfied by journals that store segments on a
// filesystem directory; only these publish a manifest surface and a
// local/non-local classification.
type FileBackedJournal interface {
	UnderlyingJournal
	GetStorageDirectory() string
	GetEditLogManifest(ctx context.Context, fromTxID uint64) ([]RemoteEditLog, error)
}

// NamespaceInfo is the minimal identity a namespace format operation
// stamps into a freshly formatted journal.
type NamespaceInfo struct {
	ClusterID     string
	NamespaceID   uint64
	CreationTime  int64
}

// StorageRegistry is the external collaborator that tracks storage
// directory health and metrics on behalf of the journal set. The journal
// set only ever notifies it; it never queries it for anything but the
// local/non-local classification.
type StorageRegistry interface {
	ReportErrorOnDirectory(dir string)
	UpdateJournalMetrics(failedCount int)
	IsPreferred(location StorageLocationType, dir string) bool
}
