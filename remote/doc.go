// Package remote implements core.UnderlyingJournal against a remote edit
// log service reached over gRPC. It speaks a small set of byte-oriented
// RPCs directly through grpc.ClientConn.Invoke rather than through
// generated service stubs, so the wire contract is exactly the
// (start_txid, end_txid, in_progress) tuple and the raw, optionally
// compressed, segment bytes described by the journal set's collaborator
// contract.
package remote
