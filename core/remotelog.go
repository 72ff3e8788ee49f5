package core

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// RemoteEditLog describes one segment of the edit log as reported by a
// single journal: the range of transaction ids it covers, and whether it
// is still being written (in_progress) or has been finalized.
type RemoteEditLog struct {
	StartTxID  uint64
	EndTxID    uint64
	InProgress bool
}

func (l RemoteEditLog) String() string {
	if l.InProgress {
		return fmt.Sprintf("[%d,%d,in-progress]", l.StartTxID, l.EndTxID)
	}
	return fmt.Sprintf("[%d,%d]", l.StartTxID, l.EndTxID)
}

// Less implements the total order among descriptors sharing a start txid:
// finalized segments sort higher than in-progress ones, and within the
// same finalization state a larger end txid wins. It returns true if l
// sorts strictly before other.
func (l RemoteEditLog) Less(other RemoteEditLog) bool {
	if l.InProgress != other.InProgress {
		// finalized (InProgress == false) sorts higher, i.e. "less" is false
		// for the finalized one.
		return l.InProgress
	}
	return l.EndTxID < other.EndTxID
}

// bestOf returns the Remote Edit Log that sorts highest under Less among a
// non-empty group sharing the same start txid.
func bestOf(group []RemoteEditLog) RemoteEditLog {
	best := group[0]
	for _, cand := range group[1:] {
		if best.Less(cand) {
			best = cand
		}
	}
	return best
}

// RemoteEditLogManifest is an ordered, gap-free, non-overlapping sequence
// of segments describing replayable coverage starting at some txid.
type RemoteEditLogManifest []RemoteEditLog

// BuildManifest merges the segment listings reported by multiple
// file-backed journals into a single longest-extending, gap-respecting
// manifest starting at fromTxID. See the Manifest Builder component for
// the rationale behind discarding everything accumulated before a gap.
func BuildManifest(fromTxID uint64, allLogs []RemoteEditLog) RemoteEditLogManifest {
	byStart := make(map[uint64][]RemoteEditLog, len(allLogs))
	for _, l := range allLogs {
		byStart[l.StartTxID] = append(byStart[l.StartTxID], l)
	}

	var manifest []RemoteEditLog
	cursor := fromTxID
	for {
		group, ok := byStart[cursor]
		if !ok || len(group) == 0 {
			next, found := nextStartAfter(byStart, cursor)
			if !found {
				break
			}
			// A gap means the log up to cursor is incomplete; nothing
			// accumulated so far can be trusted to resume past the gap.
			manifest = manifest[:0]
			cursor = next
			continue
		}
		best := bestOf(group)
		manifest = append(manifest, best)
		cursor = best.EndTxID + 1
	}
	return manifest
}

func nextStartAfter(byStart map[uint64][]RemoteEditLog, cursor uint64) (uint64, bool) {
	found := false
	var next uint64
	for start := range byStart {
		if start > cursor && (!found || start < next) {
			next = start
			found = true
		}
	}
	return next, found
}

// SortByStart returns the logs of a manifest sorted by start txid; useful
// for deterministic diagnostics output.
func SortByStart(logs []RemoteEditLog) []RemoteEditLog {
	sorted := make([]RemoteEditLog, len(logs))
	copy(sorted, logs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTxID < sorted[j].StartTxID })
	return sorted
}

// EncodeRemoteEditLog serializes a RemoteEditLog into the wire-compatible
// tuple (start_txid: u64, end_txid: u64, in_progress: bool), using the
// protobuf wire format directly (field numbers 1, 2, 3) with no codegen
// step, so that consumers speaking plain protobuf can decode it.
func EncodeRemoteEditLog(l RemoteEditLog) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, l.StartTxID)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, l.EndTxID)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	if l.InProgress {
		b = protowire.AppendVarint(b, 1)
	} else {
		b = protowire.AppendVarint(b, 0)
	}
	return b
}

// DecodeRemoteEditLog parses the wire format produced by
// EncodeRemoteEditLog. Unknown fields are skipped so the format can grow.
func DecodeRemoteEditLog(b []byte) (RemoteEditLog, error) {
	var l RemoteEditLog
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return l, fmt.Errorf("invalid remote edit log tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType {
			return l, fmt.Errorf("unexpected wire type %d for field %d", typ, num)
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return l, fmt.Errorf("invalid remote edit log varint: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			l.StartTxID = v
		case 2:
			l.EndTxID = v
		case 3:
			l.InProgress = v != 0
		}
	}
	return l, nil
}
