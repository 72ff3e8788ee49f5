package remote

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// The request/response payloads below are hand-framed with protowire,
// the same approach core.EncodeRemoteEditLog/DecodeRemoteEditLog use for
// the manifest wire format, so that a plain protobuf-speaking service can
// decode them without this package's generated code.

func encodeTxIDRequest(txID uint64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, txID)
	return b
}

func decodeTxIDRequest(b []byte) (uint64, error) {
	return decodeSingleVarint(b, 1)
}

func encodeRangeRequest(firstTxID, lastTxID uint64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, firstTxID)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, lastTxID)
	return b
}

func decodeRangeRequest(b []byte) (firstTxID, lastTxID uint64, err error) {
	fields, err := decodeVarintFields(b)
	if err != nil {
		return 0, 0, err
	}
	return fields[1], fields[2], nil
}

// encodeWriteRequest frames a single record write: the open segment's
// start txid, the compression codec the payload was encoded with, and the
// (possibly compressed) payload bytes.
func encodeWriteRequest(txID uint64, codec uint64, payload []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, txID)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, codec)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	return b
}

func decodeWriteRequest(b []byte) (txID uint64, codec uint64, payload []byte, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, 0, nil, fmt.Errorf("remote: invalid write request tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, 0, nil, fmt.Errorf("remote: invalid txid varint: %w", protowire.ParseError(n))
			}
			txID = v
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, 0, nil, fmt.Errorf("remote: invalid codec varint: %w", protowire.ParseError(n))
			}
			codec = v
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, 0, nil, fmt.Errorf("remote: invalid payload bytes: %w", protowire.ParseError(n))
			}
			payload = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, 0, nil, fmt.Errorf("remote: invalid write request field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return txID, codec, payload, nil
}

func encodeCountResponse(count int64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(count))
	return b
}

func decodeCountResponse(b []byte) (int64, error) {
	v, err := decodeSingleVarint(b, 1)
	return int64(v), err
}

// encodeSyncStatusResponse packs the three read-only values an Aggregate
// Output Stream polls per active entry.
func encodeSyncStatusResponse(shouldForceSync bool, numSync, totalSyncTimeMillis int64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	if shouldForceSync {
		b = protowire.AppendVarint(b, 1)
	} else {
		b = protowire.AppendVarint(b, 0)
	}
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(numSync))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(totalSyncTimeMillis))
	return b
}

func decodeSyncStatusResponse(b []byte) (shouldForceSync bool, numSync, totalSyncTimeMillis int64, err error) {
	fields, err := decodeVarintFields(b)
	if err != nil {
		return false, 0, 0, err
	}
	return fields[1] != 0, int64(fields[2]), int64(fields[3]), nil
}

func encodeEmptyRequest() []byte {
	return nil
}

// decodeVarintFields is a small helper for messages consisting only of
// consecutively numbered varint fields.
func decodeVarintFields(b []byte) (map[uint64]uint64, error) {
	fields := make(map[uint64]uint64)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("remote: invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("remote: invalid field value: %w", protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("remote: invalid varint: %w", protowire.ParseError(n))
		}
		fields[uint64(num)] = v
		b = b[n:]
	}
	return fields, nil
}

func decodeSingleVarint(b []byte, field uint64) (uint64, error) {
	fields, err := decodeVarintFields(b)
	if err != nil {
		return 0, err
	}
	return fields[field], nil
}
