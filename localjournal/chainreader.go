package localjournal

import (
	"encoding/binary"
	"io"
)

// chainReader concatenates the raw record payloads of a sequence of segment
// files into a single byte stream, each record re-framed with its own
// length prefix so a consumer can still split the stream back into records
// without needing to know the segment boundaries.
type chainReader struct {
	paths    []string
	idx      int
	current  *segmentReader
	pending  []byte
	lenBuf   [4]byte
}

func newChainReader(paths []string) (*chainReader, error) {
	cr := &chainReader{paths: paths}
	if err := cr.openNext(); err != nil {
		return nil, err
	}
	return cr, nil
}

func (cr *chainReader) openNext() error {
	for cr.idx < len(cr.paths) {
		path := cr.paths[cr.idx]
		cr.idx++
		reader, err := openSegmentForRead(path)
		if err != nil {
			continue
		}
		cr.current = reader
		return nil
	}
	cr.current = nil
	return nil
}

// Read fills p with framed records: a 4-byte little-endian length followed
// by that many bytes of record data, repeated across segments.
func (cr *chainReader) Read(p []byte) (int, error) {
	if len(cr.pending) == 0 {
		if err := cr.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, cr.pending)
	cr.pending = cr.pending[n:]
	return n, nil
}

func (cr *chainReader) fill() error {
	for {
		if cr.current == nil {
			return io.EOF
		}
		record, err := cr.current.readRecord()
		if err == nil {
			binary.LittleEndian.PutUint32(cr.lenBuf[:], uint32(len(record)))
			cr.pending = append(append([]byte{}, cr.lenBuf[:]...), record...)
			return nil
		}
		cr.current.close()
		if openErr := cr.openNext(); openErr != nil {
			return openErr
		}
		if cr.current == nil {
			return io.EOF
		}
	}
}

func (cr *chainReader) Close() error {
	if cr.current != nil {
		return cr.current.close()
	}
	return nil
}
