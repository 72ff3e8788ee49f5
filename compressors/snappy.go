package compressors

import (
	"bytes"
	"io"

	"github.com/INLOpen/journalset/core"
	"github.com/golang/snappy"
)

// SnappyCompressor implements core.Compressor using Google's Snappy codec,
// a good default for payloads where decode speed matters more than ratio.
type SnappyCompressor struct{}

var _ core.Compressor = (*SnappyCompressor)(nil)

func NewSnappyCompressor() *SnappyCompressor {
	return &SnappyCompressor{}
}

func (c *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (c *SnappyCompressor) Decompress(data []byte) (io.ReadCloser, error) {
	decoded, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	return &plainReadCloser{Reader: bytes.NewReader(decoded)}, nil
}

func (c *SnappyCompressor) Type() core.CompressionType {
	return core.CompressionSnappy
}
