package compressors

import (
	"bytes"
	"io"
	"sync"

	"github.com/INLOpen/journalset/core"
	"github.com/klauspost/compress/zstd"
)

// ZSTDCompressor implements core.Compressor using zstd, favoring
// compression ratio for segments shipped to remote journals over a slow
// link. Encoders and decoders are pooled; both are safe for concurrent
// reuse once checked back in.
type ZSTDCompressor struct {
	encoders sync.Pool
	decoders sync.Pool
}

var _ core.Compressor = (*ZSTDCompressor)(nil)

func NewZSTDCompressor() *ZSTDCompressor {
	return &ZSTDCompressor{
		encoders: sync.Pool{
			New: func() interface{} {
				enc, err := zstd.NewWriter(nil)
				if err != nil {
					panic(err)
				}
				return enc
			},
		},
		decoders: sync.Pool{
			New: func() interface{} {
				dec, err := zstd.NewReader(nil)
				if err != nil {
					panic(err)
				}
				return dec
			},
		},
	}
}

func (c *ZSTDCompressor) Compress(data []byte) ([]byte, error) {
	enc := c.encoders.Get().(*zstd.Encoder)
	defer c.encoders.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

func (c *ZSTDCompressor) Decompress(data []byte) (io.ReadCloser, error) {
	dec := c.decoders.Get().(*zstd.Decoder)
	decoded, err := dec.DecodeAll(data, nil)
	c.decoders.Put(dec)
	if err != nil {
		return nil, err
	}
	return &plainReadCloser{Reader: bytes.NewReader(decoded)}, nil
}

func (c *ZSTDCompressor) Type() core.CompressionType {
	return core.CompressionZSTD
}
