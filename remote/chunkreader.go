package remote

import (
	"io"

	"google.golang.org/grpc"
)

// chunkReader adapts a server-streaming gRPC stream of raw frames into an
// io.ReadCloser, the contract core.UnderlyingJournal.GetInputStream needs
// to expose.
type chunkReader struct {
	stream  grpc.ClientStream
	pending []byte
	done    bool
}

func newChunkReader(stream grpc.ClientStream) *chunkReader {
	return &chunkReader{stream: stream}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if r.done {
			return 0, io.EOF
		}
		var frame rawFrame
		if err := r.stream.RecvMsg(&frame); err != nil {
			r.done = true
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, err
		}
		r.pending = frame
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *chunkReader) Close() error {
	return nil
}
