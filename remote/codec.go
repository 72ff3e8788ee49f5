package remote

import "fmt"

// rawFrame is the only message type ever sent or received on the wire:
// a plain byte slice. Individual RPCs pack their own fields into it using
// the protowire helpers in wire.go, so no generated .proto stubs are
// needed to speak this protocol.
type rawFrame []byte

// rawCodec implements google.golang.org/grpc/encoding.Codec by treating
// every message as an opaque byte slice already in wire format. This lets
// the client and server exchange hand-framed protowire tuples through
// grpc.ClientConn.Invoke without a code-generation step.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case rawFrame:
		return m, nil
	case *rawFrame:
		return *m, nil
	default:
		return nil, errUnsupportedMessage(v)
	}
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *rawFrame:
		*m = append((*m)[:0], data...)
		return nil
	default:
		return errUnsupportedMessage(v)
	}
}

func (rawCodec) Name() string {
	return "journalset-raw"
}

func errUnsupportedMessage(v any) error {
	return fmt.Errorf("remote: rawCodec cannot handle message of type %T", v)
}
