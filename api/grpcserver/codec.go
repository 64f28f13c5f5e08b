package grpcserver

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codec marshals the hand-written wire messages. It reports the name
// "proto" so the content-subtype stays application/grpc+proto and stock
// protobuf clients generated from ordered_map.proto interoperate.
type codec struct{}

var _ encoding.Codec = codec{}

func (codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("grpcserver codec: cannot marshal %T", v)
	}
	return m.appendWire(nil), nil
}

func (codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("grpcserver codec: cannot unmarshal into %T", v)
	}
	return m.parseWire(data)
}

func (codec) Name() string { return "proto" }
