package chatpb

import "fmt"

// CodecName is the gRPC content subtype, so clients using
// application/grpc+proto interoperate.
const CodecName = "proto"

// Codec marshals the messages of this package for grpc-go. Install it with
// grpc.ForceServerCodec on servers and grpc.ForceCodec on clients.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("chatpb: cannot marshal %T", v)
	}
	return m.Marshal()
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("chatpb: cannot unmarshal into %T", v)
	}
	return m.Unmarshal(data)
}

func (Codec) Name() string { return CodecName }
