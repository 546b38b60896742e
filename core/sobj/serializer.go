package sobj

import "errors"

// ErrUnsupportedSerializer mirrors core/rpc/codec's ErrUnsupportedCodec
// naming for an unknown registry key.
var ErrUnsupportedSerializer = errors.New("sobj: unsupported serializer")

// Serializer converts a Value tree to and from a wire representation,
// exactly the two-method shape of core/rpc/codec.Codec.
type Serializer interface {
	Marshal(v *Value) ([]byte, error)
	Unmarshal(data []byte) (*Value, error)
	Name() string
}

var registry = map[string]Serializer{
	"json":     &jsonSerializer{},
	"url":      &urlSerializer{},
	"protobuf": &protobufSerializer{},
}

// Get returns the registered Serializer for name, mirroring
// core/rpc/codec.GetCodec's lookup-by-key contract.
func Get(name string) (Serializer, error) {
	s, ok := registry[name]
	if !ok {
		return nil, ErrUnsupportedSerializer
	}
	return s, nil
}

// Register adds or replaces the Serializer for name. Intended for
// static init only, same discipline as core/session's config managers.
func Register(name string, s Serializer) {
	registry[name] = s
}
