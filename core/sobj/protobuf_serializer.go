package sobj

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// protobufSerializer bridges a Value tree onto google.golang.org/protobuf's
// structpb.Value, the same dependency core/rpc/codec.ProtobufCodec already
// pulls in for proto.Message wire encoding, extended here to also carry the
// dynamic SObj facade rather than only fixed generated messages.
type protobufSerializer struct{}

func (s *protobufSerializer) Name() string { return "protobuf" }

func (s *protobufSerializer) Marshal(v *Value) ([]byte, error) {
	pv, err := toStruct(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pv)
}

func (s *protobufSerializer) Unmarshal(data []byte) (*Value, error) {
	pv := &structpb.Value{}
	if err := proto.Unmarshal(data, pv); err != nil {
		return nil, err
	}
	return fromStruct(pv), nil
}

func toStruct(v *Value) (*structpb.Value, error) {
	if v == nil {
		return structpb.NewNullValue(), nil
	}
	switch v.Kind {
	case KindNull:
		return structpb.NewNullValue(), nil
	case KindBool:
		b, _ := v.AsBool()
		return structpb.NewBoolValue(b), nil
	case KindInt:
		i, _ := v.AsInt()
		return structpb.NewNumberValue(float64(i)), nil
	case KindFloat:
		f, _ := v.AsFloat()
		return structpb.NewNumberValue(f), nil
	case KindString:
		str, _ := v.AsString()
		return structpb.NewStringValue(str), nil
	case KindBinary:
		// structpb has no byte-string kind; carry binary data as a
		// string field. Unmarshal turns it back into a KindString
		// Value, not KindBinary.
		bin, _ := v.AsBinary()
		return structpb.NewStringValue(string(bin)), nil
	case KindArray:
		items := make([]*structpb.Value, v.Len())
		for i := 0; i < v.Len(); i++ {
			pv, err := toStruct(v.Index(i))
			if err != nil {
				return nil, err
			}
			items[i] = pv
		}
		return structpb.NewListValue(&structpb.ListValue{Values: items}), nil
	case KindObject:
		fields := make(map[string]*structpb.Value, v.Len())
		for _, name := range v.Fields() {
			pv, err := toStruct(v.Field(name))
			if err != nil {
				return nil, err
			}
			fields[name] = pv
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
	default:
		return nil, fmt.Errorf("sobj: unknown kind %d", v.Kind)
	}
}

func fromStruct(pv *structpb.Value) *Value {
	switch k := pv.GetKind().(type) {
	case *structpb.Value_NullValue, nil:
		return Null()
	case *structpb.Value_BoolValue:
		return Bool(k.BoolValue)
	case *structpb.Value_NumberValue:
		return Float(k.NumberValue)
	case *structpb.Value_StringValue:
		return String(k.StringValue)
	case *structpb.Value_ListValue:
		items := make([]*Value, len(k.ListValue.GetValues()))
		for i, item := range k.ListValue.GetValues() {
			items[i] = fromStruct(item)
		}
		return Array(items...)
	case *structpb.Value_StructValue:
		obj := Object()
		for name, field := range k.StructValue.GetFields() {
			obj.Set(name, fromStruct(field))
		}
		return obj
	default:
		return Null()
	}
}
