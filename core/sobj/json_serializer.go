package sobj

import "encoding/json"

// jsonSerializer round-trips a Value tree through encoding/json by way
// of Go's native any representation (map[string]any, []any, etc.),
// matching the teacher's JSONCodec's direct use of encoding/json with
// no intermediate schema.
type jsonSerializer struct{}

func (s *jsonSerializer) Name() string { return "json" }

func (s *jsonSerializer) Marshal(v *Value) ([]byte, error) {
	return json.Marshal(toAny(v))
}

func (s *jsonSerializer) Unmarshal(data []byte) (*Value, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return fromAny(v), nil
}

func toAny(v *Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		b, _ := v.AsBool()
		return b
	case KindInt:
		i, _ := v.AsInt()
		return i
	case KindFloat:
		f, _ := v.AsFloat()
		return f
	case KindString:
		s, _ := v.AsString()
		return s
	case KindBinary:
		b, _ := v.AsBinary()
		return b
	case KindArray:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = toAny(v.Index(i))
		}
		return out
	case KindObject:
		out := make(map[string]any, v.Len())
		for _, name := range v.Fields() {
			out[name] = toAny(v.Field(name))
		}
		return out
	default:
		return nil
	}
}

func fromAny(v any) *Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Float(t)
	case string:
		return String(t)
	case []byte:
		return Binary(t)
	case []any:
		items := make([]*Value, len(t))
		for i, item := range t {
			items[i] = fromAny(item)
		}
		return Array(items...)
	case map[string]any:
		obj := Object()
		for k, val := range t {
			obj.Set(k, fromAny(val))
		}
		return obj
	default:
		return Null()
	}
}
