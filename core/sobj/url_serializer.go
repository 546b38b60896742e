package sobj

import (
	"net/url"
	"strconv"
	"strings"
)

// urlSerializer implements the bracketed form-encoding scheme from
// original_source's UrlSerializer: pairs are "&"-joined key=value tokens,
// nested Object/Array fields flatten into a bracketed keyline such as
// parent[child][0]=value. Percent-encoding of keys and string values uses
// net/url's QueryEscape/QueryUnescape, the same escaping HttpUri::urlencode
// and HttpUri::urldecode perform.
type urlSerializer struct{}

func (s *urlSerializer) Name() string { return "url" }

func (s *urlSerializer) Marshal(v *Value) ([]byte, error) {
	var b strings.Builder
	encodeValue(&b, "", v)
	return []byte(b.String()), nil
}

func (s *urlSerializer) Unmarshal(data []byte) (*Value, error) {
	obj := Object()
	for _, pair := range strings.Split(string(data), "&") {
		if pair == "" {
			continue
		}
		key := pair
		val := ""
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
			val = pair[i+1:]
		}
		if err := emplace(obj, key, val); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// emplace walks one bracketed keyline (e.g. "parent[child][0]") into obj,
// creating intermediate Object nodes as needed, then assigns the decoded
// leaf value, mirroring UrlSerializer::emplace's recursive consumption of
// the keyline one bracket segment at a time.
func emplace(parent *Value, keyline string, val string) error {
	var key, rest string
	if strings.HasPrefix(keyline, "[") {
		end := strings.IndexByte(keyline, ']')
		if end < 0 {
			return errMissingCloseBrace
		}
		key = keyline[1:end]
		rest = keyline[end+1:]
	} else {
		end := strings.IndexByte(keyline, '[')
		if end < 0 {
			key = keyline
			rest = ""
		} else {
			key = keyline[:end]
			rest = keyline[end:]
		}
	}

	oKey, err := url.QueryUnescape(key)
	if err != nil {
		return err
	}

	if rest != "" {
		child := parent.Field(oKey)
		if child == nil || child.Kind != KindObject {
			child = Object()
			parent.Set(oKey, child)
		}
		return emplace(child, rest, val)
	}

	oVal, err := url.QueryUnescape(val)
	if err != nil {
		return err
	}
	parent.Set(oKey, decodeURLValue(oVal))
	return nil
}

var errMissingCloseBrace = &urlSerializerError{"sobj: url key missing close brace"}

type urlSerializerError struct{ msg string }

func (e *urlSerializerError) Error() string { return e.msg }

// decodeURLValue guesses Int/Float/String from an already-unescaped
// token, following decodeValue's integer-then-float-then-string cascade:
// an all-digit (optionally signed) run with nothing left over is an
// integer, a run continuing into a single '.'/'e'/'E' exponent with
// nothing left over is a float, anything else stays a string.
func decodeURLValue(s string) *Value {
	if s == "" {
		return String("")
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return String(s)
}

func encodeValue(b *strings.Builder, keyline string, v *Value) {
	if v == nil {
		encodeNull(b, keyline)
		return
	}
	switch v.Kind {
	case KindString:
		s, _ := v.AsString()
		b.WriteString(keyline)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(s))
	case KindInt:
		i, _ := v.AsInt()
		b.WriteString(keyline)
		b.WriteByte('=')
		b.WriteString(strconv.FormatInt(i, 10))
	case KindFloat:
		f, _ := v.AsFloat()
		b.WriteString(keyline)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(f, 'g', 15, 64))
	case KindBool:
		bv, _ := v.AsBool()
		b.WriteString(keyline)
		b.WriteByte('=')
		if bv {
			b.WriteString("*true*")
		} else {
			b.WriteString("*false*")
		}
	case KindNull:
		encodeNull(b, keyline)
	case KindBinary:
		b.WriteString("*binary*")
	case KindObject:
		encodeObject(b, keyline, v)
	case KindArray:
		encodeArray(b, keyline, v)
	}
}

func encodeNull(b *strings.Builder, keyline string) {
	b.WriteString(keyline)
	b.WriteString("=*null*")
}

func encodeObject(b *strings.Builder, keyline string, v *Value) {
	if v.Len() == 0 {
		return
	}
	open, shut := "", ""
	if keyline != "" {
		open, shut = "[", "]"
	}
	first := true
	for _, name := range v.Fields() {
		if !first {
			b.WriteByte('&')
		}
		first = false
		encodeValue(b, keyline+open+name+shut, v.Field(name))
	}
}

func encodeArray(b *strings.Builder, keyline string, v *Value) {
	if v.Len() == 0 {
		return
	}
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.WriteByte('&')
		}
		encodeValue(b, keyline+"["+strconv.Itoa(i)+"]", v.Index(i))
	}
}
