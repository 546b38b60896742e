package sobj

import "testing"

func TestGetReturnsRegisteredSerializers(t *testing.T) {
	for _, name := range []string{"json", "url", "protobuf"} {
		if _, err := Get(name); err != nil {
			t.Fatalf("Get(%q) failed: %v", name, err)
		}
	}
}

func TestGetUnknownNameFails(t *testing.T) {
	if _, err := Get("yaml"); err != ErrUnsupportedSerializer {
		t.Fatalf("Get(yaml) err = %v, want ErrUnsupportedSerializer", err)
	}
}

func TestJSONRoundTripObject(t *testing.T) {
	in := Object()
	in.Set("name", String("ace"))
	in.Set("level", Int(7))
	in.Set("crit", Bool(true))

	s, _ := Get("json")
	data, err := s.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := s.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got, ok := out.Field("name").AsString(); !ok || got != "ace" {
		t.Fatalf("name = %q, %v", got, ok)
	}
	if got, ok := out.Field("crit").AsBool(); !ok || !got {
		t.Fatalf("crit = %v, %v", got, ok)
	}
}

func TestURLRoundTripNestedObject(t *testing.T) {
	in := Object()
	in.Set("name", String("a b&c"))
	child := Object()
	child.Set("hp", Int(42))
	in.Set("stats", child)

	s, _ := Get("url")
	data, err := s.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := s.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got, ok := out.Field("name").AsString(); !ok || got != "a b&c" {
		t.Fatalf("name = %q, %v", got, ok)
	}
	stats := out.Field("stats")
	if stats == nil || stats.Kind != KindObject {
		t.Fatal("stats should decode back to an object")
	}
	if got, ok := stats.Field("hp").AsInt(); !ok || got != 42 {
		t.Fatalf("stats.hp = %d, %v", got, ok)
	}
}

func TestURLRoundTripArray(t *testing.T) {
	in := Object()
	in.Set("tags", Array(String("a"), String("b"), String("c")))

	s, _ := Get("url")
	data, err := s.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := s.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	tags := out.Field("tags")
	if tags == nil || tags.Kind != KindObject {
		t.Fatal("decoded array re-homes as an object keyed by index, per the bracketed scheme")
	}
	if got, ok := tags.Field("0").AsString(); !ok || got != "a" {
		t.Fatalf("tags[0] = %q, %v", got, ok)
	}
}

func TestURLDecodeValueGuessesNumericKinds(t *testing.T) {
	if v := decodeURLValue("42"); v.Kind != KindInt {
		t.Fatalf("expected KindInt, got %v", v.Kind)
	}
	if v := decodeURLValue("3.5"); v.Kind != KindFloat {
		t.Fatalf("expected KindFloat, got %v", v.Kind)
	}
	if v := decodeURLValue("abc"); v.Kind != KindString {
		t.Fatalf("expected KindString, got %v", v.Kind)
	}
}

func TestProtobufRoundTripObject(t *testing.T) {
	in := Object()
	in.Set("name", String("ace"))
	in.Set("level", Float(7))
	in.Set("tags", Array(String("x"), String("y")))

	s, _ := Get("protobuf")
	data, err := s.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := s.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got, ok := out.Field("name").AsString(); !ok || got != "ace" {
		t.Fatalf("name = %q, %v", got, ok)
	}
	if got, ok := out.Field("level").AsFloat(); !ok || got != 7 {
		t.Fatalf("level = %v, %v", got, ok)
	}
	tags := out.Field("tags")
	if tags == nil || tags.Kind != KindArray || tags.Len() != 2 {
		t.Fatal("tags should round-trip as a 2-element array")
	}
}
