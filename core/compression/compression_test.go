package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressSmallPayloadIsStored(t *testing.T) {
	in := []byte("hello world")
	out := Compress(in)
	if Flag(out[0]) != FlagStored {
		t.Fatalf("flag = %d, want FlagStored", out[0])
	}
	if !bytes.Equal(out[1:], in) {
		t.Fatal("stored payload should be verbatim after the flag byte")
	}
}

func TestCompressLargePayloadDeflates(t *testing.T) {
	in := []byte(strings.Repeat("abcdefgh", 1024))
	out := Compress(in)
	if Flag(out[0]) != FlagDeflate {
		t.Fatalf("flag = %d, want FlagDeflate", out[0])
	}
	if len(out) >= len(in) {
		t.Fatalf("deflated frame (%d bytes) should be smaller than input (%d bytes)", len(out), len(in))
	}
}

func TestRoundTripStored(t *testing.T) {
	in := []byte("short")
	out, err := Decompress(Compress(in))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("round trip = %q, want %q", out, in)
	}
}

func TestRoundTripDeflated(t *testing.T) {
	in := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 200))
	out, err := Decompress(Compress(in))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatal("round trip through deflate should reproduce the exact input")
	}
}

func TestDecompressEmptyInputFails(t *testing.T) {
	if _, err := Decompress(nil); err != ErrShortInput {
		t.Fatalf("err = %v, want ErrShortInput", err)
	}
}

func TestDecompressUnknownFlagFails(t *testing.T) {
	if _, err := Decompress([]byte{99, 1, 2, 3}); err != ErrUnknownFlag {
		t.Fatalf("err = %v, want ErrUnknownFlag", err)
	}
}
