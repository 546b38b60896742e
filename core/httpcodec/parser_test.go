package httpcodec

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseRequestContentLength(t *testing.T) {
	raw := "POST /echo HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello"
	req, consumed, err := ParseRequest([]byte(raw), 0)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if consumed != len(raw) {
		t.Fatalf("consumed = %d, want %d", consumed, len(raw))
	}
	if string(req.Body) != "hello" {
		t.Fatalf("Body = %q, want %q", req.Body, "hello")
	}
	ReleaseRequest(req)
}

func TestParseRequestChunked(t *testing.T) {
	raw := "POST /echo HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	req, _, err := ParseRequest([]byte(raw), 0)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if string(req.Body) != "hello world" {
		t.Fatalf("Body = %q, want %q", req.Body, "hello world")
	}
	ReleaseRequest(req)
}

func TestParseRequestNeedsMoreOnPartialBody(t *testing.T) {
	raw := "POST /echo HTTP/1.1\r\nContent-Length: 5\r\n\r\nhel"
	_, _, err := ParseRequest([]byte(raw), 0)
	if err != ErrNeedMore {
		t.Fatalf("err = %v, want ErrNeedMore", err)
	}
}

func TestParseRequestHeaderTooLarge(t *testing.T) {
	big := "GET / HTTP/1.1\r\nX-Pad: " + strings.Repeat("a", 9000) + "\r\n\r\n"
	_, _, err := ParseRequest([]byte(big), 0)
	if err != ErrHeaderTooLarge {
		t.Fatalf("err = %v, want ErrHeaderTooLarge", err)
	}
}

func TestParseRequestHeaderFolding(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Long: part1\r\n part2\r\n\r\n"
	req, _, err := ParseRequest([]byte(raw), 0)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if got := req.ExtraHeaders["X-Long"]; got != "part1 part2" {
		t.Fatalf("X-Long = %q", got)
	}
	ReleaseRequest(req)
}

func TestParseRequestRejectsInvalidHeaderName(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Bad Name: v\r\n\r\n"
	_, _, err := ParseRequest([]byte(raw), 0)
	if err != ErrInvalidRequest {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestParseRequestRejectsInvalidHeaderValue(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Bad: v\x00alue\r\n\r\n"
	_, _, err := ParseRequest([]byte(raw), 0)
	if err != ErrInvalidRequest {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestChunkedRoundTrip(t *testing.T) {
	body := []byte("the quick brown fox jumps over the lazy dog")
	encoded := EncodeChunked(body)
	decoded, consumed, err := DecodeChunked(encoded)
	if err != nil {
		t.Fatalf("DecodeChunked: %v", err)
	}
	if consumed != len(encoded) {
		t.Fatalf("consumed = %d, want %d", consumed, len(encoded))
	}
	if !bytes.Equal(decoded, body) {
		t.Fatalf("decoded = %q, want %q", decoded, body)
	}
}

func TestPercentCodecRoundTrip(t *testing.T) {
	cases := []string{"hello", "a b+c", "100% done!", "/foo/bar?baz", "日本語"}
	for _, s := range cases {
		enc := PercentEncode(s)
		dec := PercentDecode(enc)
		if dec != s {
			t.Fatalf("round trip %q -> %q -> %q", s, enc, dec)
		}
		for i := 0; i < len(enc); i++ {
			c := enc[i]
			if c == '%' {
				continue
			}
			if !isUnreserved(c) {
				t.Fatalf("PercentEncode(%q) emitted reserved byte %q outside %%HH", s, enc)
			}
		}
	}
}

func TestParseURIWithBracketedIPv6(t *testing.T) {
	u, err := ParseURI("http://[::1]:9090/p?x=1#frag")
	if err != nil {
		t.Fatalf("ParseURI: %v", err)
	}
	if u.Host != "[::1]" || u.Port != 9090 || u.Path != "/p" || u.Query != "x=1" || u.Fragment != "frag" {
		t.Fatalf("parsed = %+v", u)
	}
}

func TestParseResponseUntilClose(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nhello"
	resp, _, err := ParseResponse([]byte(raw), 0)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if !resp.UntilClose {
		t.Fatalf("expected UntilClose body")
	}
	FinishUntilClose(resp, []byte(" world"))
	if string(resp.Body) != "hello world" {
		t.Fatalf("Body = %q", resp.Body)
	}
	ReleaseResponse(resp)
}
