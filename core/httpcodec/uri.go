// Package httpcodec implements the HTTP/1.1 wire codec: request and
// response parsing (server and client side), the URI grammar, and
// percent-encoding. Parsing is zero-allocation where practical, in the
// style of the engine's original request parser.
package httpcodec

import (
	"errors"
	"strconv"
	"strings"
)

// Scheme identifies the transport scheme carried by a URI.
type Scheme uint8

const (
	SchemeUndefined Scheme = iota
	SchemeTCP
	SchemeUDP
	SchemeHTTP
	SchemeHTTPS
	SchemeWebSocket
	SchemeWebSocketSecure
)

// defaultPorts maps a scheme to its well-known port.
var defaultPorts = map[Scheme]int{
	SchemeHTTP:            80,
	SchemeHTTPS:           443,
	SchemeWebSocket:       80,
	SchemeWebSocketSecure: 443,
}

// Secure reports whether the scheme implies a TLS transport.
func (s Scheme) Secure() bool {
	return s == SchemeHTTPS || s == SchemeWebSocketSecure
}

func (s Scheme) String() string {
	switch s {
	case SchemeTCP:
		return "tcp"
	case SchemeUDP:
		return "udp"
	case SchemeHTTP:
		return "http"
	case SchemeHTTPS:
		return "https"
	case SchemeWebSocket:
		return "ws"
	case SchemeWebSocketSecure:
		return "wss"
	default:
		return "undefined"
	}
}

func parseScheme(s string) Scheme {
	switch s {
	case "tcp":
		return SchemeTCP
	case "udp":
		return SchemeUDP
	case "http":
		return SchemeHTTP
	case "https":
		return SchemeHTTPS
	case "ws":
		return SchemeWebSocket
	case "wss":
		return SchemeWebSocketSecure
	default:
		return SchemeUndefined
	}
}

// URI is the parsed form of a request-target or an absolute client URI.
// Host carries bracketed IPv6 literals verbatim (e.g. "[::1]").
type URI struct {
	Scheme   Scheme
	Host     string
	Port     int
	Path     string
	Query    string
	Fragment string
}

var ErrInvalidURI = errors.New("httpcodec: invalid uri")

// ParseURI parses a URI of the form
// [scheme://[host[:port]]][/path][?query][#fragment].
// A request-target without a scheme (the common server-side case, e.g.
// "/foo/bar?x=1") is parsed with Scheme == SchemeUndefined and an empty
// Host.
func ParseURI(raw string) (*URI, error) {
	if raw == "" {
		return nil, ErrInvalidURI
	}

	u := &URI{}
	rest := raw

	if idx := strings.Index(rest, "://"); idx >= 0 {
		u.Scheme = parseScheme(rest[:idx])
		rest = rest[idx+3:]

		// authority ends at the first '/', '?' or '#'
		authEnd := len(rest)
		for i, c := range rest {
			if c == '/' || c == '?' || c == '#' {
				authEnd = i
				break
			}
		}
		authority := rest[:authEnd]
		rest = rest[authEnd:]

		host, port, err := splitHostPort(authority, u.Scheme)
		if err != nil {
			return nil, err
		}
		u.Host = host
		u.Port = port
	}

	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		u.Fragment = rest[idx+1:]
		rest = rest[:idx]
	}

	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		u.Query = rest[idx+1:]
		rest = rest[:idx]
	}

	if rest == "" {
		rest = "/"
	}
	u.Path = rest

	return u, nil
}

func splitHostPort(authority string, scheme Scheme) (string, int, error) {
	if authority == "" {
		return "", 0, nil
	}

	// bracketed IPv6: [::1]:8080 or [::1]
	if authority[0] == '[' {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return "", 0, ErrInvalidURI
		}
		host := authority[:end+1]
		remainder := authority[end+1:]
		if remainder == "" {
			return host, defaultPorts[scheme], nil
		}
		if remainder[0] != ':' {
			return "", 0, ErrInvalidURI
		}
		port, err := strconv.Atoi(remainder[1:])
		if err != nil {
			return "", 0, ErrInvalidURI
		}
		return host, port, nil
	}

	if idx := strings.LastIndexByte(authority, ':'); idx >= 0 {
		port, err := strconv.Atoi(authority[idx+1:])
		if err != nil {
			return "", 0, ErrInvalidURI
		}
		return authority[:idx], port, nil
	}

	return authority, defaultPorts[scheme], nil
}

// QueryParams splits a raw query string into key/value pairs, decoding
// percent-escapes and treating '+' as a literal space (query context only).
func QueryParams(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		out[urlDecode(k, true)] = urlDecode(v, true)
	}
	return out
}

const hexDigits = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	}
	return false
}

// PercentEncode percent-encodes every byte outside the unreserved set.
// It never emits a raw reserved character outside a %HH triplet.
func PercentEncode(s string) string {
	needsEscape := false
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) {
			needsEscape = true
			break
		}
	}
	if !needsEscape {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

// PercentDecode decodes %HH triplets. '+' is left as a literal plus;
// use urlDecode(s, true) for query-string decoding where '+' means space.
func PercentDecode(s string) string {
	return urlDecode(s, false)
}

func urlDecode(s string, plusAsSpace bool) string {
	hasPercent := strings.IndexByte(s, '%') >= 0
	hasPlus := plusAsSpace && strings.IndexByte(s, '+') >= 0
	if !hasPercent && !hasPlus {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(hexVal(s[i+1])<<4 | hexVal(s[i+2]))
			i += 2
		case plusAsSpace && s[i] == '+':
			b.WriteByte(' ')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
