// Package core holds the small set of HTTP header name constants
// shared across core/transport and core/httpclient, so neither repeats
// the other's string literals.
package core

const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderUserAgent     = "User-Agent"
	HeaderAccept        = "Accept"
	HeaderHost          = "Host"
	HeaderConnection    = "Connection"
)
