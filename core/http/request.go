// Package http provides the handler-facing request/response facade
// (Context/FDContext) that sits on top of core/httpcodec's wire parser.
package http

import "github.com/riftcore/coreserver/core/httpcodec"

// Request is the handler-visible request type; the wire parsing itself
// lives in core/httpcodec so the codec can be reused by the client-side
// HttpRequestExecutor without depending on this package's Context types.
type Request = httpcodec.Request

// AcquireRequest and ReleaseRequest delegate to the codec's pool.
var (
	AcquireRequest = httpcodec.AcquireRequest
	ReleaseRequest = httpcodec.ReleaseRequest
)

// ParseRequest parses one full request out of data using the default
// header cap, delegating to core/httpcodec.
func ParseRequest(data []byte) (*Request, error) {
	req, _, err := httpcodec.ParseRequest(data, 0)
	return req, err
}
