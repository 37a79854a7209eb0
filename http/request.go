package http

import (
	"context"
	"net"

	"github.com/indigo-web/brook/config"
	"github.com/indigo-web/brook/http/headers"
	"github.com/indigo-web/brook/http/method"
	"github.com/indigo-web/brook/kv"
)

// Request represents a decoded HTTP/1.1 request. All the strings it holds are owned by the
// request, except for Body, which points into the connection buffer.
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// Path is the raw request target without the query, exactly as it was sent.
	Path string
	// Segments are percent-decoded path segments split by slashes. Leading slash doesn't
	// produce an empty segment, the trailing one does. The root path has no segments.
	Segments []string
	// Query holds decoded query parameters. Repeated keys keep the last value.
	Query *kv.Storage
	// Headers maps header names into their last received value.
	Headers *headers.Fields
	// Body is exactly Content-Length bytes. It's valid only until the handler returns.
	Body []byte
	// Remote holds the remote address.
	Remote net.Addr
	// Ctx is cancelled as soon as the server is shutting down.
	Ctx context.Context
}

func NewRequest(cfg *config.Config, remote net.Addr) *Request {
	return &Request{
		Segments: make([]string, 0, cfg.URI.SegmentsPrealloc),
		Query:    kv.New(cfg.URI.ParamsPrealloc),
		Headers:  headers.NewFields(cfg.Headers.Prealloc),
		Remote:   remote,
		Ctx:      context.Background(),
	}
}

// Header returns the value of the header.
func (r *Request) Header(name headers.Name) (value string, found bool) {
	return r.Headers.Get(name)
}

// Param returns the query parameter value.
func (r *Request) Param(name string) (value string, found bool) {
	return r.Query.Get(name)
}

// Reset clears every request field, so the instance can be used for the next request
// on the same connection.
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Path = ""
	clear(r.Segments)
	r.Segments = r.Segments[:0]
	r.Query.Clear()
	r.Headers.Clear()
	r.Body = nil
}
