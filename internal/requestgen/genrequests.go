// Package requestgen renders raw requests for tests and benchmarks.
package requestgen

import (
	"strconv"
	"strings"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/brook/http/headers"
	"github.com/indigo-web/brook/http/method"
)

// Request is rendered exactly as described: no headers are implied, except
// Content-Length for a non-empty body.
type Request struct {
	Method  method.Method
	Path    string
	Headers *headers.Fields
	Body    string
}

func (r Request) Bytes() []byte {
	buff := make([]byte, 0, 64+len(r.Body))
	buff = append(buff, r.Method.String()...)
	buff = append(buff, ' ')
	buff = append(buff, r.Path...)
	buff = append(buff, " HTTP/1.1\r\n"...)

	if r.Headers != nil {
		for name, value := range r.Headers.Iter() {
			buff = append(append(append(append(buff, name.Bytes()...), ": "...), value...), "\r\n"...)
		}
	}

	if len(r.Body) > 0 {
		buff = append(buff, "Content-Length: "+strconv.Itoa(len(r.Body))+"\r\n"...)
	}

	return append(append(buff, "\r\n"...), r.Body...)
}

// Headers generates n headers. All but the last have random non-standard names, so every
// call produces names the registry has never seen. The last one is Host.
func Headers(n int) *headers.Fields {
	hdrs := headers.NewFields(n)

	for range n - 1 {
		hdrs.Add(headers.Create("X-"+uniuri.NewLen(16)), strings.Repeat("b", 100))
	}

	return hdrs.Add(headers.Host, "localhost")
}

// Generate renders a GET request to the path, which is given without the leading slash.
func Generate(path string, hdrs *headers.Fields) []byte {
	return Request{
		Method:  method.GET,
		Path:    "/" + path,
		Headers: hdrs,
	}.Bytes()
}

// Pipeline concatenates the requests into a single stream.
func Pipeline(requests ...Request) (stream []byte) {
	for _, r := range requests {
		stream = append(stream, r.Bytes()...)
	}

	return stream
}
