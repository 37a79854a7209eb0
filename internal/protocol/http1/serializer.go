package http1

import (
	"io"
	"strconv"

	"github.com/indigo-web/brook/config"
	"github.com/indigo-web/brook/http"
	"github.com/indigo-web/brook/http/headers"
	"github.com/indigo-web/brook/http/method"
	"github.com/indigo-web/brook/http/status"
	"github.com/indigo-web/brook/internal/strutil"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

var (
	protocol   = []byte("HTTP/1.1 ")
	crlf       = []byte("\r\n")
	colonSpace = []byte(": ")
)

type serializer struct {
	cfg     *config.Config
	request *http.Request
	writer  io.Writer
	gzip    *gzip.Writer
}

func newSerializer(cfg *config.Config, request *http.Request, writer io.Writer) *serializer {
	return &serializer{
		cfg:     cfg,
		request: request,
		writer:  writer,
	}
}

// Write renders the response and flushes it into the writer. Responses to HEAD requests
// and responses with codes forbidding content go without a body. If the body length
// contradicts the Content-Length set by the caller, the real length is written instead
// and the connection is marked to close.
func (s *serializer) Write(resp *http.Response) (err error) {
	defer func() {
		if resp.File != nil {
			if cerr := resp.File.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "close file")
			}

			resp.File = nil
		}
	}()

	buff := bytebufferpool.Get()
	defer bytebufferpool.Put(buff)

	withBody := mayHaveBody(resp.Code)
	body, length := resp.Body, int64(len(resp.Body))
	if resp.File != nil {
		body, length = nil, resp.FileSize
	}

	if withBody && s.compressible(resp) {
		compressed := bytebufferpool.Get()
		defer bytebufferpool.Put(compressed)

		if err = s.compress(compressed, body); err != nil {
			return err
		}

		body, length = compressed.B, int64(compressed.Len())
		resp.Headers.Set(headers.ContentEncoding, "gzip")
	}

	if withBody {
		s.contentLength(resp, length)
	}

	if s.clientCloses() {
		resp.Close = true
	}

	if resp.Close {
		// overrides whatever the handler announced, as the connection is closed anyway
		resp.Headers.Set(headers.Connection, "close")
	}

	buff.B = append(buff.B, protocol...)
	buff.B = append(buff.B, status.StringCode(resp.Code)...)
	buff.B = append(buff.B, ' ')
	buff.B = append(buff.B, status.Text(resp.Code)...)
	buff.B = append(buff.B, crlf...)

	for name, value := range resp.Headers.Iter() {
		buff.B = append(buff.B, name.Bytes()...)
		buff.B = append(buff.B, colonSpace...)
		buff.B = append(buff.B, value...)
		buff.B = append(buff.B, crlf...)
	}

	buff.B = append(buff.B, crlf...)

	withBody = withBody && s.request.Method != method.HEAD
	if withBody && resp.File == nil {
		buff.B = append(buff.B, body...)
	}

	if _, err = s.writer.Write(buff.B); err != nil {
		return errors.Wrap(err, "write response")
	}

	if withBody && resp.File != nil {
		if _, err = io.CopyN(s.writer, resp.File, length); err != nil {
			// the head is already sent, so the only way out is dropping the connection
			resp.Close = true
			return errors.Wrap(err, "write file")
		}
	}

	return nil
}

// contentLength ensures the Content-Length header matches the actual length.
func (s *serializer) contentLength(resp *http.Response, length int64) {
	value, found := resp.Headers.Get(headers.ContentLength)
	if !found {
		resp.Headers.SetInt(headers.ContentLength, length)
		return
	}

	if s.request.Method == method.HEAD && resp.File == nil && len(resp.Body) == 0 {
		// a HEAD response may announce the length of a body it never sends
		return
	}

	if explicit, err := strconv.ParseInt(value, 10, 64); err != nil || explicit != length {
		resp.Headers.SetInt(headers.ContentLength, length)
		resp.Close = true
	}
}

func (s *serializer) clientCloses() bool {
	if value, found := s.request.Header(headers.Connection); found {
		return strutil.HasToken(value, "close")
	}

	return false
}

func (s *serializer) compressible(resp *http.Response) bool {
	if !s.cfg.NET.Compression || resp.File != nil || len(resp.Body) < s.cfg.NET.SmallBody {
		return false
	}

	if resp.Headers.Has(headers.ContentEncoding) || resp.Headers.Has(headers.ContentLength) {
		return false
	}

	accept, found := s.request.Header(headers.AcceptEncoding)
	return found && strutil.HasToken(accept, "gzip")
}

func (s *serializer) compress(dst io.Writer, body []byte) error {
	if s.gzip == nil {
		s.gzip = gzip.NewWriter(dst)
	} else {
		s.gzip.Reset(dst)
	}

	if _, err := s.gzip.Write(body); err != nil {
		return errors.Wrap(err, "gzip")
	}

	return errors.Wrap(s.gzip.Close(), "gzip")
}

// mayHaveBody reports whether the response code allows content, see RFC 9110 6.4.1.
func mayHaveBody(code status.Code) bool {
	return code >= 200 && code != status.NoContent && code != status.NotModified
}
