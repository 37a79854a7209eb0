package http1

import (
	"bytes"
	"strings"

	"github.com/indigo-web/brook/config"
	"github.com/indigo-web/brook/http"
	"github.com/indigo-web/brook/http/headers"
	"github.com/indigo-web/brook/http/method"
	"github.com/indigo-web/brook/http/status"
	"github.com/indigo-web/brook/internal/buffer"
	"github.com/indigo-web/brook/internal/strutil"
	"github.com/indigo-web/brook/internal/uridecode"
	"github.com/indigo-web/utils/uf"
	"github.com/pkg/errors"
)

var (
	protoHTTP11 = []byte("HTTP/1.1")
	protoPrefix = []byte("HTTP/")
)

// maxContentLengthDigits keeps the Content-Length value from overflowing int64.
const maxContentLengthDigits = 18

// Parser decodes requests from the connection reader into the request object. Every
// failure is either a status.HTTPError, meaning the request is malformed, or a wrapped
// transport error.
type Parser struct {
	cfg     *config.Config
	reader  *buffer.Reader
	request *http.Request
	scratch []byte

	headersNumber int
	contentLength int64
	hasLength     bool

	// started is set once the request line is read.
	started bool
}

func NewParser(cfg *config.Config, reader *buffer.Reader, request *http.Request) *Parser {
	return &Parser{
		cfg:     cfg,
		reader:  reader,
		request: request,
		scratch: make([]byte, 0, 256),
	}
}

// Parse blocks until a whole request is received. The request must be reset beforehand.
func (p *Parser) Parse() error {
	p.headersNumber, p.contentLength, p.hasLength = 0, 0, false
	p.started = false

	if err := p.requestLine(); err != nil {
		return err
	}

	if err := p.headers(); err != nil {
		return err
	}

	return p.body()
}

// Started reports whether the last Parse call got past the request line.
func (p *Parser) Started() bool {
	return p.started
}

func (p *Parser) requestLine() error {
	r := p.reader

	if err := r.ParseLine(); err != nil {
		return lineError(err, status.ErrURITooLong, "read request line")
	}

	p.started = true

	sp := r.IndexOf(' ')
	if sp == -1 {
		return status.ErrBadRequestLine
	}

	p.request.Method = method.Match(r.Slice(r.Pos(), sp))
	if p.request.Method == method.Unknown {
		return status.ErrMethodNotImplemented
	}

	r.Seek(sp + 1)
	targetStart := r.Pos()
	end := r.IndexOf('?', ' ')
	if end == -1 || end == targetStart {
		return status.ErrBadRequestLine
	}

	if err := p.path(r.Slice(targetStart, end)); err != nil {
		return err
	}

	if r.Slice(end, end+1)[0] == '?' {
		r.Seek(end + 1)
		queryEnd := r.IndexOf(' ')
		if queryEnd == -1 {
			return status.ErrBadRequestLine
		}

		if err := p.query(r.Slice(end+1, queryEnd)); err != nil {
			return err
		}

		end = queryEnd
	}

	r.Seek(end + 1)

	if !r.Matches(protoHTTP11) {
		if r.Matches(protoPrefix) {
			return status.ErrHTTPVersionNotSupported
		}

		return status.ErrBadRequestLine
	}

	if !r.ConsumeIfEndOfLine() {
		return status.ErrBadRequestLine
	}

	return nil
}

func (p *Parser) path(path []byte) error {
	switch {
	case path[0] == '/':
	case len(path) == 1 && path[0] == '*' && p.request.Method == method.OPTIONS:
		p.request.Path = "*"
		return nil
	default:
		return status.ErrBadPath
	}

	p.request.Path = string(path)

	rest := path[1:]
	if len(rest) == 0 {
		return nil
	}

	for {
		slash := bytes.IndexByte(rest, '/')
		segment := rest
		if slash != -1 {
			segment = rest[:slash]
		}

		decoded, err := uridecode.Decode(segment, p.scratch[:0])
		if err != nil {
			return err
		}

		p.request.Segments = append(p.request.Segments, string(decoded))

		if slash == -1 {
			return nil
		}

		rest = rest[slash+1:]
	}
}

func (p *Parser) query(query []byte) error {
	for len(query) > 0 {
		var pair []byte

		if amp := bytes.IndexByte(query, '&'); amp == -1 {
			pair, query = query, nil
		} else {
			pair, query = query[:amp], query[amp+1:]
		}

		if len(pair) == 0 {
			continue
		}

		rawKey, rawValue, _ := bytes.Cut(pair, []byte{'='})
		if len(rawKey) == 0 {
			return status.ErrBadParams
		}

		key, err := uridecode.DecodeQuery(rawKey, p.scratch[:0])
		if err != nil {
			return err
		}

		keyStr := string(key)

		value, err := uridecode.DecodeQuery(rawValue, p.scratch[:0])
		if err != nil {
			return err
		}

		p.request.Query.Set(keyStr, string(value))
	}

	return nil
}

func (p *Parser) headers() error {
	r := p.reader

	for {
		if err := r.ParseLine(); err != nil {
			return lineError(err, status.ErrHeaderFieldsTooLarge, "read header")
		}

		if r.ConsumeIfEmptyLine() {
			return nil
		}

		if p.headersNumber++; p.headersNumber > p.cfg.Headers.MaxNumber {
			return status.ErrTooManyHeaders
		}

		start := r.Pos()
		colon := r.IndexOf(':')
		if colon == -1 || colon == start {
			return status.ErrBadHeader
		}

		rawName := r.Slice(start, colon)
		if bytes.ContainsAny(rawName, " \t") {
			// covers obsolete line folding as well
			return status.ErrBadHeader
		}

		name := headers.FromBytes(rawName)
		end := r.LineEnd()
		value := strutil.StripWS(uf.B2S(r.Slice(colon+1, end)))

		switch {
		case name.Equal(headers.TransferEncoding):
			return status.ErrUnsupportedEncoding
		case name.Equal(headers.ContentLength):
			if err := p.setContentLength(value); err != nil {
				return err
			}
		}

		p.request.Headers.Set(name, strings.Clone(value))
		r.Seek(end)
		r.ConsumeIfEndOfLine()
	}
}

func (p *Parser) setContentLength(value string) error {
	if len(value) == 0 || len(value) > maxContentLengthDigits {
		return status.ErrBadContentLength
	}

	var length int64
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return status.ErrBadContentLength
		}

		length = length*10 + int64(value[i]-'0')
	}

	if p.hasLength && p.contentLength != length {
		return status.ErrBadContentLength
	}

	p.contentLength, p.hasLength = length, true
	return nil
}

func (p *Parser) body() error {
	if p.contentLength == 0 {
		return nil
	}

	if !p.request.Method.AllowsBody() {
		return status.ErrUnexpectedBody
	}

	if p.contentLength > int64(p.cfg.Body.MaxSize) {
		return status.ErrBodyTooLarge
	}

	body, err := p.reader.Read(int(p.contentLength))
	switch {
	case err == nil:
	case errors.Is(err, buffer.ErrBodyTooLarge):
		return status.ErrBodyTooLarge
	default:
		return errors.Wrap(err, "read body")
	}

	p.request.Body = body
	return nil
}

func lineError(err, tooLarge error, action string) error {
	if errors.Is(err, buffer.ErrLineTooLarge) {
		return tooLarge
	}

	return errors.Wrap(err, action)
}
