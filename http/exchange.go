package http

import (
	"context"
	"io/fs"
	"net"

	"github.com/indigo-web/brook/clock"
	"github.com/indigo-web/brook/config"
	"github.com/indigo-web/brook/http/headers"
	"github.com/indigo-web/brook/http/method"
	"github.com/indigo-web/brook/http/mime"
	"github.com/indigo-web/brook/http/status"
	"github.com/indigo-web/brook/internal/strutil"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Handler is called once per well-formed request. It must respond by exactly one terminal
// operation before returning, otherwise the request is answered with 500 Internal Server Error.
type Handler func(*Exchange) error

var (
	ErrAlreadyTerminated = errors.New("response is already sent")
	ErrAlreadyCommitted  = errors.New("exchange is already committed")
	ErrNotTerminated     = errors.New("handler returned without responding")
)

// Response is the assembled response, ready to be written.
type Response struct {
	Code    status.Code
	Headers *headers.Fields
	// Body is ignored if File is set.
	Body []byte
	// File is closed after it's written.
	File     fs.File
	FileSize int64
	// Close forces the connection to be closed after the response.
	Close bool
}

// Exchange is a single request/response pair. One instance serves every request of a
// connection, so nothing obtained from it may be retained after the handler returns.
type Exchange struct {
	request    *Request
	response   Response
	clock      clock.Clock
	buff       []byte
	err        error
	terminated bool
	committed  bool
}

func NewExchange(cfg *config.Config, request *Request, clk clock.Clock) *Exchange {
	return &Exchange{
		request: request,
		response: Response{
			Code:    status.OK,
			Headers: headers.NewFields(cfg.Headers.Prealloc),
		},
		clock: clk,
	}
}

// Request returns the decoded request.
func (e *Exchange) Request() *Request {
	return e.request
}

func (e *Exchange) Method() method.Method {
	return e.request.Method
}

func (e *Exchange) Path() string {
	return e.request.Path
}

// Segments returns the decoded path segments.
func (e *Exchange) Segments() []string {
	return e.request.Segments
}

// Query returns the decoded value of the query parameter.
func (e *Exchange) Query(name string) (value string, found bool) {
	return e.request.Param(name)
}

func (e *Exchange) Header(name headers.Name) (value string, found bool) {
	return e.request.Header(name)
}

func (e *Exchange) Body() []byte {
	return e.request.Body
}

func (e *Exchange) Remote() net.Addr {
	return e.request.Remote
}

// Context is cancelled when the server is shutting down.
func (e *Exchange) Context() context.Context {
	return e.request.Ctx
}

// Status sets the response code.
func (e *Exchange) Status(code status.Code) *Exchange {
	e.response.Code = code
	return e
}

// SetHeader sets the header, replacing all the previous values.
func (e *Exchange) SetHeader(name headers.Name, value string) *Exchange {
	e.response.Headers.Set(name, value)
	return e
}

func (e *Exchange) SetHeaderInt(name headers.Name, value int64) *Exchange {
	e.response.Headers.SetInt(name, value)
	return e
}

// AddHeader appends one more value of the header. Values are written in insertion order.
func (e *Exchange) AddHeader(name headers.Name, value string) *Exchange {
	e.response.Headers.Add(name, value)
	return e
}

// DateNow sets the Date header to the current instant.
func (e *Exchange) DateNow() *Exchange {
	return e.SetHeader(headers.Date, FormatDate(e.clock.Now()))
}

// CloseConnection makes the connection close after the response is written.
func (e *Exchange) CloseConnection() *Exchange {
	e.response.Close = true
	return e.SetHeader(headers.Connection, "close")
}

// Write appends the data to the response body. It's sent by Send.
func (e *Exchange) Write(b []byte) (n int, err error) {
	e.buff = append(e.buff, b...)
	e.response.Body = e.buff
	return len(b), nil
}

// Send terminates the exchange with the body written so far, if any.
func (e *Exchange) Send() error {
	return e.terminate()
}

// SendBytes terminates the exchange with the body. The slice isn't copied, so it must
// not be modified until the response is committed.
func (e *Exchange) SendBytes(body []byte) error {
	if err := e.terminate(); err != nil {
		return err
	}

	e.response.Body = body
	return nil
}

func (e *Exchange) SendString(body string) error {
	return e.SendBytes(uf.S2B(body))
}

// SendJSON serializes the model as the body. The serialization failure is responded with
// 500 Internal Server Error.
func (e *Exchange) SendJSON(model any) error {
	if e.terminated {
		return ErrAlreadyTerminated
	}

	e.buff = e.buff[:0]
	stream := json.ConfigDefault.BorrowStream(e)
	stream.WriteVal(model)
	err := stream.Flush()
	if err == nil {
		err = stream.Error
	}
	json.ConfigDefault.ReturnStream(stream)

	if err != nil {
		return e.InternalServerError(errors.Wrap(err, "encode json"))
	}

	if !e.response.Headers.Has(headers.ContentType) {
		e.SetHeader(headers.ContentType, mime.JSON)
	}

	return e.SendBytes(e.buff)
}

// SendFile terminates the exchange with the file contents. Content-Length, ETag and
// Last-Modified are derived from the file stats. If the request's If-None-Match lists
// the same ETag, 304 Not Modified is responded without the body. Directories are
// responded with 404 Not Found. The file is closed in any case.
func (e *Exchange) SendFile(f fs.File) error {
	if e.terminated {
		_ = f.Close()
		return ErrAlreadyTerminated
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return e.InternalServerError(errors.Wrap(err, "stat file"))
	}

	if stat.IsDir() {
		_ = f.Close()
		return e.NotFound()
	}

	etag := ETag(stat.ModTime(), stat.Size())
	e.SetHeader(headers.ETag, etag)
	e.SetHeader(headers.LastModified, FormatDate(stat.ModTime()))

	if list, found := e.request.Header(headers.IfNoneMatch); found && matchETag(list, etag) {
		_ = f.Close()
		e.response.Code = status.NotModified
		return e.terminate()
	}

	if !e.response.Headers.Has(headers.ContentType) {
		e.SetHeader(headers.ContentType, mime.ByFilename(stat.Name()))
	}

	e.SetHeaderInt(headers.ContentLength, stat.Size())
	e.response.File, e.response.FileSize = f, stat.Size()

	return e.terminate()
}

// NotFound responds with 404 Not Found and closes the connection.
func (e *Exchange) NotFound() error {
	return e.fail(status.NotFound)
}

// MethodNotAllowed responds with 405 Method Not Allowed and closes the connection.
func (e *Exchange) MethodNotAllowed() error {
	return e.fail(status.MethodNotAllowed)
}

// InternalServerError responds with 500 Internal Server Error and closes the connection.
// The error is reported to the diagnostic sink and never leaks to the client.
func (e *Exchange) InternalServerError(err error) error {
	if e.terminated {
		return ErrAlreadyTerminated
	}

	if err == nil {
		err = status.ErrInternalServerError
	}

	e.err = err
	return e.fail(status.InternalServerError)
}

// Error responds with the code carried by the error, falling back to 500 Internal
// Server Error for errors unknown to the status package.
func (e *Exchange) Error(err error) error {
	if !status.IsHTTPError(err) {
		return e.InternalServerError(err)
	}

	return e.fail(status.CodeOf(err))
}

// Abort discards the response assembled so far and replaces it with a minimal error
// response, even if the exchange is already terminated.
func (e *Exchange) Abort(err error) {
	e.terminated = true
	if status.CodeOf(err) == status.InternalServerError {
		e.err = err
	}

	e.minimal(status.CodeOf(err))
}

// Err returns the internal error the exchange was terminated with, if any.
func (e *Exchange) Err() error {
	return e.err
}

func (e *Exchange) Terminated() bool {
	return e.terminated
}

// Expose gives direct access to the response.
func (e *Exchange) Expose() *Response {
	return &e.response
}

// Commit marks the exchange as committed and hands out the response for writing. It fails
// if the exchange isn't terminated or was already committed since the last Reset.
func (e *Exchange) Commit() (*Response, error) {
	switch {
	case e.committed:
		return nil, ErrAlreadyCommitted
	case !e.terminated:
		return nil, ErrNotTerminated
	}

	e.committed = true
	return &e.response, nil
}

// KeepAlive reports whether the connection may serve more requests after this exchange.
// HTTP/1.1 connections are persistent unless either side said otherwise, or the engine
// had to force closing.
func (e *Exchange) KeepAlive() bool {
	if e.response.Close {
		return false
	}

	if value, found := e.request.Header(headers.Connection); found && strutil.HasToken(value, "close") {
		return false
	}

	value, found := e.response.Headers.Get(headers.Connection)
	return !found || !strutil.HasToken(value, "close")
}

// Reset prepares the exchange for the next request.
func (e *Exchange) Reset() {
	e.request.Reset()
	e.releaseFile()
	e.response.Code = status.OK
	e.response.Headers.Clear()
	e.response.Body = nil
	e.response.Close = false
	e.buff = e.buff[:0]
	e.err = nil
	e.terminated = false
	e.committed = false
}

func (e *Exchange) terminate() error {
	if e.terminated {
		return ErrAlreadyTerminated
	}

	e.terminated = true
	return nil
}

func (e *Exchange) fail(code status.Code) error {
	if err := e.terminate(); err != nil {
		return err
	}

	e.minimal(code)
	return nil
}

func (e *Exchange) minimal(code status.Code) {
	e.releaseFile()
	e.response.Code = code
	e.response.Headers.Clear()
	e.response.Body = nil
	e.CloseConnection()
	e.SetHeaderInt(headers.ContentLength, 0)
	e.DateNow()
}

func (e *Exchange) releaseFile() {
	if e.response.File != nil {
		_ = e.response.File.Close()
		e.response.File, e.response.FileSize = nil, 0
	}
}
