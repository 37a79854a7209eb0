package status

import "github.com/pkg/errors"

// HTTPError is an error which is known to be representable as a response with a
// specific status code.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

// CodeOf extracts the status code from an error, possibly wrapped. Errors which aren't
// HTTPError are considered internal.
func CodeOf(err error) Code {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}

	return InternalServerError
}

// IsHTTPError reports whether the error (or its cause) is an HTTPError.
func IsHTTPError(err error) bool {
	var httpErr HTTPError
	return errors.As(err, &httpErr)
}

var (
	ErrBadRequest              = NewError(BadRequest, "bad request")
	ErrBadRequestLine          = NewError(BadRequest, "malformed request line")
	ErrBadPath                 = NewError(BadRequest, "malformed request target")
	ErrURIDecoding             = NewError(BadRequest, "invalid urlencoded sequence")
	ErrBadParams               = NewError(BadRequest, "bad URI params")
	ErrBadHeader               = NewError(BadRequest, "malformed header line")
	ErrBadContentLength        = NewError(BadRequest, "malformed Content-Length value")
	// ErrUnexpectedBody rejects a non-empty body on GET, HEAD, OPTIONS, TRACE and CONNECT.
	ErrUnexpectedBody          = NewError(BadRequest, "request method doesn't allow a body")
	ErrNotFound                = NewError(NotFound, "not found")
	ErrMethodNotAllowed        = NewError(MethodNotAllowed, "method not allowed")
	ErrBodyTooLarge            = NewError(RequestEntityTooLarge, "request body is too large")
	ErrURITooLong              = NewError(RequestURITooLong, "request URI too long")
	ErrHeaderFieldsTooLarge    = NewError(RequestHeaderFieldsTooLarge, "too large header line")
	ErrTooManyHeaders          = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrInternalServerError     = NewError(InternalServerError, "internal server error")
	ErrNotImplemented          = NewError(NotImplemented, "not implemented")
	ErrMethodNotImplemented    = NewError(NotImplemented, "request method is not supported")
	ErrUnsupportedEncoding     = NewError(NotImplemented, "transfer encodings are not supported")
	ErrHTTPVersionNotSupported = NewError(HTTPVersionNotSupported, "HTTP version not supported")
)
