package http

import (
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/indigo-web/brook/clock"
	"github.com/indigo-web/brook/config"
	"github.com/indigo-web/brook/http/headers"
	"github.com/indigo-web/brook/http/method"
	"github.com/indigo-web/brook/http/status"
	"github.com/stretchr/testify/require"
)

var moment = time.Date(2024, time.March, 3, 12, 30, 45, 0, time.UTC)

func newExchange() *Exchange {
	cfg := config.Default()
	return NewExchange(cfg, NewRequest(cfg, nil), clock.Fixed(moment))
}

func TestExchange_Accessors(t *testing.T) {
	e := newExchange()
	req := e.Request()
	req.Method = method.POST
	req.Path = "/hello/world"
	req.Segments = append(req.Segments, "hello", "world")
	req.Query.Set("q", "1")
	req.Headers.Set(headers.Host, "example.com")
	req.Body = []byte("body")

	require.Equal(t, method.POST, e.Method())
	require.Equal(t, "/hello/world", e.Path())
	require.Equal(t, []string{"hello", "world"}, e.Segments())
	q, found := e.Query("q")
	require.True(t, found)
	require.Equal(t, "1", q)
	_, found = e.Query("z")
	require.False(t, found)
	host, _ := e.Header(headers.Host)
	require.Equal(t, "example.com", host)
	require.Equal(t, "body", string(e.Body()))
	require.NotNil(t, e.Context())
}

func TestExchange_Terminal(t *testing.T) {
	t.Run("send string", func(t *testing.T) {
		e := newExchange()
		e.Status(status.Created).SetHeader(headers.ContentType, "text/plain").DateNow()
		require.NoError(t, e.SendString("hello"))
		require.ErrorIs(t, e.SendString("again"), ErrAlreadyTerminated)
		require.ErrorIs(t, e.NotFound(), ErrAlreadyTerminated)

		resp, err := e.Commit()
		require.NoError(t, err)
		require.Equal(t, status.Created, resp.Code)
		require.Equal(t, "hello", string(resp.Body))
		require.Equal(t, "Sun, 03 Mar 2024 12:30:45 GMT", resp.Headers.Value(headers.Date))
		require.True(t, e.KeepAlive())
	})

	t.Run("writer", func(t *testing.T) {
		e := newExchange()
		_, _ = e.Write([]byte("hello, "))
		_, _ = e.Write([]byte("world"))
		require.NoError(t, e.Send())
		require.Equal(t, "hello, world", string(e.Expose().Body))
	})

	t.Run("json", func(t *testing.T) {
		e := newExchange()
		require.NoError(t, e.SendJSON(map[string]int{"a": 1}))
		require.Equal(t, `{"a":1}`, string(e.Expose().Body))
		require.Equal(t, "application/json", e.Expose().Headers.Value(headers.ContentType))
	})

	t.Run("json failure", func(t *testing.T) {
		e := newExchange()
		require.NoError(t, e.SendJSON(make(chan int)))
		require.Equal(t, status.InternalServerError, e.Expose().Code)
		require.Error(t, e.Err())
		require.Empty(t, e.Expose().Body)
	})

	for _, tc := range []struct {
		Name string
		Call func(*Exchange) error
		Code status.Code
	}{
		{"not found", (*Exchange).NotFound, status.NotFound},
		{"method not allowed", (*Exchange).MethodNotAllowed, status.MethodNotAllowed},
		{"internal server error", func(e *Exchange) error {
			return e.InternalServerError(errors.New("database is down"))
		}, status.InternalServerError},
		{"http error", func(e *Exchange) error {
			return e.Error(status.ErrBodyTooLarge)
		}, status.RequestEntityTooLarge},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			e := newExchange()
			e.SetHeader(headers.Location, "/leaked")
			_, _ = e.Write([]byte("partial"))
			require.NoError(t, tc.Call(e))

			resp, err := e.Commit()
			require.NoError(t, err)
			require.Equal(t, tc.Code, resp.Code)
			require.Empty(t, resp.Body)
			require.False(t, resp.Headers.Has(headers.Location))
			require.Equal(t, "close", resp.Headers.Value(headers.Connection))
			require.Equal(t, "0", resp.Headers.Value(headers.ContentLength))
			require.False(t, e.KeepAlive())
		})
	}

	t.Run("internal error isn't leaked", func(t *testing.T) {
		e := newExchange()
		require.NoError(t, e.InternalServerError(errors.New("secret")))
		require.EqualError(t, e.Err(), "secret")
		require.NotContains(t, string(e.Expose().Body), "secret")
	})
}

func TestExchange_Commit(t *testing.T) {
	e := newExchange()
	_, err := e.Commit()
	require.ErrorIs(t, err, ErrNotTerminated)

	require.NoError(t, e.Send())
	_, err = e.Commit()
	require.NoError(t, err)
	_, err = e.Commit()
	require.ErrorIs(t, err, ErrAlreadyCommitted)

	e.Reset()
	require.NoError(t, e.Send())
	_, err = e.Commit()
	require.NoError(t, err)
}

func TestExchange_KeepAlive(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		e := newExchange()
		require.NoError(t, e.Send())
		require.True(t, e.KeepAlive())
	})

	t.Run("client closes", func(t *testing.T) {
		e := newExchange()
		e.Request().Headers.Set(headers.Connection, "Close")
		require.NoError(t, e.Send())
		require.False(t, e.KeepAlive())
	})

	t.Run("handler closes", func(t *testing.T) {
		e := newExchange()
		require.NoError(t, e.CloseConnection().Send())
		require.False(t, e.KeepAlive())
	})

	t.Run("aborted", func(t *testing.T) {
		e := newExchange()
		require.NoError(t, e.SendString("ok"))
		e.Abort(errors.New("handler failed"))
		require.False(t, e.KeepAlive())
		require.Equal(t, status.InternalServerError, e.Expose().Code)
		require.Error(t, e.Err())
	})
}

func TestExchange_Reset(t *testing.T) {
	e := newExchange()
	e.Request().Headers.Set(headers.Host, "a")
	e.Request().Query.Set("x", "y")
	e.Status(status.Teapot).AddHeader(headers.SetCookie, "a=b")
	require.NoError(t, e.InternalServerError(nil))
	_, err := e.Commit()
	require.NoError(t, err)

	e.Reset()
	require.False(t, e.Terminated())
	require.NoError(t, e.Err())
	require.Equal(t, status.OK, e.Expose().Code)
	require.Zero(t, e.Expose().Headers.Len())
	require.Zero(t, e.Request().Headers.Len())
	require.True(t, e.Request().Query.Empty())
	require.True(t, e.KeepAlive())
}

func TestExchange_SendFile(t *testing.T) {
	modTime := time.Unix(1700000000, 0)
	fsys := fstest.MapFS{
		"static/index.html": {Data: []byte("<h1>hi</h1>"), ModTime: modTime},
		"static/sub/x.txt":  {Data: []byte("x")},
	}
	etag := ETag(modTime, 11)

	t.Run("regular", func(t *testing.T) {
		e := newExchange()
		f, err := fsys.Open("static/index.html")
		require.NoError(t, err)
		require.NoError(t, e.SendFile(f))

		resp := e.Expose()
		require.Equal(t, status.OK, resp.Code)
		require.Equal(t, f, resp.File)
		require.Equal(t, int64(11), resp.FileSize)
		require.Equal(t, "11", resp.Headers.Value(headers.ContentLength))
		require.Equal(t, etag, resp.Headers.Value(headers.ETag))
		require.Equal(t, FormatDate(modTime), resp.Headers.Value(headers.LastModified))
		require.Equal(t, "text/html;charset=utf-8", resp.Headers.Value(headers.ContentType))
	})

	t.Run("not modified", func(t *testing.T) {
		e := newExchange()
		e.Request().Headers.Set(headers.IfNoneMatch, etag)
		f, err := fsys.Open("static/index.html")
		require.NoError(t, err)
		require.NoError(t, e.SendFile(f))

		resp := e.Expose()
		require.Equal(t, status.NotModified, resp.Code)
		require.Nil(t, resp.File)
		require.False(t, resp.Headers.Has(headers.ContentLength))
		require.Equal(t, etag, resp.Headers.Value(headers.ETag))
	})

	t.Run("directory", func(t *testing.T) {
		e := newExchange()
		f, err := fsys.Open("static/sub")
		require.NoError(t, err)
		require.NoError(t, e.SendFile(f))
		require.Equal(t, status.NotFound, e.Expose().Code)
		require.Nil(t, e.Expose().File)
	})

	t.Run("terminated", func(t *testing.T) {
		e := newExchange()
		require.NoError(t, e.Send())
		f, err := fsys.Open("static/index.html")
		require.NoError(t, err)
		require.ErrorIs(t, e.SendFile(f), ErrAlreadyTerminated)
	})
}
