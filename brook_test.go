package brook

import (
	"bufio"
	"io"
	"net"
	stdhttp "net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/indigo-web/brook/clock"
	"github.com/indigo-web/brook/config"
	"github.com/indigo-web/brook/diag"
	"github.com/indigo-web/brook/http"
	"github.com/indigo-web/brook/http/headers"
	"github.com/stretchr/testify/require"
)

type events struct {
	mu    sync.Mutex
	kinds []diag.Kind
}

func (e *events) Event(event diag.Event) {
	e.mu.Lock()
	e.kinds = append(e.kinds, event.Kind)
	e.mu.Unlock()
}

func (e *events) count(kind diag.Kind) (n int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, k := range e.kinds {
		if k == kind {
			n++
		}
	}

	return n
}

func handler(e *http.Exchange) error {
	switch e.Path() {
	case "/echo":
		return e.SetHeader(headers.ContentType, "text/plain").SendBytes(e.Body())
	case "/json":
		name, _ := e.Query("name")
		return e.SendJSON(map[string]string{"name": name})
	case "/dated":
		return e.DateNow().SendString("ok")
	case "/slow":
		time.Sleep(200 * time.Millisecond)
		return e.SendString("done")
	default:
		return e.NotFound()
	}
}

func newApp(sinks ...diag.Sink) *App {
	cfg := config.Default()
	cfg.NET.AcceptLoopInterruptPeriod = 20 * time.Millisecond

	return New("127.0.0.1:0").Tune(cfg).Sink(sinks...)
}

func start(t *testing.T, sinks ...diag.Sink) (*App, chan error) {
	return launch(t, newApp(sinks...))
}

func launch(t *testing.T, app *App) (*App, chan error) {
	ready := make(chan struct{})
	app.NotifyOnStart(func() {
		close(ready)
	})

	errch := make(chan error, 1)
	go func() {
		errch <- app.Serve(handler)
	}()

	select {
	case <-ready:
	case err := <-errch:
		require.FailNow(t, "failed to start", err)
	case <-time.After(time.Second):
		require.FailNow(t, "server didn't start")
	}

	return app, errch
}

func stop(t *testing.T, app *App, errch chan error) {
	app.Stop()

	select {
	case err := <-errch:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "server didn't stop")
	}
}

func TestApp(t *testing.T) {
	sink := new(events)
	app, errch := start(t, sink)
	url := "http://" + app.Addr().String()

	t.Run("std client", func(t *testing.T) {
		resp, err := stdhttp.Post(url+"/echo", "text/plain", strings.NewReader("Hello, world!"))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		require.Equal(t, 200, resp.StatusCode)
		require.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
		require.Equal(t, "Hello, world!", string(body))
	})

	t.Run("json", func(t *testing.T) {
		resp, err := stdhttp.Get(url + "/json?name=brook%20server")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.JSONEq(t, `{"name":"brook server"}`, string(body))
	})

	t.Run("not found", func(t *testing.T) {
		resp, err := stdhttp.Get(url + "/nowhere")
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, 404, resp.StatusCode)
		require.True(t, resp.Close)
	})

	t.Run("pipelined over raw connection", func(t *testing.T) {
		conn, err := net.Dial("tcp", app.Addr().String())
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte(
			"POST /echo HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc" +
				"POST /echo HTTP/1.1\r\nContent-Length: 3\r\nConnection: close\r\n\r\ndef",
		))
		require.NoError(t, err)

		rd := bufio.NewReader(conn)
		for _, want := range []string{"abc", "def"} {
			resp, err := stdhttp.ReadResponse(rd, nil)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, want, string(body))
		}

		_, err = rd.ReadByte()
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("malformed request", func(t *testing.T) {
		conn, err := net.Dial("tcp", app.Addr().String())
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
		require.NoError(t, err)
		resp, err := stdhttp.ReadResponse(bufio.NewReader(conn), nil)
		require.NoError(t, err)
		require.Equal(t, 505, resp.StatusCode)
	})

	stop(t, app, errch)
	require.Equal(t, sink.count(diag.ConnAccepted), sink.count(diag.ConnClosed))
	require.Positive(t, sink.count(diag.ParseError))
}

func TestApp_Stop(t *testing.T) {
	t.Run("closes idle connections", func(t *testing.T) {
		app, errch := start(t)
		conn, err := net.Dial("tcp", app.Addr().String())
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte("GET /json HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		rd := bufio.NewReader(conn)
		resp, err := stdhttp.ReadResponse(rd, nil)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)

		stop(t, app, errch)
		_, err = rd.ReadByte()
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("finishes requests in flight", func(t *testing.T) {
		app, errch := start(t)
		conn, err := net.Dial("tcp", app.Addr().String())
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte("GET /slow HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		time.Sleep(50 * time.Millisecond)

		stopped := make(chan struct{})
		go func() {
			stop(t, app, errch)
			close(stopped)
		}()

		resp, err := stdhttp.ReadResponse(bufio.NewReader(conn), nil)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "done", string(body))
		<-stopped
	})
}

func TestApp_Clock(t *testing.T) {
	moment := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	app, errch := launch(t, newApp().Clock(clock.Fixed(moment)))
	defer stop(t, app, errch)

	conn, err := net.Dial("tcp", app.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	rd := bufio.NewReader(conn)
	for range 2 {
		_, err = conn.Write([]byte("GET /dated HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		resp, err := stdhttp.ReadResponse(rd, nil)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		require.Equal(t, 200, resp.StatusCode)
		require.Equal(t, "ok", string(body))
		require.Equal(t, "Wed, 01 Jan 2020 00:00:00 GMT", resp.Header.Get("Date"))
	}
}

func TestApp_BadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Buffer.Initial = cfg.Buffer.Maximal * 2
	err := New("127.0.0.1:0").Tune(cfg).Serve(handler)
	require.Error(t, err)
}
