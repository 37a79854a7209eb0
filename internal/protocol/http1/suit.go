package http1

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/indigo-web/brook/clock"
	"github.com/indigo-web/brook/config"
	"github.com/indigo-web/brook/diag"
	"github.com/indigo-web/brook/http"
	"github.com/indigo-web/brook/http/status"
	"github.com/indigo-web/brook/internal/buffer"
	"github.com/indigo-web/brook/transport"
	"github.com/pkg/errors"
)

// Suit drives a single connection: it parses requests one by one, dispatches them to the
// handler and commits responses, until either side decides to close.
type Suit struct {
	ctx        context.Context
	client     transport.Client
	reader     *buffer.Reader
	parser     *Parser
	serializer *serializer
	exchange   *http.Exchange
	handler    http.Handler
	sink       diag.Sink
	// idle is set while waiting for the first byte of the next request.
	idle     atomic.Bool
	requests int
}

func New(
	ctx context.Context,
	cfg *config.Config,
	client transport.Client,
	handler http.Handler,
	sink diag.Sink,
	clk clock.Clock,
) *Suit {
	s := &Suit{
		ctx:     ctx,
		client:  client,
		handler: handler,
		sink:    sink,
	}

	request := http.NewRequest(cfg, client.Remote())
	request.Ctx = ctx
	s.reader = buffer.NewReader(idleWatcher{client, &s.idle}, cfg.Buffer.Initial, cfg.Buffer.Maximal)
	s.parser = NewParser(cfg, s.reader, request)
	s.serializer = newSerializer(cfg, request, client)
	s.exchange = http.NewExchange(cfg, request, clk)

	return s
}

// Serve processes requests until the connection is closed by either side, or the
// context is done. The shutdown is observed between requests only: a connection waiting
// for the next request is interrupted, while the one in the middle of a request is let
// to finish it.
func (s *Suit) Serve() {
	started := time.Now()
	s.event(diag.ConnAccepted, nil)

	stop := context.AfterFunc(s.ctx, func() {
		if s.idle.Load() {
			_ = s.client.Interrupt()
		}
	})
	defer stop()

	for s.ctx.Err() == nil && s.ServeOnce() {
	}

	s.sink.Event(diag.Event{
		Kind:     diag.ConnClosed,
		Remote:   s.client.Remote(),
		Requests: s.requests,
		Elapsed:  time.Since(started),
	})
}

// ServeOnce processes exactly one request. It returns whether the connection may be
// kept alive.
func (s *Suit) ServeOnce() bool {
	s.exchange.Reset()
	s.reader.Reset()
	s.idle.Store(s.reader.Buffered() == 0)
	if s.idle.Load() && s.ctx.Err() != nil {
		// shutdown slipped in between the loop check and the idle flag
		return false
	}

	if err := s.parser.Parse(); err != nil {
		s.idle.Store(false)
		return s.badRequest(err)
	}

	s.idle.Store(false)
	s.requests++
	s.dispatch()

	return s.commit()
}

func (s *Suit) dispatch() {
	e := s.exchange

	switch err := s.call(); {
	case err != nil:
		e.Abort(err)
	case !e.Terminated():
		e.Abort(http.ErrNotTerminated)
	}

	if err := e.Err(); err != nil {
		s.event(diag.HandlerError, err)
	}
}

func (s *Suit) call() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("handler panicked: %v", r)
		}
	}()

	return s.handler(s.exchange)
}

func (s *Suit) commit() bool {
	resp, err := s.exchange.Commit()
	if err != nil {
		s.event(diag.HandlerError, err)
		return false
	}

	if err = s.serializer.Write(resp); err != nil {
		s.event(diag.WriteError, err)
		return false
	}

	return s.exchange.KeepAlive()
}

// badRequest responds to a malformed request. Transport errors are responded with
// nothing, as there's nobody to respond to.
func (s *Suit) badRequest(err error) bool {
	if !status.IsHTTPError(err) {
		if !s.closedWhileIdle(err) {
			s.event(diag.ParseError, err)
		}

		return false
	}

	s.event(diag.ParseError, err)
	s.exchange.Abort(err)
	s.commit()

	return false
}

// closedWhileIdle tells an ordinary end of a persistent connection apart from a broken
// request. A request counts as started as soon as its first line is complete, even if
// nothing is left buffered after it.
func (s *Suit) closedWhileIdle(err error) bool {
	if s.parser.Started() || s.reader.Buffered() > 0 {
		return false
	}

	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded)
}

func (s *Suit) event(kind diag.Kind, err error) {
	s.sink.Event(diag.Event{
		Kind:     kind,
		Remote:   s.client.Remote(),
		Err:      err,
		Requests: s.requests,
	})
}

type idleWatcher struct {
	src  io.Reader
	idle *atomic.Bool
}

func (w idleWatcher) Read(b []byte) (int, error) {
	n, err := w.src.Read(b)
	if n > 0 {
		w.idle.Store(false)
	}

	return n, err
}
