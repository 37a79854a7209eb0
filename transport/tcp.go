package transport

import (
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-web/brook/config"
	"github.com/indigo-web/brook/diag"
	"github.com/pkg/errors"
	"github.com/valyala/tcplisten"
)

type listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// TCP accepts plain TCP connections, serving each one on its own goroutine.
type TCP struct {
	l         listener
	reusePort bool
	sink      diag.Sink
	wg        *sync.WaitGroup
	stop      *atomic.Bool
}

func NewTCP(reusePort bool, sink diag.Sink) *TCP {
	return &TCP{
		reusePort: reusePort,
		sink:      sink,
		wg:        new(sync.WaitGroup),
		stop:      new(atomic.Bool),
	}
}

func (t *TCP) Bind(addr string) error {
	var (
		l   net.Listener
		err error
	)

	if t.reusePort {
		l, err = (&tcplisten.Config{ReusePort: true}).NewListener("tcp4", addr)
	} else {
		l, err = net.Listen("tcp", addr)
	}

	if err != nil {
		return errors.Wrapf(err, "bind %s", addr)
	}

	dl, ok := l.(listener)
	if !ok {
		_ = l.Close()
		return errors.Errorf("bind %s: listener doesn't support deadlines", addr)
	}

	t.l = dl
	return nil
}

// Addr returns the bound address. It's useful when binding to the port 0.
func (t *TCP) Addr() net.Addr {
	return t.l.Addr()
}

// Listen runs the accept loop until Stop is called or accepting fails. Failures are
// reported to the sink before being returned.
func (t *TCP) Listen(cfg config.NET, cb func(conn net.Conn)) error {
	for !t.stop.Load() {
		if err := t.l.SetDeadline(time.Now().Add(cfg.AcceptLoopInterruptPeriod)); err != nil {
			return t.fail(err)
		}

		conn, err := t.l.Accept()
		if err != nil {
			switch {
			case errors.Is(err, os.ErrDeadlineExceeded):
				continue
			case t.stop.Load() && errors.Is(err, net.ErrClosed):
				return nil
			}

			return t.fail(err)
		}

		t.wg.Add(1)
		go func(conn net.Conn) {
			defer t.wg.Done()
			cb(conn)
			_ = conn.Close()
		}(conn)
	}

	return nil
}

func (t *TCP) fail(err error) error {
	err = errors.Wrap(err, "accept")
	t.sink.Event(diag.Event{Kind: diag.AcceptError, Err: err})
	return err
}

func (t *TCP) Stop() {
	t.stop.Store(true)
}

func (t *TCP) Close() {
	if t.l != nil {
		_ = t.l.Close()
	}
}

// Wait blocks until all the accepted connections are done.
func (t *TCP) Wait() {
	t.wg.Wait()
}
