package brook

import (
	"context"
	"net"
	"sync"

	"github.com/indigo-web/brook/clock"
	"github.com/indigo-web/brook/config"
	"github.com/indigo-web/brook/diag"
	"github.com/indigo-web/brook/http"
	"github.com/indigo-web/brook/http/headers"
	"github.com/indigo-web/brook/internal/protocol/http1"
	"github.com/indigo-web/brook/internal/strutil"
	"github.com/indigo-web/brook/transport"
	"github.com/pkg/errors"
)

// App is the server itself: it binds the address, accepts connections and serves every
// one of them on its own goroutine.
type App struct {
	addr       string
	cfg        *config.Config
	sink       diag.Sink
	clock      clock.Clock
	hooks      hooks
	supervisor *transport.Supervisor
	ctx        context.Context
	cancel     context.CancelFunc

	mu  sync.Mutex
	tcp *transport.TCP
}

// New returns a new App instance. An address with the host omitted, like ":8080", is
// bound to all the interfaces.
func New(addr string) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		addr:       strutil.NormalizeAddress(addr),
		cfg:        config.Default(),
		sink:       diag.Nop(),
		clock:      clock.System(),
		supervisor: transport.NewSupervisor(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Tune replaces the default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// Sink sets the receiver of diagnostic events. Multiple sinks are fanned out. By default,
// events are discarded.
func (a *App) Sink(sinks ...diag.Sink) *App {
	switch len(sinks) {
	case 0:
		a.sink = diag.Nop()
	case 1:
		a.sink = sinks[0]
	default:
		a.sink = diag.Multi(sinks...)
	}

	return a
}

// Clock replaces the time source of the Date header and cache validators. I/O deadlines
// aren't affected, they always follow the wall clock. Mostly useful in tests.
func (a *App) Clock(clk clock.Clock) *App {
	a.clock = clk
	return a
}

// NotifyOnStart calls the callback as soon as the listener is bound, right before the
// accept loop starts.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback when the accept loop is down and all the connections
// are closed.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Addr returns the bound address, or nil if the App isn't bound yet.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tcp == nil {
		return nil
	}

	return a.tcp.Addr()
}

// Serve binds the address and serves connections with the handler. It blocks until
// either Stop is called, returning nil, or the listener fails.
func (a *App) Serve(handler http.Handler) error {
	if handler == nil {
		return errors.New("brook: nil handler")
	}

	if err := a.cfg.Validate(); err != nil {
		return errors.Wrap(err, "brook: bad config")
	}

	headers.SetMaxInterned(a.cfg.Headers.MaxInterned)

	tcp := transport.NewTCP(a.cfg.NET.ReusePort, a.sink)
	if err := a.supervisor.Add(a.addr, tcp, a.newConnCallback(handler)); err != nil {
		return err
	}

	a.mu.Lock()
	a.tcp = tcp
	a.mu.Unlock()

	callIfNotNil(a.hooks.OnStart)
	err := a.supervisor.Run(a.cfg.NET)
	callIfNotNil(a.hooks.OnStop)

	return err
}

func (a *App) newConnCallback(handler http.Handler) func(net.Conn) {
	return func(conn net.Conn) {
		client := transport.NewClient(conn, a.cfg.NET.ReadTimeout, a.cfg.NET.WriteTimeout)
		http1.New(a.ctx, a.cfg, client, handler, a.sink, a.clock).Serve()
	}
}

// Stop stops accepting new connections and closes the idle ones. Requests in flight are
// served till the end, after which their connections are closed as well. The call blocks
// until everything is done, therefore it must never be called from a handler.
func (a *App) Stop() {
	a.cancel()
	a.supervisor.Stop()
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
