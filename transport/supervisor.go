package transport

import (
	"net"
	"sync"

	"github.com/indigo-web/brook/config"
)

type Transport interface {
	Bind(addr string) error
	Listen(cfg config.NET, cb func(conn net.Conn)) error
	Stop()
	Close()
	Wait()
}

// Supervisor runs a number of transports at once. As soon as any of them fails or Stop
// is called, all of them are stopped and drained.
type Supervisor struct {
	ts       []boundTransport
	stopch   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	done     chan struct{}
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		stopch: make(chan struct{}),
	}
}

// Add binds the transport to the address. If binding fails, all the already added
// transports are closed.
func (s *Supervisor) Add(addr string, transport Transport, cb func(net.Conn)) error {
	if err := transport.Bind(addr); err != nil {
		s.close()
		return err
	}

	s.ts = append(s.ts, boundTransport{
		cb: cb,
		t:  transport,
	})

	return nil
}

// Run blocks until either a transport fails or Stop is called. It returns the first
// encountered error.
func (s *Supervisor) Run(cfg config.NET) error {
	if len(s.ts) == 0 {
		return nil
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.done = done
	s.mu.Unlock()
	defer close(done)

	errch := make(chan error, len(s.ts))

	for _, t := range s.ts {
		go func(t boundTransport) {
			errch <- t.t.Listen(cfg, t.cb)
		}(t)
	}

	select {
	case err := <-errch:
		s.stop()
		drain(errch, len(s.ts)-1)

		return err
	case <-s.stopch:
		s.stop()
		drain(errch, len(s.ts))

		return nil
	}
}

// Stop stops accepting new connections and blocks until all the running ones are done.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopch)
	})

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Supervisor) stop() {
	for _, t := range s.ts {
		t.t.Stop()
	}

	s.close()

	for _, t := range s.ts {
		t.t.Wait()
	}
}

func (s *Supervisor) close() {
	for _, t := range s.ts {
		t.t.Close()
	}
}

type boundTransport struct {
	cb func(conn net.Conn)
	t  Transport
}

func drain(ch <-chan error, n int) {
	for range n {
		<-ch
	}
}
