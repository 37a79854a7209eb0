// Package diag carries diagnostic events out of the engine. The engine never writes logs
// on its own, it only reports events into a Sink.
package diag

import (
	"net"
	"time"
)

type Kind uint8

const (
	ConnAccepted Kind = iota + 1
	ConnClosed
	ParseError
	HandlerError
	WriteError
	AcceptError
)

func (k Kind) String() string {
	switch k {
	case ConnAccepted:
		return "conn_accepted"
	case ConnClosed:
		return "conn_closed"
	case ParseError:
		return "parse_error"
	case HandlerError:
		return "handler_error"
	case WriteError:
		return "write_error"
	case AcceptError:
		return "accept_error"
	default:
		return "unknown"
	}
}

// Event is a single diagnostic record. Fields irrelevant to the kind are left zero.
type Event struct {
	Kind   Kind
	Remote net.Addr
	Err    error
	// Requests is the number of requests served on the connection so far.
	Requests int
	// Elapsed is the connection lifetime, set on ConnClosed.
	Elapsed time.Duration
}

// Sink receives events. Implementations must be safe for concurrent use, as every
// connection reports from its own goroutine.
type Sink interface {
	Event(Event)
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Event(e Event) {
	f(e)
}

type nop struct{}

func (nop) Event(Event) {}

// Nop returns a sink discarding everything.
func Nop() Sink {
	return nop{}
}

type multi []Sink

func (m multi) Event(e Event) {
	for _, sink := range m {
		sink.Event(e)
	}
}

// Multi fans every event out to all the sinks in order.
func Multi(sinks ...Sink) Sink {
	switch len(sinks) {
	case 0:
		return Nop()
	case 1:
		return sinks[0]
	default:
		return multi(sinks)
	}
}

func remote(addr net.Addr) string {
	if addr == nil {
		return ""
	}

	return addr.String()
}
