package dummy

import (
	"bytes"
	"net"
	"sync"
	"time"
)

// Conn is an in-memory net.Conn. Reads are served from Inbound, writes are collected
// into Outbound. Deadlines are only recorded, never enforced.
type Conn struct {
	mu            sync.Mutex
	Inbound       bytes.Reader
	Outbound      bytes.Buffer
	readDeadline  time.Time
	writeDeadline time.Time
	closed        bool
	discard       bool
}

// NewConn returns a connection which yields the data, then io.EOF.
func NewConn(data string) *Conn {
	c := new(Conn)
	c.Inbound.Reset([]byte(data))
	return c
}

func (c *Conn) Read(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, net.ErrClosed
	}

	return c.Inbound.Read(b)
}

func (c *Conn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return 0, net.ErrClosed
	case c.discard:
		return len(b), nil
	}

	return c.Outbound.Write(b)
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) LocalAddr() net.Addr { return loopback }
func (c *Conn) RemoteAddr() net.Addr { return loopback }

func (c *Conn) SetDeadline(t time.Time) error {
	_ = c.SetReadDeadline(t)
	return c.SetWriteDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.readDeadline = t
	c.mu.Unlock()
	return nil
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	c.writeDeadline = t
	c.mu.Unlock()
	return nil
}

// Deadlines returns the last deadlines set.
func (c *Conn) Deadlines() (read, write time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readDeadline, c.writeDeadline
}

// Discard makes writes succeed without collecting anything.
func (c *Conn) Discard() *Conn {
	c.discard = true
	return c
}

var _ net.Conn = new(Conn)

var loopback = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}
