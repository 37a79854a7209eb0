package dummy

import (
	"io"
	"net"
	"sync/atomic"

	"github.com/indigo-web/brook/transport"
)

var _ transport.Client = new(Client)

// Client feeds the prepared chunks one per read, shorter if the reader's buffer is
// smaller, and reports io.EOF after the last one unless looped. It also tracks all the
// written data, making it thereby a universal mock suitable for most of the tests.
type Client struct {
	closed      bool
	loop        bool
	journaling  bool
	interrupted atomic.Bool
	pointer     int
	pending     []byte
	written     []byte
	data        [][]byte
}

func NewMockClient(data ...[]byte) *Client {
	return &Client{
		data:       data,
		journaling: true,
	}
}

// LoopReads makes the client start over after the last chunk instead of reporting io.EOF.
func (c *Client) LoopReads() *Client {
	c.loop = true
	return c
}

// Nop disables journaling of the written data.
func (c *Client) Nop() *Client {
	c.journaling = false
	return c
}

func (c *Client) Read(b []byte) (n int, err error) {
	if c.closed || c.interrupted.Load() {
		return 0, io.EOF
	}

	if len(c.pending) == 0 {
		if c.pointer >= len(c.data) {
			if !c.loop || len(c.data) == 0 {
				return 0, io.EOF
			}

			c.pointer = 0
		}

		c.pending = c.data[c.pointer]
		c.pointer++
	}

	n = copy(b, c.pending)
	c.pending = c.pending[n:]

	return n, nil
}

func (c *Client) Write(p []byte) (int, error) {
	if c.closed {
		return 0, io.ErrClosedPipe
	}

	if c.journaling {
		c.written = append(c.written, p...)
	}

	return len(p), nil
}

func (c *Client) Interrupt() error {
	c.interrupted.Store(true)
	return nil
}

// Written returns all the data written so far.
func (c *Client) Written() string {
	return string(c.written)
}

func (c *Client) Conn() net.Conn {
	return new(Conn).Discard()
}

func (*Client) Remote() net.Addr {
	return loopback
}

func (c *Client) Close() error {
	c.closed = true
	return nil
}
