package transport

import (
	"net"
	"sync/atomic"
	"time"
)

// Client is a single accepted connection.
type Client interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	// Interrupt makes the pending and all the following reads fail immediately.
	Interrupt() error
	Conn() net.Conn
	Remote() net.Addr
	Close() error
}

type client struct {
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
	interrupted  atomic.Bool
}

// NewClient wraps the connection. Deadlines are always computed from the wall clock.
func NewClient(conn net.Conn, readTimeout, writeTimeout time.Duration) Client {
	return &client{
		conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Read reads from the connection, renewing the read deadline beforehand. The deadline
// doubles as the idle timeout of persistent connections.
func (c *client) Read(b []byte) (int, error) {
	if !c.interrupted.Load() {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}

		if c.interrupted.Load() {
			// Interrupt raced with the deadline renewal
			_ = c.conn.SetReadDeadline(time.Unix(1, 0))
		}
	}

	return c.conn.Read(b)
}

func (c *client) Write(b []byte) (int, error) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return 0, err
	}

	return c.conn.Write(b)
}

func (c *client) Interrupt() error {
	c.interrupted.Store(true)
	return c.conn.SetReadDeadline(time.Unix(1, 0))
}

// Conn unwraps the underlying net.Conn.
func (c *client) Conn() net.Conn {
	return c.conn
}

func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *client) Close() error {
	return c.conn.Close()
}
