package tcp

import (
	"net"
	"sync"
	"time"

	"suquid-trivia-server/internal/wire"
)

// playerConn adapts a net.Conn to game.Conn. Writes are serialized and
// bounded by a deadline so one stuck peer cannot wedge a broadcast.
type playerConn struct {
	nc           net.Conn
	writeTimeout time.Duration

	mu sync.Mutex
}

func newPlayerConn(nc net.Conn, writeTimeout time.Duration) *playerConn {
	return &playerConn{nc: nc, writeTimeout: writeTimeout}
}

func (c *playerConn) Send(msg wire.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.nc.Write([]byte(msg.Encode() + "\n"))
	return err
}

func (c *playerConn) Close() error {
	return c.nc.Close()
}

func (c *playerConn) RemoteAddr() string {
	return c.nc.RemoteAddr().String()
}
