package feed

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Connection is one admin's feed socket. Writes are serialized by writeMu
// because broadcasts, heartbeats and pong replies come from different
// goroutines.
type Connection struct {
	ID        string
	UserID    string
	Conn      net.Conn
	CreatedAt time.Time

	lastSeen     atomic.Int64 // unix nanos of the last frame from the client
	writeMu      sync.Mutex
	writeTimeout time.Duration
}

func (c *Connection) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns when the client last sent any frame.
func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// WriteMessage sends a text frame.
func (c *Connection) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return wsutil.WriteServerMessage(c.Conn, ws.OpText, data)
}

// WritePing sends a protocol-level ping frame, which browsers answer with a
// pong automatically.
func (c *Connection) WritePing() error {
	return c.writeFrame(ws.NewPingFrame(nil))
}

func (c *Connection) writeFrame(f ws.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return ws.WriteFrame(c.Conn, f)
}

// Close closes the underlying network connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// readLoop consumes client frames until the connection fails or the client
// closes it. The feed is server-to-client only, so data frames are
// discarded; every frame counts as activity for the heartbeat.
func (c *Connection) readLoop() error {
	rd := &wsutil.Reader{
		Source:         c.Conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: c.handleControl,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return err
		}
		c.touch()
		if hdr.OpCode.IsControl() {
			if err := c.handleControl(hdr, rd); err != nil {
				return err
			}
			continue
		}
		if err := rd.Discard(); err != nil {
			return err
		}
	}
}

func (c *Connection) handleControl(h ws.Header, r io.Reader) error {
	switch h.OpCode {
	case ws.OpPing:
		payload, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return c.writeFrame(ws.NewPongFrame(payload))
	case ws.OpClose:
		_ = c.writeFrame(ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
		return io.EOF
	}
	return nil
}
