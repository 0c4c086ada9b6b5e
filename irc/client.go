package irc

import (
	"bytes"
	"net"
	"time"

	"github.com/google/uuid"
)

// readBufferSize matches the protocol's 512-byte message cap.
const readBufferSize = 512

// Client represents one connected session. Its registration state, nickname
// and channel membership are owned exclusively by the server loop; the
// inbound buffer is touched only by the session's reader goroutine and the
// outbound queue is drained only by its writer goroutine.
type Client struct {
	ID     string
	conn   net.Conn
	server *Server

	hasPassword bool
	hasNick     bool
	hasUser     bool

	nickname string
	username string
	realname string
	hostname string
	isOper   bool

	connectedAt  time.Time
	lastActivity time.Time

	inbound []byte

	out       chan []byte
	outClosed bool
	destroyed bool
	overflow  bool
	lingerRST bool
}

// newClient wraps an accepted connection in a session. sendQueue bounds the
// outbound queue in lines; a session that exceeds it is destroyed.
func newClient(server *Server, conn net.Conn, sendQueue int) *Client {
	return &Client{
		ID:           uuid.New().String(),
		conn:         conn,
		server:       server,
		hostname:     hostnameFor(conn),
		connectedAt:  time.Now(),
		lastActivity: time.Now(),
		out:          make(chan []byte, sendQueue),
	}
}

// hostnameFor derives the hostname shown in prefixes from the peer address.
func hostnameFor(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	if host == "127.0.0.1" || host == "::1" {
		return "localhost"
	}
	return host
}

// Registered reports whether the session finished the PASS/NICK/USER
// handshake. It is derived, never stored, so the three flags and the
// registration state cannot diverge.
func (c *Client) Registered() bool {
	return c.hasPassword && c.hasNick && c.hasUser
}

// Nickname returns the session's nickname, empty until NICK succeeds.
func (c *Client) Nickname() string {
	return c.nickname
}

// hostmask renders the nick!user@host source prefix for this session.
func (c *Client) hostmask() string {
	return FormatHostmask(c.nickname, c.username, c.hostname)
}

// AppendInbound concatenates freshly read bytes onto the inbound buffer.
func (c *Client) AppendInbound(data []byte) {
	c.inbound = append(c.inbound, data...)
}

// HasCompleteLine reports whether the inbound buffer holds at least one LF.
func (c *Client) HasCompleteLine() bool {
	return bytes.IndexByte(c.inbound, '\n') >= 0
}

// ExtractLine removes and returns the bytes up to the first LF, stripping
// the LF and a trailing CR from the returned value. It returns nil when no
// complete line is buffered.
func (c *Client) ExtractLine() []byte {
	pos := bytes.IndexByte(c.inbound, '\n')
	if pos < 0 {
		return nil
	}
	line := c.inbound[:pos]
	c.inbound = append([]byte(nil), c.inbound[pos+1:]...)
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return append([]byte(nil), line...)
}

// QueueOutput appends one fully-formed wire line (CRLF included) to the
// outbound queue. It reports false when the queue is full; the server loop
// destroys sessions that overflow.
func (c *Client) QueueOutput(line []byte) bool {
	if c.outClosed {
		return true
	}
	select {
	case c.out <- line:
		return true
	default:
		return false
	}
}

// HasPendingOutput reports whether unsent lines remain queued.
func (c *Client) HasPendingOutput() bool {
	return len(c.out) > 0
}

// sendRaw queues a reply line, appending the CRLF terminator. Called only
// from the server loop; an overflowing session is flagged for destruction.
func (c *Client) sendRaw(line string) {
	if c.destroyed {
		return
	}
	if !c.QueueOutput([]byte(line + "\r\n")) {
		c.noteOverflow()
		return
	}
	c.server.stats.messageSent()
}

// sendNumeric queues a numeric reply. The target is the session's nickname
// or "*" before one is known.
func (c *Client) sendNumeric(code int, payload string) {
	target := c.nickname
	if target == "" {
		target = "*"
	}
	line := FormatReply(c.server.name, fmtNumeric(code), target, payload)
	if c.destroyed {
		return
	}
	if !c.QueueOutput([]byte(line)) {
		c.noteOverflow()
		return
	}
	c.server.stats.messageSent()
}

// noteOverflow flags the session for destruction once the current handler
// returns. A slow consumer cannot grow its queue without bound.
func (c *Client) noteOverflow() {
	if c.overflow {
		return
	}
	c.overflow = true
	c.server.noteOverflow(c)
}

// sendError queues an error numeric, pulling the payload from the numeric
// table so call sites pass only the variable parts.
func (c *Client) sendError(code int, args ...interface{}) {
	c.sendNumeric(code, numericPayload(code, args...))
}

func fmtNumeric(code int) string {
	digits := []byte{'0', '0', '0'}
	for i := 2; i >= 0 && code > 0; i-- {
		digits[i] = byte('0' + code%10)
		code /= 10
	}
	return string(digits)
}

// readLoop frames lines out of the TCP byte stream and forwards each to the
// server loop. It owns the inbound buffer. A read error or peer close ends
// the session.
func (c *Client) readLoop() {
	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.AppendInbound(buf[:n])
			for c.HasCompleteLine() {
				line := c.ExtractLine()
				c.server.events <- event{kind: eventLine, client: c, line: line}
			}
		}
		if err != nil {
			c.server.events <- event{kind: eventHangup, client: c, err: err}
			return
		}
	}
}

// writeLoop drains the outbound queue in FIFO order. net.Conn.Write loops
// over short sends internally, so a return means the whole line went out or
// the connection is dead. When the queue closes the remaining lines are
// flushed before the socket is closed, so short-lived clients observe their
// replies.
func (c *Client) writeLoop() {
	for data := range c.out {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.conn.Write(data); err != nil {
			c.server.events <- event{kind: eventHangup, client: c, err: err}
			for range c.out {
			}
			c.conn.Close()
			return
		}
	}
	if c.lingerRST {
		if tcp, ok := c.conn.(*net.TCPConn); ok {
			tcp.SetLinger(0)
		}
	}
	c.conn.Close()
}

const writeTimeout = 30 * time.Second
