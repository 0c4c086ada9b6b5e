package irc

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return newClient(nil, server, 64)
}

func TestClientInboundFraming(t *testing.T) {
	c := newTestClient(t)

	c.AppendInbound([]byte("NICK al"))
	assert.False(t, c.HasCompleteLine())
	assert.Nil(t, c.ExtractLine())

	c.AppendInbound([]byte("ice\r\nUSER alice 0 * :Alice A\r\n"))
	require.True(t, c.HasCompleteLine())

	line := c.ExtractLine()
	assert.Equal(t, "NICK alice", string(line))

	require.True(t, c.HasCompleteLine())
	line = c.ExtractLine()
	assert.Equal(t, "USER alice 0 * :Alice A", string(line))

	assert.False(t, c.HasCompleteLine())
}

func TestClientInboundBareLF(t *testing.T) {
	c := newTestClient(t)
	c.AppendInbound([]byte("PING token\n"))
	assert.Equal(t, "PING token", string(c.ExtractLine()))
}

func TestClientOutboundQueue(t *testing.T) {
	c := newTestClient(t)
	assert.False(t, c.HasPendingOutput())

	require.True(t, c.QueueOutput([]byte("one\r\n")))
	require.True(t, c.QueueOutput([]byte("two\r\n")))
	assert.True(t, c.HasPendingOutput())

	assert.Equal(t, "one\r\n", string(<-c.out))
	assert.Equal(t, "two\r\n", string(<-c.out))
	assert.False(t, c.HasPendingOutput())
}

func TestClientOutboundOverflow(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := newClient(nil, server, 2)
	assert.True(t, c.QueueOutput([]byte("a")))
	assert.True(t, c.QueueOutput([]byte("b")))
	assert.False(t, c.QueueOutput([]byte("c")))
}

func TestClientRegisteredIsDerived(t *testing.T) {
	c := newTestClient(t)
	assert.False(t, c.Registered())

	c.hasPassword = true
	assert.False(t, c.Registered())
	c.hasNick = true
	assert.False(t, c.Registered())
	c.hasUser = true
	assert.True(t, c.Registered())

	c.hasPassword = false
	assert.False(t, c.Registered())
}

func TestFmtNumeric(t *testing.T) {
	assert.Equal(t, "001", fmtNumeric(1))
	assert.Equal(t, "061", fmtNumeric(61))
	assert.Equal(t, "433", fmtNumeric(433))
}
