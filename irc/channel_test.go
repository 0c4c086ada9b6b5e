package irc

import (
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presbrey/ircd/irc/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(config.Default(), zerolog.Nop())
}

func newTestMember(t *testing.T, s *Server, nick string) *Client {
	t.Helper()
	left, right := net.Pipe()
	t.Cleanup(func() {
		left.Close()
		right.Close()
	})
	c := newClient(s, left, 64)
	c.nickname = nick
	return c
}

func TestIsValidChannelName(t *testing.T) {
	assert.True(t, IsValidChannelName("#"))
	assert.True(t, IsValidChannelName("#chat"))
	assert.True(t, IsValidChannelName("&local"))
	assert.False(t, IsValidChannelName(""))
	assert.False(t, IsValidChannelName("xchat"))
	assert.False(t, IsValidChannelName("#has space"))
	assert.False(t, IsValidChannelName("#has,comma"))
	assert.False(t, IsValidChannelName("#has\x07bell"))
	assert.False(t, IsValidChannelName("#"+string(make([]byte, 200))))
}

func TestChannelOperatorsSubsetOfMembers(t *testing.T) {
	s := newTestServer(t)
	ch := NewChannel("#c")
	alice := newTestMember(t, s, "alice")

	// Operator status requires membership.
	ch.AddOperator(alice.ID)
	assert.False(t, ch.IsOperator(alice.ID))

	ch.AddMember(alice)
	ch.AddOperator(alice.ID)
	assert.True(t, ch.IsOperator(alice.ID))

	// Removing the member removes the operator grant.
	ch.RemoveMember(alice.ID)
	assert.False(t, ch.IsOperator(alice.ID))
	assert.True(t, ch.Empty())
}

func TestChannelCanJoinOrder(t *testing.T) {
	s := newTestServer(t)
	ch := NewChannel("#c")
	alice := newTestMember(t, s, "alice")
	ch.AddMember(alice)

	ch.inviteOnly = true
	ch.hasLimit = true
	ch.limit = 1
	ch.hasKey = true
	ch.key = "sekret"

	// Invite-only is checked first, then the limit, then the key.
	assert.Equal(t, JoinInviteOnly, ch.CanJoin("bob-id", "wrong"))

	ch.AddInvite("bob-id")
	assert.Equal(t, JoinFull, ch.CanJoin("bob-id", "wrong"))

	ch.limit = 10
	assert.Equal(t, JoinBadKey, ch.CanJoin("bob-id", "wrong"))

	assert.Equal(t, JoinOk, ch.CanJoin("bob-id", "sekret"))
}

func TestChannelInviteConsumedOnce(t *testing.T) {
	ch := NewChannel("#c")
	ch.AddInvite("id-1")
	assert.True(t, ch.ConsumeInviteIfPresent("id-1"))
	assert.False(t, ch.ConsumeInviteIfPresent("id-1"))
	assert.False(t, ch.ConsumeInviteIfPresent("id-2"))
}

func TestChannelNameList(t *testing.T) {
	s := newTestServer(t)
	ch := NewChannel("#c")
	alice := newTestMember(t, s, "alice")
	bob := newTestMember(t, s, "bob")
	ch.AddMember(alice)
	ch.AddMember(bob)
	ch.AddOperator(alice.ID)

	assert.Equal(t, "@alice bob", ch.NameList())
}

func TestChannelBroadcastExcludesSender(t *testing.T) {
	s := newTestServer(t)
	ch := NewChannel("#c")
	alice := newTestMember(t, s, "alice")
	bob := newTestMember(t, s, "bob")
	ch.AddMember(alice)
	ch.AddMember(bob)

	ch.Broadcast(":alice!a@h PRIVMSG #c :hi", alice.ID)

	assert.False(t, alice.HasPendingOutput())
	require.True(t, bob.HasPendingOutput())
	assert.Equal(t, ":alice!a@h PRIVMSG #c :hi\r\n", string(<-bob.out))
}

func TestChannelBroadcastOrdering(t *testing.T) {
	s := newTestServer(t)
	ch := NewChannel("#c")
	bob := newTestMember(t, s, "bob")
	ch.AddMember(bob)

	ch.Broadcast("first", "")
	ch.Broadcast("second", "")

	assert.Equal(t, "first\r\n", string(<-bob.out))
	assert.Equal(t, "second\r\n", string(<-bob.out))
}

func TestChannelModeString(t *testing.T) {
	ch := NewChannel("#c")
	assert.Equal(t, "+", ch.ModeString())

	ch.inviteOnly = true
	ch.topicLock = true
	assert.Equal(t, "+it", ch.ModeString())

	ch.hasKey = true
	ch.key = "sekret"
	ch.hasLimit = true
	assert.Equal(t, "+itkl sekret", ch.ModeString())
}

func TestChannelMemberByNick(t *testing.T) {
	s := newTestServer(t)
	ch := NewChannel("#c")
	alice := newTestMember(t, s, "alice")
	ch.AddMember(alice)

	assert.Equal(t, alice, ch.MemberByNick("alice"))
	assert.Nil(t, ch.MemberByNick("ALICE"))
	assert.Nil(t, ch.MemberByNick("bob"))
}
