package irc

import (
	"sort"
	"strings"
)

// Channel mode flags.
const (
	ChanModeInviteOnly = 'i'
	ChanModeTopicLock  = 't'
	ChanModeKey        = 'k'
	ChanModeLimit      = 'l'
	ChanModeOperator   = 'o'
)

// JoinResult is the admission verdict for Channel.CanJoin.
type JoinResult int

const (
	JoinOk JoinResult = iota
	JoinInviteOnly
	JoinFull
	JoinBadKey
)

// Channel is a named group of sessions. Membership, the operator set and
// the invite set live here; "which channels is session X in" is answered by
// filtering the server's channel map, so destroying a session never leaves
// a dangling reverse pointer.
type Channel struct {
	name  string
	topic string
	key   string
	limit int

	inviteOnly bool
	topicLock  bool
	hasKey     bool
	hasLimit   bool

	members   map[string]*Client
	operators map[string]bool
	invited   map[string]bool
}

// NewChannel creates an empty channel.
func NewChannel(name string) *Channel {
	return &Channel{
		name:      name,
		members:   make(map[string]*Client),
		operators: make(map[string]bool),
		invited:   make(map[string]bool),
	}
}

// IsValidChannelName reports whether a name may denote a channel: a # or &
// sigil, at most 200 bytes, and no space, comma, or BEL. The empty string
// is rejected before any byte is examined.
func IsValidChannelName(name string) bool {
	if name == "" || len(name) > 200 {
		return false
	}
	if name[0] != '#' && name[0] != '&' {
		return false
	}
	return !strings.ContainsAny(name, " ,\x07")
}

// Name returns the channel name.
func (ch *Channel) Name() string { return ch.name }

// Topic returns the current topic, empty when unset.
func (ch *Channel) Topic() string { return ch.topic }

// SetTopic replaces the topic.
func (ch *Channel) SetTopic(topic string) { ch.topic = topic }

// Empty reports whether no members remain.
func (ch *Channel) Empty() bool { return len(ch.members) == 0 }

// Size returns the member count.
func (ch *Channel) Size() int { return len(ch.members) }

// IsMember reports membership by session identifier.
func (ch *Channel) IsMember(id string) bool {
	_, ok := ch.members[id]
	return ok
}

// IsOperator reports operator status by session identifier.
func (ch *Channel) IsOperator(id string) bool {
	return ch.operators[id]
}

// AddMember inserts a session into the member set.
func (ch *Channel) AddMember(c *Client) {
	ch.members[c.ID] = c
}

// RemoveMember drops a session from the member set and, to keep the
// operator set a subset of the members, from the operator set as well.
func (ch *Channel) RemoveMember(id string) {
	delete(ch.members, id)
	delete(ch.operators, id)
}

// AddOperator grants operator status. Idempotent; the identifier must
// already be a member.
func (ch *Channel) AddOperator(id string) {
	if _, ok := ch.members[id]; ok {
		ch.operators[id] = true
	}
}

// RemoveOperator revokes operator status. Idempotent.
func (ch *Channel) RemoveOperator(id string) {
	delete(ch.operators, id)
}

// AddInvite authorizes an identifier to bypass invite-only mode once.
func (ch *Channel) AddInvite(id string) {
	ch.invited[id] = true
}

// ConsumeInviteIfPresent removes an outstanding invite and reports whether
// one existed.
func (ch *Channel) ConsumeInviteIfPresent(id string) bool {
	if ch.invited[id] {
		delete(ch.invited, id)
		return true
	}
	return false
}

// MemberByNick finds a member session by nickname. Comparison is
// case-sensitive, matching NICK uniqueness.
func (ch *Channel) MemberByNick(nick string) *Client {
	for _, member := range ch.members {
		if member.nickname == nick {
			return member
		}
	}
	return nil
}

// CanJoin evaluates the admission predicate in fixed order: invite-only
// before the user limit, the user limit before the key.
func (ch *Channel) CanJoin(id, suppliedKey string) JoinResult {
	if ch.inviteOnly && !ch.invited[id] {
		return JoinInviteOnly
	}
	if ch.hasLimit && len(ch.members) >= ch.limit {
		return JoinFull
	}
	if ch.hasKey && suppliedKey != ch.key {
		return JoinBadKey
	}
	return JoinOk
}

// Broadcast queues a reply line on every member except excludeID. Pass an
// empty excludeID to reach everyone.
func (ch *Channel) Broadcast(line string, excludeID string) {
	for id, member := range ch.members {
		if id == excludeID {
			continue
		}
		member.sendRaw(line)
	}
}

// NameList returns the space-separated member nicknames, operators
// prefixed with @, in stable sorted order.
func (ch *Channel) NameList() string {
	names := make([]string, 0, len(ch.members))
	for id, member := range ch.members {
		name := member.nickname
		if ch.operators[id] {
			name = "@" + name
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}

// ModeString renders the active flag letters and, when a key is set, the
// key argument, as reported by RPL_CHANNELMODEIS.
func (ch *Channel) ModeString() string {
	flags := "+"
	if ch.inviteOnly {
		flags += "i"
	}
	if ch.topicLock {
		flags += "t"
	}
	if ch.hasKey {
		flags += "k"
	}
	if ch.hasLimit {
		flags += "l"
	}
	if ch.hasKey {
		flags += " " + ch.key
	}
	return flags
}
