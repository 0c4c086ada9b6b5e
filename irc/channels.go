package irc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// handleJoin handles the JOIN command: admission checks, auto-creation with
// the first member as operator, the JOIN broadcast, and the topic/NAMES
// burst to the joiner.
func handleJoin(s *Server, c *Client, m *Message) {
	if len(m.Params) < 1 {
		c.sendError(ERR_NEEDMOREPARAMS, "JOIN")
		return
	}
	name := m.Param(0)
	key := m.Param(1)

	if !IsValidChannelName(name) {
		c.sendError(ERR_BADCHANMASK, name)
		return
	}
	if len(s.channelsOf(c)) >= s.cfg.Limits.MaxChannels {
		c.sendError(ERR_TOOMANYCHANNELS, name)
		return
	}

	ch, exists := s.channels[name]
	if !exists {
		ch = NewChannel(name)
		s.channels[name] = ch
		s.stats.channelCreated()
		ch.AddMember(c)
		ch.AddOperator(c.ID)
		s.log.Debug().Str("channel", name).Str("nick", c.nickname).Msg("channel created")
	} else {
		if ch.IsMember(c.ID) {
			return
		}
		switch ch.CanJoin(c.ID, key) {
		case JoinInviteOnly:
			c.sendError(ERR_INVITEONLYCHAN, name)
			return
		case JoinFull:
			c.sendError(ERR_CHANNELISFULL, name)
			return
		case JoinBadKey:
			c.sendError(ERR_BADCHANNELKEY, name)
			return
		}
		ch.ConsumeInviteIfPresent(c.ID)
		ch.AddMember(c)
	}

	ch.Broadcast(fmt.Sprintf(":%s JOIN :%s", c.hostmask(), name), "")

	if ch.Topic() != "" {
		c.sendNumeric(RPL_TOPIC, fmt.Sprintf("%s :%s", name, ch.Topic()))
	}
	sendNames(c, ch)
}

// handlePart handles the PART command, deleting the channel when the last
// member leaves.
func handlePart(s *Server, c *Client, m *Message) {
	if len(m.Params) < 1 {
		c.sendError(ERR_NEEDMOREPARAMS, "PART")
		return
	}
	name := m.Param(0)

	ch, exists := s.channels[name]
	if !exists {
		c.sendError(ERR_NOSUCHCHANNEL, name)
		return
	}
	if !ch.IsMember(c.ID) {
		c.sendError(ERR_NOTONCHANNEL, name)
		return
	}

	line := fmt.Sprintf(":%s PART %s", c.hostmask(), name)
	if m.HasTrailing {
		line += " :" + m.Trailing
	}
	ch.Broadcast(line, "")

	ch.RemoveMember(c.ID)
	if ch.Empty() {
		delete(s.channels, name)
		s.stats.channelDeleted()
		s.log.Debug().Str("channel", name).Msg("channel deleted")
	}
}

// handleTopic queries or changes a channel topic. Changing a +t topic
// requires channel-operator status.
func handleTopic(s *Server, c *Client, m *Message) {
	if len(m.Params) < 1 {
		c.sendError(ERR_NEEDMOREPARAMS, "TOPIC")
		return
	}
	name := m.Param(0)

	ch, exists := s.channels[name]
	if !exists {
		c.sendError(ERR_NOSUCHCHANNEL, name)
		return
	}
	if !ch.IsMember(c.ID) {
		c.sendError(ERR_NOTONCHANNEL, name)
		return
	}

	if len(m.Params) < 2 && !m.HasTrailing {
		if ch.Topic() == "" {
			c.sendNumeric(RPL_NOTOPIC, fmt.Sprintf("%s :No topic is set", name))
		} else {
			c.sendNumeric(RPL_TOPIC, fmt.Sprintf("%s :%s", name, ch.Topic()))
		}
		return
	}

	if ch.topicLock && !ch.IsOperator(c.ID) && !c.isOper {
		c.sendError(ERR_CHANOPRIVSNEEDED, name)
		return
	}

	topic := m.Trailing
	if !m.HasTrailing {
		topic = m.Param(1)
	}
	ch.SetTopic(topic)
	ch.Broadcast(fmt.Sprintf(":%s TOPIC %s :%s", c.hostmask(), name, topic), "")
}

// handleKick removes a member from a channel. The KICK line reaches every
// member, the target included, before the removal.
func handleKick(s *Server, c *Client, m *Message) {
	if len(m.Params) < 2 {
		c.sendError(ERR_NEEDMOREPARAMS, "KICK")
		return
	}
	name := m.Param(0)
	targetNick := m.Param(1)

	ch, exists := s.channels[name]
	if !exists {
		c.sendError(ERR_NOSUCHCHANNEL, name)
		return
	}
	if !ch.IsMember(c.ID) {
		c.sendError(ERR_NOTONCHANNEL, name)
		return
	}
	if !ch.IsOperator(c.ID) && !c.isOper {
		c.sendError(ERR_CHANOPRIVSNEEDED, name)
		return
	}
	target := s.clientByNick(targetNick)
	if target == nil {
		c.sendError(ERR_NOSUCHNICK, targetNick)
		return
	}
	if !ch.IsMember(target.ID) {
		c.sendError(ERR_USERNOTINCHANNEL, targetNick, name)
		return
	}

	reason := m.Trailing
	if !m.HasTrailing || reason == "" {
		reason = c.nickname
	}
	ch.Broadcast(fmt.Sprintf(":%s KICK %s %s :%s", c.hostmask(), name, targetNick, reason), "")

	ch.RemoveMember(target.ID)
	if ch.Empty() {
		delete(s.channels, name)
		s.stats.channelDeleted()
	}
}

// handleInvite records an invite so the target can pass a +i admission
// check once.
func handleInvite(s *Server, c *Client, m *Message) {
	if len(m.Params) < 2 {
		c.sendError(ERR_NEEDMOREPARAMS, "INVITE")
		return
	}
	targetNick := m.Param(0)
	name := m.Param(1)

	ch, exists := s.channels[name]
	if !exists {
		c.sendError(ERR_NOSUCHCHANNEL, name)
		return
	}
	if !ch.IsMember(c.ID) {
		c.sendError(ERR_NOTONCHANNEL, name)
		return
	}
	if !ch.IsOperator(c.ID) && !c.isOper {
		c.sendError(ERR_CHANOPRIVSNEEDED, name)
		return
	}
	target := s.clientByNick(targetNick)
	if target == nil {
		c.sendError(ERR_NOSUCHNICK, targetNick)
		return
	}
	if ch.IsMember(target.ID) {
		c.sendError(ERR_USERONCHANNEL, targetNick, name)
		return
	}

	ch.AddInvite(target.ID)
	target.sendRaw(fmt.Sprintf(":%s INVITE %s :%s", c.hostmask(), targetNick, name))
	c.sendNumeric(RPL_INVITING, fmt.Sprintf("%s %s", targetNick, name))
}

// handleMode queries or changes channel modes. Mode letters are processed
// left to right under the current sign; a single composite MODE line
// summarizing the accepted changes is broadcast afterwards.
func handleMode(s *Server, c *Client, m *Message) {
	if len(m.Params) < 1 {
		c.sendError(ERR_NEEDMOREPARAMS, "MODE")
		return
	}
	name := m.Param(0)

	ch, exists := s.channels[name]
	if !exists {
		c.sendError(ERR_NOSUCHCHANNEL, name)
		return
	}

	if len(m.Params) < 2 {
		c.sendNumeric(RPL_CHANNELMODEIS, fmt.Sprintf("%s %s", name, ch.ModeString()))
		return
	}

	if !ch.IsOperator(c.ID) && !c.isOper {
		c.sendError(ERR_CHANOPRIVSNEEDED, name)
		return
	}

	modeStr := m.Param(1)
	args := m.Params[2:]
	argIndex := 0
	nextArg := func() (string, bool) {
		if argIndex < len(args) {
			arg := args[argIndex]
			argIndex++
			return arg, true
		}
		return "", false
	}

	adding := true
	var applied strings.Builder
	var appliedArgs []string
	appliedSign := byte(0)
	record := func(mode byte, arg string) {
		sign := byte('-')
		if adding {
			sign = '+'
		}
		if appliedSign != sign {
			applied.WriteByte(sign)
			appliedSign = sign
		}
		applied.WriteByte(mode)
		if arg != "" {
			appliedArgs = append(appliedArgs, arg)
		}
	}

	for i := 0; i < len(modeStr); i++ {
		switch mode := modeStr[i]; mode {
		case '+':
			adding = true
		case '-':
			adding = false
		case ChanModeInviteOnly:
			ch.inviteOnly = adding
			record(mode, "")
		case ChanModeTopicLock:
			ch.topicLock = adding
			record(mode, "")
		case ChanModeKey:
			if adding {
				arg, ok := nextArg()
				if !ok {
					continue
				}
				if ch.hasKey {
					c.sendError(ERR_KEYSET, name)
					continue
				}
				ch.key = arg
				ch.hasKey = true
				record(mode, arg)
			} else {
				ch.key = ""
				ch.hasKey = false
				record(mode, "")
			}
		case ChanModeLimit:
			if adding {
				arg, ok := nextArg()
				if !ok {
					continue
				}
				limit, err := strconv.Atoi(arg)
				if err != nil || limit <= 0 {
					continue
				}
				ch.limit = limit
				ch.hasLimit = true
				record(mode, arg)
			} else {
				ch.limit = 0
				ch.hasLimit = false
				record(mode, "")
			}
		case ChanModeOperator:
			arg, ok := nextArg()
			if !ok {
				continue
			}
			member := ch.MemberByNick(arg)
			if member == nil {
				continue
			}
			if adding {
				ch.AddOperator(member.ID)
			} else {
				ch.RemoveOperator(member.ID)
			}
			record(mode, arg)
		default:
			c.sendError(ERR_UNKNOWNMODE, string(mode))
		}
	}

	if applied.Len() > 0 {
		line := fmt.Sprintf(":%s MODE %s %s", c.hostmask(), name, applied.String())
		if len(appliedArgs) > 0 {
			line += " " + strings.Join(appliedArgs, " ")
		}
		ch.Broadcast(line, "")
	}
}

// handleList enumerates every channel with its member count and topic.
func handleList(s *Server, c *Client, _ *Message) {
	c.sendNumeric(RPL_LISTSTART, "Channel :Users  Name")

	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ch := s.channels[name]
		topic := ch.Topic()
		if topic == "" {
			topic = "No topic"
		}
		c.sendNumeric(RPL_LIST, fmt.Sprintf("%s %d :%s", name, ch.Size(), topic))
	}
	c.sendNumeric(RPL_LISTEND, ":End of LIST")
}

// handleNames lists a channel's members, operators prefixed with @.
func handleNames(s *Server, c *Client, m *Message) {
	if len(m.Params) < 1 {
		c.sendError(ERR_NEEDMOREPARAMS, "NAMES")
		return
	}
	name := m.Param(0)

	ch, exists := s.channels[name]
	if !exists {
		c.sendError(ERR_NOSUCHCHANNEL, name)
		return
	}
	sendNames(c, ch)
}

func sendNames(c *Client, ch *Channel) {
	c.sendNumeric(RPL_NAMREPLY, fmt.Sprintf("= %s :%s", ch.Name(), ch.NameList()))
	c.sendNumeric(RPL_ENDOFNAMES, fmt.Sprintf("%s :End of NAMES list", ch.Name()))
}
