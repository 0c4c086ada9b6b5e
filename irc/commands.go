package irc

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// handlePrivmsg relays a message to a channel (fan-out excluding the
// sender) or to a single nickname.
func handlePrivmsg(s *Server, c *Client, m *Message) {
	if len(m.Params) < 1 {
		c.sendError(ERR_NORECIPIENT, "PRIVMSG")
		return
	}
	if !m.HasTrailing || m.Trailing == "" {
		c.sendError(ERR_NOTEXTTOSEND)
		return
	}
	target := m.Param(0)
	line := fmt.Sprintf(":%s PRIVMSG %s :%s", c.hostmask(), target, m.Trailing)

	if target[0] == '#' || target[0] == '&' {
		ch, exists := s.channels[target]
		if !exists {
			c.sendError(ERR_NOSUCHCHANNEL, target)
			return
		}
		if !ch.IsMember(c.ID) {
			c.sendError(ERR_CANNOTSENDTOCHAN, target)
			return
		}
		ch.Broadcast(line, c.ID)
		return
	}

	peer := s.clientByNick(target)
	if peer == nil {
		c.sendError(ERR_NOSUCHNICK, target)
		return
	}
	peer.sendRaw(line)
}

// handleNotice mirrors PRIVMSG but never generates error replies.
func handleNotice(s *Server, c *Client, m *Message) {
	if len(m.Params) < 1 || !m.HasTrailing || m.Trailing == "" {
		return
	}
	target := m.Param(0)
	line := fmt.Sprintf(":%s NOTICE %s :%s", c.hostmask(), target, m.Trailing)

	if target[0] == '#' || target[0] == '&' {
		ch, exists := s.channels[target]
		if !exists || !ch.IsMember(c.ID) {
			return
		}
		ch.Broadcast(line, c.ID)
		return
	}

	if peer := s.clientByNick(target); peer != nil {
		peer.sendRaw(line)
	}
}

// handleWhois reports user, server, channel and idle information for a
// nickname.
func handleWhois(s *Server, c *Client, m *Message) {
	if len(m.Params) < 1 {
		c.sendError(ERR_NONICKNAMEGIVEN)
		return
	}
	nick := m.Param(0)

	target := s.clientByNick(nick)
	if target == nil {
		c.sendError(ERR_NOSUCHNICK, nick)
		c.sendNumeric(RPL_ENDOFWHOIS, fmt.Sprintf("%s :End of WHOIS list", nick))
		return
	}

	c.sendNumeric(RPL_WHOISUSER, fmt.Sprintf("%s %s %s * :%s",
		target.nickname, target.username, target.hostname, target.realname))
	c.sendNumeric(RPL_WHOISSERVER, fmt.Sprintf("%s %s :%s",
		target.nickname, s.name, s.cfg.Server.Description))

	var names []string
	for _, ch := range s.channelsOf(target) {
		name := ch.Name()
		if ch.IsOperator(target.ID) {
			name = "@" + name
		}
		names = append(names, name)
	}
	if len(names) > 0 {
		sort.Strings(names)
		c.sendNumeric(RPL_WHOISCHANNELS, fmt.Sprintf("%s :%s", target.nickname, strings.Join(names, " ")))
	}

	c.sendNumeric(RPL_WHOISIDLE, fmt.Sprintf("%s %d %d :seconds idle, signon time",
		target.nickname, int(time.Since(target.lastActivity).Seconds()), target.connectedAt.Unix()))
	c.sendNumeric(RPL_ENDOFWHOIS, fmt.Sprintf("%s :End of WHOIS list", target.nickname))
}

// handleMotd replays the message of the day on demand.
func handleMotd(s *Server, c *Client, _ *Message) {
	s.sendMotd(c)
}

// handleLusers reports user and channel counts.
func handleLusers(s *Server, c *Client, _ *Message) {
	registered := 0
	for _, client := range s.sessions {
		if client.Registered() {
			registered++
		}
	}
	opers := 0
	for _, client := range s.sessions {
		if client.isOper {
			opers++
		}
	}

	c.sendNumeric(RPL_LUSERCLIENT, fmt.Sprintf(":There are %d users and 0 invisible on 1 servers", registered))
	c.sendNumeric(RPL_LUSEROP, fmt.Sprintf("%d :IRC Operators online", opers))
	c.sendNumeric(RPL_LUSERCHANNELS, fmt.Sprintf("%d :channels formed", len(s.channels)))
	c.sendNumeric(RPL_LUSERME, fmt.Sprintf(":I have %d clients and 1 servers", len(s.sessions)))
}
