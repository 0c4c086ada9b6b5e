package irc

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type handlerFunc func(s *Server, c *Client, m *Message)

// newHandlerRegistry maps upper-case command tokens to their handlers.
func newHandlerRegistry() map[string]handlerFunc {
	return map[string]handlerFunc{
		"PASS":    handlePass,
		"NICK":    handleNick,
		"USER":    handleUser,
		"QUIT":    handleQuit,
		"CAP":     handleCap,
		"PING":    handlePing,
		"PONG":    handlePong,
		"OPER":    handleOper,
		"JOIN":    handleJoin,
		"PART":    handlePart,
		"TOPIC":   handleTopic,
		"KICK":    handleKick,
		"INVITE":  handleInvite,
		"MODE":    handleMode,
		"LIST":    handleList,
		"NAMES":   handleNames,
		"PRIVMSG": handlePrivmsg,
		"NOTICE":  handleNotice,
		"WHOIS":   handleWhois,
		"MOTD":    handleMotd,
		"LUSERS":  handleLusers,
	}
}

// handlePass handles the PASS command.
func handlePass(s *Server, c *Client, m *Message) {
	if len(m.Params) < 1 {
		c.sendError(ERR_NEEDMOREPARAMS, "PASS")
		return
	}
	if c.hasPassword {
		c.sendError(ERR_ALREADYREGISTRED)
		return
	}
	if m.Param(0) != s.password {
		c.sendError(ERR_PASSWDMISMATCH)
		return
	}
	c.hasPassword = true
	s.maybeWelcome(c)
}

// handleNick handles the NICK command. Uniqueness is case-sensitive.
func handleNick(s *Server, c *Client, m *Message) {
	if len(m.Params) < 1 {
		c.sendError(ERR_NONICKNAMEGIVEN)
		return
	}
	nick := m.Param(0)
	if nick == "" || strings.ContainsRune(nick, ' ') {
		c.sendError(ERR_ERRONEUSNICKNAME, nick)
		return
	}
	if other := s.clientByNick(nick); other != nil && other.ID != c.ID {
		c.sendError(ERR_NICKNAMEINUSE, nick)
		return
	}
	if nick == c.nickname {
		return
	}

	oldNick := c.nickname
	if oldNick != "" {
		delete(s.nicks, oldNick)
	}
	c.nickname = nick
	c.hasNick = true
	s.nicks[nick] = c

	if c.Registered() && oldNick != "" {
		// Announce the change to the client and to every shared channel.
		line := fmt.Sprintf(":%s NICK :%s", FormatHostmask(oldNick, c.username, c.hostname), nick)
		c.sendRaw(line)
		for _, ch := range s.channelsOf(c) {
			ch.Broadcast(line, c.ID)
		}
		return
	}
	s.maybeWelcome(c)
}

// handleUser handles the USER command: username, two ignored parameters,
// and the realname as a non-empty trailing.
func handleUser(s *Server, c *Client, m *Message) {
	if len(m.Params) < 3 || !m.HasTrailing || m.Trailing == "" {
		c.sendError(ERR_NEEDMOREPARAMS, "USER")
		return
	}
	if c.hasUser {
		c.sendError(ERR_ALREADYREGISTRED)
		return
	}
	c.username = m.Param(0)
	c.realname = m.Trailing
	c.hasUser = true
	s.maybeWelcome(c)
}

// handleQuit destroys the session. SO_LINGER is zeroed so the close elicits
// an RST; nothing is broadcast.
func handleQuit(s *Server, c *Client, _ *Message) {
	c.lingerRST = true
	s.destroyClient(c, "quit")
}

// handleCap answers capability negotiation with an empty capability set.
// CAP never blocks registration.
func handleCap(s *Server, c *Client, m *Message) {
	switch strings.ToUpper(m.Param(0)) {
	case "LS":
		c.sendRaw(fmt.Sprintf(":%s CAP * LS :", s.name))
	case "LIST":
		c.sendRaw(fmt.Sprintf(":%s CAP * LIST :", s.name))
	case "REQ":
		requested := m.Trailing
		if !m.HasTrailing {
			requested = m.Param(1)
		}
		c.sendRaw(fmt.Sprintf(":%s CAP * NAK :%s", s.name, requested))
	case "END":
	}
}

// handlePing replies PONG with the client's token.
func handlePing(s *Server, c *Client, m *Message) {
	token := m.Param(0)
	if token == "" && m.HasTrailing {
		token = m.Trailing
	}
	if token == "" {
		c.sendError(ERR_NOORIGIN)
		return
	}
	c.sendRaw(fmt.Sprintf(":%s PONG %s :%s", s.name, s.name, token))
}

// handlePong is accepted and ignored.
func handlePong(_ *Server, _ *Client, _ *Message) {}

// handleOper grants server-operator status against the bcrypt credentials
// in the configuration.
func handleOper(s *Server, c *Client, m *Message) {
	if len(m.Params) < 2 {
		c.sendError(ERR_NEEDMOREPARAMS, "OPER")
		return
	}
	username, password := m.Param(0), m.Param(1)
	for _, op := range s.cfg.Operators {
		if op.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)) == nil {
			c.isOper = true
			c.sendNumeric(RPL_YOUREOPER, ":You are now an IRC operator")
			s.log.Info().Str("nick", c.nickname).Str("oper", username).Msg("operator authenticated")
			return
		}
		break
	}
	c.sendError(ERR_PASSWDMISMATCH)
}

// maybeWelcome emits the welcome burst the first time a session becomes
// fully registered. The welcomed set guarantees exactly-once delivery.
func (s *Server) maybeWelcome(c *Client) {
	if !c.Registered() || s.welcomed[c.ID] {
		return
	}
	s.welcomed[c.ID] = true

	c.sendNumeric(RPL_WELCOME, fmt.Sprintf(":Welcome to the Internet Relay Network %s", c.hostmask()))
	c.sendNumeric(RPL_YOURHOST, fmt.Sprintf(":Your host is %s, running version %s", s.name, serverVersion))
	c.sendNumeric(RPL_CREATED, fmt.Sprintf(":This server was created %s", s.created.Format(time.RFC1123)))
	c.sendNumeric(RPL_MYINFO, fmt.Sprintf("%s %s o itkl", s.name, serverVersion))
	c.sendNumeric(RPL_ISUPPORT, fmt.Sprintf(
		"CHANTYPES=#& CHANMODES=ik,l,,t CHANLIMIT=#&:%d PREFIX=(o)@ CASEMAPPING=ascii NETWORK=%s :are supported by this server",
		s.cfg.Limits.MaxChannels, s.network))

	s.sendMotd(c)
	s.log.Info().Str("nick", c.nickname).Str("host", c.hostname).Msg("client registered")
}

// sendMotd emits the 375/372/376 burst from the configured MOTD lines.
func (s *Server) sendMotd(c *Client) {
	c.sendNumeric(RPL_MOTDSTART, fmt.Sprintf(":- %s Message of the Day -", s.name))
	for _, line := range s.cfg.Server.MOTD {
		c.sendNumeric(RPL_MOTD, ":- "+line)
	}
	c.sendNumeric(RPL_ENDOFMOTD, ":End of MOTD command")
}

const serverVersion = "ircd-1.0"
