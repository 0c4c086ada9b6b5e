package irc

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/presbrey/ircd/irc/config"
)

type eventKind int

const (
	eventConnect eventKind = iota
	eventLine
	eventHangup
)

// event is the unit of work delivered to the server loop. Connect events
// come from the accept goroutine, line and hangup events from per-session
// reader and writer goroutines.
type event struct {
	kind   eventKind
	client *Client
	line   []byte
	err    error
}

// Server owns every piece of mutable chat state: the session collection,
// the nickname index, the channel map and the welcomed set. All of it is
// mutated exclusively on the run goroutine, so handlers execute one at a
// time and need no locks; each command's effect is fully visible before the
// next command from any client is processed.
type Server struct {
	cfg *config.Config
	log zerolog.Logger

	name     string
	network  string
	password string
	created  time.Time

	listener net.Listener
	events   chan event
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	sessions map[string]*Client
	nicks    map[string]*Client
	channels map[string]*Channel
	welcomed map[string]bool

	overflowed []*Client

	handlers map[string]handlerFunc
	stats    *Stats
}

// NewServer assembles a server from configuration. Start must be called
// before it accepts connections.
func NewServer(cfg *config.Config, log zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		name:     cfg.Server.Name,
		network:  cfg.Server.Network,
		password: cfg.Server.Password,
		created:  time.Now(),
		events:   make(chan event, 256),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		sessions: make(map[string]*Client),
		nicks:    make(map[string]*Client),
		channels: make(map[string]*Channel),
		welcomed: make(map[string]bool),
		stats:    newStats(),
	}
	s.handlers = newHandlerRegistry()
	return s
}

// Start binds the IPv4 listener and launches the accept and event loops.
// A bind failure is fatal to the caller.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp4", s.cfg.ListenAddress())
	if err != nil {
		return fmt.Errorf("failed to start IRC listener: %w", err)
	}
	s.listener = listener
	s.log.Info().Str("addr", listener.Addr().String()).Msg("IRC server started")

	go s.acceptLoop()
	go s.run()
	return nil
}

// Stop shuts the server down: the loop destroys every remaining session,
// then the listener is closed. No graceful broadcast is attempted.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		<-s.done
		if s.listener != nil {
			s.listener.Close()
		}
		s.log.Info().Msg("IRC server stopped")
	})
}

// Addr returns the bound listener address, useful with port 0 in tests.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stats exposes the runtime counters for the admin endpoint.
func (s *Server) Stats() *Stats {
	return s.stats
}

// acceptLoop accepts all pending connections and registers each with the
// event loop. Accept errors after shutdown end the loop silently.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error().Err(err).Msg("error accepting connection")
			continue
		}
		client := newClient(s, conn, s.cfg.Limits.SendQueue)
		s.events <- event{kind: eventConnect, client: client}
	}
}

// run is the event loop. It is the only goroutine that touches sessions,
// nicks, channels and the welcomed set.
func (s *Server) run() {
	for {
		select {
		case <-s.quit:
			for _, client := range s.sessionList() {
				s.destroyClient(client, "server shutting down")
			}
			close(s.done)
			return
		case ev := <-s.events:
			switch ev.kind {
			case eventConnect:
				s.sessions[ev.client.ID] = ev.client
				s.stats.clientConnected()
				go ev.client.readLoop()
				go ev.client.writeLoop()
				s.log.Debug().Str("host", ev.client.hostname).Msg("client connected")
			case eventLine:
				if _, ok := s.sessions[ev.client.ID]; !ok {
					continue
				}
				s.dispatch(ev.client, ev.line)
				s.reapOverflowed()
			case eventHangup:
				if _, ok := s.sessions[ev.client.ID]; !ok {
					continue
				}
				s.log.Debug().Str("host", ev.client.hostname).Err(ev.err).Msg("client hung up")
				s.destroyClient(ev.client, "connection closed")
			}
		}
	}
}

// dispatch parses one line and routes it to its handler. Malformed lines
// are dropped without a reply so adversarial input cannot amplify.
func (s *Server) dispatch(c *Client, line []byte) {
	s.stats.messageReceived()

	msg := ParseMessage(string(line))
	if msg == nil {
		s.log.Debug().Str("host", c.hostname).Msg("dropped malformed line")
		return
	}
	c.lastActivity = time.Now()

	if !c.Registered() && !preRegistrationCommand(msg.Command) {
		c.sendError(ERR_NOTREGISTERED)
		return
	}

	handler, ok := s.handlers[msg.Command]
	if !ok {
		c.sendError(ERR_UNKNOWNCOMMAND, msg.Command)
		return
	}
	handler(s, c, msg)
}

// preRegistrationCommand reports whether a command may run before the
// PASS/NICK/USER handshake completes.
func preRegistrationCommand(cmd string) bool {
	switch cmd {
	case "PASS", "NICK", "USER", "QUIT", "CAP":
		return true
	}
	return false
}

// noteOverflow records a session whose outbound queue filled so the loop
// can destroy it once the current handler returns.
func (s *Server) noteOverflow(c *Client) {
	s.overflowed = append(s.overflowed, c)
}

func (s *Server) reapOverflowed() {
	for _, c := range s.overflowed {
		if _, ok := s.sessions[c.ID]; ok {
			s.stats.sessionDropped()
			s.log.Warn().Str("nick", c.nickname).Msg("send queue overflow, dropping session")
			s.destroyClient(c, "send queue overflow")
		}
	}
	s.overflowed = s.overflowed[:0]
}

// destroyClient tears a session down: it leaves every channel (deleting
// channels left empty), disappears from the session collection, the nick
// index and the welcomed set, and its outbound queue is closed so the
// writer flushes pending replies and closes the socket.
func (s *Server) destroyClient(c *Client, reason string) {
	if _, ok := s.sessions[c.ID]; !ok {
		return
	}
	delete(s.sessions, c.ID)
	if c.nickname != "" {
		delete(s.nicks, c.nickname)
	}
	delete(s.welcomed, c.ID)

	for name, ch := range s.channels {
		ch.RemoveMember(c.ID)
		if ch.Empty() {
			delete(s.channels, name)
			s.stats.channelDeleted()
		}
	}

	c.destroyed = true
	if !c.outClosed {
		c.outClosed = true
		close(c.out)
	}
	s.stats.clientGone()
	s.log.Debug().Str("nick", c.nickname).Str("reason", reason).Msg("session destroyed")
}

// clientByNick resolves a nickname to a session, case-sensitively.
func (s *Server) clientByNick(nick string) *Client {
	return s.nicks[nick]
}

// channelsOf filters the channel map for the session's memberships.
func (s *Server) channelsOf(c *Client) []*Channel {
	var out []*Channel
	for _, ch := range s.channels {
		if ch.IsMember(c.ID) {
			out = append(out, ch)
		}
	}
	return out
}

func (s *Server) sessionList() []*Client {
	out := make([]*Client, 0, len(s.sessions))
	for _, c := range s.sessions {
		out = append(out, c)
	}
	return out
}
