/*
Package irc implements a single-process IRC relay server.

Connections register with PASS, NICK and USER against a shared server
password, then join named channels with operator sets, invite lists and
the i/t/k/l modes. Messages fan out to channel members under the usual
membership and moderation rules.

All chat state lives on a single event-loop goroutine: per-connection
reader goroutines frame LF-delimited lines out of the byte stream and
forward them to the loop, and per-connection writer goroutines drain
FIFO outbound queues. Handlers therefore run one at a time without
locks, every client observes its own commands in arrival order, and
channel members observe broadcasts in a single shared order.

Basic usage:

	cfg := config.Default()
	cfg.Server.Port = 6667
	cfg.Server.Password = "secret"
	server := irc.NewServer(cfg, logger)
	if err := server.Start(); err != nil {
		// bind failure: report and exit non-zero
	}
	defer server.Stop()
*/
package irc
