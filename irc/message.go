package irc

import (
	"strings"
)

// MaxMessageLength is the longest wire line the parser accepts, CR included.
const MaxMessageLength = 512

// MaxParams is the most parameters a single message may carry, trailing counted.
const MaxParams = 15

// Message represents one parsed IRC message.
type Message struct {
	Prefix      string
	Command     string
	Params      []string
	Trailing    string
	HasTrailing bool
}

// ParseMessage parses a single wire line (LF already stripped, CR optional)
// into a Message. It returns nil when the line is malformed: empty, longer
// than MaxMessageLength, containing NUL, yielding an empty command, a
// command with a non-alphanumeric byte, or more than MaxParams parameters.
// Unknown commands are not a parse error; the dispatcher reports those.
func ParseMessage(line string) *Message {
	if line == "" || len(line) > MaxMessageLength {
		return nil
	}
	if strings.IndexByte(line, 0) >= 0 {
		return nil
	}

	line = strings.TrimSuffix(line, "\r")

	for len(line) > 0 && line[0] == ' ' {
		line = line[1:]
	}
	if line == "" {
		return nil
	}

	msg := &Message{}

	if line[0] == ':' {
		end := strings.IndexByte(line, ' ')
		if end == -1 || end == 1 {
			return nil
		}
		msg.Prefix = line[1:end]
		line = line[end+1:]
	}

	cmdEnd := strings.IndexByte(line, ' ')
	if cmdEnd == -1 {
		msg.Command = line
		line = ""
	} else {
		msg.Command = line[:cmdEnd]
		line = line[cmdEnd+1:]
	}

	if !isValidCommand(msg.Command) {
		return nil
	}
	msg.Command = strings.ToUpper(msg.Command)

	for line != "" {
		if line[0] == ':' {
			msg.Trailing = line[1:]
			msg.HasTrailing = true
			break
		}
		end := strings.IndexByte(line, ' ')
		if end == -1 {
			msg.Params = append(msg.Params, line)
			break
		}
		if end > 0 {
			msg.Params = append(msg.Params, line[:end])
		}
		line = line[end+1:]
	}

	total := len(msg.Params)
	if msg.HasTrailing {
		total++
	}
	if total > MaxParams {
		return nil
	}

	return msg
}

func isValidCommand(cmd string) bool {
	if cmd == "" {
		return false
	}
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// Param returns the i-th parameter, or the empty string when absent.
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// SourceNick extracts the nickname part of a nick!user@host prefix.
func (m *Message) SourceNick() string {
	if m.Prefix == "" {
		return ""
	}
	if end := strings.IndexByte(m.Prefix, '!'); end != -1 {
		return m.Prefix[:end]
	}
	return m.Prefix
}

// String renders the message back to wire form, without the CRLF terminator.
func (m *Message) String() string {
	var sb strings.Builder

	if m.Prefix != "" {
		sb.WriteString(":")
		sb.WriteString(m.Prefix)
		sb.WriteString(" ")
	}

	sb.WriteString(m.Command)

	for _, param := range m.Params {
		sb.WriteString(" ")
		sb.WriteString(param)
	}

	if m.HasTrailing {
		sb.WriteString(" :")
		sb.WriteString(m.Trailing)
	}

	return sb.String()
}

// FormatReply builds a server-originated reply line including the CRLF
// terminator. Parsing the result yields the code as the command and the
// target as the first parameter.
func FormatReply(prefix, code, target, payload string) string {
	return ":" + prefix + " " + code + " " + target + " " + payload + "\r\n"
}

// FormatHostmask renders the nick!user@host source prefix.
func FormatHostmask(nick, user, host string) string {
	return nick + "!" + user + "@" + host
}
