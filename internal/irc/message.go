package irc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ergochat/irc-go/ircfmt"
	"github.com/ergochat/irc-go/ircmsg"
)

// CommandType classifies a parsed command.
type CommandType int

const (
	CommandNormal CommandType = iota
	CommandReply
	CommandError
)

func (t CommandType) String() string {
	switch t {
	case CommandReply:
		return "reply"
	case CommandError:
		return "error"
	default:
		return "normal"
	}
}

// Message is one parsed protocol line.
type Message struct {
	Raw    string
	Prefix string

	// Nick, User and Host are set when the prefix has the nick!user@host
	// shape. Server is set when the prefix names a server.
	Nick   string
	User   string
	Host   string
	Server string

	// Command is upper case for named commands and the symbolic name
	// (rpl_welcome, err_nicknameinuse, ...) for known numerics.
	Command    string
	RawCommand string
	Type       CommandType
	Args       []string
}

// Arg returns the i'th argument or "" when there are fewer.
func (m *Message) Arg(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}

// ParseError wraps a line the parser could not handle.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseMessage parses a single line, without its terminator. When
// stripColors is set, mIRC formatting codes are removed first.
func ParseMessage(line string, stripColors bool) (*Message, error) {
	if stripColors {
		line = ircfmt.Strip(line)
	}

	parsed, err := ircmsg.ParseLine(line)
	if err != nil {
		return nil, &ParseError{Line: line, Err: err}
	}
	if parsed.Command == "" {
		return nil, &ParseError{Line: line, Err: fmt.Errorf("missing command")}
	}

	m := &Message{
		Raw:        line,
		Prefix:     parsed.Source,
		RawCommand: strings.ToUpper(parsed.Command),
		Args:       parsed.Params,
	}
	if m.Args == nil {
		m.Args = []string{}
	}

	if m.Prefix != "" {
		if nuh, err := parsed.NUH(); err == nil && nuh.User != "" && nuh.Host != "" {
			m.Nick, m.User, m.Host = nuh.Name, nuh.User, nuh.Host
		} else if strings.Contains(m.Prefix, ".") {
			m.Server = m.Prefix
		} else {
			m.Nick = m.Prefix
		}
	}

	m.Command, m.Type = classifyCommand(m.RawCommand)
	return m, nil
}

func classifyCommand(cmd string) (string, CommandType) {
	code, err := strconv.Atoi(cmd)
	if err != nil || len(cmd) != 3 {
		return cmd, CommandNormal
	}

	name, known := numerics[cmd]
	switch {
	case known && strings.HasPrefix(name, "err_"):
		return name, CommandError
	case known:
		return name, CommandReply
	case code >= 400 && code < 600:
		return cmd, CommandError
	default:
		return cmd, CommandReply
	}
}

// isCTCP reports whether a PRIVMSG or NOTICE body is a CTCP frame.
func isCTCP(text string) bool {
	return len(text) > 1 && text[0] == '\x01' && strings.LastIndexByte(text, '\x01') > 0
}

// encodeLine renders a command for the wire, prefixing the trailing
// parameter with ':' when it holds a space, starts with ':' or is empty.
func encodeLine(command string, args ...string) (string, error) {
	msg := ircmsg.MakeMessage(nil, "", command, args...)
	line, err := msg.Line()
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", command, err)
	}
	return line, nil
}
