package irc

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/ergochat/irc-go/ircutils"
)

// handlerFunc mutates session state for one message. It runs with c.mu held
// and must not block; anything to send or emit goes through out.
type handlerFunc func(c *Client, m *Message, out *outbox)

var handlers map[string]handlerFunc

func init() {
	handlers = map[string]handlerFunc{
		RplWelcome:         onWelcome,
		RplMyInfo:          onMyInfo,
		RplISupport:        onISupport,
		RplWhoisUser:       onWhoisUser,
		RplWhoisServer:     onWhoisServer,
		RplWhoisOperator:   onWhoisOperator,
		RplWhoisIdle:       onWhoisIdle,
		RplWhoisChannels:   onWhoisChannels,
		RplWhoisLoggedIn:   onWhoisLoggedIn,
		RplWhoisHost:       onWhoisHost,
		RplWhoisSecure:     onWhoisSecure,
		RplAway:            onAway,
		RplEndOfWhois:      onEndOfWhois,
		RplWhoReply:        onWhoReply,
		RplListStart:       onListStart,
		RplList:            onList,
		RplListEnd:         onListEnd,
		RplTopic:           onTopicReply,
		RplTopicWhoTime:    onTopicWhoTime,
		RplCreationTime:    onCreationTime,
		RplChannelModeIs:   onChannelModeIs,
		RplNamReply:        onNamReply,
		RplEndOfNames:      onEndOfNames,
		RplMotdStart:       onMotdStart,
		RplMotd:            onMotd,
		RplEndOfMotd:       onEndOfMotd,
		ErrNoMotd:          onEndOfMotd,
		RplSaslSuccess:     onSaslSuccess,
		ErrSaslFail:        onSaslFailure,
		ErrSaslTooLong:     onSaslFailure,
		RplYoureOper:       onOpered,
		ErrNicknameInUse:   onNickInUse,
		ErrErroneusNick:    onErroneusNick,
		ErrUnavailResource: onErroneusNick,
		ErrNoOperHost:      onNoOperHost,

		"err_alreadyregistred": logServerError,
		"err_bannedfromchan":   logServerError,

		"PING":         onPing,
		"PONG":         onPong,
		"JOIN":         onJoin,
		"PART":         onPart,
		"KICK":         onKick,
		"QUIT":         onQuit,
		"KILL":         onKill,
		"NICK":         onNick,
		"MODE":         onMode,
		"TOPIC":        onTopic,
		"INVITE":       onInvite,
		"PRIVMSG":      onPrivmsg,
		"CPRIVMSG":     onPrivmsg,
		"NOTICE":       onNotice,
		"CAP":          onCap,
		"AUTHENTICATE": onAuthenticate,
		"ERROR":        onErrorCommand,
	}
}

// Replies that carry nothing the session tracks.
var ignoredReplies = map[string]bool{
	RplYourHost:         true,
	RplCreated:          true,
	"rpl_luserclient":   true,
	"rpl_luserop":       true,
	"rpl_luserunknown":  true,
	"rpl_luserchannels": true,
	"rpl_luserme":       true,
	"rpl_localusers":    true,
	"rpl_globalusers":   true,
	"rpl_statsconn":     true,
	"rpl_ison":          true,
	"rpl_inviting":      true,
	"rpl_loggedin":      true,
	"rpl_endofwho":      true,
	"042":               true,
	"396":               true,
}

// dispatch routes m to its handler. Unknown commands become unhandled or
// error events; nothing here panics on short argument lists.
func (c *Client) dispatch(m *Message, out *outbox) {
	if h, ok := handlers[m.Command]; ok {
		h(c, m, out)
		return
	}
	if ignoredReplies[m.Command] {
		return
	}
	if m.Type == CommandError {
		out.emit(Event{Kind: EventError, Message: m, Text: lastArg(m)})
	} else {
		out.emit(Event{Kind: EventUnhandled, Message: m})
	}
	logServerError(c, m, out)
}

func lastArg(m *Message) string {
	if len(m.Args) == 0 {
		return ""
	}
	return m.Args[len(m.Args)-1]
}

func logServerError(c *Client, m *Message, _ *outbox) {
	if c.opts.ShowErrors && m.Type == CommandError {
		c.log.Printf("ERROR: %s", m.Raw)
	}
}

// Registration

func onWelcome(c *Client, m *Message, out *outbox) {
	s := c.sess
	s.nick = m.Arg(0)
	if s.originalNick == "" {
		s.originalNick = s.nick
	}
	// The welcome text ends with our nick!user@host as the server sees it.
	if words := strings.Fields(m.Arg(1)); len(words) > 0 {
		s.hostMask = words[len(words)-1]
	}
	s.updateMaxLineLength()
	s.registered = true
	s.selfWhois = s.nick

	out.emit(Event{Kind: EventRegistered, Nick: s.nick, Message: m})
	out.send("WHOIS", s.nick)
}

func onMyInfo(c *Client, m *Message, _ *outbox) {
	c.sess.supported.UserModes = m.Arg(3)
}

func onISupport(c *Client, m *Message, _ *outbox) {
	s := c.sess
	if s.supported.applyISupport(m.Args) {
		s.prefixes = newPrefixTable(s.supported.UserModePriority, s.supported.UserPrefixes)
	}
}

func onNickInUse(c *Client, m *Message, out *outbox) {
	s := c.sess
	base := c.opts.Nick
	next := s.nextNick(base, 0)
	if s.nickMod > 1 {
		// A rejected nick shorter than our last attempt reveals the
		// server's length limit.
		if s.prevClashNick != "" {
			if rejected := m.Arg(1); rejected != s.prevClashNick {
				next = s.nextNick(base, len(rejected))
			}
		}
		s.prevClashNick = next
	}
	out.send("NICK", next)
	s.nick = next
	s.updateMaxLineLength()
}

func onErroneusNick(c *Client, m *Message, out *outbox) {
	logServerError(c, m, out)
	s := c.sess
	if s.hostMask != "" {
		out.emit(Event{Kind: EventError, Message: m, Text: lastArg(m)})
		return
	}
	next := "enick_" + strconv.Itoa(rand.Intn(1000))
	out.send("NICK", next)
	s.nick = next
	s.updateMaxLineLength()
}

func onNoOperHost(c *Client, m *Message, out *outbox) {
	if !c.opts.ShowErrors {
		return
	}
	out.emit(Event{Kind: EventError, Message: m, Text: lastArg(m)})
	logServerError(c, m, out)
}

func onOpered(_ *Client, m *Message, out *outbox) {
	out.emit(Event{Kind: EventOpered, Message: m})
}

func onErrorCommand(_ *Client, m *Message, out *outbox) {
	out.emit(Event{Kind: EventError, Message: m, Text: lastArg(m)})
}

// SASL

func onCap(c *Client, m *Message, out *outbox) {
	if !c.opts.SASL {
		return
	}
	switch m.Arg(1) {
	case "ACK":
		for _, capName := range strings.Fields(m.Arg(2)) {
			if capName == "sasl" {
				out.send("AUTHENTICATE", "PLAIN")
				return
			}
		}
	case "NAK":
		out.send("CAP", "END")
		out.emit(Event{Kind: EventError, Message: m, Text: "sasl capability refused"})
	}
}

func onAuthenticate(c *Client, m *Message, out *outbox) {
	if m.Arg(0) != "+" {
		return
	}
	payload := c.opts.Nick + "\x00" + c.opts.UserName + "\x00" + c.opts.Password
	for _, chunk := range ircutils.EncodeSASLResponse([]byte(payload)) {
		out.send("AUTHENTICATE", chunk)
	}
}

func onSaslSuccess(_ *Client, _ *Message, out *outbox) {
	out.send("CAP", "END")
}

func onSaslFailure(c *Client, m *Message, out *outbox) {
	out.send("CAP", "END")
	out.emit(Event{Kind: EventError, Message: m, Text: lastArg(m)})
	logServerError(c, m, out)
}

// MOTD

func onMotdStart(c *Client, m *Message, _ *outbox) {
	c.sess.motd.Reset()
	c.sess.motd.WriteString(m.Arg(1) + "\n")
}

func onMotd(c *Client, m *Message, _ *outbox) {
	c.sess.motd.WriteString(m.Arg(1) + "\n")
}

// onEndOfMotd also covers a missing MOTD. Either way registration is over,
// so the auto-join list is joined here.
func onEndOfMotd(c *Client, m *Message, out *outbox) {
	c.sess.motd.WriteString(m.Arg(1) + "\n")
	out.emit(Event{Kind: EventMOTD, Text: c.sess.motd.String()})
	for _, entry := range c.autoJoin {
		if fields := strings.Fields(entry); len(fields) > 0 {
			out.send("JOIN", fields...)
		}
	}
}

// Liveness

func onPing(_ *Client, m *Message, out *outbox) {
	out.send("PONG", m.Arg(0))
	out.emit(Event{Kind: EventPing, Text: m.Arg(0)})
}

func onPong(_ *Client, m *Message, out *outbox) {
	out.emit(Event{Kind: EventPong, Text: lastArg(m)})
}

// Channel membership

func onJoin(c *Client, m *Message, out *outbox) {
	s := c.sess
	name := m.Arg(0)
	if name == "" {
		return
	}
	if s.isMe(m.Nick) {
		ch := s.ensureChannel(name)
		if _, ok := ch.Users[s.casefold(m.Nick)]; !ok {
			ch.Users[s.casefold(m.Nick)] = ""
		}
		c.confirmJoin(name)
	} else if ch := s.channel(name); ch != nil {
		ch.Users[s.casefold(m.Nick)] = ""
	}
	out.emit(Event{Kind: EventJoin, Channel: name, Nick: m.Nick, Message: m})
}

// confirmJoin moves a requested join onto the auto-join list.
func (c *Client) confirmJoin(name string) {
	key := c.sess.casefold(name)
	entry, ok := c.pending[key]
	if !ok {
		return
	}
	delete(c.pending, key)
	if c.autoJoinIndex(name) < 0 {
		c.autoJoin = append(c.autoJoin, entry)
	}
}

func (c *Client) autoJoinIndex(name string) int {
	key := c.sess.casefold(name)
	for i, entry := range c.autoJoin {
		if fields := strings.Fields(entry); len(fields) > 0 && c.sess.casefold(fields[0]) == key {
			return i
		}
	}
	return -1
}

func onPart(c *Client, m *Message, out *outbox) {
	s := c.sess
	name := m.Arg(0)
	if s.isMe(m.Nick) {
		s.removeChannel(name)
	} else if ch := s.channel(name); ch != nil {
		delete(ch.Users, s.casefold(m.Nick))
	}
	out.emit(Event{Kind: EventPart, Channel: name, Nick: m.Nick, Text: m.Arg(1), Message: m})
}

func onKick(c *Client, m *Message, out *outbox) {
	s := c.sess
	name, who := m.Arg(0), m.Arg(1)
	if s.isMe(who) {
		s.removeChannel(name)
		if c.opts.AutoRejoin {
			args := []string{name}
			if i := c.autoJoinIndex(name); i >= 0 {
				args = strings.Fields(c.autoJoin[i])
			}
			out.send("JOIN", args...)
		}
	} else if ch := s.channel(name); ch != nil {
		delete(ch.Users, s.casefold(who))
	}
	out.emit(Event{Kind: EventKick, Channel: name, Target: who, Nick: m.Nick, Text: m.Arg(2), Message: m})
}

// removeEverywhere drops nick from every tracked channel and returns the
// display names of the channels it was in.
func (s *session) removeEverywhere(nick string) []string {
	key := s.casefold(nick)
	var channels []string
	for _, chKey := range sortedKeys(s.chans) {
		ch := s.chans[chKey]
		if _, ok := ch.Users[key]; ok {
			delete(ch.Users, key)
			channels = append(channels, ch.ServerName)
		}
	}
	return channels
}

func (s *session) channelNames() []string {
	names := make([]string, 0, len(s.chans))
	for _, key := range sortedKeys(s.chans) {
		names = append(names, s.chans[key].ServerName)
	}
	return names
}

func onQuit(c *Client, m *Message, out *outbox) {
	s := c.sess
	c.debugf("QUIT: %s %s", m.Prefix, strings.Join(m.Args, " "))
	var channels []string
	if s.isMe(m.Nick) {
		channels = s.channelNames()
	} else {
		channels = s.removeEverywhere(m.Nick)
	}
	out.emit(Event{Kind: EventQuit, Nick: m.Nick, Text: m.Arg(0), Channels: channels, Message: m})
}

func onKill(c *Client, m *Message, out *outbox) {
	nick := m.Arg(0)
	channels := c.sess.removeEverywhere(nick)
	out.emit(Event{Kind: EventKill, Nick: nick, Text: m.Arg(1), Channels: channels, Message: m})
}

func onNick(c *Client, m *Message, out *outbox) {
	s := c.sess
	oldNick, newNick := m.Nick, m.Arg(0)
	if newNick == "" {
		return
	}
	if s.isMe(oldNick) {
		s.nick = newNick
		s.updateMaxLineLength()
	}
	c.debugf("NICK: %s changes nick to %s", oldNick, newNick)

	oldKey, newKey := s.casefold(oldNick), s.casefold(newNick)
	var channels []string
	for _, chKey := range sortedKeys(s.chans) {
		ch := s.chans[chKey]
		prefixes, ok := ch.Users[oldKey]
		if !ok {
			continue
		}
		delete(ch.Users, oldKey)
		ch.Users[newKey] = prefixes
		channels = append(channels, ch.ServerName)
	}
	out.emit(Event{Kind: EventNick, Nick: oldNick, Target: newNick, Channels: channels, Message: m})
}

func onInvite(_ *Client, m *Message, out *outbox) {
	out.emit(Event{Kind: EventInvite, Channel: m.Arg(1), Nick: m.Nick, Message: m})
}

// Modes

func onMode(c *Client, m *Message, out *outbox) {
	s := c.sess
	c.debugf("MODE: %s sets mode: %s", m.Arg(0), m.Arg(1))

	ch := s.channel(m.Arg(0))
	if ch == nil {
		return
	}
	params := m.Args
	if len(params) > 2 {
		params = params[2:]
	} else {
		params = nil
	}
	next := func() string {
		if len(params) == 0 {
			return ""
		}
		p := params[0]
		params = params[1:]
		return p
	}

	cm := s.supported.ChannelModes
	adding := true
	for i := 0; i < len(m.Arg(1)); i++ {
		mode := m.Arg(1)[i]
		switch mode {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		}

		kind := EventModeAdd
		if !adding {
			kind = EventModeRemove
		}

		var arg string
		switch {
		case s.prefixes.prefixForMode[mode] != 0:
			arg = next()
			prefix := s.prefixes.prefixForMode[mode]
			key := s.casefold(arg)
			if held, ok := ch.Users[key]; ok {
				if adding {
					if strings.IndexByte(held, prefix) < 0 {
						ch.Users[key] = held + string(prefix)
					}
				} else {
					ch.Users[key] = strings.Replace(held, string(prefix), "", 1)
				}
			}
		case strings.IndexByte(cm.A, mode) >= 0:
			arg = next()
			if adding {
				ch.addMode(mode)
				ch.ModeParams[mode] = append(ch.ModeParams[mode], arg)
			} else if list, ok := ch.ModeParams[mode]; ok {
				kept := list[:0]
				for _, v := range list {
					if v != arg {
						kept = append(kept, v)
					}
				}
				ch.ModeParams[mode] = kept
				if len(kept) == 0 {
					ch.removeMode(mode)
				}
			}
		case strings.IndexByte(cm.B, mode) >= 0:
			arg = next()
			if adding {
				ch.addMode(mode)
				ch.ModeParams[mode] = []string{arg}
			} else {
				ch.removeMode(mode)
			}
		case strings.IndexByte(cm.C, mode) >= 0:
			if adding {
				arg = next()
				ch.addMode(mode)
				ch.ModeParams[mode] = []string{arg}
			} else {
				ch.removeMode(mode)
			}
		case strings.IndexByte(cm.D, mode) >= 0:
			if adding {
				ch.addMode(mode)
			} else {
				ch.removeMode(mode)
			}
		default:
			continue
		}
		out.emit(Event{Kind: kind, Channel: m.Arg(0), Nick: m.Nick, Mode: mode, Target: arg, Message: m})
	}
}

func onChannelModeIs(c *Client, m *Message, out *outbox) {
	s := c.sess
	name, modes := m.Arg(1), m.Arg(2)
	if ch := s.channel(name); ch != nil {
		ch.Mode = strings.TrimPrefix(modes, "+")
		params := m.Args
		if len(params) > 3 {
			params = params[3:]
		} else {
			params = nil
		}
		cm := s.supported.ChannelModes
		for i := 0; i < len(ch.Mode) && len(params) > 0; i++ {
			mode := ch.Mode[i]
			if strings.IndexByte(cm.B, mode) >= 0 || strings.IndexByte(cm.C, mode) >= 0 {
				ch.ModeParams[mode] = []string{params[0]}
				params = params[1:]
			}
		}
	}
	out.emit(Event{Kind: EventModeIs, Channel: name, Text: modes, Message: m})
}

// Topic and channel metadata

func onTopicReply(c *Client, m *Message, _ *outbox) {
	if ch := c.sess.channel(m.Arg(1)); ch != nil {
		ch.Topic = m.Arg(2)
	}
}

func onTopicWhoTime(c *Client, m *Message, out *outbox) {
	ch := c.sess.channel(m.Arg(1))
	if ch == nil {
		return
	}
	ch.TopicBy = m.Arg(2)
	out.emit(Event{Kind: EventTopic, Channel: m.Arg(1), Text: ch.Topic, Nick: ch.TopicBy, Message: m})
}

func onCreationTime(c *Client, m *Message, _ *outbox) {
	if ch := c.sess.channel(m.Arg(1)); ch != nil {
		ch.Created = m.Arg(2)
	}
}

func onTopic(c *Client, m *Message, out *outbox) {
	name, topic := m.Arg(0), m.Arg(1)
	out.emit(Event{Kind: EventTopic, Channel: name, Text: topic, Nick: m.Nick, Message: m})
	if ch := c.sess.channel(name); ch != nil {
		ch.Topic = topic
		ch.TopicBy = m.Nick
	}
}

// NAMES

func onNamReply(c *Client, m *Message, _ *outbox) {
	s := c.sess
	ch := s.channel(m.Arg(2))
	if ch == nil {
		return
	}
	for _, entry := range strings.Fields(m.Arg(3)) {
		prefixes, nick := s.prefixes.splitNamesEntry(entry)
		if nick == "" {
			continue
		}
		ch.Users[s.casefold(nick)] = prefixes
	}
}

func onEndOfNames(c *Client, m *Message, out *outbox) {
	name := m.Arg(1)
	ch := c.sess.channel(name)
	if ch == nil {
		return
	}
	out.emit(Event{Kind: EventNames, Channel: name, Users: cloneMap(ch.Users), Message: m})
	// Some servers leave prefixes out of NAMES; MODE fills them in.
	out.send("MODE", name)
}

// Channel list

func onListStart(c *Client, _ *Message, out *outbox) {
	c.sess.channelList = nil
	out.emit(Event{Kind: EventChannelListStart})
}

func onList(c *Client, m *Message, out *outbox) {
	item := ChannelListItem{Name: m.Arg(1), Users: m.Arg(2), Topic: m.Arg(3)}
	c.sess.channelList = append(c.sess.channelList, item)
	out.emit(Event{Kind: EventChannelListItem, ListItem: &item, Message: m})
}

func onListEnd(c *Client, m *Message, out *outbox) {
	list := append([]ChannelListItem(nil), c.sess.channelList...)
	out.emit(Event{Kind: EventChannelList, List: list, Message: m})
}

// WHOIS

var (
	whoisHostPattern = regexp.MustCompile(`^is connecting from (.*)\s(.*)$`)
	whoRealName      = regexp.MustCompile(`^[0-9]+\s*(.+)`)
)

func onWhoisUser(c *Client, m *Message, _ *outbox) {
	c.sess.addWhoisData(m.Arg(1), false, func(w *WhoisInfo) {
		w.User = m.Arg(2)
		w.Host = m.Arg(3)
		w.RealName = m.Arg(5)
	})
}

func onWhoisServer(c *Client, m *Message, _ *outbox) {
	c.sess.addWhoisData(m.Arg(1), false, func(w *WhoisInfo) {
		w.Server = m.Arg(2)
		w.ServerInfo = m.Arg(3)
	})
}

func onWhoisOperator(c *Client, m *Message, _ *outbox) {
	c.sess.addWhoisData(m.Arg(1), false, func(w *WhoisInfo) { w.Operator = m.Arg(2) })
}

func onWhoisIdle(c *Client, m *Message, _ *outbox) {
	c.sess.addWhoisData(m.Arg(1), false, func(w *WhoisInfo) { w.Idle = m.Arg(2) })
}

func onWhoisChannels(c *Client, m *Message, _ *outbox) {
	c.sess.addWhoisData(m.Arg(1), false, func(w *WhoisInfo) {
		w.Channels = strings.Fields(m.Arg(2))
	})
}

func onWhoisLoggedIn(c *Client, m *Message, _ *outbox) {
	c.sess.addWhoisData(m.Arg(1), false, func(w *WhoisInfo) { w.Account = m.Arg(2) })
}

func onWhoisHost(c *Client, m *Message, _ *outbox) {
	match := whoisHostPattern.FindStringSubmatch(m.Arg(2))
	if match == nil || match[1] == "" || match[2] == "" {
		return
	}
	c.sess.addWhoisData(m.Arg(1), false, func(w *WhoisInfo) {
		w.Host = match[1]
		w.IP = match[2]
	})
}

func onWhoisSecure(c *Client, m *Message, _ *outbox) {
	c.sess.addWhoisData(m.Arg(1), false, func(w *WhoisInfo) { w.Secure = true })
}

// onAway only annotates a WHOIS in progress; a 301 in reply to a PRIVMSG
// must not start one.
func onAway(c *Client, m *Message, _ *outbox) {
	c.sess.addWhoisData(m.Arg(1), true, func(w *WhoisInfo) { w.Away = m.Arg(2) })
}

func onEndOfWhois(c *Client, m *Message, out *outbox) {
	s := c.sess
	info := s.clearWhoisData(m.Arg(1))

	// Our own WHOIS after the welcome gives the exact user@host the
	// server prepends to what we send.
	if s.selfWhois != "" && s.casefold(info.Nick) == s.casefold(s.selfWhois) {
		s.selfWhois = ""
		if info.User != "" && info.Host != "" {
			s.nick = info.Nick
			s.hostMask = info.User + "@" + info.Host
			s.updateMaxLineLength()
		}
	}
	out.emit(Event{Kind: EventWhois, Nick: info.Nick, Whois: info, Message: m})
}

// onWhoReply emits at once because the end-of-WHO reply has no nick.
func onWhoReply(c *Client, m *Message, out *outbox) {
	s := c.sess
	nick := m.Arg(5)
	if nick == "" {
		return
	}
	s.addWhoisData(nick, false, func(w *WhoisInfo) {
		w.User = m.Arg(2)
		w.Host = m.Arg(3)
		w.Server = m.Arg(4)
		if match := whoRealName.FindStringSubmatch(m.Arg(7)); match != nil {
			w.RealName = match[1]
		}
	})
	info := s.clearWhoisData(nick)
	out.emit(Event{Kind: EventWhois, Nick: info.Nick, Whois: info, Message: m})
}

// Messages

func onPrivmsg(c *Client, m *Message, out *outbox) {
	s := c.sess
	from, to, text := m.Nick, m.Arg(0), m.Arg(1)
	if isCTCP(text) {
		c.handleCTCP(from, to, text, "privmsg", m, out)
		return
	}

	ev := Event{Kind: EventMessage, Nick: from, Target: to, Text: text, Message: m}
	if s.isChannel(to) {
		ev.Channel = to
	}
	out.emit(ev)

	if s.isMe(to) {
		out.emit(Event{Kind: EventPM, Nick: from, Text: text, Message: m})
		c.debugf("GOT MESSAGE from %s: %s", from, text)
	}
}

func onNotice(c *Client, m *Message, out *outbox) {
	s := c.sess
	from, to, text := m.Nick, m.Arg(0), m.Arg(1)
	if isCTCP(text) {
		c.handleCTCP(from, to, text, "notice", m, out)
		return
	}

	ev := Event{Kind: EventNotice, Nick: from, Target: to, Text: text, Message: m}
	if s.isChannel(to) {
		ev.Channel = to
	}
	out.emit(ev)

	if s.isMe(to) {
		if from == "" {
			c.debugf("GOT NOTICE from the server: %q", text)
		} else {
			c.debugf("GOT NOTICE from %q: %q", from, text)
		}
	}
}

func (c *Client) handleCTCP(from, to, text, kind string, m *Message, out *outbox) {
	text = text[1:]
	text = text[:strings.IndexByte(text, '\x01')]
	parts := strings.Split(text, " ")

	out.emit(Event{Kind: EventCTCP, Nick: from, Target: to, Text: text, CTCPType: kind, Message: m})

	if kind == "privmsg" && text == "VERSION" {
		out.emit(Event{Kind: EventCTCPVersion, Nick: from, Target: to, Message: m})
	}
	if parts[0] == "ACTION" && len(parts) > 1 {
		ev := Event{Kind: EventAction, Nick: from, Target: to, Text: strings.Join(parts[1:], " "), Message: m}
		if c.sess.isChannel(to) {
			ev.Channel = to
		}
		out.emit(ev)
	}
	if parts[0] == "PING" && kind == "privmsg" && len(parts) > 1 {
		out.send("NOTICE", from, "\x01"+text+"\x01")
	}
}
