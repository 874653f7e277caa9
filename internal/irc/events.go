package irc

import (
	"sync"
)

// EventKind identifies what happened on the session.
type EventKind int

const (
	EventRaw EventKind = iota
	EventConnect
	EventRegistered
	EventConnectionEnd
	EventDisconnect
	EventNetError
	EventAbort
	EventParseError

	EventMOTD
	EventJoin
	EventPart
	EventKick
	EventQuit
	EventKill
	EventNick
	EventModeAdd
	EventModeRemove
	EventModeIs
	EventTopic
	EventInvite

	EventMessage
	EventNotice
	EventPM
	EventSelfMessage
	EventCTCP
	EventCTCPVersion
	EventAction

	EventWhois
	EventNames
	EventChannelListStart
	EventChannelListItem
	EventChannelList

	EventPing
	EventPong
	EventOpered
	EventUnhandled
	EventError
)

var eventNames = [...]string{
	EventRaw:              "raw",
	EventConnect:          "connect",
	EventRegistered:       "registered",
	EventConnectionEnd:    "connectionEnd",
	EventDisconnect:       "disconnect",
	EventNetError:         "netError",
	EventAbort:            "abort",
	EventParseError:       "parseError",
	EventMOTD:             "motd",
	EventJoin:             "join",
	EventPart:             "part",
	EventKick:             "kick",
	EventQuit:             "quit",
	EventKill:             "kill",
	EventNick:             "nick",
	EventModeAdd:          "+mode",
	EventModeRemove:       "-mode",
	EventModeIs:           "mode_is",
	EventTopic:            "topic",
	EventInvite:           "invite",
	EventMessage:          "message",
	EventNotice:           "notice",
	EventPM:               "pm",
	EventSelfMessage:      "selfMessage",
	EventCTCP:             "ctcp",
	EventCTCPVersion:      "ctcp-version",
	EventAction:           "action",
	EventWhois:            "whois",
	EventNames:            "names",
	EventChannelListStart: "channellist_start",
	EventChannelListItem:  "channellist_item",
	EventChannelList:      "channellist",
	EventPing:             "ping",
	EventPong:             "pong",
	EventOpered:           "opered",
	EventUnhandled:        "unhandled",
	EventError:            "error",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) || eventNames[k] == "" {
		return "unknown"
	}
	return eventNames[k]
}

// Event carries one occurrence. Which fields are set depends on Kind:
//
//	join, part:        Channel, Nick, Text (part reason)
//	kick:              Channel, Target (kicked), Nick (by), Text (reason)
//	quit, kill:        Nick, Text (reason), Channels
//	nick:              Nick (old), Target (new), Channels
//	+mode, -mode:      Channel, Nick (setter), Mode, Target (argument)
//	mode_is:           Channel, Text (mode string)
//	topic:             Channel, Text (topic), Nick (setter)
//	invite:            Channel, Nick (inviter)
//	message, notice:   Nick (from), Target (to), Text; Channel when the target is a channel
//	pm:                Nick, Text
//	selfMessage:       Target, Text
//	ctcp:              Nick, Target, Text, CTCPType ("privmsg" or "notice")
//	ctcp-version:      Nick, Target
//	action:            Nick, Target, Text; Channel when the target is a channel
//	whois:             Whois
//	names:             Channel, Users
//	channellist_item:  ListItem
//	channellist:       List
//	ping, pong:        Text (token)
//	motd:              Text
//	abort:             Count (retries attempted)
//	netError, parseError, connectionEnd: Err
type Event struct {
	Kind     EventKind
	Channel  string
	Nick     string
	Target   string
	Text     string
	Mode     byte
	CTCPType string
	Channels []string
	Users    map[string]string
	Whois    *WhoisInfo
	ListItem *ChannelListItem
	List     []ChannelListItem
	Count    int
	Err      error
	Message  *Message
}

// Handler receives events. Handlers run on the connection's loop goroutine
// and must not block it for long.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// eventBus keeps one observer list per event kind.
type eventBus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[EventKind][]subscription
}

func (b *eventBus) subscribe(kind EventKind, fn Handler) (remove func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = map[EventKind][]subscription{}
	}
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(kind, id) })
	}
}

func (b *eventBus) unsubscribe(kind EventKind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[kind]
	for i, s := range subs {
		if s.id == id {
			b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (b *eventBus) publish(ev Event) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs[ev.Kind]...)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
