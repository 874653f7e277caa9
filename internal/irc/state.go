package irc

import (
	"sort"
	"strconv"
	"strings"
)

// Channel is the tracked state of one joined channel.
type Channel struct {
	Key        string
	ServerName string
	Created    string
	Topic      string
	TopicBy    string
	Mode       string
	ModeParams map[byte][]string
	// Users maps the case-mapped nick to the prefixes it holds, e.g. "@".
	Users map[string]string
}

func newChannel(key, name string) *Channel {
	return &Channel{
		Key:        key,
		ServerName: name,
		ModeParams: map[byte][]string{},
		Users:      map[string]string{},
	}
}

func (ch *Channel) clone() *Channel {
	out := *ch
	out.Users = cloneMap(ch.Users)
	out.ModeParams = make(map[byte][]string, len(ch.ModeParams))
	for m, params := range ch.ModeParams {
		out.ModeParams[m] = append([]string(nil), params...)
	}
	return &out
}

func (ch *Channel) hasMode(mode byte) bool {
	return strings.IndexByte(ch.Mode, mode) >= 0
}

func (ch *Channel) addMode(mode byte) {
	if !ch.hasMode(mode) {
		ch.Mode += string(mode)
	}
}

func (ch *Channel) removeMode(mode byte) {
	ch.Mode = strings.Replace(ch.Mode, string(mode), "", 1)
	delete(ch.ModeParams, mode)
}

// WhoisInfo accumulates the replies to one WHOIS request.
type WhoisInfo struct {
	Nick       string
	User       string
	Host       string
	IP         string
	RealName   string
	Server     string
	ServerInfo string
	Idle       string
	Account    string
	Operator   string
	Secure     bool
	Away       string
	Channels   []string
}

// ChannelListItem is one RPL_LIST entry.
type ChannelListItem struct {
	Name  string
	Users string
	Topic string
}

// session is the per-connection protocol state. It is owned by the
// dispatcher and guarded by Client.mu.
type session struct {
	nick         string
	originalNick string
	hostMask     string
	maxLineLen   int
	registered   bool

	// selfWhois is the nick of our own pending WHOIS after the welcome.
	selfWhois string

	supported Supported
	prefixes  prefixTable

	chans map[string]*Channel
	whois map[string]*WhoisInfo

	motd        strings.Builder
	channelList []ChannelListItem

	nickMod       int
	prevClashNick string
}

func newSession(channelPrefixes string) *session {
	s := &session{
		supported: defaultSupported(channelPrefixes),
		chans:     map[string]*Channel{},
		whois:     map[string]*WhoisInfo{},
	}
	s.prefixes = newPrefixTable(s.supported.UserModePriority, s.supported.UserPrefixes)
	return s
}

// casefold lowers s according to the server's CASEMAPPING.
func (s *session) casefold(name string) string {
	lower := strings.ToLower(name)
	switch s.supported.CaseMapping {
	case "rfc1459":
		return strings.NewReplacer("[", "{", "]", "}", "\\", "|", "^", "~").Replace(lower)
	case "strict-rfc1459":
		return strings.NewReplacer("[", "{", "]", "}", "\\", "|").Replace(lower)
	default:
		return lower
	}
}

func (s *session) isChannel(name string) bool {
	return name != "" && strings.IndexByte(s.supported.ChannelTypes, name[0]) >= 0
}

func (s *session) isMe(nick string) bool {
	return nick != "" && s.casefold(nick) == s.casefold(s.nick)
}

// channel returns the tracked channel or nil.
func (s *session) channel(name string) *Channel {
	return s.chans[s.casefold(name)]
}

// ensureChannel returns the tracked channel, creating it on first sight.
func (s *session) ensureChannel(name string) *Channel {
	key := s.casefold(name)
	ch, ok := s.chans[key]
	if !ok {
		ch = newChannel(key, name)
		s.chans[key] = ch
	}
	return ch
}

func (s *session) removeChannel(name string) {
	delete(s.chans, s.casefold(name))
}

// updateMaxLineLength recomputes the longest safe message body before the
// target is subtracted: 497 = 510 - len(":" + "!" + " PRIVMSG " + " :").
func (s *session) updateMaxLineLength() {
	s.maxLineLen = 497 - len(s.nick) - len(s.hostMask)
}

func (s *session) addWhoisData(nick string, onlyIfExists bool, set func(*WhoisInfo)) {
	key := s.casefold(nick)
	info, ok := s.whois[key]
	if !ok {
		if onlyIfExists {
			return
		}
		info = &WhoisInfo{Nick: nick}
		s.whois[key] = info
	}
	set(info)
}

func (s *session) clearWhoisData(nick string) *WhoisInfo {
	key := s.casefold(nick)
	info, ok := s.whois[key]
	if !ok {
		info = &WhoisInfo{Nick: nick}
	}
	delete(s.whois, key)
	return info
}

// userPrefixMorePowerful reports whether prefix outranks testPrefix in the server's
// PREFIX order.
func (s *session) userPrefixMorePowerful(prefix, testPrefix byte) bool {
	mode, ok := s.prefixes.modeForPrefix[prefix]
	if !ok {
		return false
	}
	testMode, ok := s.prefixes.modeForPrefix[testPrefix]
	if !ok {
		return false
	}
	priority := s.supported.UserModePriority
	i, j := strings.IndexByte(priority, mode), strings.IndexByte(priority, testMode)
	if i < 0 || j < 0 {
		return false
	}
	return i < j
}

// nextNick builds the nick to try after a collision: base plus a counter,
// truncated so the result fits in maxLen when that is known.
func (s *session) nextNick(base string, maxLen int) string {
	s.nickMod++
	digits := strconv.Itoa(s.nickMod)
	n := base + digits
	if maxLen > 0 && len(n) > maxLen {
		cut := maxLen - len(digits)
		if cut < 0 {
			cut = 0
		}
		if cut > len(base) {
			cut = len(base)
		}
		n = base[:cut] + digits
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
