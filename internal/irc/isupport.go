package irc

import (
	"regexp"
	"strconv"
	"strings"
)

// ChannelModes holds the four CHANMODES categories.
type ChannelModes struct {
	A string // list modes, e.g. b
	B string // always take a parameter, e.g. k
	C string // take a parameter only when set, e.g. l
	D string // never take a parameter, e.g. t
}

// Supported is the feature table built from RPL_ISUPPORT. Zero lengths mean
// unknown or unlimited.
type Supported struct {
	CaseMapping string

	ChannelTypes    string
	ChannelLength   int
	ChannelLimit    map[string]int
	ChannelIDLength map[string]string
	ChannelModes    ChannelModes

	KickLength  int
	MaxList     map[string]int
	MaxTargets  map[string]int
	Modes       int
	NickLength  int
	TopicLength int

	UserModes string
	// UserModePriority lists prefix modes from most to least powerful, e.g. "ov".
	UserModePriority string
	// UserPrefixes lists the matching display prefixes, e.g. "@+".
	UserPrefixes string
}

func defaultSupported(channelPrefixes string) Supported {
	return Supported{
		CaseMapping:     "ascii",
		ChannelTypes:    channelPrefixes,
		ChannelLength:   200,
		ChannelLimit:    map[string]int{},
		ChannelIDLength: map[string]string{},
		ChannelModes: ChannelModes{
			A: "b",
			B: "k",
			C: "l",
			D: "imnpst",
		},
		MaxList:          map[string]int{},
		MaxTargets:       map[string]int{},
		Modes:            3,
		NickLength:       9,
		UserModePriority: "ov",
		UserPrefixes:     "@+",
	}
}

func (s Supported) clone() Supported {
	out := s
	out.ChannelLimit = cloneMap(s.ChannelLimit)
	out.ChannelIDLength = cloneMap(s.ChannelIDLength)
	out.MaxList = cloneMap(s.MaxList)
	out.MaxTargets = cloneMap(s.MaxTargets)
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var (
	isupportToken = regexp.MustCompile(`^([A-Z]+)=(.*)$`)
	prefixValue   = regexp.MustCompile(`^\((.*?)\)(.*)$`)
)

// applyISupport merges one RPL_ISUPPORT reply into s and returns true when
// the prefix mapping changed.
func (s *Supported) applyISupport(args []string) (prefixChanged bool) {
	for _, arg := range args {
		match := isupportToken.FindStringSubmatch(arg)
		if match == nil {
			continue
		}
		param, value := match[1], match[2]

		switch param {
		case "CASEMAPPING":
			s.CaseMapping = value
		case "CHANLIMIT":
			for prefixes, n := range splitPairs(value) {
				s.ChannelLimit[prefixes] = atoi(n)
			}
		case "CHANMODES":
			parts := strings.Split(value, ",")
			for len(parts) < 4 {
				parts = append(parts, "")
			}
			s.ChannelModes = ChannelModes{A: parts[0], B: parts[1], C: parts[2], D: parts[3]}
		case "CHANTYPES":
			s.ChannelTypes = value
		case "CHANNELLEN":
			s.ChannelLength = atoi(value)
		case "IDCHAN":
			for prefix, n := range splitPairs(value) {
				s.ChannelIDLength[prefix] = n
			}
		case "KICKLEN":
			s.KickLength = atoi(value)
		case "MAXLIST":
			for modes, n := range splitPairs(value) {
				s.MaxList[modes] = atoi(n)
			}
		case "MODES":
			s.Modes = atoi(value)
		case "NICKLEN":
			s.NickLength = atoi(value)
		case "PREFIX":
			pm := prefixValue.FindStringSubmatch(value)
			if pm == nil || len(pm[1]) != len(pm[2]) {
				continue
			}
			s.UserModePriority = pm[1]
			s.UserPrefixes = pm[2]
			prefixChanged = true
		case "TARGMAX":
			for cmd, n := range splitPairs(value) {
				s.MaxTargets[cmd] = atoi(n)
			}
		case "TOPICLEN":
			s.TopicLength = atoi(value)
		}
	}
	return prefixChanged
}

// splitPairs parses "a:1,b:2,c" into {a:1, b:2, c:""}.
func splitPairs(value string) map[string]string {
	out := map[string]string{}
	for _, item := range strings.Split(value, ",") {
		if item == "" {
			continue
		}
		k, v, _ := strings.Cut(item, ":")
		out[k] = v
	}
	return out
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// prefixTable maps prefix modes to display prefixes and back, for one session.
type prefixTable struct {
	prefixForMode map[byte]byte
	modeForPrefix map[byte]byte
}

func newPrefixTable(modes, prefixes string) prefixTable {
	t := prefixTable{
		prefixForMode: make(map[byte]byte, len(modes)),
		modeForPrefix: make(map[byte]byte, len(modes)),
	}
	for i := 0; i < len(modes) && i < len(prefixes); i++ {
		t.prefixForMode[modes[i]] = prefixes[i]
		t.modeForPrefix[prefixes[i]] = modes[i]
	}
	return t
}

// splitNamesEntry separates the leading known prefixes of a NAMES entry
// from the nick, e.g. "@+foo" -> ("@+", "foo").
func (t prefixTable) splitNamesEntry(entry string) (prefixes, nick string) {
	i := 0
	for i < len(entry) {
		if _, ok := t.modeForPrefix[entry[i]]; !ok {
			break
		}
		i++
	}
	return entry[:i], entry[i:]
}
