package irc

import (
	"sort"
	"strings"
)

// Nick is the nick the server currently knows us by.
func (c *Client) Nick() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.nick
}

// OriginalNick is the first nick the server accepted.
func (c *Client) OriginalNick() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.originalNick
}

func (c *Client) HostMask() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.hostMask
}

// MaxLineLength is the longest message body that fits before the target
// name is taken off.
func (c *Client) MaxLineLength() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.maxLineLen
}

// Registered reports whether the server has welcomed this connection.
func (c *Client) Registered() bool {
	return c.registered()
}

// Supported returns a copy of the server feature table.
func (c *Client) Supported() Supported {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.supported.clone()
}

// AutoJoin returns the channels joined after every registration.
func (c *Client) AutoJoin() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.autoJoin...)
}

// Channels returns the display names of every tracked channel, sorted by key.
func (c *Client) Channels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.channelNames()
}

// Channel returns a snapshot of a tracked channel.
func (c *Client) Channel(name string) (*Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch := c.sess.channel(name)
	if ch == nil {
		return nil, false
	}
	return ch.clone(), true
}

// Users returns the sorted nick keys of a channel, or nil when untracked.
func (c *Client) Users(channel string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch := c.sess.channel(channel)
	if ch == nil {
		return nil
	}
	users := make([]string, 0, len(ch.Users))
	for nick := range ch.Users {
		users = append(users, nick)
	}
	sort.Strings(users)
	return users
}

// IsChannel reports whether name starts with one of the server's channel
// types.
func (c *Client) IsChannel(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.isChannel(name)
}

// IsBotNick reports whether nick is our current nick.
func (c *Client) IsBotNick(nick string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.isMe(nick)
}

// userPrefixes returns the prefixes nick holds in channel. An empty nick
// means ourselves.
func (c *Client) userPrefixes(channel, nick string) (string, bool) {
	s := c.sess
	if nick == "" {
		nick = s.nick
	}
	if nick == "" || !s.isChannel(channel) {
		return "", false
	}
	ch := s.channel(channel)
	if ch == nil {
		return "", false
	}
	prefixes, ok := ch.Users[s.casefold(nick)]
	return prefixes, ok
}

// IsInChannel reports whether nick (ourselves when "") is in channel.
func (c *Client) IsInChannel(channel, nick string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.userPrefixes(channel, nick)
	return ok
}

func (c *Client) hasPrefixMode(channel, nick string, mode byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prefix, ok := c.sess.prefixes.prefixForMode[mode]
	if !ok {
		return false
	}
	held, ok := c.userPrefixes(channel, nick)
	return ok && strings.IndexByte(held, prefix) >= 0
}

// IsOpInChannel reports whether nick (ourselves when "") holds +o.
func (c *Client) IsOpInChannel(channel, nick string) bool {
	return c.hasPrefixMode(channel, nick, 'o')
}

// IsVoiceInChannel reports whether nick (ourselves when "") holds +v.
func (c *Client) IsVoiceInChannel(channel, nick string) bool {
	return c.hasPrefixMode(channel, nick, 'v')
}

func (c *Client) IsOpOrVoiceInChannel(channel, nick string) bool {
	return c.IsOpInChannel(channel, nick) || c.IsVoiceInChannel(channel, nick)
}

func (c *Client) channelHasMode(channel string, mode byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch := c.sess.channel(channel)
	return ch != nil && ch.hasMode(mode)
}

// IsTopicLocked reports whether channel has +t.
func (c *Client) IsTopicLocked(channel string) bool {
	return c.channelHasMode(channel, 't')
}

// IsColorEnabled reports whether channel lacks +c.
func (c *Client) IsColorEnabled(channel string) bool {
	return !c.channelHasMode(channel, 'c')
}

// CanModifyTopic reports whether we may set the topic of channel.
func (c *Client) CanModifyTopic(channel string) bool {
	return c.IsOpInChannel(channel, "") || !c.IsTopicLocked(channel)
}

// IsUserPrefixMorePowerfulThan compares two display prefixes by the
// server's PREFIX order, e.g. ('@', '+') is true on most networks.
func (c *Client) IsUserPrefixMorePowerfulThan(prefix, testPrefix byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.userPrefixMorePowerful(prefix, testPrefix)
}
