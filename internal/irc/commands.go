package irc

import (
	"context"
	"strings"
	"sync"
)

// SplitMessages returns the lines Say or Notice would send to target for
// text. Each fits the server's 512 byte limit once our prefix is prepended.
func (c *Client) SplitMessages(target, text string) []string {
	return splitMessage(text, c.lineBudget(target))
}

// lineBudget is the longest body, in bytes, that can be sent to target.
func (c *Client) lineBudget(target string) int {
	c.mu.RLock()
	maxLength := c.sess.maxLineLen - len(target)
	c.mu.RUnlock()
	if c.opts.MessageSplit > 0 && c.opts.MessageSplit < maxLength {
		maxLength = c.opts.MessageSplit
	}
	return maxLength
}

// Say sends text to target as PRIVMSG, one line per split piece.
func (c *Client) Say(target, text string) error {
	return c.sendLines("PRIVMSG", target, c.SplitMessages(target, text))
}

// Notice sends text to target as NOTICE, one line per split piece.
func (c *Client) Notice(target, text string) error {
	return c.sendLines("NOTICE", target, c.SplitMessages(target, text))
}

func (c *Client) sendLines(command, target string, lines []string) error {
	for _, line := range lines {
		if err := c.Send(command, target, line); err != nil {
			return err
		}
		if command == "PRIVMSG" {
			c.emit(Event{Kind: EventSelfMessage, Target: target, Text: line})
		}
	}
	return nil
}

// Action sends text as CTCP ACTIONs. The text is split first so every
// piece keeps its own \x01 framing.
func (c *Client) Action(target, text string) error {
	const framing = len("\x01ACTION \x01")
	budget := c.lineBudget(target) - framing
	if budget <= 0 {
		budget = 1
	}

	pieces := splitMessage(text, budget)
	for i, piece := range pieces {
		pieces[i] = "\x01ACTION " + piece + "\x01"
	}
	return c.sendLines("PRIVMSG", target, pieces)
}

// CTCP sends a CTCP frame; kind "privmsg" sends a request, anything else a
// notice reply.
func (c *Client) CTCP(target, kind, text string) error {
	if kind == "privmsg" {
		return c.Say(target, "\x01"+text+"\x01")
	}
	return c.Notice(target, "\x01"+text+"\x01")
}

// Join joins channel, with an optional key. Once the server confirms, the
// channel is added to the list rejoined after every reconnect.
func (c *Client) Join(channel, key string) error {
	args := []string{channel}
	if key != "" {
		args = append(args, key)
	}

	c.mu.Lock()
	c.pending[c.sess.casefold(channel)] = strings.Join(args, " ")
	c.mu.Unlock()

	return c.Send("JOIN", args...)
}

// Part leaves channel and drops it from the rejoin list.
func (c *Client) Part(channel, reason string) error {
	c.mu.Lock()
	if i := c.autoJoinIndex(channel); i >= 0 {
		c.autoJoin = append(c.autoJoin[:i:i], c.autoJoin[i+1:]...)
	}
	c.mu.Unlock()

	if reason != "" {
		return c.Send("PART", channel, reason)
	}
	return c.Send("PART", channel)
}

// SetNick asks the server for a new nick. Session state follows once the
// server confirms with NICK.
func (c *Client) SetNick(nick string) error {
	if nick == "" {
		return ErrEmptyNick
	}
	return c.Send("NICK", nick)
}

// Mode queries the modes of a channel; the reply arrives as mode_is.
func (c *Client) Mode(channel string) error {
	return c.Send("MODE", channel)
}

// SetMode changes modes on target, e.g. SetMode("#chan", "+o", "nick").
func (c *Client) SetMode(target, modes string, args ...string) error {
	return c.Send("MODE", append([]string{target, modes}, args...)...)
}

// SetUserMode changes user modes on nick, or on ourselves when nick is "".
func (c *Client) SetUserMode(mode, nick string) error {
	if nick == "" {
		nick = c.Nick()
	}
	return c.Send("MODE", nick, mode)
}

// Names requests the member list of channel; the reply arrives as names.
func (c *Client) Names(channel string) error {
	return c.Send("NAMES", channel)
}

// List requests the server channel list, optionally filtered.
func (c *Client) List(args ...string) error {
	return c.Send("LIST", args...)
}

// Whois requests information about nick. When fn is not nil it is called
// once with the combined result.
func (c *Client) Whois(nick string, fn func(*WhoisInfo)) error {
	if nick == "" {
		return ErrEmptyNick
	}
	if fn == nil {
		return c.Send("WHOIS", nick)
	}
	remove := c.onceWhois(nick, fn)
	if err := c.Send("WHOIS", nick); err != nil {
		remove()
		return err
	}
	return nil
}

// WhoisWait requests information about nick and blocks until the combined
// result arrives or ctx is done.
func (c *Client) WhoisWait(ctx context.Context, nick string) (*WhoisInfo, error) {
	if nick == "" {
		return nil, ErrEmptyNick
	}
	result := make(chan *WhoisInfo, 1)
	remove := c.onceWhois(nick, func(info *WhoisInfo) { result <- info })
	defer remove()

	if err := c.Send("WHOIS", nick); err != nil {
		return nil, err
	}
	select {
	case info := <-result:
		return info, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// onceWhois calls fn for the first whois event about nick.
func (c *Client) onceWhois(nick string, fn func(*WhoisInfo)) (remove func()) {
	var (
		mu   sync.Mutex
		done bool
	)
	mu.Lock()
	defer mu.Unlock()
	remove = c.On(EventWhois, func(ev Event) {
		if ev.Whois == nil || !c.sameNick(ev.Whois.Nick, nick) {
			return
		}
		mu.Lock()
		fired := done
		done = true
		mu.Unlock()
		if fired {
			return
		}
		remove()
		fn(ev.Whois)
	})
	return remove
}

func (c *Client) sameNick(a, b string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.casefold(a) == c.sess.casefold(b)
}
