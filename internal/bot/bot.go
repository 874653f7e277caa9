// Package bot runs the qaixbot commands on top of an IRC session.
package bot

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/qaix/qaixbot/internal/config"
	"github.com/qaix/qaixbot/internal/irc"
	"github.com/qaix/qaixbot/internal/points"
	"github.com/qaix/qaixbot/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const (
	timestampLayout = "Mon Jan 02, 2006 at 15:04:05 GMT"
	storeTimeout    = 5 * time.Second
)

// Session is the part of *irc.Client the bot drives.
type Session interface {
	On(kind irc.EventKind, fn irc.Handler) (remove func())
	Say(target, text string) error
	Notice(target, text string) error
	CTCP(target, kind, text string) error
	Join(channel, key string) error
	Part(channel, reason string) error
	SetNick(nick string) error
	Whois(nick string, fn func(*irc.WhoisInfo)) error
	AutoJoin() []string
	IsBotNick(nick string) bool
}

// CommandCounter counts handled commands.
type CommandCounter interface {
	Command(name string)
}

// Bot answers prefixed commands from channels and private messages.
type Bot struct {
	ctx     context.Context
	irc     Session
	cfg     *config.Config
	points  *points.Store
	counter CommandCounter

	mu       sync.Mutex
	logs     []string
	stats    []string
	greeting *storage.Greeting

	// Verified admins: hostmask -> account matched
	admins map[string]bool
	// WHOIS lookups in flight: lower-cased nick -> queued commands
	pendingWhois map[string][]pendingCheck

	removers []func()
}

type pendingCheck struct {
	hostmask string
	request  request
}

// request is one command line as received.
type request struct {
	nick     string
	hostmask string
	channel  string
	message  string
}

// replyTo is where answers go: the channel the command came from, or the
// sender for private messages.
func (r request) replyTo() string {
	if r.channel != "" {
		return r.channel
	}
	return r.nick
}

// New loads the bot's files from cfg.DataDir and subscribes to session.
// counter may be nil.
func New(ctx context.Context, session Session, cfg *config.Config, store *points.Store, counter CommandCounter) (*Bot, error) {
	b := &Bot{
		ctx:          ctx,
		irc:          session,
		cfg:          cfg,
		points:       store,
		counter:      counter,
		admins:       make(map[string]bool),
		pendingWhois: make(map[string][]pendingCheck),
	}

	var err error
	if b.logs, err = storage.LoadLogs(cfg.DataDir); err != nil {
		log.Printf("Warning: could not load logs: %v", err)
		b.logs = []string{}
	}
	if b.stats, err = storage.LoadStats(cfg.DataDir); err != nil {
		log.Printf("Warning: could not load stats: %v", err)
		b.stats = []string{}
	}
	if b.greeting, err = storage.LoadGreeting(cfg.DataDir); err != nil {
		log.Printf("Warning: could not load greeting: %v", err)
		b.greeting = &storage.Greeting{}
	}

	b.removers = []func(){
		session.On(irc.EventMessage, b.onMessage),
		session.On(irc.EventNotice, b.onNotice),
		session.On(irc.EventCTCPVersion, b.onCtcpVersion),
		session.On(irc.EventJoin, b.onJoin),
		session.On(irc.EventPart, b.onPart),
		session.On(irc.EventQuit, b.onQuit),
	}
	return b, nil
}

// Close unsubscribes the bot from the session.
func (b *Bot) Close() {
	for _, remove := range b.removers {
		remove()
	}
	b.removers = nil
}

func (b *Bot) onMessage(ev irc.Event) {
	if !strings.HasPrefix(ev.Text, b.cfg.CommandPrefix) || ev.Nick == "" {
		return
	}
	req := request{
		nick:     ev.Nick,
		hostmask: hostmask(ev),
		channel:  ev.Channel,
		message:  strings.TrimSpace(strings.TrimPrefix(ev.Text, b.cfg.CommandPrefix)),
	}
	if req.message == "" {
		return
	}
	b.handleCommand(req)
}

// onNotice keeps notices sent by the server itself.
func (b *Bot) onNotice(ev irc.Event) {
	if ev.Nick != "" || ev.Message == nil || ev.Message.Server == "" {
		return
	}

	fromServer := ev.Message.Server
	if idx := strings.Index(fromServer, "."); idx > 0 {
		fromServer = fromServer[:idx]
	}
	timestamp := time.Now().UTC().Format("Mon Jan 02, 2006 15:04:05 GMT")
	entry := fmt.Sprintf("[%s] [%s]: %s", timestamp, fromServer, ev.Text)

	b.mu.Lock()
	b.logs = storage.AddLog(b.logs, entry)
	logs := b.logs
	b.mu.Unlock()

	if err := storage.SaveLogs(b.cfg.DataDir, logs); err != nil {
		log.Printf("Error saving logs: %v", err)
	}
}

func (b *Bot) onCtcpVersion(ev irc.Event) {
	reply := fmt.Sprintf("VERSION qaixbot %s (built %s, commit %s)", Version, BuildDate, GitCommit)
	if err := b.irc.CTCP(ev.Nick, "notice", reply); err != nil {
		log.Printf("Error answering CTCP VERSION from %s: %v", ev.Nick, err)
	}
}

func (b *Bot) onJoin(ev irc.Event) {
	if b.irc.IsBotNick(ev.Nick) {
		b.saveChannels()
		return
	}

	b.mu.Lock()
	message := b.greeting.Message
	b.mu.Unlock()
	if message == "" {
		return
	}
	if err := b.irc.Notice(ev.Nick, fmt.Sprintf("[%s] %s", ev.Channel, message)); err != nil {
		log.Printf("Error greeting %s: %v", ev.Nick, err)
	}
}

func (b *Bot) onPart(ev irc.Event) {
	if b.irc.IsBotNick(ev.Nick) {
		b.saveChannels()
	}
}

// onQuit forgets admin verification for the quitting hostmask.
func (b *Bot) onQuit(ev irc.Event) {
	mask := hostmask(ev)
	if mask == "" {
		return
	}
	b.mu.Lock()
	delete(b.admins, mask)
	b.mu.Unlock()
}

func (b *Bot) saveChannels() {
	if err := storage.SaveChannels(b.cfg.DataDir, b.irc.AutoJoin()); err != nil {
		log.Printf("Error saving channels: %v", err)
	}
}

// requireAdmin runs req right away when its hostmask is a verified admin;
// otherwise it WHOISes the sender and runs or refuses req once the reply
// arrives.
func (b *Bot) requireAdmin(req request, denied string) {
	b.mu.Lock()
	if b.admins[req.hostmask] {
		b.mu.Unlock()
		b.runAdmin(req)
		return
	}
	key := strings.ToLower(req.nick)
	queued := len(b.pendingWhois[key]) > 0
	b.pendingWhois[key] = append(b.pendingWhois[key], pendingCheck{hostmask: req.hostmask, request: req})
	b.mu.Unlock()

	if queued {
		return
	}
	err := b.irc.Whois(req.nick, func(info *irc.WhoisInfo) {
		b.onWhoisResult(key, info, denied)
	})
	if err != nil {
		b.mu.Lock()
		delete(b.pendingWhois, key)
		b.mu.Unlock()
		log.Printf("Error checking %s: %v", req.nick, err)
	}
}

func (b *Bot) onWhoisResult(key string, info *irc.WhoisInfo, denied string) {
	b.mu.Lock()
	pending := b.pendingWhois[key]
	delete(b.pendingWhois, key)
	admin := b.isAdminAccount(info.Account)
	if admin {
		for _, p := range pending {
			b.admins[p.hostmask] = true
		}
	}
	b.mu.Unlock()

	for _, p := range pending {
		if admin {
			b.runAdmin(p.request)
			continue
		}
		b.reply(p.request, denied)
		b.logCommand(p.hostmask, fmt.Sprintf("USER - %s", p.request.message))
	}
}

func (b *Bot) isAdminAccount(account string) bool {
	if account == "" {
		return false
	}
	return slices.ContainsFunc(b.cfg.Admins, func(a string) bool {
		return strings.EqualFold(a, account)
	})
}

func (b *Bot) reply(req request, text string) {
	if err := b.irc.Say(req.replyTo(), text); err != nil {
		log.Printf("Error replying to %s: %v", req.nick, err)
	}
}

func (b *Bot) tell(nick, text string) {
	if err := b.irc.Say(nick, text); err != nil {
		log.Printf("Error messaging %s: %v", nick, err)
	}
}

func (b *Bot) logCommand(hostmask, command string) {
	timestamp := time.Now().UTC().Format(timestampLayout)
	entry := fmt.Sprintf("%s: %s -> %s", timestamp, hostmask, command)

	b.mu.Lock()
	b.stats = storage.AddStat(b.stats, entry)
	stats := b.stats
	b.mu.Unlock()

	if err := storage.SaveStats(b.cfg.DataDir, stats); err != nil {
		log.Printf("Error saving stats: %v", err)
	}
}

func (b *Bot) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.ctx, storeTimeout)
}

func hostmask(ev irc.Event) string {
	if ev.Message == nil || ev.Message.Nick == "" {
		return ""
	}
	return fmt.Sprintf("%s!%s@%s", ev.Message.Nick, ev.Message.User, ev.Message.Host)
}
