package bot

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/qaix/qaixbot/internal/storage"
)

// handleCommand processes one prefixed command line.
func (b *Bot) handleCommand(req request) {
	name := strings.ToLower(strings.Fields(req.message)[0])

	switch name {
	case "help":
		b.cmdHelp(req)
	case "points", "getpoints", "level":
		b.cmdPoints(req)
	case "top":
		b.cmdTop(req)
	case "addpoints", "setpoints":
		if changesOthers(req) {
			b.requireAdmin(req, "Sorry, only my admins can change other users' points")
			break
		}
		b.runPoints(req)
	case "greeting":
		b.cmdGreeting(req)
	case "version":
		b.cmdVersion(req)
	case "join":
		b.requireAdmin(req, "Sorry, only my admins can make me join channels")
	case "part":
		b.requireAdmin(req, "Sorry, only my admins can make me leave channels")
	case "nick":
		b.requireAdmin(req, "Sorry, only my admins can change my nick")
	case "say":
		b.requireAdmin(req, "Sorry, only my admins can make me talk")
	case "setgreeting":
		b.requireAdmin(req, "Sorry, only my admins can change the greeting")
	case "logs", "logsearch", "stats":
		b.requireAdmin(req, "Sorry, only my admins can read my logs")
	default:
		return
	}

	if b.counter != nil {
		b.counter.Command(name)
	}
}

// runAdmin runs a command whose sender has been verified.
func (b *Bot) runAdmin(req request) {
	switch strings.ToLower(strings.Fields(req.message)[0]) {
	case "addpoints", "setpoints":
		b.runPoints(req)
	case "join":
		b.cmdJoin(req)
	case "part":
		b.cmdPart(req)
	case "nick":
		b.cmdNick(req)
	case "say":
		b.cmdSay(req)
	case "setgreeting":
		b.cmdSetGreeting(req)
	case "logs":
		b.cmdLogs(req)
	case "logsearch":
		b.cmdLogSearch(req)
	case "stats":
		b.cmdStats(req)
	}
}

func (b *Bot) cmdHelp(req request) {
	b.logCommand(req.hostmask, req.message)

	p := b.cfg.CommandPrefix
	b.tell(req.nick, "Available commands:")
	b.tell(req.nick, p+"points [nick] - shows the points of nick, or yours (also "+p+"getpoints, "+p+"level)")
	b.tell(req.nick, p+"top [number] - shows who has the most points")
	b.tell(req.nick, p+"setpoints [amount] - sets your points, or resets them")
	b.tell(req.nick, p+"greeting - shows the greeting sent to users joining my channels")
	b.tell(req.nick, p+"version - displays bot version information")

	b.mu.Lock()
	isAdmin := b.admins[req.hostmask]
	b.mu.Unlock()

	if isAdmin {
		b.tell(req.nick, " ")
		b.tell(req.nick, "Admin commands:")
		b.tell(req.nick, p+"addpoints <amount> <nick...> - gives each nick the amount of points")
		b.tell(req.nick, p+"setpoints <amount> <nick...> - sets the points of each nick")
		b.tell(req.nick, p+"join <channel> [key]")
		b.tell(req.nick, p+"part <channel> [reason]")
		b.tell(req.nick, p+"nick <newnick>")
		b.tell(req.nick, p+"say <target> <text>")
		b.tell(req.nick, p+"setgreeting <message>")
		b.tell(req.nick, p+"logs [number] - displays the last server notices")
		b.tell(req.nick, p+"logsearch <text> - searches server notices")
		b.tell(req.nick, p+"stats [number] - displays the last commands I handled")
	}
}

// userID is the points key for nick.
func userID(nick string) string {
	return strings.ToLower(nick)
}

func formatPoints(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func parseAmount(s string) (float64, error) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func (b *Bot) cmdPoints(req request) {
	b.logCommand(req.hostmask, req.message)

	parts := strings.Fields(req.message)
	nick := req.nick
	if len(parts) > 1 {
		nick = parts[1]
	}

	ctx, cancel := b.storeContext()
	defer cancel()
	p, err := b.points.Get(ctx, userID(nick))
	if err != nil {
		log.Printf("Error reading points: %v", err)
		b.reply(req, "Sorry, I could not read the points")
		return
	}
	b.reply(req, fmt.Sprintf("%s has %s points", nick, formatPoints(p)))
}

func (b *Bot) cmdTop(req request) {
	b.logCommand(req.hostmask, req.message)

	parts := strings.Fields(req.message)
	count := 5
	if len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 && n <= 20 {
			count = n
		}
	}

	ctx, cancel := b.storeContext()
	defer cancel()
	users, err := b.points.Top(ctx, count)
	if err != nil {
		log.Printf("Error reading points: %v", err)
		b.reply(req, "Sorry, I could not read the points")
		return
	}
	if len(users) == 0 {
		b.reply(req, "Nobody has any points yet")
		return
	}
	for i, u := range users {
		b.reply(req, fmt.Sprintf("%d. %s - %s", i+1, u.ID, formatPoints(u.Points)))
	}
}

func (b *Bot) cmdAddPoints(req request) {
	b.logCommand(req.hostmask, req.message)

	parts := strings.Fields(req.message)
	if len(parts) < 3 {
		b.reply(req, fmt.Sprintf("Usage: %saddpoints <amount> <nick...>", b.cfg.CommandPrefix))
		return
	}
	amount, err := parseAmount(parts[1])
	if err != nil {
		b.reply(req, fmt.Sprintf("Usage: %saddpoints <amount> <nick...>", b.cfg.CommandPrefix))
		return
	}

	ids := make([]string, 0, len(parts)-2)
	for _, nick := range parts[2:] {
		ids = append(ids, userID(nick))
	}

	ctx, cancel := b.storeContext()
	defer cancel()
	if err := b.points.Add(ctx, ids, amount); err != nil {
		log.Printf("Error adding points: %v", err)
		b.reply(req, "Sorry, I could not update the points")
		return
	}
	b.reply(req, fmt.Sprintf("Added %s points to %s", formatPoints(amount), strings.Join(parts[2:], ", ")))
}

func (b *Bot) runPoints(req request) {
	if strings.EqualFold(strings.Fields(req.message)[0], "addpoints") {
		b.cmdAddPoints(req)
		return
	}
	b.cmdSetPoints(req)
}

// changesOthers reports whether a points command names anyone but its
// sender.
func changesOthers(req request) bool {
	parts := strings.Fields(req.message)
	if len(parts) < 3 {
		return false
	}
	for _, nick := range parts[2:] {
		if !strings.EqualFold(nick, req.nick) {
			return true
		}
	}
	return false
}

// cmdSetPoints without arguments resets the sender to zero; with only an
// amount it sets the sender.
func (b *Bot) cmdSetPoints(req request) {
	b.logCommand(req.hostmask, req.message)

	parts := strings.Fields(req.message)
	amount := 0.0
	if len(parts) > 1 {
		n, err := parseAmount(parts[1])
		if err != nil {
			b.reply(req, fmt.Sprintf("Usage: %ssetpoints [amount] [nick...]", b.cfg.CommandPrefix))
			return
		}
		amount = n
	}

	nicks := []string{req.nick}
	if len(parts) > 2 {
		nicks = parts[2:]
	}
	ids := make([]string, 0, len(nicks))
	for _, nick := range nicks {
		ids = append(ids, userID(nick))
	}

	ctx, cancel := b.storeContext()
	defer cancel()
	if err := b.points.Set(ctx, ids, amount); err != nil {
		log.Printf("Error setting points: %v", err)
		b.reply(req, "Sorry, I could not update the points")
		return
	}
	b.reply(req, fmt.Sprintf("Set %s to %s points", strings.Join(nicks, ", "), formatPoints(amount)))
}

func (b *Bot) cmdGreeting(req request) {
	b.logCommand(req.hostmask, req.message)

	b.mu.Lock()
	g := *b.greeting
	b.mu.Unlock()

	if g.Message == "" {
		b.reply(req, "No greeting is set")
		return
	}
	b.reply(req, g.Message)
	b.reply(req, fmt.Sprintf("Greeting set by %s", g.Setter))
}

func (b *Bot) cmdVersion(req request) {
	b.logCommand(req.hostmask, req.message)

	b.reply(req, fmt.Sprintf("qaixbot version %s", Version))
	b.reply(req, fmt.Sprintf("Built: %s", BuildDate))
	b.reply(req, fmt.Sprintf("Commit: %s", GitCommit))
}

func (b *Bot) cmdJoin(req request) {
	parts := strings.Fields(req.message)
	if len(parts) < 2 {
		b.reply(req, fmt.Sprintf("Usage: %sjoin <channel> [key]", b.cfg.CommandPrefix))
		return
	}
	key := ""
	if len(parts) > 2 {
		key = parts[2]
	}
	if err := b.irc.Join(parts[1], key); err != nil {
		b.reply(req, fmt.Sprintf("Could not join %s: %v", parts[1], err))
		return
	}
	b.logCommand(req.hostmask, "join "+parts[1])
}

func (b *Bot) cmdPart(req request) {
	parts := strings.SplitN(req.message, " ", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		b.reply(req, fmt.Sprintf("Usage: %spart <channel> [reason]", b.cfg.CommandPrefix))
		return
	}
	channel := strings.TrimSpace(parts[1])
	reason := ""
	if len(parts) > 2 {
		reason = strings.TrimSpace(parts[2])
	}
	if err := b.irc.Part(channel, reason); err != nil {
		b.reply(req, fmt.Sprintf("Could not leave %s: %v", channel, err))
		return
	}
	b.saveChannels()
	b.logCommand(req.hostmask, "part "+channel)
}

func (b *Bot) cmdNick(req request) {
	parts := strings.Fields(req.message)
	if len(parts) < 2 {
		b.reply(req, fmt.Sprintf("Usage: %snick <newnick>", b.cfg.CommandPrefix))
		return
	}
	if err := b.irc.SetNick(parts[1]); err != nil {
		b.reply(req, fmt.Sprintf("Could not change nick: %v", err))
		return
	}
	b.logCommand(req.hostmask, fmt.Sprintf("nick change command to %s", parts[1]))
}

func (b *Bot) cmdSay(req request) {
	parts := strings.SplitN(req.message, " ", 3)
	if len(parts) < 3 || strings.TrimSpace(parts[2]) == "" {
		b.reply(req, fmt.Sprintf("Usage: %ssay <target> <text>", b.cfg.CommandPrefix))
		return
	}
	if err := b.irc.Say(parts[1], parts[2]); err != nil {
		b.reply(req, fmt.Sprintf("Could not message %s: %v", parts[1], err))
		return
	}
	b.logCommand(req.hostmask, fmt.Sprintf("said to %s: %s", parts[1], parts[2]))
}

func (b *Bot) cmdSetGreeting(req request) {
	parts := strings.SplitN(req.message, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		b.reply(req, fmt.Sprintf("Usage: %ssetgreeting <message>", b.cfg.CommandPrefix))
		return
	}

	message := strings.TrimSpace(parts[1])
	timestamp := time.Now().UTC().Format(timestampLayout)
	g := &storage.Greeting{
		Setter:  fmt.Sprintf("%s on %s", req.nick, timestamp),
		Message: message,
	}

	b.mu.Lock()
	b.greeting = g
	b.mu.Unlock()

	if err := storage.SaveGreeting(b.cfg.DataDir, g); err != nil {
		b.reply(req, fmt.Sprintf("Error saving greeting: %v", err))
		return
	}
	b.reply(req, fmt.Sprintf("Greeting has been set to \"%s\"", message))
	b.logCommand(req.hostmask, fmt.Sprintf("changed greeting to \"%s\"", message))
}

func (b *Bot) cmdLogs(req request) {
	b.logCommand(req.hostmask, req.message)

	parts := strings.Fields(req.message)
	count := 10
	if len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 {
			count = n
		}
	}

	b.mu.Lock()
	logs := b.logs
	b.mu.Unlock()

	b.tell(req.nick, fmt.Sprintf("The last \x02%d\x02 server notices:", count))
	for i := 0; i < count && i < len(logs); i++ {
		b.tell(req.nick, logs[i])
	}
}

func (b *Bot) cmdLogSearch(req request) {
	b.logCommand(req.hostmask, req.message)

	parts := strings.SplitN(req.message, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		b.tell(req.nick, "Please specify a string to search for")
		return
	}
	term := strings.TrimSpace(parts[1])

	b.mu.Lock()
	logs := b.logs
	b.mu.Unlock()

	b.tell(req.nick, fmt.Sprintf("Displaying search results for \"%s\":", term))
	termLower := strings.ToLower(term)
	for _, entry := range logs {
		if strings.Contains(strings.ToLower(entry), termLower) {
			b.tell(req.nick, "    "+entry)
		}
	}
	b.tell(req.nick, "End of matches")
}

func (b *Bot) cmdStats(req request) {
	parts := strings.Fields(req.message)
	count := 10
	if len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 {
			count = n
		}
	}

	b.mu.Lock()
	stats := b.stats
	b.mu.Unlock()

	start := max(len(stats)-count, 0)
	b.tell(req.nick, fmt.Sprintf("The last \x02%d\x02 commands:", len(stats)-start))
	for _, entry := range stats[start:] {
		b.tell(req.nick, entry)
	}
	b.logCommand(req.hostmask, req.message)
}
