package irc

import (
	"sync"
	"time"
)

// pingTimer tracks inbound silence on one connection. After silence with no
// activity it calls wantPing; after a further timeout with still no
// activity it calls timedOut. Any activity restarts the cycle.
type pingTimer struct {
	silence time.Duration
	timeout time.Duration

	wantPing func()
	timedOut func()

	mu      sync.Mutex
	t       *time.Timer
	gen     uint64
	running bool
}

func newPingTimer(silence, timeout time.Duration, wantPing, timedOut func()) *pingTimer {
	return &pingTimer{
		silence:  silence,
		timeout:  timeout,
		wantPing: wantPing,
		timedOut: timedOut,
	}
}

func (p *pingTimer) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
	p.schedule(p.silence, p.firePing)
}

func (p *pingTimer) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.gen++
	if p.t != nil {
		p.t.Stop()
		p.t = nil
	}
}

// notifyOfActivity restarts the silence countdown.
func (p *pingTimer) notifyOfActivity() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.schedule(p.silence, p.firePing)
}

// schedule must be called with p.mu held.
func (p *pingTimer) schedule(d time.Duration, fire func(gen uint64)) {
	p.gen++
	gen := p.gen
	if p.t != nil {
		p.t.Stop()
	}
	p.t = time.AfterFunc(d, func() { fire(gen) })
}

func (p *pingTimer) firePing(gen uint64) {
	p.mu.Lock()
	if !p.running || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.schedule(p.timeout, p.fireTimeout)
	p.mu.Unlock()

	p.wantPing()
}

func (p *pingTimer) fireTimeout(gen uint64) {
	p.mu.Lock()
	if !p.running || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.t = nil
	p.mu.Unlock()

	p.timedOut()
}
