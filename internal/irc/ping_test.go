package irc

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPingTimerSignalsOnceEach(t *testing.T) {
	var pings, timeouts atomic.Int32
	p := newPingTimer(20*time.Millisecond, 30*time.Millisecond,
		func() { pings.Add(1) },
		func() { timeouts.Add(1) })
	p.start()
	defer p.stop()

	assert.Eventually(t, func() bool { return timeouts.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Nothing more fires once the connection is declared dead.
	assert.Never(t, func() bool { return pings.Load() > 1 || timeouts.Load() > 1 }, 150*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, int32(1), pings.Load())
}

func TestPingTimerActivityResets(t *testing.T) {
	var pings, timeouts atomic.Int32
	p := newPingTimer(60*time.Millisecond, 60*time.Millisecond,
		func() { pings.Add(1) },
		func() { timeouts.Add(1) })
	p.start()
	defer p.stop()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		p.notifyOfActivity()
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, int32(0), pings.Load())
	assert.Equal(t, int32(0), timeouts.Load())

	// Activity after the ping request cancels the pending timeout.
	assert.Eventually(t, func() bool { return pings.Load() == 1 }, time.Second, 5*time.Millisecond)
	p.notifyOfActivity()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), timeouts.Load())
}

func TestPingTimerStop(t *testing.T) {
	var fired atomic.Int32
	p := newPingTimer(10*time.Millisecond, 10*time.Millisecond,
		func() { fired.Add(1) },
		func() { fired.Add(1) })
	p.start()
	p.stop()
	p.notifyOfActivity()

	assert.Never(t, func() bool { return fired.Load() > 0 }, 60*time.Millisecond, 5*time.Millisecond)
}
