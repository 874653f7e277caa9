package irc

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// floodQueue paces outbound lines: everything queued is written one line
// per tick, in the order it was queued.
type floodQueue struct {
	mu    sync.Mutex
	lines []string
	ready chan struct{}
	write func(line string)
}

func newFloodQueue(write func(string)) *floodQueue {
	return &floodQueue{write: write, ready: make(chan struct{}, 1)}
}

func (q *floodQueue) push(line string) {
	q.mu.Lock()
	q.lines = append(q.lines, line)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *floodQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return "", false
	}
	line := q.lines[0]
	q.lines[0] = ""
	q.lines = q.lines[1:]
	return line, true
}

// clear drops the backlog and returns how many lines were discarded.
func (q *floodQueue) clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.lines)
	q.lines = nil
	return n
}

func (q *floodQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// drainOne writes the oldest queued line, if any.
func (q *floodQueue) drainOne() bool {
	line, ok := q.pop()
	if ok {
		q.write(line)
	}
	return ok
}

// run drains one line each time tick returns, until ctx is done. It only
// waits for a tick while something is queued.
func (q *floodQueue) run(ctx context.Context, tick func(context.Context) error) {
	for {
		if q.len() == 0 {
			select {
			case <-q.ready:
			case <-ctx.Done():
				return
			}
			continue
		}
		if err := tick(ctx); err != nil {
			return
		}
		q.drainOne()
	}
}

// intervalTicker allows one tick per interval, with no burst.
func intervalTicker(interval time.Duration) func(context.Context) error {
	lim := rate.NewLimiter(rate.Every(interval), 1)
	return lim.Wait
}
