package sweeper

import (
	"sync"
	"time"
)

// passGuard keeps a slow pass from overlapping the next tick of the
// same timer: an in-progress flag plus a minimum gap since the last
// start. Owned by the sweeper instance so independent sweepers keep
// independent cadences.
type passGuard struct {
	mu          sync.Mutex
	running     bool
	lastStarted time.Time
	minGap      time.Duration
}

func newPassGuard(minGap time.Duration) *passGuard {
	return &passGuard{minGap: minGap}
}

func (g *passGuard) begin(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return false
	}
	if !g.lastStarted.IsZero() && now.Sub(g.lastStarted) < g.minGap {
		return false
	}
	g.running = true
	g.lastStarted = now
	return true
}

func (g *passGuard) end() {
	g.mu.Lock()
	g.running = false
	g.mu.Unlock()
}
