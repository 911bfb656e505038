package manager

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ReplayGuard remembers accepted request signatures for a window so a captured
// signed request cannot be sent again while its timestamp is still fresh.
type ReplayGuard struct {
	mu        sync.Mutex
	window    time.Duration
	seen      map[common.Hash]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewReplayGuard(window time.Duration) *ReplayGuard {
	return &ReplayGuard{
		window: window,
		seen:   make(map[common.Hash]time.Time),
		now:    time.Now,
	}
}

// Claim records sig and reports whether it was unused inside the window.
func (g *ReplayGuard) Claim(sig common.Hash) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.lastSweep) > g.window {
		g.sweep(now)
	}

	if at, ok := g.seen[sig]; ok && now.Sub(at) <= g.window {
		return false
	}
	g.seen[sig] = now
	return true
}

// Len is the number of signatures currently remembered.
func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

func (g *ReplayGuard) sweep(now time.Time) {
	for sig, at := range g.seen {
		if now.Sub(at) > g.window {
			delete(g.seen, sig)
		}
	}
	g.lastSweep = now
}
