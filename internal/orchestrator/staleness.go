package orchestrator

// #region imports
import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// #endregion

// #region clock

// Clock creates tickers. Tests substitute a fake.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker is the part of *time.Ticker the watchdog uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

type realTicker struct{ t *time.Ticker }

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// #endregion

// #region watchdog

// watchdog polls the live turn number while the oracle is consulted and
// cancels the consultation as soon as the turn moves on.
type watchdog struct {
	start int
	stale atomic.Bool
	done  chan struct{}
}

// startWatchdog runs until ctx ends or the turn changes. cancel is the
// CancelFunc of ctx.
func startWatchdog(ctx context.Context, c Client, start int, clock Clock, every time.Duration, cancel context.CancelFunc) *watchdog {
	w := &watchdog{start: start, done: make(chan struct{})}
	ticker := clock.NewTicker(every)
	go func() {
		defer close(w.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if now := c.Turn(); now != start {
					w.stale.Store(true)
					log.Printf("[ORCH] turn moved %d -> %d during consultation, cancelling", start, now)
					cancel()
					return
				}
			}
		}
	}()
	return w
}

// Stale reports whether the turn changed since start, either as seen by the
// watchdog or by a direct read of c.
func (w *watchdog) Stale(c Client) bool {
	if w.stale.Load() {
		return true
	}
	if c.Turn() != w.start {
		w.stale.Store(true)
		return true
	}
	return false
}

// #endregion
