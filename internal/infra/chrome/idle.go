package chrome

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// idleTracker counts in-flight network requests of a tab. The page is idle once
// no request has been in flight for the quiet window.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	changed  chan struct{}
}

func newIdleTracker() *idleTracker {
	return &idleTracker{
		inflight: make(map[network.RequestID]struct{}),
		changed:  make(chan struct{}, 1),
	}
}

// handle is registered with chromedp.ListenTarget.
func (t *idleTracker) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.started(e.RequestID)
	case *network.EventLoadingFinished:
		t.finished(e.RequestID)
	case *network.EventLoadingFailed:
		t.finished(e.RequestID)
	}
}

func (t *idleTracker) started(id network.RequestID) {
	t.mu.Lock()
	t.inflight[id] = struct{}{}
	t.mu.Unlock()
	t.notify()
}

func (t *idleTracker) finished(id network.RequestID) {
	t.mu.Lock()
	delete(t.inflight, id)
	t.mu.Unlock()
	t.notify()
}

func (t *idleTracker) notify() {
	select {
	case t.changed <- struct{}{}:
	default:
	}
}

func (t *idleTracker) inFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// wait blocks until nothing has been in flight for quiet, or ctx ends.
func (t *idleTracker) wait(ctx context.Context, quiet time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(quiet)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.changed:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(quiet)
		case <-timer.C:
			if t.inFlight() == 0 {
				return nil
			}
			timer.Reset(quiet)
		}
	}
}
