package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// timerHandle owns at most one pending one-shot callback.
//
// arm replaces any pending callback and clear is idempotent. A callback whose handle was
// cleared or re-armed after it fired, but before it ran, is dropped.
type timerHandle struct {
	clock clockwork.Clock

	mu    sync.Mutex
	gen   uint64
	timer clockwork.Timer
	armed bool
}

func newTimerHandle(clock clockwork.Clock) *timerHandle {
	return &timerHandle{clock: clock}
}

func (h *timerHandle) arm(d time.Duration, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	h.gen++
	gen := h.gen
	h.armed = true

	if d <= 0 {
		go h.fire(gen, fn)
		return
	}
	h.timer = h.clock.AfterFunc(d, func() { go h.fire(gen, fn) })
}

func (h *timerHandle) fire(gen uint64, fn func()) {
	h.mu.Lock()
	if h.gen != gen || !h.armed {
		h.mu.Unlock()
		return
	}
	h.armed = false
	h.timer = nil
	h.mu.Unlock()

	fn()
}

func (h *timerHandle) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
	h.gen++
}

func (h *timerHandle) isArmed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.armed
}

func (h *timerHandle) stopLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.armed = false
}

// poller runs fn immediately and then on every interval tick until stopped.
type poller struct {
	clock    clockwork.Clock
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func newPoller(clock clockwork.Clock, interval time.Duration) *poller {
	return &poller{clock: clock, interval: interval}
}

func (p *poller) start(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	stop := make(chan struct{})
	p.stop = stop
	ticker := p.clock.NewTicker(p.interval)

	go func() {
		defer ticker.Stop()
		fn()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()
}

func (p *poller) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *poller) running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *poller) stopLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}
