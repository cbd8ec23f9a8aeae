package remote

import (
	"sync"
	"time"
)

// Debouncer runs the most recently scheduled task once the window has passed without a new
// schedule. Scheduling replaces the pending task rather than queueing another one.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	timer   *time.Timer
	pending func()
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn

	var t *time.Timer
	t = time.AfterFunc(d.window, func() { d.fire(t) })
	d.timer = t
}

func (d *Debouncer) fire(t *time.Timer) {
	d.mu.Lock()
	if d.timer != t {
		// superseded by a later Schedule, Flush or Stop
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.timer = nil
	d.pending = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Flush runs the pending task now, if any, on the caller's goroutine.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	fn := d.pending
	d.timer = nil
	d.pending = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop drops the pending task without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = nil
	d.pending = nil
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
