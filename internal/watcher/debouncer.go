package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer turns bursts of file events into one batch per quiet window.
// Events for the same path are folded so a batch tells what happened to each
// file overall: a file created and removed inside the window (an editor's
// swap copy) is dropped, and a file removed then created again (save by
// rename) is reported as modified.
type Debouncer struct {
	window   time.Duration
	maxBatch int
	onFlush  func([]Event)

	mu      sync.Mutex
	pending map[string]Event
	gen     uint64
	timer   *time.Timer
	stopped bool

	// delivering serializes onFlush calls.
	delivering sync.Mutex
}

// NewDebouncer creates a debouncer. A batch is delivered early once
// maxBatch distinct paths are pending.
func NewDebouncer(window time.Duration, maxBatch int, onFlush func([]Event)) *Debouncer {
	if maxBatch <= 0 {
		maxBatch = 100
	}
	return &Debouncer{
		window:   window,
		maxBatch: maxBatch,
		onFlush:  onFlush,
		pending:  make(map[string]Event),
	}
}

func (d *Debouncer) Add(e Event) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	if prev, ok := d.pending[e.Path]; ok {
		if merged, keep := fold(prev, e); keep {
			d.pending[e.Path] = merged
		} else {
			delete(d.pending, e.Path)
		}
	} else {
		d.pending[e.Path] = e
	}
	d.gen++

	if len(d.pending) >= d.maxBatch {
		batch := d.takeLocked()
		d.mu.Unlock()
		d.deliver(batch)
		return
	}

	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
	d.mu.Unlock()
}

// fire delivers the pending batch unless events arrived after the timer
// was armed.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	batch := d.takeLocked()
	d.mu.Unlock()
	d.deliver(batch)
}

// Stop delivers what is pending and drops later events.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	batch := d.takeLocked()
	d.mu.Unlock()
	d.deliver(batch)
}

// takeLocked empties the pending set, sorted by path. d.mu must be held.
func (d *Debouncer) takeLocked() []Event {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	batch := make([]Event, 0, len(d.pending))
	for _, e := range d.pending {
		batch = append(batch, e)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	d.pending = make(map[string]Event)
	return batch
}

func (d *Debouncer) deliver(batch []Event) {
	if len(batch) == 0 || d.onFlush == nil {
		return
	}
	d.delivering.Lock()
	defer d.delivering.Unlock()
	d.onFlush(batch)
}

// fold combines two events for one path. keep is false when the path ends
// the window as if nothing happened.
func fold(prev, next Event) (merged Event, keep bool) {
	switch {
	case prev.Type == EventCreate && next.Gone():
		return Event{}, false
	case prev.Type == EventCreate:
		next.Type = EventCreate
	case prev.Gone() && next.Type == EventCreate:
		next.Type = EventModify
	}
	return next, true
}
