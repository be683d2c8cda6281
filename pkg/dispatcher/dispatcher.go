// Package dispatcher implements the single-threaded cooperative event loop
// described in spec.md section 5 and section 9's "Callback/event loop"
// design note: every cross-component callback is delivered on one dispatcher
// "thread", nothing suspends in place, and every outstanding delayed task
// carries a cancellable generation token instead of relying on
// callback-on-destroyed-object behavior.
//
// The loop is split into an immediate FIFO queue and a delayed, time-ordered
// queue. Posting a task during the processing of the current turn makes it
// visible only on the *next* turn (DispatchPendingEvents), matching the
// out-of-credits detection ordering requirement in spec.md section 5: the
// reconnect Connect() calls queued while driving a state transition are only
// observed after the caller explicitly advances the dispatcher.
package dispatcher

import (
	"container/heap"
	"sync"
	"time"
)

// Task is a unit of work posted to the dispatcher.
type Task func()

// Dispatcher is a single-threaded cooperative event loop. The zero value is
// not usable; construct with New.
type Dispatcher struct {
	mu      sync.Mutex
	queue   []Task
	delayed delayedHeap
	nextGen uint64
	now     func() time.Time
}

// New creates a Dispatcher using the real wall clock.
func New() *Dispatcher {
	return &Dispatcher{now: time.Now}
}

// NewWithClock creates a Dispatcher using an injected clock, for
// deterministic tests of delayed-task ordering.
func NewWithClock(now func() time.Time) *Dispatcher {
	return &Dispatcher{now: now}
}

// Post enqueues fn to run on the dispatcher's next turn.
func (d *Dispatcher) Post(fn Task) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

// Token cancels a delayed task posted via PostDelayed. Cancel is idempotent
// and safe to call after the task has already fired.
type Token struct {
	gen uint64
	d   *Dispatcher
}

// Cancel revokes the delayed task. A task whose token was cancelled before
// its fire time is dropped silently rather than invoked.
func (t Token) Cancel() {
	if t.d == nil {
		return
	}
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	for i := range t.d.delayed {
		if t.d.delayed[i].gen == t.gen {
			t.d.delayed[i].cancelled = true
			return
		}
	}
}

type delayedTask struct {
	fire      time.Time
	fn        Task
	gen       uint64
	cancelled bool
	index     int
}

type delayedHeap []*delayedTask

func (h delayedHeap) Len() int            { return len(h) }
func (h delayedHeap) Less(i, j int) bool  { return h[i].fire.Before(h[j].fire) }
func (h delayedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *delayedHeap) Push(x any) {
	t := x.(*delayedTask)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// PostDelayed schedules fn to run no earlier than d from now. It returns a
// Token that can cancel the task before it fires.
func (d *Dispatcher) PostDelayed(delay time.Duration, fn Task) Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextGen++
	gen := d.nextGen
	heap.Push(&d.delayed, &delayedTask{
		fire: d.now().Add(delay),
		fn:   fn,
		gen:  gen,
	})
	return Token{gen: gen, d: d}
}

// DispatchPendingEvents runs exactly one turn: every immediate task queued
// before this call, in arrival order, plus every delayed task whose fire
// time has passed. Tasks posted during this turn (by the tasks it runs) are
// deferred to the next call, preserving "within one component, events are
// handled in arrival order" (spec.md section 5).
func (d *Dispatcher) DispatchPendingEvents() {
	d.mu.Lock()
	turn := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, fn := range turn {
		fn()
	}

	for {
		d.mu.Lock()
		if d.delayed.Len() == 0 || d.delayed[0].fire.After(d.now()) {
			d.mu.Unlock()
			return
		}
		t := heap.Pop(&d.delayed).(*delayedTask)
		d.mu.Unlock()

		if !t.cancelled {
			t.fn()
		}
	}
}

// HasPendingDelayed reports whether any non-cancelled delayed task remains.
func (d *Dispatcher) HasPendingDelayed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.delayed {
		if !t.cancelled {
			return true
		}
	}
	return false
}

// Run drives the dispatcher continuously against the real clock until stop
// is closed, sleeping between turns until the next delayed task is due or a
// value is received on wake. Post does not signal wake: an immediate task
// posted while Run is sleeping runs on the turn after the next wake or
// delayed-task expiry.
func (d *Dispatcher) Run(stop <-chan struct{}, wake <-chan struct{}) {
	for {
		d.DispatchPendingEvents()

		d.mu.Lock()
		var timer *time.Timer
		if d.delayed.Len() > 0 {
			wait := d.delayed[0].fire.Sub(d.now())
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
		}
		d.mu.Unlock()

		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C
		}

		select {
		case <-stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-wake:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}
