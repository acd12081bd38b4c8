// Package debounce delays committing a fast-changing input (a search box)
// until it has been quiet for a fixed interval.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet interval before a draft is committed.
const DefaultDelay = 500 * time.Millisecond

// Filter keeps a local draft apart from the committed value. Every Set
// restarts the timer; when it fires, the draft is committed through the
// callback unless it equals the last committed value.
type Filter struct {
	delay  time.Duration
	commit func(value string)

	mu        sync.Mutex
	draft     string
	committed string
	timer     *time.Timer
	gen       uint64
	stopped   bool
}

// New returns a Filter that starts out committed at initial.
func New(initial string, delay time.Duration, commit func(value string)) *Filter {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Filter{delay: delay, commit: commit, draft: initial, committed: initial}
}

// Set updates the draft and restarts the quiet interval.
func (f *Filter) Set(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.draft = value
	f.gen++
	gen := f.gen
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.delay, func() { f.fire(gen) })
}

// Draft is the value as typed so far.
func (f *Filter) Draft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Committed is the last value passed to the callback.
func (f *Filter) Committed() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.committed
}

// Flush commits the draft immediately, cancelling the pending timer.
func (f *Filter) Flush() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.gen++
	gen := f.gen
	f.mu.Unlock()
	f.fire(gen)
}

// Stop cancels any pending commit. A stopped Filter ignores further input.
func (f *Filter) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
	}
}

func (f *Filter) fire(gen uint64) {
	f.mu.Lock()
	// A timer that lost the race with Set, Flush or Stop must not commit.
	if gen != f.gen || f.stopped || f.draft == f.committed {
		f.mu.Unlock()
		return
	}
	value := f.draft
	f.committed = value
	f.mu.Unlock()

	f.commit(value)
}
