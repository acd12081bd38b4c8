// Package confirm guards destructive actions behind an explicit,
// non-blocking confirmation. A pending confirmation never expires; it ends
// only when the operator confirms it, cancels it, or asks to confirm
// something else.
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrCancelled is returned when the operator declined the action.
var ErrCancelled = errors.New("cancelled")

// ErrSuperseded is returned by Confirm on a request that was replaced by a
// newer one.
var ErrSuperseded = errors.New("confirmation was replaced by a newer request")

// Action is the guarded operation, e.g. a delete followed by a refresh.
type Action func(ctx context.Context) error

// Inline holds at most one pending confirmation.
type Inline struct {
	mu      sync.Mutex
	pending *Pending
}

// Pending is one open confirmation.
type Pending struct {
	owner   *Inline
	message string
	action  Action

	mu   sync.Mutex
	done bool
}

// Request opens a confirmation for action, replacing any pending one.
func (in *Inline) Request(message string, action Action) *Pending {
	p := &Pending{owner: in, message: message, action: action}
	in.mu.Lock()
	old := in.pending
	in.pending = p
	in.mu.Unlock()
	if old != nil {
		old.finish()
	}
	return p
}

// Pending returns the open confirmation, or nil.
func (in *Inline) Pending() *Pending {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.pending
}

// Message is the question shown to the operator.
func (p *Pending) Message() string {
	return p.message
}

// Open reports whether the confirmation is still waiting for an answer.
func (p *Pending) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.done
}

// Confirm runs the action once. The confirmation is closed whatever the
// action returns.
func (p *Pending) Confirm(ctx context.Context) error {
	if !p.finish() {
		return ErrSuperseded
	}
	p.owner.release(p)
	return p.action(ctx)
}

// Cancel closes the confirmation without running the action.
func (p *Pending) Cancel() {
	if p.finish() {
		p.owner.release(p)
	}
}

func (p *Pending) finish() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return false
	}
	p.done = true
	return true
}

func (in *Inline) release(p *Pending) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.pending == p {
		in.pending = nil
	}
}

// Prompt asks for the answer to p on a line-oriented terminal. Only an
// explicit "yes" confirms and "cancel" (or "no") declines; anything else
// asks again. End of input leaves p pending and returns io.EOF.
func Prompt(ctx context.Context, p *Pending, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s [yes/cancel]: ", p.Message())
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return io.EOF
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "yes", "y":
			return p.Confirm(ctx)
		case "cancel", "no", "n":
			p.Cancel()
			return ErrCancelled
		}
		fmt.Fprintln(out, "Please answer yes or cancel.")
	}
}
