package testutil

import "sync"

// Notification is one message captured by a Notifier.
type Notification struct {
	Kind    string // "success", "error" or "expired"
	Message string
}

// Notifier records every notification for later assertions.
type Notifier struct {
	mu  sync.Mutex
	all []Notification
}

func (n *Notifier) Success(msg string) { n.add("success", msg) }
func (n *Notifier) Error(msg string)   { n.add("error", msg) }
func (n *Notifier) SessionExpired()    { n.add("expired", "") }

func (n *Notifier) add(kind, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.all = append(n.all, Notification{Kind: kind, Message: msg})
}

// All returns a copy of the recorded notifications.
func (n *Notifier) All() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.all...)
}

// Last returns the most recent notification, or a zero value.
func (n *Notifier) Last() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.all) == 0 {
		return Notification{}
	}
	return n.all[len(n.all)-1]
}

// Errors returns the messages of all error notifications.
func (n *Notifier) Errors() []string {
	var out []string
	for _, m := range n.All() {
		if m.Kind == "error" {
			out = append(out, m.Message)
		}
	}
	return out
}
