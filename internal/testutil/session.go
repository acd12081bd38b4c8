package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/session"
)

// Session is an in-memory session.Provider.
type Session struct {
	mu      sync.Mutex
	token   string
	Cleared int
}

func NewSession(token string) *Session {
	return &Session{token: token}
}

func (s *Session) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", session.ErrNotLoggedIn
	}
	return s.token, nil
}

func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.Cleared++
	return nil
}

// Client returns an API client logged in to the backend.
func (b *Backend) Client(t *testing.T) *api.Client {
	t.Helper()
	return api.New(api.Options{BaseURL: b.URL(), Timeout: 5 * time.Second, Session: NewSession(b.Token)})
}
