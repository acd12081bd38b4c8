// Package session owns the operator's persisted credentials. The API client
// reads the bearer token through Provider and clears it when the backend
// rejects it; nothing else touches the stored token directly.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vrsandeep/storydesk/internal/models"
	"github.com/vrsandeep/storydesk/internal/store"
)

// ErrNotLoggedIn is returned by Token when no session is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// Provider hands out the current bearer token and forgets it on logout or expiry.
type Provider interface {
	Token() (string, error)
	Clear() error
}

// Store is a Provider that can also persist a new login.
type Store interface {
	Provider
	Save(token string, admin models.Admin) error
	// UpdateAdmin replaces the stored profile and keeps the token.
	UpdateAdmin(admin models.Admin) error
	Admin() (*models.Admin, error)
}

// New returns the session store of the configured backend, "db" (the
// default) or "keyring". account scopes the keyring entry.
func New(backend string, st *store.Store, account string) (Store, error) {
	switch backend {
	case "keyring":
		return NewKeyringStore(st, account), nil
	case "db", "":
		return NewDBStore(st), nil
	}
	return nil, fmt.Errorf("unknown session backend %q", backend)
}

// Expiry reads the exp claim of a JWT without verifying its signature; the
// backend is the one that verifies. ok is false when the token carries no
// readable expiry (opaque tokens are treated as non-expiring).
func Expiry(token string) (exp time.Time, ok bool) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	claimed, err := parsed.Claims.GetExpirationTime()
	if err != nil || claimed == nil {
		return time.Time{}, false
	}
	return claimed.Time, true
}

// Expired reports whether token is a JWT whose exp lies before now.
func Expired(token string, now time.Time) bool {
	exp, ok := Expiry(token)
	return ok && !now.Before(exp)
}
