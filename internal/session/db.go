package session

import (
	"github.com/vrsandeep/storydesk/internal/models"
	"github.com/vrsandeep/storydesk/internal/store"
)

// DBStore keeps the token and admin profile in the local state database.
type DBStore struct {
	st *store.Store
}

// NewDBStore creates a session store backed by st.
func NewDBStore(st *store.Store) *DBStore {
	return &DBStore{st: st}
}

func (d *DBStore) Token() (string, error) {
	token, _, err := d.st.GetSession()
	if err == store.ErrNoSession {
		return "", ErrNotLoggedIn
	}
	return token, err
}

func (d *DBStore) Admin() (*models.Admin, error) {
	_, admin, err := d.st.GetSession()
	if err == store.ErrNoSession {
		return nil, ErrNotLoggedIn
	}
	return admin, err
}

func (d *DBStore) Save(token string, admin models.Admin) error {
	return d.st.SaveSession(token, admin)
}

func (d *DBStore) UpdateAdmin(admin models.Admin) error {
	return d.st.SaveAdmin(admin)
}

func (d *DBStore) Clear() error {
	return d.st.DeleteSession()
}
