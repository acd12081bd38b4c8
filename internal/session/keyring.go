package session

import (
	"errors"

	"github.com/vrsandeep/storydesk/internal/models"
	"github.com/vrsandeep/storydesk/internal/store"
	"github.com/zalando/go-keyring"
)

const keyringService = "storydesk"

// KeyringStore keeps the token in the operating system keyring and only
// the non-secret admin profile in the local state database.
type KeyringStore struct {
	st      *store.Store
	account string
}

// NewKeyringStore creates a keyring-backed session store. account scopes
// the keyring entry, normally the API base URL.
func NewKeyringStore(st *store.Store, account string) *KeyringStore {
	return &KeyringStore{st: st, account: account}
}

func (k *KeyringStore) Token() (string, error) {
	token, err := keyring.Get(keyringService, k.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotLoggedIn
	}
	return token, err
}

func (k *KeyringStore) Admin() (*models.Admin, error) {
	_, admin, err := k.st.GetSession()
	if err == store.ErrNoSession {
		return nil, ErrNotLoggedIn
	}
	return admin, err
}

func (k *KeyringStore) Save(token string, admin models.Admin) error {
	if err := keyring.Set(keyringService, k.account, token); err != nil {
		return err
	}
	// The row still needs a non-empty token column to count as a session.
	return k.st.SaveSession("keyring", admin)
}

func (k *KeyringStore) UpdateAdmin(admin models.Admin) error {
	return k.st.SaveAdmin(admin)
}

func (k *KeyringStore) Clear() error {
	err := keyring.Delete(keyringService, k.account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return k.st.DeleteSession()
}
