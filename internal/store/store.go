// To handle all local state database interactions. The console keeps only
// the operator's session and view preferences here; backend records are
// always re-fetched from the API.

package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/vrsandeep/storydesk/internal/models"
)

// ErrNoSession is returned when nobody is logged in.
var ErrNoSession = errors.New("no stored session")

// Store provides all functions to interact with the local state database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveSession replaces the stored session with a fresh token and admin profile.
func (s *Store) SaveSession(token string, admin models.Admin) error {
	query := `
		INSERT INTO session (id, token, admin_id, admin_name, admin_email, admin_image, created_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			admin_id = excluded.admin_id,
			admin_name = excluded.admin_name,
			admin_email = excluded.admin_email,
			admin_image = excluded.admin_image,
			created_at = excluded.created_at
	`
	_, err := s.db.Exec(query, token, admin.ID, admin.Name, admin.Email, admin.Image, time.Now())
	return err
}

// GetSession returns the stored token and admin profile.
func (s *Store) GetSession() (string, *models.Admin, error) {
	var token string
	var admin models.Admin
	query := "SELECT token, admin_id, admin_name, admin_email, admin_image FROM session WHERE id = 1"
	err := s.db.QueryRow(query).Scan(&token, &admin.ID, &admin.Name, &admin.Email, &admin.Image)
	if err == sql.ErrNoRows || (err == nil && token == "") {
		return "", nil, ErrNoSession
	}
	if err != nil {
		return "", nil, err
	}
	return token, &admin, nil
}

// SaveAdmin updates only the stored admin profile, keeping the token.
func (s *Store) SaveAdmin(admin models.Admin) error {
	query := "UPDATE session SET admin_id = ?, admin_name = ?, admin_email = ?, admin_image = ? WHERE id = 1"
	res, err := s.db.Exec(query, admin.ID, admin.Name, admin.Email, admin.Image)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoSession
	}
	return nil
}

// DeleteSession removes the stored session (used for logout and expiry).
func (s *Store) DeleteSession() error {
	_, err := s.db.Exec("DELETE FROM session WHERE id = 1")
	return err
}
