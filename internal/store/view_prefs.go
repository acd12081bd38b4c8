package store

import (
	"database/sql"
	"time"
)

// GetPageSize returns the page size the operator last used for a resource,
// or fallback if none was stored.
func (s *Store) GetPageSize(resource string, fallback int) (int, error) {
	var size int
	err := s.db.QueryRow("SELECT page_size FROM view_prefs WHERE resource = ?", resource).Scan(&size)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	if size <= 0 {
		return fallback, nil
	}
	return size, nil
}

// SetPageSize remembers the page size for a resource.
func (s *Store) SetPageSize(resource string, size int) error {
	query := `
		INSERT INTO view_prefs (resource, page_size, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(resource) DO UPDATE SET page_size = excluded.page_size, updated_at = excluded.updated_at
	`
	_, err := s.db.Exec(query, resource, size, time.Now())
	return err
}

// PageSizes returns every remembered page size keyed by resource.
func (s *Store) PageSizes() (map[string]int, error) {
	rows, err := s.db.Query("SELECT resource, page_size FROM view_prefs ORDER BY resource")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sizes := make(map[string]int)
	for rows.Next() {
		var resource string
		var size int
		if err := rows.Scan(&resource, &size); err != nil {
			return nil, err
		}
		sizes[resource] = size
	}
	return sizes, rows.Err()
}

// ResetPageSizes forgets every remembered page size.
func (s *Store) ResetPageSizes() error {
	_, err := s.db.Exec("DELETE FROM view_prefs")
	return err
}
