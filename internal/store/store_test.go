package store_test

import (
	"testing"

	"github.com/vrsandeep/storydesk/internal/models"
	"github.com/vrsandeep/storydesk/internal/store"
	"github.com/vrsandeep/storydesk/internal/testutil"
)

func TestSessionLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	if _, _, err := s.GetSession(); err != store.ErrNoSession {
		t.Fatalf("Expected ErrNoSession on an empty database, got %v", err)
	}

	admin := models.Admin{ID: "a1", Name: "Root", Email: "root@example.com"}
	if err := s.SaveSession("token-1", admin); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	token, got, err := s.GetSession()
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if token != "token-1" || got.Email != "root@example.com" {
		t.Errorf("Unexpected session: token=%q admin=%+v", token, got)
	}

	// A second login replaces the row instead of adding one.
	if err := s.SaveSession("token-2", admin); err != nil {
		t.Fatalf("SaveSession (second) failed: %v", err)
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM session").Scan(&count); err != nil {
		t.Fatalf("Failed to count sessions: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 session row, got %d", count)
	}

	admin.Name = "Renamed"
	if err := s.SaveAdmin(admin); err != nil {
		t.Fatalf("SaveAdmin failed: %v", err)
	}
	token, got, _ = s.GetSession()
	if token != "token-2" || got.Name != "Renamed" {
		t.Errorf("SaveAdmin should keep the token and update the profile, got token=%q admin=%+v", token, got)
	}

	if err := s.DeleteSession(); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, _, err := s.GetSession(); err != store.ErrNoSession {
		t.Errorf("Expected ErrNoSession after delete, got %v", err)
	}
	if err := s.SaveAdmin(admin); err != store.ErrNoSession {
		t.Errorf("SaveAdmin without a session should fail with ErrNoSession, got %v", err)
	}
}

func TestViewPrefs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	size, err := s.GetPageSize("stories", 10)
	if err != nil {
		t.Fatalf("GetPageSize failed: %v", err)
	}
	if size != 10 {
		t.Errorf("Expected fallback page size 10, got %d", size)
	}

	if err := s.SetPageSize("stories", 25); err != nil {
		t.Fatalf("SetPageSize failed: %v", err)
	}
	if err := s.SetPageSize("stories", 50); err != nil {
		t.Fatalf("SetPageSize (update) failed: %v", err)
	}
	size, _ = s.GetPageSize("stories", 10)
	if size != 50 {
		t.Errorf("Expected stored page size 50, got %d", size)
	}

	other, _ := s.GetPageSize("users", 10)
	if other != 10 {
		t.Errorf("Preferences should be per resource, got %d for users", other)
	}
}

func TestPageSizesAndReset(t *testing.T) {
	s := store.New(testutil.SetupTestDB(t))
	s.SetPageSize("users", 20)
	s.SetPageSize("coin-plans", 5)

	sizes, err := s.PageSizes()
	if err != nil {
		t.Fatalf("PageSizes failed: %v", err)
	}
	if len(sizes) != 2 || sizes["users"] != 20 || sizes["coin-plans"] != 5 {
		t.Errorf("Unexpected page sizes: %v", sizes)
	}

	if err := s.ResetPageSizes(); err != nil {
		t.Fatalf("ResetPageSizes failed: %v", err)
	}
	sizes, _ = s.PageSizes()
	if len(sizes) != 0 {
		t.Errorf("Expected no page sizes after reset, got %v", sizes)
	}
}
