package db_test

import (
	"path/filepath"
	"testing"

	"github.com/vrsandeep/storydesk/internal/db"
	"github.com/vrsandeep/storydesk/internal/testutil"
)

func TestMigrationsCreateStateTables(t *testing.T) {
	// Setup test database with migrations already applied
	database := testutil.SetupTestDB(t)

	for _, table := range []string{"session", "view_prefs"} {
		var name string
		err := database.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("Expected table %s to exist: %v", table, err)
		}
	}

	version, dirty, err := db.Version(database)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("Expected clean schema version 2, got %d (dirty=%v)", version, dirty)
	}

	// Applying again is a no-op.
	if err := db.RunMigrations(database); err != nil {
		t.Errorf("Second RunMigrations failed: %v", err)
	}
}

func TestSessionRowIsSingleton(t *testing.T) {
	database := testutil.SetupTestDB(t)

	_, err := database.Exec("INSERT INTO session (id, token, created_at) VALUES (2, 't', datetime('now'))")
	if err == nil {
		t.Error("Expected the session table to reject a second row id")
	}
}

func TestInitDBOnFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	database, err := db.InitDB(path)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	version, _, err := db.Version(database)
	if err != nil || version != 2 {
		t.Errorf("Expected version 2 on a file database, got %d (%v)", version, err)
	}
}
