// Command storydesk-state inspects and maintains the console's local state
// database: it applies pending migrations and shows or clears the stored
// session and view preferences.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
	"github.com/vrsandeep/storydesk/internal/config"
	"github.com/vrsandeep/storydesk/internal/db"
	"github.com/vrsandeep/storydesk/internal/session"
	"github.com/vrsandeep/storydesk/internal/store"
	"github.com/vrsandeep/storydesk/internal/util"
)

func main() {
	fs := pflag.NewFlagSet("storydesk-state", pflag.ExitOnError)
	config.BindFlags(fs)
	logout := fs.Bool("logout", false, "delete the stored session")
	resetViews := fs.Bool("reset-views", false, "forget the remembered page sizes")
	fs.Parse(os.Args[1:])

	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := util.EnsureStateDir(cfg.State.Path); err != nil {
		log.Fatalf("State directory is not usable: %v", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.State.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Run database migrations
	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	version, dirty, err := db.Version(database)
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}

	st := store.New(database)
	if *logout {
		sess, err := session.New(cfg.Session.Backend, st, cfg.API.BaseURL)
		if err != nil {
			log.Fatalf("Failed to open session: %v", err)
		}
		if err := sess.Clear(); err != nil {
			log.Fatalf("Failed to delete session: %v", err)
		}
		log.Println("Stored session deleted.")
	}
	if *resetViews {
		if err := st.ResetPageSizes(); err != nil {
			log.Fatalf("Failed to reset page sizes: %v", err)
		}
		log.Println("Remembered page sizes cleared.")
	}

	fmt.Printf("State database: %s (schema version %d", cfg.State.Path, version)
	if dirty {
		fmt.Print(", dirty")
	}
	fmt.Println(")")

	_, admin, err := st.GetSession()
	switch {
	case errors.Is(err, store.ErrNoSession):
		fmt.Println("Session: none")
	case err != nil:
		log.Fatalf("Failed to read session: %v", err)
	default:
		fmt.Printf("Session: %s <%s> (backend: %s)\n", admin.Name, admin.Email, cfg.Session.Backend)
	}

	sizes, err := st.PageSizes()
	if err != nil {
		log.Fatalf("Failed to read page sizes: %v", err)
	}
	if len(sizes) == 0 {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Resource", "Page size"})
	resources := make([]string, 0, len(sizes))
	for resource := range sizes {
		resources = append(resources, resource)
	}
	sort.Strings(resources)
	for _, resource := range resources {
		table.Append([]string{resource, strconv.Itoa(sizes[resource])})
	}
	table.Render()
}
