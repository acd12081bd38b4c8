package core

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/config"
	"github.com/vrsandeep/storydesk/internal/controller"
	"github.com/vrsandeep/storydesk/internal/db"
	"github.com/vrsandeep/storydesk/internal/jobs"
	"github.com/vrsandeep/storydesk/internal/models"
	"github.com/vrsandeep/storydesk/internal/resources"
	"github.com/vrsandeep/storydesk/internal/session"
	"github.com/vrsandeep/storydesk/internal/store"
	"github.com/vrsandeep/storydesk/internal/thumbnail"
	"github.com/vrsandeep/storydesk/internal/util"
)

// App holds the components shared by the console and the maintenance
// binary.
type App struct {
	mu     sync.RWMutex
	config *config.Config

	db         *sql.DB
	store      *store.Store
	session    session.Store
	client     *api.Client
	lookups    *resources.Lookups
	extractor  thumbnail.Extractor
	jobManager *jobs.JobManager
	scheduler  *gocron.Scheduler
}

// New loads config.yml and sets up a new App.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig opens the state database, applies its migrations and
// builds the API client on top of the configured session backend.
func NewWithConfig(cfg *config.Config) (*App, error) {
	if err := util.EnsureStateDir(cfg.State.Path); err != nil {
		return nil, err
	}
	database, err := db.InitDB(cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if strings.Contains(cfg.State.Path, ":memory:") {
		database.SetMaxOpenConns(1)
	}
	if err := db.RunMigrations(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	st := store.New(database)
	sess, err := session.New(cfg.Session.Backend, st, cfg.API.BaseURL)
	if err != nil {
		database.Close()
		return nil, err
	}

	client := api.New(api.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   time.Duration(cfg.API.Timeout) * time.Second,
		RateLimit: cfg.API.RateLimit,
		Session:   sess,
	})

	jm := jobs.NewManager()
	jobs.RegisterDefaults(jm)

	return &App{
		config:     cfg,
		db:         database,
		store:      st,
		session:    sess,
		client:     client,
		lookups:    resources.NewLookups(client),
		extractor:  thumbnail.NewFFmpegExtractor(cfg.Thumbnail.FFmpeg),
		jobManager: jm,
	}, nil
}

func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

func (a *App) DB() *sql.DB                    { return a.db }
func (a *App) Store() *store.Store            { return a.store }
func (a *App) Session() session.Store         { return a.session }
func (a *App) Client() *api.Client            { return a.client }
func (a *App) Lookups() *resources.Lookups    { return a.lookups }
func (a *App) JobManager() *jobs.JobManager   { return a.jobManager }
func (a *App) Extractor() thumbnail.Extractor { return a.extractor }

// SetExtractor replaces the thumbnail extractor, e.g. in tests.
func (a *App) SetExtractor(e thumbnail.Extractor) { a.extractor = e }

// ApplyConfig takes over settings that can change while running. The API
// address and the session backend only change on restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cfg.API.BaseURL != a.config.API.BaseURL || cfg.Session.Backend != a.config.Session.Backend {
		log.Println("Warning: api.base_url and session.backend changes take effect after a restart.")
		cfg.API.BaseURL = a.config.API.BaseURL
		cfg.Session.Backend = a.config.Session.Backend
	}
	a.config = cfg
}

// Deps returns the dependencies of the resource screens.
func (a *App) Deps(n controller.Notifier) resources.Deps {
	cfg := a.Config()
	return resources.Deps{
		Client:      a.client,
		Notifier:    n,
		PageSize:    cfg.Console.PageSize,
		Extractor:   a.extractor,
		Lookups:     a.lookups,
		MediaOrigin: cfg.Media.BaseURL,
	}
}

// Login exchanges credentials for a session and stores it.
func (a *App) Login(ctx context.Context, email, password string) (models.Admin, error) {
	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		return models.Admin{}, fmt.Errorf("login request failed: %w", err)
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "Login failed"
		}
		return models.Admin{}, &api.APIError{Status: res.StatusCode, Message: msg}
	}
	login, err := api.DecodeLogin(res)
	if err != nil {
		return models.Admin{}, err
	}
	if err := a.session.Save(login.Token, login.Admin); err != nil {
		return models.Admin{}, fmt.Errorf("failed to store session: %w", err)
	}
	return login.Admin, nil
}

// Logout forgets the stored session.
func (a *App) Logout() error {
	return a.session.Clear()
}

// Whoami returns the logged-in admin as stored with the session.
func (a *App) Whoami() (*models.Admin, error) {
	if _, err := a.session.Token(); err != nil {
		return nil, err
	}
	return a.session.Admin()
}

// PageSize is the remembered page size of a resource, or the configured
// default.
func (a *App) PageSize(resource string) int {
	fallback := a.Config().Console.PageSize
	size, err := a.store.GetPageSize(resource, fallback)
	if err != nil {
		log.Printf("Warning: could not read page size for %s: %v", resource, err)
		return fallback
	}
	return size
}

func (a *App) SetPageSize(resource string, size int) error {
	return a.store.SetPageSize(resource, size)
}

// StartJobs starts the scheduled background jobs.
func (a *App) StartJobs() {
	a.scheduler = jobs.StartJobs(a)
}

// Close stops the scheduler and closes the state database.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
}
