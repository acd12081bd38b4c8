// Package console is the operator's terminal front end. It renders the
// resource screens as tables and maps typed commands onto them.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vrsandeep/storydesk/internal/confirm"
	"github.com/vrsandeep/storydesk/internal/core"
	"github.com/vrsandeep/storydesk/internal/debounce"
	"github.com/vrsandeep/storydesk/internal/form"
	"github.com/vrsandeep/storydesk/internal/history"
	"github.com/vrsandeep/storydesk/internal/resources"
)

// Notifier prints operation outcomes.
type Notifier struct {
	mu  *sync.Mutex
	out io.Writer

	failed atomic.Bool // an error was shown since the last reset
}

func (n *Notifier) Success(msg string) { n.print("OK: " + msg) }

func (n *Notifier) Error(msg string) {
	n.failed.Store(true)
	n.print("Error: " + msg)
}

func (n *Notifier) SessionExpired() {
	n.failed.Store(true)
	n.print("Session expired. Log in again with: login <email> <password>")
}

func (n *Notifier) print(line string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, line)
}

// Console holds the screens of one operator session.
type Console struct {
	app    *core.App
	in     io.Reader
	out    io.Writer
	mu     sync.Mutex // serializes output
	notify *Notifier

	// interactive consoles leave deletions pending for a "yes" command
	// instead of prompting.
	interactive bool

	confirm  *confirm.Inline
	screens  map[string]resources.Screen
	current  resources.Screen
	search   *debounce.Filter
	history  *history.View
	user     *history.UserView
	story    *history.StoryEpisodes
	settings *resources.SettingsForm

	editing   editor
	editTitle string

	ctx context.Context
}

// editor is a screen with an open create/edit form.
type editor interface {
	Dialog() *form.Dialog
	Attach(field, path string) error
	Submit(ctx context.Context) error
}

// New creates a console reading answers from in and writing to out.
func New(app *core.App, in io.Reader, out io.Writer) *Console {
	c := &Console{
		app:     app,
		in:      in,
		out:     out,
		confirm: &confirm.Inline{},
		screens: make(map[string]resources.Screen),
		ctx:     context.Background(),
	}
	c.notify = &Notifier{mu: &c.mu, out: out}
	cfg := app.Config()
	c.history = history.New(app.Client(), c.notify, cfg.Console.PageSize, time.Duration(cfg.Console.CloseDelayMS)*time.Millisecond)
	c.user = history.NewUserView(app.Client(), c.notify, cfg.Console.PageSize)
	c.story = history.NewStoryEpisodes(app.Client(), c.notify)
	return c
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) deps() resources.Deps {
	d := c.app.Deps(c.notify)
	d.Confirm = c.confirm
	return d
}

// screen returns the screen of a resource, built on first use with the
// remembered page size.
func (c *Console) screen(ctx context.Context, name string) (resources.Screen, error) {
	if s, ok := c.screens[name]; ok {
		return s, nil
	}
	factory, ok := resources.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q (try: resources)", name)
	}
	d := c.deps()
	d.PageSize = c.app.PageSize(name)
	s := factory(d)
	c.screens[name] = s
	return s, nil
}

// newSearch returns the search box of s. A committed value refetches the
// first page and shows it.
func newSearch(c *Console, s resources.Screen) *debounce.Filter {
	return debounce.New(s.Page().Filters["search"], c.debounceDelay(), func(value string) {
		if err := s.SetFilter(c.ctx, "search", value); err == nil {
			c.renderPage(s)
		}
	})
}

func (c *Console) debounceDelay() time.Duration {
	ms := c.app.Config().Console.DebounceMS
	if ms <= 0 {
		return debounce.DefaultDelay
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Console) requireScreen() (resources.Screen, error) {
	if c.current == nil {
		return nil, errors.New("no resource open (try: open <resource>)")
	}
	return c.current, nil
}

// locate pages through s until id is on the current page.
func locate(ctx context.Context, s resources.Screen, id string) error {
	if err := s.Fetch(ctx); err != nil {
		return err
	}
	for i := 0; ; i++ {
		for _, got := range s.Page().IDs {
			if got == id {
				return nil
			}
		}
		if i+1 >= s.Page().PageCount {
			return fmt.Errorf("no %s record with id %s", s.Name(), id)
		}
		if err := s.SetPageIndex(ctx, i+1); err != nil {
			return err
		}
	}
}

// Close stops pending timers.
func (c *Console) Close() {
	if c.search != nil {
		c.search.Stop()
	}
	c.history.Close()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
