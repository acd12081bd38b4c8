package resources

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/models"
	"github.com/vrsandeep/storydesk/internal/util"
)

const lookupLimit = 100

// Option is one entry of a choice list: the id sent to the backend and the
// name shown to the operator.
type Option struct {
	ID   string
	Name string
}

// Lookups caches the category and language lists used by the story form.
type Lookups struct {
	client *api.Client

	mu         sync.RWMutex
	categories []Option
	languages  []Option
	loaded     bool
}

func NewLookups(client *api.Client) *Lookups {
	return &Lookups{client: client}
}

// Refresh reloads both lists. A list that fails to load keeps its previous
// contents.
func (l *Lookups) Refresh(ctx context.Context) error {
	categories, cerr := fetchOptions(ctx, l.client, api.Categories, func(c models.Category) Option {
		return Option{ID: c.ID, Name: c.Name}
	})
	languages, lerr := fetchOptions(ctx, l.client, api.Languages, func(lang models.Language) Option {
		return Option{ID: lang.ID, Name: lang.Name}
	})

	l.mu.Lock()
	if cerr == nil {
		l.categories = categories
	}
	if lerr == nil {
		l.languages = languages
	}
	if cerr == nil && lerr == nil {
		l.loaded = true
	}
	l.mu.Unlock()

	if cerr != nil {
		return fmt.Errorf("failed to load categories: %w", cerr)
	}
	if lerr != nil {
		return fmt.Errorf("failed to load languages: %w", lerr)
	}
	return nil
}

// Ensure loads both lists unless a previous load succeeded. A failure is
// logged and the next call tries again; meanwhile choice fields take free
// text.
func (l *Lookups) Ensure(ctx context.Context) {
	if l == nil || l.client == nil {
		return
	}
	l.mu.RLock()
	loaded := l.loaded
	l.mu.RUnlock()
	if loaded {
		return
	}
	if err := l.Refresh(ctx); err != nil {
		log.Printf("Warning: story choice lists are unavailable: %v", err)
	}
}

func fetchOptions[T any](ctx context.Context, c *api.Client, res api.Resource, option func(T) Option) ([]Option, error) {
	r, err := c.List(ctx, res, api.ListParams{Page: 1, Limit: lookupLimit})
	if err != nil {
		return nil, err
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	page, err := api.DecodePage[T](r)
	if err != nil {
		return nil, err
	}
	if page.TotalDocs > len(page.Docs) {
		log.Printf("Warning: only the first %d of %d %s are offered as choices", len(page.Docs), page.TotalDocs, res.Name)
	}
	out := make([]Option, 0, len(page.Docs))
	for _, d := range page.Docs {
		out = append(out, option(d))
	}
	util.SortNatural(out, func(o Option) string { return o.Name })
	return out, nil
}

func (l *Lookups) Categories() []Option {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Option(nil), l.categories...)
}

func (l *Lookups) Languages() []Option {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Option(nil), l.languages...)
}

func optionIDs(opts []Option) []string {
	ids := make([]string, len(opts))
	for i, o := range opts {
		ids[i] = o.ID
	}
	return ids
}

// optionName returns the name of id, or id itself when it is unknown.
func optionName(opts []Option, id string) string {
	for _, o := range opts {
		if o.ID == id {
			return o.Name
		}
	}
	return id
}
