// Package resources binds every backend collection to a screen: its list
// endpoint and table columns, its form fields, its toggles and any rules
// that apply before a dialog may open.
package resources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/confirm"
	"github.com/vrsandeep/storydesk/internal/controller"
	"github.com/vrsandeep/storydesk/internal/form"
	"github.com/vrsandeep/storydesk/internal/thumbnail"
	"github.com/vrsandeep/storydesk/internal/util"
)

// ErrNotSupported is returned for operations a resource does not offer,
// e.g. creating a report.
var ErrNotSupported = errors.New("operation not supported for this resource")

// Deps are the collaborators every screen is built with.
type Deps struct {
	Client      *api.Client
	Notifier    controller.Notifier
	PageSize    int
	Extractor   thumbnail.Extractor
	Lookups     *Lookups
	Confirm     *confirm.Inline
	MediaOrigin string
}

// Op is a write operation a screen may support.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Page is the rendered current page of a screen.
type Page struct {
	Headers   []string
	IDs       []string
	Rows      [][]string
	RowCount  int
	PageIndex int
	PageSize  int
	PageCount int
	Loading   bool
	Filters   map[string]string
}

// Screen is the type-independent face of a resource, used by the console.
type Screen interface {
	Name() string
	Title() string
	Filters() []string
	Toggles() []string
	Supports(op Op) bool

	Fetch(ctx context.Context) error
	SetPageIndex(ctx context.Context, index int) error
	SetPageSize(ctx context.Context, size int) error
	SetFilter(ctx context.Context, key, value string) error
	Page() Page

	Dialog() *form.Dialog
	OpenCreate(ctx context.Context) error
	OpenEdit(ctx context.Context, id string) error
	Attach(field, path string) error
	Submit(ctx context.Context) error

	RequestDelete(id string) (*confirm.Pending, error)
	Toggle(ctx context.Context, id, field string) error
}

// Column renders one table column.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// ToggleDef flips one boolean of a record through the backend.
type ToggleDef[T any] struct {
	Field string
	Call  func(ctx context.Context, c *api.Client, item T) (*api.Result, error)
	Apply func(item *T, res *api.Result) error
}

// Def describes one resource screen.
type Def[T any] struct {
	Name     string // registry key, e.g. "coin-plans"
	Title    string
	Singular string
	Resource api.Resource

	Key     func(T) string
	Label   func(T) string
	Columns []Column[T]

	// Fields is called on every open so choice lists stay current.
	Fields    func() []form.Field
	Values    func(T) form.Values
	Check     form.Check
	Multipart bool

	// Video and Thumbnail name the file fields used for thumbnail capture.
	Video, Thumbnail string

	Filters     []string
	Toggles     []ToggleDef[T]
	ClientPaged bool

	NoCreate, NoUpdate, NoDelete bool

	// Prepare runs before every fetch and before either dialog opens.
	Prepare func(ctx context.Context)

	// BeforeCreate runs before the create dialog opens. It returns draft
	// overrides, or an error that keeps the dialog closed.
	BeforeCreate func(ctx context.Context, s *Collection[T]) (form.Values, error)
}

// Collection is the screen of one resource type.
type Collection[T any] struct {
	def    Def[T]
	deps   Deps
	ctrl   *controller.Controller[T]
	dialog *form.Dialog
	loaded bool
}

// NewCollection builds the screen described by def.
func NewCollection[T any](d Deps, def Def[T]) *Collection[T] {
	if d.Confirm == nil {
		d.Confirm = &confirm.Inline{}
	}
	if d.Extractor == nil {
		d.Extractor = thumbnail.NoopExtractor{}
	}
	c := &Collection[T]{def: def, deps: d}
	c.ctrl = controller.New(c.binding(), d.Notifier, d.PageSize)
	c.dialog = c.newDialog()
	return c
}

func (c *Collection[T]) binding() controller.Binding[T] {
	client, res := c.deps.Client, c.def.Resource
	b := controller.Binding[T]{
		Resource:    strings.ToLower(c.def.Title),
		Singular:    c.def.Singular,
		Key:         c.def.Key,
		ClientPaged: c.def.ClientPaged,
		List: func(ctx context.Context, p api.ListParams) (*api.Result, error) {
			return client.List(ctx, res, p)
		},
		Toggles: make(map[string]controller.Toggle[T]),
	}
	if !c.def.NoCreate {
		b.Create = func(ctx context.Context, body api.Body) (*api.Result, error) {
			return client.Create(ctx, res, body)
		}
	}
	if !c.def.NoUpdate {
		b.Update = func(ctx context.Context, id string, body api.Body) (*api.Result, error) {
			return client.Update(ctx, res, id, body)
		}
	}
	if !c.def.NoDelete {
		b.Delete = func(ctx context.Context, id string) (*api.Result, error) {
			return client.Delete(ctx, res, id)
		}
	}
	for _, t := range c.def.Toggles {
		t := t
		b.Toggles[t.Field] = controller.Toggle[T]{
			Call: func(ctx context.Context, item T) (*api.Result, error) {
				return t.Call(ctx, client, item)
			},
			Apply: t.Apply,
		}
	}
	return b
}

func (c *Collection[T]) newDialog() *form.Dialog {
	var fields []form.Field
	if c.def.Fields != nil {
		fields = c.def.Fields()
	}
	d := form.New(fields)
	if c.def.Check != nil {
		d.WithCheck(c.def.Check)
	}
	if c.def.Video != "" {
		d.WithAutoThumbnail(form.AutoThumbnail{
			Video:     c.def.Video,
			Thumbnail: c.def.Thumbnail,
			Extractor: c.deps.Extractor,
		})
	}
	return d
}

// Controller exposes the typed controller.
func (c *Collection[T]) Controller() *controller.Controller[T] { return c.ctrl }

func (c *Collection[T]) Name() string      { return c.def.Name }
func (c *Collection[T]) Title() string     { return c.def.Title }
func (c *Collection[T]) Filters() []string { return c.def.Filters }

func (c *Collection[T]) Toggles() []string {
	out := make([]string, 0, len(c.def.Toggles))
	for _, t := range c.def.Toggles {
		out = append(out, t.Field)
	}
	return out
}

func (c *Collection[T]) Supports(op Op) bool {
	switch op {
	case OpCreate:
		return !c.def.NoCreate
	case OpUpdate:
		return !c.def.NoUpdate
	case OpDelete:
		return !c.def.NoDelete
	}
	return false
}

func (c *Collection[T]) prepare(ctx context.Context) {
	if c.def.Prepare != nil {
		c.def.Prepare(ctx)
	}
}

func (c *Collection[T]) Fetch(ctx context.Context) error {
	c.prepare(ctx)
	err := c.ctrl.FetchPage(ctx)
	if err == nil {
		c.loaded = true
	}
	return err
}

func (c *Collection[T]) SetPageIndex(ctx context.Context, index int) error {
	return c.ctrl.SetPageIndex(ctx, index)
}

func (c *Collection[T]) SetPageSize(ctx context.Context, size int) error {
	return c.ctrl.SetPageSize(ctx, size)
}

func (c *Collection[T]) SetFilter(ctx context.Context, key, value string) error {
	return c.ctrl.SetFilter(ctx, key, value)
}

func (c *Collection[T]) Page() Page {
	st := c.ctrl.State()
	p := Page{
		RowCount:  st.RowCount,
		PageIndex: st.PageIndex,
		PageSize:  st.PageSize,
		PageCount: c.ctrl.PageCount(),
		Loading:   st.Loading,
		Filters:   st.Filters,
	}
	for _, col := range c.def.Columns {
		p.Headers = append(p.Headers, col.Header)
	}
	for _, item := range st.Data {
		row := make([]string, len(c.def.Columns))
		for i, col := range c.def.Columns {
			row[i] = col.Value(item)
		}
		p.IDs = append(p.IDs, c.def.Key(item))
		p.Rows = append(p.Rows, row)
	}
	return p
}

func (c *Collection[T]) Dialog() *form.Dialog { return c.dialog }

// OpenCreate opens the create dialog unless a rule of the resource blocks it.
func (c *Collection[T]) OpenCreate(ctx context.Context) error {
	if c.def.NoCreate {
		return ErrNotSupported
	}
	var overrides form.Values
	if c.def.BeforeCreate != nil {
		o, err := c.def.BeforeCreate(ctx, c)
		if err != nil {
			return err
		}
		overrides = o
	}
	c.prepare(ctx)
	c.dialog = c.newDialog()
	c.dialog.OpenCreate(overrides)
	return nil
}

// OpenEdit opens the edit dialog seeded from the record on the current page.
func (c *Collection[T]) OpenEdit(ctx context.Context, id string) error {
	if c.def.NoUpdate {
		return ErrNotSupported
	}
	item, ok := c.ctrl.Find(id)
	if !ok {
		return fmt.Errorf("%s %s is not on the current page", strings.ToLower(c.def.Singular), id)
	}
	c.prepare(ctx)
	c.dialog = c.newDialog()
	c.dialog.OpenEdit(id, c.def.Values(item))
	return nil
}

// Attach checks the file and attaches it to the open dialog.
func (c *Collection[T]) Attach(field, path string) error {
	if err := util.ValidateUpload(path); err != nil {
		return err
	}
	return c.dialog.Attach(field, path)
}

// Submit validates the open dialog and saves it through the controller.
func (c *Collection[T]) Submit(ctx context.Context) error {
	return c.dialog.Submit(ctx, func(ctx context.Context, s form.Submission) error {
		var body api.Body = s.JSON()
		if c.def.Multipart {
			body = s.Form()
		}
		if s.Mode == form.Create {
			return c.ctrl.Create(ctx, body)
		}
		return c.ctrl.Update(ctx, s.ID, body)
	})
}

// RequestDelete opens a confirmation for deleting id. Nothing is sent
// until the confirmation is confirmed.
func (c *Collection[T]) RequestDelete(id string) (*confirm.Pending, error) {
	if c.def.NoDelete {
		return nil, ErrNotSupported
	}
	item, ok := c.ctrl.Find(id)
	if !ok {
		return nil, fmt.Errorf("%s %s is not on the current page", strings.ToLower(c.def.Singular), id)
	}
	label := id
	if c.def.Label != nil {
		label = c.def.Label(item)
	}
	msg := fmt.Sprintf("Delete %s %q? This cannot be undone.", strings.ToLower(c.def.Singular), label)
	return c.deps.Confirm.Request(msg, func(ctx context.Context) error {
		return c.ctrl.Delete(ctx, id)
	}), nil
}

func (c *Collection[T]) Toggle(ctx context.Context, id, field string) error {
	return c.ctrl.Toggle(ctx, id, field)
}

// ensureLoaded fetches the current page once if it was never fetched.
func (c *Collection[T]) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	return c.Fetch(ctx)
}

func (c *Collection[T]) notifyError(msg string) {
	if c.deps.Notifier != nil {
		c.deps.Notifier.Error(msg)
	}
}

// media resolves a stored media path for display.
func (d Deps) media(path string) string {
	return util.MediaURL(d.MediaOrigin, path)
}

// Factory builds a screen from its dependencies.
type Factory func(d Deps) Screen

var registry = make(map[string]Factory)

// Register adds a screen factory under name. It's called from init.
func Register(name string, f Factory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("resource '%s' is already registered", name))
	}
	registry[name] = f
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	f, ok := registry[name]
	return f, ok
}

// Names lists the registered resources in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
