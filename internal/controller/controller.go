// Package controller holds the paging state of one resource screen and
// turns every change of that state into a fetch against the backend.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vrsandeep/storydesk/internal/api"
)

// Notifier shows the outcome of an operation to the operator.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	SessionExpired()
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string) {}
func (nopNotifier) SessionExpired() {}

// Toggle flips one boolean field of a record through the backend.
type Toggle[T any] struct {
	Call func(ctx context.Context, item T) (*api.Result, error)
	// Apply patches the local copy once the backend confirmed the change.
	Apply func(item *T, res *api.Result) error
}

// Binding connects a controller to the endpoints of one resource.
type Binding[T any] struct {
	// Resource names the resource in notifications, e.g. "coin plans".
	Resource string
	// Singular is used for success messages, e.g. "Coin plan".
	Singular string

	List   func(ctx context.Context, p api.ListParams) (*api.Result, error)
	Create func(ctx context.Context, body api.Body) (*api.Result, error)
	Update func(ctx context.Context, id string, body api.Body) (*api.Result, error)
	Delete func(ctx context.Context, id string) (*api.Result, error)

	Key     func(item T) string
	Toggles map[string]Toggle[T]

	// ClientPaged resources are listed in full and paged locally.
	ClientPaged bool
}

// State is a snapshot of the controller.
type State[T any] struct {
	Data      []T
	RowCount  int
	PageIndex int
	PageSize  int
	Loading   bool
	Filters   map[string]string
}

// Controller is the paged view of one resource.
type Controller[T any] struct {
	binding Binding[T]
	notify  Notifier

	mu        sync.Mutex
	data      []T
	all       []T
	rowCount  int
	pageIndex int
	pageSize  int
	loading   bool
	filters   map[string]string
	seq       uint64
}

// New creates a controller with an empty first page of pageSize rows.
func New[T any](b Binding[T], n Notifier, pageSize int) *Controller[T] {
	if n == nil {
		n = nopNotifier{}
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Controller[T]{
		binding:  b,
		notify:   n,
		pageSize: pageSize,
		filters:  make(map[string]string),
	}
}

// Resource returns the display name of the bound resource.
func (c *Controller[T]) Resource() string {
	return c.binding.Resource
}

// State returns a copy of the current state.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	filters := make(map[string]string, len(c.filters))
	for k, v := range c.filters {
		filters[k] = v
	}
	return State[T]{
		Data:      append([]T(nil), c.data...),
		RowCount:  c.rowCount,
		PageIndex: c.pageIndex,
		PageSize:  c.pageSize,
		Loading:   c.loading,
		Filters:   filters,
	}
}

// PageCount is the number of pages for the current row count, at least one.
func (c *Controller[T]) PageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pageCount(c.rowCount, c.pageSize)
}

func pageCount(rows, size int) int {
	if size <= 0 || rows <= 0 {
		return 1
	}
	return (rows + size - 1) / size
}

// Find returns the record with the given key from the current page.
func (c *Controller[T]) Find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.data {
		if c.binding.Key(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// All returns every loaded record of a client-paged resource, or the
// current page otherwise.
func (c *Controller[T]) All() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.binding.ClientPaged {
		return append([]T(nil), c.all...)
	}
	return append([]T(nil), c.data...)
}

// SetPageIndex moves to page index (0-based) and fetches it.
func (c *Controller[T]) SetPageIndex(ctx context.Context, index int) error {
	if index < 0 {
		index = 0
	}
	c.mu.Lock()
	c.pageIndex = index
	c.mu.Unlock()
	return c.FetchPage(ctx)
}

// SetPageSize changes the page size, returns to the first page and fetches.
func (c *Controller[T]) SetPageSize(ctx context.Context, size int) error {
	if size <= 0 {
		return fmt.Errorf("invalid page size %d", size)
	}
	c.mu.Lock()
	c.pageSize = size
	c.pageIndex = 0
	c.mu.Unlock()
	return c.FetchPage(ctx)
}

// SetFilter sets (or with an empty value removes) a query filter, returns
// to the first page and fetches.
func (c *Controller[T]) SetFilter(ctx context.Context, key, value string) error {
	c.mu.Lock()
	if value == "" {
		delete(c.filters, key)
	} else {
		c.filters[key] = value
	}
	c.pageIndex = 0
	c.mu.Unlock()
	return c.FetchPage(ctx)
}

// FetchPage loads the current page. A response that arrives after a newer
// fetch was issued is dropped.
func (c *Controller[T]) FetchPage(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	id := c.seq
	c.loading = true
	params := api.ListParams{Filters: make(map[string]string, len(c.filters))}
	for k, v := range c.filters {
		if k == "search" {
			params.Search = v
			continue
		}
		params.Filters[k] = v
	}
	if !c.binding.ClientPaged {
		params.Page = c.pageIndex + 1
		params.Limit = c.pageSize
	}
	c.mu.Unlock()

	res, err := c.binding.List(ctx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.seq {
		return nil
	}
	c.loading = false

	if err = c.check("fetch", res, err); err != nil {
		return err
	}
	page, err := api.DecodePage[T](res)
	if err != nil {
		c.notify.Error("Error fetching " + c.binding.Resource)
		return err
	}

	if c.binding.ClientPaged {
		c.all = page.Docs
		c.rowCount = len(page.Docs)
		c.data = slicePage(page.Docs, c.pageIndex, c.pageSize)
		return nil
	}
	c.data = page.Docs
	c.rowCount = page.TotalDocs
	return nil
}

func slicePage[T any](all []T, index, size int) []T {
	start := index * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return append([]T(nil), all[start:end]...)
}

// Create sends a new record and refreshes the list on success.
func (c *Controller[T]) Create(ctx context.Context, body api.Body) error {
	if c.binding.Create == nil {
		return fmt.Errorf("%s cannot be created", c.binding.Resource)
	}
	res, err := c.binding.Create(ctx, body)
	if err := c.checkLocked("create", res, err); err != nil {
		return err
	}
	c.notify.Success(SuccessMessage(res, c.binding.Singular, "created"))
	return c.FetchPage(ctx)
}

// Update sends changes to record id and refreshes the list on success.
func (c *Controller[T]) Update(ctx context.Context, id string, body api.Body) error {
	if c.binding.Update == nil {
		return fmt.Errorf("%s cannot be updated", c.binding.Resource)
	}
	res, err := c.binding.Update(ctx, id, body)
	if err := c.checkLocked("update", res, err); err != nil {
		return err
	}
	c.notify.Success(SuccessMessage(res, c.binding.Singular, "updated"))
	return c.FetchPage(ctx)
}

// Delete removes record id and refreshes the list on success.
func (c *Controller[T]) Delete(ctx context.Context, id string) error {
	if c.binding.Delete == nil {
		return fmt.Errorf("%s cannot be deleted", c.binding.Resource)
	}
	res, err := c.binding.Delete(ctx, id)
	if err := c.checkLocked("delete", res, err); err != nil {
		return err
	}
	c.notify.Success(SuccessMessage(res, c.binding.Singular, "deleted"))
	return c.FetchPage(ctx)
}

// Toggle flips field of record id. The local record is patched only after
// the backend confirmed the change; nothing is refetched.
func (c *Controller[T]) Toggle(ctx context.Context, id, field string) error {
	toggle, ok := c.binding.Toggles[field]
	if !ok {
		return fmt.Errorf("%s has no toggle %q", c.binding.Resource, field)
	}
	item, ok := c.Find(id)
	if !ok {
		return fmt.Errorf("%s %s is not on the current page", c.binding.Singular, id)
	}

	res, err := toggle.Call(ctx, item)
	if err := c.checkLocked("update", res, err); err != nil {
		return err
	}

	c.mu.Lock()
	for i := range c.data {
		if c.binding.Key(c.data[i]) != id {
			continue
		}
		if err := toggle.Apply(&c.data[i], res); err != nil {
			c.mu.Unlock()
			return err
		}
		break
	}
	for i := range c.all {
		if c.binding.Key(c.all[i]) != id {
			continue
		}
		if err := toggle.Apply(&c.all[i], res); err != nil {
			c.mu.Unlock()
			return err
		}
		break
	}
	c.mu.Unlock()

	c.notify.Success(SuccessMessage(res, c.binding.Singular, "updated"))
	return nil
}

func (c *Controller[T]) checkLocked(verb string, res *api.Result, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.check(verb, res, err)
}

// check reports a call outcome through the controller's notifier.
// Callers hold c.mu.
func (c *Controller[T]) check(verb string, res *api.Result, err error) error {
	return Outcome(c.notify, verb, c.binding.Resource, res, err)
}

// Outcome turns a call outcome into an error and the matching notification.
// Transport errors get a generic message, backend failures their own.
func Outcome(n Notifier, verb, resource string, res *api.Result, err error) error {
	if n == nil {
		n = nopNotifier{}
	}
	if err != nil {
		if api.IsAuthError(err) {
			n.SessionExpired()
			return err
		}
		n.Error(fmt.Sprintf("Error %s %s", gerund(verb), resource))
		return err
	}
	if err := res.Err(); err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			n.SessionExpired()
			return err
		}
		msg := res.Message
		if msg == "" {
			msg = fmt.Sprintf("Failed to %s %s", verb, resource)
			err = &api.APIError{Status: res.StatusCode, Message: msg}
		}
		n.Error(msg)
		return err
	}
	return nil
}

func gerund(verb string) string {
	return strings.TrimSuffix(verb, "e") + "ing"
}

// SuccessMessage prefers the backend's message over "<Singular> <done> successfully".
func SuccessMessage(res *api.Result, singular, done string) string {
	if res.Message != "" {
		return res.Message
	}
	return fmt.Sprintf("%s %s successfully", singular, done)
}
