// Package history holds the drill-down screens: order-history totals per
// user with their purchases loaded when a row is opened, a user's profile
// with their coin ledger, and the episodes of one story.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/controller"
	"github.com/vrsandeep/storydesk/internal/models"
)

// DefaultCloseDelay matches the close transition of the detail panel.
const DefaultCloseDelay = 200 * time.Millisecond

// View holds the summary tabs and the open drill-down.
type View struct {
	client     *api.Client
	notify     controller.Notifier
	pageSize   int
	closeDelay time.Duration

	mu       sync.Mutex
	planType string
	tabs     map[string]models.OrderHistory
	selected *models.OrderSummary
	detail   *controller.Controller[models.Purchase]
	open     bool
	cleanup  *time.Timer
	gen      uint64
}

func New(client *api.Client, n controller.Notifier, pageSize int, closeDelay time.Duration) *View {
	if closeDelay < 0 {
		closeDelay = 0
	}
	return &View{
		client:     client,
		notify:     n,
		pageSize:   pageSize,
		closeDelay: closeDelay,
		planType:   models.PlanTypeCoin,
		tabs:       make(map[string]models.OrderHistory),
	}
}

// SelectType switches to the coin or vip tab. Each tab is fetched the first
// time it is shown.
func (v *View) SelectType(ctx context.Context, planType string) error {
	if planType != models.PlanTypeCoin && planType != models.PlanTypeVip {
		return fmt.Errorf("unknown plan type %q", planType)
	}
	v.mu.Lock()
	v.planType = planType
	_, cached := v.tabs[planType]
	v.mu.Unlock()
	if cached {
		return nil
	}
	return v.Refresh(ctx)
}

// Refresh refetches the current tab.
func (v *View) Refresh(ctx context.Context) error {
	planType := v.Type()
	res, err := v.client.OrderHistory(ctx, planType)
	if err := controller.Outcome(v.notify, "fetch", "order history", res, err); err != nil {
		return err
	}
	summary, err := api.DecodeData[models.OrderHistory](res)
	if err != nil {
		return fmt.Errorf("failed to decode order history: %w", err)
	}
	v.mu.Lock()
	v.tabs[planType] = summary
	v.mu.Unlock()
	return nil
}

func (v *View) Type() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.planType
}

// Summary returns the current tab.
func (v *View) Summary() models.OrderHistory {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tabs[v.planType]
}

// Open selects a user's row and loads the first page of their purchases.
// A cleanup still pending from a previous Close is cancelled.
func (v *View) Open(ctx context.Context, userID string) error {
	v.mu.Lock()
	var row *models.OrderSummary
	for _, s := range v.tabs[v.planType].History {
		if s.ID == userID {
			s := s
			row = &s
			break
		}
	}
	if row == nil {
		v.mu.Unlock()
		return fmt.Errorf("user %s is not in the %s order history", userID, v.planType)
	}
	v.cancelCleanup()
	planType := v.planType
	detail := controller.New(controller.Binding[models.Purchase]{
		Resource: "order history",
		Singular: "Purchase",
		List: func(ctx context.Context, p api.ListParams) (*api.Result, error) {
			return v.client.UserOrderHistory(ctx, userID, planType, p)
		},
		Key: func(p models.Purchase) string { return p.UniqueID },
	}, v.notify, v.pageSize)
	v.selected = row
	v.detail = detail
	v.open = true
	v.mu.Unlock()

	return detail.FetchPage(ctx)
}

// Close hides the drill-down at once and drops its data after the close
// delay.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open {
		return
	}
	v.open = false
	v.cancelCleanup()
	gen := v.gen
	v.cleanup = time.AfterFunc(v.closeDelay, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if gen != v.gen || v.open {
			return
		}
		v.selected = nil
		v.detail = nil
		v.cleanup = nil
	})
}

// cancelCleanup stops a pending cleanup. Callers hold v.mu.
func (v *View) cancelCleanup() {
	v.gen++
	if v.cleanup != nil {
		v.cleanup.Stop()
		v.cleanup = nil
	}
}

func (v *View) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

// Selected returns the row whose purchases are (or were last) shown.
func (v *View) Selected() (models.OrderSummary, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected == nil {
		return models.OrderSummary{}, false
	}
	return *v.selected, true
}

// Detail returns the purchases controller, or nil once cleaned up.
func (v *View) Detail() *controller.Controller[models.Purchase] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.detail
}
