package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/controller"
	"github.com/vrsandeep/storydesk/internal/models"
)

// UserView is the user detail screen: the profile and coin ledger, plus the
// user's coin plan purchases, fetched the first time they are asked for.
type UserView struct {
	client   *api.Client
	notify   controller.Notifier
	pageSize int

	mu          sync.Mutex
	gen         uint64
	user        *models.User
	coins       *controller.Controller[models.CoinHistory]
	plans       *controller.Controller[models.PlanPurchase]
	plansLoaded bool
}

func NewUserView(client *api.Client, n controller.Notifier, pageSize int) *UserView {
	return &UserView{client: client, notify: n, pageSize: pageSize}
}

// Open loads the profile of user id and the first page of their coin
// ledger. A slower Open of another user that finishes later is dropped.
func (v *UserView) Open(ctx context.Context, id string) error {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	res, err := v.client.UserDetail(ctx, id)
	if err := controller.Outcome(v.notify, "fetch", "user", res, err); err != nil {
		return err
	}
	user, err := api.DecodeData[models.User](res)
	if err != nil {
		return fmt.Errorf("failed to decode user: %w", err)
	}

	coins := controller.New(controller.Binding[models.CoinHistory]{
		Resource: "coin history",
		Singular: "Coin entry",
		List: func(ctx context.Context, p api.ListParams) (*api.Result, error) {
			return v.client.UserCoinHistory(ctx, id, p)
		},
		Key: func(h models.CoinHistory) string { return h.ID },
	}, v.notify, v.pageSize)
	plans := controller.New(controller.Binding[models.PlanPurchase]{
		Resource: "coin plan history",
		Singular: "Purchase",
		List: func(ctx context.Context, p api.ListParams) (*api.Result, error) {
			return v.client.UserCoinPlanHistory(ctx, id, p)
		},
		Key: func(p models.PlanPurchase) string { return p.ID },
	}, v.notify, v.pageSize)

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return nil
	}
	v.user = &user
	v.coins = coins
	v.plans = plans
	v.plansLoaded = false
	v.mu.Unlock()

	return coins.FetchPage(ctx)
}

// User returns the open profile.
func (v *UserView) User() (models.User, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.user == nil {
		return models.User{}, false
	}
	return *v.user, true
}

// Coins returns the coin ledger controller, or nil before Open.
func (v *UserView) Coins() *controller.Controller[models.CoinHistory] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.coins
}

// Plans returns the coin plan purchases, fetching their first page on the
// first call after Open.
func (v *UserView) Plans(ctx context.Context) (*controller.Controller[models.PlanPurchase], error) {
	v.mu.Lock()
	plans, loaded := v.plans, v.plansLoaded
	v.mu.Unlock()
	if plans == nil {
		return nil, fmt.Errorf("no user is open")
	}
	if loaded {
		return plans, nil
	}
	if err := plans.FetchPage(ctx); err != nil {
		return nil, err
	}
	v.mu.Lock()
	if v.plans == plans {
		v.plansLoaded = true
	}
	v.mu.Unlock()
	return plans, nil
}

// Close forgets the open user.
func (v *UserView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.user = nil
	v.coins = nil
	v.plans = nil
	v.plansLoaded = false
}
