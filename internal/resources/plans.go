package resources

import (
	"context"
	"errors"
	"strconv"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/form"
	"github.com/vrsandeep/storydesk/internal/models"
)

// ErrDailyRewardsFull is returned when every day of the cycle has a reward.
var ErrDailyRewardsFull = errors.New("every day of the daily reward cycle has a reward")

const dailyRewardsFullMessage = "All 7 Days already created"

func init() {
	Register("coin-plans", func(d Deps) Screen { return NewCollection(d, coinPlansDef()) })
	Register("vip-plans", func(d Deps) Screen { return NewCollection(d, vipPlansDef()) })
	Register("languages", func(d Deps) Screen { return NewCollection(d, languagesDef()) })
	Register("ad-rewards", func(d Deps) Screen { return NewCollection(d, adRewardsDef()) })
	Register("daily-rewards", func(d Deps) Screen { return NewCollection(d, dailyRewardsDef()) })
	Register("report-reasons", func(d Deps) Screen { return NewCollection(d, reportReasonsDef()) })
	Register("reports", func(d Deps) Screen { return NewCollection(d, reportsDef()) })
}

// activeToggle flips isActive through the resource's update endpoint.
func activeToggle[T any](res api.Resource, id func(T) string, get func(T) bool, set func(*T, bool)) ToggleDef[T] {
	return ToggleDef[T]{
		Field: "active",
		Call: func(ctx context.Context, c *api.Client, item T) (*api.Result, error) {
			return c.Update(ctx, res, id(item), api.JSON{Value: map[string]bool{"isActive": !get(item)}})
		},
		Apply: func(item *T, r *api.Result) error {
			set(item, flagFrom(r, "isActive", get(*item)))
			return nil
		},
	}
}

func coinPlansDef() Def[models.CoinPlan] {
	return Def[models.CoinPlan]{
		Name:     "coin-plans",
		Title:    "Coin Plans",
		Singular: "Coin plan",
		Resource: api.CoinPlans,
		Key:      func(p models.CoinPlan) string { return p.ID },
		Label:    func(p models.CoinPlan) string { return p.Name },
		Columns: []Column[models.CoinPlan]{
			{"Name", func(p models.CoinPlan) string { return p.Name }},
			{"Price", func(p models.CoinPlan) string { return num(p.Price) }},
			{"Offer", func(p models.CoinPlan) string { return num(p.OfferPrice) }},
			{"Coin", func(p models.CoinPlan) string { return num(p.Coin) }},
			{"Bonus", func(p models.CoinPlan) string { return num(p.BonusCoin) }},
			{"Active", func(p models.CoinPlan) string { return yesNo(p.IsActive) }},
		},
		Fields: func() []form.Field {
			return []form.Field{
				{Name: "name", Label: "Name", Required: true},
				{Name: "price", Label: "Price", Kind: form.Number, Required: true},
				{Name: "offerPrice", Label: "Offer price", Kind: form.Number, Default: "0"},
				{Name: "coin", Label: "Coin", Kind: form.Number, Required: true},
				{Name: "bonusCoin", Label: "Bonus coin", Kind: form.Number, Default: "0"},
				{Name: "isActive", Label: "Active", Kind: form.Bool, Default: "true"},
			}
		},
		Values: func(p models.CoinPlan) form.Values {
			return form.Values{
				"name":       p.Name,
				"price":      num(p.Price),
				"offerPrice": num(p.OfferPrice),
				"coin":       num(p.Coin),
				"bonusCoin":  num(p.BonusCoin),
				"isActive":   boolValue(p.IsActive),
			}
		},
		Filters: []string{"search"},
		Toggles: []ToggleDef[models.CoinPlan]{
			activeToggle(api.CoinPlans,
				func(p models.CoinPlan) string { return p.ID },
				func(p models.CoinPlan) bool { return p.IsActive },
				func(p *models.CoinPlan, v bool) { p.IsActive = v }),
		},
	}
}

func vipPlansDef() Def[models.VipPlan] {
	return Def[models.VipPlan]{
		Name:     "vip-plans",
		Title:    "VIP Plans",
		Singular: "VIP plan",
		Resource: api.VipPlans,
		Key:      func(p models.VipPlan) string { return p.ID },
		Label:    func(p models.VipPlan) string { return p.Name },
		Columns: []Column[models.VipPlan]{
			{"Name", func(p models.VipPlan) string { return p.Name }},
			{"Validity", func(p models.VipPlan) string { return strconv.Itoa(p.Validity) + " " + p.ValidityType }},
			{"Price", func(p models.VipPlan) string { return num(p.Price) }},
			{"Offer", func(p models.VipPlan) string { return num(p.OfferPrice) }},
			{"Coins", func(p models.VipPlan) string { return num(p.Coins) }},
			{"Tags", func(p models.VipPlan) string { return p.Tags }},
			{"Active", func(p models.VipPlan) string { return yesNo(p.IsActive) }},
		},
		Fields: func() []form.Field {
			return []form.Field{
				{Name: "name", Label: "Name", Required: true},
				{Name: "validity", Label: "Validity", Kind: form.Integer, Required: true, Rules: "min=1"},
				{Name: "validityType", Label: "Validity type", Kind: form.Choice, Required: true, Choices: []string{"day", "week", "month", "year"}, Default: "month"},
				{Name: "price", Label: "Price", Kind: form.Number, Required: true},
				{Name: "offerPrice", Label: "Offer price", Kind: form.Number, Default: "0"},
				{Name: "coins", Label: "Coins", Kind: form.Number, Default: "0"},
				{Name: "tags", Label: "Tags"},
				{Name: "isActive", Label: "Active", Kind: form.Bool, Default: "true"},
			}
		},
		Values: func(p models.VipPlan) form.Values {
			return form.Values{
				"name":         p.Name,
				"validity":     strconv.Itoa(p.Validity),
				"validityType": p.ValidityType,
				"price":        num(p.Price),
				"offerPrice":   num(p.OfferPrice),
				"coins":        num(p.Coins),
				"tags":         p.Tags,
				"isActive":     boolValue(p.IsActive),
			}
		},
		Filters: []string{"search"},
		Toggles: []ToggleDef[models.VipPlan]{
			activeToggle(api.VipPlans,
				func(p models.VipPlan) string { return p.ID },
				func(p models.VipPlan) bool { return p.IsActive },
				func(p *models.VipPlan, v bool) { p.IsActive = v }),
		},
	}
}

func languagesDef() Def[models.Language] {
	return Def[models.Language]{
		Name:     "languages",
		Title:    "Languages",
		Singular: "Language",
		Resource: api.Languages,
		Key:      func(l models.Language) string { return l.ID },
		Label:    func(l models.Language) string { return l.Name },
		Columns: []Column[models.Language]{
			{"Name", func(l models.Language) string { return l.Name }},
			{"Active", func(l models.Language) string { return yesNo(l.IsActive) }},
		},
		Fields: func() []form.Field {
			return []form.Field{
				{Name: "name", Label: "Name", Required: true},
				{Name: "isActive", Label: "Active", Kind: form.Bool, Default: "true"},
			}
		},
		Values: func(l models.Language) form.Values {
			return form.Values{"name": l.Name, "isActive": boolValue(l.IsActive)}
		},
		Filters: []string{"search"},
		Toggles: []ToggleDef[models.Language]{
			activeToggle(api.Languages,
				func(l models.Language) string { return l.ID },
				func(l models.Language) bool { return l.IsActive },
				func(l *models.Language, v bool) { l.IsActive = v }),
		},
	}
}

func adRewardsDef() Def[models.AdReward] {
	return Def[models.AdReward]{
		Name:     "ad-rewards",
		Title:    "Ad Rewards",
		Singular: "Ad reward",
		Resource: api.AdRewards,
		Key:      func(a models.AdReward) string { return a.ID },
		Label:    func(a models.AdReward) string { return a.AdLabel },
		Columns: []Column[models.AdReward]{
			{"Label", func(a models.AdReward) string { return a.AdLabel }},
			{"Interval", func(a models.AdReward) string { return num(a.AdDisplayInterval) }},
			{"Coin", func(a models.AdReward) string { return num(a.CoinEarnedFromAd) }},
		},
		Fields: func() []form.Field {
			return []form.Field{
				{Name: "adLabel", Label: "Ad label", Required: true},
				{Name: "adDisplayInterval", Label: "Display interval", Kind: form.Number, Required: true},
				{Name: "coinEarnedFromAd", Label: "Coin earned", Kind: form.Number, Required: true},
			}
		},
		Values: func(a models.AdReward) form.Values {
			return form.Values{
				"adLabel":           a.AdLabel,
				"adDisplayInterval": num(a.AdDisplayInterval),
				"coinEarnedFromAd":  num(a.CoinEarnedFromAd),
			}
		},
		Filters: []string{"search"},
	}
}

// Daily rewards come back as one list sorted by day and are paged locally.
func dailyRewardsDef() Def[models.DailyReward] {
	return Def[models.DailyReward]{
		Name:     "daily-rewards",
		Title:    "Daily Rewards",
		Singular: "Daily reward",
		Resource: api.DailyRewards,
		Key:      func(r models.DailyReward) string { return r.ID },
		Label:    func(r models.DailyReward) string { return "day " + strconv.Itoa(r.Day) },
		Columns: []Column[models.DailyReward]{
			{"Day", func(r models.DailyReward) string { return strconv.Itoa(r.Day) }},
			{"Coin", func(r models.DailyReward) string { return num(r.DailyRewardCoin) }},
			{"Created", func(r models.DailyReward) string { return date(r.CreatedAt) }},
		},
		Fields: func() []form.Field {
			return []form.Field{
				{Name: "day", Label: "Day", Kind: form.Integer, Required: true, Rules: "min=1,max=7"},
				{Name: "dailyRewardCoin", Label: "Coin", Kind: form.Number, Required: true},
			}
		},
		Values: func(r models.DailyReward) form.Values {
			return form.Values{"day": strconv.Itoa(r.Day), "dailyRewardCoin": num(r.DailyRewardCoin)}
		},
		ClientPaged:  true,
		BeforeCreate: nextRewardDay,
	}
}

// nextRewardDay blocks creation once the cycle is full and otherwise
// suggests the first day without a reward.
func nextRewardDay(ctx context.Context, s *Collection[models.DailyReward]) (form.Values, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	all := s.Controller().All()
	if len(all) >= models.MaxDailyRewards {
		s.notifyError(dailyRewardsFullMessage)
		return nil, ErrDailyRewardsFull
	}
	taken := make(map[int]bool, len(all))
	for _, r := range all {
		taken[r.Day] = true
	}
	for day := 1; day <= models.MaxDailyRewards; day++ {
		if !taken[day] {
			return form.Values{"day": strconv.Itoa(day)}, nil
		}
	}
	return nil, nil
}

func reportReasonsDef() Def[models.ReportReason] {
	return Def[models.ReportReason]{
		Name:     "report-reasons",
		Title:    "Report Reasons",
		Singular: "Report reason",
		Resource: api.ReportReasons,
		Key:      func(r models.ReportReason) string { return r.ID },
		Label:    func(r models.ReportReason) string { return r.Title },
		Columns: []Column[models.ReportReason]{
			{"Title", func(r models.ReportReason) string { return r.Title }},
		},
		Fields: func() []form.Field {
			return []form.Field{{Name: "title", Label: "Title", Required: true}}
		},
		Values:  func(r models.ReportReason) form.Values { return form.Values{"title": r.Title} },
		Filters: []string{"search"},
	}
}

func reportsDef() Def[models.Report] {
	return Def[models.Report]{
		Name:     "reports",
		Title:    "Reports",
		Singular: "Report",
		Resource: api.Reports,
		Key:      func(r models.Report) string { return r.ID },
		Label: func(r models.Report) string {
			return r.Reason.Label() + " on " + r.Story.Label()
		},
		Columns: []Column[models.Report]{
			{"User", func(r models.Report) string { return r.User.Label() }},
			{"Story", func(r models.Report) string { return r.Story.Label() }},
			{"Episode", func(r models.Report) string { return r.Episode.Label() }},
			{"Reason", func(r models.Report) string { return r.Reason.Label() }},
			{"Description", func(r models.Report) string { return r.Description }},
			{"Date", func(r models.Report) string { return date(r.CreatedAt) }},
		},
		NoCreate: true,
		NoUpdate: true,
	}
}
