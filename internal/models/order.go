package models

import "time"

// Plan types accepted by the order-history endpoints.
const (
	PlanTypeCoin = "coin"
	PlanTypeVip  = "vip"
)

// OrderSummary is one row of the order-history list: a user and their
// purchase totals. The purchases themselves are fetched on demand.
type OrderSummary struct {
	ID                  string  `json:"_id"`
	Name                string  `json:"name"`
	Username            string  `json:"username,omitempty"`
	TotalPlansPurchased int     `json:"totalPlansPurchased"`
	TotalAmountSpent    float64 `json:"totalAmountSpent"`
}

// OrderHistory is the data part of the order-history list response.
type OrderHistory struct {
	History            []OrderSummary `json:"history"`
	TotalHistory       int            `json:"totalHistory"`
	TotalAdminEarnings float64        `json:"totalAdminEarnings"`
}

// Purchase is a single plan purchase made by one user.
type Purchase struct {
	ID       string    `json:"_id,omitempty"`
	UniqueID string    `json:"uniqueId"`
	PlanName string    `json:"planName,omitempty"`
	Price    float64   `json:"price"`
	Coin     float64   `json:"coin"`
	Status   string    `json:"status,omitempty"`
	Date     time.Time `json:"date"`
}

// CoinHistory is one coin ledger entry of a user.
type CoinHistory struct {
	ID          string    `json:"_id"`
	Coins       float64   `json:"coins"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PlanPurchase is one coin plan bought by a user. Older records only carry
// the populated plan, so Plan fills in what the row itself lacks.
type PlanPurchase struct {
	ID        string    `json:"_id"`
	PlanName  string    `json:"planName,omitempty"`
	Price     float64   `json:"price"`
	Coins     float64   `json:"coins"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Plan      struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
		Coins float64 `json:"coins"`
	} `json:"planId"`
}

// Name returns the plan name from the row or the populated plan.
func (p PlanPurchase) Name() string {
	if p.PlanName != "" {
		return p.PlanName
	}
	return p.Plan.Name
}

func (p PlanPurchase) Amount() float64 {
	if p.Price != 0 {
		return p.Price
	}
	return p.Plan.Price
}

func (p PlanPurchase) CoinCount() float64 {
	if p.Coins != 0 {
		return p.Coins
	}
	return p.Plan.Coins
}

// Outcome is the purchase status, "success" when the backend left it out.
func (p PlanPurchase) Outcome() string {
	if p.Status == "" {
		return "success"
	}
	return p.Status
}

// DashboardStats is the data part of the dashboard statistics response.
type DashboardStats struct {
	Counts struct {
		TotalUsers       int     `json:"totalUsers"`
		ActiveVipUsers   int     `json:"activeVipUsers"`
		TotalStories     int     `json:"totalStories"`
		TotalEpisodes    int     `json:"totalEpisodes"`
		TotalCoinsCredit float64 `json:"totalCoinsCredit"`
	} `json:"counts"`
	RecentUsers        []User     `json:"recentUsers"`
	RecentTransactions []Purchase `json:"recentTransactions"`
}
