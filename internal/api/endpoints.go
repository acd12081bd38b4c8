package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/vrsandeep/storydesk/internal/models"
)

// ListParams are the query parameters shared by every list endpoint.
type ListParams struct {
	Page    int // 1-based
	Limit   int
	Search  string
	Filters map[string]string
}

// Values encodes the parameters. Empty values are left out.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	keys := make([]string, 0, len(p.Filters))
	for k := range p.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if p.Filters[k] != "" {
			v.Set(k, p.Filters[k])
		}
	}
	return v
}

// DecodePage decodes a list response. Paged endpoints answer with
// {docs, totalDocs}; the unpaged ones send a bare array, in which case the
// total is the array length.
func DecodePage[T any](r *Result) (models.Page[T], error) {
	var page models.Page[T]
	data := r.Data
	if len(data) == 0 || string(data) == "null" {
		return page, nil
	}
	if data[0] == '[' {
		if err := json.Unmarshal(data, &page.Docs); err != nil {
			return page, fmt.Errorf("failed to decode list: %w", err)
		}
		page.TotalDocs = len(page.Docs)
		return page, nil
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return page, fmt.Errorf("failed to decode page: %w", err)
	}
	return page, nil
}

// Resource describes the CRUD endpoints of one backend collection.
type Resource struct {
	Name   string
	list   string
	create string
	update string
	remove string
	// updateInPath selects update/{id} over update?id=.
	updateInPath bool
}

func crud(name, base, list string) Resource {
	return Resource{
		Name:   name,
		list:   base + "/" + list,
		create: base + "/create",
		update: base + "/update",
		remove: base + "/delete/",
	}
}

// The admin API collections.
var (
	Users         = Resource{Name: "users", list: "/admin/user/get", update: "/admin/user/update-name"}
	Categories    = Resource{Name: "categories", list: "/admin/category/", create: "/admin/category/store", update: "/admin/category/update", remove: "/admin/category/delete/"}
	Stories       = Resource{Name: "stories", list: "/admin/story/get", create: "/admin/story/store", update: "/admin/story/update", remove: "/admin/story/delete/"}
	Episodes      = Resource{Name: "episodes", list: "/admin/episode/getAll", create: "/admin/episode/store", update: "/admin/episode/update", remove: "/admin/episode/delete/"}
	CoinPlans     = crud("coin plans", "/admin/coin-plan", "all")
	VipPlans      = crud("vip plans", "/admin/vip-plan", "all")
	Languages     = Resource{Name: "languages", list: "/admin/language/all", create: "/admin/language/create", update: "/admin/language/update", remove: "/admin/language/delete/", updateInPath: true}
	AdRewards     = crud("ad rewards", "/admin/ad-reward", "all")
	DailyRewards  = crud("daily rewards", "/admin/daily-reward", "all")
	ReportReasons = crud("report reasons", "/admin/report-reason", "all")
	Reports       = Resource{Name: "reports", list: "/admin/report/all", remove: "/admin/report/delete/"}
)

// List fetches one page of res.
func (c *Client) List(ctx context.Context, res Resource, p ListParams) (*Result, error) {
	if res.list == "" {
		return nil, fmt.Errorf("%s cannot be listed", res.Name)
	}
	return c.do(ctx, request{method: http.MethodGet, path: res.list, query: p.Values()})
}

// Create posts a new record of res.
func (c *Client) Create(ctx context.Context, res Resource, body Body) (*Result, error) {
	if res.create == "" {
		return nil, fmt.Errorf("%s cannot be created", res.Name)
	}
	return c.do(ctx, request{method: http.MethodPost, path: res.create, body: body})
}

// Update patches the record id of res.
func (c *Client) Update(ctx context.Context, res Resource, id string, body Body) (*Result, error) {
	if res.update == "" {
		return nil, fmt.Errorf("%s cannot be updated", res.Name)
	}
	r := request{method: http.MethodPatch, path: res.update, body: body}
	if res.updateInPath {
		r.path += "/" + url.PathEscape(id)
	} else {
		r.query = url.Values{"id": {id}}
	}
	return c.do(ctx, r)
}

// Delete removes the record id of res.
func (c *Client) Delete(ctx context.Context, res Resource, id string) (*Result, error) {
	if res.remove == "" {
		return nil, fmt.Errorf("%s cannot be deleted", res.Name)
	}
	return c.do(ctx, request{method: http.MethodDelete, path: res.remove + url.PathEscape(id)})
}

// Login exchanges admin credentials for a token. It does not store the
// session; that is the caller's job.
func (c *Client) Login(ctx context.Context, email, password string) (*Result, error) {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/admin/login",
		body:   JSON{Value: map[string]string{"email": email, "password": password}},
		public: true,
	})
}

// DecodeLogin extracts the token and admin profile from a login result.
// Some backends put the token beside data instead of inside it.
func DecodeLogin(r *Result) (models.LoginResult, error) {
	login, err := DecodeData[models.LoginResult](r)
	if err != nil {
		return login, err
	}
	if login.Token == "" {
		var top struct {
			Token string       `json:"token"`
			Admin models.Admin `json:"admin"`
		}
		if err := json.Unmarshal(r.Body, &top); err == nil {
			login.Token = top.Token
			if login.Admin.ID == "" {
				login.Admin = top.Admin
			}
		}
	}
	if login.Token == "" {
		return login, fmt.Errorf("login response carried no token")
	}
	return login, nil
}

func (c *Client) Profile(ctx context.Context) (*Result, error) {
	return c.do(ctx, request{method: http.MethodGet, path: "/admin/profile"})
}

func (c *Client) Dashboard(ctx context.Context) (*Result, error) {
	return c.do(ctx, request{method: http.MethodGet, path: "/admin/dashboard/statistics"})
}

// ToggleUserBlock flips a user's blocked flag. The response carries the
// updated user.
func (c *Client) ToggleUserBlock(ctx context.Context, id string) (*Result, error) {
	return c.do(ctx, request{method: http.MethodPatch, path: "/admin/user/toggle-block", query: url.Values{"id": {id}}})
}

// UserDetail fetches one user's full profile.
func (c *Client) UserDetail(ctx context.Context, id string) (*Result, error) {
	return c.do(ctx, request{method: http.MethodGet, path: "/admin/user/detail", query: url.Values{"id": {id}}})
}

// UpdateUserName renames a user. Users have no other editable field.
func (c *Client) UpdateUserName(ctx context.Context, id, name string) (*Result, error) {
	return c.Update(ctx, Users, id, JSON{Value: map[string]string{"name": name}})
}

// UserCoinHistory lists the coin ledger of user id.
func (c *Client) UserCoinHistory(ctx context.Context, id string, p ListParams) (*Result, error) {
	q := p.Values()
	q.Set("id", id)
	return c.do(ctx, request{method: http.MethodGet, path: "/admin/user/get-coin-history", query: q})
}

func (c *Client) UserCoinPlanHistory(ctx context.Context, id string, p ListParams) (*Result, error) {
	q := p.Values()
	q.Set("id", id)
	return c.do(ctx, request{method: http.MethodGet, path: "/admin/user/coin-plan-history", query: q})
}

// StoryDetail fetches a story together with all of its episodes.
func (c *Client) StoryDetail(ctx context.Context, id string) (*Result, error) {
	return c.do(ctx, request{method: http.MethodGet, path: "/admin/story/show", query: url.Values{"id": {id}}})
}

// OrderHistory lists per-user purchase summaries for a plan type.
func (c *Client) OrderHistory(ctx context.Context, planType string) (*Result, error) {
	return c.do(ctx, request{method: http.MethodGet, path: "/admin/order/history", query: url.Values{"type": {planType}}})
}

// UserOrderHistory lists one user's purchases of a plan type. p.Filters
// must not be relied on to carry userId; it is set from userID.
func (c *Client) UserOrderHistory(ctx context.Context, userID, planType string, p ListParams) (*Result, error) {
	q := p.Values()
	q.Set("userId", userID)
	q.Set("type", planType)
	return c.do(ctx, request{method: http.MethodGet, path: "/admin/order/user-history", query: q})
}

func (c *Client) Settings(ctx context.Context) (*Result, error) {
	return c.do(ctx, request{method: http.MethodGet, path: "/admin/setting/get"})
}

// UpdateSettings sends the whole settings record, with an optional new
// appLogo file part.
func (c *Client) UpdateSettings(ctx context.Context, form *Form) (*Result, error) {
	return c.do(ctx, request{method: http.MethodPatch, path: "/admin/setting/update", body: form})
}
