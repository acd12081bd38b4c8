package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Doc is one stored record of the fake backend.
type Doc map[string]any

// Call is one request received by the fake backend.
type Call struct {
	Method      string
	Path        string
	Query       url.Values
	Auth        string
	ContentType string
	Body        []byte
}

// Backend is an in-memory stand-in for the platform's admin REST API. It
// speaks the same envelopes ({status|success, message, data}) and paging
// shape ({docs, totalDocs}) as the real service.
type Backend struct {
	Server *httptest.Server
	Token  string

	Email    string
	Password string

	mu          sync.Mutex
	collections map[string][]Doc
	settings    Doc
	calls       []Call
	overrides   map[string]http.HandlerFunc
	expired     bool
	nextID      int
}

// NewBackend starts a fake backend that accepts Token as bearer credential.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		Token:       "test-token",
		Email:       "admin@example.com",
		Password:    "secret",
		collections: make(map[string][]Doc),
		settings:    Doc{"_id": "settings-1", "appName": "Stories"},
		overrides:   make(map[string]http.HandlerFunc),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the API base URL of the fake backend.
func (b *Backend) URL() string {
	return b.Server.URL + "/api/v1"
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(b.record)
		r.Post("/auth/admin/login", b.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(b.authenticate)

			r.Get("/admin/profile", b.handleProfile)
			r.Get("/admin/dashboard/statistics", b.handleDashboard)

			r.Get("/admin/user/get", b.handleList("user"))
			r.Patch("/admin/user/toggle-block", b.handleToggleBlock)
			r.Get("/admin/user/detail", b.handleShow("user"))
			r.Patch("/admin/user/update-name", b.handleUpdate("user"))
			r.Get("/admin/user/get-coin-history", b.handleUserList("coin-history", "id"))
			r.Get("/admin/user/coin-plan-history", b.handleUserList("coin-plan-history", "id"))

			r.Get("/admin/category/", b.handleList("category"))
			r.Post("/admin/category/store", b.handleCreate("category"))
			r.Get("/admin/story/get", b.handleList("story"))
			r.Get("/admin/story/show", b.handleStoryDetail)
			r.Post("/admin/story/store", b.handleCreate("story"))
			r.Get("/admin/episode/getAll", b.handleList("episode"))
			r.Post("/admin/episode/store", b.handleCreate("episode"))

			r.Get("/admin/order/history", b.handleOrderHistory)
			r.Get("/admin/order/user-history", b.handleUserList("purchase", "userId"))

			r.Get("/admin/setting/get", b.handleSettings)
			r.Patch("/admin/setting/update", b.handleUpdateSettings)

			r.Get("/admin/{collection}/all", b.handleCollectionList)
			r.Post("/admin/{collection}/create", b.handleCollectionCreate)
			r.Patch("/admin/{collection}/update", b.handleCollectionUpdate)
			r.Patch("/admin/{collection}/update/{id}", b.handleCollectionUpdate)
			r.Delete("/admin/{collection}/delete/{id}", b.handleDelete)
		})
	})
	return r
}

// record logs every call and lets an override answer in place of the route.
func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		path := strings.TrimPrefix(r.URL.Path, "/api/v1")

		b.mu.Lock()
		b.calls = append(b.calls, Call{
			Method:      r.Method,
			Path:        path,
			Query:       r.URL.Query(),
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		override := b.overrides[r.Method+" "+path]
		b.mu.Unlock()

		if override != nil {
			override(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		expired := b.expired
		b.mu.Unlock()
		if expired {
			RespondWithJSON(w, http.StatusUnauthorized, map[string]any{"status": false, "code": 2002, "error": "jwt expired"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+b.Token {
			RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RespondWithJSON writes a JSON response with the given status code and payload.
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithError writes the backend's failure envelope.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]any{"status": false, "message": message})
}

// RespondWithData writes the backend's success envelope.
func RespondWithData(w http.ResponseWriter, message string, data any) {
	RespondWithJSON(w, http.StatusOK, map[string]any{"status": true, "success": true, "message": message, "data": data})
}

// Override answers method+path (without the /api/v1 prefix) with h instead
// of the built-in handler.
func (b *Backend) Override(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[method+" "+path] = h
}

// Fail makes method+path answer with a failure envelope.
func (b *Backend) Fail(method, path string, code int, message string) {
	b.Override(method, path, func(w http.ResponseWriter, r *http.Request) {
		RespondWithError(w, code, message)
	})
}

// ExpireToken makes every authenticated route answer 401 "jwt expired".
func (b *Backend) ExpireToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expired = true
}

// Seed appends docs to a collection, assigning ids where missing.
func (b *Backend) Seed(collection string, docs ...Doc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range docs {
		if _, ok := d["_id"]; !ok {
			d["_id"] = b.newID(collection)
		}
		b.collections[collection] = append(b.collections[collection], d)
	}
}

// SeedSettings replaces the settings record.
func (b *Backend) SeedSettings(d Doc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = d
}

// Docs returns a copy of a collection.
func (b *Backend) Docs(collection string) []Doc {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Doc(nil), b.collections[collection]...)
}

// Calls returns every call received so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallCount counts calls with the given method whose path starts with prefix.
func (b *Backend) CallCount(method, prefix string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Method == method && strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

// LastCall returns the most recent call.
func (b *Backend) LastCall() Call {
	calls := b.Calls()
	if len(calls) == 0 {
		return Call{}
	}
	return calls[len(calls)-1]
}

func (b *Backend) newID(collection string) string {
	b.nextID++
	return fmt.Sprintf("%s-%d", collection, b.nextID)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if creds.Email != b.Email || creds.Password != b.Password {
		RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	RespondWithData(w, "Login successful", map[string]any{
		"token": b.Token,
		"admin": b.admin(),
	})
}

func (b *Backend) admin() Doc {
	return Doc{"_id": "admin-1", "name": "Admin", "email": b.Email}
}

func (b *Backend) handleProfile(w http.ResponseWriter, r *http.Request) {
	RespondWithData(w, "Profile fetched", b.admin())
}

func (b *Backend) handleDashboard(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	vip := 0
	for _, u := range b.collections["user"] {
		if v, _ := u["isVip"].(bool); v {
			vip++
		}
	}
	RespondWithData(w, "Statistics fetched", map[string]any{
		"counts": map[string]any{
			"totalUsers":       len(b.collections["user"]),
			"activeVipUsers":   vip,
			"totalStories":     len(b.collections["story"]),
			"totalEpisodes":    len(b.collections["episode"]),
			"totalCoinsCredit": 0,
		},
		"recentUsers":        b.collections["user"],
		"recentTransactions": b.collections["purchase"],
	})
}

func (b *Backend) handleCollectionList(w http.ResponseWriter, r *http.Request) {
	b.handleList(chi.URLParam(r, "collection"))(w, r)
}

func (b *Backend) handleCollectionCreate(w http.ResponseWriter, r *http.Request) {
	b.handleCreate(chi.URLParam(r, "collection"))(w, r)
}

func (b *Backend) handleCollectionUpdate(w http.ResponseWriter, r *http.Request) {
	b.handleUpdate(chi.URLParam(r, "collection"))(w, r)
}

// handleList pages a collection. The daily-reward collection is returned
// as a bare array sorted by day, the way the real service does.
func (b *Backend) handleList(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		b.mu.Lock()
		docs := filterDocs(b.collections[collection], q)
		b.mu.Unlock()

		if collection == "daily-reward" {
			sort.SliceStable(docs, func(i, j int) bool {
				return toFloat(docs[i]["day"]) < toFloat(docs[j]["day"])
			})
			RespondWithData(w, "Daily rewards fetched", docs)
			return
		}
		RespondWithData(w, "Fetched successfully", pageOf(docs, q))
	}
}

// handleUserList pages the records of one user, identified by the userParam
// query parameter.
func (b *Backend) handleUserList(collection, userParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		userID := q.Get(userParam)
		b.mu.Lock()
		var docs []Doc
		for _, d := range b.collections[collection] {
			if fmt.Sprint(d["userId"]) != userID {
				continue
			}
			if t := q.Get("type"); t != "" && fmt.Sprint(d["type"]) != t {
				continue
			}
			docs = append(docs, d)
		}
		b.mu.Unlock()
		RespondWithData(w, "History fetched", pageOf(docs, q))
	}
}

func (b *Backend) handleShow(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, d := range b.collections[collection] {
			if d["_id"] == id {
				RespondWithData(w, "Fetched successfully", d)
				return
			}
		}
		RespondWithError(w, http.StatusNotFound, "Record not found")
	}
}

// handleStoryDetail answers with the story and every episode whose storyId
// points at it.
func (b *Backend) handleStoryDetail(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.collections["story"] {
		if d["_id"] != id {
			continue
		}
		story := Doc{}
		for k, v := range d {
			story[k] = v
		}
		episodes := []Doc{}
		for _, e := range b.collections["episode"] {
			if refID(e["storyId"]) == id {
				episodes = append(episodes, e)
			}
		}
		story["episodes"] = episodes
		RespondWithData(w, "Story fetched", story)
		return
	}
	RespondWithError(w, http.StatusNotFound, "Story not found")
}

func (b *Backend) handleCreate(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := readFields(r)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if collection == "daily-reward" && len(b.collections[collection]) >= 7 {
			RespondWithError(w, http.StatusBadRequest, "All 7 Days already created")
			return
		}
		fields["_id"] = b.newID(collection)
		b.collections[collection] = append(b.collections[collection], fields)
		RespondWithData(w, "Created successfully", fields)
	}
}

func (b *Backend) handleUpdate(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			id = r.URL.Query().Get("id")
		}
		fields, err := readFields(r)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, d := range b.collections[collection] {
			if d["_id"] == id {
				for k, v := range fields {
					d[k] = v
				}
				RespondWithData(w, "Updated successfully", d)
				return
			}
		}
		RespondWithError(w, http.StatusNotFound, "Record not found")
	}
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	docs := b.collections[collection]
	for i, d := range docs {
		if d["_id"] == id {
			b.collections[collection] = append(docs[:i:i], docs[i+1:]...)
			RespondWithData(w, "Deleted successfully", nil)
			return
		}
	}
	RespondWithError(w, http.StatusNotFound, "Record not found")
}

func (b *Backend) handleToggleBlock(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.collections["user"] {
		if d["_id"] == id {
			blocked, _ := d["isBlocked"].(bool)
			d["isBlocked"] = !blocked
			RespondWithData(w, "User status updated", d)
			return
		}
	}
	RespondWithError(w, http.StatusNotFound, "User not found")
}

func (b *Backend) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	planType := r.URL.Query().Get("type")
	b.mu.Lock()
	defer b.mu.Unlock()
	history := []Doc{}
	earnings := 0.0
	for _, d := range b.collections["order"] {
		if fmt.Sprint(d["type"]) != planType {
			continue
		}
		history = append(history, d)
		earnings += toFloat(d["totalAmountSpent"])
	}
	RespondWithData(w, "Order history fetched", map[string]any{
		"history":            history,
		"totalHistory":       len(history),
		"totalAdminEarnings": earnings,
	})
}

func (b *Backend) handleSettings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	RespondWithData(w, "Settings fetched", b.settings)
}

func (b *Backend) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range fields {
		b.settings[k] = v
	}
	RespondWithData(w, "Settings updated", b.settings)
}

// readFields decodes a JSON or multipart body into a Doc. Multipart text
// values are typed the way the real service stores them; file parts are
// stored as "uploads/<name>".
func readFields(r *http.Request) (Doc, error) {
	fields := Doc{}
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, fmt.Errorf("invalid multipart body: %w", err)
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				fields[k] = typed(k, v[0])
			}
		}
		for k, files := range r.MultipartForm.File {
			if len(files) > 0 {
				fields[k] = "uploads/" + files[0].Filename
			}
		}
	case r.ContentLength != 0:
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil && err != io.EOF {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	return fields, nil
}

var (
	numericKeys = map[string]bool{
		"coin": true, "bonusCoin": true, "price": true, "offerPrice": true, "coins": true,
		"validity": true, "day": true, "dailyRewardCoin": true, "adDisplayInterval": true,
		"coinEarnedFromAd": true, "episodeNumber": true, "storyCoinPrice": true,
		"welcomeBonus": true, "rating": true,
	}
	boolKeys = map[string]bool{
		"isActive": true, "isFree": true, "isLocked": true, "isCompleted": true,
		"isForceUpdate": true, "isMaintenanceMode": true, "isBlocked": true,
	}
)

func typed(key, value string) any {
	switch {
	case numericKeys[key]:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case boolKeys[key]:
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return value
}

var pagingKeys = map[string]bool{"page": true, "limit": true, "search": true, "type": true}

func filterDocs(docs []Doc, q url.Values) []Doc {
	search := strings.ToLower(q.Get("search"))
	out := []Doc{}
	for _, d := range docs {
		if search != "" && !matchesSearch(d, search) {
			continue
		}
		ok := true
		for k := range q {
			if pagingKeys[k] {
				continue
			}
			if refID(d[k]) != q.Get(k) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, d)
		}
	}
	return out
}

func matchesSearch(d Doc, search string) bool {
	for _, k := range []string{"name", "title", "adLabel", "email"} {
		if s, ok := d[k].(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

// refID returns the id behind a populated reference or the value itself.
func refID(v any) string {
	if m, ok := v.(map[string]any); ok {
		return fmt.Sprint(m["_id"])
	}
	if m, ok := v.(Doc); ok {
		return fmt.Sprint(m["_id"])
	}
	return fmt.Sprint(v)
}

func pageOf(docs []Doc, q url.Values) map[string]any {
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	total := len(docs)
	if limit > 0 {
		start := (page - 1) * limit
		if start > len(docs) {
			start = len(docs)
		}
		end := start + limit
		if end > len(docs) {
			end = len(docs)
		}
		docs = docs[start:end]
	}
	return map[string]any{"docs": docs, "totalDocs": total}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}
