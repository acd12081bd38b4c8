package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/storydesk/internal/form"
	"github.com/vrsandeep/storydesk/internal/models"
	"github.com/vrsandeep/storydesk/internal/testutil"
)

func newDeps(t *testing.T, b *testutil.Backend) (Deps, *testutil.Notifier) {
	t.Helper()
	n := &testutil.Notifier{}
	client := b.Client(t)
	return Deps{
		Client:      client,
		Notifier:    n,
		PageSize:    10,
		Lookups:     NewLookups(client),
		MediaOrigin: "http://media.local",
	}, n
}

type stubExtractor struct {
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, videoPath string) ([]byte, error) {
	s.calls++
	return []byte("jpeg"), nil
}

func writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("content of "+name), 0644))
	return path
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{
		"ad-rewards", "categories", "coin-plans", "daily-rewards", "episodes", "languages",
		"report-reasons", "reports", "stories", "users", "vip-plans",
	}, Names())

	f, ok := Get("coin-plans")
	require.True(t, ok)
	b := testutil.NewBackend(t)
	d, _ := newDeps(t, b)
	assert.Equal(t, "Coin Plans", f(d).Title())

	assert.Panics(t, func() { Register("users", nil) })
}

func TestDailyRewardCapBlocksCreate(t *testing.T) {
	b := testutil.NewBackend(t)
	for day := 7; day >= 1; day-- {
		b.Seed("daily-reward", testutil.Doc{"day": day, "dailyRewardCoin": day * 10})
	}
	d, n := newDeps(t, b)
	s := NewCollection(d, dailyRewardsDef())

	err := s.OpenCreate(context.Background())
	require.ErrorIs(t, err, ErrDailyRewardsFull)
	assert.False(t, s.Dialog().IsOpen())
	assert.Equal(t, testutil.Notification{Kind: "error", Message: "All 7 Days already created"}, n.Last())
	assert.Zero(t, b.CallCount(http.MethodPost, "/admin/daily-reward/create"))

	page := s.Page()
	assert.Equal(t, 7, page.RowCount)
	assert.Equal(t, "1", page.Rows[0][0], "rewards are listed by day")

	calls := len(b.Calls())
	require.ErrorIs(t, s.OpenCreate(context.Background()), ErrDailyRewardsFull)
	assert.Len(t, b.Calls(), calls, "a loaded screen is checked without any request")
}

func TestDailyRewardSuggestsFirstFreeDay(t *testing.T) {
	b := testutil.NewBackend(t)
	for _, day := range []int{1, 2, 4} {
		b.Seed("daily-reward", testutil.Doc{"day": day, "dailyRewardCoin": 5})
	}
	d, _ := newDeps(t, b)
	s := NewCollection(d, dailyRewardsDef())
	ctx := context.Background()

	require.NoError(t, s.OpenCreate(ctx))
	assert.Equal(t, "3", s.Dialog().Draft()["day"])
	assert.Equal(t, 1, b.CallCount(http.MethodGet, "/admin/daily-reward/all"))

	require.NoError(t, s.Dialog().Set("day", "8"))
	require.NoError(t, s.Dialog().Set("dailyRewardCoin", "20"))
	require.ErrorIs(t, s.Submit(ctx), form.ErrInvalid)
	assert.Equal(t, "Day must be at most 7", s.Dialog().Errors()["day"])

	require.NoError(t, s.Dialog().Set("day", "3"))
	require.NoError(t, s.Submit(ctx))
	assert.Len(t, b.Docs("daily-reward"), 4)
	assert.Equal(t, 4, s.Page().RowCount)
}

func TestNextEpisodeNumberSpansAllPages(t *testing.T) {
	b := testutil.NewBackend(t)
	for i := 25; i >= 1; i-- {
		b.Seed("episode", testutil.Doc{"storyId": "story-1", "episodeNumber": i, "name": "Ep"})
	}
	b.Seed("episode", testutil.Doc{"storyId": "story-2", "episodeNumber": 99})
	d, _ := newDeps(t, b)
	s := NewCollection(d, episodesDef(d))
	ctx := context.Background()

	require.ErrorIs(t, s.OpenCreate(ctx), ErrNoStory)
	assert.False(t, s.Dialog().IsOpen())

	require.NoError(t, s.SetFilter(ctx, "storyId", "story-1"))
	require.Len(t, s.Page().Rows, 10)

	require.NoError(t, s.OpenCreate(ctx))
	draft := s.Dialog().Draft()
	assert.Equal(t, "26", draft["episodeNumber"])
	assert.Equal(t, "story-1", draft["storyId"])
	assert.Equal(t, models.EpisodeTypeEpisode, draft["type"])

	next, err := NextEpisodeNumber(ctx, d.Client, "story-3")
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestEpisodeNeedsVideo(t *testing.T) {
	b := testutil.NewBackend(t)
	d, _ := newDeps(t, b)
	s := NewCollection(d, episodesDef(d))
	ctx := context.Background()

	require.NoError(t, s.SetFilter(ctx, "storyId", "story-1"))
	require.NoError(t, s.OpenCreate(ctx))
	require.NoError(t, s.Dialog().Set("coin", "abc"))

	require.ErrorIs(t, s.Submit(ctx), form.ErrInvalid)
	errs := s.Dialog().Errors()
	assert.Equal(t, "Video file or URL is required", errs["video"])
	assert.Equal(t, "Coin must be a non-negative number", errs["coin"])
	assert.Zero(t, b.CallCount(http.MethodPost, "/admin/episode/store"))
}

func TestEpisodeCreateCapturesThumbnail(t *testing.T) {
	b := testutil.NewBackend(t)
	d, n := newDeps(t, b)
	ex := &stubExtractor{}
	d.Extractor = ex
	s := NewCollection(d, episodesDef(d))
	ctx := context.Background()

	require.NoError(t, s.SetFilter(ctx, "storyId", "story-1"))
	require.NoError(t, s.OpenCreate(ctx))
	require.NoError(t, s.Dialog().Set("name", "Pilot"))
	require.NoError(t, s.Dialog().Set("coin", "5"))
	require.NoError(t, s.Attach("video", writeFile(t, "pilot.mp4")))
	require.NoError(t, s.Submit(ctx))

	assert.Equal(t, 1, ex.calls)
	assert.False(t, s.Dialog().IsOpen())
	docs := b.Docs("episode")
	require.Len(t, docs, 1)
	assert.Equal(t, "uploads/pilot.mp4", docs[0]["video"])
	assert.Equal(t, "uploads/thumb.jpg", docs[0]["thumbnail"])
	assert.Equal(t, 1.0, docs[0]["episodeNumber"])
	assert.Equal(t, 5.0, docs[0]["coin"])
	assert.Equal(t, "Created successfully", n.Last().Message)
	assert.Contains(t, b.LastCall().Query.Encode(), "storyId=story-1", "the list is refreshed with the filter")
}

func TestAttachRejectsMissingFile(t *testing.T) {
	b := testutil.NewBackend(t)
	d, _ := newDeps(t, b)
	s := NewCollection(d, categoriesDef(d))

	require.NoError(t, s.OpenCreate(context.Background()))
	assert.Error(t, s.Attach("image", filepath.Join(t.TempDir(), "missing.png")))
	assert.Empty(t, s.Dialog().Attachments())
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("category", testutil.Doc{"_id": "c1", "name": "Romance"}, testutil.Doc{"_id": "c2", "name": "Drama"})
	d, n := newDeps(t, b)
	s := NewCollection(d, categoriesDef(d))
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))

	pending, err := s.RequestDelete("c1")
	require.NoError(t, err)
	assert.Contains(t, pending.Message(), `"Romance"`)
	pending.Cancel()

	assert.Zero(t, b.CallCount(http.MethodDelete, "/admin/category/delete/"))
	assert.Len(t, b.Docs("category"), 2)
	assert.Equal(t, 2, s.Page().RowCount)

	pending, err = s.RequestDelete("c1")
	require.NoError(t, err)
	require.NoError(t, pending.Confirm(ctx))
	assert.Equal(t, 1, b.CallCount(http.MethodDelete, "/admin/category/delete/c1"))
	assert.Equal(t, 1, s.Page().RowCount)
	assert.Equal(t, "Deleted successfully", n.Last().Message)

	_, err = s.RequestDelete("missing")
	assert.Error(t, err)
}

func TestUserBlockToggle(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("user",
		testutil.Doc{"_id": "u1", "name": "Asha", "isBlocked": false},
		testutil.Doc{"_id": "u2", "name": "Ravi", "isBlocked": false},
	)
	d, _ := newDeps(t, b)
	s := NewCollection(d, usersDef(d))
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))
	lists := b.CallCount(http.MethodGet, "/admin/user/get")

	require.NoError(t, s.Toggle(ctx, "u1", "block"))

	users := s.Controller().State().Data
	assert.True(t, users[0].IsBlocked)
	assert.False(t, users[1].IsBlocked)
	assert.Equal(t, lists, b.CallCount(http.MethodGet, "/admin/user/get"), "toggle does not refetch")
	assert.Equal(t, "u1", b.LastCall().Query.Get("id"))
}

func TestUserRename(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("user", testutil.Doc{"_id": "u1", "name": "Asha"})
	d, _ := newDeps(t, b)
	s := NewCollection(d, usersDef(d))
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))

	assert.False(t, s.Supports(OpCreate))
	assert.ErrorIs(t, s.OpenCreate(ctx), ErrNotSupported)

	require.NoError(t, s.OpenEdit(ctx, "u1"))
	require.NoError(t, s.Dialog().Set("name", "   "))
	require.ErrorIs(t, s.Submit(ctx), form.ErrInvalid)
	assert.Equal(t, "Name cannot be empty", s.Dialog().Errors()["name"])
	assert.Zero(t, b.CallCount(http.MethodPatch, "/admin/user/update-name"))

	require.NoError(t, s.Dialog().Set("name", "Asha K"))
	require.NoError(t, s.Submit(ctx))
	assert.Equal(t, 1, b.CallCount(http.MethodPatch, "/admin/user/update-name"))
	assert.Equal(t, "Asha K", b.Docs("user")[0]["name"])
	assert.Equal(t, "Asha K", s.Page().Rows[0][0])
}

func TestActiveToggleSendsFlippedFlag(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("coin-plan", testutil.Doc{"_id": "p1", "name": "Starter", "price": 99, "coin": 100, "isActive": true})
	d, _ := newDeps(t, b)
	s := NewCollection(d, coinPlansDef())
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))

	require.NoError(t, s.Toggle(ctx, "p1", "active"))

	call := b.LastCall()
	assert.Equal(t, "/admin/coin-plan/update", call.Path)
	assert.Equal(t, "p1", call.Query.Get("id"))
	var body map[string]bool
	require.NoError(t, json.Unmarshal(call.Body, &body))
	assert.Equal(t, map[string]bool{"isActive": false}, body)
	assert.Equal(t, "no", s.Page().Rows[0][5])
}

func TestLanguageUpdateUsesPathID(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("language", testutil.Doc{"_id": "l1", "name": "Hindi", "isActive": true})
	d, _ := newDeps(t, b)
	s := NewCollection(d, languagesDef())
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))

	require.NoError(t, s.OpenEdit(ctx, "l1"))
	assert.Equal(t, form.Values{"name": "Hindi", "isActive": "true"}, s.Dialog().Draft())
	require.NoError(t, s.Dialog().Set("name", "Marathi"))
	require.NoError(t, s.Submit(ctx))

	assert.Equal(t, 1, b.CallCount(http.MethodPatch, "/admin/language/update/l1"))
	assert.Equal(t, "Marathi", b.Docs("language")[0]["name"])
}

func TestStoryCreateValidation(t *testing.T) {
	b := testutil.NewBackend(t)
	d, _ := newDeps(t, b)
	s := NewCollection(d, storiesDef(d))
	ctx := context.Background()

	require.NoError(t, s.OpenCreate(ctx))
	opened := len(b.Calls())
	require.ErrorIs(t, s.Submit(ctx), form.ErrInvalid)
	errs := s.Dialog().Errors()
	assert.Equal(t, "Title is required", errs["title"])
	assert.Equal(t, "Description is required", errs["description"])
	assert.Equal(t, "Category is required", errs["category"])
	assert.Equal(t, "Language is required", errs["language"])
	assert.Equal(t, "Cover Image is required", errs["coverImage"])
	assert.Equal(t, "Banner Image is required", errs["bannerImage"])
	assert.Len(t, b.Calls(), opened, "an invalid submit sends nothing")
}

func TestStoryScreenLoadsLookupsOnce(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("category", testutil.Doc{"_id": "c1", "name": "Thriller"})
	b.Seed("language", testutil.Doc{"_id": "l1", "name": "Tamil"})
	b.Seed("story", testutil.Doc{"_id": "s1", "title": "Night", "category": "c1", "language": "l1"})
	d, _ := newDeps(t, b)
	s := NewCollection(d, storiesDef(d))
	ctx := context.Background()

	require.NoError(t, s.Fetch(ctx))
	assert.Equal(t, []string{"Night", "Thriller", "Tamil"}, s.Page().Rows[0][:3])

	require.NoError(t, s.OpenCreate(ctx))
	require.NoError(t, s.Dialog().Set("category", "c99"))
	s.Dialog().Validate()
	assert.Equal(t, "Category must be one of c1", s.Dialog().Errors()["category"])

	require.NoError(t, s.OpenEdit(ctx, "s1"))
	assert.Equal(t, 1, b.CallCount(http.MethodGet, "/admin/category/"))
	assert.Equal(t, 1, b.CallCount(http.MethodGet, "/admin/language/all"))
}

func TestStoryLookupFailureFallsBackToText(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Fail(http.MethodGet, "/admin/category/", http.StatusInternalServerError, "")
	d, _ := newDeps(t, b)
	s := NewCollection(d, storiesDef(d))
	ctx := context.Background()

	require.NoError(t, s.OpenCreate(ctx))
	require.NoError(t, s.Dialog().Set("category", "anything"))
	s.Dialog().Validate()
	assert.Empty(t, s.Dialog().Errors()["category"])

	require.NoError(t, s.OpenCreate(ctx))
	assert.Equal(t, 2, b.CallCount(http.MethodGet, "/admin/category/"), "a failed load is retried")
}

func TestStoryChoicesFromLookups(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("category",
		testutil.Doc{"_id": "c10", "name": "Thriller 10"},
		testutil.Doc{"_id": "c2", "name": "Thriller 2"},
	)
	b.Seed("language", testutil.Doc{"_id": "l1", "name": "Tamil"})
	d, _ := newDeps(t, b)
	ctx := context.Background()
	require.NoError(t, d.Lookups.Refresh(ctx))
	assert.Equal(t, []Option{{ID: "c2", Name: "Thriller 2"}, {ID: "c10", Name: "Thriller 10"}}, d.Lookups.Categories())

	s := NewCollection(d, storiesDef(d))
	require.NoError(t, s.OpenCreate(ctx))
	require.NoError(t, s.Dialog().Set("category", "c99"))
	s.Dialog().Validate()
	assert.Equal(t, "Category must be one of c2, c10", s.Dialog().Errors()["category"])

	b.Seed("story", testutil.Doc{"_id": "s1", "title": "Night", "category": "c2", "language": "l1"})
	require.NoError(t, s.Fetch(ctx))
	row := s.Page().Rows[0]
	assert.Equal(t, []string{"Night", "Thriller 2", "Tamil"}, row[:3])
}

func TestReportsAreReadOnly(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("report", testutil.Doc{
		"_id":      "r1",
		"userId":   map[string]any{"_id": "u1", "name": "Asha"},
		"storyId":  map[string]any{"_id": "s1", "title": "Night"},
		"reasonId": map[string]any{"_id": "rr1", "title": "Spam"},
	})
	d, _ := newDeps(t, b)
	s := NewCollection(d, reportsDef())
	ctx := context.Background()

	assert.False(t, s.Supports(OpCreate))
	assert.False(t, s.Supports(OpUpdate))
	assert.True(t, s.Supports(OpDelete))
	assert.ErrorIs(t, s.OpenEdit(ctx, "r1"), ErrNotSupported)

	require.NoError(t, s.Fetch(ctx))
	assert.Equal(t, "Asha", s.Page().Rows[0][0])
	pending, err := s.RequestDelete("r1")
	require.NoError(t, err)
	assert.Contains(t, pending.Message(), "Spam on Night")
}

func TestFetchFailureNotifies(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Fail(http.MethodGet, "/admin/vip-plan/all", http.StatusInternalServerError, "")
	d, n := newDeps(t, b)
	s := NewCollection(d, vipPlansDef())

	assert.Error(t, s.Fetch(context.Background()))
	assert.Equal(t, []string{"Failed to fetch vip plans"}, n.Errors())
}

func TestSettingsForm(t *testing.T) {
	b := testutil.NewBackend(t)
	b.SeedSettings(testutil.Doc{
		"_id":            "settings-1",
		"appName":        "Stories",
		"supportEmail":   "help@example.com",
		"androidVersion": "1.4.0",
		"iosVersion":     "1.3.2",
		"welcomeBonus":   50,
		"appLogo":        "uploads/logo.png",
	})
	d, n := newDeps(t, b)
	sf := NewSettingsForm(d)
	ctx := context.Background()

	require.Error(t, sf.Submit(ctx), "submit before load")
	require.NoError(t, sf.Load(ctx))
	assert.Equal(t, "1.4.0", sf.Dialog().Draft()["androidVersion"])
	assert.Equal(t, "http://media.local/uploads/logo.png", sf.LogoURL())

	dialog := sf.Dialog()
	require.NoError(t, dialog.Set("androidVersion", "banana"))
	require.NoError(t, dialog.Set("supportEmail", "not-an-email"))
	require.ErrorIs(t, sf.Submit(ctx), form.ErrInvalid)
	assert.Equal(t, "Android version must be a version like 1.0.0", dialog.Errors()["androidVersion"])
	assert.Equal(t, "Support email must be a valid email address", dialog.Errors()["supportEmail"])
	assert.Zero(t, b.CallCount(http.MethodPatch, "/admin/setting/update"))

	require.NoError(t, dialog.Set("androidVersion", "v2.0.1"))
	require.NoError(t, dialog.Set("supportEmail", "support@example.com"))
	require.NoError(t, sf.Attach("appLogo", writeFile(t, "logo2.png")))
	require.NoError(t, sf.Submit(ctx))

	assert.Equal(t, "v2.0.1", sf.Current().AndroidVersion)
	assert.Equal(t, "uploads/logo2.png", sf.Current().AppLogo)
	assert.Equal(t, 50.0, sf.Current().WelcomeBonus)
	assert.True(t, sf.Dialog().IsOpen(), "the form stays open on the saved record")
	assert.Contains(t, b.LastCall().ContentType, "multipart/form-data")
	assert.Equal(t, "Settings updated", n.Last().Message)
}

func TestSettingsSaveReloadsRecord(t *testing.T) {
	b := testutil.NewBackend(t)
	b.SeedSettings(testutil.Doc{"_id": "settings-1", "appName": "Old", "androidVersion": "1.0.0", "iosVersion": "1.0.0"})
	b.Override(http.MethodPatch, "/admin/setting/update", func(w http.ResponseWriter, r *http.Request) {
		b.SeedSettings(testutil.Doc{"_id": "settings-1", "appName": "New", "androidVersion": "1.0.0", "iosVersion": "1.0.0"})
		testutil.RespondWithJSON(w, http.StatusOK, map[string]any{"status": true, "message": "Settings updated"})
	})
	d, n := newDeps(t, b)
	sf := NewSettingsForm(d)
	ctx := context.Background()

	require.NoError(t, sf.Load(ctx))
	require.NoError(t, sf.Dialog().Set("appName", "New"))
	require.NoError(t, sf.Submit(ctx))

	assert.Equal(t, "New", sf.Current().AppName)
	assert.Equal(t, "New", sf.Dialog().Draft()["appName"])
	assert.Equal(t, 2, b.CallCount(http.MethodGet, "/admin/setting/get"))
	assert.Equal(t, "Settings updated", n.Last().Message)
}

func TestDashboard(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("user", testutil.Doc{"name": "Asha", "isVip": true}, testutil.Doc{"name": "Ravi"})
	b.Seed("story", testutil.Doc{"title": "Night"})
	d, _ := newDeps(t, b)

	stats, err := Dashboard(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Counts.TotalUsers)
	assert.Equal(t, 1, stats.Counts.ActiveVipUsers)
	assert.Equal(t, 1, stats.Counts.TotalStories)
	assert.Len(t, stats.RecentUsers, 2)
}
