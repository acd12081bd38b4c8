package console

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/storydesk/internal/config"
	"github.com/vrsandeep/storydesk/internal/core"
	"github.com/vrsandeep/storydesk/internal/form"
	"github.com/vrsandeep/storydesk/internal/testutil"
)

// syncBuffer is written by the search timer and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func newTestApp(t *testing.T, b *testutil.Backend) *core.App {
	t.Helper()
	cfg := &config.Config{}
	cfg.API.BaseURL = b.URL()
	cfg.API.Timeout = 5
	cfg.Media.BaseURL = "http://media.local"
	cfg.Console.PageSize = 10
	cfg.Console.DebounceMS = 30
	cfg.State.Path = filepath.Join(t.TempDir(), "storydesk.db")
	cfg.Session.Backend = "db"
	cfg.Thumbnail.FFmpeg = "definitely-not-ffmpeg"
	app, err := core.NewWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	_, err = app.Login(context.Background(), b.Email, b.Password)
	require.NoError(t, err)
	return app
}

func newTestConsole(t *testing.T, b *testutil.Backend, input string) (*Console, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	c := New(newTestApp(t, b), strings.NewReader(input), out)
	t.Cleanup(c.Close)
	return c, out
}

func TestSplitArgs(t *testing.T) {
	args, err := splitArgs(`create stories --set title="The Long Night" --set 'description=a b'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"create", "stories", "--set", "title=The Long Night", "--set", "description=a b"}, args)

	args, err = splitArgs("  ")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = splitArgs(`search "open`)
	assert.Error(t, err)
}

func TestListRemembersPageSize(t *testing.T) {
	b := testutil.NewBackend(t)
	for _, name := range []string{"Starter", "Gold", "Platinum"} {
		b.Seed("coin-plan", testutil.Doc{"name": name, "price": 10, "coin": 100, "isActive": true})
	}
	c, out := newTestConsole(t, b, "")
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, []string{"list", "coin-plans", "--limit", "2"}))
	assert.Contains(t, out.String(), "Coin Plans")
	assert.Contains(t, out.String(), "Page 1 of 2, 3 rows, 2 per page")
	assert.Contains(t, out.String(), "Starter")
	assert.NotContains(t, out.String(), "Platinum")
	assert.Equal(t, 2, c.app.PageSize("coin-plans"))

	require.NoError(t, c.Execute(ctx, []string{"next"}))
	assert.Contains(t, out.String(), "Platinum")
	assert.Error(t, c.Execute(ctx, []string{"next"}))
	assert.Equal(t, "2", b.LastCall().Query.Get("page"))

	c2, _ := newTestConsole(t, b, "")
	s, err := c2.screen(ctx, "coin-plans")
	require.NoError(t, err)
	assert.Equal(t, 10, s.Page().PageSize, "a fresh state database has no remembered size")
}

func TestSearchCommitsOncePerBurst(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("story", testutil.Doc{"title": "Night"}, testutil.Doc{"title": "Day"})
	c, out := newTestConsole(t, b, "")
	c.interactive = true
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, []string{"list", "stories"}))
	for _, text := range []string{"n", "ni", "nig", "nigh"} {
		require.NoError(t, c.Execute(ctx, []string{"search", text}))
	}

	searches := func() int {
		n := 0
		for _, call := range b.Calls() {
			if call.Path == "/admin/story/get" && call.Query.Get("search") != "" {
				n++
			}
		}
		return n
	}
	assert.Eventually(t, func() bool { return searches() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, searches())
	assert.Equal(t, "nigh", b.LastCall().Query.Get("search"))
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), `Page 1 of 1, 1 rows, 10 per page (search="nigh")`)
	}, time.Second, 5*time.Millisecond)
}

func TestSearchCommitsAtOnceOutsideTheShell(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("story", testutil.Doc{"title": "Night"}, testutil.Doc{"title": "Day"})
	c, _ := newTestConsole(t, b, "")
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, []string{"list", "stories"}))
	require.NoError(t, c.Execute(ctx, []string{"search", "day"}))
	assert.Equal(t, "day", b.LastCall().Query.Get("search"))
	assert.Equal(t, 1, c.current.Page().RowCount)

	assert.Error(t, c.Execute(ctx, []string{"filter", "colour", "red"}))
}

func TestDeletePromptsForConfirmation(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("category", testutil.Doc{"_id": "c1", "name": "Romance"})
	ctx := context.Background()

	c, out := newTestConsole(t, b, "maybe\ncancel\n")
	require.NoError(t, c.Execute(ctx, []string{"delete", "categories", "c1"}))
	assert.Contains(t, out.String(), `Delete category "Romance"? This cannot be undone.`)
	assert.Contains(t, out.String(), "Please answer yes or cancel.")
	assert.Contains(t, out.String(), "Cancelled.")
	assert.Len(t, b.Docs("category"), 1)

	c, _ = newTestConsole(t, b, "yes\n")
	require.NoError(t, c.Execute(ctx, []string{"delete", "categories", "c1"}))
	assert.Empty(t, b.Docs("category"))
}

func TestShellDeleteWaitsForYes(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("category", testutil.Doc{"_id": "c1", "name": "Romance"}, testutil.Doc{"_id": "c2", "name": "Drama"})
	script := strings.Join([]string{
		"list categories",
		"delete c1",
		"cancel",
		"delete c1",
		"list categories",
		"yes",
		"quit",
	}, "\n")
	c, out := newTestConsole(t, b, script)

	require.NoError(t, c.Run(context.Background()))
	assert.Contains(t, out.String(), "Type yes to confirm or cancel.")
	assert.Contains(t, out.String(), "storydesk:categories> ")
	assert.Equal(t, 1, b.CallCount(http.MethodDelete, "/admin/category/delete/c1"))
	assert.Len(t, b.Docs("category"), 1)
	assert.Contains(t, out.String(), "OK: Deleted successfully")
}

func TestCreateShowsFieldErrors(t *testing.T) {
	b := testutil.NewBackend(t)
	c, out := newTestConsole(t, b, "")
	ctx := context.Background()

	err := c.Execute(ctx, []string{"create", "coin-plans", "--set", "name=Gold"})
	require.ErrorIs(t, err, form.ErrInvalid)
	assert.Contains(t, out.String(), "Price is required")
	assert.NotContains(t, out.String(), "Error: form has invalid fields")
	assert.Empty(t, b.Docs("coin-plan"))

	require.NoError(t, c.Execute(ctx, []string{"set", "price", "49"}))
	require.NoError(t, c.Execute(ctx, []string{"set", "coin", "500"}))
	require.NoError(t, c.Execute(ctx, []string{"save"}))
	docs := b.Docs("coin-plan")
	require.Len(t, docs, 1)
	assert.Equal(t, "Gold", docs[0]["name"])
	assert.Contains(t, out.String(), "OK: Created successfully")
}

func TestUpdateFindsRecordOnLaterPage(t *testing.T) {
	b := testutil.NewBackend(t)
	for i := 0; i < 12; i++ {
		b.Seed("language", testutil.Doc{"name": "Lang", "isActive": true})
	}
	b.Seed("language", testutil.Doc{"_id": "l-last", "name": "Hindi", "isActive": true})
	c, _ := newTestConsole(t, b, "")

	require.NoError(t, c.Execute(context.Background(), []string{"update", "languages", "l-last", "--set", "name=Marathi"}))
	assert.Equal(t, 1, b.CallCount(http.MethodPatch, "/admin/language/update/l-last"))
	docs := b.Docs("language")
	assert.Equal(t, "Marathi", docs[len(docs)-1]["name"])
}

func TestToggleUserBlock(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("user", testutil.Doc{"_id": "u1", "name": "Asha", "isBlocked": false})
	c, out := newTestConsole(t, b, "")

	require.NoError(t, c.Execute(context.Background(), []string{"toggle", "users", "u1", "block"}))
	assert.Equal(t, true, b.Docs("user")[0]["isBlocked"])
	assert.Contains(t, out.String(), "OK: User status updated")
}

func TestSessionExpiryIsShownOnce(t *testing.T) {
	b := testutil.NewBackend(t)
	c, out := newTestConsole(t, b, "")
	b.ExpireToken()

	assert.Error(t, c.Execute(context.Background(), []string{"list", "users"}))
	assert.Equal(t, 1, strings.Count(out.String(), "Session expired"))
	assert.NotContains(t, out.String(), "Error:")

	_, err := c.app.Whoami()
	assert.Error(t, err, "the stored session is cleared")
}

func TestHistoryAndPurchases(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("order", testutil.Doc{"_id": "u1", "name": "Asha", "type": "coin", "totalPlansPurchased": 2, "totalAmountSpent": 300})
	b.Seed("purchase",
		testutil.Doc{"uniqueId": "p1", "userId": "u1", "type": "coin", "planName": "Starter", "price": 100},
		testutil.Doc{"uniqueId": "p2", "userId": "u1", "type": "coin", "planName": "Gold", "price": 200},
	)
	c, out := newTestConsole(t, b, "")
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, []string{"purchases", "u1"}))
	assert.Contains(t, out.String(), "Purchases of Asha")
	assert.Contains(t, out.String(), "Gold")
	assert.True(t, c.history.IsOpen())

	require.NoError(t, c.Execute(ctx, []string{"history"}))
	assert.Contains(t, out.String(), "1 users, admin earnings 300")
	assert.Equal(t, 1, b.CallCount(http.MethodGet, "/admin/order/history"))

	require.NoError(t, c.Execute(ctx, []string{"purchases", "--close"}))
	assert.False(t, c.history.IsOpen())
	assert.Error(t, c.Execute(ctx, []string{"history", "gold"}))
}

func TestUserAndStoryDrillDowns(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("user", testutil.Doc{"_id": "u1", "name": "Asha", "email": "asha@example.com", "coins": 40})
	b.Seed("coin-history", testutil.Doc{"userId": "u1", "coins": 40, "type": "credit", "description": "Welcome bonus"})
	b.Seed("coin-plan-history", testutil.Doc{"userId": "u1", "planName": "Starter", "price": 99, "coins": 100})
	b.Seed("story", testutil.Doc{"_id": "s1", "title": "Night"})
	b.Seed("episode",
		testutil.Doc{"storyId": "s1", "episodeNumber": 1, "name": "Ep 1", "isFree": true},
		testutil.Doc{"storyId": "s1", "episodeNumber": 2, "name": "Ep 2"},
	)
	c, out := newTestConsole(t, b, "")
	ctx := context.Background()

	assert.ErrorIs(t, c.Execute(ctx, []string{"user"}), ErrUsage)
	require.NoError(t, c.Execute(ctx, []string{"user", "u1"}))
	assert.Contains(t, out.String(), "Asha (Active)")
	assert.Contains(t, out.String(), "Welcome bonus")

	require.NoError(t, c.Execute(ctx, []string{"user", "--plans"}))
	assert.Contains(t, out.String(), "Coin plan history")
	assert.Contains(t, out.String(), "Starter")
	assert.Equal(t, 1, b.CallCount(http.MethodGet, "/admin/user/detail"))

	require.NoError(t, c.Execute(ctx, []string{"story", "s1"}))
	assert.Contains(t, out.String(), "Episodes of Night")
	assert.Contains(t, out.String(), "2 episodes, next episode number 3")

	require.NoError(t, c.Execute(ctx, []string{"story", "--close"}))
	require.NoError(t, c.Execute(ctx, []string{"story"}))
	assert.Contains(t, out.String(), "No story open.")
}

func TestSettingsCommand(t *testing.T) {
	b := testutil.NewBackend(t)
	b.SeedSettings(testutil.Doc{
		"_id":            "settings-1",
		"appName":        "Stories",
		"androidVersion": "1.0.0",
		"iosVersion":     "1.0.0",
		"appLogo":        "uploads/logo.png",
	})
	c, out := newTestConsole(t, b, "")
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, []string{"settings"}))
	assert.Contains(t, out.String(), "http://media.local/uploads/logo.png")

	require.NoError(t, c.Execute(ctx, []string{"settings", "--set", "appName=Tales"}))
	assert.Contains(t, out.String(), "OK: Settings updated")
	assert.Contains(t, out.String(), "Tales")

	err := c.Execute(ctx, []string{"settings", "--set", "iosVersion=latest"})
	assert.ErrorIs(t, err, form.ErrInvalid)
	assert.Contains(t, out.String(), "iOS version must be a version like 1.0.0")
}

func TestDashboardAndJobs(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Seed("user", testutil.Doc{"name": "Asha", "email": "asha@example.com"})
	c, out := newTestConsole(t, b, "")
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, []string{"dashboard"}))
	assert.Contains(t, out.String(), "Total users")
	assert.Contains(t, out.String(), "asha@example.com")

	require.NoError(t, c.Execute(ctx, []string{"jobs", "run", "session-check"}))
	assert.Contains(t, out.String(), "Session Check")
	assert.Contains(t, out.String(), "success")
}

func TestLoginAndWhoami(t *testing.T) {
	b := testutil.NewBackend(t)
	c, out := newTestConsole(t, b, "")
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, []string{"logout"}))
	assert.Error(t, c.Execute(ctx, []string{"whoami"}))
	assert.ErrorIs(t, c.Execute(ctx, []string{"login"}), ErrUsage)

	require.NoError(t, c.Execute(ctx, []string{"login", b.Email, "--password", b.Password}))
	require.NoError(t, c.Execute(ctx, []string{"whoami"}))
	assert.Contains(t, out.String(), "<"+b.Email+">")
	assert.Error(t, c.Execute(ctx, []string{"frobnicate"}))
}
