package console

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/vrsandeep/storydesk/internal/confirm"
	"github.com/vrsandeep/storydesk/internal/form"
	"github.com/vrsandeep/storydesk/internal/resources"
	"github.com/vrsandeep/storydesk/internal/session"
)

type command struct {
	usage string
	help  string
	run   func(c *Console, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":      {"help", "list the commands", cmdHelp},
		"login":     {"login <email> [password]", "log in (password also from --password or STORYDESK_PASSWORD)", cmdLogin},
		"logout":    {"logout", "forget the stored session", cmdLogout},
		"whoami":    {"whoami", "show the logged-in admin", cmdWhoami},
		"resources": {"resources", "list the resource screens", cmdResources},
		"list":      {"list <resource> [--page n] [--limit n] [--search s] [--filter k=v]", "show a page of a resource", cmdList},
		"open":      {"open <resource>", "make a resource the current screen", cmdList},
		"refresh":   {"refresh", "fetch the current page again", cmdRefresh},
		"page":      {"page <n>", "go to page n", cmdPage},
		"next":      {"next", "go to the next page", cmdNext},
		"prev":      {"prev", "go to the previous page", cmdPrev},
		"limit":     {"limit <n>", "set and remember the page size", cmdLimit},
		"search":    {"search [text]", "search the current screen", cmdSearch},
		"filter":    {"filter <key> [value]", "set or clear a filter", cmdFilter},
		"new":       {"new", "open the create form", cmdNew},
		"edit":      {"edit <id>", "open the edit form of a record on the page", cmdEdit},
		"set":       {"set <field> <value>", "change a form field", cmdSet},
		"attach":    {"attach <field> <path>", "attach a file to a form field", cmdAttach},
		"form":      {"form", "show the open form", cmdForm},
		"save":      {"save", "validate and save the open form", cmdSave},
		"discard":   {"discard", "close the open form without saving", cmdDiscard},
		"create":    {"create <resource> [--set k=v]... [--file k=path]...", "create a record", cmdCreate},
		"update":    {"update <resource> <id> [--set k=v]... [--file k=path]...", "update a record", cmdUpdate},
		"delete":    {"delete [resource] <id> [--yes]", "delete a record after confirmation", cmdDelete},
		"yes":       {"yes", "confirm the pending deletion", cmdYes},
		"cancel":    {"cancel", "cancel the pending deletion", cmdCancel},
		"toggle":    {"toggle [resource] <id> <field>", "flip a flag of a record", cmdToggle},
		"history":   {"history [coin|vip] [--refresh]", "show order history totals per user", cmdHistory},
		"purchases": {"purchases <userId> [--page n] | purchases --close", "show a user's purchases", cmdPurchases},
		"user":      {"user <id> [--plans] [--page n] | user --close", "show a user's profile with coin or plan history", cmdUser},
		"story":     {"story <id> | story --close", "show a story with all of its episodes", cmdStory},
		"settings":  {"settings [--set k=v]... [--file appLogo=path]", "show or change the app settings", cmdSettings},
		"dashboard": {"dashboard", "show the dashboard statistics", cmdDashboard},
		"jobs":      {"jobs [run <id>]", "show or run background jobs", cmdJobs},
	}
}

// ErrUsage is returned for malformed commands.
var ErrUsage = errors.New("usage")

func usage(name string) error {
	return fmt.Errorf("%w: %s", ErrUsage, commands[name].usage)
}

// Exec runs one command.
func (c *Console) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (try: help)", args[0])
	}
	return cmd.run(c, ctx, args[1:])
}

func (c *Console) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.out)
	fs.Usage = func() { fmt.Fprintf(c.out, "Usage: %s\n", commands[name].usage) }
	return fs
}

func cmdHelp(c *Console, ctx context.Context, args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	c.mu.Lock()
	defer c.mu.Unlock()
	t := newTable(c.out, "Command", "Description")
	for _, name := range names {
		t.Append([]string{commands[name].usage, commands[name].help})
	}
	t.Render()
	return nil
}

func cmdLogin(c *Console, ctx context.Context, args []string) error {
	fs := c.flags("login")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return usage("login")
	}
	if fs.NArg() == 2 {
		*password = fs.Arg(1)
	}
	if *password == "" {
		*password = os.Getenv("STORYDESK_PASSWORD")
	}
	if *password == "" {
		return errors.New("a password is required")
	}
	admin, err := c.app.Login(ctx, fs.Arg(0), *password)
	if err != nil {
		return err
	}
	if err := c.app.Lookups().Refresh(ctx); err != nil {
		log.Printf("Warning: could not load categories and languages: %v", err)
	}
	c.printf("Logged in as %s <%s>\n", admin.Name, admin.Email)
	return nil
}

func cmdLogout(c *Console, ctx context.Context, args []string) error {
	if err := c.app.Logout(); err != nil {
		return err
	}
	c.printf("Logged out.\n")
	return nil
}

func cmdWhoami(c *Console, ctx context.Context, args []string) error {
	admin, err := c.app.Whoami()
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s <%s>", admin.Name, admin.Email)
	if token, err := c.app.Session().Token(); err == nil {
		if exp, ok := session.Expiry(token); ok {
			line += ", session valid until " + exp.Local().Format("2006-01-02 15:04")
		}
	}
	c.printf("%s\n", line)
	return nil
}

func cmdResources(c *Console, ctx context.Context, args []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := newTable(c.out, "Name", "Title", "Filters", "Toggles")
	for _, name := range resources.Names() {
		f, _ := resources.Get(name)
		s := f(c.deps())
		t.Append([]string{name, s.Title(), strings.Join(s.Filters(), ", "), strings.Join(s.Toggles(), ", ")})
	}
	t.Render()
	return nil
}

// activate makes s the current screen with a fresh search box.
func (c *Console) activate(s resources.Screen) {
	if c.search != nil {
		c.search.Stop()
	}
	c.current = s
	c.search = newSearch(c, s)
}

func cmdList(c *Console, ctx context.Context, args []string) error {
	fs := c.flags("list")
	page := fs.Int("page", 0, "page number, starting at 1")
	limit := fs.Int("limit", 0, "rows per page, remembered per resource")
	search := fs.String("search", "", "search text")
	filters := fs.StringToString("filter", nil, "filter as key=value")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("list")
	}
	s, err := c.screen(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	fetched := false
	if *limit > 0 {
		if err := c.setLimit(ctx, s, *limit); err != nil {
			return err
		}
		fetched = true
	}
	if fs.Changed("search") {
		if err := s.SetFilter(ctx, "search", *search); err != nil {
			return err
		}
		fetched = true
	}
	for _, k := range sortedKeys(*filters) {
		if err := checkFilter(s, k); err != nil {
			return err
		}
		if err := s.SetFilter(ctx, k, (*filters)[k]); err != nil {
			return err
		}
		fetched = true
	}
	if *page > 0 {
		if err := s.SetPageIndex(ctx, *page-1); err != nil {
			return err
		}
		fetched = true
	}
	if !fetched {
		if err := s.Fetch(ctx); err != nil {
			return err
		}
	}
	c.activate(s)
	c.renderPage(s)
	return nil
}

func checkFilter(s resources.Screen, key string) error {
	for _, f := range s.Filters() {
		if f == key {
			return nil
		}
	}
	return fmt.Errorf("%s cannot be filtered by %q (filters: %s)", s.Name(), key, strings.Join(s.Filters(), ", "))
}

func (c *Console) setLimit(ctx context.Context, s resources.Screen, n int) error {
	if err := s.SetPageSize(ctx, n); err != nil {
		return err
	}
	if err := c.app.SetPageSize(s.Name(), n); err != nil {
		return fmt.Errorf("failed to remember page size: %w", err)
	}
	return nil
}

func intArg(name string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, usage(name)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s: %q is not a positive number", name, args[0])
	}
	return n, nil
}

func cmdRefresh(c *Console, ctx context.Context, args []string) error {
	s, err := c.requireScreen()
	if err != nil {
		return err
	}
	if err := s.Fetch(ctx); err != nil {
		return err
	}
	c.renderPage(s)
	return nil
}

func cmdPage(c *Console, ctx context.Context, args []string) error {
	s, err := c.requireScreen()
	if err != nil {
		return err
	}
	n, err := intArg("page", args)
	if err != nil {
		return err
	}
	return c.gotoPage(ctx, s, n-1)
}

func cmdNext(c *Console, ctx context.Context, args []string) error {
	s, err := c.requireScreen()
	if err != nil {
		return err
	}
	p := s.Page()
	if p.PageIndex+1 >= p.PageCount {
		return errors.New("already on the last page")
	}
	return c.gotoPage(ctx, s, p.PageIndex+1)
}

func cmdPrev(c *Console, ctx context.Context, args []string) error {
	s, err := c.requireScreen()
	if err != nil {
		return err
	}
	p := s.Page()
	if p.PageIndex == 0 {
		return errors.New("already on the first page")
	}
	return c.gotoPage(ctx, s, p.PageIndex-1)
}

func (c *Console) gotoPage(ctx context.Context, s resources.Screen, index int) error {
	if err := s.SetPageIndex(ctx, index); err != nil {
		return err
	}
	c.renderPage(s)
	return nil
}

func cmdLimit(c *Console, ctx context.Context, args []string) error {
	s, err := c.requireScreen()
	if err != nil {
		return err
	}
	n, err := intArg("limit", args)
	if err != nil {
		return err
	}
	if err := c.setLimit(ctx, s, n); err != nil {
		return err
	}
	c.renderPage(s)
	return nil
}

// cmdSearch types into the search box. An interactive console commits the
// text once typing pauses; otherwise it is committed at once.
func cmdSearch(c *Console, ctx context.Context, args []string) error {
	s, err := c.requireScreen()
	if err != nil {
		return err
	}
	if err := checkFilter(s, "search"); err != nil {
		return err
	}
	c.search.Set(strings.Join(args, " "))
	if !c.interactive {
		c.search.Flush()
	}
	return nil
}

func cmdFilter(c *Console, ctx context.Context, args []string) error {
	s, err := c.requireScreen()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return usage("filter")
	}
	if err := checkFilter(s, args[0]); err != nil {
		return err
	}
	if err := s.SetFilter(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
		return err
	}
	c.renderPage(s)
	return nil
}

// edit makes e the target of set, attach and save.
func (c *Console) edit(e editor, title string) {
	c.editing = e
	c.editTitle = title
}

func (c *Console) openForm() (editor, error) {
	if c.editing == nil || !c.editing.Dialog().IsOpen() {
		return nil, errors.New("no form open (try: new, edit <id> or settings)")
	}
	return c.editing, nil
}

func cmdNew(c *Console, ctx context.Context, args []string) error {
	s, err := c.requireScreen()
	if err != nil {
		return err
	}
	if err := s.OpenCreate(ctx); err != nil {
		return err
	}
	c.edit(s, "New "+s.Title())
	c.renderDialog(c.editTitle, s.Dialog())
	return nil
}

func cmdEdit(c *Console, ctx context.Context, args []string) error {
	s, err := c.requireScreen()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return usage("edit")
	}
	if err := s.OpenEdit(ctx, args[0]); err != nil {
		return err
	}
	c.edit(s, "Edit "+s.Title())
	c.renderDialog(c.editTitle, s.Dialog())
	return nil
}

func cmdSet(c *Console, ctx context.Context, args []string) error {
	e, err := c.openForm()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return usage("set")
	}
	if f, ok := fieldOf(e.Dialog(), args[0]); ok && f.Kind == form.File {
		if len(args) != 2 {
			return usage("attach")
		}
		return e.Attach(args[0], args[1])
	}
	return e.Dialog().Set(args[0], strings.Join(args[1:], " "))
}

func fieldOf(d *form.Dialog, name string) (form.Field, bool) {
	for _, f := range d.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return form.Field{}, false
}

func cmdAttach(c *Console, ctx context.Context, args []string) error {
	e, err := c.openForm()
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return usage("attach")
	}
	return e.Attach(args[0], args[1])
}

func cmdForm(c *Console, ctx context.Context, args []string) error {
	e, err := c.openForm()
	if err != nil {
		return err
	}
	c.renderDialog(c.editTitle, e.Dialog())
	return nil
}

func cmdSave(c *Console, ctx context.Context, args []string) error {
	return c.save(ctx)
}

func (c *Console) save(ctx context.Context) error {
	e, err := c.openForm()
	if err != nil {
		return err
	}
	err = e.Submit(ctx)
	if errors.Is(err, form.ErrInvalid) {
		c.renderDialog(c.editTitle, e.Dialog())
		return err
	}
	if err != nil {
		return err
	}
	if c.settings != nil && e == editor(c.settings) {
		c.renderSettings(c.settings.Current(), c.settings.LogoURL())
	} else if s, ok := e.(resources.Screen); ok {
		c.renderPage(s)
	}
	return nil
}

func cmdDiscard(c *Console, ctx context.Context, args []string) error {
	e, err := c.openForm()
	if err != nil {
		return err
	}
	e.Dialog().Close()
	c.editing = nil
	return nil
}

// fill applies field=value and field=path pairs to the open form.
func (c *Console) fill(e editor, sets, files []string) error {
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("--set %q is not field=value", kv)
		}
		if err := e.Dialog().Set(k, v); err != nil {
			return err
		}
	}
	for _, kv := range files {
		k, path, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("--file %q is not field=path", kv)
		}
		if err := e.Attach(k, path); err != nil {
			return err
		}
	}
	return nil
}

func cmdCreate(c *Console, ctx context.Context, args []string) error {
	fs := c.flags("create")
	sets := fs.StringArray("set", nil, "field=value")
	files := fs.StringArray("file", nil, "field=path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("create")
	}
	s, err := c.screen(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	c.activate(s)
	if err := s.OpenCreate(ctx); err != nil {
		return err
	}
	c.edit(s, "New "+s.Title())
	if err := c.fill(s, *sets, *files); err != nil {
		return err
	}
	return c.save(ctx)
}

func cmdUpdate(c *Console, ctx context.Context, args []string) error {
	fs := c.flags("update")
	sets := fs.StringArray("set", nil, "field=value")
	files := fs.StringArray("file", nil, "field=path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return usage("update")
	}
	s, err := c.screen(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	c.activate(s)
	id := fs.Arg(1)
	if err := c.find(ctx, s, id); err != nil {
		return err
	}
	if err := s.OpenEdit(ctx, id); err != nil {
		return err
	}
	c.edit(s, "Edit "+s.Title())
	if err := c.fill(s, *sets, *files); err != nil {
		return err
	}
	return c.save(ctx)
}

// target resolves "[resource] args..." where want is the number of
// arguments after the optional resource.
func (c *Console) target(ctx context.Context, name string, args []string, want int) (resources.Screen, []string, error) {
	switch len(args) {
	case want:
		s, err := c.requireScreen()
		return s, args, err
	case want + 1:
		s, err := c.screen(ctx, args[0])
		if err != nil {
			return nil, nil, err
		}
		c.activate(s)
		return s, args[1:], nil
	}
	return nil, nil, usage(name)
}

// find makes sure id is on the current page of s.
func (c *Console) find(ctx context.Context, s resources.Screen, id string) error {
	for _, got := range s.Page().IDs {
		if got == id {
			return nil
		}
	}
	return locate(ctx, s, id)
}

func cmdDelete(c *Console, ctx context.Context, args []string) error {
	fs := c.flags("delete")
	yes := fs.Bool("yes", false, "skip the confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, rest, err := c.target(ctx, "delete", fs.Args(), 1)
	if err != nil {
		return err
	}
	if err := c.find(ctx, s, rest[0]); err != nil {
		return err
	}
	p, err := s.RequestDelete(rest[0])
	if err != nil {
		return err
	}
	switch {
	case *yes:
		err = p.Confirm(ctx)
	case c.interactive:
		c.printf("%s Type yes to confirm or cancel.\n", p.Message())
		return nil
	default:
		err = confirm.Prompt(ctx, p, c.in, c.out)
		if errors.Is(err, confirm.ErrCancelled) {
			c.printf("Cancelled.\n")
			return nil
		}
	}
	if err != nil {
		return err
	}
	c.renderPage(s)
	return nil
}

func cmdYes(c *Console, ctx context.Context, args []string) error {
	p := c.confirm.Pending()
	if p == nil {
		return errors.New("nothing to confirm")
	}
	if err := p.Confirm(ctx); err != nil {
		return err
	}
	if c.current != nil {
		c.renderPage(c.current)
	}
	return nil
}

func cmdCancel(c *Console, ctx context.Context, args []string) error {
	p := c.confirm.Pending()
	if p == nil {
		return errors.New("nothing to cancel")
	}
	p.Cancel()
	c.printf("Cancelled.\n")
	return nil
}

func cmdToggle(c *Console, ctx context.Context, args []string) error {
	s, rest, err := c.target(ctx, "toggle", args, 2)
	if err != nil {
		return err
	}
	if err := c.find(ctx, s, rest[0]); err != nil {
		return err
	}
	if err := s.Toggle(ctx, rest[0], rest[1]); err != nil {
		return err
	}
	c.renderPage(s)
	return nil
}

func cmdHistory(c *Console, ctx context.Context, args []string) error {
	fs := c.flags("history")
	refresh := fs.Bool("refresh", false, "fetch the totals again")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return usage("history")
	}
	planType := c.history.Type()
	if fs.NArg() == 1 {
		planType = fs.Arg(0)
	}
	if err := c.history.SelectType(ctx, planType); err != nil {
		return err
	}
	if *refresh {
		if err := c.history.Refresh(ctx); err != nil {
			return err
		}
	}
	c.renderHistory()
	return nil
}

func cmdPurchases(c *Console, ctx context.Context, args []string) error {
	fs := c.flags("purchases")
	page := fs.Int("page", 0, "page number, starting at 1")
	closeDetail := fs.Bool("close", false, "close the purchases")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *closeDetail {
		c.history.Close()
		return nil
	}
	switch fs.NArg() {
	case 0:
		if *page > 0 && c.history.IsOpen() {
			if err := c.history.Detail().SetPageIndex(ctx, *page-1); err != nil {
				return err
			}
		}
		c.renderDetail()
		return nil
	case 1:
	default:
		return usage("purchases")
	}
	if len(c.history.Summary().History) == 0 {
		if err := c.history.SelectType(ctx, c.history.Type()); err != nil {
			return err
		}
	}
	if err := c.history.Open(ctx, fs.Arg(0)); err != nil {
		return err
	}
	if *page > 1 {
		if err := c.history.Detail().SetPageIndex(ctx, *page-1); err != nil {
			return err
		}
	}
	c.renderDetail()
	return nil
}

func cmdUser(c *Console, ctx context.Context, args []string) error {
	fs := c.flags("user")
	plans := fs.Bool("plans", false, "show coin plan purchases instead of the coin ledger")
	page := fs.Int("page", 0, "page number, starting at 1")
	closeUser := fs.Bool("close", false, "close the user")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *closeUser {
		c.user.Close()
		return nil
	}
	if fs.NArg() > 1 {
		return usage("user")
	}
	if fs.NArg() == 1 {
		if err := c.user.Open(ctx, fs.Arg(0)); err != nil {
			return err
		}
	} else if _, ok := c.user.User(); !ok {
		return usage("user")
	}

	if *plans {
		detail, err := c.user.Plans(ctx)
		if err != nil {
			return err
		}
		if *page > 0 {
			if err := detail.SetPageIndex(ctx, *page-1); err != nil {
				return err
			}
		}
		c.renderUser(func() {
			st := detail.State()
			fmt.Fprintln(c.out, "Coin plan history")
			renderPlanPurchases(c.out, st.Data)
			fmt.Fprintf(c.out, "Page %d of %d, %d purchases\n", st.PageIndex+1, detail.PageCount(), st.RowCount)
		})
		return nil
	}

	coins := c.user.Coins()
	if *page > 0 {
		if err := coins.SetPageIndex(ctx, *page-1); err != nil {
			return err
		}
	}
	c.renderUser(func() {
		st := coins.State()
		fmt.Fprintln(c.out, "Coin history")
		renderCoinHistory(c.out, st.Data)
		fmt.Fprintf(c.out, "Page %d of %d, %d entries\n", st.PageIndex+1, coins.PageCount(), st.RowCount)
	})
	return nil
}

func cmdStory(c *Console, ctx context.Context, args []string) error {
	fs := c.flags("story")
	closeStory := fs.Bool("close", false, "close the story")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *closeStory {
		c.story.Close()
		return nil
	}
	switch fs.NArg() {
	case 0:
	case 1:
		if err := c.story.Open(ctx, fs.Arg(0)); err != nil {
			return err
		}
	default:
		return usage("story")
	}
	c.renderStory()
	return nil
}

func cmdSettings(c *Console, ctx context.Context, args []string) error {
	fs := c.flags("settings")
	sets := fs.StringArray("set", nil, "field=value")
	files := fs.StringArray("file", nil, "field=path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.settings == nil {
		c.settings = resources.NewSettingsForm(c.deps())
	}
	if err := c.settings.Load(ctx); err != nil {
		return err
	}
	c.edit(c.settings, "Settings")
	if len(*sets) == 0 && len(*files) == 0 {
		c.renderSettings(c.settings.Current(), c.settings.LogoURL())
		return nil
	}
	if err := c.fill(c.settings, *sets, *files); err != nil {
		return err
	}
	return c.save(ctx)
}

func cmdDashboard(c *Console, ctx context.Context, args []string) error {
	st, err := resources.Dashboard(ctx, c.deps())
	if err != nil {
		return err
	}
	c.renderDashboard(st)
	return nil
}

func cmdJobs(c *Console, ctx context.Context, args []string) error {
	jm := c.app.JobManager()
	switch {
	case len(args) == 0:
	case len(args) == 2 && args[0] == "run":
		if err := jm.RunJobSync(args[1], c.app); err != nil {
			return err
		}
	default:
		return usage("jobs")
	}
	c.renderJobs(jm.GetStatus())
	return nil
}
