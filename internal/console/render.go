package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/vrsandeep/storydesk/internal/form"
	"github.com/vrsandeep/storydesk/internal/jobs"
	"github.com/vrsandeep/storydesk/internal/models"
	"github.com/vrsandeep/storydesk/internal/resources"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	return t
}

func (c *Console) renderPage(s resources.Screen) {
	p := s.Page()
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.Loading {
		fmt.Fprintf(c.out, "%s: loading...\n", s.Title())
		return
	}
	fmt.Fprintf(c.out, "%s\n", s.Title())
	t := newTable(c.out, append([]string{"ID"}, p.Headers...)...)
	for i, row := range p.Rows {
		t.Append(append([]string{p.IDs[i]}, row...))
	}
	t.Render()

	page := p.PageIndex + 1
	if p.PageCount == 0 {
		page = 0
	}
	info := fmt.Sprintf("Page %d of %d, %d rows, %d per page", page, p.PageCount, p.RowCount, p.PageSize)
	var filters []string
	for _, k := range sortedKeys(p.Filters) {
		if p.Filters[k] != "" {
			filters = append(filters, fmt.Sprintf("%s=%q", k, p.Filters[k]))
		}
	}
	if len(filters) > 0 {
		info += " (" + strings.Join(filters, " ") + ")"
	}
	fmt.Fprintln(c.out, info)
}

func (c *Console) renderDialog(title string, d *form.Dialog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !d.IsOpen() {
		fmt.Fprintln(c.out, "No form open.")
		return
	}
	heading := fmt.Sprintf("%s (%s)", title, d.Mode())
	if d.ID() != "" {
		heading += " " + d.ID()
	}
	fmt.Fprintln(c.out, heading)

	draft := d.Draft()
	errs := d.Errors()
	attached := d.Attachments()
	t := newTable(c.out, "Field", "Value", "")
	for _, f := range d.Fields() {
		value := draft[f.Name]
		if f.Kind == form.File {
			if a, ok := attached[f.Name]; ok {
				value = a.Name
			}
		}
		if f.Kind == form.Choice && len(f.Choices) > 0 {
			value += " [" + strings.Join(f.Choices, "|") + "]"
		}
		label := f.Label
		if label == "" {
			label = f.Name
		}
		t.Append([]string{f.Name + " (" + label + ")", value, errs[f.Name]})
	}
	t.Render()
}

func (c *Console) renderDashboard(st models.DashboardStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := newTable(c.out, "Metric", "Value")
	t.Append([]string{"Total users", strconv.Itoa(st.Counts.TotalUsers)})
	t.Append([]string{"Active VIP users", strconv.Itoa(st.Counts.ActiveVipUsers)})
	t.Append([]string{"Total stories", strconv.Itoa(st.Counts.TotalStories)})
	t.Append([]string{"Total episodes", strconv.Itoa(st.Counts.TotalEpisodes)})
	t.Append([]string{"Coins credited", money(st.Counts.TotalCoinsCredit)})
	t.Render()

	if len(st.RecentUsers) > 0 {
		fmt.Fprintln(c.out, "Recent users")
		t = newTable(c.out, "ID", "Name", "Email", "Coins")
		for _, u := range st.RecentUsers {
			t.Append([]string{u.ID, u.Name, u.Email, money(u.Coins)})
		}
		t.Render()
	}
	if len(st.RecentTransactions) > 0 {
		fmt.Fprintln(c.out, "Recent transactions")
		renderPurchases(c.out, st.RecentTransactions)
	}
}

func renderPurchases(w io.Writer, ps []models.Purchase) {
	t := newTable(w, "Unique ID", "Plan", "Price", "Coins", "Status", "Date")
	for _, p := range ps {
		date := ""
		if !p.Date.IsZero() {
			date = p.Date.Format("2006-01-02 15:04")
		}
		t.Append([]string{p.UniqueID, p.PlanName, money(p.Price), money(p.Coin), p.Status, date})
	}
	t.Render()
}

func (c *Console) renderHistory() {
	sum := c.history.Summary()
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Order history (%s)\n", c.history.Type())
	t := newTable(c.out, "User ID", "Name", "Plans", "Spent")
	for _, h := range sum.History {
		t.Append([]string{h.ID, h.Name, strconv.Itoa(h.TotalPlansPurchased), money(h.TotalAmountSpent)})
	}
	t.Render()
	fmt.Fprintf(c.out, "%d users, admin earnings %s\n", sum.TotalHistory, money(sum.TotalAdminEarnings))
}

func (c *Console) renderDetail() {
	row, _ := c.history.Selected()
	detail := c.history.Detail()
	if detail == nil || !c.history.IsOpen() {
		c.printf("No purchases open.\n")
		return
	}
	st := detail.State()
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Purchases of %s\n", row.Name)
	renderPurchases(c.out, st.Data)
	fmt.Fprintf(c.out, "Page %d of %d, %d purchases\n", st.PageIndex+1, detail.PageCount(), st.RowCount)
}

// renderUser prints the open user's profile followed by section.
func (c *Console) renderUser(section func()) {
	u, ok := c.user.User()
	if !ok {
		c.printf("No user open.\n")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	status := "Active"
	if u.IsBlocked {
		status = "Blocked"
	}
	fmt.Fprintf(c.out, "%s (%s)\n", u.Name, status)
	t := newTable(c.out, "Field", "Value")
	t.Append([]string{"Unique ID", dash(u.UniqueID)})
	t.Append([]string{"Email", dash(u.Email)})
	t.Append([]string{"Mobile", dash(u.Phone())})
	t.Append([]string{"Gender", dash(u.Gender)})
	t.Append([]string{"Login type", dash(u.LoginType)})
	t.Append([]string{"Coins", money(u.Coins)})
	t.Render()
	section()
}

func renderCoinHistory(w io.Writer, entries []models.CoinHistory) {
	t := newTable(w, "Date", "Amount", "Type", "Description")
	for _, e := range entries {
		t.Append([]string{day(e.CreatedAt), money(e.Coins), e.Type, e.Description})
	}
	t.Render()
}

func renderPlanPurchases(w io.Writer, ps []models.PlanPurchase) {
	t := newTable(w, "Date", "Plan", "Amount", "Coins", "Status")
	for _, p := range ps {
		t.Append([]string{day(p.CreatedAt), dash(p.Name()), money(p.Amount()), money(p.CoinCount()), p.Outcome()})
	}
	t.Render()
}

func (c *Console) renderStory() {
	d, ok := c.story.Detail()
	if !ok {
		c.printf("No story open.\n")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Episodes of %s\n", d.Title)
	t := newTable(c.out, "ID", "No.", "Name", "Type", "Free", "Coin")
	for _, e := range d.Episodes {
		free := "no"
		if e.IsFree {
			free = "yes"
		}
		t.Append([]string{e.ID, strconv.Itoa(e.EpisodeNumber), e.Name, e.Type, free, money(e.Coin)})
	}
	t.Render()
	fmt.Fprintf(c.out, "%d episodes, next episode number %d\n", len(d.Episodes), d.NextEpisodeNumber())
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func (c *Console) renderSettings(s models.Settings, logo string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := newTable(c.out, "Setting", "Value")
	t.AppendBulk([][]string{
		{"App name", s.AppName},
		{"App logo", logo},
		{"Description", s.AppDescription},
		{"Support email", s.SupportEmail},
		{"Facebook", s.Facebook},
		{"Instagram", s.Instagram},
		{"YouTube", s.YouTube},
		{"Twitter", s.Twitter},
		{"Android version", s.AndroidVersion},
		{"iOS version", s.IOSVersion},
		{"Force update", strconv.FormatBool(s.IsForceUpdate)},
		{"Maintenance mode", strconv.FormatBool(s.IsMaintenanceMode)},
		{"Welcome bonus", money(s.WelcomeBonus)},
		{"Ad display interval", money(s.AdDisplayInterval)},
	})
	t.Render()
}

func (c *Console) renderJobs(statuses []jobs.JobStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := newTable(c.out, "ID", "Name", "Status", "Last run", "Message")
	for _, s := range statuses {
		last := ""
		if !s.EndTime.IsZero() {
			last = s.EndTime.Format("2006-01-02 15:04:05")
		}
		t.Append([]string{s.ID, s.Name, s.Status, last, s.Message})
	}
	t.Render()
}

func money(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
