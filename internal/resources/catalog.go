package resources

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/form"
	"github.com/vrsandeep/storydesk/internal/models"
)

// ErrNoStory is returned when an episode is created without a story filter.
var ErrNoStory = errors.New("select a story first (filter storyId)")

func init() {
	Register("users", func(d Deps) Screen { return NewCollection(d, usersDef(d)) })
	Register("categories", func(d Deps) Screen { return NewCollection(d, categoriesDef(d)) })
	Register("stories", func(d Deps) Screen { return NewCollection(d, storiesDef(d)) })
	Register("episodes", func(d Deps) Screen { return NewCollection(d, episodesDef(d)) })
}

func usersDef(d Deps) Def[models.User] {
	return Def[models.User]{
		Name:     "users",
		Title:    "Users",
		Singular: "User",
		Resource: api.Users,
		Key:      func(u models.User) string { return u.ID },
		Label:    func(u models.User) string { return u.Name },
		Columns: []Column[models.User]{
			{"Name", func(u models.User) string { return u.Name }},
			{"Email", func(u models.User) string { return u.Email }},
			{"Coins", func(u models.User) string { return num(u.Coins) }},
			{"Login", func(u models.User) string { return u.LoginType }},
			{"Blocked", func(u models.User) string { return yesNo(u.IsBlocked) }},
			{"Joined", func(u models.User) string { return date(u.CreatedAt) }},
		},
		Fields: func() []form.Field {
			return []form.Field{
				{Name: "name", Label: "Name", Required: true, Message: "Name cannot be empty"},
			}
		},
		Values:  func(u models.User) form.Values { return form.Values{"name": u.Name} },
		Filters: []string{"search"},
		Toggles: []ToggleDef[models.User]{{
			Field: "block",
			Call: func(ctx context.Context, c *api.Client, u models.User) (*api.Result, error) {
				return c.ToggleUserBlock(ctx, u.ID)
			},
			Apply: func(u *models.User, res *api.Result) error {
				u.IsBlocked = flagFrom(res, "isBlocked", u.IsBlocked)
				return nil
			},
		}},
		NoCreate: true,
		NoDelete: true,
	}
}

func categoriesDef(d Deps) Def[models.Category] {
	return Def[models.Category]{
		Name:     "categories",
		Title:    "Categories",
		Singular: "Category",
		Resource: api.Categories,
		Key:      func(c models.Category) string { return c.ID },
		Label:    func(c models.Category) string { return c.Name },
		Columns: []Column[models.Category]{
			{"Name", func(c models.Category) string { return c.Name }},
			{"Stories", func(c models.Category) string { return strconv.Itoa(c.TotalStories) }},
			{"Image", func(c models.Category) string { return d.media(c.Image) }},
		},
		Fields: func() []form.Field {
			return []form.Field{
				{Name: "name", Label: "Name", Required: true},
				{Name: "image", Label: "Image", Kind: form.File, RequiredOnCreate: true},
			}
		},
		Values: func(c models.Category) form.Values {
			return form.Values{"name": c.Name, "image": c.Image}
		},
		Multipart: true,
		Filters:   []string{"search"},
	}
}

// choiceField offers the cached options of a lookup. Until the lookup has
// loaded the field accepts a raw id.
func choiceField(name, label string, opts []Option) form.Field {
	f := form.Field{Name: name, Label: label, Required: true}
	if len(opts) > 0 {
		f.Kind = form.Choice
		f.Choices = optionIDs(opts)
	}
	return f
}

func storiesDef(d Deps) Def[models.Story] {
	return Def[models.Story]{
		Name:     "stories",
		Title:    "Stories",
		Singular: "Story",
		Resource: api.Stories,
		Key:      func(s models.Story) string { return s.ID },
		Label:    func(s models.Story) string { return s.Title },
		Prepare:  d.Lookups.Ensure,
		Columns: []Column[models.Story]{
			{"Title", func(s models.Story) string { return s.Title }},
			{"Category", func(s models.Story) string {
				if s.Category.Name != "" {
					return s.Category.Name
				}
				return optionName(d.Lookups.Categories(), s.Category.ID)
			}},
			{"Language", func(s models.Story) string {
				if s.Language.Name != "" {
					return s.Language.Name
				}
				return optionName(d.Lookups.Languages(), s.Language.ID)
			}},
			{"Episodes", func(s models.Story) string { return strconv.Itoa(s.TotalEpisodes) }},
			{"Views", func(s models.Story) string { return strconv.Itoa(s.TotalViews) }},
			{"Price", func(s models.Story) string { return num(s.StoryCoinPrice) }},
			{"Locked", func(s models.Story) string { return yesNo(s.IsLocked) }},
			{"Completed", func(s models.Story) string { return yesNo(s.IsCompleted) }},
		},
		Fields: func() []form.Field {
			return []form.Field{
				{Name: "title", Label: "Title", Required: true},
				{Name: "description", Label: "Description", Required: true},
				choiceField("category", "Category", d.Lookups.Categories()),
				choiceField("language", "Language", d.Lookups.Languages()),
				{Name: "rating", Label: "Rating", Kind: form.Number, Rules: "max=5", Default: "0"},
				{Name: "isLocked", Label: "Locked", Kind: form.Bool, Default: "false"},
				{Name: "isCompleted", Label: "Completed", Kind: form.Bool, Default: "false"},
				{Name: "storyCoinPrice", Label: "Story coin price", Kind: form.Number, Default: "0"},
				{Name: "coverImage", Label: "Cover Image", Kind: form.File, RequiredOnCreate: true},
				{Name: "bannerImage", Label: "Banner Image", Kind: form.File, RequiredOnCreate: true},
			}
		},
		Values: func(s models.Story) form.Values {
			return form.Values{
				"title":          s.Title,
				"description":    s.Description,
				"category":       s.Category.ID,
				"language":       s.Language.ID,
				"rating":         num(s.Rating),
				"isLocked":       boolValue(s.IsLocked),
				"isCompleted":    boolValue(s.IsCompleted),
				"storyCoinPrice": num(s.StoryCoinPrice),
				"coverImage":     s.CoverImage,
				"bannerImage":    s.BannerImage,
			}
		},
		Multipart: true,
		Filters:   []string{"search", "category", "language"},
	}
}

func episodesDef(d Deps) Def[models.Episode] {
	return Def[models.Episode]{
		Name:     "episodes",
		Title:    "Episodes",
		Singular: "Episode",
		Resource: api.Episodes,
		Key:      func(e models.Episode) string { return e.ID },
		Label: func(e models.Episode) string {
			return fmt.Sprintf("#%d %s", e.EpisodeNumber, e.Name)
		},
		Columns: []Column[models.Episode]{
			{"#", func(e models.Episode) string { return strconv.Itoa(e.EpisodeNumber) }},
			{"Name", func(e models.Episode) string { return e.Name }},
			{"Story", func(e models.Episode) string { return e.StoryID.Label() }},
			{"Type", func(e models.Episode) string { return e.Type }},
			{"Free", func(e models.Episode) string { return yesNo(e.IsFree) }},
			{"Coin", func(e models.Episode) string { return num(e.Coin) }},
			{"Video", func(e models.Episode) string {
				if e.VideoURL != "" {
					return e.VideoURL
				}
				return d.media(e.Video)
			}},
		},
		Fields: func() []form.Field {
			return []form.Field{
				{Name: "storyId", Label: "Story", Required: true},
				{Name: "episodeNumber", Label: "Episode number", Kind: form.Integer, Required: true, Message: "Episode number is required", Rules: "min=1"},
				{Name: "name", Label: "Name"},
				{Name: "description", Label: "Description"},
				{Name: "type", Label: "Type", Kind: form.Choice, Choices: []string{models.EpisodeTypeEpisode, models.EpisodeTypeTrailer}, Default: models.EpisodeTypeEpisode},
				{Name: "isFree", Label: "Free", Kind: form.Bool, Default: "false"},
				{Name: "coin", Label: "Coin", Kind: form.Number, Required: true, Message: "Valid coin amount is required"},
				{Name: "videoUrl", Label: "Video URL", Rules: "url"},
				{Name: "video", Label: "Video", Kind: form.File},
				{Name: "thumbnail", Label: "Thumbnail", Kind: form.File},
			}
		},
		Values: func(e models.Episode) form.Values {
			return form.Values{
				"storyId":       e.StoryID.ID,
				"episodeNumber": strconv.Itoa(e.EpisodeNumber),
				"name":          e.Name,
				"description":   e.Description,
				"type":          e.Type,
				"isFree":        boolValue(e.IsFree),
				"coin":          num(e.Coin),
				"videoUrl":      e.VideoURL,
				"video":         e.Video,
				"thumbnail":     e.Thumbnail,
			}
		},
		Check:        checkEpisodeVideo,
		Multipart:    true,
		Video:        "video",
		Thumbnail:    "thumbnail",
		Filters:      []string{"search", "storyId"},
		BeforeCreate: suggestEpisode,
	}
}

// checkEpisodeVideo requires a video file or URL. An edited episode may
// keep the video it already has.
func checkEpisodeVideo(mode form.Mode, draft form.Values, attached map[string]bool) map[string]string {
	if attached["video"] || strings.TrimSpace(draft["videoUrl"]) != "" {
		return nil
	}
	if mode == form.Edit && draft["video"] != "" {
		return nil
	}
	return map[string]string{"video": "Video file or URL is required"}
}

// suggestEpisode seeds a new episode with the filtered story and the next
// free episode number.
func suggestEpisode(ctx context.Context, s *Collection[models.Episode]) (form.Values, error) {
	storyID := s.Controller().State().Filters["storyId"]
	if storyID == "" {
		return nil, ErrNoStory
	}
	values := form.Values{"storyId": storyID}
	next, err := NextEpisodeNumber(ctx, s.deps.Client, storyID)
	if err != nil {
		log.Printf("Warning: could not suggest an episode number for story %s: %v", storyID, err)
		return values, nil
	}
	values["episodeNumber"] = strconv.Itoa(next)
	return values, nil
}

// NextEpisodeNumber returns one more than the highest episode number of the
// story, or 1 when it has no episodes. All of the story's episodes are
// considered, not just a page of them.
func NextEpisodeNumber(ctx context.Context, c *api.Client, storyID string) (int, error) {
	p := api.ListParams{Page: 1, Limit: 1, Filters: map[string]string{"storyId": storyID}}
	page, err := listEpisodes(ctx, c, p)
	if err != nil {
		return 0, err
	}
	if page.TotalDocs > len(page.Docs) {
		p.Limit = page.TotalDocs
		if page, err = listEpisodes(ctx, c, p); err != nil {
			return 0, err
		}
	}
	highest := 0
	for _, e := range page.Docs {
		if e.EpisodeNumber > highest {
			highest = e.EpisodeNumber
		}
	}
	return highest + 1, nil
}

func listEpisodes(ctx context.Context, c *api.Client, p api.ListParams) (models.Page[models.Episode], error) {
	res, err := c.List(ctx, api.Episodes, p)
	if err != nil {
		return models.Page[models.Episode]{}, err
	}
	if err := res.Err(); err != nil {
		return models.Page[models.Episode]{}, err
	}
	return api.DecodePage[models.Episode](res)
}
