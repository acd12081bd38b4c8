package history

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/controller"
	"github.com/vrsandeep/storydesk/internal/models"
)

// StoryEpisodes is the episode drill-down of a story row. The story detail
// endpoint returns every episode at once, so there is no paging.
type StoryEpisodes struct {
	client *api.Client
	notify controller.Notifier

	mu     sync.Mutex
	gen    uint64
	detail *models.StoryDetail
}

func NewStoryEpisodes(client *api.Client, n controller.Notifier) *StoryEpisodes {
	return &StoryEpisodes{client: client, notify: n}
}

// Open loads story id with its episodes, ordered by episode number.
func (s *StoryEpisodes) Open(ctx context.Context, id string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	res, err := s.client.StoryDetail(ctx, id)
	if err := controller.Outcome(s.notify, "fetch", "episodes", res, err); err != nil {
		return err
	}
	detail, err := api.DecodeData[models.StoryDetail](res)
	if err != nil {
		return fmt.Errorf("failed to decode story: %w", err)
	}
	sort.SliceStable(detail.Episodes, func(i, j int) bool {
		return detail.Episodes[i].EpisodeNumber < detail.Episodes[j].EpisodeNumber
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.detail = &detail
	}
	return nil
}

// Detail returns the open story.
func (s *StoryEpisodes) Detail() (models.StoryDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil {
		return models.StoryDetail{}, false
	}
	return *s.detail, true
}

func (s *StoryEpisodes) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.detail = nil
}
