package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefAcceptsIDOrObject(t *testing.T) {
	var story Story
	err := json.Unmarshal([]byte(`{"_id":"s1","category":"c1","language":{"_id":"l1","name":"English"}}`), &story)
	require.NoError(t, err)

	assert.Equal(t, "c1", story.Category.ID)
	assert.Equal(t, "c1", story.Category.Label())
	assert.Equal(t, "l1", story.Language.ID)
	assert.Equal(t, "English", story.Language.Label())
}

func TestRefNull(t *testing.T) {
	var report Report
	err := json.Unmarshal([]byte(`{"_id":"r1","episodeId":null,"storyId":{"_id":"s1","title":"Night Shift"}}`), &report)
	require.NoError(t, err)

	assert.Empty(t, report.Episode.ID)
	assert.Equal(t, "Night Shift", report.Story.Label())
}
