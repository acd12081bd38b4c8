package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func planFields() []Field {
	return []Field{
		{Name: "name", Label: "Name", Kind: Text, Required: true},
		{Name: "price", Label: "Price", Kind: Number, Required: true},
		{Name: "coin", Label: "Coins", Kind: Integer, Required: true},
		{Name: "validityType", Label: "Validity type", Kind: Choice, Choices: []string{"day", "week", "month", "year"}, Default: "month"},
		{Name: "isActive", Label: "Active", Kind: Bool, Default: "true"},
	}
}

func noSave(t *testing.T) func(context.Context, Submission) error {
	return func(context.Context, Submission) error {
		t.Fatal("save must not be called")
		return nil
	}
}

func TestEmptyRequiredFieldBlocksSave(t *testing.T) {
	d := New([]Field{{Name: "name", Label: "Name", Required: true, Message: "Name is required"}})
	d.OpenCreate(nil)
	require.NoError(t, d.Set("name", "   "))

	err := d.Submit(context.Background(), noSave(t))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "Name is required", d.Errors()["name"])
	assert.True(t, d.IsOpen())

	require.NoError(t, d.Set("name", "Hindi"))
	assert.Empty(t, d.Errors(), "editing a field clears its error")
}

func TestOpenCreateIsAlwaysFresh(t *testing.T) {
	d := New(planFields())
	d.OpenCreate(nil)
	first := d.Draft()

	require.NoError(t, d.Set("name", "Leftover"))
	d.Validate()
	d.Close()

	d.OpenCreate(nil)
	assert.Equal(t, first, d.Draft())
	assert.Empty(t, d.Errors())
	assert.Empty(t, d.Attachments())
	assert.Equal(t, Create, d.Mode())
	assert.Equal(t, "month", d.Draft()["validityType"])
}

func TestEditRoundTrip(t *testing.T) {
	d := New(planFields())
	d.OpenEdit("p1", Values{"name": "Gold", "price": "9.99", "coin": "100", "validityType": "year", "isActive": "false"})

	var got Submission
	err := d.Submit(context.Background(), func(_ context.Context, s Submission) error {
		got = s
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, Edit, got.Mode)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, map[string]any{
		"name":         "Gold",
		"price":        9.99,
		"coin":         100,
		"validityType": "year",
		"isActive":     false,
	}, got.Values)
	assert.False(t, d.IsOpen(), "dialog closes after a successful save")
}

func TestNumericValidation(t *testing.T) {
	testCases := []struct {
		field, value, want string
	}{
		{"price", "abc", "Price must be a non-negative number"},
		{"price", "-1", "Price must be a non-negative number"},
		{"coin", "1.5", "Coins must be a non-negative whole number"},
		{"validityType", "decade", "Validity type must be one of day, week, month, year"},
		{"isActive", "maybe", "Active must be true or false"},
	}
	for _, tc := range testCases {
		t.Run(tc.field+"="+tc.value, func(t *testing.T) {
			d := New(planFields())
			d.OpenCreate(Values{"name": "x", "price": "1", "coin": "1"})
			require.NoError(t, d.Set(tc.field, tc.value))
			assert.False(t, d.Validate())
			assert.Equal(t, tc.want, d.Errors()[tc.field])
		})
	}
}

func TestRules(t *testing.T) {
	d := New([]Field{
		{Name: "androidVersion", Label: "Android version", Rules: "semver"},
		{Name: "supportEmail", Label: "Support email", Rules: "email"},
		{Name: "day", Label: "Day", Kind: Integer, Rules: "min=1,max=7"},
	})
	d.OpenCreate(Values{"androidVersion": "one", "supportEmail": "nope", "day": "9"})
	assert.False(t, d.Validate())
	errs := d.Errors()
	assert.Equal(t, "Android version must be a version like 1.0.0", errs["androidVersion"])
	assert.Equal(t, "Support email must be a valid email address", errs["supportEmail"])
	assert.Equal(t, "Day must be at most 7", errs["day"])

	d.OpenCreate(Values{"androidVersion": "v2.1.0", "supportEmail": "help@example.com", "day": "3"})
	assert.True(t, d.Validate())

	d.OpenCreate(nil)
	assert.True(t, d.Validate(), "rules skip empty optional values")
}

func TestFileRequiredOnCreate(t *testing.T) {
	fields := []Field{
		{Name: "title", Required: true},
		{Name: "coverImage", Label: "Cover image", Kind: File, RequiredOnCreate: true},
	}
	d := New(fields)

	d.OpenCreate(Values{"title": "Night Train"})
	assert.False(t, d.Validate())
	assert.Equal(t, "Cover image is required", d.Errors()["coverImage"])

	require.NoError(t, d.Attach("coverImage", "/tmp/cover.jpg"))
	assert.True(t, d.Validate())

	d.OpenEdit("s1", Values{"title": "Night Train", "coverImage": "uploads/cover.jpg"})
	assert.True(t, d.Validate(), "the existing image is kept on edit")

	assert.Error(t, d.Attach("title", "x"))
	assert.Error(t, d.Set("missing", "x"))
}

func TestSaveFailureKeepsDraft(t *testing.T) {
	d := New(planFields())
	d.OpenCreate(Values{"name": "Gold", "price": "5", "coin": "50"})

	boom := errors.New("Plan name already exists")
	err := d.Submit(context.Background(), func(context.Context, Submission) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, d.IsOpen())
	assert.Equal(t, "Gold", d.Draft()["name"])
}

func TestSubmissionForm(t *testing.T) {
	s := Submission{
		Values: map[string]any{"title": "A", "storyCoinPrice": 12.5, "episodeNumber": 3, "isFree": true},
		Files:  map[string]Attachment{"thumbnail": {Name: "thumb.jpg", Data: []byte("x")}},
	}
	f := s.Form()
	v, _ := f.Field("storyCoinPrice")
	assert.Equal(t, "12.5", v)
	v, _ = f.Field("episodeNumber")
	assert.Equal(t, "3", v)
	v, _ = f.Field("isFree")
	assert.Equal(t, "true", v)
	assert.True(t, f.HasFile("thumbnail"))
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, videoPath string) ([]byte, error) {
	args := m.Called(ctx, videoPath)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func episodeDialog(ex *mockExtractor) *Dialog {
	return New([]Field{
		{Name: "name", Required: true},
		{Name: "video", Kind: File},
		{Name: "thumbnail", Kind: File},
	}).WithAutoThumbnail(AutoThumbnail{Video: "video", Thumbnail: "thumbnail", Extractor: ex})
}

func TestAutoThumbnail(t *testing.T) {
	t.Run("captured when missing", func(t *testing.T) {
		ex := &mockExtractor{}
		ex.On("Extract", mock.Anything, "/videos/ep1.mp4").Return([]byte("jpeg"), nil).Once()

		d := episodeDialog(ex)
		d.OpenCreate(Values{"name": "Ep 1"})
		require.NoError(t, d.Attach("video", "/videos/ep1.mp4"))

		var got Submission
		require.NoError(t, d.Submit(context.Background(), func(_ context.Context, s Submission) error {
			got = s
			return nil
		}))
		assert.Equal(t, []byte("jpeg"), got.Files["thumbnail"].Data)
		assert.Equal(t, "thumb.jpg", got.Files["thumbnail"].Name)
		ex.AssertExpectations(t)
	})

	t.Run("explicit thumbnail wins", func(t *testing.T) {
		ex := &mockExtractor{}
		d := episodeDialog(ex)
		d.OpenCreate(Values{"name": "Ep 1"})
		require.NoError(t, d.Attach("video", "/videos/ep1.mp4"))
		require.NoError(t, d.Attach("thumbnail", "/images/t.jpg"))

		require.NoError(t, d.Submit(context.Background(), func(context.Context, Submission) error { return nil }))
		ex.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		ex := &mockExtractor{}
		ex.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("no ffmpeg"))
		d := episodeDialog(ex)
		d.OpenCreate(Values{"name": "Ep 1"})
		require.NoError(t, d.Attach("video", "/videos/ep1.mp4"))

		var got Submission
		require.NoError(t, d.Submit(context.Background(), func(_ context.Context, s Submission) error {
			got = s
			return nil
		}))
		_, ok := got.Files["thumbnail"]
		assert.False(t, ok)
	})
}
