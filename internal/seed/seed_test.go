package seed

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenescout/extract-cli/internal/model"
	"github.com/scenescout/extract-cli/internal/store"
)

type fakeStore struct {
	patterns []model.ExtractionPattern
}

func (f *fakeStore) ListPatterns(context.Context, store.PatternFilter) ([]model.ExtractionPattern, error) {
	return f.patterns, nil
}

func (f *fakeStore) CreatePattern(_ context.Context, p model.ExtractionPattern) (*model.ExtractionPattern, error) {
	f.patterns = append(f.patterns, p)
	return &p, nil
}

func TestDefaults_AllCompileAndValidate(t *testing.T) {
	defaults, err := Defaults()
	require.NoError(t, err)
	require.NotEmpty(t, defaults)

	for _, p := range defaults {
		assert.Equal(t, model.SourceDefault, p.Source)
		assert.Equal(t, model.PriorityDefault, p.Priority)
		assert.True(t, p.IsActive)
		_, err := regexp.Compile(p.RegexSource)
		assert.NoError(t, err, "pattern %q", p.RegexSource)
	}
}

func TestDefaults_ExtractRealisticPostText(t *testing.T) {
	defaults, err := Defaults()
	require.NoError(t, err)

	post := "GIG ALERT! Aug 23, 2026 at SaGuijo. Doors open at 8:00 PM. " +
		"₱300 at the door. RSVP here: https://example.ph/gig"

	extracted := make(map[model.FieldType]string)
	for _, p := range defaults {
		if _, seen := extracted[p.FieldType]; seen {
			continue
		}
		re := regexp.MustCompile(p.RegexSource)
		if m := re.FindStringSubmatch(post); m != nil {
			v := m[0]
			if len(m) > 1 && m[1] != "" {
				v = m[1]
			}
			extracted[p.FieldType] = v
		}
	}

	assert.Equal(t, "8:00 PM", extracted[model.FieldTime])
	assert.Equal(t, "Aug 23, 2026", extracted[model.FieldDate])
	assert.Equal(t, "300", extracted[model.FieldPrice])
	assert.Contains(t, extracted[model.FieldSignupURL], "https://example.ph/gig")
}

func TestApply_Idempotent(t *testing.T) {
	fs := &fakeStore{}

	n, err := Apply(context.Background(), fs)
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	total := len(fs.patterns)

	n, err = Apply(context.Background(), fs)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, fs.patterns, total)
}
