package matcher

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenescout/extract-cli/internal/model"
)

// fakeSource serves a fixed pattern set and records counter calls.
type fakeSource struct {
	mu       sync.Mutex
	patterns map[model.FieldType][]model.ExtractionPattern
	hits     []string
	misses   []string
	loadErr  error
	hitErr   error
}

func (f *fakeSource) ActivePatterns(_ context.Context, ft model.FieldType, minConf float64, limit int) ([]model.ExtractionPattern, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	var out []model.ExtractionPattern
	for _, p := range f.patterns[ft] {
		if p.IsActive && p.Confidence >= minConf {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSource) RecordPatternHit(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hitErr != nil {
		return f.hitErr
	}
	f.hits = append(f.hits, id)
	return nil
}

func (f *fakeSource) RecordPatternMiss(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses = append(f.misses, id)
	return nil
}

func timePattern(id, regex string, priority int, conf float64) model.ExtractionPattern {
	return model.ExtractionPattern{
		ID:          id,
		FieldType:   model.FieldTime,
		RegexSource: regex,
		Priority:    priority,
		Confidence:  conf,
		IsActive:    true,
	}
}

func newTestMatcher(src *fakeSource) *Matcher {
	return New(src, Options{})
}

func TestExtract_EmptyTextIsNoMatch(t *testing.T) {
	src := &fakeSource{loadErr: eris.New("must not be called")}
	m := newTestMatcher(src)

	ext, err := m.Extract(context.Background(), "   \n\t ", model.FieldTime)
	require.NoError(t, err)
	assert.Nil(t, ext)
}

func TestExtract_UnknownFieldType(t *testing.T) {
	m := newTestMatcher(&fakeSource{})

	_, err := m.Extract(context.Background(), "doors at 8pm", model.FieldType("phone"))
	require.Error(t, err)
}

func TestExtract_PriorityOrderWins(t *testing.T) {
	src := &fakeSource{patterns: map[model.FieldType][]model.ExtractionPattern{
		model.FieldTime: {
			timePattern("low", `(\d{1,2}pm)`, model.PriorityLearned, 0.9),
			timePattern("high", `doors at (\d{1,2}pm)`, model.PriorityDefault, 0.6),
		},
	}}
	m := newTestMatcher(src)

	ext, err := m.Extract(context.Background(), "doors at 8pm", model.FieldTime)
	require.NoError(t, err)
	require.NotNil(t, ext)
	assert.Equal(t, "high", ext.PatternID)
	assert.Equal(t, "8pm", ext.Value)
	assert.Equal(t, model.MethodPattern, ext.Method)
	assert.Equal(t, 0.6, ext.Confidence)
	assert.Equal(t, []string{"high"}, src.hits)
}

func TestExtract_CaptureGroupPreferredOverWholeMatch(t *testing.T) {
	src := &fakeSource{patterns: map[model.FieldType][]model.ExtractionPattern{
		model.FieldTime: {
			timePattern("grouped", `starts at (\d{1,2}:\d{2})`, model.PriorityDefault, 0.8),
		},
	}}
	m := newTestMatcher(src)

	ext, err := m.Extract(context.Background(), "show starts at 21:30 sharp", model.FieldTime)
	require.NoError(t, err)
	require.NotNil(t, ext)
	assert.Equal(t, "21:30", ext.Value)
}

func TestExtract_NoCaptureGroupUsesWholeMatch(t *testing.T) {
	src := &fakeSource{patterns: map[model.FieldType][]model.ExtractionPattern{
		model.FieldFree: {
			{ID: "free", FieldType: model.FieldFree, RegexSource: `(?i)free entry`,
				Priority: model.PriorityDefault, Confidence: 0.8, IsActive: true},
		},
	}}
	m := newTestMatcher(src)

	ext, err := m.Extract(context.Background(), "FREE ENTRY all night", model.FieldFree)
	require.NoError(t, err)
	require.NotNil(t, ext)
	assert.Equal(t, "FREE ENTRY", ext.Value)
}

func TestExtract_NoMatchReturnsNilNil(t *testing.T) {
	src := &fakeSource{patterns: map[model.FieldType][]model.ExtractionPattern{
		model.FieldTime: {
			timePattern("p1", `doors at (\d{1,2}pm)`, model.PriorityDefault, 0.8),
		},
	}}
	m := newTestMatcher(src)

	ext, err := m.Extract(context.Background(), "no schedule announced yet", model.FieldTime)
	require.NoError(t, err)
	assert.Nil(t, ext)
	// Absent field: nobody is penalized.
	assert.Empty(t, src.misses)
	assert.Empty(t, src.hits)
}

func TestExtract_OutrankedPatternsRecordMisses(t *testing.T) {
	src := &fakeSource{patterns: map[model.FieldType][]model.ExtractionPattern{
		model.FieldTime: {
			timePattern("strict", `doors open at (\d{1,2}pm)`, model.PriorityDefault, 0.9),
			timePattern("loose", `(\d{1,2}pm)`, model.PriorityLearned, 0.8),
		},
	}}
	m := newTestMatcher(src)

	ext, err := m.Extract(context.Background(), "see you at 9pm", model.FieldTime)
	require.NoError(t, err)
	require.NotNil(t, ext)
	assert.Equal(t, "loose", ext.PatternID)
	assert.Equal(t, []string{"strict"}, src.misses)
}

func TestExtract_CorruptPatternSkippedAndCounted(t *testing.T) {
	src := &fakeSource{patterns: map[model.FieldType][]model.ExtractionPattern{
		model.FieldTime: {
			timePattern("broken", `([unclosed`, model.PriorityDefault, 0.9),
			timePattern("ok", `(\d{1,2}pm)`, model.PriorityLearned, 0.8),
		},
	}}
	m := newTestMatcher(src)

	ext, err := m.Extract(context.Background(), "starts 7pm", model.FieldTime)
	require.NoError(t, err)
	require.NotNil(t, ext)
	assert.Equal(t, "ok", ext.PatternID)
	assert.Equal(t, []string{"broken"}, src.misses)
}

func TestExtract_CounterFailureDoesNotAffectResult(t *testing.T) {
	src := &fakeSource{
		patterns: map[model.FieldType][]model.ExtractionPattern{
			model.FieldTime: {
				timePattern("p1", `(\d{1,2}pm)`, model.PriorityDefault, 0.8),
			},
		},
		hitErr: eris.New("store unavailable"),
	}
	m := newTestMatcher(src)

	ext, err := m.Extract(context.Background(), "doors 8pm", model.FieldTime)
	require.NoError(t, err)
	require.NotNil(t, ext)
	assert.Equal(t, "8pm", ext.Value)
}

func TestExtract_StoreLoadErrorPropagates(t *testing.T) {
	src := &fakeSource{loadErr: eris.New("connection refused")}
	m := newTestMatcher(src)

	_, err := m.Extract(context.Background(), "doors 8pm", model.FieldTime)
	require.Error(t, err)
}

func TestExtract_Deterministic(t *testing.T) {
	src := &fakeSource{patterns: map[model.FieldType][]model.ExtractionPattern{
		model.FieldTime: {
			timePattern("a", `(\d{1,2}pm)`, model.PriorityLearned, 0.8),
			timePattern("b", `at (\d{1,2}pm)`, model.PriorityLearned, 0.8),
		},
	}}
	m := newTestMatcher(src)

	first, err := m.Extract(context.Background(), "at 8pm", model.FieldTime)
	require.NoError(t, err)
	require.NotNil(t, first)
	for i := 0; i < 10; i++ {
		ext, err := m.Extract(context.Background(), "at 8pm", model.FieldTime)
		require.NoError(t, err)
		require.NotNil(t, ext)
		assert.Equal(t, first.PatternID, ext.PatternID)
		assert.Equal(t, first.Value, ext.Value)
	}
}

func TestRegexCache_RecompilesOnSourceChange(t *testing.T) {
	c := newRegexCache()

	re1, err := c.get("p1", `\d+`)
	require.NoError(t, err)
	assert.True(t, re1.MatchString("42"))

	re2, err := c.get("p1", `[a-z]+`)
	require.NoError(t, err)
	assert.True(t, re2.MatchString("abc"))
	assert.False(t, re2.MatchString("42"))
	assert.Equal(t, 1, c.size())

	c.invalidate("p1")
	assert.Equal(t, 0, c.size())
}

func TestExtractBatch_PartialFailureIsolated(t *testing.T) {
	src := &fakeSource{patterns: map[model.FieldType][]model.ExtractionPattern{
		model.FieldTime: {
			timePattern("p1", `(\d{1,2}pm)`, model.PriorityDefault, 0.8),
		},
		model.FieldPrice: {
			{ID: "price", FieldType: model.FieldPrice, RegexSource: `₱\s?(\d+)`,
				Priority: model.PriorityDefault, Confidence: 0.8, IsActive: true},
		},
	}}
	m := newTestMatcher(src)

	items := []BatchItem{
		{ID: "post-1", Text: "doors 8pm, ₱300 at the door"},
		{ID: "post-2", Text: "lineup tba"},
	}
	results, err := m.ExtractBatch(context.Background(), items, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "post-1", results[0].ID)
	require.NoError(t, results[0].Err)
	byField := map[model.FieldType]string{}
	for _, e := range results[0].Extractions {
		byField[e.FieldType] = e.Value
	}
	assert.Equal(t, "8pm", byField[model.FieldTime])
	assert.Equal(t, "300", byField[model.FieldPrice])

	assert.Equal(t, "post-2", results[1].ID)
	require.NoError(t, results[1].Err)
	assert.Empty(t, results[1].Extractions)
}

func TestExtractBatch_FieldSubset(t *testing.T) {
	src := &fakeSource{patterns: map[model.FieldType][]model.ExtractionPattern{
		model.FieldTime: {
			timePattern("p1", `(\d{1,2}pm)`, model.PriorityDefault, 0.8),
		},
	}}
	m := newTestMatcher(src)

	results, err := m.ExtractBatch(context.Background(),
		[]BatchItem{{ID: "a", Text: "doors 8pm", Fields: []model.FieldType{model.FieldTime}}}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Extractions, 1)
	assert.Equal(t, model.FieldTime, results[0].Extractions[0].FieldType)
}

func TestExtractBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newTestMatcher(&fakeSource{})
	_, err := m.ExtractBatch(ctx, []BatchItem{{ID: "a", Text: "doors 8pm"}}, 1)
	require.Error(t, err)
}
