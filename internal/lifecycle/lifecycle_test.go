package lifecycle

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenescout/extract-cli/internal/model"
	"github.com/scenescout/extract-cli/internal/store"
)

type fakeStore struct {
	suggestions map[string]*model.PatternSuggestion
	patterns    []model.ExtractionPattern
	nextID      int
	deactivated int
	createErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{suggestions: make(map[string]*model.PatternSuggestion)}
}

func (f *fakeStore) CreatePattern(_ context.Context, p model.ExtractionPattern) (*model.ExtractionPattern, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	f.nextID++
	p.ID = fmt.Sprintf("pat-%d", f.nextID)
	f.patterns = append(f.patterns, p)
	return &p, nil
}

func (f *fakeStore) DeactivateFailingPatterns(_ context.Context, minAttempts, failureFactor int) (int, error) {
	var n int
	for i := range f.patterns {
		p := &f.patterns[i]
		attempts := p.SuccessCount + p.FailureCount
		if p.IsActive && attempts > minAttempts && p.FailureCount > p.SuccessCount*failureFactor {
			p.IsActive = false
			n++
		}
	}
	f.deactivated += n
	return n, nil
}

func (f *fakeStore) UpsertSuggestion(_ context.Context, s model.PatternSuggestion) (*model.PatternSuggestion, error) {
	for _, existing := range f.suggestions {
		if existing.Status == model.SuggestionPending &&
			existing.FieldType == s.FieldType &&
			existing.SuggestedRegex == s.SuggestedRegex {
			existing.AttemptCount++
			return existing, nil
		}
	}
	f.nextID++
	s.ID = fmt.Sprintf("sug-%d", f.nextID)
	s.Status = model.SuggestionPending
	s.AttemptCount = 1
	f.suggestions[s.ID] = &s
	return &s, nil
}

func (f *fakeStore) GetSuggestion(_ context.Context, id string) (*model.PatternSuggestion, error) {
	s, ok := f.suggestions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListSuggestions(_ context.Context, filter store.SuggestionFilter) ([]model.PatternSuggestion, error) {
	var out []model.PatternSuggestion
	for _, s := range f.suggestions {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if s.AttemptCount < filter.MinAttempts {
			continue
		}
		if len(filter.FieldTypes) > 0 {
			var ok bool
			for _, ft := range filter.FieldTypes {
				if s.FieldType == ft {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeStore) TransitionSuggestion(_ context.Context, id string, from, to model.SuggestionStatus) (bool, error) {
	s, ok := f.suggestions[id]
	if !ok || s.Status != from {
		return false, nil
	}
	if !from.CanTransition(to) {
		return false, eris.Errorf("illegal transition %s -> %s", from, to)
	}
	s.Status = to
	return true, nil
}

func (f *fakeStore) ResetFailedSuggestions(context.Context) (int, error) {
	var n int
	for _, s := range f.suggestions {
		if s.Status == model.SuggestionGenerationFailed {
			s.Status = model.SuggestionPending
			s.AttemptCount = 0
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) PurgeSuggestions(_ context.Context, statuses []model.SuggestionStatus) (int, error) {
	var n int
	for id, s := range f.suggestions {
		for _, st := range statuses {
			if st == model.SuggestionApproved {
				continue
			}
			if s.Status == st {
				delete(f.suggestions, id)
				n++
				break
			}
		}
	}
	return n, nil
}

func enqueue(t *testing.T, m *Manager, ft model.FieldType, regex string) *model.PatternSuggestion {
	t.Helper()
	s, err := m.Enqueue(context.Background(), ft, regex, "doors 8pm", "8pm")
	require.NoError(t, err)
	return s
}

func TestEnqueue_DuplicateIncrementsAttempts(t *testing.T) {
	m := NewManager(newFakeStore())

	first := enqueue(t, m, model.FieldTime, `(\d+pm)`)
	assert.Equal(t, 1, first.AttemptCount)

	second := enqueue(t, m, model.FieldTime, `(\d+pm)`)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.AttemptCount)
}

func TestEnqueue_RejectsUnknownFieldType(t *testing.T) {
	m := NewManager(newFakeStore())
	_, err := m.Enqueue(context.Background(), model.FieldType("phone"), `\d+`, "", "")
	require.Error(t, err)
}

func TestApprove_CreatesAILearnedPattern(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs)

	s := enqueue(t, m, model.FieldTime, `(\d+pm)`)

	p, err := m.Approve(context.Background(), s.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.SourceAILearned, p.Source)
	assert.Equal(t, model.PriorityAILearned, p.Priority)
	assert.Equal(t, AILearnedConfidence, p.Confidence)
	assert.True(t, p.IsActive)
	assert.Equal(t, model.SuggestionApproved, fs.suggestions[s.ID].Status)
}

func TestApprove_InvalidRegexLeavesSuggestionPending(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs)

	s := enqueue(t, m, model.FieldTime, `([unclosed`)

	_, err := m.Approve(context.Background(), s.ID, "")
	require.Error(t, err)
	assert.Equal(t, model.SuggestionPending, fs.suggestions[s.ID].Status)
	assert.Empty(t, fs.patterns)
}

func TestApprove_RegexOverride(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs)

	s := enqueue(t, m, model.FieldTime, `([unclosed`)

	p, err := m.Approve(context.Background(), s.ID, `(\d+pm)`)
	require.NoError(t, err)
	assert.Equal(t, `(\d+pm)`, p.RegexSource)
}

func TestApprove_AlreadyDecided(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs)

	s := enqueue(t, m, model.FieldTime, `(\d+pm)`)
	require.NoError(t, m.Reject(context.Background(), s.ID))

	_, err := m.Approve(context.Background(), s.ID, "")
	assert.True(t, eris.Is(err, ErrSuggestionNotPending))
}

func TestRetryFailed_ResetsAttemptCount(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs)

	s := enqueue(t, m, model.FieldTime, `(\d+pm)`)
	enqueue(t, m, model.FieldTime, `(\d+pm)`) // bump attempts
	require.NoError(t, m.MarkGenerationFailed(context.Background(), s.ID))

	n, err := m.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.SuggestionPending, fs.suggestions[s.ID].Status)
	assert.Equal(t, 0, fs.suggestions[s.ID].AttemptCount)
}

func TestRejectNonAmenable_VenueRegardlessOfAttempts(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs)

	venue := enqueue(t, m, model.FieldVenue, `SaGuijo`)
	for i := 0; i < 5; i++ {
		enqueue(t, m, model.FieldVenue, `SaGuijo`)
	}
	addr := enqueue(t, m, model.FieldAddress, `\d+ Guijo St`)
	keep := enqueue(t, m, model.FieldTime, `(\d+pm)`)

	res, err := m.RejectNonAmenable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Affected)
	assert.Empty(t, res.Failures)
	assert.Equal(t, model.SuggestionNotApplicable, fs.suggestions[venue.ID].Status)
	assert.Equal(t, model.SuggestionNotApplicable, fs.suggestions[addr.ID].Status)
	assert.Equal(t, model.SuggestionPending, fs.suggestions[keep.ID].Status)
}

func TestAutoApprove_HighFrequencyDateTimePrice(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs)

	timeSug := enqueue(t, m, model.FieldTime, `(\d+pm)`)
	enqueue(t, m, model.FieldTime, `(\d+pm)`)
	enqueue(t, m, model.FieldTime, `(\d+pm)`) // 3 attempts

	lowFreq := enqueue(t, m, model.FieldPrice, `₱(\d+)`) // 1 attempt

	res, err := m.AutoApprove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	assert.Equal(t, model.SuggestionApproved, fs.suggestions[timeSug.ID].Status)
	assert.Equal(t, model.SuggestionPending, fs.suggestions[lowFreq.ID].Status)
	require.Len(t, fs.patterns, 1)
}

func TestAutoApprove_BadRegexReportedNotFatal(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs)

	bad := enqueue(t, m, model.FieldTime, `([unclosed`)
	good := enqueue(t, m, model.FieldTime, `(\d+pm)`)
	for i := 0; i < 2; i++ {
		enqueue(t, m, model.FieldTime, `([unclosed`)
		enqueue(t, m, model.FieldTime, `(\d+pm)`)
	}

	res, err := m.AutoApprove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, bad.ID, res.Failures[0].ID)
	assert.Equal(t, model.SuggestionPending, fs.suggestions[bad.ID].Status)
	assert.Equal(t, model.SuggestionApproved, fs.suggestions[good.ID].Status)
}

func TestPurge_DefaultsAndApprovedSurvive(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs)

	rejected := enqueue(t, m, model.FieldTime, `(\d+pm)`)
	require.NoError(t, m.Reject(context.Background(), rejected.ID))

	approved := enqueue(t, m, model.FieldDate, `(\d{4}-\d{2}-\d{2})`)
	_, err := m.Approve(context.Background(), approved.ID, "")
	require.NoError(t, err)

	res, err := m.Purge(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	assert.NotContains(t, fs.suggestions, rejected.ID)
	assert.Contains(t, fs.suggestions, approved.ID)

	// Idempotent: nothing left to purge.
	res, err = m.Purge(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Affected)
}

func TestDeactivateFailing_RuleBoundaries(t *testing.T) {
	fs := newFakeStore()
	fs.patterns = []model.ExtractionPattern{
		{ID: "failing", FieldType: model.FieldTime, RegexSource: `\d+`, IsActive: true,
			SuccessCount: 3, FailureCount: 8},
		{ID: "holding", FieldType: model.FieldTime, RegexSource: `\d+`, IsActive: true,
			SuccessCount: 5, FailureCount: 6},
	}
	m := NewManager(fs)

	res, err := m.DeactivateFailing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	assert.False(t, fs.patterns[0].IsActive)
	assert.True(t, fs.patterns[1].IsActive)

	// Idempotent with no new activity.
	res, err = m.DeactivateFailing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Affected)
}

func TestMaintain_RunsAllSweeps(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs)

	enqueue(t, m, model.FieldVenue, `SaGuijo`)

	out, err := m.Maintain(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "deactivate_failing")
	assert.Contains(t, out, "reject_non_amenable")
	assert.Contains(t, out, "auto_approve")
	assert.Equal(t, 1, out["reject_non_amenable"].Affected)
}
