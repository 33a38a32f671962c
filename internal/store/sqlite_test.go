package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenescout/extract-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_PatternRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := s.CreatePattern(ctx, model.ExtractionPattern{
		FieldType:   model.FieldTime,
		RegexSource: `\d{1,2}:\d{2}\s?(?:AM|PM)`,
		Description: "12-hour clock",
		Confidence:  0.9,
		Priority:    model.PriorityDefault,
		IsActive:    true,
		Source:      model.SourceDefault,
	})
	require.NoError(t, err)

	got, err := s.GetPattern(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.RegexSource, got.RegexSource)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.LastUsedAt)

	require.NoError(t, s.RecordPatternHit(ctx, created.ID))
	require.NoError(t, s.RecordPatternHit(ctx, created.ID))
	require.NoError(t, s.RecordPatternMiss(ctx, created.ID))

	got, err = s.GetPattern(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SuccessCount)
	assert.Equal(t, 1, got.FailureCount)
	assert.NotNil(t, got.LastUsedAt)
}

func TestSQLiteStore_ActivePatterns_OrderAndCaps(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	mk := func(priority int, confidence float64, active bool) {
		t.Helper()
		_, err := s.CreatePattern(ctx, model.ExtractionPattern{
			FieldType:   model.FieldTime,
			RegexSource: `\d+`,
			Confidence:  confidence,
			Priority:    priority,
			IsActive:    active,
			Source:      model.SourceManual,
		})
		require.NoError(t, err)
	}

	mk(50, 0.7, true)
	mk(100, 0.6, true)
	mk(100, 0.9, true)
	mk(200, 0.9, false) // inactive, excluded
	mk(200, 0.4, true)  // below confidence floor, excluded

	patterns, err := s.ActivePatterns(ctx, model.FieldTime, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, patterns, 3)
	assert.Equal(t, 100, patterns[0].Priority)
	assert.Equal(t, 0.9, patterns[0].Confidence, "confidence breaks priority tie")
	assert.Equal(t, 100, patterns[1].Priority)
	assert.Equal(t, 50, patterns[2].Priority)

	capped, err := s.ActivePatterns(ctx, model.FieldTime, 0.5, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestSQLiteStore_DeactivateFailingPatterns_Idempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	failing, err := s.CreatePattern(ctx, model.ExtractionPattern{
		FieldType: model.FieldDate, RegexSource: `\d+`, Confidence: 0.6,
		IsActive: true, Source: model.SourceManual,
	})
	require.NoError(t, err)
	healthy, err := s.CreatePattern(ctx, model.ExtractionPattern{
		FieldType: model.FieldDate, RegexSource: `\w+`, Confidence: 0.6,
		IsActive: true, Source: model.SourceManual,
	})
	require.NoError(t, err)

	// failing: 3 successes, 8 failures (11 attempts, 8 > 3*2)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordPatternHit(ctx, failing.ID))
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, s.RecordPatternMiss(ctx, failing.ID))
	}
	// healthy: 5 successes, 6 failures (11 attempts, 6 <= 5*2)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordPatternHit(ctx, healthy.ID))
	}
	for i := 0; i < 6; i++ {
		require.NoError(t, s.RecordPatternMiss(ctx, healthy.ID))
	}

	n, err := s.DeactivateFailingPatterns(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetPattern(ctx, failing.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	got, err = s.GetPattern(ctx, healthy.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	// Second run with no new activity affects zero rows.
	n, err = s.DeactivateFailingPatterns(ctx, 10, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_Corrections(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, v := range []string{"7:00 PM", "7:30 PM", "8:15 PM"} {
		_, err := s.CreateCorrection(ctx, model.Correction{
			FieldName:      "event_time",
			CorrectedValue: v,
			RawSourceText:  "Doors " + v,
		})
		require.NoError(t, err)
	}
	_, err := s.CreateCorrection(ctx, model.Correction{
		FieldName:      "price",
		CorrectedValue: "₱300",
	})
	require.NoError(t, err)

	list, err := s.ListCorrections(ctx, "event_time", 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	fields, err := s.FieldsWithCorrections(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"event_time"}, fields)
}

func TestSQLiteStore_SuggestionLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	sg, err := s.UpsertSuggestion(ctx, model.PatternSuggestion{
		FieldType:      model.FieldPrice,
		SuggestedRegex: `₱\s?\d+`,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionPending, sg.Status)
	assert.Equal(t, 1, sg.AttemptCount)

	// Same shape proposed again: attempt_count increments, no new row.
	again, err := s.UpsertSuggestion(ctx, model.PatternSuggestion{
		FieldType:      model.FieldPrice,
		SuggestedRegex: `₱\s?\d+`,
	})
	require.NoError(t, err)
	assert.Equal(t, sg.ID, again.ID)
	assert.Equal(t, 2, again.AttemptCount)

	ok, err := s.TransitionSuggestion(ctx, sg.ID, model.SuggestionPending, model.SuggestionApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetSuggestion(ctx, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionApproved, got.Status)
	assert.NotNil(t, got.ReviewedAt)

	// Guarded transition: already approved, second approval is a no-op.
	ok, err = s.TransitionSuggestion(ctx, sg.ID, model.SuggestionPending, model.SuggestionRejected)
	require.NoError(t, err)
	assert.False(t, ok)

	// Approved suggestions survive purges.
	n, err := s.PurgeSuggestions(ctx, []model.SuggestionStatus{
		model.SuggestionApproved, model.SuggestionRejected, model.SuggestionNotApplicable,
	})
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err = s.GetSuggestion(ctx, sg.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestSQLiteStore_ResetFailedSuggestions(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	sg, err := s.UpsertSuggestion(ctx, model.PatternSuggestion{
		FieldType:      model.FieldDate,
		SuggestedRegex: `bad[`,
	})
	require.NoError(t, err)

	ok, err := s.TransitionSuggestion(ctx, sg.ID, model.SuggestionPending, model.SuggestionGenerationFailed)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := s.ResetFailedSuggestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetSuggestion(ctx, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionPending, got.Status)
	assert.Zero(t, got.AttemptCount)
	assert.Nil(t, got.ReviewedAt)

	// Idempotent: nothing left to reset.
	n, err = s.ResetFailedSuggestions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_VenueRegistry(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	lat, lng := 14.5645, 121.0223
	v, err := s.UpsertVenue(ctx, model.KnownVenue{
		Name:    "SaGuijo",
		Aliases: []string{"Saguijo Cafe"},
		Address: "7612 Guijo St",
		City:    "Makati",
		Lat:     &lat,
		Lng:     &lng,
	})
	require.NoError(t, err)

	got, err := s.GetVenueByName(ctx, "saguijo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, []string{"Saguijo Cafe"}, got.Aliases)
	require.NotNil(t, got.Lat)
	assert.InDelta(t, 14.5645, *got.Lat, 1e-9)

	// Upsert with the same name updates in place.
	v2, err := s.UpsertVenue(ctx, model.KnownVenue{
		Name:    "SaGuijo",
		Aliases: []string{"Saguijo Cafe", "Saguijo Cafe + Bar"},
	})
	require.NoError(t, err)
	assert.Equal(t, v.ID, v2.ID)

	all, err := s.ListVenues(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Len(t, all[0].Aliases, 2)
}

func TestSQLiteStore_LocationCorrection_IdempotentIncrement(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := s.RecordLocationCorrection(ctx, model.LocationCorrection{
		OriginalName:       "Saguijo Caffe",
		CorrectedVenueName: "SaGuijo",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.CorrectionCount)
	assert.InDelta(t, 0.5, first.ConfidenceScore, 1e-9)

	second, err := s.RecordLocationCorrection(ctx, model.LocationCorrection{
		OriginalName:       "Saguijo Caffe",
		CorrectedVenueName: "SaGuijo",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "repeat observation reuses the row")
	assert.Equal(t, 2, second.CorrectionCount)
	assert.InDelta(t, 0.6, second.ConfidenceScore, 1e-9)

	all, err := s.ListLocationCorrections(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStore_Stats(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.CreatePattern(ctx, model.ExtractionPattern{
		FieldType: model.FieldTime, RegexSource: `\d+`, Confidence: 0.6,
		IsActive: true, Source: model.SourceDefault,
	})
	require.NoError(t, err)
	_, err = s.UpsertSuggestion(ctx, model.PatternSuggestion{
		FieldType: model.FieldTime, SuggestedRegex: `\d+ PM`,
	})
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ActivePatterns)
	assert.Zero(t, st.InactivePatterns)
	assert.Equal(t, 1, st.PendingSuggestions)
}
