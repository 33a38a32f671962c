package store

import (
	"context"

	"github.com/scenescout/extract-cli/internal/model"
)

// PatternFilter specifies criteria for listing patterns.
type PatternFilter struct {
	FieldType  model.FieldType     `json:"field_type,omitempty"`
	Source     model.PatternSource `json:"source,omitempty"`
	OnlyActive bool                `json:"only_active,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
}

// SuggestionFilter specifies criteria for listing suggestions.
type SuggestionFilter struct {
	Status      model.SuggestionStatus `json:"status,omitempty"`
	FieldTypes  []model.FieldType      `json:"field_types,omitempty"`
	MinAttempts int                    `json:"min_attempts,omitempty"`
	Limit       int                    `json:"limit,omitempty"`
}

// Stats summarizes engine state for the status command.
type Stats struct {
	ActivePatterns     int `json:"active_patterns"`
	InactivePatterns   int `json:"inactive_patterns"`
	Corrections        int `json:"corrections"`
	GroundTruthEntries int `json:"ground_truth_entries"`
	PendingSuggestions int `json:"pending_suggestions"`
	KnownVenues        int `json:"known_venues"`
}

// Store is the persistence interface for the extraction-pattern engine.
// Single-row lookups return (nil, nil) when no row matches; bulk operations
// return the number of rows actually changed and are idempotent.
type Store interface {
	// Patterns
	CreatePattern(ctx context.Context, p model.ExtractionPattern) (*model.ExtractionPattern, error)
	GetPattern(ctx context.Context, id string) (*model.ExtractionPattern, error)
	ListPatterns(ctx context.Context, filter PatternFilter) ([]model.ExtractionPattern, error)
	// ActivePatterns returns active patterns of one field type with
	// confidence >= minConfidence, ordered by (priority DESC, confidence
	// DESC), capped at limit.
	ActivePatterns(ctx context.Context, ft model.FieldType, minConfidence float64, limit int) ([]model.ExtractionPattern, error)
	// RecordPatternHit and RecordPatternMiss are atomic in-database
	// increments so concurrent extraction calls never lose updates.
	RecordPatternHit(ctx context.Context, id string) error
	RecordPatternMiss(ctx context.Context, id string) error
	SetPatternActive(ctx context.Context, id string, active bool) error
	// DeactivateFailingPatterns deactivates active patterns with more than
	// minAttempts total attempts and failures exceeding successes times
	// failureFactor. Returns the number of patterns deactivated.
	DeactivateFailingPatterns(ctx context.Context, minAttempts, failureFactor int) (int, error)

	// Corrections and ground truth
	CreateCorrection(ctx context.Context, c model.Correction) (*model.Correction, error)
	ListCorrections(ctx context.Context, fieldName string, limit int) ([]model.Correction, error)
	// FieldsWithCorrections returns field names having at least min corrections.
	FieldsWithCorrections(ctx context.Context, min int) ([]string, error)
	CreateGroundTruth(ctx context.Context, g model.GroundTruthEntry) (*model.GroundTruthEntry, error)
	ListGroundTruth(ctx context.Context, fieldName string, limit int) ([]model.GroundTruthEntry, error)

	// Suggestions
	// UpsertSuggestion inserts a pending suggestion, or increments
	// attempt_count when an identical pending (field_type, regex) pair
	// already exists.
	UpsertSuggestion(ctx context.Context, s model.PatternSuggestion) (*model.PatternSuggestion, error)
	GetSuggestion(ctx context.Context, id string) (*model.PatternSuggestion, error)
	ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]model.PatternSuggestion, error)
	// TransitionSuggestion moves a suggestion from one status to another,
	// guarded so a concurrent transition cannot be overwritten. Returns
	// false when the row was not in the expected from status.
	TransitionSuggestion(ctx context.Context, id string, from, to model.SuggestionStatus) (bool, error)
	// ResetFailedSuggestions re-enters generation_failed suggestions as
	// pending with attempt_count zeroed. Returns the number reset.
	ResetFailedSuggestions(ctx context.Context) (int, error)
	// PurgeSuggestions deletes suggestions in the given terminal statuses.
	// Approved suggestions are never purged regardless of the argument.
	PurgeSuggestions(ctx context.Context, statuses []model.SuggestionStatus) (int, error)

	// Venue registry
	UpsertVenue(ctx context.Context, v model.KnownVenue) (*model.KnownVenue, error)
	// ImportVenues bulk-upserts registry entries, updating on name conflict
	// so re-running the same import never duplicates. Returns the number of
	// rows written.
	ImportVenues(ctx context.Context, venues []model.KnownVenue) (int, error)
	GetVenueByName(ctx context.Context, name string) (*model.KnownVenue, error)
	ListVenues(ctx context.Context) ([]model.KnownVenue, error)
	// RecordLocationCorrection accumulates evidence for a free-text to
	// canonical venue mapping, incrementing correction_count on repeat
	// observation instead of inserting a duplicate.
	RecordLocationCorrection(ctx context.Context, lc model.LocationCorrection) (*model.LocationCorrection, error)
	ListLocationCorrections(ctx context.Context) ([]model.LocationCorrection, error)

	// Lifecycle
	Stats(ctx context.Context) (*Stats, error)
	Migrate(ctx context.Context) error
	Close() error
}
