// Package lifecycle orchestrates the suggestion queue and bulk pattern
// maintenance: intake, approval, auto-approval, rejection, retry, purging,
// and deactivation of chronically failing patterns.
package lifecycle

import (
	"context"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scenescout/extract-cli/internal/model"
	"github.com/scenescout/extract-cli/internal/store"
)

// AILearnedConfidence is the conservative starting confidence for a pattern
// created from an approved suggestion; it has no measured success ratio yet.
const AILearnedConfidence = 0.55

// ErrSuggestionNotPending is returned when an approval or rejection races a
// concurrent transition or targets an already-decided suggestion.
var ErrSuggestionNotPending = eris.New("lifecycle: suggestion is not pending")

// Store is the slice of the persistence layer the manager depends on.
type Store interface {
	CreatePattern(ctx context.Context, p model.ExtractionPattern) (*model.ExtractionPattern, error)
	DeactivateFailingPatterns(ctx context.Context, minAttempts, failureFactor int) (int, error)

	UpsertSuggestion(ctx context.Context, s model.PatternSuggestion) (*model.PatternSuggestion, error)
	GetSuggestion(ctx context.Context, id string) (*model.PatternSuggestion, error)
	ListSuggestions(ctx context.Context, filter store.SuggestionFilter) ([]model.PatternSuggestion, error)
	TransitionSuggestion(ctx context.Context, id string, from, to model.SuggestionStatus) (bool, error)
	ResetFailedSuggestions(ctx context.Context) (int, error)
	PurgeSuggestions(ctx context.Context, statuses []model.SuggestionStatus) (int, error)
}

// Manager runs suggestion intake and bulk maintenance.
type Manager struct {
	store Store
}

// NewManager creates a Manager over the given store.
func NewManager(s Store) *Manager {
	return &Manager{store: s}
}

// Enqueue adds an externally-proposed pattern to the queue. Re-proposing a
// regex already pending for the same field type increments its attempt
// count instead of creating a duplicate.
func (m *Manager) Enqueue(ctx context.Context, ft model.FieldType, regex, sampleText, expectedValue string) (*model.PatternSuggestion, error) {
	s := model.PatternSuggestion{
		FieldType:      ft,
		SuggestedRegex: regex,
		SampleText:     sampleText,
		ExpectedValue:  expectedValue,
		Status:         model.SuggestionPending,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return m.store.UpsertSuggestion(ctx, s)
}

// Approve validates a pending suggestion's regex and promotes it to an
// active pattern. regexOverride, when non-empty, replaces the suggested
// regex. An uncompilable regex fails the call before any status change, so
// the suggestion stays pending.
func (m *Manager) Approve(ctx context.Context, id, regexOverride string) (*model.ExtractionPattern, error) {
	s, err := m.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, eris.Errorf("lifecycle: suggestion not found: %s", id)
	}
	if s.Status != model.SuggestionPending {
		return nil, ErrSuggestionNotPending
	}

	source := s.SuggestedRegex
	if regexOverride != "" {
		source = regexOverride
	}
	if _, err := regexp.Compile(source); err != nil {
		return nil, eris.Wrapf(err, "lifecycle: suggestion %s regex does not compile", id)
	}

	// The guarded transition claims the suggestion; losing the race means
	// someone else decided it first.
	ok, err := m.store.TransitionSuggestion(ctx, id, model.SuggestionPending, model.SuggestionApproved)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSuggestionNotPending
	}

	p, err := m.store.CreatePattern(ctx, model.ExtractionPattern{
		FieldType:   s.FieldType,
		RegexSource: source,
		Description: "approved suggestion " + id,
		Confidence:  AILearnedConfidence,
		Priority:    model.PriorityAILearned,
		IsActive:    true,
		Source:      model.SourceAILearned,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "lifecycle: create pattern from suggestion %s", id)
	}

	zap.L().Info("approved suggestion",
		zap.String("suggestion_id", id),
		zap.String("pattern_id", p.ID),
		zap.String("field_type", string(s.FieldType)),
	)
	return p, nil
}

// Reject marks a pending suggestion rejected. No pattern is created.
func (m *Manager) Reject(ctx context.Context, id string) error {
	ok, err := m.store.TransitionSuggestion(ctx, id, model.SuggestionPending, model.SuggestionRejected)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSuggestionNotPending
	}
	return nil
}

// MarkGenerationFailed records that pattern generation for a pending
// suggestion failed; the suggestion can later re-enter the queue via
// RetryFailed.
func (m *Manager) MarkGenerationFailed(ctx context.Context, id string) error {
	ok, err := m.store.TransitionSuggestion(ctx, id, model.SuggestionPending, model.SuggestionGenerationFailed)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSuggestionNotPending
	}
	return nil
}

// RetryFailed re-enters every generation_failed suggestion as pending with
// a zeroed attempt count. Returns the number reset.
func (m *Manager) RetryFailed(ctx context.Context) (int, error) {
	return m.store.ResetFailedSuggestions(ctx)
}
