package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// SuggestionStatus is the lifecycle state of an externally-proposed pattern.
type SuggestionStatus string

const (
	SuggestionPending          SuggestionStatus = "pending"
	SuggestionApproved         SuggestionStatus = "approved"
	SuggestionRejected         SuggestionStatus = "rejected"
	SuggestionNotApplicable    SuggestionStatus = "not_applicable"
	SuggestionGenerationFailed SuggestionStatus = "generation_failed"
)

// Terminal reports whether a status ends the suggestion's lifecycle.
// generation_failed is re-enterable via retry and is not terminal.
func (s SuggestionStatus) Terminal() bool {
	switch s {
	case SuggestionApproved, SuggestionRejected, SuggestionNotApplicable:
		return true
	}
	return false
}

// CanTransition reports whether a status change is legal. Only pending
// suggestions move to a decision state; retry is the one path back out of
// generation_failed.
func (s SuggestionStatus) CanTransition(to SuggestionStatus) bool {
	switch s {
	case SuggestionPending:
		return to == SuggestionApproved || to == SuggestionRejected ||
			to == SuggestionNotApplicable || to == SuggestionGenerationFailed
	case SuggestionGenerationFailed:
		return to == SuggestionPending
	}
	return false
}

// PatternSuggestion is an unvalidated candidate pattern proposed by the AI
// oracle, linked to the sample that motivated it.
type PatternSuggestion struct {
	ID             string           `json:"id"`
	FieldType      FieldType        `json:"field_type"`
	SuggestedRegex string           `json:"suggested_regex"`
	SampleText     string           `json:"sample_text,omitempty"`
	ExpectedValue  string           `json:"expected_value,omitempty"`
	Status         SuggestionStatus `json:"status"`
	AttemptCount   int              `json:"attempt_count"`
	ReviewedAt     *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Validate checks intake invariants. The regex is not required to compile
// at enqueue time; compilation is enforced at approval.
func (p *PatternSuggestion) Validate() error {
	if _, err := ParseFieldType(string(p.FieldType)); err != nil {
		return err
	}
	if p.SuggestedRegex == "" {
		return eris.New("model: suggested regex is empty")
	}
	return nil
}

// RegexAmenable reports whether a field type is a sensible target for regex
// suggestions. Venue and address values are proper nouns and are routed to
// the fuzzy resolver instead; suggestions for them are marked not_applicable.
func (t FieldType) RegexAmenable() bool {
	return t != FieldVenue && t != FieldAddress
}

// AutoApprovable reports whether a field type participates in bulk
// auto-approval of high-frequency suggestions.
func (t FieldType) AutoApprovable() bool {
	switch t {
	case FieldDate, FieldTime, FieldPrice:
		return true
	}
	return false
}
