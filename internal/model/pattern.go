package model

import (
	"regexp"
	"time"

	"github.com/rotisserie/eris"
)

// FieldType identifies which event field a pattern extracts.
type FieldType string

const (
	FieldTime      FieldType = "time"
	FieldDate      FieldType = "date"
	FieldVenue     FieldType = "venue"
	FieldPrice     FieldType = "price"
	FieldAddress   FieldType = "address"
	FieldSignupURL FieldType = "signup_url"
	FieldFree      FieldType = "free"
)

// PatternSource records how a pattern entered the store.
type PatternSource string

const (
	SourceDefault   PatternSource = "default"
	SourceLearned   PatternSource = "learned"
	SourceManual    PatternSource = "manual"
	SourceAILearned PatternSource = "ai_learned"
)

// Default priorities by source. Learned patterns sit above AI-approved ones
// so a replay-validated pattern always wins a priority tie against an
// auto-approved suggestion of equal confidence.
const (
	PriorityDefault   = 100
	PriorityManual    = 50
	PriorityLearned   = 10
	PriorityAILearned = 5
)

// ExtractionPattern is a confidence-scored regex bound to one field type.
type ExtractionPattern struct {
	ID           string        `json:"id"`
	FieldType    FieldType     `json:"field_type"`
	RegexSource  string        `json:"regex_source"`
	Description  string        `json:"description,omitempty"`
	Confidence   float64       `json:"confidence"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Priority     int           `json:"priority"`
	IsActive     bool          `json:"is_active"`
	Source       PatternSource `json:"source"`
	LastUsedAt   *time.Time    `json:"last_used_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Validate checks the pattern is persistable: known field type, a regex
// that compiles, and confidence inside [0,1]. An uncompilable pattern is
// never persisted as active.
func (p *ExtractionPattern) Validate() error {
	if _, err := ParseFieldType(string(p.FieldType)); err != nil {
		return err
	}
	if p.RegexSource == "" {
		return eris.New("model: pattern regex is empty")
	}
	if _, err := regexp.Compile(p.RegexSource); err != nil {
		return eris.Wrapf(err, "model: pattern %q does not compile", p.RegexSource)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return eris.Errorf("model: pattern confidence %v outside [0,1]", p.Confidence)
	}
	return nil
}

// AllFieldTypes returns every extractable field type, in a stable order.
func AllFieldTypes() []FieldType {
	return []FieldType{
		FieldTime, FieldDate, FieldVenue, FieldPrice,
		FieldAddress, FieldSignupURL, FieldFree,
	}
}

// ParseFieldType validates a field type at the boundary. Unknown values are
// rejected rather than silently stored.
func ParseFieldType(s string) (FieldType, error) {
	switch ft := FieldType(s); ft {
	case FieldTime, FieldDate, FieldVenue, FieldPrice, FieldAddress, FieldSignupURL, FieldFree:
		return ft, nil
	default:
		return "", eris.Errorf("model: unknown field type %q", s)
	}
}

// fieldNames maps correction field names to the pattern field type domain.
var fieldNames = map[string]FieldType{
	"event_time":     FieldTime,
	"start_time":     FieldTime,
	"event_date":     FieldDate,
	"venue_name":     FieldVenue,
	"location_name":  FieldVenue,
	"price":          FieldPrice,
	"street_address": FieldAddress,
	"signup_url":     FieldSignupURL,
	"is_free":        FieldFree,
}

// FieldTypeForName resolves a correction field name (e.g. "event_time") to
// its pattern field type. Exact type names are accepted as-is.
func FieldTypeForName(name string) (FieldType, error) {
	if ft, ok := fieldNames[name]; ok {
		return ft, nil
	}
	return ParseFieldType(name)
}
