package model

// ExtractionMethod records how a field value was produced.
type ExtractionMethod string

const (
	MethodPattern ExtractionMethod = "pattern"
	MethodFuzzy   ExtractionMethod = "fuzzy"
)

// Extraction is a single extracted field value with provenance. A nil
// *Extraction from the matcher means the field is absent from the text,
// which is a normal negative result and never an error.
type Extraction struct {
	FieldType  FieldType        `json:"field_type"`
	Value      string           `json:"value"`
	PatternID  string           `json:"pattern_id,omitempty"`
	Method     ExtractionMethod `json:"method"`
	Confidence float64          `json:"confidence"`
}

// VenueMatch is one ranked candidate from the fuzzy venue resolver.
type VenueMatch struct {
	Venue           KnownVenue `json:"venue"`
	Similarity      float64    `json:"similarity"`
	MatchedText     string     `json:"matched_text"`
	ConfidenceScore float64    `json:"confidence_score"`
	CorrectionCount int        `json:"correction_count"`
}
