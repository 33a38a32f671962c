package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Correction is an immutable human-edited field value. Corrections are the
// primary training signal for pattern learning and are never updated or
// deleted once written.
type Correction struct {
	ID             string    `json:"id"`
	PostRef        string    `json:"post_ref,omitempty"`
	FieldName      string    `json:"field_name"`
	OriginalValue  string    `json:"original_extracted_value,omitempty"`
	CorrectedValue string    `json:"corrected_value"`
	RawSourceText  string    `json:"raw_source_text,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate enforces the write-side invariants: a resolvable field name and a
// non-empty corrected value.
func (c *Correction) Validate() error {
	if _, err := FieldTypeForName(c.FieldName); err != nil {
		return err
	}
	if c.CorrectedValue == "" {
		return eris.New("model: corrected value is empty")
	}
	return nil
}

// GroundTruthEntry is an oracle-verified field value, trusted above an
// ordinary correction. Entries are only persisted when the oracle's own
// confidence meets GroundTruthMinConfidence.
type GroundTruthEntry struct {
	ID               string    `json:"id"`
	PostRef          string    `json:"post_ref,omitempty"`
	FieldName        string    `json:"field_name"`
	RawText          string    `json:"raw_text"`
	CorrectValue     string    `json:"correct_value"`
	SourceConfidence float64   `json:"source_confidence,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// GroundTruthMinConfidence is the oracle confidence floor below which an
// extraction is not trusted as ground truth.
const GroundTruthMinConfidence = 0.7

// Validate enforces the intake invariants for ground truth.
func (g *GroundTruthEntry) Validate() error {
	if _, err := FieldTypeForName(g.FieldName); err != nil {
		return err
	}
	if g.CorrectValue == "" {
		return eris.New("model: ground truth value is empty")
	}
	if g.SourceConfidence < GroundTruthMinConfidence {
		return eris.Errorf("model: ground truth confidence %.2f below %.2f floor",
			g.SourceConfidence, GroundTruthMinConfidence)
	}
	return nil
}
