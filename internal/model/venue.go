package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// KnownVenue is a canonical registry entry. Name is the canonical identity;
// aliases never duplicate each other or the name (case-insensitive).
type KnownVenue struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Address string   `json:"address,omitempty"`
	City    string   `json:"city,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// Validate enforces the alias uniqueness invariant.
func (v *KnownVenue) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return eris.New("model: venue name is empty")
	}
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(v.Name)): true}
	for _, a := range v.Aliases {
		key := strings.ToLower(strings.TrimSpace(a))
		if key == "" {
			return eris.Errorf("model: venue %q has an empty alias", v.Name)
		}
		if seen[key] {
			return eris.Errorf("model: venue %q has duplicate alias %q", v.Name, a)
		}
		seen[key] = true
	}
	return nil
}

// AddAlias appends an alias unless it already duplicates the canonical name
// or an existing alias. Reports whether the alias was added.
func (v *KnownVenue) AddAlias(alias string) bool {
	alias = strings.TrimSpace(alias)
	if alias == "" || strings.EqualFold(alias, v.Name) {
		return false
	}
	for _, a := range v.Aliases {
		if strings.EqualFold(a, alias) {
			return false
		}
	}
	v.Aliases = append(v.Aliases, alias)
	return true
}

// LocationCorrection accumulates evidence that one free-text venue spelling
// maps to one canonical venue. Repeat observations increment CorrectionCount
// idempotently instead of creating duplicate rows.
type LocationCorrection struct {
	ID                  string   `json:"id"`
	OriginalName        string   `json:"original_name,omitempty"`
	OriginalAddress     string   `json:"original_address,omitempty"`
	CorrectedVenueName  string   `json:"corrected_venue_name"`
	CorrectedStreetAddr string   `json:"corrected_street_address,omitempty"`
	Lat                 *float64 `json:"lat,omitempty"`
	Lng                 *float64 `json:"lng,omitempty"`
	CorrectionCount     int      `json:"correction_count"`
	ConfidenceScore     float64  `json:"confidence_score"`
}

// Validate enforces the evidence invariants.
func (lc *LocationCorrection) Validate() error {
	if strings.TrimSpace(lc.CorrectedVenueName) == "" {
		return eris.New("model: corrected venue name is empty")
	}
	if lc.OriginalName == "" && lc.OriginalAddress == "" {
		return eris.New("model: location correction needs an original name or address")
	}
	if lc.ConfidenceScore < 0 || lc.ConfidenceScore > 1 {
		return eris.Errorf("model: confidence score %v outside [0,1]", lc.ConfidenceScore)
	}
	return nil
}
