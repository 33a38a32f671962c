package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in      string
		want    FieldType
		wantErr bool
	}{
		{"time", FieldTime, false},
		{"date", FieldDate, false},
		{"venue", FieldVenue, false},
		{"price", FieldPrice, false},
		{"address", FieldAddress, false},
		{"signup_url", FieldSignupURL, false},
		{"free", FieldFree, false},
		{"", "", true},
		{"TIME", "", true},
		{"phone", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldTypeForName(t *testing.T) {
	ft, err := FieldTypeForName("event_time")
	require.NoError(t, err)
	assert.Equal(t, FieldTime, ft)

	ft, err = FieldTypeForName("venue_name")
	require.NoError(t, err)
	assert.Equal(t, FieldVenue, ft)

	// Exact type names pass through.
	ft, err = FieldTypeForName("price")
	require.NoError(t, err)
	assert.Equal(t, FieldPrice, ft)

	_, err = FieldTypeForName("caption")
	require.Error(t, err)
}

func TestExtractionPattern_Validate(t *testing.T) {
	valid := ExtractionPattern{
		FieldType:   FieldTime,
		RegexSource: `\d{1,2}:\d{2}\s?(?:AM|PM)`,
		Confidence:  0.8,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*ExtractionPattern)
	}{
		{"bad field type", func(p *ExtractionPattern) { p.FieldType = "hour" }},
		{"empty regex", func(p *ExtractionPattern) { p.RegexSource = "" }},
		{"uncompilable regex", func(p *ExtractionPattern) { p.RegexSource = `(\d{1,2}` }},
		{"confidence above 1", func(p *ExtractionPattern) { p.Confidence = 1.2 }},
		{"negative confidence", func(p *ExtractionPattern) { p.Confidence = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestCorrection_Validate(t *testing.T) {
	c := Correction{FieldName: "event_time", CorrectedValue: "8:00 PM"}
	require.NoError(t, c.Validate())

	c.CorrectedValue = ""
	assert.Error(t, c.Validate())

	c = Correction{FieldName: "bogus", CorrectedValue: "x"}
	assert.Error(t, c.Validate())
}

func TestGroundTruthEntry_Validate(t *testing.T) {
	g := GroundTruthEntry{FieldName: "event_date", CorrectValue: "Dec 12", SourceConfidence: 0.9}
	require.NoError(t, g.Validate())

	// Below the oracle confidence floor.
	g.SourceConfidence = 0.5
	assert.Error(t, g.Validate())
}
