package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestionStatus_Terminal(t *testing.T) {
	assert.True(t, SuggestionApproved.Terminal())
	assert.True(t, SuggestionRejected.Terminal())
	assert.True(t, SuggestionNotApplicable.Terminal())
	assert.False(t, SuggestionPending.Terminal())
	assert.False(t, SuggestionGenerationFailed.Terminal())
}

func TestSuggestionStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from SuggestionStatus
		to   SuggestionStatus
		ok   bool
	}{
		{SuggestionPending, SuggestionApproved, true},
		{SuggestionPending, SuggestionRejected, true},
		{SuggestionPending, SuggestionNotApplicable, true},
		{SuggestionPending, SuggestionGenerationFailed, true},
		{SuggestionGenerationFailed, SuggestionPending, true},
		{SuggestionGenerationFailed, SuggestionApproved, false},
		{SuggestionApproved, SuggestionRejected, false},
		{SuggestionRejected, SuggestionPending, false},
		{SuggestionNotApplicable, SuggestionPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestFieldType_RegexAmenable(t *testing.T) {
	assert.True(t, FieldTime.RegexAmenable())
	assert.True(t, FieldPrice.RegexAmenable())
	assert.False(t, FieldVenue.RegexAmenable())
	assert.False(t, FieldAddress.RegexAmenable())
}

func TestFieldType_AutoApprovable(t *testing.T) {
	assert.True(t, FieldDate.AutoApprovable())
	assert.True(t, FieldTime.AutoApprovable())
	assert.True(t, FieldPrice.AutoApprovable())
	assert.False(t, FieldVenue.AutoApprovable())
	assert.False(t, FieldAddress.AutoApprovable())
	assert.False(t, FieldSignupURL.AutoApprovable())
}

func TestKnownVenue_AddAlias(t *testing.T) {
	v := KnownVenue{Name: "SaGuijo", Aliases: []string{"Saguijo Cafe"}}

	assert.False(t, v.AddAlias("saguijo"), "canonical name is not an alias")
	assert.False(t, v.AddAlias("SAGUIJO CAFE"), "case-insensitive duplicate")
	assert.False(t, v.AddAlias("  "))
	assert.True(t, v.AddAlias("Saguijo Cafe + Bar"))
	assert.Len(t, v.Aliases, 2)
	assert.NoError(t, v.Validate())
}

func TestKnownVenue_Validate_DuplicateAlias(t *testing.T) {
	v := KnownVenue{Name: "Route 196", Aliases: []string{"route 196", "Route196"}}
	assert.Error(t, v.Validate(), "alias duplicating canonical name")
}
