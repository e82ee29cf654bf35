package dietplan

import (
	"context"
	"testing"

	"AyurAhar_V1/internal/dosha"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestAlternatives(t *testing.T) {
	backend := &fakeBackend{response: `{"alternatives":[
		{"name":"Foxtail millet","reason":"Lower glycaemic load","ayurvedic_benefit":"Light and drying, pacifies Kapha"},
		{"name":"Broken wheat","reason":"More fibre","ayurvedic_benefit":"Grounding for Vata"}
	]}`}
	s := newTestSynthesizer(t, testStore(), backend, DefaultOptions())

	alts, err := s.SuggestAlternatives(context.Background(), "rice", "diabetes")
	require.NoError(t, err)
	require.Len(t, alts, 2)
	assert.Equal(t, "Foxtail millet", alts[0].Name)

	req := backend.last()
	assert.Equal(t, taskAlternatives, req.Task)
	assert.Equal(t, "Rice, raw, milled [A001]: energy_kcal 356.0, protein_g 7.9", req.Context["nutrient_profile"])
	assert.Equal(t, "diabetes", req.Context["reason"])
	assert.Equal(t, "5", req.Context["max_alternatives"])
}

func TestSuggestAlternatives_UnknownFoodStillAsks(t *testing.T) {
	backend := &fakeBackend{response: `{"alternatives":[{"name":"a","reason":"b","ayurvedic_benefit":"c"}]}`}
	s := newTestSynthesizer(t, testStore(), backend, DefaultOptions())

	_, err := s.SuggestAlternatives(context.Background(), "quinoa", "")
	require.NoError(t, err)
	assert.Equal(t, "No reference nutrition data available for this food", backend.last().Context["nutrient_profile"])
	assert.Equal(t, "General dietary suitability", backend.last().Context["reason"])
}

func TestSuggestAlternatives_Truncates(t *testing.T) {
	backend := &fakeBackend{response: `{"alternatives":[
		{"name":"a","reason":"r","ayurvedic_benefit":"b"},
		{"name":"b","reason":"r","ayurvedic_benefit":"b"},
		{"name":"c","reason":"r","ayurvedic_benefit":"b"}
	]}`}
	opts := DefaultOptions()
	opts.MaxAlternatives = 2
	s := newTestSynthesizer(t, testStore(), backend, opts)

	alts, err := s.SuggestAlternatives(context.Background(), "rice", "acidity")
	require.NoError(t, err)
	assert.Len(t, alts, 2)
}

func TestSuggestAlternatives_Empty(t *testing.T) {
	s := newTestSynthesizer(t, testStore(), &fakeBackend{response: `{"alternatives":[]}`}, DefaultOptions())

	alts, err := s.SuggestAlternatives(context.Background(), "rice", "acidity")
	assert.Nil(t, alts)
	assert.ErrorIs(t, err, ErrNoAlternativesFound)
	assert.NotErrorIs(t, err, ErrGenerationContractViolation)
}

func TestSuggestAlternatives_Malformed(t *testing.T) {
	for _, resp := range []string{
		`{"alternatives":[{"name":"a","reason":"","ayurvedic_benefit":"c"}]}`,
		`{"alternatives":"none"}`,
		`{}`,
	} {
		s := newTestSynthesizer(t, testStore(), &fakeBackend{response: resp}, DefaultOptions())
		_, err := s.SuggestAlternatives(context.Background(), "rice", "acidity")
		assert.ErrorIs(t, err, ErrGenerationContractViolation, resp)
	}
}

func TestSuggestAlternatives_RequiresFood(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSynthesizer(t, testStore(), backend, DefaultOptions())

	_, err := s.SuggestAlternatives(context.Background(), "  ", "acidity")
	assert.ErrorIs(t, err, ErrMissingFood)
	assert.Zero(t, backend.calls())
}

func TestGenerateMealTimings(t *testing.T) {
	backend := &fakeBackend{response: `{"schedule":[
		{"meal":"Breakfast","time":"7:30","notes":"Warm and light"},
		{"meal":"Lunch","time":"12:30"}
	],"rationale":"Largest meal at midday when agni is strongest."}`}
	s := newTestSynthesizer(t, testStore(), backend, DefaultOptions())

	sched, err := s.GenerateMealTimings(context.Background(), "pitta", "wake 6am, office 9-5")
	require.NoError(t, err)
	require.Len(t, sched.Entries, 2)
	assert.Equal(t, MealTiming{Meal: "Breakfast", Time: "7:30", Notes: "Warm and light"}, sched.Entries[0])
	assert.NotEmpty(t, sched.Rationale)

	assert.Equal(t, "Pitta", backend.last().Context["dosha_type"])
	assert.Equal(t, "wake 6am, office 9-5", backend.last().Context["daily_routine"])
}

func TestGenerateMealTimings_InvalidDosha(t *testing.T) {
	backend := &fakeBackend{response: `{"schedule":[{"meal":"x","time":"08:00"}],"rationale":"r"}`}
	s := newTestSynthesizer(t, testStore(), backend, DefaultOptions())

	_, err := s.GenerateMealTimings(context.Background(), "Invalid", "morning routine")
	assert.ErrorIs(t, err, dosha.ErrInvalidDoshaType)
	assert.Zero(t, backend.calls())
}

func TestGenerateMealTimings_ContractViolations(t *testing.T) {
	for _, resp := range []string{
		`{"schedule":[],"rationale":"r"}`,
		`{"schedule":[{"meal":"Lunch","time":"noon"}],"rationale":"r"}`,
		`{"schedule":[{"meal":"Lunch","time":"25:00"}],"rationale":"r"}`,
		`{"schedule":[{"meal":"","time":"12:00"}],"rationale":"r"}`,
		`{"schedule":[{"meal":"Lunch","time":"12:00"}],"rationale":""}`,
		`{"schedule":[{"meal":"Lunch","time":"12:00"}]}`,
	} {
		s := newTestSynthesizer(t, testStore(), &fakeBackend{response: resp}, DefaultOptions())
		_, err := s.GenerateMealTimings(context.Background(), "Vata", "")
		assert.ErrorIs(t, err, ErrGenerationContractViolation, resp)
	}
}
