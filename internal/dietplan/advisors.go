package dietplan

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"AyurAhar_V1/internal/dosha"
	"AyurAhar_V1/internal/geminiservice"
	"AyurAhar_V1/internal/nutrition"
	"github.com/rs/zerolog/log"
)

// ErrMissingFood is returned when SuggestAlternatives is called without a food name.
var ErrMissingFood = errors.New("food name is required")

// SuggestAlternatives asks for substitutes of foodName that address reason. It
// returns ErrNoAlternativesFound when the backend answers with an empty list.
func (s *Synthesizer) SuggestAlternatives(ctx context.Context, foodName, reason string) (alts []Alternative, err error) {
	start := time.Now()
	defer func() { observe(taskAlternatives, start, err) }()

	foodName = strings.TrimSpace(foodName)
	if foodName == "" {
		return nil, ErrMissingFood
	}

	raw, err := s.call(ctx, geminiservice.Request{
		Task:         taskAlternatives,
		SystemPrompt: geminiservice.AlternativesSystemPrompt,
		Template:     geminiservice.AlternativesPromptTemplate,
		Context: map[string]string{
			"food_name":        foodName,
			"nutrient_profile": s.nutrientProfile(ctx, foodName),
			"reason":           orDefault(reason, "General dietary suitability"),
			"max_alternatives": strconv.Itoa(s.opts.MaxAlternatives),
		},
		Schema: geminiservice.AlternativesSchema,
	})
	if err != nil {
		return nil, err
	}

	alts, err = parseAlternatives(raw)
	if err != nil {
		logViolation(ctx, err)
		return nil, err
	}
	if len(alts) == 0 {
		return nil, ErrNoAlternativesFound
	}
	if len(alts) > s.opts.MaxAlternatives {
		alts = alts[:s.opts.MaxAlternatives]
	}
	return alts, nil
}

// nutrientProfile describes the reference values of the best store match for
// foodName, or says that none are available.
func (s *Synthesizer) nutrientProfile(ctx context.Context, foodName string) string {
	const unknown = "No reference nutrition data available for this food"
	if s.store == nil {
		return unknown
	}

	matches, err := s.store.FindByName(ctx, foodName)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("food", foodName).Msg("Nutrition lookup failed, continuing without reference data")
		return unknown
	}
	if len(matches) == 0 {
		return unknown
	}
	r := matches[0]
	return fmt.Sprintf("%s [%s]: %s", r.Name, r.Code, nutrition.FormatNutrients(r))
}

// GenerateMealTimings builds a daily schedule for doshaType. The dosha name is
// checked before the backend is contacted.
func (s *Synthesizer) GenerateMealTimings(ctx context.Context, doshaType, dailyRoutine string) (schedule *MealTimingSchedule, err error) {
	start := time.Now()
	defer func() { observe(taskMealTiming, start, err) }()

	t, err := dosha.ParseType(doshaType)
	if err != nil {
		return nil, err
	}

	raw, err := s.call(ctx, geminiservice.Request{
		Task:         taskMealTiming,
		SystemPrompt: geminiservice.MealTimingSystemPrompt,
		Template:     geminiservice.MealTimingPromptTemplate,
		Context: map[string]string{
			"dosha_type":    string(t),
			"daily_routine": orDefault(dailyRoutine, "Not specified"),
		},
		Schema: geminiservice.MealTimingSchema,
	})
	if err != nil {
		return nil, err
	}

	schedule, err = parseMealTimings(raw)
	if err != nil {
		logViolation(ctx, err)
		return nil, err
	}
	return schedule, nil
}
