/*
Package dietplan turns a patient request into a validated diet plan and runs the
narrower alternatives and meal timing flows.

Every flow gathers context on a best-effort basis, makes exactly one call to the
generation backend under a deadline, then checks the response against the
output contract before anything is returned. Lookup failures only reduce the
context; backend and contract failures end the call.
*/
package dietplan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AyurAhar_V1/internal/extractor"
	"AyurAhar_V1/internal/geminiservice"
	"AyurAhar_V1/internal/metrics"
	"AyurAhar_V1/internal/nutrition"
	"AyurAhar_V1/internal/policy"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	taskDietPlan     = "diet_plan"
	taskAlternatives = "alternatives"
	taskMealTiming   = "meal_timing"
)

// Options bound the generation context and the backend call.
type Options struct {
	MaxNutritionRecords int
	MaxPolicyExcerpts   int
	MaxAlternatives     int
	// Timeout bounds each backend call.
	Timeout time.Duration
	// ReportUnmatchedFoods adds a warning naming menu items with no reference
	// data. When false they are dropped silently.
	ReportUnmatchedFoods bool
}

// DefaultOptions match the service defaults.
func DefaultOptions() Options {
	return Options{
		MaxNutritionRecords: 15,
		MaxPolicyExcerpts:   5,
		MaxAlternatives:     5,
		Timeout:             45 * time.Second,
	}
}

// Synthesizer runs the generation flows. It holds no per-call state and is safe
// for concurrent use.
type Synthesizer struct {
	store    nutrition.Store
	policies *policy.Selector
	backend  geminiservice.Backend
	opts     Options
}

// NewSynthesizer wires the collaborators. store and policies may be nil, in
// which case plans are generated without that context.
func NewSynthesizer(store nutrition.Store, policies *policy.Selector, backend geminiservice.Backend, opts Options) *Synthesizer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxAlternatives <= 0 {
		opts.MaxAlternatives = DefaultOptions().MaxAlternatives
	}
	return &Synthesizer{store: store, policies: policies, backend: backend, opts: opts}
}

// Generate produces a diet plan for req.
func (s *Synthesizer) Generate(ctx context.Context, req Request) (result *Result, err error) {
	start := time.Now()
	defer func() { observe(taskDietPlan, start, err) }()

	logger := log.Ctx(ctx).With().Str("task", taskDietPlan).Logger()

	var (
		records   []nutrition.Record
		unmatched []string
		excerpts  []policy.Excerpt
	)

	// Nutrition lookups and policy selection are independent. Neither returns
	// an error to the group: a failure leaves its part of the context empty.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, unmatched = s.lookupMenu(gctx, req.MessMenu)
		return nil
	})
	g.Go(func() error {
		excerpts = s.selectPolicies(req)
		return nil
	})
	_ = g.Wait()

	logger.Debug().
		Int("nutrition_records", len(records)).
		Int("unmatched_foods", len(unmatched)).
		Int("policy_excerpts", len(excerpts)).
		Msg("Generation context assembled")

	raw, err := s.call(ctx, geminiservice.Request{
		Task:         taskDietPlan,
		SystemPrompt: geminiservice.DietPlanSystemPrompt,
		Template:     geminiservice.DietPlanPromptTemplate,
		Context:      buildPlanContext(req, records, excerpts),
		Schema:       geminiservice.DietPlanSchema,
	})
	if err != nil {
		return nil, err
	}

	result, err = parseDietPlan(raw)
	if err != nil {
		logViolation(ctx, err)
		return nil, err
	}

	if s.opts.ReportUnmatchedFoods && len(unmatched) > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("No reference nutrition data found for: %s", strings.Join(unmatched, ", ")))
	}
	result.NutritionalData = records
	result.PolicyCompliance = s.compliance(excerpts)
	return result, nil
}

// lookupMenu resolves menu items against the store. The first match for each
// name is used, records are unique by code and the list stops at the cap.
func (s *Synthesizer) lookupMenu(ctx context.Context, menu string) ([]nutrition.Record, []string) {
	records := []nutrition.Record{}
	var unmatched []string
	if s.store == nil || s.opts.MaxNutritionRecords <= 0 {
		return records, nil
	}

	seen := make(map[string]bool)
	for _, name := range extractor.Extract(menu) {
		if len(records) >= s.opts.MaxNutritionRecords {
			break
		}
		matches, err := s.store.FindByName(ctx, name)
		if err != nil {
			metrics.NutritionLookups.WithLabelValues("error").Inc()
			log.Ctx(ctx).Warn().Err(err).Str("food", name).Msg("Nutrition lookup failed, continuing without reference data")
			return records, unmatched
		}
		if len(matches) == 0 {
			metrics.NutritionLookups.WithLabelValues("miss").Inc()
			unmatched = append(unmatched, name)
			continue
		}
		metrics.NutritionLookups.WithLabelValues("hit").Inc()
		if first := matches[0]; !seen[first.Code] {
			seen[first.Code] = true
			records = append(records, first)
		}
	}
	return records, unmatched
}

func (s *Synthesizer) selectPolicies(req Request) []policy.Excerpt {
	if s.policies == nil || s.opts.MaxPolicyExcerpts <= 0 {
		return []policy.Excerpt{}
	}

	q := policy.Query{
		Profile:    req.Profile.policyText(),
		Vitals:     req.Vitals.policyText(),
		Principles: req.AyurvedicPrinciples,
		Extra:      []string{req.Environment},
	}
	if req.Dosha != nil {
		q.Extra = append(q.Extra, req.Dosha.Summary())
	}

	excerpts := s.policies.RelevantPolicies(q)
	if len(excerpts) > s.opts.MaxPolicyExcerpts {
		excerpts = excerpts[:s.opts.MaxPolicyExcerpts]
	}
	return excerpts
}

func (s *Synthesizer) compliance(excerpts []policy.Excerpt) *PolicyCompliance {
	pc := &PolicyCompliance{Consulted: make([]PolicyRef, 0, len(excerpts))}
	for _, e := range excerpts {
		pc.Consulted = append(pc.Consulted, PolicyRef{ID: e.ID, Topic: e.Topic})
	}
	if len(excerpts) == 0 {
		pc.Note = "No specific dietary guideline applied to this request"
	} else {
		pc.Note = fmt.Sprintf("Plan generated against %d dietary guideline excerpt(s)", len(excerpts))
		if s.policies != nil {
			pc.Note += fmt.Sprintf(" from corpus version %d", s.policies.Version())
		}
	}
	return pc
}

// call invokes the backend once under the configured deadline.
func (s *Synthesizer) call(ctx context.Context, req geminiservice.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	raw, err := s.backend.Generate(callCtx, req)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("task", req.Task).Msg("Generation backend call failed")
		return "", &BackendError{Task: req.Task, Err: err}
	}
	return raw, nil
}

func buildPlanContext(req Request, records []nutrition.Record, excerpts []policy.Excerpt) map[string]string {
	doshaText := "Not assessed"
	if req.Dosha != nil {
		doshaText = req.Dosha.Summary()
		if len(req.Dosha.Recommendations) > 0 {
			doshaText += "\nAdvice: " + strings.Join(req.Dosha.Recommendations, "; ")
		}
	}

	return map[string]string{
		"profile":              req.Profile.Describe(),
		"vitals":               req.Vitals.Describe(),
		"dosha":                doshaText,
		"environment":          orDefault(req.Environment, "Not provided"),
		"mess_menu":            orDefault(req.MessMenu, "No menu provided"),
		"nutrition_data":       formatRecordsForAI(records),
		"policy_excerpts":      formatExcerptsForAI(excerpts),
		"ayurvedic_principles": orDefault(req.AyurvedicPrinciples, "General Ayurvedic dietetics"),
	}
}

func formatExcerptsForAI(excerpts []policy.Excerpt) string {
	if len(excerpts) == 0 {
		return "No specific guidelines apply"
	}
	var builder strings.Builder
	for _, e := range excerpts {
		builder.WriteString(fmt.Sprintf("[%s] %s: %s\n", e.ID, e.Topic, strings.TrimSpace(e.Text)))
	}
	return strings.TrimRight(builder.String(), "\n")
}

func logViolation(ctx context.Context, err error) {
	var cv *ContractViolationError
	if errors.As(err, &cv) {
		log.Ctx(ctx).Error().
			Str("task", cv.Task).
			Str("reason", cv.Reason).
			Str("raw_response", cv.Raw).
			Msg("Generation response violated the output contract")
	}
}

func observe(task string, start time.Time, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, ErrGenerationBackend):
		outcome = metrics.OutcomeBackendError
	case errors.Is(err, ErrGenerationContractViolation):
		outcome = metrics.OutcomeContractViolation
	case errors.Is(err, ErrNoAlternativesFound):
		outcome = metrics.OutcomeEmpty
	default:
		outcome = metrics.OutcomeInvalidInput
	}
	metrics.GenerationRequests.WithLabelValues(task, outcome).Inc()
	metrics.GenerationDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())
}
