package dietplan

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"AyurAhar_V1/internal/dosha"
	"AyurAhar_V1/internal/geminiservice"
	"AyurAhar_V1/internal/nutrition"
	"AyurAhar_V1/internal/policy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* =================================================================================
								TEST DOUBLES
=================================================================================*/

type fakeBackend struct {
	mu       sync.Mutex
	response string
	err      error
	// block makes Generate wait for ctx to end.
	block    bool
	requests []geminiservice.Request
}

func (f *fakeBackend) Generate(ctx context.Context, req geminiservice.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.response, f.err
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeBackend) last() geminiservice.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeStore struct {
	records []nutrition.Record
	err     error
}

func (s *fakeStore) FindByName(_ context.Context, q string) ([]nutrition.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := []nutrition.Record{}
	if strings.TrimSpace(q) == "" {
		return out, nil
	}
	for _, r := range s.records {
		if strings.Contains(strings.ToLower(r.Name), strings.ToLower(q)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) FindByNutrientRange(context.Context, string, float64, float64) ([]nutrition.Record, error) {
	return []nutrition.Record{}, nil
}

func (s *fakeStore) FindByCode(_ context.Context, code string) (nutrition.Record, bool, error) {
	for _, r := range s.records {
		if r.Code == code {
			return r, true, nil
		}
	}
	return nutrition.Record{}, false, nil
}

func (s *fakeStore) Close() error { return nil }

func testStore() *fakeStore {
	return &fakeStore{records: []nutrition.Record{
		{Code: "A001", Name: "Rice, raw, milled", Category: "Cereals", Nutrients: map[string]float64{nutrition.EnergyKcal: 356, nutrition.ProteinG: 7.9}},
		{Code: "A002", Name: "Rice, parboiled", Category: "Cereals", Nutrients: map[string]float64{nutrition.EnergyKcal: 352}},
		{Code: "B010", Name: "Moong dal (green gram, split)", Category: "Pulses", Nutrients: map[string]float64{nutrition.ProteinG: 24.5}},
	}}
}

const validPlan = `{"diet_chart":"Breakfast: warm poha with ghee","recommendations":["Eat at fixed times"],"warnings":["Limit salt"]}`

const testMenu = "Breakfast: Poha, masala chai\nLunch: 2 rotis, moong dal, rice"

func newTestSynthesizer(t *testing.T, store nutrition.Store, backend geminiservice.Backend, opts Options) *Synthesizer {
	t.Helper()
	sel, err := policy.NewSelector()
	require.NoError(t, err)
	return NewSynthesizer(store, sel, backend, opts)
}

func testRequest() Request {
	return Request{
		Profile: PatientProfile{
			Name:       "Asha",
			Age:        42,
			Conditions: []string{"Type 2 Diabetes"},
		},
		Vitals:              Vitals{BloodPressure: "150/95", PulseBPM: 78, BMI: 24},
		MessMenu:            testMenu,
		AyurvedicPrinciples: "Light, warm meals",
	}
}

func codes(records []nutrition.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Code
	}
	return out
}

/* =================================================================================
								DIET PLANS
=================================================================================*/

func TestGenerate_AttachesContext(t *testing.T) {
	backend := &fakeBackend{response: validPlan}
	s := newTestSynthesizer(t, testStore(), backend, DefaultOptions())

	res, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "Breakfast: warm poha with ghee", res.DietChart)
	assert.Equal(t, []string{"Eat at fixed times"}, res.Recommendations)
	assert.Equal(t, []string{"Limit salt"}, res.Warnings)
	assert.Equal(t, []string{"B010", "A001"}, codes(res.NutritionalData))

	require.NotNil(t, res.PolicyCompliance)
	var consulted []string
	for _, p := range res.PolicyCompliance.Consulted {
		consulted = append(consulted, p.ID)
	}
	assert.Equal(t, []string{"AYU-DIAB-01", "AYU-HTN-01"}, consulted)

	req := backend.last()
	assert.Equal(t, taskDietPlan, req.Task)
	assert.Same(t, geminiservice.DietPlanSchema, req.Schema)
	assert.Contains(t, req.Context["nutrition_data"], "Moong dal (green gram, split) [B010]")
	assert.Contains(t, req.Context["policy_excerpts"], "[AYU-HTN-01]")
	assert.Contains(t, req.Context["vitals"], "high blood pressure")
	assert.Equal(t, testMenu, req.Context["mess_menu"])
	assert.Equal(t, "Not assessed", req.Context["dosha"])

	_, err = geminiservice.RenderPrompt(req.Template, req.Context)
	assert.NoError(t, err, "context must fill every template key")
}

func TestGenerate_UnmatchedFoodsDroppedByDefault(t *testing.T) {
	s := newTestSynthesizer(t, testStore(), &fakeBackend{response: validPlan}, DefaultOptions())

	res, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"Limit salt"}, res.Warnings)
}

func TestGenerate_UnmatchedFoodsReported(t *testing.T) {
	opts := DefaultOptions()
	opts.ReportUnmatchedFoods = true
	s := newTestSynthesizer(t, testStore(), &fakeBackend{response: validPlan}, opts)

	res, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Limit salt",
		"No reference nutrition data found for: poha, masala chai, rotis",
	}, res.Warnings)
}

func TestGenerate_NoRecognizableFoods(t *testing.T) {
	backend := &fakeBackend{response: validPlan}
	s := newTestSynthesizer(t, testStore(), backend, DefaultOptions())

	req := testRequest()
	req.MessMenu = "1 cup, 200 g"
	res, err := s.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, res.DietChart)
	assert.NotNil(t, res.NutritionalData)
	assert.Empty(t, res.NutritionalData)
	assert.Equal(t, "No reference nutrition data available", backend.last().Context["nutrition_data"])
}

func TestGenerate_DegradesWhenLookupsFail(t *testing.T) {
	backend := &fakeBackend{response: validPlan}
	s := NewSynthesizer(&fakeStore{err: nutrition.ErrStoreUnavailable}, nil, backend, DefaultOptions())

	res, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, res.NutritionalData)
	assert.Empty(t, res.PolicyCompliance.Consulted)
	assert.Equal(t, 1, backend.calls())
}

func TestGenerate_Caps(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxNutritionRecords = 1
	opts.MaxPolicyExcerpts = 1
	backend := &fakeBackend{response: validPlan}
	s := newTestSynthesizer(t, testStore(), backend, opts)

	res, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"B010"}, codes(res.NutritionalData))
	require.Len(t, res.PolicyCompliance.Consulted, 1)
	assert.Equal(t, "AYU-DIAB-01", res.PolicyCompliance.Consulted[0].ID)
}

func TestGenerate_DuplicateMatchesCollapse(t *testing.T) {
	s := newTestSynthesizer(t, testStore(), &fakeBackend{response: validPlan}, DefaultOptions())

	req := testRequest()
	req.MessMenu = "rice, milled rice, rice raw"
	res, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"A001"}, codes(res.NutritionalData))
}

func TestGenerate_DoshaFeedsContextAndPolicies(t *testing.T) {
	backend := &fakeBackend{response: validPlan}
	s := newTestSynthesizer(t, testStore(), backend, DefaultOptions())

	req := testRequest()
	req.Profile.Conditions = nil
	req.Vitals = Vitals{}
	req.Dosha = &dosha.Profile{Primary: dosha.Kapha, ImbalanceScore: 6, Recommendations: []string{"Favour light, dry foods"}}
	res, err := s.Generate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.PolicyCompliance.Consulted, 1)
	assert.Equal(t, "AYU-KAPHA-01", res.PolicyCompliance.Consulted[0].ID)
	assert.Contains(t, backend.last().Context["dosha"], "Primary dosha: Kapha")
	assert.Contains(t, backend.last().Context["dosha"], "Favour light, dry foods")
}

func TestGenerate_ContractViolations(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"missing diet chart", `{"recommendations":["a"],"warnings":[]}`},
		{"empty diet chart", `{"diet_chart":"  ","recommendations":[],"warnings":[]}`},
		{"diet chart not a string", `{"diet_chart":["a"],"recommendations":[],"warnings":[]}`},
		{"missing recommendations", `{"diet_chart":"x","warnings":[]}`},
		{"recommendations not strings", `{"diet_chart":"x","recommendations":[1,2]}`},
		{"warnings not a list", `{"diet_chart":"x","recommendations":[],"warnings":"none"}`},
		{"not json", `I cannot help with that.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSynthesizer(t, testStore(), &fakeBackend{response: tt.response}, DefaultOptions())

			res, err := s.Generate(context.Background(), testRequest())
			assert.Nil(t, res)
			require.ErrorIs(t, err, ErrGenerationContractViolation)
			assert.NotErrorIs(t, err, ErrGenerationBackend)

			var cv *ContractViolationError
			require.ErrorAs(t, err, &cv)
			assert.Equal(t, tt.response, cv.Raw)
		})
	}
}

func TestGenerate_ContractViolationLoggedWithRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("request_id", "req-42").Logger()
	ctx := logger.WithContext(context.Background())

	s := newTestSynthesizer(t, testStore(), &fakeBackend{response: `{"recommendations":[]}`}, DefaultOptions())
	_, err := s.Generate(ctx, testRequest())
	require.ErrorIs(t, err, ErrGenerationContractViolation)

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), `"raw_response"`)
}

func TestGenerate_LowBloodPressureSkipsHypertensionGuidance(t *testing.T) {
	s := newTestSynthesizer(t, testStore(), &fakeBackend{response: validPlan}, DefaultOptions())

	res, err := s.Generate(context.Background(), Request{Vitals: Vitals{BloodPressure: "85/55"}})
	require.NoError(t, err)

	var consulted []string
	for _, p := range res.PolicyCompliance.Consulted {
		consulted = append(consulted, p.ID)
	}
	assert.NotContains(t, consulted, "AYU-HTN-01")
	assert.Contains(t, consulted, "AYU-HYPO-01")
}

func TestGenerate_WarningsOptional(t *testing.T) {
	backend := &fakeBackend{response: "```json\n{\"dietChart\":\"Lunch: khichdi\",\"recommendations\":[]}\n```"}
	s := newTestSynthesizer(t, testStore(), backend, DefaultOptions())

	res, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Lunch: khichdi", res.DietChart)
	assert.NotNil(t, res.Warnings)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Recommendations)
}

func TestGenerate_BackendFailure(t *testing.T) {
	cause := errors.New("connection refused")
	s := newTestSynthesizer(t, testStore(), &fakeBackend{err: cause}, DefaultOptions())

	_, err := s.Generate(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrGenerationBackend)
	assert.ErrorIs(t, err, cause)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, taskDietPlan, be.Task)
}

func TestGenerate_Timeout(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond
	s := newTestSynthesizer(t, testStore(), &fakeBackend{block: true}, opts)

	start := time.Now()
	_, err := s.Generate(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrGenerationBackend)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGenerate_CallerCancellation(t *testing.T) {
	s := newTestSynthesizer(t, testStore(), &fakeBackend{block: true}, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := s.Generate(ctx, testRequest())
	require.ErrorIs(t, err, ErrGenerationBackend)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_Concurrent(t *testing.T) {
	s := newTestSynthesizer(t, testStore(), &fakeBackend{response: validPlan}, DefaultOptions())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Generate(context.Background(), testRequest())
			assert.NoError(t, err)
			assert.NotEmpty(t, res.DietChart)
		}()
	}
	wg.Wait()
}

/* =================================================================================
								CONTEXT RENDERING
=================================================================================*/

func TestVitalsFlags(t *testing.T) {
	tests := []struct {
		name   string
		vitals Vitals
		want   []string
	}{
		{"normal", Vitals{BloodPressure: "118/76", BMI: 22, BloodSugarMgDL: 90}, nil},
		{"hypertensive", Vitals{BloodPressure: "150/85"}, []string{"high blood pressure"}},
		{"hypotensive", Vitals{BloodPressure: "85 / 55"}, []string{"low blood pressure"}},
		{"unparseable bp", Vitals{BloodPressure: "normal"}, nil},
		{"obese diabetic", Vitals{BMI: 31.2, BloodSugarMgDL: 140}, []string{"obesity", "high blood sugar"}},
		{"underweight prediabetic", Vitals{BMI: 17, BloodSugarMgDL: 105}, []string{"underweight", "prediabetes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.vitals.Flags())
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "No profile details provided", PatientProfile{}.Describe())
	assert.Equal(t, "No vitals recorded", Vitals{}.Describe())

	v := Vitals{PulseBPM: 70, Extra: map[string]string{"spo2": "98%", "hb": "11.2"}}
	assert.Equal(t, "Pulse: 70 bpm\nhb: 11.2\nspo2: 98%", v.Describe())

	p := PatientProfile{Name: "Ravi", Age: 67, Allergies: []string{"peanuts"}}
	assert.Equal(t, "Name: Ravi\nAge: 67\nAllergies: peanuts", p.Describe())
	assert.Contains(t, p.policyText(), "senior")
	assert.Contains(t, p.policyText(), "allergies")
}
