package dietplan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"AyurAhar_V1/internal/dosha"
	"AyurAhar_V1/internal/nutrition"
)

// PatientProfile is the part of a patient record a diet plan depends on.
// Only Name is expected; everything else is optional prompt context.
type PatientProfile struct {
	Name              string   `json:"name"`
	Age               int      `json:"age,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	HeightCm          float64  `json:"height_cm,omitempty"`
	WeightKg          float64  `json:"weight_kg,omitempty"`
	Prakriti          string   `json:"prakriti,omitempty"`
	Conditions        []string `json:"conditions,omitempty"`
	Allergies         []string `json:"allergies,omitempty"`
	DietaryPreference string   `json:"dietary_preference,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

// Vitals is the latest set of readings for the patient. Extra carries readings
// without a dedicated field and is passed to the prompt as is.
type Vitals struct {
	BloodPressure  string            `json:"blood_pressure,omitempty"`
	PulseBPM       int               `json:"pulse_bpm,omitempty"`
	BMI            float64           `json:"bmi,omitempty"`
	BloodSugarMgDL float64           `json:"blood_sugar_mg_dl,omitempty"`
	Digestion      string            `json:"digestion,omitempty"`
	Sleep          string            `json:"sleep,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Request is everything needed to generate one diet plan.
type Request struct {
	Profile             PatientProfile `json:"profile"`
	Vitals              Vitals         `json:"vitals"`
	MessMenu            string         `json:"mess_menu"`
	AyurvedicPrinciples string         `json:"ayurvedic_principles"`
	// Dosha is an earlier classification of the patient, if one was made.
	Dosha *dosha.Profile `json:"dosha,omitempty"`
	// Environment is free text about season and weather.
	Environment string `json:"environment,omitempty"`
}

// PolicyRef identifies a guideline excerpt that was given to the backend.
type PolicyRef struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
}

// PolicyCompliance records which guidelines a plan was generated against.
type PolicyCompliance struct {
	Consulted []PolicyRef `json:"consulted"`
	Note      string      `json:"note"`
}

// Result is a validated diet plan. DietChart is never empty.
type Result struct {
	DietChart        string             `json:"diet_chart"`
	Recommendations  []string           `json:"recommendations"`
	Warnings         []string           `json:"warnings"`
	NutritionalData  []nutrition.Record `json:"nutritional_data"`
	PolicyCompliance *PolicyCompliance  `json:"policy_compliance"`
}

// Alternative is one substitute for a food.
type Alternative struct {
	Name             string `json:"name"`
	Reason           string `json:"reason"`
	AyurvedicBenefit string `json:"ayurvedic_benefit"`
}

// MealTiming is one slot of a daily schedule. Time is 24-hour HH:MM.
type MealTiming struct {
	Meal  string `json:"meal"`
	Time  string `json:"time"`
	Notes string `json:"notes,omitempty"`
}

// MealTimingSchedule is a dosha-aligned daily eating schedule.
type MealTimingSchedule struct {
	Entries   []MealTiming `json:"schedule"`
	Rationale string       `json:"rationale"`
}

/* =================================================================================
							PROMPT CONTEXT RENDERING
=================================================================================*/

// Describe renders the profile for the generation prompt.
func (p PatientProfile) Describe() string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("Name: %s", p.Name))
	}
	if p.Age > 0 {
		parts = append(parts, fmt.Sprintf("Age: %d", p.Age))
	}
	if p.Gender != "" {
		parts = append(parts, fmt.Sprintf("Gender: %s", p.Gender))
	}
	if p.HeightCm > 0 {
		parts = append(parts, fmt.Sprintf("Height: %.0f cm", p.HeightCm))
	}
	if p.WeightKg > 0 {
		parts = append(parts, fmt.Sprintf("Weight: %.1f kg", p.WeightKg))
	}
	if p.Prakriti != "" {
		parts = append(parts, fmt.Sprintf("Prakriti: %s", p.Prakriti))
	}
	if len(p.Conditions) > 0 {
		parts = append(parts, fmt.Sprintf("Conditions: %s", strings.Join(p.Conditions, ", ")))
	}
	if len(p.Allergies) > 0 {
		parts = append(parts, fmt.Sprintf("Allergies: %s", strings.Join(p.Allergies, ", ")))
	}
	if p.DietaryPreference != "" {
		parts = append(parts, fmt.Sprintf("Dietary preference: %s", p.DietaryPreference))
	}
	if p.Notes != "" {
		parts = append(parts, fmt.Sprintf("Notes: %s", p.Notes))
	}
	if len(parts) == 0 {
		return "No profile details provided"
	}
	return strings.Join(parts, "\n")
}

// policyText is the profile as seen by the policy selector. Field labels are
// left out so that an empty field cannot match a guideline topic.
func (p PatientProfile) policyText() string {
	parts := append([]string{}, p.Conditions...)
	if len(p.Allergies) > 0 {
		parts = append(parts, "allergies")
		parts = append(parts, p.Allergies...)
	}
	if p.Age >= 60 {
		parts = append(parts, "senior")
	}
	if p.Prakriti != "" {
		parts = append(parts, p.Prakriti)
	}
	parts = append(parts, p.DietaryPreference, p.Notes)
	return strings.Join(parts, " ")
}

// Describe renders the readings for the generation prompt, followed by the
// clinical flags derived from them.
func (v Vitals) Describe() string {
	var parts []string
	if v.BloodPressure != "" {
		parts = append(parts, fmt.Sprintf("Blood pressure: %s mmHg", v.BloodPressure))
	}
	if v.PulseBPM > 0 {
		parts = append(parts, fmt.Sprintf("Pulse: %d bpm", v.PulseBPM))
	}
	if v.BMI > 0 {
		parts = append(parts, fmt.Sprintf("BMI: %.1f", v.BMI))
	}
	if v.BloodSugarMgDL > 0 {
		parts = append(parts, fmt.Sprintf("Fasting blood sugar: %.0f mg/dL", v.BloodSugarMgDL))
	}
	if v.Digestion != "" {
		parts = append(parts, fmt.Sprintf("Digestion: %s", v.Digestion))
	}
	if v.Sleep != "" {
		parts = append(parts, fmt.Sprintf("Sleep: %s", v.Sleep))
	}

	keys := make([]string, 0, len(v.Extra))
	for k := range v.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Extra[k]))
	}

	if flags := v.Flags(); len(flags) > 0 {
		parts = append(parts, fmt.Sprintf("Flags: %s", strings.Join(flags, ", ")))
	}
	if len(parts) == 0 {
		return "No vitals recorded"
	}
	return strings.Join(parts, "\n")
}

// Flags derives plain-language findings from the readings, e.g. "high blood pressure".
func (v Vitals) Flags() []string {
	var flags []string
	if sys, dia, ok := parseBloodPressure(v.BloodPressure); ok {
		switch {
		case sys >= 140 || dia >= 90:
			flags = append(flags, "high blood pressure")
		case sys < 90 || dia < 60:
			flags = append(flags, "low blood pressure")
		}
	}
	switch {
	case v.BMI >= 30:
		flags = append(flags, "obesity")
	case v.BMI >= 25:
		flags = append(flags, "overweight")
	case v.BMI > 0 && v.BMI < 18.5:
		flags = append(flags, "underweight")
	}
	switch {
	case v.BloodSugarMgDL >= 126:
		flags = append(flags, "high blood sugar")
	case v.BloodSugarMgDL >= 100:
		flags = append(flags, "prediabetes")
	}
	return flags
}

// policyText is the vitals as seen by the policy selector: derived flags plus
// the free-text observations.
func (v Vitals) policyText() string {
	parts := append(v.Flags(), v.Digestion, v.Sleep)
	return strings.Join(parts, " ")
}

// parseBloodPressure reads "systolic/diastolic", e.g. "150/95".
func parseBloodPressure(s string) (int, int, bool) {
	sysStr, diaStr, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		return 0, 0, false
	}
	sys, err1 := strconv.Atoi(strings.TrimSpace(sysStr))
	dia, err2 := strconv.Atoi(strings.TrimSpace(diaStr))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return sys, dia, true
}

// formatRecordsForAI lists reference records one per line for the prompt.
func formatRecordsForAI(records []nutrition.Record) string {
	if len(records) == 0 {
		return "No reference nutrition data available"
	}

	var builder strings.Builder
	for i, r := range records {
		builder.WriteString(fmt.Sprintf("%d. %s [%s]", i+1, r.Name, r.Code))
		if r.Category != "" {
			builder.WriteString(fmt.Sprintf(" (%s)", r.Category))
		}
		builder.WriteString(fmt.Sprintf(": %s\n", nutrition.FormatNutrients(r)))
	}
	return strings.TrimRight(builder.String(), "\n")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
