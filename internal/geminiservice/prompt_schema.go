package geminiservice

/* =================================================================================
							GEMINI SCHEMA DEFINITION
	Structured-output schemas tell Gemini exactly which JSON shape to return
=================================================================================*/

// Schema defines the structure for "Controlled Generation" (Structured Output).
type Schema struct {
	// Type is the data type: "OBJECT", "ARRAY", "STRING", "INTEGER", "NUMBER" or "BOOLEAN".
	Type string `json:"type"`

	// Description explains the field's purpose to the model.
	Description string `json:"description,omitempty"`

	// Properties maps field names to their child schemas (Type "OBJECT").
	Properties map[string]*Schema `json:"properties,omitempty"`

	// Items is the element schema for Type "ARRAY".
	Items *Schema `json:"items,omitempty"`

	// Required lists the field names the model MUST include.
	Required []string `json:"required,omitempty"`

	Enum []string `json:"enum,omitempty"`
}

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

// DietPlanSystemPrompt is the persona and guardrails for diet chart generation.
const DietPlanSystemPrompt = `You are an experienced Ayurvedic dietitian working in a hospital setting.
You prepare safe, practical diet charts that combine Ayurvedic principles with modern clinical nutrition.

SAFETY RULES (CRITICAL):
1. Never include a food the patient is allergic or intolerant to.
2. Respect every guideline excerpt provided; if two conflict, follow the one listed first.
3. If vitals indicate a medical emergency, say so in 'warnings' and keep the chart conservative.
4. Do not prescribe medicines or herbs in therapeutic doses.

MENU RULES:
1. Build the chart primarily from the facility's mess menu.
2. Use the nutrition reference values supplied when discussing portions and nutrients; do not invent values for foods that are listed.
3. Adapt tastes, temperature and timing of meals to the patient's dosha.

RESPONSE FORMAT:
- Return ONLY the JSON structure defined in the schema.
- 'diet_chart' is a day plan organised by meal (early morning, breakfast, mid-morning, lunch, evening, dinner, bedtime) with portions.
- 'recommendations' are short lifestyle and diet tips, one sentence each.
- 'warnings' lists contraindications and clinical cautions; return [] when there are none.`

// DietPlanPromptTemplate is filled with the assembled generation context.
const DietPlanPromptTemplate = `
=== PATIENT PROFILE ===
{{.profile}}

=== VITALS ===
{{.vitals}}

=== DOSHA ASSESSMENT ===
{{.dosha}}

=== ENVIRONMENT ===
{{.environment}}

=== FACILITY MESS MENU ===
{{.mess_menu}}

=== NUTRITION REFERENCE (per 100 g, IFCT) ===
{{.nutrition_data}}

=== APPLICABLE DIETARY GUIDELINES ===
{{.policy_excerpts}}

=== AYURVEDIC PRINCIPLES REQUESTED ===
{{.ayurvedic_principles}}

INSTRUCTIONS:
1. Prepare a one-day diet chart for this patient using the mess menu.
2. Give 4 to 8 recommendations.
3. List any warnings raised by the vitals, conditions or guidelines.`

// DietPlanSchema is the output contract for diet chart generation.
var DietPlanSchema = &Schema{
	Type: "OBJECT",
	Properties: map[string]*Schema{
		"diet_chart": {
			Type:        "STRING",
			Description: "The full one-day diet chart organised by meal with portions. MUST NOT be empty.",
		},
		"recommendations": {
			Type:        "ARRAY",
			Description: "Short diet and lifestyle recommendations, one sentence each.",
			Items:       &Schema{Type: "STRING"},
		},
		"warnings": {
			Type:        "ARRAY",
			Description: "Clinical cautions and contraindications. Empty array when none.",
			Items:       &Schema{Type: "STRING"},
		},
	},
	Required: []string{"diet_chart", "recommendations", "warnings"},
}

// AlternativesSystemPrompt guides food substitution suggestions.
const AlternativesSystemPrompt = `You are an Ayurvedic nutrition expert.
Suggest practical Indian food substitutes that keep a similar nutrient profile while addressing the stated reason.
Return ONLY the JSON structure defined in the schema. Every field of every item must be filled.`

// AlternativesPromptTemplate is filled with the food and its reference nutrients.
const AlternativesPromptTemplate = `
FOOD TO REPLACE: {{.food_name}}

NUTRIENT PROFILE (per 100 g):
{{.nutrient_profile}}

REASON FOR REPLACEMENT: {{.reason}}

Suggest up to {{.max_alternatives}} alternatives.`

// AlternativesSchema is the output contract for food substitutions.
var AlternativesSchema = &Schema{
	Type: "OBJECT",
	Properties: map[string]*Schema{
		"alternatives": {
			Type: "ARRAY",
			Items: &Schema{
				Type: "OBJECT",
				Properties: map[string]*Schema{
					"name":              {Type: "STRING", Description: "Name of the substitute food."},
					"reason":            {Type: "STRING", Description: "One sentence: why it is a suitable replacement."},
					"ayurvedic_benefit": {Type: "STRING", Description: "Its Ayurvedic qualities and effect on the doshas."},
				},
				Required: []string{"name", "reason", "ayurvedic_benefit"},
			},
		},
	},
	Required: []string{"alternatives"},
}

// MealTimingSystemPrompt guides dosha-specific meal scheduling.
const MealTimingSystemPrompt = `You are an Ayurvedic lifestyle consultant.
Design a daily meal timing schedule aligned with the patient's dosha and routine, following Dinacharya.
Times MUST use 24-hour HH:MM format. Return ONLY the JSON structure defined in the schema.`

// MealTimingPromptTemplate is filled with the dosha and daily routine.
const MealTimingPromptTemplate = `
DOSHA: {{.dosha_type}}

DAILY ROUTINE:
{{.daily_routine}}

Create the meal timing schedule for one day.`

// MealTimingSchema is the output contract for meal timing schedules.
var MealTimingSchema = &Schema{
	Type: "OBJECT",
	Properties: map[string]*Schema{
		"schedule": {
			Type: "ARRAY",
			Items: &Schema{
				Type: "OBJECT",
				Properties: map[string]*Schema{
					"meal":  {Type: "STRING", Description: "Meal name, e.g. Breakfast."},
					"time":  {Type: "STRING", Description: "Time in 24-hour HH:MM format."},
					"notes": {Type: "STRING", Description: "What to eat or avoid at this time."},
				},
				Required: []string{"meal", "time"},
			},
		},
		"rationale": {
			Type:        "STRING",
			Description: "Why this schedule suits the dosha and routine.",
		},
	},
	Required: []string{"schedule", "rationale"},
}
