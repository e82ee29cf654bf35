package dietplan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"AyurAhar_V1/internal/geminiservice"
)

// clockPattern accepts 24-hour times such as "7:30" and "19:05".
var clockPattern = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// decodeObject extracts the JSON object from a backend response and returns
// its top-level fields.
func decodeObject(task, raw string) (map[string]json.RawMessage, error) {
	body := geminiservice.ExtractJSON(raw)
	if body == "" {
		return nil, &ContractViolationError{Task: task, Reason: "response is not a JSON object", Raw: raw}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, &ContractViolationError{Task: task, Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: raw}
	}
	return fields, nil
}

// field returns the first present, non-null value among names.
func field(fields map[string]json.RawMessage, names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		if v, ok := fields[name]; ok && strings.TrimSpace(string(v)) != "null" {
			return v, true
		}
	}
	return nil, false
}

func stringList(v json.RawMessage) ([]string, error) {
	var out []string
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// parseDietPlan enforces the diet plan contract: a non-empty diet chart, a list
// of recommendations and an optional list of warnings.
func parseDietPlan(raw string) (*Result, error) {
	const task = taskDietPlan
	fields, err := decodeObject(task, raw)
	if err != nil {
		return nil, err
	}
	violation := func(reason string) error {
		return &ContractViolationError{Task: task, Reason: reason, Raw: raw}
	}

	chartRaw, ok := field(fields, "diet_chart", "dietChart")
	if !ok {
		return nil, violation("missing diet_chart")
	}
	var chart string
	if err := json.Unmarshal(chartRaw, &chart); err != nil {
		return nil, violation("diet_chart is not a string")
	}
	if strings.TrimSpace(chart) == "" {
		return nil, violation("diet_chart is empty")
	}

	recRaw, ok := field(fields, "recommendations")
	if !ok {
		return nil, violation("missing recommendations")
	}
	recs, err := stringList(recRaw)
	if err != nil {
		return nil, violation("recommendations is not a list of strings")
	}

	warnings := []string{}
	if warnRaw, ok := field(fields, "warnings"); ok {
		if warnings, err = stringList(warnRaw); err != nil {
			return nil, violation("warnings is not a list of strings")
		}
	}

	return &Result{
		DietChart:       chart,
		Recommendations: recs,
		Warnings:        warnings,
	}, nil
}

// parseAlternatives enforces that every suggestion has all three fields. An
// empty but well-formed list is returned as is.
func parseAlternatives(raw string) ([]Alternative, error) {
	const task = taskAlternatives
	fields, err := decodeObject(task, raw)
	if err != nil {
		return nil, err
	}

	listRaw, ok := field(fields, "alternatives")
	if !ok {
		return nil, &ContractViolationError{Task: task, Reason: "missing alternatives", Raw: raw}
	}
	var alts []Alternative
	if err := json.Unmarshal(listRaw, &alts); err != nil {
		return nil, &ContractViolationError{Task: task, Reason: "alternatives is not a list of objects", Raw: raw}
	}

	for i, a := range alts {
		if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Reason) == "" || strings.TrimSpace(a.AyurvedicBenefit) == "" {
			return nil, &ContractViolationError{
				Task:   task,
				Reason: fmt.Sprintf("alternative %d is missing name, reason or ayurvedic_benefit", i),
				Raw:    raw,
			}
		}
	}
	return alts, nil
}

// parseMealTimings enforces at least one well-formed entry and a rationale.
func parseMealTimings(raw string) (*MealTimingSchedule, error) {
	const task = taskMealTiming
	fields, err := decodeObject(task, raw)
	if err != nil {
		return nil, err
	}
	violation := func(reason string) error {
		return &ContractViolationError{Task: task, Reason: reason, Raw: raw}
	}

	listRaw, ok := field(fields, "schedule")
	if !ok {
		return nil, violation("missing schedule")
	}
	var entries []MealTiming
	if err := json.Unmarshal(listRaw, &entries); err != nil {
		return nil, violation("schedule is not a list of objects")
	}
	if len(entries) == 0 {
		return nil, violation("schedule is empty")
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Meal) == "" {
			return nil, violation(fmt.Sprintf("schedule entry %d has no meal", i))
		}
		if !clockPattern.MatchString(strings.TrimSpace(e.Time)) {
			return nil, violation(fmt.Sprintf("schedule entry %d has invalid time %q", i, e.Time))
		}
		entries[i].Time = strings.TrimSpace(e.Time)
	}

	var rationale string
	if rRaw, ok := field(fields, "rationale"); ok {
		if err := json.Unmarshal(rRaw, &rationale); err != nil {
			return nil, violation("rationale is not a string")
		}
	}
	if strings.TrimSpace(rationale) == "" {
		return nil, violation("rationale is empty")
	}

	return &MealTimingSchedule{Entries: entries, Rationale: rationale}, nil
}
