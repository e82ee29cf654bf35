/*
Package dosha scores Vata, Pitta and Kapha imbalance from a patient's
symptoms, physical characteristics and food preferences.

Scoring is table driven: weights.yaml maps keywords to per-dosha weights and
holds the advice sets returned with each profile. The table is embedded in the
binary so a classification is reproducible for a given build.
*/
package dosha

import (
	"errors"
	"fmt"
	"strings"
)

// Type is one of the three Ayurvedic constitutional categories.
type Type string

const (
	Vata  Type = "Vata"
	Pitta Type = "Pitta"
	Kapha Type = "Kapha"
)

// Priority is the fixed tie-break order used when accumulators are equal.
var Priority = []Type{Vata, Pitta, Kapha}

// ErrInvalidDoshaType is returned when a caller names something other than Vata, Pitta or Kapha.
var ErrInvalidDoshaType = errors.New("invalid dosha type")

// ParseType accepts a dosha name in any case.
func ParseType(s string) (Type, error) {
	for _, t := range Priority {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected Vata, Pitta or Kapha)", ErrInvalidDoshaType, s)
}

// Profile is the result of one classification. Secondary, when set, always differs
// from Primary and ImbalanceScore always lies in [0, MaxScore].
type Profile struct {
	Primary         Type             `json:"primary"`
	Secondary       *Type            `json:"secondary,omitempty"`
	ImbalanceScore  float64          `json:"imbalance_score"`
	Recommendations []string         `json:"recommendations"`
	Scores          map[Type]float64 `json:"scores"`
	TableVersion    int              `json:"table_version"`
}

// Summary renders the profile as one line for prompt context.
func (p Profile) Summary() string {
	s := fmt.Sprintf("Primary dosha: %s (imbalance %.1f/10)", p.Primary, p.ImbalanceScore)
	if p.Secondary != nil {
		s += fmt.Sprintf(", secondary: %s", *p.Secondary)
	}
	return s
}
