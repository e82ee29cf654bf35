package dosha

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed weights.yaml
var defaultTable []byte

// weights is the per-dosha contribution of one keyword.
type weights struct {
	Vata  float64 `yaml:"vata"`
	Pitta float64 `yaml:"pitta"`
	Kapha float64 `yaml:"kapha"`
}

func (w weights) of(t Type) float64 {
	switch t {
	case Vata:
		return w.Vata
	case Pitta:
		return w.Pitta
	default:
		return w.Kapha
	}
}

type table struct {
	Version            int                 `yaml:"version"`
	SecondaryThreshold float64             `yaml:"secondary_threshold"`
	MaxScore           float64             `yaml:"max_score"`
	Keywords           map[string]weights  `yaml:"keywords"`
	Advice             map[string][]string `yaml:"advice"`
	SecondaryAdvice    map[string][]string `yaml:"secondary_advice"`
}

// keyword is a normalized table entry; entries are matched longest first.
type keyword struct {
	phrase  string
	words   int
	weights weights
}

// Classifier scores inputs against a keyword table. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	table    table
	keywords []keyword
}

// NewClassifier builds a classifier from the embedded weight table.
func NewClassifier() (*Classifier, error) {
	return NewClassifierFromYAML(defaultTable)
}

// NewClassifierFromYAML builds a classifier from a weight table document.
func NewClassifierFromYAML(data []byte) (*Classifier, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse dosha weight table: %w", err)
	}
	if t.SecondaryThreshold <= 0 || t.SecondaryThreshold > 1 {
		return nil, fmt.Errorf("secondary_threshold must be in (0, 1], got %v", t.SecondaryThreshold)
	}
	if t.MaxScore <= 0 {
		return nil, fmt.Errorf("max_score must be positive, got %v", t.MaxScore)
	}
	for _, key := range []string{"generic", string(Vata), string(Pitta), string(Kapha)} {
		if len(t.Advice[key]) == 0 {
			return nil, fmt.Errorf("advice set %q is missing", key)
		}
	}

	c := &Classifier{table: t}
	for phrase, w := range t.Keywords {
		if w.Vata < 0 || w.Pitta < 0 || w.Kapha < 0 {
			return nil, fmt.Errorf("keyword %q has a negative weight", phrase)
		}
		norm := normalize(phrase)
		if norm == "" {
			continue
		}
		c.keywords = append(c.keywords, keyword{phrase: norm, words: len(strings.Fields(norm)), weights: w})
	}
	sort.Slice(c.keywords, func(i, j int) bool {
		if c.keywords[i].words != c.keywords[j].words {
			return c.keywords[i].words > c.keywords[j].words
		}
		return c.keywords[i].phrase < c.keywords[j].phrase
	})
	return c, nil
}

// MaxScore is the upper bound of ImbalanceScore.
func (c *Classifier) MaxScore() float64 {
	return c.table.MaxScore
}

// Analyze scores every input token and derives the dosha profile.
//
// The primary dosha is the highest accumulator with ties broken Vata > Pitta > Kapha.
// The secondary is the runner-up, kept only when it reaches the table's
// secondary_threshold fraction of the primary total. With no matching input the
// profile defaults to Vata, no secondary, a zero score and the generic advice set.
func (c *Classifier) Analyze(symptoms, characteristics, preferences []string) Profile {
	scores := map[Type]float64{Vata: 0, Pitta: 0, Kapha: 0}
	for _, group := range [][]string{symptoms, characteristics, preferences} {
		for _, token := range group {
			c.accumulate(token, scores)
		}
	}

	ranked := make([]Type, len(Priority))
	copy(ranked, Priority)
	// Stable sort keeps the priority order among equal totals.
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})

	profile := Profile{
		Primary:      ranked[0],
		Scores:       scores,
		TableVersion: c.table.Version,
	}

	top := scores[ranked[0]]
	if top == 0 {
		profile.Primary = Priority[0]
		profile.Recommendations = dedupe(c.table.Advice["generic"])
		return profile
	}

	runnerUp := ranked[1]
	if second := scores[runnerUp]; second > 0 && second >= c.table.SecondaryThreshold*top {
		profile.Secondary = &runnerUp
	}

	profile.ImbalanceScore = c.imbalance(scores, top)

	advice := append([]string{}, c.table.Advice[string(profile.Primary)]...)
	if profile.Secondary != nil {
		advice = append(advice, c.table.SecondaryAdvice[string(*profile.Secondary)]...)
	}
	profile.Recommendations = dedupe(advice)
	return profile
}

// imbalance scales the spread between the top accumulator and the mean into
// [0, MaxScore]. The spread (top - mean) / top peaks at 2/3 when one dosha
// holds every point.
func (c *Classifier) imbalance(scores map[Type]float64, top float64) float64 {
	mean := (scores[Vata] + scores[Pitta] + scores[Kapha]) / 3
	spread := (top - mean) / top
	score := c.table.MaxScore * spread * 1.5
	score = math.Round(score*10) / 10
	return math.Max(0, math.Min(c.table.MaxScore, score))
}

// accumulate adds the weights of every keyword found in token. Longer phrases
// are matched first and consume their words so "dry skin" is not also counted as "dry".
func (c *Classifier) accumulate(token string, scores map[Type]float64) {
	text := " " + normalize(token) + " "
	if strings.TrimSpace(text) == "" {
		return
	}
	for _, kw := range c.keywords {
		needle := " " + kw.phrase + " "
		n := strings.Count(text, needle)
		if n == 0 {
			continue
		}
		for _, t := range Priority {
			scores[t] += kw.weights.of(t) * float64(n)
		}
		text = strings.ReplaceAll(text, needle, " | ")
	}
}

// normalize lower-cases s and collapses every run of non-letters into one space.
func normalize(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	}), " ")
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
