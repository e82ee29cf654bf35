// Package policy selects the codified dietary guideline excerpts that apply to a
// diet plan request. The corpus is static, embedded YAML ordered by priority.
package policy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var defaultCorpus []byte

// Excerpt is one guideline entry. Excerpts are read-only once loaded.
type Excerpt struct {
	ID       string   `yaml:"id" json:"id"`
	Topic    string   `yaml:"topic" json:"topic"`
	Text     string   `yaml:"text" json:"text"`
	Keywords []string `yaml:"keywords" json:"-"`
	Priority int      `yaml:"priority" json:"-"`
}

// Query carries the request text that excerpts are matched against.
type Query struct {
	Profile    string
	Vitals     string
	Principles string
	// Extra holds optional context such as the dosha summary or weather.
	Extra []string
}

func (q Query) text() string {
	parts := append([]string{q.Profile, q.Vitals, q.Principles}, q.Extra...)
	return strings.Join(parts, " ")
}

type corpus struct {
	Version  int       `yaml:"version"`
	Excerpts []Excerpt `yaml:"excerpts"`
}

// Selector matches queries against a fixed corpus. Safe for concurrent use.
type Selector struct {
	version  int
	excerpts []Excerpt
	// phrases[i] holds the normalized topic and keywords of excerpts[i].
	phrases [][]string
}

// NewSelector loads the embedded guideline corpus.
func NewSelector() (*Selector, error) {
	return NewSelectorFromYAML(defaultCorpus)
}

// NewSelectorFromYAML loads a corpus document.
func NewSelectorFromYAML(data []byte) (*Selector, error) {
	var c corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse policy corpus: %w", err)
	}

	seen := make(map[string]bool, len(c.Excerpts))
	for _, e := range c.Excerpts {
		if e.ID == "" || e.Topic == "" || strings.TrimSpace(e.Text) == "" {
			return nil, fmt.Errorf("policy excerpt %q must have id, topic and text", e.ID)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate policy excerpt id %q", e.ID)
		}
		seen[e.ID] = true
	}

	// Priority order is part of the corpus contract; ties keep declaration order.
	sort.SliceStable(c.Excerpts, func(i, j int) bool {
		return c.Excerpts[i].Priority < c.Excerpts[j].Priority
	})

	s := &Selector{version: c.Version, excerpts: c.Excerpts}
	s.phrases = make([][]string, len(c.Excerpts))
	for i, e := range c.Excerpts {
		phrases := []string{normalize(e.Topic)}
		for _, kw := range e.Keywords {
			if n := normalize(kw); n != "" {
				phrases = append(phrases, n)
			}
		}
		s.phrases[i] = phrases
	}
	return s, nil
}

// Version identifies the corpus revision.
func (s *Selector) Version() int {
	return s.version
}

// RelevantPolicies returns every excerpt whose topic or keywords appear in the
// query, in priority order. It returns an empty slice when nothing matches.
func (s *Selector) RelevantPolicies(q Query) []Excerpt {
	haystack := " " + normalize(q.text()) + " "
	out := []Excerpt{}
	if strings.TrimSpace(haystack) == "" {
		return out
	}

	for i, e := range s.excerpts {
		for _, phrase := range s.phrases[i] {
			if strings.Contains(haystack, " "+phrase+" ") {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func normalize(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
