/*
Package extractor pulls candidate food names out of free-form menu or diet
plan text so they can be looked up in the nutrition reference store.
Extraction is best effort: it never fails and may miss unusual phrasings.
*/
package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// itemSeparators split a line into individual menu items.
	itemSeparators = regexp.MustCompile(`(?i)[,;/|+&•·\t]|\s-\s|\bwith\b|\band\b|\bor\b`)

	// mealLabel matches "Breakfast:", "Day 1 -", "Mid-morning snack:" style prefixes.
	mealLabel = regexp.MustCompile(`(?i)^\s*(early\s+morning|mid[- ]?morning|breakfast|brunch|lunch|dinner|supper|` +
		`evening|bedtime|snacks?|morning|night|meal\s*\d*|day\s*\d+|monday|tuesday|wednesday|thursday|` +
		`friday|saturday|sunday)\b[^:]{0,20}?(:|\s-\s)\s*`)

	// clockTime matches "7:30", "7:30 am", "19:00".
	clockTime = regexp.MustCompile(`(?i)\b\d{1,2}[:.]\d{2}\s*(am|pm)?\b|\b\d{1,2}\s*(am|pm)\b`)

	parenthetical = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)

	// quantity matches numbers (incl. fractions) with an optional unit.
	quantity = regexp.MustCompile(`(?i)(\d+([./]\d+)?|[½¼¾⅓⅔])\s*(-\s*\d+\s*)?` +
		`(kg|g|gm|gms|grams?|mg|ml|l|litres?|liters?|oz|cups?|tbsp|tsp|tablespoons?|teaspoons?|` +
		`bowls?|katoris?|glass(es)?|pieces?|pcs|slices?|servings?|plates?|nos?|numbers?|medium|small|large|handful)?\b`)

	bullet = regexp.MustCompile(`^\s*([-*•·>]+|\d+[.)]|[a-z][.)])\s+`)
)

// unitWords are measure words that survive quantity stripping when written alone ("a cup of").
var unitWords = map[string]bool{
	"cup": true, "cups": true, "bowl": true, "bowls": true, "glass": true, "glasses": true,
	"piece": true, "pieces": true, "slice": true, "slices": true, "serving": true,
	"servings": true, "plate": true, "plates": true, "katori": true, "tbsp": true,
	"tsp": true, "handful": true, "portion": true, "portions": true,
	"kg": true, "g": true, "gm": true, "gms": true, "gram": true, "grams": true,
	"ml": true, "mg": true, "oz": true,
}

// stopWords are fillers that never name a food on their own.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "some": true, "fresh": true,
	"served": true, "serve": true, "plain": true, "little": true, "few": true,
	"optional": true, "daily": true, "each": true, "per": true, "day": true,
	"breakfast": true, "lunch": true, "dinner": true, "snack": true, "snacks": true,
	"morning": true, "evening": true, "night": true, "menu": true, "meal": true,
	"hot": true, "warm": true, "cold": true, "approx": true, "about": true,
	"am": true, "pm": true,
}

// Extract returns the distinct candidate food names found in text, in order of
// first appearance. Names are lower-cased; duplicates are compared case-insensitively.
func Extract(text string) []string {
	seen := make(map[string]bool)
	out := []string{}

	for _, line := range strings.Split(text, "\n") {
		line = bullet.ReplaceAllString(line, "")
		line = parenthetical.ReplaceAllString(line, " ")
		line = clockTime.ReplaceAllString(line, " ")
		line = mealLabel.ReplaceAllString(line, "")

		for _, item := range itemSeparators.Split(line, -1) {
			name := clean(item)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// clean strips quantities, units, punctuation and filler words from one item.
func clean(item string) string {
	item = quantity.ReplaceAllString(item, " ")

	words := strings.FieldsFunc(strings.ToLower(item), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '-'
	})

	kept := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'-")
		if w == "" || stopWords[w] || unitWords[w] {
			continue
		}
		kept = append(kept, w)
	}

	name := strings.Join(kept, " ")
	if letterCount(name) < 3 {
		return ""
	}
	return name
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
