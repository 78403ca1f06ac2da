// Package match decides whether free-text search terms loosely match event text.
package match

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
)

// DefaultThreshold is the minimum similarity ratio for the fuzzy fallback.
const DefaultThreshold = 0.64

var (
	whitespace = regexp.MustCompile(`\s+`)
	word       = regexp.MustCompile(`[a-z0-9]+`)
)

// Normalize lowercases s, collapses whitespace runs and trims it.
func Normalize(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.ToLower(s), " "))
}

// stem strips one trailing "s". Good enough for plurals.
func stem(w string) string {
	return strings.TrimSuffix(w, "s")
}

func stems(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range word.FindAllString(s, -1) {
		out[stem(w)] = struct{}{}
	}
	return out
}

// Ratio is the similarity of a and b in [0,1]: twice the longest common
// subsequence over the combined length.
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(edlib.LCS(a, b)) / float64(total)
}

// LooseMatch tries, cheapest first: substring containment, every term stem
// present among the text stems, the doctor/dentist aliases, and finally the
// similarity ratio against threshold.
func LooseMatch(term, text string, threshold float64) bool {
	term = Normalize(term)
	text = Normalize(text)

	if term == "" || text == "" {
		return false
	}

	if strings.Contains(text, term) {
		return true
	}

	termStems := stems(term)
	textStems := stems(text)

	if len(termStems) > 0 && subset(termStems, textStems) {
		return true
	}

	if _, ok := termStems["doctor"]; ok && (has(textStems, "dr") || has(textStems, "doctor")) {
		return true
	}
	if _, ok := termStems["dentist"]; ok && has(textStems, "dentist") {
		return true
	}

	return Ratio(term, text) >= threshold
}

// MatchesAny reports whether any non-blank term loosely matches the event's
// summary, description and location.
func MatchesAny(terms []string, e calendar.Event) bool {
	text := e.Text()
	for _, t := range terms {
		if LooseMatch(t, text, DefaultThreshold) {
			return true
		}
	}
	return false
}

// Filter keeps the events matching any of terms, preserving order.
func Filter(events []calendar.Event, terms []string) []calendar.Event {
	out := make([]calendar.Event, 0)
	for _, e := range events {
		if MatchesAny(terms, e) {
			out = append(out, e)
		}
	}
	return out
}

// HasTerms reports whether at least one term is not blank.
func HasTerms(terms []string) bool {
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}

func subset(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func has(set map[string]struct{}, k string) bool {
	_, ok := set[k]
	return ok
}
