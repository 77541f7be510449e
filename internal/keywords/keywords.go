// Package keywords normalizes and scores the keyword lists used by the
// experience engine (C4): action_keywords matched against a tool-use
// description, and context_keywords matched against free-form session
// context. Both contribute a 0..1 "fraction matched" sub-score to the
// relevance formula.
package keywords

import (
	"regexp"
	"sort"
	"strings"
)

// Normalize lowercases, trims, dedupes and sorts a keyword list so it can
// be compared and persisted deterministically.
func Normalize(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func ParseCSV(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return Normalize(strings.Split(csv, ","))
}

// MatchFraction returns the fraction of keywords that appear as a
// substring of text, case-insensitively. An empty keyword list matches
// nothing (fraction 0), since "no keywords configured" should not count
// as a universal match.
func MatchFraction(text string, terms []string) float64 {
	norm := Normalize(terms)
	if len(norm) == 0 {
		return 0
	}
	t := strings.ToLower(text)
	if strings.TrimSpace(t) == "" {
		return 0
	}
	hits := 0
	for _, term := range norm {
		if strings.Contains(t, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(norm))
}

// MatchFractionWordBoundary is MatchFraction but requires each term to
// appear on a word boundary, so "git" does not match inside "digits".
func MatchFractionWordBoundary(text string, terms []string) float64 {
	norm := Normalize(terms)
	if len(norm) == 0 {
		return 0
	}
	t := strings.ToLower(text)
	if strings.TrimSpace(t) == "" {
		return 0
	}
	hits := 0
	for _, term := range norm {
		if regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`).MatchString(t) {
			hits++
		}
	}
	return float64(hits) / float64(len(norm))
}

// MatchedTerms returns the subset of terms that appear in text, normalized
// and sorted. Useful for surfacing why a score came out the way it did.
func MatchedTerms(text string, terms []string) []string {
	norm := Normalize(terms)
	t := strings.ToLower(text)
	out := make([]string, 0, len(norm))
	for _, term := range norm {
		if strings.Contains(t, term) {
			out = append(out, term)
		}
	}
	return out
}
