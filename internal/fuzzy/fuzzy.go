// Package fuzzy scores venue and artist name similarity. Plain edit
// distance over full venue names is unreliable: unrelated venues share
// generic words ("... Lounge") and well-known venues go by a short core
// name buried in a long official one ("The Gorge" vs "Gorge
// Amphitheatre"). IsFuzzyMatch runs a staged comparison that handles
// both failure modes before falling back to an overall score.
package fuzzy

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultThreshold = 70

// stopwords are tokens too generic to count as evidence that two names
// refer to the same place.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "at": true, "of": true,
	"and": true, "in": true, "on": true,
	"theatre": true, "theater": true, "arena": true, "hall": true,
	"amphitheatre": true, "amphitheater": true, "pavilion": true,
	"auditorium": true, "ballroom": true, "club": true, "lounge": true,
	"stadium": true, "center": true, "centre": true, "venue": true,
	"bar": true, "house": true, "room": true, "stage": true,
	"live": true, "music": true, "concert": true,
}

// venueSuffixes are generic venue-type words stripped from the tail of a
// name during normalization.
var venueSuffixes = []string{
	"theatre", "theater", "arena", "hall", "amphitheatre", "amphitheater",
	"pavilion", "auditorium", "ballroom", "club", "lounge", "stadium",
	"center", "centre", "venue", "bar", "house", "room", "stage",
	"music hall", "concert hall", "events center", "event center",
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

type Match struct {
	Name  string
	Score int
}

// Similarity returns an edit-distance score in [0,100]. Identical
// strings after lowercasing score 100; either string empty scores 0.
func Similarity(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	dist := levenshtein.ComputeDistance(a, b)
	if dist >= maxLen {
		return 0
	}
	return 100 * (maxLen - dist) / maxLen
}

// IsFuzzyMatch reports whether two names plausibly refer to the same
// entity. Stages short-circuit on the first success; the significant-word
// gate can reject outright before the score is consulted.
func IsFuzzyMatch(a, b string, threshold int) bool {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == "" || lb == "" {
		return false
	}

	// Stage 1: exact, case-insensitive.
	if la == lb {
		return true
	}

	// Stage 2: raw substring containment, before normalization. A short
	// proper name like "Massey" survives inside "Massey Pavilion at the
	// Fairgrounds" here even though normalization would cut the clause
	// that contains it.
	if len(la) >= 4 && strings.Contains(lb, la) {
		return true
	}
	if len(lb) >= 4 && strings.Contains(la, lb) {
		return true
	}

	na := NormalizeVenueName(a)
	nb := NormalizeVenueName(b)
	if na != "" && na == nb {
		return true
	}

	// Stage 3: normalized substring containment.
	if len(na) >= 4 && strings.Contains(nb, na) {
		return true
	}
	if len(nb) >= 4 && strings.Contains(na, nb) {
		return true
	}

	// Stage 4: core names.
	ca := CoreName(a)
	cb := CoreName(b)
	if ca != "" && cb != "" {
		if ca == cb || strings.Contains(ca, cb) || strings.Contains(cb, ca) {
			return true
		}
	}

	// Stage 5: at least one significant word from each name must match
	// the other, or the pair is rejected regardless of score.
	if !significantWordOverlap(na, nb) {
		return false
	}

	// Stage 6: overall score.
	return Similarity(na, nb) >= threshold
}

// BestMatch returns the highest-scoring candidate that passes
// IsFuzzyMatch against target, or nil if none do.
func BestMatch(target string, candidates []string, threshold int) *Match {
	var best *Match
	for _, c := range candidates {
		if !IsFuzzyMatch(target, c, threshold) {
			continue
		}
		score := Similarity(NormalizeVenueName(target), NormalizeVenueName(c))
		if strings.EqualFold(strings.TrimSpace(target), strings.TrimSpace(c)) {
			score = 100
		}
		if best == nil || score > best.Score {
			best = &Match{Name: c, Score: score}
		}
	}
	return best
}

// NormalizeVenueName lowercases, strips accents and punctuation, drops a
// leading "The", cuts a trailing "at <place>" / "@ <place>" clause, and
// removes generic venue-type suffix words.
func NormalizeVenueName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(accentStripper, s); err == nil {
		s = folded
	}

	// Cut "<name> at <place>" and "<name> @ <place>" down to <name>.
	for _, sep := range []string{" at ", " @ "} {
		if idx := strings.Index(s, sep); idx > 0 {
			s = s[:idx]
		}
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	s = strings.Join(strings.Fields(b.String()), " ")

	s = strings.TrimPrefix(s, "the ")

	for changed := true; changed; {
		changed = false
		for _, suffix := range venueSuffixes {
			if s != suffix && strings.HasSuffix(s, " "+suffix) {
				s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
				changed = true
			}
		}
	}

	return strings.TrimSpace(s)
}

// CoreName reduces a venue name to its shortest meaningful token
// sequence: normalization plus removal of stopwords and 1-2 character
// tokens. "The Gorge Amphitheatre" becomes "gorge".
func CoreName(name string) string {
	var core []string
	for _, tok := range strings.Fields(NormalizeVenueName(name)) {
		if len(tok) <= 2 || stopwords[tok] {
			continue
		}
		core = append(core, tok)
	}
	return strings.Join(core, " ")
}

func significantTokens(normalized string) []string {
	var toks []string
	for _, tok := range strings.Fields(normalized) {
		if len(tok) <= 2 || stopwords[tok] {
			continue
		}
		toks = append(toks, tok)
	}
	return toks
}

func significantWordOverlap(na, nb string) bool {
	ta := significantTokens(na)
	tb := significantTokens(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	return tokenSetsOverlap(ta, tb) && tokenSetsOverlap(tb, ta)
}

// tokenSetsOverlap reports whether any token in from matches a token in
// to by equality, containment, or 80% pairwise similarity.
func tokenSetsOverlap(from, to []string) bool {
	for _, a := range from {
		for _, b := range to {
			if a == b {
				return true
			}
			if len(a) >= 4 && len(b) >= 4 &&
				(strings.Contains(a, b) || strings.Contains(b, a)) {
				return true
			}
			if Similarity(a, b) >= 80 {
				return true
			}
		}
	}
	return false
}
