// Package similarity holds the pairwise case similarity factors: semantic, location, time proximity and
// modus operandi. All functions are pure.
package similarity

import (
	"github.com/myrjola/caselink/internal/models"
	"math"
	"strings"
	"time"
)

// TimeWindow is the distance at which two incidents are no longer considered close in time.
const TimeWindow = 48 * time.Hour

const (
	substringLocationScore = 0.8
	incidentTypeWeight     = 1.0
	incidentSubtypeWeight  = 1.0
	severityWeight         = 0.5
)

var locationStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "in": {}, "on": {}, "at": {}, "to": {},
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Vectors of different length or with zero magnitude score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors slightly past 1.
	return math.Max(-1, math.Min(1, cos))
}

// Location compares two free-text locations.
//
// Exact case-insensitive matches score 1.0, containment scores 0.8, otherwise the score is the Jaccard
// overlap of the words without stopwords. Empty locations score 0.
func Location(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return substringLocationScore
	}
	wordsA := locationWords(a)
	wordsB := locationWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func locationWords(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,;:!?()\"'")
		if w == "" {
			continue
		}
		if _, stop := locationStopwords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

// TimeProximity decays linearly from 1.0 at the same instant to 0 at [TimeWindow] apart.
// A zero time is treated as missing and scores 0.
func TimeProximity(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	if delta >= TimeWindow {
		return 0
	}
	return 1 - float64(delta)/float64(TimeWindow)
}

// TimeProximityString parses both timestamps with [ParseTimestamp] before comparing them.
func TimeProximityString(a, b string) float64 {
	ta, _ := ParseTimestamp(a)
	tb, _ := ParseTimestamp(b)
	return TimeProximity(ta, tb)
}

// MO compares the modus operandi metadata. Only fields present on both sides count. Type and subtype
// matches weigh 1.0, severity matches 0.5, and the sum is divided by the number of compared fields.
func MO(a, b models.CaseMetadata) float64 {
	fields := []struct {
		a, b   string
		weight float64
	}{
		{a.IncidentType, b.IncidentType, incidentTypeWeight},
		{a.IncidentSubtype, b.IncidentSubtype, incidentSubtypeWeight},
		{a.Severity, b.Severity, severityWeight},
	}
	var (
		score   float64
		factors int
	)
	for _, f := range fields {
		va, vb := strings.TrimSpace(f.a), strings.TrimSpace(f.b)
		if va == "" || vb == "" {
			continue
		}
		factors++
		if strings.EqualFold(va, vb) {
			score += f.weight
		}
	}
	if factors == 0 {
		return 0
	}
	return score / float64(factors)
}
