// Package priority ranks cases for investigator attention.
package priority

import (
	"fmt"
	"github.com/myrjola/caselink/internal/models"
	"math"
	"slices"
	"strings"
	"time"
)

const (
	maxSeverity          = 40.0
	maxAge               = 20.0
	maxSolvability       = 25.0
	maxWitness           = 15.0
	maxTotal             = 100.0
	baseSeverity         = 10.0
	textKeywordShare     = 0.8
	longSummaryChars     = 100
	specificLocationLen  = 5
	dayDuration          = 24 * time.Hour
	multipleReportsCount = 3
)

type Label string

const (
	LabelCritical Label = "critical"
	LabelHigh     Label = "high"
	LabelMedium   Label = "medium"
	LabelNormal   Label = "normal"
	LabelLow      Label = "low"
)

// Breakdown holds the capped sub-scores.
type Breakdown struct {
	Severity    float64 `json:"severity"`
	Age         float64 `json:"age"`
	Solvability float64 `json:"solvability"`
	Witness     float64 `json:"witness"`
}

// Score is the priority of a case at CalculatedAt. Factors explains the sub-scores in evaluation order.
type Score struct {
	CaseID       string    `json:"case_id"`
	TotalScore   float64   `json:"total_score"`
	Breakdown    Breakdown `json:"breakdown"`
	Label        Label     `json:"priority_label"`
	Factors      []string  `json:"factors"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// severityRule resolves a severity keyword from one source of the case.
type severityRule struct {
	source  string
	keyword func(c models.Case) string
}

// severityRules are evaluated in order and the first known keyword wins.
var severityRules = []severityRule{
	{source: "metadata.severity", keyword: func(c models.Case) string { return c.Metadata.Severity }},
	{source: "metadata.incident_subtype", keyword: func(c models.Case) string { return c.Metadata.IncidentSubtype }},
	{source: "metadata.incident_type", keyword: func(c models.Case) string { return c.Metadata.IncidentType }},
}

// ageStep awards points to open cases younger than maxDays. Older cases score higher.
type ageStep struct {
	maxDays float64
	points  float64
	label   string
}

var ageSteps = []ageStep{
	{maxDays: 1, points: 2, label: "less than a day"},
	{maxDays: 7, points: 3, label: "1-7 days"},
	{maxDays: 14, points: 5, label: "7-14 days"},
	{maxDays: 30, points: 8, label: "14-30 days"},
	{maxDays: 60, points: 12, label: "30-60 days"},
	{maxDays: 90, points: 16, label: "60-90 days"},
}

const agePointsStale = 20.0

// witnessPoints is indexed by report count; counts past the end get maxWitness.
var witnessPoints = []float64{0, 4, 7, 10, 12}

// Service calculates case priorities. It holds no state besides its clock.
type Service struct {
	now func() time.Time
}

// NewService creates a Service. A nil now uses [time.Now].
func NewService(now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{now: now}
}

// Calculate scores c given the number of witness reports filed for it.
func (s *Service) Calculate(c models.Case, reportCount int) Score {
	var (
		now     = s.now()
		factors []string
	)
	severity, factor := severityScore(c)
	factors = append(factors, factor)
	age, factor := ageScore(c, now)
	factors = append(factors, factor)
	solvability, solvabilityFactors := solvabilityScore(c, reportCount)
	factors = append(factors, solvabilityFactors...)
	witness, factor := witnessScore(reportCount)
	factors = append(factors, factor)

	total := math.Min(maxTotal, severity+age+solvability+witness)
	total = math.Round(total*10) / 10 //nolint:mnd // one decimal

	return Score{
		CaseID:     c.ID,
		TotalScore: total,
		Breakdown: Breakdown{
			Severity:    severity,
			Age:         age,
			Solvability: solvability,
			Witness:     witness,
		},
		Label:        labelFor(total),
		Factors:      factors,
		CalculatedAt: now,
	}
}

// Rank scores every case and sorts them by descending total. Ties keep the input order.
// reportCounts maps case IDs to their report count; missing entries count as zero reports.
func (s *Service) Rank(cases []models.Case, reportCounts map[string]int) []Score {
	scores := make([]Score, 0, len(cases))
	for _, c := range cases {
		scores = append(scores, s.Calculate(c, reportCounts[c.ID]))
	}
	slices.SortStableFunc(scores, func(a, b Score) int {
		switch {
		case a.TotalScore > b.TotalScore:
			return -1
		case a.TotalScore < b.TotalScore:
			return 1
		default:
			return 0
		}
	})
	return scores
}

func normalizeKeyword(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

func severityScore(c models.Case) (float64, string) {
	for _, rule := range severityRules {
		keyword := normalizeKeyword(rule.keyword(c))
		if weight, ok := severityWeights[keyword]; ok {
			return math.Min(maxSeverity, weight), fmt.Sprintf("Severity: %s (%s)", keyword, rule.source)
		}
	}

	keyword, weight := highestTextKeyword(c.Title + " " + c.Summary)
	if keyword != "" {
		score := math.Min(maxSeverity, math.Max(baseSeverity, weight*textKeywordShare))
		return score, fmt.Sprintf("Severity: %s mentioned in description", strings.ReplaceAll(keyword, "_", " "))
	}
	return baseSeverity, "Severity: unclassified"
}

// highestTextKeyword finds the highest weighted keyword in text. Multi-word keywords match as phrases.
func highestTextKeyword(text string) (string, float64) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	padded := " " + strings.Join(words, " ") + " "
	var (
		best       string
		bestWeight float64
	)
	for keyword, weight := range severityWeights {
		phrase := " " + strings.ReplaceAll(keyword, "_", " ") + " "
		if !strings.Contains(padded, phrase) {
			continue
		}
		// Equal weights resolve alphabetically so the result does not depend on map order.
		if weight > bestWeight || (weight == bestWeight && keyword < best) {
			best, bestWeight = keyword, weight
		}
	}
	return best, bestWeight
}

func ageScore(c models.Case, now time.Time) (float64, string) {
	if !c.IsOpen() {
		return 0, "Age: case closed"
	}
	if c.CreatedAt.IsZero() {
		return 0, "Age: unknown"
	}
	days := now.Sub(c.CreatedAt).Hours() / dayDuration.Hours()
	for _, step := range ageSteps {
		if days < step.maxDays {
			return step.points, fmt.Sprintf("Age: %s open", step.label)
		}
	}
	if days <= ageSteps[len(ageSteps)-1].maxDays {
		return ageSteps[len(ageSteps)-1].points, fmt.Sprintf("Age: %s open", ageSteps[len(ageSteps)-1].label)
	}
	return agePointsStale, "Age: over 90 days open"
}

func solvabilityScore(c models.Case, reportCount int) (float64, []string) {
	var (
		score   float64
		factors []string
	)
	add := func(points float64, factor string) {
		score += points
		factors = append(factors, fmt.Sprintf("Solvability: %s (+%g)", factor, points))
	}
	if strings.TrimSpace(c.SceneImageURL) != "" {
		add(5, "scene reconstruction available") //nolint:mnd // indicator points
	}
	if len(c.Summary) > longSummaryChars {
		add(5, "detailed summary") //nolint:mnd // indicator points
	}
	if len(strings.TrimSpace(c.Location)) > specificLocationLen {
		add(4, "specific location") //nolint:mnd // indicator points
	}
	if c.Timeframe != nil && strings.TrimSpace(c.Timeframe.Description) != "" {
		add(3, "timeframe known") //nolint:mnd // indicator points
	}
	switch {
	case reportCount >= multipleReportsCount:
		add(4, "multiple witness reports") //nolint:mnd // indicator points
	case reportCount == multipleReportsCount-1:
		add(2, "corroborating witness report") //nolint:mnd // indicator points
	}
	if c.Metadata.HasPhysicalEvidence {
		add(4, "physical evidence") //nolint:mnd // indicator points
	}
	if c.Metadata.SuspectIdentified {
		add(4, "suspect identified") //nolint:mnd // indicator points
	}
	if len(factors) == 0 {
		factors = append(factors, "Solvability: no indicators")
	}
	return math.Min(maxSolvability, score), factors
}

func witnessScore(reportCount int) (float64, string) {
	var points float64
	switch {
	case reportCount <= 0:
		points = 0
	case reportCount < len(witnessPoints):
		points = witnessPoints[reportCount]
	default:
		points = maxWitness
	}
	return points, fmt.Sprintf("Witnesses: %d report(s)", max(reportCount, 0))
}

func labelFor(total float64) Label {
	switch {
	case total >= 80: //nolint:mnd // label thresholds
		return LabelCritical
	case total >= 60: //nolint:mnd // label thresholds
		return LabelHigh
	case total >= 40: //nolint:mnd // label thresholds
		return LabelMedium
	case total >= 20: //nolint:mnd // label thresholds
		return LabelNormal
	default:
		return LabelLow
	}
}
