package linking

import "github.com/myrjola/caselink/internal/models"

// Factor thresholds. Semantic is inclusive, the others must be exceeded.
const (
	semanticThreshold      = 0.70
	locationThreshold      = 0.3
	timeProximityThreshold = 0.3
	moThreshold            = 0.5
)

const (
	sameIncidentMinScore = 0.9
	serialMinScore       = 0.8
)

// factorMatcher decides whether a factor score is strong enough to count towards the similarity mean.
type factorMatcher struct {
	factor  string
	matches func(score float64) bool
}

var factorMatchers = []factorMatcher{
	{factor: FactorSemantic, matches: func(score float64) bool { return score >= semanticThreshold }},
	{factor: FactorLocation, matches: func(score float64) bool { return score > locationThreshold }},
	{factor: FactorTimeProximity, matches: func(score float64) bool { return score > timeProximityThreshold }},
	{factor: FactorMO, matches: func(score float64) bool { return score > moThreshold }},
}

// typeRule assigns a relationship type to a result. Rules are evaluated in order, the first match wins.
type typeRule struct {
	relationshipType models.RelationshipType
	applies          func(r SimilarityResult) bool
}

var typeRules = []typeRule{
	{
		relationshipType: models.RelationshipTypeSameIncident,
		applies:          func(r SimilarityResult) bool { return r.SimilarityScore >= sameIncidentMinScore },
	},
	{
		relationshipType: models.RelationshipTypeSerial,
		applies: func(r SimilarityResult) bool {
			return r.Matches(FactorMO) && r.SimilarityScore >= serialMinScore
		},
	},
}

// linkReasonOrder is the priority of factors when naming why two cases were linked.
var linkReasonOrder = []struct {
	factor string
	reason models.LinkReason
}{
	{factor: FactorSemantic, reason: models.LinkReasonSemantic},
	{factor: FactorLocation, reason: models.LinkReasonLocation},
	{factor: FactorMO, reason: models.LinkReasonMO},
	{factor: FactorTimeProximity, reason: models.LinkReasonTimeProximity},
}

func classify(r SimilarityResult) models.RelationshipType {
	for _, rule := range typeRules {
		if rule.applies(r) {
			return rule.relationshipType
		}
	}
	return models.RelationshipTypeRelated
}

func linkReason(r SimilarityResult) models.LinkReason {
	for _, candidate := range linkReasonOrder {
		if r.Matches(candidate.factor) {
			return candidate.reason
		}
	}
	return models.LinkReasonSemantic
}
