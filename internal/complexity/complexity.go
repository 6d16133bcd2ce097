// Package complexity scores how much detail a witness scene holds and decides when a reconstruction image
// is worth (re)generating.
package complexity

import (
	"github.com/myrjola/caselink/internal/models"
	"math"
	"strings"
)

const (
	DefaultMinScore         = 40.0
	DefaultIncrementalScore = 20.0
)

const (
	maxElementCount       = 20.0
	maxAttributes         = 25.0
	maxSpatial            = 20.0
	maxTemporal           = 15.0
	maxDetailRichness     = 10.0
	maxConversationDepth  = 10.0
	pointsPerElement      = 5.0
	sequenceShare         = 0.6
	actionShare           = 0.4
	detailsForFullScore   = 3.0
	turnsForFullScore     = 6.0
	detailCategoryCredits = 0.5
)

// Sub-score names used as keys of [Score.Breakdown].
const (
	ElementCount          = "element_count"
	AttributeCompleteness = "attribute_completeness"
	SpatialRelationships  = "spatial_relationships"
	TemporalSequence      = "temporal_sequence"
	DetailRichness        = "detail_richness"
	ConversationDepth     = "conversation_depth"
)

type Recommendation string

const (
	RecommendResolveContradictions  Recommendation = "resolve_contradictions"
	RecommendGatherMoreInfo         Recommendation = "gather_more_info"
	RecommendAskClarifyingQuestions Recommendation = "ask_clarifying_questions"
	RecommendBasicGeneration        Recommendation = "ready_for_basic_generation"
	RecommendDetailedGeneration     Recommendation = "ready_for_detailed_generation"
	RecommendHighQualityGeneration  Recommendation = "ready_for_high_quality_generation"
)

type QualityLevel string

const (
	QualityInsufficient QualityLevel = "insufficient"
	QualityMinimal      QualityLevel = "minimal"
	QualityBasic        QualityLevel = "basic"
	QualityGood         QualityLevel = "good"
	QualityExcellent    QualityLevel = "excellent"
)

// Reasons returned by [Scorer.ShouldGenerateImage].
const (
	ReasonSufficientInformation     = "sufficient_information"
	ReasonNeedMoreDetails           = "need_more_details"
	ReasonSignificantNewInformation = "significant_new_information"
	ReasonInsufficientNewInfo       = "insufficient_new_information"
)

// Score is the readiness of a scene for image generation. It is recomputed on every call.
type Score struct {
	TotalScore         float64            `json:"total_score"`
	Breakdown          map[string]float64 `json:"breakdown"`
	Recommendation     Recommendation     `json:"recommendation"`
	ReadyForGeneration bool               `json:"ready_for_generation"`
	QualityLevel       QualityLevel       `json:"quality_level"`
}

var requiredAttributes = map[models.SceneElementType][]string{
	models.SceneElementPerson:          {"description", "position", "color", "clothing"},
	models.SceneElementVehicle:         {"description", "type", "color", "position"},
	models.SceneElementObject:          {"description", "position", "color", "size"},
	models.SceneElementLocationFeature: {"description", "position"},
}

var defaultRequiredAttributes = []string{"description"}

var actionVerbs = []string{"running", "walking", "moving", "driving", "standing", "sitting"}

var detailCategories = [][]string{
	// color
	{"red", "blue", "green", "yellow", "black", "white", "gray", "grey", "brown", "orange", "purple", "pink",
		"silver", "gold", "dark", "light"},
	// size
	{"small", "large", "big", "tall", "short", "medium", "tiny", "huge", "wide", "narrow"},
	// material
	{"metal", "wooden", "wood", "plastic", "leather", "glass", "cotton", "denim", "fabric", "steel"},
	// condition
	{"new", "old", "damaged", "broken", "dirty", "clean", "rusty", "worn", "scratched", "dented"},
}

// Scorer holds the generation thresholds. The zero value is not usable, see [NewScorer].
type Scorer struct {
	minScore         float64
	incrementalScore float64
}

// NewScorer creates a Scorer. minScore gates the first image, incrementalScore gates every later image.
func NewScorer(minScore, incrementalScore float64) *Scorer {
	return &Scorer{
		minScore:         minScore,
		incrementalScore: incrementalScore,
	}
}

// NewDefaultScorer uses [DefaultMinScore] and [DefaultIncrementalScore].
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultMinScore, DefaultIncrementalScore)
}

// Calculate scores the scene from the extracted elements, the number of conversation turns and the
// contradictions found so far.
func (s *Scorer) Calculate(
	elements []models.SceneElement,
	conversationTurns int,
	contradictions []models.Contradiction,
) Score {
	breakdown := map[string]float64{
		ElementCount:          elementCountScore(elements),
		AttributeCompleteness: attributeScore(elements),
		SpatialRelationships:  spatialScore(elements),
		TemporalSequence:      temporalScore(elements),
		DetailRichness:        detailScore(elements),
		ConversationDepth:     conversationScore(conversationTurns),
	}
	var total float64
	for k, v := range breakdown {
		v = round2(v)
		breakdown[k] = v
		total += v
	}
	total = round2(math.Min(100, total)) //nolint:mnd // caps sum to 100

	recommendation := recommend(total, hasUnresolved(contradictions))
	return Score{
		TotalScore:         total,
		Breakdown:          breakdown,
		Recommendation:     recommendation,
		ReadyForGeneration: total >= s.minScore,
		QualityLevel:       quality(total),
	}
}

// ShouldGenerateImage decides whether a new image is justified. lastGenerationScore is nil when no image
// has been generated for the scene yet.
func (s *Scorer) ShouldGenerateImage(currentScore float64, lastGenerationScore *float64) (bool, string) {
	if lastGenerationScore == nil {
		if currentScore >= s.minScore {
			return true, ReasonSufficientInformation
		}
		return false, ReasonNeedMoreDetails
	}
	if currentScore-*lastGenerationScore >= s.incrementalScore {
		return true, ReasonSignificantNewInformation
	}
	return false, ReasonInsufficientNewInfo
}

func elementCountScore(elements []models.SceneElement) float64 {
	return math.Min(maxElementCount, pointsPerElement*float64(len(elements)))
}

func attributeScore(elements []models.SceneElement) float64 {
	var present, total int
	for _, e := range elements {
		required, ok := requiredAttributes[e.Type]
		if !ok {
			required = defaultRequiredAttributes
		}
		for _, attr := range required {
			total++
			if e.Attribute(attr) != "" {
				present++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return maxAttributes * float64(present) / float64(total)
}

func spatialScore(elements []models.SceneElement) float64 {
	if len(elements) == 0 {
		return 0
	}
	positioned := 0
	for _, e := range elements {
		if e.Attribute("position") != "" {
			positioned++
		}
	}
	return maxSpatial * float64(positioned) / float64(len(elements))
}

func temporalScore(elements []models.SceneElement) float64 {
	var share float64
	for _, e := range elements {
		if e.HasSequenceInfo() {
			share += sequenceShare
			break
		}
	}
	for _, e := range elements {
		if containsAny(strings.ToLower(e.Description), actionVerbs) {
			share += actionShare
			break
		}
	}
	return maxTemporal * math.Min(1, share)
}

func detailScore(elements []models.SceneElement) float64 {
	if len(elements) == 0 {
		return 0
	}
	var details float64
	for _, e := range elements {
		if e.Attribute("color") != "" {
			details++
		}
		if e.Attribute("size") != "" {
			details++
		}
		description := strings.ToLower(e.Description)
		for _, category := range detailCategories {
			if containsAny(description, category) {
				details += detailCategoryCredits
			}
		}
	}
	avg := details / float64(len(elements))
	return maxDetailRichness * math.Min(1, avg/detailsForFullScore)
}

func conversationScore(turns int) float64 {
	if turns <= 0 {
		return 0
	}
	return maxConversationDepth * math.Min(1, float64(turns)/turnsForFullScore)
}

// containsAny reports whether text holds any of the words as a whole word.
func containsAny(text string, words []string) bool {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return (r < 'a' || r > 'z') && r != '-'
	})
	for _, token := range tokens {
		for _, w := range words {
			if token == w {
				return true
			}
		}
	}
	return false
}

func hasUnresolved(contradictions []models.Contradiction) bool {
	for _, c := range contradictions {
		if !c.Resolved {
			return true
		}
	}
	return false
}

func recommend(total float64, unresolved bool) Recommendation {
	switch {
	case unresolved:
		return RecommendResolveContradictions
	case total < 20: //nolint:mnd // recommendation boundaries
		return RecommendGatherMoreInfo
	case total < 40: //nolint:mnd // recommendation boundaries
		return RecommendAskClarifyingQuestions
	case total < 60: //nolint:mnd // recommendation boundaries
		return RecommendBasicGeneration
	case total < 80: //nolint:mnd // recommendation boundaries
		return RecommendDetailedGeneration
	default:
		return RecommendHighQualityGeneration
	}
}

func quality(total float64) QualityLevel {
	switch {
	case total < 20: //nolint:mnd // quality boundaries
		return QualityInsufficient
	case total < 40: //nolint:mnd // quality boundaries
		return QualityMinimal
	case total < 60: //nolint:mnd // quality boundaries
		return QualityBasic
	case total < 80: //nolint:mnd // quality boundaries
		return QualityGood
	default:
		return QualityExcellent
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100 //nolint:mnd // two decimals
}
