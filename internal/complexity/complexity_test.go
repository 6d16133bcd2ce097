package complexity_test

import (
	"github.com/myrjola/caselink/internal/complexity"
	"github.com/myrjola/caselink/internal/models"
	"github.com/stretchr/testify/require"
	"testing"
)

func ptr[T any](v T) *T {
	return &v
}

func fullyDescribedScene() []models.SceneElement {
	return []models.SceneElement{
		{
			Type:        models.SceneElementPerson,
			Description: "tall man in a red jacket running north",
			Position:    "near the door",
			Color:       "red",
			Clothing:    "jacket",
			Sequence:    ptr(1),
		},
		{
			Type:        models.SceneElementVehicle,
			Description: "dark blue sedan",
			VehicleType: "sedan",
			Color:       "blue",
			Position:    "parked at the curb",
		},
		{
			Type:        models.SceneElementObject,
			Description: "small metal box",
			Position:    "on the counter",
			Color:       "silver",
			Size:        "small",
		},
		{
			Type:        models.SceneElementLocationFeature,
			Description: "broken street lamp",
			Position:    "corner",
		},
	}
}

func TestScorer_Calculate(t *testing.T) {
	scorer := complexity.NewDefaultScorer()

	tests := []struct {
		name               string
		elements           []models.SceneElement
		turns              int
		contradictions     []models.Contradiction
		wantTotal          float64
		wantBreakdown      map[string]float64
		wantRecommendation complexity.Recommendation
		wantQuality        complexity.QualityLevel
		wantReady          bool
	}{
		{
			name:      "empty scene",
			wantTotal: 0,
			wantBreakdown: map[string]float64{
				complexity.ElementCount:          0,
				complexity.AttributeCompleteness: 0,
				complexity.SpatialRelationships:  0,
				complexity.TemporalSequence:      0,
				complexity.DetailRichness:        0,
				complexity.ConversationDepth:     0,
			},
			wantRecommendation: complexity.RecommendGatherMoreInfo,
			wantQuality:        complexity.QualityInsufficient,
		},
		{
			name:      "single vague person",
			elements:  []models.SceneElement{{Type: models.SceneElementPerson, Description: "someone"}},
			turns:     3,
			wantTotal: 16.25,
			wantBreakdown: map[string]float64{
				complexity.ElementCount:          5,
				complexity.AttributeCompleteness: 6.25,
				complexity.SpatialRelationships:  0,
				complexity.TemporalSequence:      0,
				complexity.DetailRichness:        0,
				complexity.ConversationDepth:     5,
			},
			wantRecommendation: complexity.RecommendGatherMoreInfo,
			wantQuality:        complexity.QualityInsufficient,
		},
		{
			name:      "fully described scene",
			elements:  fullyDescribedScene(),
			turns:     6,
			wantTotal: 95.83,
			wantBreakdown: map[string]float64{
				complexity.ElementCount:          20,
				complexity.AttributeCompleteness: 25,
				complexity.SpatialRelationships:  20,
				complexity.TemporalSequence:      15,
				complexity.DetailRichness:        5.83,
				complexity.ConversationDepth:     10,
			},
			wantRecommendation: complexity.RecommendHighQualityGeneration,
			wantQuality:        complexity.QualityExcellent,
			wantReady:          true,
		},
		{
			name:     "unresolved contradiction wins over score",
			elements: fullyDescribedScene(),
			turns:    12,
			contradictions: []models.Contradiction{
				{Description: "car color", Resolved: true},
				{Description: "time of day", Resolved: false},
			},
			wantTotal: 95.83,
			wantBreakdown: map[string]float64{
				complexity.ElementCount:          20,
				complexity.AttributeCompleteness: 25,
				complexity.SpatialRelationships:  20,
				complexity.TemporalSequence:      15,
				complexity.DetailRichness:        5.83,
				complexity.ConversationDepth:     10,
			},
			wantRecommendation: complexity.RecommendResolveContradictions,
			wantQuality:        complexity.QualityExcellent,
			wantReady:          true,
		},
		{
			name: "unknown element type needs only a description",
			elements: []models.SceneElement{
				{Type: "animal", Description: "dog walking", Attributes: map[string]string{"order": "2"}},
				{Type: "animal", Description: "cat"},
			},
			turns:     0,
			wantTotal: 50,
			wantBreakdown: map[string]float64{
				complexity.ElementCount:          10,
				complexity.AttributeCompleteness: 25,
				complexity.SpatialRelationships:  0,
				complexity.TemporalSequence:      15,
				complexity.DetailRichness:        0,
				complexity.ConversationDepth:     0,
			},
			wantRecommendation: complexity.RecommendBasicGeneration,
			wantQuality:        complexity.QualityBasic,
			wantReady:          true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := scorer.Calculate(tt.elements, tt.turns, tt.contradictions)
			require.InDelta(t, tt.wantTotal, got.TotalScore, 1e-9)
			require.InDeltaMapValues(t, tt.wantBreakdown, got.Breakdown, 1e-9)
			require.Equal(t, tt.wantRecommendation, got.Recommendation)
			require.Equal(t, tt.wantQuality, got.QualityLevel)
			require.Equal(t, tt.wantReady, got.ReadyForGeneration)
		})
	}
}

func TestScorer_CalculateFullyAttributedWithoutActions(t *testing.T) {
	t.Parallel()
	elements := []models.SceneElement{
		{Type: models.SceneElementPerson, Description: "man", Position: "left", Color: "grey", Clothing: "coat",
			Sequence: ptr(1)},
		{Type: models.SceneElementPerson, Description: "woman", Position: "right", Color: "green", Clothing: "dress"},
		{Type: models.SceneElementObject, Description: "bag", Position: "floor", Color: "brown", Size: "large"},
		{Type: models.SceneElementLocationFeature, Description: "doorway", Position: "back"},
	}
	got := complexity.NewDefaultScorer().Calculate(elements, 6, nil)
	require.GreaterOrEqual(t, got.TotalScore, 80.0)
	require.Equal(t, complexity.RecommendHighQualityGeneration, got.Recommendation)
}

func TestScorer_RecommendationBoundaries(t *testing.T) {
	t.Parallel()
	scorer := complexity.NewDefaultScorer()
	// A person with a description only scores 11.25; conversation turns add up to 10.
	tests := []struct {
		turns   int
		want    complexity.Recommendation
		quality complexity.QualityLevel
	}{
		{turns: 0, want: complexity.RecommendGatherMoreInfo, quality: complexity.QualityInsufficient},
		{turns: 6, want: complexity.RecommendAskClarifyingQuestions, quality: complexity.QualityMinimal},
	}
	elements := []models.SceneElement{
		{Type: models.SceneElementPerson, Description: "someone"},
	}
	for _, tt := range tests {
		got := scorer.Calculate(elements, tt.turns, nil)
		require.Equal(t, tt.want, got.Recommendation, "turns=%d total=%v", tt.turns, got.TotalScore)
		require.Equal(t, tt.quality, got.QualityLevel)
	}
}

func TestScorer_ShouldGenerateImage(t *testing.T) {
	t.Parallel()
	scorer := complexity.NewDefaultScorer()

	tests := []struct {
		name       string
		current    float64
		last       *float64
		want       bool
		wantReason string
	}{
		{name: "first image with enough detail", current: 45, want: true,
			wantReason: complexity.ReasonSufficientInformation},
		{name: "first image at threshold", current: 40, want: true,
			wantReason: complexity.ReasonSufficientInformation},
		{name: "first image without enough detail", current: 39, want: false,
			wantReason: complexity.ReasonNeedMoreDetails},
		{name: "significant improvement", current: 65, last: ptr(50.0), want: true,
			wantReason: complexity.ReasonSignificantNewInformation},
		{name: "improvement at threshold", current: 70, last: ptr(50.0), want: true,
			wantReason: complexity.ReasonSignificantNewInformation},
		{name: "small improvement", current: 55, last: ptr(50.0), want: false,
			wantReason: complexity.ReasonInsufficientNewInfo},
		{name: "score dropped", current: 30, last: ptr(50.0), want: false,
			wantReason: complexity.ReasonInsufficientNewInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, reason := scorer.ShouldGenerateImage(tt.current, tt.last)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestNewScorer_CustomThresholds(t *testing.T) {
	t.Parallel()
	scorer := complexity.NewScorer(60, 5)
	ok, _ := scorer.ShouldGenerateImage(55, nil)
	require.False(t, ok)
	ok, _ = scorer.ShouldGenerateImage(56, ptr(50.0))
	require.True(t, ok)
}
