package linking

import (
	"github.com/myrjola/caselink/internal/models"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		result SimilarityResult
		want   models.RelationshipType
	}{
		{
			name:   "very similar is the same incident",
			result: SimilarityResult{SimilarityScore: 0.9, MatchingFactors: []string{FactorLocation}},
			want:   models.RelationshipTypeSameIncident,
		},
		{
			name:   "same incident beats serial",
			result: SimilarityResult{SimilarityScore: 0.95, MatchingFactors: []string{FactorMO}},
			want:   models.RelationshipTypeSameIncident,
		},
		{
			name:   "matching MO above 0.8 is serial",
			result: SimilarityResult{SimilarityScore: 0.8, MatchingFactors: []string{FactorLocation, FactorMO}},
			want:   models.RelationshipTypeSerial,
		},
		{
			name:   "high score without MO is related",
			result: SimilarityResult{SimilarityScore: 0.85, MatchingFactors: []string{FactorSemantic}},
			want:   models.RelationshipTypeRelated,
		},
		{
			name:   "MO below 0.8 is related",
			result: SimilarityResult{SimilarityScore: 0.79, MatchingFactors: []string{FactorMO}},
			want:   models.RelationshipTypeRelated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, classify(tt.result))
		})
	}
}

func TestLinkReason(t *testing.T) {
	t.Parallel()
	tests := []struct {
		factors []string
		want    models.LinkReason
	}{
		{factors: []string{FactorLocation, FactorSemantic}, want: models.LinkReasonSemantic},
		{factors: []string{FactorTimeProximity, FactorLocation}, want: models.LinkReasonLocation},
		{factors: []string{FactorTimeProximity, FactorMO}, want: models.LinkReasonMO},
		{factors: []string{FactorTimeProximity}, want: models.LinkReasonTimeProximity},
		{factors: nil, want: models.LinkReasonSemantic},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, linkReason(SimilarityResult{MatchingFactors: tt.factors}), "%v", tt.factors)
	}
}

func TestFactorMatchers(t *testing.T) {
	t.Parallel()
	thresholds := map[string]struct {
		at, above float64
		inclusive bool
	}{
		FactorSemantic:      {at: 0.70, above: 0.71, inclusive: true},
		FactorLocation:      {at: 0.3, above: 0.31},
		FactorTimeProximity: {at: 0.3, above: 0.31},
		FactorMO:            {at: 0.5, above: 0.51},
	}
	require.Len(t, factorMatchers, len(thresholds))
	for _, m := range factorMatchers {
		th := thresholds[m.factor]
		require.Equal(t, th.inclusive, m.matches(th.at), m.factor)
		require.True(t, m.matches(th.above), m.factor)
		require.False(t, m.matches(0), m.factor)
	}
}
