package models_test

import (
	"encoding/json"
	"github.com/myrjola/caselink/internal/models"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestCase_IncidentTime(t *testing.T) {
	t.Parallel()
	created := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)
	start := created.Add(-time.Hour)
	tests := []struct {
		name      string
		timeframe *models.Timeframe
		want      time.Time
	}{
		{name: "no timeframe", timeframe: nil, want: created},
		{name: "timeframe without start", timeframe: &models.Timeframe{Description: "night"}, want: created},
		{name: "timeframe start", timeframe: &models.Timeframe{Start: &start}, want: start},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := models.Case{CreatedAt: created, Timeframe: tt.timeframe}
			require.True(t, tt.want.Equal(c.IncidentTime()))
		})
	}
}

func TestCase_SearchText(t *testing.T) {
	t.Parallel()
	c := models.Case{Title: " Robbery ", Summary: "", Location: "Main Street"}
	require.Equal(t, "Robbery Main Street", c.SearchText())
	require.Empty(t, models.Case{}.SearchText())
}

func TestCase_IsOpen(t *testing.T) {
	t.Parallel()
	require.True(t, models.Case{Status: models.CaseStatusOpen}.IsOpen())
	require.True(t, models.Case{}.IsOpen())
	require.False(t, models.Case{Status: models.CaseStatusClosed}.IsOpen())
}

func TestSceneElement_Attribute(t *testing.T) {
	t.Parallel()
	e := models.SceneElement{
		Type:        models.SceneElementVehicle,
		Description: "car",
		VehicleType: " ",
		Attributes:  map[string]string{"type": "sedan", "color": "red"},
		Color:       "blue",
	}
	require.Equal(t, "car", e.Attribute("description"))
	require.Equal(t, "sedan", e.Attribute("type"))
	require.Equal(t, "blue", e.Attribute("color"))
	require.Empty(t, e.Attribute("position"))
	require.False(t, e.HasSequenceInfo())

	e.Attributes["order"] = "2"
	require.True(t, e.HasSequenceInfo())
}

func TestRelationship(t *testing.T) {
	t.Parallel()
	require.True(t, models.RelationshipTypeSerial.Valid())
	require.False(t, models.RelationshipType("cousin").Valid())
	require.True(t, models.LinkReasonTimeProximity.Valid())
	require.False(t, models.LinkReason("").Valid())

	rel := models.CaseRelationship{CaseAID: "a", CaseBID: "b"}
	require.True(t, rel.Involves("b"))
	require.False(t, rel.Involves("c"))
	require.Equal(t, "a", rel.Other("b"))
	require.Equal(t, "b", rel.Other("a"))
}

func TestCaseMetadata_UnmarshalJSON(t *testing.T) {
	t.Parallel()
	var m models.CaseMetadata
	err := json.Unmarshal([]byte(`{"incident_type": "robbery", "severity": "high", "flags": {"weapon": "knife"},
"has_physical_evidence": "yes", "suspect_identified": [1]}`), &m)
	require.NoError(t, err)
	require.Equal(t, models.CaseMetadata{
		IncidentType:        "robbery",
		Severity:            "high",
		HasPhysicalEvidence: true,
		SuspectIdentified:   true,
		Flags:               map[string]string{"weapon": "knife"},
	}, m)

	require.NoError(t, json.Unmarshal([]byte(`{"has_physical_evidence": "off", "suspect_identified": []}`), &m))
	require.False(t, m.HasPhysicalEvidence)
	require.False(t, m.SuspectIdentified)

	require.Error(t, json.Unmarshal([]byte(`{"incident_type": 5}`), &m))
}
