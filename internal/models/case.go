package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type CaseStatus string

const (
	CaseStatusOpen   CaseStatus = "open"
	CaseStatusClosed CaseStatus = "closed"
)

// Case is an investigated incident. Cases are soft-closed, never deleted.
type Case struct {
	ID            string       `json:"id"`
	CaseNumber    string       `json:"case_number"`
	Title         string       `json:"title"`
	Summary       string       `json:"summary"`
	Location      string       `json:"location"`
	Status        CaseStatus   `json:"status"`
	Metadata      CaseMetadata `json:"metadata"`
	SceneImageURL string       `json:"scene_image_url,omitempty"`
	Timeframe     *Timeframe   `json:"timeframe,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// CaseMetadata holds the categorical incident data used for severity and modus operandi comparisons.
type CaseMetadata struct {
	// IncidentType is the broad category, e.g. "robbery" or "traffic".
	IncidentType string `json:"incident_type,omitempty"`
	// IncidentSubtype refines IncidentType, e.g. "armed_robbery".
	IncidentSubtype string `json:"incident_subtype,omitempty"`
	// Severity is either a crime keyword or a generic level such as "high".
	Severity            string            `json:"severity,omitempty"`
	HasPhysicalEvidence bool              `json:"has_physical_evidence,omitempty"`
	SuspectIdentified   bool              `json:"suspect_identified,omitempty"`
	Flags               map[string]string `json:"flags,omitempty"`
}

// UnmarshalJSON reads the evidence flags leniently: besides booleans, non-zero numbers and strings such as
// "yes" count as true.
func (m *CaseMetadata) UnmarshalJSON(data []byte) error {
	type plain CaseMetadata
	aux := struct {
		*plain
		HasPhysicalEvidence json.RawMessage `json:"has_physical_evidence,omitempty"`
		SuspectIdentified   json.RawMessage `json:"suspect_identified,omitempty"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err //nolint:wrapcheck // decoding errors are wrapped by the caller
	}
	m.HasPhysicalEvidence = truthy(aux.HasPhysicalEvidence)
	m.SuspectIdentified = truthy(aux.SuspectIdentified)
	return nil
}

var falsyStrings = []string{"", "false", "0", "no", "n", "off"}

func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	var (
		b bool
		f float64
		s string
	)
	switch {
	case json.Unmarshal(raw, &b) == nil:
		return b
	case json.Unmarshal(raw, &f) == nil:
		return f != 0
	case json.Unmarshal(raw, &s) == nil:
		s = strings.ToLower(strings.TrimSpace(s))
		for _, falsy := range falsyStrings {
			if s == falsy {
				return false
			}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n != 0
		}
		return true
	default:
		// Non-empty arrays and objects.
		return len(raw) > len("[]")
	}
}

// Timeframe describes when the incident happened as told by witnesses.
type Timeframe struct {
	Description string     `json:"description,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
}

// IsOpen reports whether the case still needs investigator attention.
func (c Case) IsOpen() bool {
	return c.Status != CaseStatusClosed
}

// IncidentTime is the start of the reported timeframe, falling back to the creation time.
// The zero time means the incident time is unknown.
func (c Case) IncidentTime() time.Time {
	if c.Timeframe != nil && c.Timeframe.Start != nil && !c.Timeframe.Start.IsZero() {
		return *c.Timeframe.Start
	}
	return c.CreatedAt
}

// SearchText joins the free-text fields used for semantic comparison.
func (c Case) SearchText() string {
	parts := make([]string, 0, 3) //nolint:mnd // title, summary, location
	for _, p := range []string{c.Title, c.Summary, c.Location} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
