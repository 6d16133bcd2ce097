package models

import "strings"

type SceneElementType string

const (
	SceneElementPerson          SceneElementType = "person"
	SceneElementVehicle         SceneElementType = "vehicle"
	SceneElementObject          SceneElementType = "object"
	SceneElementLocationFeature SceneElementType = "location_feature"
)

// SceneElement is a thing a witness described, extracted from the interview.
type SceneElement struct {
	Type        SceneElementType `json:"type"`
	Description string           `json:"description"`
	Position    string           `json:"position,omitempty"`
	Color       string           `json:"color,omitempty"`
	Size        string           `json:"size,omitempty"`
	// Clothing applies to people.
	Clothing string `json:"clothing,omitempty"`
	// VehicleType applies to vehicles, e.g. "sedan".
	VehicleType string `json:"vehicle_type,omitempty"`
	// Sequence orders the element in the witness timeline. Nil when unknown.
	Sequence   *int              `json:"sequence,omitempty"`
	Timestamp  string            `json:"timestamp,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attribute returns the trimmed value of the named attribute. Dedicated fields win over Attributes.
func (e SceneElement) Attribute(name string) string {
	var v string
	switch name {
	case "description":
		v = e.Description
	case "position":
		v = e.Position
	case "color":
		v = e.Color
	case "size":
		v = e.Size
	case "clothing":
		v = e.Clothing
	case "type":
		v = e.VehicleType
	case "timestamp":
		v = e.Timestamp
	}
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return strings.TrimSpace(e.Attributes[name])
}

// HasSequenceInfo reports whether the element carries ordering information.
func (e SceneElement) HasSequenceInfo() bool {
	if e.Sequence != nil || e.Attribute("timestamp") != "" {
		return true
	}
	return e.Attribute("sequence") != "" || e.Attribute("order") != ""
}

// Contradiction is a conflict between witness statements found during the interview.
type Contradiction struct {
	Description string `json:"description"`
	Resolved    bool   `json:"resolved"`
}
