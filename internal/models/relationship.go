package models

import "time"

type RelationshipType string

const (
	RelationshipTypeRelated      RelationshipType = "related"
	RelationshipTypeSerial       RelationshipType = "serial"
	RelationshipTypeSameIncident RelationshipType = "same_incident"
)

// Valid reports whether t is a known relationship type.
func (t RelationshipType) Valid() bool {
	switch t {
	case RelationshipTypeRelated, RelationshipTypeSerial, RelationshipTypeSameIncident:
		return true
	default:
		return false
	}
}

type LinkReason string

const (
	LinkReasonSemantic      LinkReason = "semantic"
	LinkReasonLocation      LinkReason = "location"
	LinkReasonMO            LinkReason = "mo"
	LinkReasonTimeProximity LinkReason = "time_proximity"
	LinkReasonManual        LinkReason = "manual"
)

// Valid reports whether r is a known link reason.
func (r LinkReason) Valid() bool {
	switch r {
	case LinkReasonSemantic, LinkReasonLocation, LinkReasonMO, LinkReasonTimeProximity, LinkReasonManual:
		return true
	default:
		return false
	}
}

// CaseRelationship links two cases. The pair is unordered: A-B and B-A are the same relationship.
// Relationships are never modified after creation.
type CaseRelationship struct {
	ID               string           `json:"id"`
	CaseAID          string           `json:"case_a_id"`
	CaseBID          string           `json:"case_b_id"`
	RelationshipType RelationshipType `json:"relationship_type"`
	LinkReason       LinkReason       `json:"link_reason"`
	Confidence       float64          `json:"confidence"`
	Notes            string           `json:"notes,omitempty"`
	CreatedBy        string           `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Involves reports whether the relationship has caseID on either side.
func (r CaseRelationship) Involves(caseID string) bool {
	return r.CaseAID == caseID || r.CaseBID == caseID
}

// Other returns the case on the opposite side of caseID.
func (r CaseRelationship) Other(caseID string) string {
	if r.CaseAID == caseID {
		return r.CaseBID
	}
	return r.CaseAID
}
