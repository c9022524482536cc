package domain

import "time"

// IncidentType classifies what kind of safety event occurred.
type IncidentType string

const (
	TypeInjury           IncidentType = "Injury"
	TypeNearMiss         IncidentType = "Near Miss"
	TypeHazard           IncidentType = "Hazard"
	TypeEnvironmental    IncidentType = "Environmental"
	TypeEquipmentFailure IncidentType = "Equipment Failure"
)

// IncidentTypes lists every legal incident type.
var IncidentTypes = []IncidentType{
	TypeInjury,
	TypeNearMiss,
	TypeHazard,
	TypeEnvironmental,
	TypeEquipmentFailure,
}

// Valid reports whether t is a member of the incident type enumeration.
func (t IncidentType) Valid() bool {
	for _, known := range IncidentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ImpactLevel is the ordered severity of an incident.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "Low"
	ImpactMedium   ImpactLevel = "Medium"
	ImpactHigh     ImpactLevel = "High"
	ImpactCritical ImpactLevel = "Critical"
)

// ImpactLevels lists every legal impact level in ascending severity order.
// The slice order defines the sort ordinal: Low < Medium < High < Critical.
var ImpactLevels = []ImpactLevel{
	ImpactLow,
	ImpactMedium,
	ImpactHigh,
	ImpactCritical,
}

// Valid reports whether l is a member of the impact enumeration.
func (l ImpactLevel) Valid() bool {
	return l.Ordinal() > 0
}

// Ordinal returns the 1-based severity rank (Low=1 .. Critical=4), or 0 for
// an unknown value. Sorting by impact uses this rank, never the string.
func (l ImpactLevel) Ordinal() int {
	for i, known := range ImpactLevels {
		if l == known {
			return i + 1
		}
	}
	return 0
}

// Reporter is the owner snapshot denormalized onto an incident at creation
// time. It deliberately does not track later changes to the user record;
// admin views join the live user instead.
type Reporter struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}

// Incident is the core aggregate: a single workplace safety report owned by
// exactly one user. File is the attachment key in the file store, or empty
// when no file is attached; a non-empty File always points at a stored object.
type Incident struct {
	ID          string       `json:"id" bson:"_id,omitempty"`
	UserID      string       `json:"user_id" bson:"user_id"`
	Reporter    Reporter     `json:"reporter" bson:"reporter"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description" bson:"description"`
	Date        time.Time    `json:"date" bson:"date"`
	Type        IncidentType `json:"type" bson:"type"`
	Impact      ImpactLevel  `json:"impact" bson:"impact"`
	File        string       `json:"file,omitempty" bson:"file,omitempty"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
}
