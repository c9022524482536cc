package ports

import (
	"context"
	"time"

	"github.com/rackcentre/incident-logger/internal/core/domain"
)

// IncidentFilter carries the conjunctive criteria applied to incident queries.
// A zero value for any field contributes no constraint. UserID is set by the
// service layer when the visibility scope is self-owned; callers cannot widen
// their scope through the other criteria.
type IncidentFilter struct {
	UserID   string    // non-empty = scoped to owner
	Search   string    // case-insensitive substring over title and description
	Type     string    // exact match
	Impact   string    // exact match
	DateFrom time.Time // occurrence date >= DateFrom
	DateTo   time.Time // occurrence date <= DateTo
}

// IncidentSort selects the sort key and direction for listings. Field "impact"
// sorts by severity ordinal, not lexicographically.
type IncidentSort struct {
	Field      string // created_at (default), date, title, type, impact
	Descending bool
}

// IncidentRepository defines persistence primitives for incidents.
type IncidentRepository interface {
	Insert(ctx context.Context, inc *domain.Incident) (*domain.Incident, error)
	FindByID(ctx context.Context, id string) (*domain.Incident, error)
	// Find returns the page of incidents matching filter, ordered by sort.
	// skip/limit slice the sorted result; limit <= 0 means no limit.
	Find(ctx context.Context, filter IncidentFilter, sort IncidentSort, skip, limit int64) ([]*domain.Incident, error)
	Count(ctx context.Context, filter IncidentFilter) (int64, error)
	// AggregateGroupCount groups matching incidents by the given field and
	// returns a count per distinct value actually present. Absent enum
	// values produce no entry.
	AggregateGroupCount(ctx context.Context, filter IncidentFilter, groupField string) (map[string]int64, error)
	// CountCreatedSince counts incidents whose creation timestamp is at or
	// after the given instant.
	CountCreatedSince(ctx context.Context, filter IncidentFilter, since time.Time) (int64, error)
	UpdateByID(ctx context.Context, id string, inc *domain.Incident) error
	DeleteByID(ctx context.Context, id string) error
}
