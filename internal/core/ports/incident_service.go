package ports

import (
	"context"
	"time"

	"github.com/rackcentre/incident-logger/internal/core/domain"
)

// Attachment is an uploaded file passed from the transport layer.
type Attachment struct {
	Name string
	Data []byte
}

// IncidentInput carries the caller-supplied fields for create and update.
// Type and Impact arrive as free-form strings and are validated against
// their enumerations by the service.
type IncidentInput struct {
	Title       string
	Description string
	Date        time.Time
	Type        string
	Impact      string
}

// ListCriteria carries all query parameters for listing incidents. All
// filter fields are optional and combine with AND semantics.
type ListCriteria struct {
	Search    string
	Type      string
	Impact    string
	DateFrom  time.Time
	DateTo    time.Time
	SortBy    string // created_at (default), date, title, type, impact
	SortOrder string // asc or desc (default)
	Page      int    // 1-based
	Limit     int    // rows per page (capped by the service)
}

// ListResult is one page of the caller's own incidents.
type ListResult struct {
	Items      []*domain.Incident
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// AdminIncident joins an incident with its owner's live name and email,
// as opposed to the snapshot captured at creation time.
type AdminIncident struct {
	*domain.Incident
	Owner domain.Reporter `json:"owner"`
}

// AdminListResult is one page of the global incident view.
type AdminListResult struct {
	Items      []AdminIncident
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// Stats aggregates the incident collection. Group maps only contain enum
// values actually present in the data.
type Stats struct {
	Total      int64            `json:"total_incidents"`
	TotalUsers int64            `json:"total_users,omitempty"`
	Recent30d  int64            `json:"recent_incidents"`
	ByType     map[string]int64 `json:"by_type"`
	ByImpact   map[string]int64 `json:"by_impact"`
}

// UserWithCount is a user joined with the number of incidents they own.
type UserWithCount struct {
	*domain.User
	IncidentCount int64 `json:"incident_count"`
}

// Visibility scopes for read and aggregate operations.
const (
	ScopeSelf = "self"
	ScopeAll  = "all"
)

// IncidentService enforces ownership and role policy around the incident
// lifecycle and answers scoped queries over the collection.
type IncidentService interface {
	Create(ctx context.Context, owner *domain.User, in IncidentInput, file *Attachment) (*domain.Incident, error)
	Update(ctx context.Context, caller *domain.User, id string, in IncidentInput, file *Attachment) (*domain.Incident, error)
	// Delete removes the incident and best-effort cleans up its attachment.
	// With requireOwner the caller must own the record; the admin path
	// passes false and relies on the upstream admin check.
	Delete(ctx context.Context, caller *domain.User, id string, requireOwner bool) error
	// List returns the caller's own incidents; the owner constraint is
	// always conjoined regardless of criteria.
	List(ctx context.Context, caller *domain.User, criteria ListCriteria) (*ListResult, error)
	// AdminList returns every incident joined with its owner's live
	// name/email. Requires admin.
	AdminList(ctx context.Context, caller *domain.User, criteria ListCriteria) (*AdminListResult, error)
	// Stats aggregates over the caller's own records (ScopeSelf) or the
	// whole collection (ScopeAll, admin only).
	Stats(ctx context.Context, caller *domain.User, scope string) (*Stats, error)
	// AdminListUsers returns every non-admin user with their incident
	// count, newest-first. Requires admin.
	AdminListUsers(ctx context.Context, caller *domain.User) ([]UserWithCount, error)
}
