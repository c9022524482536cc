package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rackcentre/incident-logger/internal/core/domain"
	"github.com/rackcentre/incident-logger/internal/core/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// StatsCache abstracts the short-lived cache in front of the admin stats
// aggregation (Redis). A (nil, nil) Get is a miss.
type StatsCache interface {
	Get(ctx context.Context) (*ports.Stats, error)
	Set(ctx context.Context, stats *ports.Stats) error
}

// IncidentService is the lifecycle manager and query engine for incidents.
// It owns the ownership/role policy and the file-store sequencing; the
// repositories below it enforce nothing.
type IncidentService struct {
	incidents ports.IncidentRepository
	users     ports.UserRepository
	files     ports.FileStore
	cache     StatsCache // optional
	logger    zerolog.Logger
}

func NewIncidentService(
	incidents ports.IncidentRepository,
	users ports.UserRepository,
	files ports.FileStore,
	cache StatsCache,
	logger zerolog.Logger,
) *IncidentService {
	return &IncidentService{
		incidents: incidents,
		users:     users,
		files:     files,
		cache:     cache,
		logger:    logger,
	}
}

// Create validates the input, stores the attachment (if any) before touching
// the incident collection, and persists the new record with the owner
// snapshot captured from the caller.
func (s *IncidentService) Create(ctx context.Context, owner *domain.User, in ports.IncidentInput, file *ports.Attachment) (*domain.Incident, error) {
	incType, impact, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	var fileKey string
	if file != nil && len(file.Data) > 0 {
		fileKey, err = s.files.Put(ctx, file.Data, file.Name)
		if err != nil {
			return nil, &domain.StorageError{Op: "put", Err: err}
		}
	}

	now := time.Now().UTC()
	inc := &domain.Incident{
		UserID:      owner.ID,
		Reporter:    domain.Reporter{Name: owner.Name, Email: owner.Email},
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date.UTC(),
		Type:        incType,
		Impact:      impact,
		File:        fileKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.incidents.Insert(ctx, inc)
	if err != nil {
		// The metadata write failed after the file landed; remove the
		// object so nothing is left behind.
		if fileKey != "" {
			s.cleanupFile(ctx, fileKey)
		}
		s.logger.Error().Err(err).Str("user_id", owner.ID).Msg("failed to create incident")
		return nil, err
	}

	s.logger.Info().
		Str("incident_id", created.ID).
		Str("user_id", owner.ID).
		Str("type", string(created.Type)).
		Str("impact", string(created.Impact)).
		Msg("incident created")

	return created, nil
}

// Update replaces the incident's mutable fields. Only the owning user may
// edit; admins get delete rights, not edit rights. When a new attachment is
// supplied, the new object is stored before the record is touched and the
// old object is removed only after the swap is committed.
func (s *IncidentService) Update(ctx context.Context, caller *domain.User, id string, in ports.IncidentInput, file *ports.Attachment) (*domain.Incident, error) {
	inc, err := s.incidents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc.UserID != caller.ID {
		return nil, domain.ErrForbidden
	}

	incType, impact, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	oldKey := inc.File
	newKey := ""
	if file != nil && len(file.Data) > 0 {
		newKey, err = s.files.Put(ctx, file.Data, file.Name)
		if err != nil {
			return nil, &domain.StorageError{Op: "put", Err: err}
		}
	}

	inc.Title = in.Title
	inc.Description = in.Description
	inc.Date = in.Date.UTC()
	inc.Type = incType
	inc.Impact = impact
	inc.UpdatedAt = time.Now().UTC()
	if newKey != "" {
		inc.File = newKey
	}

	if err := s.incidents.UpdateByID(ctx, id, inc); err != nil {
		if newKey != "" {
			s.cleanupFile(ctx, newKey)
		}
		s.logger.Error().Err(err).Str("incident_id", id).Msg("failed to update incident")
		return nil, err
	}

	// Old object removed only after the new reference is durable.
	if newKey != "" && oldKey != "" {
		s.cleanupFile(ctx, oldKey)
	}

	s.logger.Info().Str("incident_id", id).Str("user_id", caller.ID).Msg("incident updated")
	return inc, nil
}

// Delete removes the record, then best-effort deletes its attachment. File
// cleanup failure is logged and swallowed: the record deletion is the
// operation's success criterion.
func (s *IncidentService) Delete(ctx context.Context, caller *domain.User, id string, requireOwner bool) error {
	inc, err := s.incidents.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if requireOwner && inc.UserID != caller.ID {
		return domain.ErrForbidden
	}

	if err := s.incidents.DeleteByID(ctx, id); err != nil {
		return err
	}

	if inc.File != "" {
		s.cleanupFile(ctx, inc.File)
	}

	s.logger.Info().
		Str("incident_id", id).
		Str("deleted_by", caller.ID).
		Bool("owner_path", requireOwner).
		Msg("incident deleted")

	return nil
}

// List returns a page of the caller's own incidents. The owner constraint is
// conjoined unconditionally, so no criteria input can widen the scope.
func (s *IncidentService) List(ctx context.Context, caller *domain.User, criteria ports.ListCriteria) (*ports.ListResult, error) {
	filter := buildFilter(criteria)
	filter.UserID = caller.ID

	items, total, page, limit, err := s.findPage(ctx, filter, criteria)
	if err != nil {
		return nil, err
	}

	return &ports.ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// AdminList returns a page over every incident, each joined with its owner's
// live name and email rather than the creation-time snapshot.
func (s *IncidentService) AdminList(ctx context.Context, caller *domain.User, criteria ports.ListCriteria) (*ports.AdminListResult, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	filter := buildFilter(criteria)
	items, total, page, limit, err := s.findPage(ctx, filter, criteria)
	if err != nil {
		return nil, err
	}

	// Live owner join. Deleted accounts fall back to the snapshot.
	owners := make(map[string]domain.Reporter, len(items))
	joined := make([]ports.AdminIncident, 0, len(items))
	for _, inc := range items {
		owner, ok := owners[inc.UserID]
		if !ok {
			user, err := s.users.FindByID(ctx, inc.UserID)
			switch {
			case err == nil:
				owner = domain.Reporter{Name: user.Name, Email: user.Email}
			case errors.Is(err, domain.ErrUserNotFound):
				owner = inc.Reporter
			default:
				return nil, err
			}
			owners[inc.UserID] = owner
		}
		joined = append(joined, ports.AdminIncident{Incident: inc, Owner: owner})
	}

	return &ports.AdminListResult{
		Items:      joined,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// Stats aggregates the collection. ScopeAll requires admin and is served
// from the cache when a fresh entry exists; ScopeSelf conjoins the owner
// constraint and is never cached.
func (s *IncidentService) Stats(ctx context.Context, caller *domain.User, scope string) (*ports.Stats, error) {
	var filter ports.IncidentFilter
	switch scope {
	case ports.ScopeAll:
		if !caller.IsAdmin() {
			return nil, domain.ErrForbidden
		}
		if s.cache != nil {
			cached, err := s.cache.Get(ctx)
			if err != nil {
				s.logger.Warn().Err(err).Msg("stats cache read failed")
			} else if cached != nil {
				return cached, nil
			}
		}
	case ports.ScopeSelf:
		filter.UserID = caller.ID
	default:
		return nil, domain.NewValidationError("scope", "must be self or all")
	}

	total, err := s.incidents.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	byType, err := s.incidents.AggregateGroupCount(ctx, filter, "type")
	if err != nil {
		return nil, err
	}
	byImpact, err := s.incidents.AggregateGroupCount(ctx, filter, "impact")
	if err != nil {
		return nil, err
	}
	recent, err := s.incidents.CountCreatedSince(ctx, filter, time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}

	stats := &ports.Stats{
		Total:     total,
		Recent30d: recent,
		ByType:    byType,
		ByImpact:  byImpact,
	}

	if scope == ports.ScopeAll {
		userCount, err := s.users.CountByRole(ctx, domain.RoleUser)
		if err != nil {
			return nil, err
		}
		stats.TotalUsers = userCount

		if s.cache != nil {
			if err := s.cache.Set(ctx, stats); err != nil {
				s.logger.Warn().Err(err).Msg("stats cache write failed")
			}
		}
	}

	return stats, nil
}

// AdminListUsers returns every non-admin account with its incident count,
// newest-first.
func (s *IncidentService) AdminListUsers(ctx context.Context, caller *domain.User) ([]ports.UserWithCount, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	users, err := s.users.ListByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	out := make([]ports.UserWithCount, 0, len(users))
	for _, u := range users {
		count, err := s.incidents.Count(ctx, ports.IncidentFilter{UserID: u.ID})
		if err != nil {
			return nil, err
		}
		u.PasswordHash = ""
		out = append(out, ports.UserWithCount{User: u, IncidentCount: count})
	}
	return out, nil
}

// findPage normalizes pagination, runs the filtered/sorted query, and counts
// the full match set before slicing.
func (s *IncidentService) findPage(ctx context.Context, filter ports.IncidentFilter, criteria ports.ListCriteria) ([]*domain.Incident, int64, int, int, error) {
	page := criteria.Page
	if page < 1 {
		page = 1
	}
	limit := criteria.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	sort := normalizeSort(criteria.SortBy, criteria.SortOrder)
	skip := int64(page-1) * int64(limit)

	items, err := s.incidents.Find(ctx, filter, sort, skip, int64(limit))
	if err != nil {
		return nil, 0, 0, 0, err
	}
	total, err := s.incidents.Count(ctx, filter)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	return items, total, page, limit, nil
}

func (s *IncidentService) cleanupFile(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("file", key).Msg("attachment cleanup failed")
	}
}

func buildFilter(c ports.ListCriteria) ports.IncidentFilter {
	return ports.IncidentFilter{
		Search:   c.Search,
		Type:     c.Type,
		Impact:   c.Impact,
		DateFrom: c.DateFrom,
		DateTo:   c.DateTo,
	}
}

var sortFields = map[string]string{
	"created_at": "created_at",
	"createdAt":  "created_at",
	"date":       "date",
	"title":      "title",
	"type":       "type",
	"impact":     "impact",
}

func normalizeSort(sortBy, sortOrder string) ports.IncidentSort {
	field, ok := sortFields[sortBy]
	if !ok {
		field = "created_at"
	}
	return ports.IncidentSort{
		Field:      field,
		Descending: sortOrder != "asc",
	}
}

func totalPages(total int64, limit int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func validateInput(in ports.IncidentInput) (domain.IncidentType, domain.ImpactLevel, error) {
	if in.Description == "" {
		return "", "", domain.NewValidationError("description", "is required")
	}
	if in.Date.IsZero() {
		return "", "", domain.NewValidationError("date", "is required")
	}
	if in.Type == "" {
		return "", "", domain.NewValidationError("type", "is required")
	}
	incType := domain.IncidentType(in.Type)
	if !incType.Valid() {
		return "", "", domain.NewValidationError("type", "is not a known incident type")
	}
	if in.Impact == "" {
		return "", "", domain.NewValidationError("impact", "is required")
	}
	impact := domain.ImpactLevel(in.Impact)
	if !impact.Valid() {
		return "", "", domain.NewValidationError("impact", "is not a known impact level")
	}
	return incType, impact, nil
}
