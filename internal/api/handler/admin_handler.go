package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rackcentre/incident-logger/internal/api/metrics"
	"github.com/rackcentre/incident-logger/internal/core/ports"
)

// AdminHandler handles the admin-only routes. Every route is additionally
// behind the RequireAdmin middleware; the service re-checks the role.
type AdminHandler struct {
	service ports.IncidentService
}

func NewAdminHandler(service ports.IncidentService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListIncidents returns a page over every user's incidents, joined with the
// owner's live name and email.
//
// @Summary      List all incidents (admin)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        search     query     string  false  "Substring match on title/description"
// @Param        type       query     string  false  "Incident type"
// @Param        impact     query     string  false  "Impact level"
// @Param        dateFrom   query     string  false  "Occurrence date lower bound"
// @Param        dateTo     query     string  false  "Occurrence date upper bound"
// @Param        sortBy     query     string  false  "Sort key"
// @Param        sortOrder  query     string  false  "asc or desc"
// @Param        page       query     int     false  "1-based page number"
// @Param        limit      query     int     false  "Page size"
// @Success      200        {object}  adminListIncidentsResponse
// @Failure      403        {object}  errorResponse
// @Router       /api/admin/incidents [get]
func (h *AdminHandler) ListIncidents(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	criteria, err := listCriteria(c)
	if err != nil {
		return err
	}

	result, err := h.service.AdminList(c.Request().Context(), user, criteria)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, adminListIncidentsResponse{
		Data: result.Items,
		Pagination: paginationResponse{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	})
}

// DeleteIncident removes any incident regardless of owner.
//
// @Summary      Delete any incident (admin)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Incident id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/incidents/{id} [delete]
func (h *AdminHandler) DeleteIncident(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), user, c.Param("id"), false); err != nil {
		return err
	}

	metrics.IncidentsDeletedTotal.WithLabelValues("admin").Inc()
	return c.NoContent(http.StatusNoContent)
}

// Stats aggregates the whole incident collection.
//
// @Summary      Incident statistics (admin)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.Stats
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(c.Request().Context(), user, ports.ScopeAll)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// ListUsers returns every non-admin account with its incident count.
//
// @Summary      List users (admin)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   ports.UserWithCount
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	users, err := h.service.AdminListUsers(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}
