package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rackcentre/incident-logger/internal/api/metrics"
	"github.com/rackcentre/incident-logger/internal/core/ports"
)

// IncidentHandler handles the self-service incident routes.
type IncidentHandler struct {
	service ports.IncidentService
}

func NewIncidentHandler(service ports.IncidentService) *IncidentHandler {
	return &IncidentHandler{service: service}
}

// List returns a page of the caller's own incidents.
//
// @Summary      List own incidents
// @Tags         incidents
// @Produce      json
// @Security     BearerAuth
// @Param        search     query     string  false  "Substring match on title/description"
// @Param        type       query     string  false  "Incident type"
// @Param        impact     query     string  false  "Impact level"
// @Param        dateFrom   query     string  false  "Occurrence date lower bound (YYYY-MM-DD)"
// @Param        dateTo     query     string  false  "Occurrence date upper bound (YYYY-MM-DD)"
// @Param        sortBy     query     string  false  "Sort key (created_at, date, title, type, impact)"
// @Param        sortOrder  query     string  false  "asc or desc"
// @Param        page       query     int     false  "1-based page number"
// @Param        limit      query     int     false  "Page size"
// @Success      200        {object}  listIncidentsResponse
// @Failure      401        {object}  errorResponse
// @Router       /api/incidents [get]
func (h *IncidentHandler) List(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	criteria, err := listCriteria(c)
	if err != nil {
		return err
	}

	result, err := h.service.List(c.Request().Context(), user, criteria)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listIncidentsResponse{
		Data: result.Items,
		Pagination: paginationResponse{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	})
}

// Stats aggregates the caller's own incidents.
//
// @Summary      Own incident statistics
// @Tags         incidents
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.Stats
// @Failure      401  {object}  errorResponse
// @Router       /api/incidents/stats [get]
func (h *IncidentHandler) Stats(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(c.Request().Context(), user, ports.ScopeSelf)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Create reports a new incident, optionally with one attachment.
//
// @Summary      Report an incident
// @Tags         incidents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        title        formData  string  false  "Short title"
// @Param        description  formData  string  true   "What happened"
// @Param        date         formData  string  true   "Occurrence date (YYYY-MM-DD)"
// @Param        type         formData  string  true   "Incident type"
// @Param        impact       formData  string  true   "Impact level"
// @Param        file         formData  file    false  "Attachment"
// @Success      201          {object}  domain.Incident
// @Failure      400          {object}  errorResponse
// @Failure      401          {object}  errorResponse
// @Failure      502          {object}  errorResponse
// @Router       /api/incidents [post]
func (h *IncidentHandler) Create(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	input, err := incidentFormInput(c)
	if err != nil {
		return err
	}
	file, err := readFormFile(c, "file")
	if err != nil {
		return err
	}

	incident, err := h.service.Create(c.Request().Context(), user, input, file)
	if err != nil {
		return err
	}

	metrics.IncidentsCreatedTotal.WithLabelValues(string(incident.Type), string(incident.Impact)).Inc()
	return c.JSON(http.StatusCreated, incident)
}

// Update edits an incident the caller owns.
//
// @Summary      Update an incident
// @Tags         incidents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id           path      string  true   "Incident id"
// @Param        title        formData  string  false  "Short title"
// @Param        description  formData  string  true   "What happened"
// @Param        date         formData  string  true   "Occurrence date (YYYY-MM-DD)"
// @Param        type         formData  string  true   "Incident type"
// @Param        impact       formData  string  true   "Impact level"
// @Param        file         formData  file    false  "Replacement attachment"
// @Success      200          {object}  domain.Incident
// @Failure      400          {object}  errorResponse
// @Failure      403          {object}  errorResponse
// @Failure      404          {object}  errorResponse
// @Failure      502          {object}  errorResponse
// @Router       /api/incidents/{id} [put]
func (h *IncidentHandler) Update(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	input, err := incidentFormInput(c)
	if err != nil {
		return err
	}
	file, err := readFormFile(c, "file")
	if err != nil {
		return err
	}

	incident, err := h.service.Update(c.Request().Context(), user, c.Param("id"), input, file)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, incident)
}

// Delete removes an incident the caller owns.
//
// @Summary      Delete an incident
// @Tags         incidents
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Incident id"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/incidents/{id} [delete]
func (h *IncidentHandler) Delete(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), user, c.Param("id"), true); err != nil {
		return err
	}

	metrics.IncidentsDeletedTotal.WithLabelValues("owner").Inc()
	return c.NoContent(http.StatusNoContent)
}
