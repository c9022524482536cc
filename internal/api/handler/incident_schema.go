package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rackcentre/incident-logger/internal/core/domain"
	"github.com/rackcentre/incident-logger/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// incidentFormInput reads the multipart form fields shared by create and
// update. Enum and required-field validation happens in the service; the
// handler only rejects an unparseable date.
func incidentFormInput(c echo.Context) (ports.IncidentInput, error) {
	date, err := parseDate(c.FormValue("date"))
	if err != nil {
		return ports.IncidentInput{}, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD or RFC 3339")
	}
	return ports.IncidentInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Date:        date,
		Type:        c.FormValue("type"),
		Impact:      c.FormValue("impact"),
	}, nil
}

// listCriteria reads the shared query parameters for the list endpoints.
func listCriteria(c echo.Context) (ports.ListCriteria, error) {
	dateFrom, err := parseDate(c.QueryParam("dateFrom"))
	if err != nil {
		return ports.ListCriteria{}, echo.NewHTTPError(http.StatusBadRequest, "dateFrom must be YYYY-MM-DD or RFC 3339")
	}
	dateTo, err := parseDate(c.QueryParam("dateTo"))
	if err != nil {
		return ports.ListCriteria{}, echo.NewHTTPError(http.StatusBadRequest, "dateTo must be YYYY-MM-DD or RFC 3339")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	return ports.ListCriteria{
		Search:    c.QueryParam("search"),
		Type:      c.QueryParam("type"),
		Impact:    c.QueryParam("impact"),
		DateFrom:  dateFrom,
		DateTo:    dateTo,
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
		Page:      page,
		Limit:     limit,
	}, nil
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listIncidentsResponse struct {
	Data       []*domain.Incident `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

type adminListIncidentsResponse struct {
	Data       []ports.AdminIncident `json:"data"`
	Pagination paginationResponse    `json:"pagination"`
}
