package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"feedbackapp/internal/config"
	"feedbackapp/internal/models"
	"feedbackapp/internal/services"
)

// ParsePagination reads page and page_size query parameters, falling back
// to the configured defaults and capping page_size at the configured
// maximum. Out-of-range values are normalized, never rejected.
func ParsePagination(c *gin.Context, cfg *config.ServerConfig) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(cfg.DefaultPageSize)))
	if pageSize < 1 {
		pageSize = cfg.DefaultPageSize
	}
	if pageSize > cfg.MaxPageSize {
		pageSize = cfg.MaxPageSize
	}

	return page, pageSize
}

// ParseFilterSpec reads the dashboard filter selectors from the query
// string. Unknown selector values degrade to the wildcard.
func ParseFilterSpec(c *gin.Context) models.FilterSpec {
	spec := models.FilterSpec{
		Search: c.Query("search"),
		Status: c.DefaultQuery("status", models.FilterAll),
		Rating: services.ParseRatingSelector(c.Query("rating")),
		Date:   models.DateRange(c.DefaultQuery("date", string(models.DateAll))),
	}

	switch spec.Date {
	case models.DateAll, models.DateToday, models.DateLast7Days, models.DateLast30Days:
	default:
		spec.Date = models.DateAll
	}

	if spec.Status != models.FilterAll && !models.FeedbackStatus(spec.Status).Valid() {
		spec.Status = models.FilterAll
	}

	spec.Normalize()
	return spec
}
