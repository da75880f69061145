package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"feedbackapp/internal/config"
	"feedbackapp/internal/models"
)

func ginContextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestParsePagination(t *testing.T) {
	cfg := &config.ServerConfig{DefaultPageSize: 10, MaxPageSize: 100}

	page, size := ParsePagination(ginContextWithQuery(""), cfg)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)

	page, size = ParsePagination(ginContextWithQuery("page=3&page_size=25"), cfg)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, size)

	// Out-of-range values normalize instead of failing.
	page, size = ParsePagination(ginContextWithQuery("page=-1&page_size=9999"), cfg)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, size)

	page, size = ParsePagination(ginContextWithQuery("page=abc&page_size=abc"), cfg)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)
}

func TestParseFilterSpec(t *testing.T) {
	spec := ParseFilterSpec(ginContextWithQuery("search=login&status=read&rating=4&date=last7days"))

	assert.Equal(t, "login", spec.Search)
	assert.Equal(t, string(models.StatusRead), spec.Status)
	assert.Equal(t, 4, spec.Rating)
	assert.Equal(t, models.DateLast7Days, spec.Date)
	assert.Equal(t, 4, spec.ActiveCount())
}

func TestParseFilterSpec_UnknownValuesDegradeToWildcard(t *testing.T) {
	spec := ParseFilterSpec(ginContextWithQuery("status=archived&rating=17&date=yesterday"))

	assert.Equal(t, models.FilterAll, spec.Status)
	assert.Equal(t, 0, spec.Rating)
	assert.Equal(t, models.DateAll, spec.Date)
	assert.Equal(t, 0, spec.ActiveCount())
}
