package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"feedbackapp/internal/config"
	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/services"
	contextutils "feedbackapp/internal/utils"
)

// FeedbackHandler handles the feedback dashboard and submission endpoints.
type FeedbackHandler struct {
	cache    *services.FeedbackCache
	service  *services.FeedbackService
	exporter *services.ExportService
	cfg      *config.Config
	logger   *observability.Logger

	now func() time.Time
}

// NewFeedbackHandler creates a FeedbackHandler.
func NewFeedbackHandler(cache *services.FeedbackCache, service *services.FeedbackService, exporter *services.ExportService, cfg *config.Config, logger *observability.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		cache:    cache,
		service:  service,
		exporter: exporter,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// view resolves the cache state and, when data is available, the filtered
// view for the request. The bool reports whether a response was already
// written (loading or error state).
func (h *FeedbackHandler) view(c *gin.Context, spec models.FilterSpec) ([]models.Feedback, bool) {
	if err := h.cache.Err(); err != nil {
		HandleAppError(c, err)
		return nil, true
	}
	if h.cache.Loading() {
		c.JSON(http.StatusOK, gin.H{
			"loading": true,
			"items":   []models.Feedback{},
		})
		return nil, true
	}
	return services.FilterFeedbacks(h.cache.All(), spec, h.now()), false
}

// ListFeedbacks handles GET /v1/admin/feedbacks: the dashboard listing with
// filters, metrics, histograms, and pagination over the live collection.
func (h *FeedbackHandler) ListFeedbacks(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_feedbacks")
	defer observability.FinishSpan(span, nil)

	spec := ParseFilterSpec(c)
	view, done := h.view(c, spec)
	if done {
		return
	}

	page, pageSize := ParsePagination(c, &h.cfg.Server)
	items, pageInfo := services.Paginate(view, pageSize, page)

	c.JSON(http.StatusOK, gin.H{
		"loading":    false,
		"items":      items,
		"pagination": pageInfo,
		"metrics":    services.CalculateMetrics(view),
		"charts": gin.H{
			"status": services.StatusHistogram(view),
			"rating": services.RatingHistogram(view),
		},
		"filters": gin.H{
			"active_count": spec.ActiveCount(),
			"spec":         spec,
		},
	})
}

// SubmitFeedback handles POST /v1/feedbacks.
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_feedback")
	defer observability.FinishSpan(span, nil)

	user, ok := GetUserFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	ctx = contextutils.WithUserUID(ctx, user.UID)

	var req struct {
		Rating  int    `json:"rating" binding:"required"`
		Comment string `json:"comment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	id, err := h.service.Submit(ctx, models.FeedbackSubmission{
		SubmitterID: user.UID,
		Submitter: models.Submitter{
			Name:  user.DisplayName,
			Email: user.Email,
		},
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// MyFeedbacks handles GET /v1/feedbacks/mine: the submitter's own entries,
// newest first.
func (h *FeedbackHandler) MyFeedbacks(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "my_feedbacks")
	defer observability.FinishSpan(span, nil)

	user, ok := GetUserFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	if err := h.cache.Err(); err != nil {
		HandleAppError(c, err)
		return
	}
	if h.cache.Loading() {
		c.JSON(http.StatusOK, gin.H{"loading": true, "items": []models.Feedback{}})
		return
	}

	// The cache is ordered newest first; filtering preserves that.
	all := h.cache.All()
	mine := make([]models.Feedback, 0)
	for _, fb := range all {
		if fb.SubmitterID == user.UID {
			mine = append(mine, fb)
		}
	}

	c.JSON(http.StatusOK, gin.H{"loading": false, "items": mine})
}

// MarkRead handles POST /v1/admin/feedbacks/:id/read.
func (h *FeedbackHandler) MarkRead(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "mark_read")
	defer observability.FinishSpan(span, nil)

	if err := h.service.MarkRead(ctx, c.Param("id")); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkResponded handles POST /v1/admin/feedbacks/:id/responded.
func (h *FeedbackHandler) MarkResponded(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "mark_responded")
	defer observability.FinishSpan(span, nil)

	if err := h.service.MarkResponded(ctx, c.Param("id")); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Respond handles POST /v1/admin/feedbacks/:id/respond.
func (h *FeedbackHandler) Respond(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "respond")
	defer observability.FinishSpan(span, nil)

	user, ok := GetUserFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	if err := h.service.Respond(ctx, c.Param("id"), req.Text, user); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteFeedback handles DELETE /v1/admin/feedbacks/:id.
func (h *FeedbackHandler) DeleteFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_feedback")
	defer observability.FinishSpan(span, nil)

	if err := h.service.Remove(ctx, c.Param("id")); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportFeedbacks handles GET /v1/admin/feedbacks/export?format=csv|json.
// The export covers the filtered view, not the raw collection.
func (h *FeedbackHandler) ExportFeedbacks(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "export_feedbacks")
	defer observability.FinishSpan(span, nil)

	spec := ParseFilterSpec(c)

	if err := h.cache.Err(); err != nil {
		HandleAppError(c, err)
		return
	}
	if h.cache.Loading() {
		HandleAppError(c, contextutils.WrapError(contextutils.ErrServiceUnavailable, "feedback data is still loading"))
		return
	}
	view := services.FilterFeedbacks(h.cache.All(), spec, h.now())

	var (
		data        []byte
		filename    string
		contentType string
		err         error
	)

	format := c.DefaultQuery("format", "csv")
	switch format {
	case "csv":
		data, filename, err = h.exporter.ExportCSV(ctx, view)
		contentType = "text/csv; charset=utf-8"
	case "json":
		data, filename, err = h.exporter.ExportJSON(ctx, view, spec)
		contentType = "application/json"
	default:
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown export format %q", format))
		return
	}
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
