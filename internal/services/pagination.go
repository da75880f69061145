package services

import (
	"feedbackapp/internal/models"
)

// PageInfo describes the pagination slice returned by Paginate.
type PageInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	PageCount  int `json:"page_count"`
	TotalItems int `json:"total_items"`
}

// Paginate slices the view into pages. The page count is never below 1,
// and the requested page clamps into [1, pageCount], so callers always get
// a valid slice. Resetting to page 1 on filter or page-size changes is the
// caller's policy, not enforced here.
func Paginate(view []models.Feedback, pageSize, page int) ([]models.Feedback, PageInfo) {
	if pageSize < 1 {
		pageSize = 1
	}

	total := len(view)
	pageCount := (total + pageSize - 1) / pageSize
	if pageCount < 1 {
		pageCount = 1
	}

	if page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	items := make([]models.Feedback, end-start)
	copy(items, view[start:end])

	return items, PageInfo{
		Page:       page,
		PageSize:   pageSize,
		PageCount:  pageCount,
		TotalItems: total,
	}
}
