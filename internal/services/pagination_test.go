package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"feedbackapp/internal/models"
)

func makeView(n int) []models.Feedback {
	view := make([]models.Feedback, n)
	for i := range view {
		view[i] = models.Feedback{ID: fmt.Sprintf("fb-%02d", i)}
	}
	return view
}

func TestPaginate_PartialLastPage(t *testing.T) {
	view := makeView(23)

	items, info := Paginate(view, 10, 3)

	assert.Len(t, items, 3)
	assert.Equal(t, "fb-20", items[0].ID)
	assert.Equal(t, 3, info.Page)
	assert.Equal(t, 3, info.PageCount)
	assert.Equal(t, 23, info.TotalItems)
}

func TestPaginate_PageClampsToLastPage(t *testing.T) {
	view := makeView(23)

	items, info := Paginate(view, 10, 5)

	assert.Equal(t, 3, info.Page)
	assert.Len(t, items, 3)
	assert.Equal(t, "fb-22", items[2].ID)
}

func TestPaginate_PageClampsUpToOne(t *testing.T) {
	view := makeView(5)

	items, info := Paginate(view, 10, -3)

	assert.Equal(t, 1, info.Page)
	assert.Len(t, items, 5)
}

func TestPaginate_EmptyViewHasOnePage(t *testing.T) {
	items, info := Paginate(nil, 10, 1)

	assert.Empty(t, items)
	assert.Equal(t, 1, info.Page)
	assert.Equal(t, 1, info.PageCount)
	assert.Equal(t, 0, info.TotalItems)
}

func TestPaginate_ReturnsCopy(t *testing.T) {
	view := makeView(4)

	items, _ := Paginate(view, 2, 1)
	items[0].ID = "mutated"

	assert.Equal(t, "fb-00", view[0].ID)
}
