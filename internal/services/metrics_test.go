package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"feedbackapp/internal/models"
)

func TestCalculateMetrics_EmptyViewIsAllZeros(t *testing.T) {
	m := CalculateMetrics(nil)

	assert.Equal(t, 0, m.Total)
	assert.Equal(t, 0.0, m.AverageRating)
	assert.Equal(t, 0, m.UniqueSubmitters)
	assert.Equal(t, 0.0, m.SatisfactionRate)
}

func TestCalculateMetrics(t *testing.T) {
	view := []models.Feedback{
		{SubmitterID: "u1", Rating: 5},
		{SubmitterID: "u1", Rating: 4},
		{SubmitterID: "u2", Rating: 3},
		{SubmitterID: "u3", Rating: 1},
	}

	m := CalculateMetrics(view)

	assert.Equal(t, 4, m.Total)
	assert.InDelta(t, 3.25, m.AverageRating, 0.0001)
	assert.Equal(t, 3, m.UniqueSubmitters)
	// Two of four ratings are >= 4.
	assert.InDelta(t, 50.0, m.SatisfactionRate, 0.0001)
}

func TestStatusHistogram_AllBucketsAlwaysPresent(t *testing.T) {
	counts := StatusHistogram([]models.Feedback{
		{Status: models.StatusNew},
		{Status: models.StatusNew},
		{Status: models.StatusResponded},
	})

	assert.Equal(t, 2, counts[models.StatusNew])
	assert.Equal(t, 0, counts[models.StatusRead])
	assert.Equal(t, 1, counts[models.StatusResponded])
	assert.Len(t, counts, 3)

	empty := StatusHistogram(nil)
	assert.Len(t, empty, 3)
}

func TestRatingHistogram_SkipsOutOfRangeRatings(t *testing.T) {
	counts := RatingHistogram([]models.Feedback{
		{Rating: 5},
		{Rating: 5},
		{Rating: 1},
		{Rating: 0},
		{Rating: 9},
	})

	assert.Len(t, counts, 5)
	assert.Equal(t, 2, counts[5])
	assert.Equal(t, 1, counts[1])
	assert.Equal(t, 0, counts[3])
}
