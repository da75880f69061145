package services

import (
	"feedbackapp/internal/models"
)

// CalculateMetrics aggregates the filtered view. An empty view yields all
// zeros, never NaN.
func CalculateMetrics(view []models.Feedback) models.FeedbackMetrics {
	total := len(view)
	if total == 0 {
		return models.FeedbackMetrics{}
	}

	ratingSum := 0
	satisfied := 0
	submitters := make(map[string]struct{}, total)
	for _, fb := range view {
		ratingSum += fb.Rating
		if fb.Rating >= 4 {
			satisfied++
		}
		submitters[fb.SubmitterID] = struct{}{}
	}

	return models.FeedbackMetrics{
		Total:            total,
		AverageRating:    float64(ratingSum) / float64(total),
		UniqueSubmitters: len(submitters),
		SatisfactionRate: 100 * float64(satisfied) / float64(total),
	}
}

// StatusHistogram counts entries per status. All three states are always
// present as keys so chart rendering never sees a missing bucket.
func StatusHistogram(view []models.Feedback) map[models.FeedbackStatus]int {
	counts := map[models.FeedbackStatus]int{
		models.StatusNew:       0,
		models.StatusRead:      0,
		models.StatusResponded: 0,
	}
	for _, fb := range view {
		counts[fb.Status]++
	}
	return counts
}

// RatingHistogram counts entries per rating value 1..5. Out-of-range
// ratings (malformed documents) are not counted.
func RatingHistogram(view []models.Feedback) map[int]int {
	counts := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, fb := range view {
		if fb.Rating >= 1 && fb.Rating <= 5 {
			counts[fb.Rating]++
		}
	}
	return counts
}
