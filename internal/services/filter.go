package services

import (
	"strconv"
	"strings"
	"time"

	"feedbackapp/internal/models"
)

// FilterFeedbacks applies spec to the collection and returns the matching
// order-preserving subsequence. It is a pure function of its inputs; now is
// passed in so the date selectors are deterministic under test.
func FilterFeedbacks(all []models.Feedback, spec models.FilterSpec, now time.Time) []models.Feedback {
	spec.Normalize()

	matched := make([]models.Feedback, 0, len(all))
	for _, fb := range all {
		if !matchesSearch(fb, spec.Search) {
			continue
		}
		if !matchesStatus(fb, spec.Status) {
			continue
		}
		if !matchesRating(fb, spec.Rating) {
			continue
		}
		if !matchesDate(fb, spec.Date, now) {
			continue
		}
		matched = append(matched, fb)
	}
	return matched
}

// matchesSearch does a case-insensitive substring match against the
// submitter name, submitter email, and comment text.
func matchesSearch(fb models.Feedback, search string) bool {
	search = strings.TrimSpace(search)
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(fb.Submitter.Name), needle) ||
		strings.Contains(strings.ToLower(fb.Submitter.Email), needle) ||
		strings.Contains(strings.ToLower(fb.Comment), needle)
}

func matchesStatus(fb models.Feedback, status string) bool {
	if status == "" || status == models.FilterAll {
		return true
	}
	return string(fb.Status) == status
}

func matchesRating(fb models.Feedback, rating int) bool {
	if rating == 0 {
		return true
	}
	return fb.Rating == rating
}

// matchesDate applies the date-range selector. The 7-day window is an
// inclusive lower bound; the 30-day window is a calendar-month
// subtraction, not a fixed 30x24h span.
func matchesDate(fb models.Feedback, date models.DateRange, now time.Time) bool {
	switch date {
	case "", models.DateAll:
		return true
	case models.DateToday:
		y1, m1, d1 := fb.CreatedAt.In(now.Location()).Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case models.DateLast7Days:
		return !fb.CreatedAt.Before(now.AddDate(0, 0, -7))
	case models.DateLast30Days:
		return !fb.CreatedAt.Before(now.AddDate(0, -1, 0))
	default:
		return true
	}
}

// ParseRatingSelector converts a rating query value ("all", "1".."5") into
// the numeric form used by FilterSpec. Invalid values mean no filter.
func ParseRatingSelector(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == models.FilterAll {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 5 {
		return 0
	}
	return n
}
