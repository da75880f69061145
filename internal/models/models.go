// Package models defines the core data structures for the feedback application.
package models

import (
	"strings"
	"time"
	"unicode/utf8"

	contextutils "feedbackapp/internal/utils"
)

// MinCommentLength is the minimum number of trimmed characters a feedback
// comment must contain before it is accepted for submission.
const MinCommentLength = 10

// FeedbackStatus represents the triage state of a feedback entry.
type FeedbackStatus string

// Feedback lifecycle states. Transitions only move forward:
// new -> read, new -> responded, read -> responded.
const (
	StatusNew       FeedbackStatus = "new"
	StatusRead      FeedbackStatus = "read"
	StatusResponded FeedbackStatus = "responded"
)

// Wire values used by the document store. The stored documents keep the
// original locale strings; the application works with the FeedbackStatus
// constants everywhere else.
const (
	wireStatusNew       = "novo"
	wireStatusRead      = "lido"
	wireStatusResponded = "respondido"
)

// Valid reports whether s is one of the three known states.
func (s FeedbackStatus) Valid() bool {
	switch s {
	case StatusNew, StatusRead, StatusResponded:
		return true
	}
	return false
}

// WireValue returns the document-store representation of the status.
func (s FeedbackStatus) WireValue() string {
	switch s {
	case StatusRead:
		return wireStatusRead
	case StatusResponded:
		return wireStatusResponded
	default:
		return wireStatusNew
	}
}

// FeedbackStatusFromWire translates a stored status string into a
// FeedbackStatus. Unknown values map to StatusNew so a malformed document
// never produces an undefined state.
func FeedbackStatusFromWire(raw string) FeedbackStatus {
	switch raw {
	case wireStatusRead:
		return StatusRead
	case wireStatusResponded:
		return StatusResponded
	default:
		return StatusNew
	}
}

// CanTransitionTo reports whether moving from s to next is a permitted
// status transition. Status never reverses and never skips to an
// undefined value; responded is reachable directly from new.
func (s FeedbackStatus) CanTransitionTo(next FeedbackStatus) bool {
	switch s {
	case StatusNew:
		return next == StatusRead || next == StatusResponded
	case StatusRead:
		return next == StatusResponded
	default:
		return false
	}
}

// Submitter is the denormalized snapshot of the submitting user taken at
// submission time. It is intentionally not kept in sync with later profile
// changes.
type Submitter struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FeedbackResponse holds an administrator's response to a feedback entry.
// Once set it is immutable; no edit or retract operation exists.
type FeedbackResponse struct {
	Text        string    `json:"text"`
	RespondedBy string    `json:"responded_by"`
	RespondedAt time.Time `json:"responded_at"`
}

// Feedback is the central entity: a star rating plus comment submitted by a
// user and triaged by administrators.
type Feedback struct {
	ID          string            `json:"id"`
	SubmitterID string            `json:"submitter_id"`
	Submitter   Submitter         `json:"submitter"`
	Rating      int               `json:"rating"`
	Comment     string            `json:"comment"`
	Status      FeedbackStatus    `json:"status"`
	Response    *FeedbackResponse `json:"response,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// UserRole distinguishes end users from administrators. The role is read
// from the users collection and only gates which client view is shown.
type UserRole string

// Known user roles.
const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is the authenticated identity returned by the session provider.
type User struct {
	UID         string   `json:"uid"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Role        UserRole `json:"role"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DateRange selects the creation-time window for filtering.
type DateRange string

// Supported date range selectors.
const (
	DateAll        DateRange = "all"
	DateToday      DateRange = "today"
	DateLast7Days  DateRange = "last7days"
	DateLast30Days DateRange = "last30days"
)

// FilterAll is the wildcard value for the status and rating selectors.
const FilterAll = "all"

// FilterSpec is a pure value object describing the active dashboard
// filters. The zero value (after Normalize) matches everything.
type FilterSpec struct {
	Search string    `json:"search" form:"search"`
	Status string    `json:"status" form:"status"`
	Rating int       `json:"rating" form:"rating"`
	Date   DateRange `json:"date" form:"date"`
}

// Normalize fills in wildcard defaults for empty selector fields.
func (f *FilterSpec) Normalize() {
	if f.Status == "" {
		f.Status = FilterAll
	}
	if f.Date == "" {
		f.Date = DateAll
	}
}

// ActiveCount returns how many filters deviate from the wildcard default.
func (f FilterSpec) ActiveCount() int {
	count := 0
	if strings.TrimSpace(f.Search) != "" {
		count++
	}
	if f.Status != "" && f.Status != FilterAll {
		count++
	}
	if f.Rating != 0 {
		count++
	}
	if f.Date != "" && f.Date != DateAll {
		count++
	}
	return count
}

// FeedbackMetrics aggregates a filtered view. All fields are zero for an
// empty view; averages never produce NaN.
type FeedbackMetrics struct {
	Total            int     `json:"total"`
	AverageRating    float64 `json:"average_rating"`
	UniqueSubmitters int     `json:"unique_submitters"`
	SatisfactionRate float64 `json:"satisfaction_rate"`
}

// FeedbackSubmission is the payload for creating a new feedback entry.
type FeedbackSubmission struct {
	SubmitterID string
	Submitter   Submitter
	Rating      int
	Comment     string
}

// Validate checks the submission before any remote call is made. The
// comment is compared after trimming surrounding whitespace.
func (s FeedbackSubmission) Validate() error {
	if s.SubmitterID == "" {
		return contextutils.NewAppError(
			contextutils.ErrorCodeMissingRequired,
			contextutils.SeverityWarn,
			"Missing submitter",
			"a feedback submission requires an authenticated submitter",
		)
	}
	if s.Rating < 1 || s.Rating > 5 {
		return contextutils.NewAppError(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid rating",
			"rating must be between 1 and 5",
		)
	}
	// Length is counted in characters, not bytes; accented comments are
	// the norm for this locale.
	if utf8.RuneCountInString(strings.TrimSpace(s.Comment)) < MinCommentLength {
		return contextutils.NewAppError(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Comment too short",
			"comment must contain at least 10 characters",
		)
	}
	return nil
}

// ExportMetadata describes a JSON export: when it was generated, how many
// records it contains, and which filters were active at the time.
type ExportMetadata struct {
	ExportDate   time.Time  `json:"export_date"`
	TotalRecords int        `json:"total_records"`
	Filters      FilterSpec `json:"filters"`
}

// ExportData is the JSON export envelope.
type ExportData struct {
	Metadata  ExportMetadata `json:"metadata"`
	Feedbacks []Feedback     `json:"feedbacks"`
}
