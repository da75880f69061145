package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	contextutils "feedbackapp/internal/utils"
)

func TestFeedbackStatus_WireRoundTrip(t *testing.T) {
	for _, s := range []FeedbackStatus{StatusNew, StatusRead, StatusResponded} {
		assert.Equal(t, s, FeedbackStatusFromWire(s.WireValue()))
	}
}

func TestFeedbackStatusFromWire_UnknownMapsToNew(t *testing.T) {
	assert.Equal(t, StatusNew, FeedbackStatusFromWire("arquivado"))
	assert.Equal(t, StatusNew, FeedbackStatusFromWire(""))
}

func TestCanTransitionTo_Monotonic(t *testing.T) {
	tests := []struct {
		from, to FeedbackStatus
		want     bool
	}{
		{StatusNew, StatusRead, true},
		{StatusNew, StatusResponded, true},
		{StatusRead, StatusResponded, true},
		{StatusRead, StatusNew, false},
		{StatusResponded, StatusNew, false},
		{StatusResponded, StatusRead, false},
		{StatusNew, StatusNew, false},
		{StatusResponded, StatusResponded, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestFeedbackSubmission_Validate(t *testing.T) {
	valid := FeedbackSubmission{
		SubmitterID: "u1",
		Submitter:   Submitter{Name: "Alice", Email: "alice@example.com"},
		Rating:      3,
		Comment:     "this is long enough",
	}
	assert.NoError(t, valid.Validate())

	noSubmitter := valid
	noSubmitter.SubmitterID = ""
	assert.Equal(t, contextutils.ErrorCodeMissingRequired, contextutils.GetErrorCode(noSubmitter.Validate()))

	badRating := valid
	badRating.Rating = 6
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(badRating.Validate()))

	zeroRating := valid
	zeroRating.Rating = 0
	assert.Error(t, zeroRating.Validate())

	// Whitespace does not count toward the minimum comment length.
	padded := valid
	padded.Comment = "   short    " + strings.Repeat(" ", 20)
	assert.Error(t, padded.Validate())

	exact := valid
	exact.Comment = " 1234567890 "
	assert.NoError(t, exact.Validate())

	// Multi-byte characters count once each, not per byte.
	accentedShort := valid
	accentedShort.Comment = "àéíóúàéíó" // 9 characters, 18 bytes
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(accentedShort.Validate()))

	accentedExact := valid
	accentedExact.Comment = "àéíóúàéíóú"
	assert.NoError(t, accentedExact.Validate())
}

func TestFilterSpec_Normalize(t *testing.T) {
	var spec FilterSpec
	spec.Normalize()

	assert.Equal(t, FilterAll, spec.Status)
	assert.Equal(t, DateAll, spec.Date)
}

func TestFilterSpec_ActiveCount(t *testing.T) {
	assert.Equal(t, 0, FilterSpec{Status: FilterAll, Date: DateAll}.ActiveCount())
	assert.Equal(t, 0, FilterSpec{Search: "   "}.ActiveCount())
	assert.Equal(t, 4, FilterSpec{
		Search: "login",
		Status: string(StatusNew),
		Rating: 2,
		Date:   DateLast7Days,
	}.ActiveCount())
}

func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, User{Role: RoleAdmin}.IsAdmin())
	assert.False(t, User{Role: RoleUser}.IsAdmin())
	assert.False(t, User{}.IsAdmin())
}
