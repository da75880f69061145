package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"feedbackapp/internal/config"
	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/services/mailer"
	"feedbackapp/internal/store"
	contextutils "feedbackapp/internal/utils"
)

// FeedbackReader is the view of the live cache the coordinator needs for
// transition checks. The cache satisfies it.
type FeedbackReader interface {
	Get(id string) (models.Feedback, bool)
}

// FeedbackService coordinates mutations against the document store. It never
// touches the in-memory collection: a successful write comes back through
// the subscription as part of the next snapshot, so there is a single
// source of truth and no optimistic local echo to reconcile.
type FeedbackService struct {
	store    store.FeedbackStore
	reader   FeedbackReader
	notifier mailer.Mailer
	logger   *observability.Logger

	// now is injected for deterministic timestamps in tests.
	now func() time.Time
}

// NewFeedbackService creates the mutation coordinator. notifier may be nil
// when response notifications are disabled.
func NewFeedbackService(st store.FeedbackStore, reader FeedbackReader, notifier mailer.Mailer, logger *observability.Logger) *FeedbackService {
	if st == nil {
		panic("NewFeedbackService: store is nil")
	}
	if reader == nil {
		panic("NewFeedbackService: reader is nil")
	}
	if logger == nil {
		panic("NewFeedbackService: logger is nil")
	}
	return &FeedbackService{
		store:    st,
		reader:   reader,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit validates a new submission and creates its document. Validation
// happens entirely before the remote write: an invalid submission never
// reaches the store. Returns the new document ID.
func (s *FeedbackService) Submit(ctx context.Context, sub models.FeedbackSubmission) (id string, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "submit")
	defer observability.FinishSpan(span, &err)

	if err := sub.Validate(); err != nil {
		return "", err
	}

	now := s.now()
	doc := map[string]interface{}{
		store.FieldUserID: sub.SubmitterID,
		store.FieldUser: map[string]interface{}{
			store.FieldUserName:  sub.Submitter.Name,
			store.FieldUserEmail: sub.Submitter.Email,
		},
		store.FieldRating:    sub.Rating,
		store.FieldComment:   strings.TrimSpace(sub.Comment),
		store.FieldStatus:    models.StatusNew.WireValue(),
		store.FieldCreatedAt: now,
		store.FieldUpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(ctx, config.MutationTimeout)
	defer cancel()

	id, err = s.store.Create(ctx, doc)
	if err != nil {
		s.logger.Error(ctx, "Failed to create feedback", err, map[string]interface{}{
			"submitter_uid": sub.SubmitterID,
		})
		return "", err
	}

	s.logger.Info(ctx, "Feedback submitted", map[string]interface{}{
		"feedback_id":   id,
		"submitter_uid": sub.SubmitterID,
		"rating":        sub.Rating,
	})
	span.SetAttributes(attribute.String("feedback.id", id))
	return id, nil
}

// MarkRead transitions a feedback entry from new to read.
func (s *FeedbackService) MarkRead(ctx context.Context, id string) (err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "mark_read",
		attribute.String("feedback.id", id))
	defer observability.FinishSpan(span, &err)

	return s.transition(ctx, id, models.StatusRead, nil)
}

// MarkResponded transitions a feedback entry to responded without recording
// a response payload. The response text, if any, is attached via Respond.
func (s *FeedbackService) MarkResponded(ctx context.Context, id string) (err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "mark_responded",
		attribute.String("feedback.id", id))
	defer observability.FinishSpan(span, &err)

	return s.transition(ctx, id, models.StatusResponded, nil)
}

// Respond records a response on a feedback entry and transitions it to
// responded in the same patch, so no observer ever sees the status without
// the response or vice versa.
func (s *FeedbackService) Respond(ctx context.Context, id, text string, responder models.User) (err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "respond",
		attribute.String("feedback.id", id))
	defer observability.FinishSpan(span, &err)

	text = strings.TrimSpace(text)
	if text == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "response text is required")
	}

	respondedBy := responder.DisplayName
	if respondedBy == "" {
		respondedBy = responder.Email
	}

	response := map[string]interface{}{
		store.FieldResponseText: text,
		store.FieldRespondedBy:  respondedBy,
		store.FieldRespondedAt:  s.now(),
	}

	if err := s.transition(ctx, id, models.StatusResponded, map[string]interface{}{
		store.FieldResponse: response,
	}); err != nil {
		return err
	}

	s.notifySubmitter(ctx, id, text)
	return nil
}

// Remove deletes a feedback entry. Deletion is allowed in any status.
func (s *FeedbackService) Remove(ctx context.Context, id string) (err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "remove",
		attribute.String("feedback.id", id))
	defer observability.FinishSpan(span, &err)

	if _, ok := s.reader.Get(id); !ok {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "feedback %s not found", id)
	}

	ctx, cancel := context.WithTimeout(ctx, config.MutationTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error(ctx, "Failed to delete feedback", err, map[string]interface{}{
			"feedback_id": id,
		})
		return err
	}

	s.logger.Info(ctx, "Feedback deleted", map[string]interface{}{
		"feedback_id": id,
	})
	return nil
}

// transition checks status monotonicity against the cached entry and issues
// the partial update. extra fields, when present, ride in the same patch.
func (s *FeedbackService) transition(ctx context.Context, id string, target models.FeedbackStatus, extra map[string]interface{}) error {
	cur, ok := s.reader.Get(id)
	if !ok {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "feedback %s not found", id)
	}

	if !cur.Status.CanTransitionTo(target) {
		return contextutils.WrapErrorf(contextutils.ErrInvalidTransition,
			"cannot transition feedback %s from %s to %s", id, cur.Status, target)
	}

	patch := map[string]interface{}{
		store.FieldStatus:    target.WireValue(),
		store.FieldUpdatedAt: s.now(),
	}
	for k, v := range extra {
		patch[k] = v
	}

	// Mutations are never retried; the deadline bounds how long a single
	// attempt may hang on the store.
	ctx, cancel := context.WithTimeout(ctx, config.MutationTimeout)
	defer cancel()

	if err := s.store.Update(ctx, id, patch); err != nil {
		s.logger.Error(ctx, "Failed to update feedback status", err, map[string]interface{}{
			"feedback_id": id,
			"status":      string(target),
		})
		return err
	}

	s.logger.Info(ctx, "Feedback status updated", map[string]interface{}{
		"feedback_id": id,
		"status":      string(target),
	})
	return nil
}

// notifySubmitter emails the submitter about the new response. Notification
// failure never fails the mutation; it is logged and dropped.
func (s *FeedbackService) notifySubmitter(ctx context.Context, id, responseText string) {
	if s.notifier == nil || !s.notifier.IsEnabled() {
		return
	}

	fb, ok := s.reader.Get(id)
	if !ok {
		return
	}

	if err := s.notifier.SendResponseNotification(ctx, fb, responseText); err != nil {
		s.logger.Warn(ctx, "Response notification failed", map[string]interface{}{
			"feedback_id": id,
			"error":       err.Error(),
		})
	}
}
