// Package services holds the feedback synchronization core: the live cache
// fed by the store subscription, the pure filter/metrics/pagination
// functions over it, and the mutation coordinator.
package services

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/store"
	contextutils "feedbackapp/internal/utils"
)

// FeedbackCache owns the canonical in-memory feedback collection. It is the
// single component that writes it: every subscription event replaces the
// whole collection in one assignment, so readers always observe a complete,
// internally consistent snapshot. Nothing else mutates the cache; mutations
// go to the store and come back through the next snapshot.
type FeedbackCache struct {
	store  store.FeedbackStore
	opts   store.SubscribeOptions
	logger *observability.Logger

	mu        sync.RWMutex
	feedbacks []models.Feedback
	byID      map[string]models.Feedback
	loading   bool
	err       error
}

// NewFeedbackCache creates a cache over the given store. opts selects the
// subscription scope (whole collection for the dashboard, owner-scoped for
// the submitter view).
func NewFeedbackCache(st store.FeedbackStore, opts store.SubscribeOptions, logger *observability.Logger) *FeedbackCache {
	if st == nil {
		panic("NewFeedbackCache: store is nil")
	}
	if logger == nil {
		panic("NewFeedbackCache: logger is nil")
	}
	return &FeedbackCache{
		store:   st,
		opts:    opts,
		logger:  logger,
		byID:    make(map[string]models.Feedback),
		loading: true,
	}
}

// Start opens the subscription and consumes snapshots until ctx is
// cancelled, which releases the store listener.
func (c *FeedbackCache) Start(ctx context.Context) error {
	ch, err := c.store.Subscribe(ctx, c.opts)
	if err != nil {
		c.mu.Lock()
		c.loading = false
		c.err = err
		c.mu.Unlock()
		return contextutils.WrapError(err, "failed to open feedback subscription")
	}

	go c.consume(ctx, ch)
	return nil
}

func (c *FeedbackCache) consume(ctx context.Context, ch <-chan store.Snapshot) {
	for snap := range ch {
		if snap.Err != nil {
			// Persistent error state: loading ends, no data is shown.
			c.mu.Lock()
			c.loading = false
			c.err = snap.Err
			c.mu.Unlock()
			c.logger.Error(ctx, "Feedback cache entering error state", snap.Err, nil)
			return
		}
		c.apply(ctx, snap)
	}
}

// apply rebuilds the collection from a full snapshot.
func (c *FeedbackCache) apply(ctx context.Context, snap store.Snapshot) {
	ctx, span := observability.TraceCacheFunction(ctx, "apply_snapshot",
		attribute.Int("feedback.count", len(snap.Docs)))
	defer span.End()

	feedbacks := make([]models.Feedback, 0, len(snap.Docs))
	byID := make(map[string]models.Feedback, len(snap.Docs))
	for _, doc := range snap.Docs {
		fb := decodeFeedback(doc)
		feedbacks = append(feedbacks, fb)
		byID[fb.ID] = fb
	}

	c.mu.Lock()
	c.feedbacks = feedbacks
	c.byID = byID
	c.loading = false
	c.err = nil
	c.mu.Unlock()

	c.logger.Debug(ctx, "Feedback cache replaced", map[string]interface{}{
		"count": len(feedbacks),
	})
}

// All returns a copy of the current collection in subscription order.
func (c *FeedbackCache) All() []models.Feedback {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Feedback, len(c.feedbacks))
	copy(out, c.feedbacks)
	return out
}

// Get returns the cached entry for id, if known.
func (c *FeedbackCache) Get(id string) (models.Feedback, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fb, ok := c.byID[id]
	return fb, ok
}

// Loading reports whether the first snapshot has not yet arrived.
func (c *FeedbackCache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Err returns the persistent subscription error, if any.
func (c *FeedbackCache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// decodeFeedback normalizes a raw store document into the canonical entity.
// Malformed fields degrade rather than fail: an untranslatable timestamp
// becomes the zero time and an unknown status maps to new.
func decodeFeedback(doc store.Document) models.Feedback {
	data := doc.Data

	fb := models.Feedback{
		ID:        doc.ID,
		Status:    models.StatusNew,
		CreatedAt: asTime(data[store.FieldCreatedAt]),
		UpdatedAt: asTime(data[store.FieldUpdatedAt]),
	}

	if uid, ok := data[store.FieldUserID].(string); ok {
		fb.SubmitterID = uid
	}
	if comment, ok := data[store.FieldComment].(string); ok {
		fb.Comment = comment
	}
	if rating, ok := asInt(data[store.FieldRating]); ok {
		fb.Rating = rating
	}
	if raw, ok := data[store.FieldStatus].(string); ok {
		fb.Status = models.FeedbackStatusFromWire(raw)
	}

	if user, ok := data[store.FieldUser].(map[string]interface{}); ok {
		if name, ok := user[store.FieldUserName].(string); ok {
			fb.Submitter.Name = name
		}
		if email, ok := user[store.FieldUserEmail].(string); ok {
			fb.Submitter.Email = email
		}
	}

	if resp, ok := data[store.FieldResponse].(map[string]interface{}); ok {
		r := &models.FeedbackResponse{
			RespondedAt: asTime(resp[store.FieldRespondedAt]),
		}
		if text, ok := resp[store.FieldResponseText].(string); ok {
			r.Text = text
		}
		if by, ok := resp[store.FieldRespondedBy].(string); ok {
			r.RespondedBy = by
		}
		fb.Response = r
	}

	return fb
}

// asTime translates a store-native timestamp into time.Time, falling back
// to the zero time when translation fails.
func asTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
