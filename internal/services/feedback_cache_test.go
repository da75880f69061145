package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/store"
	contextutils "feedbackapp/internal/utils"
)

func testLogger() *observability.Logger {
	return &observability.Logger{Logger: zap.NewNop()}
}

func feedbackDoc(uid, comment string, rating int, createdAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		store.FieldUserID: uid,
		store.FieldUser: map[string]interface{}{
			store.FieldUserName:  "Test User",
			store.FieldUserEmail: uid + "@example.com",
		},
		store.FieldRating:    rating,
		store.FieldComment:   comment,
		store.FieldStatus:    "novo",
		store.FieldCreatedAt: createdAt,
		store.FieldUpdatedAt: createdAt,
	}
}

func startCache(t *testing.T, fake *store.Fake) (*FeedbackCache, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cache := NewFeedbackCache(fake, store.SubscribeOptions{}, testLogger())
	require.NoError(t, cache.Start(ctx))

	return cache, cancel
}

func waitLoaded(t *testing.T, cache *FeedbackCache) {
	t.Helper()
	assert.Eventually(t, func() bool { return !cache.Loading() }, time.Second, 5*time.Millisecond)
}

func TestFeedbackCache_LoadingUntilFirstSnapshot(t *testing.T) {
	fake := store.NewFake()
	fake.SeedFeedback(feedbackDoc("u1", "first comment here", 5, time.Now()))

	cache, cancel := startCache(t, fake)
	defer cancel()

	waitLoaded(t, cache)
	assert.Len(t, cache.All(), 1)
	assert.NoError(t, cache.Err())
}

func TestFeedbackCache_FullReplacement(t *testing.T) {
	fake := store.NewFake()
	base := time.Now()
	id1 := fake.SeedFeedback(feedbackDoc("u1", "older entry text", 3, base.Add(-time.Hour)))

	cache, cancel := startCache(t, fake)
	defer cancel()
	waitLoaded(t, cache)

	id2 := fake.SeedFeedback(feedbackDoc("u2", "newer entry text", 4, base))

	assert.Eventually(t, func() bool { return len(cache.All()) == 2 }, time.Second, 5*time.Millisecond)

	// Newest first, matching the subscription ordering.
	all := cache.All()
	assert.Equal(t, id2, all[0].ID)
	assert.Equal(t, id1, all[1].ID)
}

func TestFeedbackCache_DeletionIsAbsenceFromNextSnapshot(t *testing.T) {
	fake := store.NewFake()
	id := fake.SeedFeedback(feedbackDoc("u1", "to be deleted soon", 2, time.Now()))

	cache, cancel := startCache(t, fake)
	defer cancel()
	waitLoaded(t, cache)

	_, ok := cache.Get(id)
	require.True(t, ok)

	require.NoError(t, fake.Delete(context.Background(), id))

	assert.Eventually(t, func() bool {
		_, ok := cache.Get(id)
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, cache.All())
}

func TestFeedbackCache_SubscriptionErrorIsPersistent(t *testing.T) {
	fake := store.NewFake()
	fake.SubscribeErr = contextutils.ErrSubscriptionFailed

	cache := NewFeedbackCache(fake, store.SubscribeOptions{}, testLogger())
	err := cache.Start(context.Background())

	require.Error(t, err)
	assert.False(t, cache.Loading())
	assert.True(t, contextutils.IsError(cache.Err(), contextutils.ErrSubscriptionFailed))
}

func TestFeedbackCache_DecodeDegradesGracefully(t *testing.T) {
	fake := store.NewFake()
	id := fake.SeedFeedback(map[string]interface{}{
		store.FieldUserID:    "u1",
		store.FieldComment:   "document with oddities",
		store.FieldRating:    int64(4),
		store.FieldStatus:    "something-unknown",
		store.FieldCreatedAt: "not-a-timestamp",
	})

	cache, cancel := startCache(t, fake)
	defer cancel()
	waitLoaded(t, cache)

	fb, ok := cache.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.StatusNew, fb.Status)
	assert.Equal(t, 4, fb.Rating)
	assert.True(t, fb.CreatedAt.IsZero())
}

func TestFeedbackCache_AllReturnsCopy(t *testing.T) {
	fake := store.NewFake()
	fake.SeedFeedback(feedbackDoc("u1", "copy semantics test", 5, time.Now()))

	cache, cancel := startCache(t, fake)
	defer cancel()
	waitLoaded(t, cache)

	first := cache.All()
	first[0].Comment = "mutated"

	again := cache.All()
	assert.Equal(t, "copy semantics test", again[0].Comment)
}
