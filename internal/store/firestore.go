package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"feedbackapp/internal/config"
	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	contextutils "feedbackapp/internal/utils"
)

// Client is the Firestore-backed implementation of FeedbackStore and
// UserStore. The connection is created once and injected into the
// components that need it.
type Client struct {
	client    *firestore.Client
	feedbacks string
	users     string
	logger    *observability.Logger
}

// NewClient connects to Firestore using the configured project and
// credentials.
func NewClient(ctx context.Context, cfg *config.StoreConfig, logger *observability.Logger) (*Client, error) {
	if logger == nil {
		panic("store.NewClient: logger is nil")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	fc, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeStoreUnavailable,
			contextutils.SeverityError,
			"Document store unavailable",
			"failed to create firestore client",
			err,
		)
	}

	return &Client{
		client:    fc,
		feedbacks: cfg.FeedbackCollection,
		users:     cfg.UserCollection,
		logger:    logger,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Subscribe opens the live query over the feedback collection. The dashboard
// subscription is ordered by creation time descending; an owner-scoped
// subscription is filtered server-side and left to the consumer to sort, the
// same split the clients use.
func (c *Client) Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan Snapshot, error) {
	q := c.client.Collection(c.feedbacks).Query
	if opts.OwnerUID != "" {
		q = q.Where(FieldUserID, "==", opts.OwnerUID)
	} else {
		q = q.OrderBy(FieldCreatedAt, firestore.Desc)
	}

	ch := make(chan Snapshot, 1)

	go func() {
		defer close(ch)

		it := q.Snapshots(ctx)
		defer it.Stop()

		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					// Listener released by the owner.
					return
				}
				c.logger.Error(ctx, "Feedback subscription failed", err, map[string]interface{}{
					"collection": c.feedbacks,
				})
				ch <- Snapshot{Err: contextutils.NewAppErrorWithCause(
					contextutils.ErrorCodeSubscriptionFailed,
					contextutils.SeverityError,
					"Live query subscription failed",
					"feedback collection listener terminated",
					err,
				)}
				return
			}

			docs, err := collectDocuments(qs)
			if err != nil {
				ch <- Snapshot{Err: err}
				return
			}

			select {
			case ch <- Snapshot{Docs: docs}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// collectDocuments drains a query snapshot into raw documents.
func collectDocuments(qs *firestore.QuerySnapshot) ([]Document, error) {
	var docs []Document
	for {
		d, err := qs.Documents.Next()
		if err == iterator.Done {
			return docs, nil
		}
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to read snapshot document")
		}
		docs = append(docs, Document{ID: d.Ref.ID, Data: d.Data()})
	}
}

// Create adds a new feedback document.
func (c *Client) Create(ctx context.Context, doc map[string]interface{}) (id string, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "create")
	defer observability.FinishSpan(span, &err)

	ref, _, err := c.client.Collection(c.feedbacks).Add(ctx, doc)
	if err != nil {
		return "", mutationError(err, "create")
	}
	return ref.ID, nil
}

// Update applies a partial patch. updatedAt is stamped here so every
// mutation refreshes it, regardless of the caller.
func (c *Client) Update(ctx context.Context, id string, patch map[string]interface{}) (err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "update")
	defer observability.FinishSpan(span, &err)

	merged := make(map[string]interface{}, len(patch)+1)
	for k, v := range patch {
		merged[k] = v
	}
	if _, ok := merged[FieldUpdatedAt]; !ok {
		merged[FieldUpdatedAt] = time.Now()
	}

	if _, err = c.client.Collection(c.feedbacks).Doc(id).Set(ctx, merged, firestore.MergeAll); err != nil {
		if status.Code(err) == codes.NotFound {
			return contextutils.ErrRecordNotFound
		}
		return mutationError(err, "update")
	}
	return nil
}

// Delete removes a feedback document.
func (c *Client) Delete(ctx context.Context, id string) (err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "delete")
	defer observability.FinishSpan(span, &err)

	if _, err = c.client.Collection(c.feedbacks).Doc(id).Delete(ctx); err != nil {
		return mutationError(err, "delete")
	}
	return nil
}

// GetUser reads a user document for role and display name lookup.
func (c *Client) GetUser(ctx context.Context, uid string) (user *models.User, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "get_user")
	defer observability.FinishSpan(span, &err)

	snap, err := c.client.Collection(c.users).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, contextutils.ErrRecordNotFound
		}
		return nil, contextutils.WrapError(err, "failed to read user document")
	}

	data := snap.Data()
	u := &models.User{UID: uid, Role: models.RoleUser}
	if name, ok := data["name"].(string); ok {
		u.DisplayName = name
	}
	if email, ok := data["email"].(string); ok {
		u.Email = email
	}
	if role, ok := data["role"].(string); ok && role == string(models.RoleAdmin) {
		u.Role = models.RoleAdmin
	}
	return u, nil
}

// PutUser writes the user document created at registration time.
func (c *Client) PutUser(ctx context.Context, user *models.User) (err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "put_user")
	defer observability.FinishSpan(span, &err)

	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	_, err = c.client.Collection(c.users).Doc(user.UID).Set(ctx, map[string]interface{}{
		"name":  user.DisplayName,
		"email": user.Email,
		"role":  string(role),
	})
	if err != nil {
		return mutationError(err, "put_user")
	}
	return nil
}

func mutationError(err error, op string) error {
	return contextutils.NewAppErrorWithCause(
		contextutils.ErrorCodeMutationFailed,
		contextutils.SeverityError,
		"Store mutation failed",
		op+" rejected by the document store",
		err,
	)
}
