// Package store wraps the remote document store holding the feedback and
// user collections. It exposes a live subscription over the feedback
// collection plus the create/update/delete mutations, and hides the
// store-native document representation behind a raw Document type.
package store

import (
	"context"

	"feedbackapp/internal/models"
)

// Wire field names for feedback documents.
const (
	FieldUserID    = "userId"
	FieldUser      = "user"
	FieldUserName  = "name"
	FieldUserEmail = "email"
	FieldRating    = "rating"
	FieldComment   = "comment"
	FieldStatus    = "status"
	FieldResponse  = "response"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"

	FieldResponseText = "text"
	FieldRespondedBy  = "respondedBy"
	FieldRespondedAt  = "respondedAt"
)

// Document is a raw store document: the store-assigned ID plus the wire
// fields as delivered by the store.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Snapshot is a full point-in-time result set delivered by the live query.
// Every event carries the complete current document set, never a diff;
// consumers reconcile by wholesale replacement.
type Snapshot struct {
	Docs []Document
	// Err is set when the subscription itself failed (permission, network).
	// No further snapshots follow an errored one.
	Err error
}

// SubscribeOptions selects what the live query covers.
type SubscribeOptions struct {
	// OwnerUID limits the subscription to documents created by the given
	// user. When empty, the subscription covers the whole collection
	// ordered by creation time descending.
	OwnerUID string
}

// FeedbackStore is the subscription and mutation contract over the
// feedback collection. Mutations are not retried by the adapter; a
// failure surfaces once to the caller.
type FeedbackStore interface {
	// Subscribe opens the live query. The returned channel delivers full
	// snapshots until ctx is cancelled, which releases the listener.
	Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan Snapshot, error)

	// Create adds a new document and returns its store-assigned ID.
	Create(ctx context.Context, doc map[string]interface{}) (string, error)

	// Update applies a partial patch to an existing document. The adapter
	// stamps updatedAt into the patch if the caller did not.
	Update(ctx context.Context, id string, patch map[string]interface{}) error

	// Delete removes a document.
	Delete(ctx context.Context, id string) error
}

// UserStore reads and writes user documents (role lookup and the
// registration bootstrap).
type UserStore interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	PutUser(ctx context.Context, user *models.User) error
}
