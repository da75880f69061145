package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"feedbackapp/internal/models"
	contextutils "feedbackapp/internal/utils"
)

// Fake is an in-memory FeedbackStore and UserStore with the same snapshot
// semantics as the Firestore client: every mutation rebroadcasts the full
// current document set to all live subscribers. It backs unit tests and
// local development without credentials.
type Fake struct {
	mu     sync.Mutex
	docs   map[string]map[string]interface{}
	users  map[string]models.User
	nextID int
	subs   []*fakeSub

	// Error injection for mutation failure paths. Consumed on next call.
	CreateErr    error
	UpdateErr    error
	DeleteErr    error
	SubscribeErr error
}

type fakeSub struct {
	ch     chan Snapshot
	opts   SubscribeOptions
	ctx    context.Context
	closed bool
}

// NewFake creates an empty fake store.
func NewFake() *Fake {
	return &Fake{
		docs:  make(map[string]map[string]interface{}),
		users: make(map[string]models.User),
	}
}

// Subscribe registers a subscriber and immediately delivers the current
// snapshot. The channel closes when ctx is cancelled.
func (f *Fake) Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SubscribeErr != nil {
		err := f.SubscribeErr
		f.SubscribeErr = nil
		return nil, err
	}

	sub := &fakeSub{
		ch:   make(chan Snapshot, 16),
		opts: opts,
		ctx:  ctx,
	}
	f.subs = append(f.subs, sub)
	sub.ch <- Snapshot{Docs: f.snapshotFor(opts)}

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
	}()

	return sub.ch, nil
}

// Create stores a copy of doc under a generated ID and rebroadcasts.
func (f *Fake) Create(_ context.Context, doc map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		err := f.CreateErr
		f.CreateErr = nil
		return "", err
	}

	f.nextID++
	id := fmt.Sprintf("fake-%d", f.nextID)
	f.docs[id] = copyDoc(doc)
	f.broadcast()
	return id, nil
}

// Update merges the patch into an existing document and rebroadcasts.
// Like the Firestore adapter it stamps updatedAt when the patch lacks one.
func (f *Fake) Update(_ context.Context, id string, patch map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		err := f.UpdateErr
		f.UpdateErr = nil
		return err
	}

	doc, ok := f.docs[id]
	if !ok {
		return contextutils.ErrRecordNotFound
	}
	for k, v := range patch {
		doc[k] = v
	}
	if _, ok := patch[FieldUpdatedAt]; !ok {
		doc[FieldUpdatedAt] = time.Now()
	}
	f.broadcast()
	return nil
}

// Delete removes the document and rebroadcasts; absence from the next
// snapshot is the only deletion signal subscribers get.
func (f *Fake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DeleteErr != nil {
		err := f.DeleteErr
		f.DeleteErr = nil
		return err
	}

	delete(f.docs, id)
	f.broadcast()
	return nil
}

// GetUser looks up a seeded user document.
func (f *Fake) GetUser(_ context.Context, uid string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[uid]
	if !ok {
		return nil, contextutils.ErrRecordNotFound
	}
	out := u
	return &out, nil
}

// PutUser stores a user document.
func (f *Fake) PutUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.users[user.UID] = *user
	return nil
}

// SeedFeedback inserts a document without going through Create, returning
// its ID. Useful for arranging test fixtures.
func (f *Fake) SeedFeedback(doc map[string]interface{}) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := fmt.Sprintf("fake-%d", f.nextID)
	f.docs[id] = copyDoc(doc)
	f.broadcast()
	return id
}

// Doc returns a copy of the stored document, if present.
func (f *Fake) Doc(id string) (map[string]interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[id]
	if !ok {
		return nil, false
	}
	return copyDoc(doc), true
}

// Len reports the number of stored feedback documents.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

// broadcast sends a fresh full snapshot to every live subscriber.
// Callers must hold f.mu.
func (f *Fake) broadcast() {
	for _, sub := range f.subs {
		if sub.closed || sub.ctx.Err() != nil {
			continue
		}
		select {
		case sub.ch <- Snapshot{Docs: f.snapshotFor(sub.opts)}:
		default:
			// Subscriber is not draining; drop rather than block.
		}
	}
}

// snapshotFor builds the document set a subscription sees: owner-scoped
// subscriptions are filtered, the global one is ordered newest first.
// Callers must hold f.mu.
func (f *Fake) snapshotFor(opts SubscribeOptions) []Document {
	var docs []Document
	for id, data := range f.docs {
		if opts.OwnerUID != "" {
			if uid, _ := data[FieldUserID].(string); uid != opts.OwnerUID {
				continue
			}
		}
		docs = append(docs, Document{ID: id, Data: copyDoc(data)})
	}

	if opts.OwnerUID == "" {
		sort.SliceStable(docs, func(i, j int) bool {
			return docTime(docs[i]).After(docTime(docs[j]))
		})
	}
	return docs
}

func docTime(d Document) time.Time {
	if t, ok := d.Data[FieldCreatedAt].(time.Time); ok {
		return t
	}
	return time.Time{}
}

func copyDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if nested, ok := v.(map[string]interface{}); ok {
			inner := make(map[string]interface{}, len(nested))
			for nk, nv := range nested {
				inner[nk] = nv
			}
			out[k] = inner
			continue
		}
		out[k] = v
	}
	return out
}
