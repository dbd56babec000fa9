package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"markit/internal/bookmark/model"
)

var (
	// ErrValidation rejects an Add with an empty title or url before any
	// request is made.
	ErrValidation = errors.New("title and url must not be empty")
	// ErrAlreadySubscribed rejects a second Subscribe while one is active.
	ErrAlreadySubscribed = errors.New("subscription already active")
)

// Store is the remote bookmark store as seen from a client session.
type Store interface {
	List(ctx context.Context) ([]model.Bookmark, error)
	Insert(ctx context.Context, title, url string) (model.Bookmark, error)
	Delete(ctx context.Context, id string) error
}

// Subscription is one open change-event stream. Close must be safe to call
// more than once; Events closes when no further events will arrive.
type Subscription interface {
	Events() <-chan model.ChangeEvent
	Close() error
}

// Subscriber opens subscriptions scoped to the authenticated user.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// ViewModel drives one user's bookmark screen: it holds the projection, issues
// Add/Delete commands against the store, and merges the pushed event stream.
// Commands and stream events are two concurrent producers; both funnel into
// Projection.Apply under one mutex, so the idempotent-per-id contract lives in
// a single place.
type ViewModel struct {
	mu      sync.Mutex
	proj    *Projection
	store   Store
	subs    Subscriber
	sub     Subscription
	pending int
	log     *zap.SugaredLogger

	// OnChange, when set before Subscribe, is called (outside the lock) after
	// every mutation of the collection. Used by shells to re-render.
	OnChange func()
}

// New builds a view model from an already-fetched snapshot.
func New(userID string, snapshot []model.Bookmark, store Store, subs Subscriber, log *zap.SugaredLogger) *ViewModel {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ViewModel{
		proj:  NewProjection(userID, snapshot),
		store: store,
		subs:  subs,
		log:   log,
	}
}

// NewFromStore queries the store for the initial snapshot, then builds the
// view model. No event is applied before the snapshot is in place.
func NewFromStore(ctx context.Context, userID string, store Store, subs Subscriber, log *zap.SugaredLogger) (*ViewModel, error) {
	snapshot, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return New(userID, snapshot, store, subs, log), nil
}

// Subscribe opens the change-event stream and starts merging it. At most one
// subscription is active per view model; a second call while one is active
// returns ErrAlreadySubscribed.
func (v *ViewModel) Subscribe(ctx context.Context) error {
	v.mu.Lock()
	if v.sub != nil {
		v.mu.Unlock()
		return ErrAlreadySubscribed
	}
	v.mu.Unlock()

	sub, err := v.subs.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	v.mu.Lock()
	if v.sub != nil {
		// Lost a race with a concurrent Subscribe; this one yields.
		v.mu.Unlock()
		sub.Close()
		return ErrAlreadySubscribed
	}
	v.sub = sub
	v.mu.Unlock()

	go v.pump(sub)
	return nil
}

// Unsubscribe releases the stream. It is a no-op when nothing is subscribed
// and safe to call on every exit path; the underlying resource is closed
// exactly once, and events still in flight after close begins are dropped.
func (v *ViewModel) Unsubscribe() {
	v.mu.Lock()
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Subscribed reports whether a stream is currently attached.
func (v *ViewModel) Subscribed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sub != nil
}

func (v *ViewModel) pump(sub Subscription) {
	for ev := range sub.Events() {
		v.mu.Lock()
		if v.sub != sub {
			// Teardown began; stop applying.
			v.mu.Unlock()
			return
		}
		changed := v.proj.Apply(ev)
		v.mu.Unlock()
		if changed {
			v.notify()
		}
	}
	// The stream ended on its own: the projection is stale until the caller
	// re-subscribes.
	v.mu.Lock()
	if v.sub == sub {
		v.sub = nil
	}
	v.mu.Unlock()
	v.log.Warn("Change-event stream closed; local bookmarks are stale until re-subscribed")
}

// Add validates the fields locally, submits the creation, and applies the
// server-confirmed record. The stream will deliver the same record again;
// the upsert by id makes that a no-op.
func (v *ViewModel) Add(ctx context.Context, title, url string) error {
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	if title == "" || url == "" {
		return ErrValidation
	}

	v.mu.Lock()
	v.pending++
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.pending--
		v.mu.Unlock()
	}()

	b, err := v.store.Insert(ctx, title, url)
	if err != nil {
		// No local state to undo: nothing was inserted optimistically.
		return fmt.Errorf("add bookmark: %w", err)
	}

	v.mu.Lock()
	changed := v.proj.Apply(model.ChangeEvent{Type: model.EventInsert, UserID: b.UserID, Bookmark: &b})
	v.mu.Unlock()
	if changed {
		v.notify()
	}
	return nil
}

// Delete removes the bookmark optimistically, then submits the deletion. If
// the request fails the held copy is re-applied, so a delete that never
// happened remotely does not stay hidden locally. A later stream DELETE for
// the same id lands on an absent entry and is a no-op.
func (v *ViewModel) Delete(ctx context.Context, id string) error {
	v.mu.Lock()
	userID := v.proj.userID
	held, had := v.proj.Get(id)
	if had {
		v.proj.Apply(model.ChangeEvent{Type: model.EventDelete, UserID: userID, ID: id})
	}
	v.mu.Unlock()
	if had {
		v.notify()
	}

	if err := v.store.Delete(ctx, id); err != nil {
		if had {
			v.mu.Lock()
			v.proj.Apply(model.ChangeEvent{Type: model.EventInsert, UserID: userID, Bookmark: &held})
			v.mu.Unlock()
			v.notify()
		}
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

// Pending reports how many Add submissions are in flight.
func (v *ViewModel) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending
}

func (v *ViewModel) SetFilter(term string) {
	v.mu.Lock()
	v.proj.SetFilter(term)
	v.mu.Unlock()
	v.notify()
}

// Visible returns the filtered, display-ordered bookmark list.
func (v *ViewModel) Visible() []model.Bookmark {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.proj.Visible()
}

// Len reports the unfiltered collection size.
func (v *ViewModel) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.proj.Len()
}

func (v *ViewModel) notify() {
	if v.OnChange != nil {
		v.OnChange()
	}
}
