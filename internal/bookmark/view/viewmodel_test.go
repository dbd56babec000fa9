package view

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markit/internal/bookmark/model"
)

type fakeStore struct {
	mu        sync.Mutex
	snapshot  []model.Bookmark
	inserted  int
	deleted   []string
	insertErr error
	deleteErr error
	insertGo  chan struct{} // when set, Insert blocks until it is closed
}

func (f *fakeStore) List(ctx context.Context) ([]model.Bookmark, error) {
	return f.snapshot, nil
}

func (f *fakeStore) Insert(ctx context.Context, title, url string) (model.Bookmark, error) {
	if f.insertGo != nil {
		<-f.insertGo
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return model.Bookmark{}, f.insertErr
	}
	f.inserted++
	return model.Bookmark{
		ID:        fmt.Sprintf("srv-%d", f.inserted),
		CreatedAt: time.Now(),
		UserID:    testUser,
		URL:       url,
		Title:     title,
	}, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserted
}

type fakeSubscription struct {
	events     chan model.ChangeEvent
	mu         sync.Mutex
	closeCalls int
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{events: make(chan model.ChangeEvent, 16)}
}

func (s *fakeSubscription) Events() <-chan model.ChangeEvent { return s.events }

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	return nil
}

func (s *fakeSubscription) closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

type fakeSubscriber struct {
	sub  *fakeSubscription
	errs error
}

func (f *fakeSubscriber) Subscribe(ctx context.Context) (Subscription, error) {
	if f.errs != nil {
		return nil, f.errs
	}
	return f.sub, nil
}

func newViewModel(snapshot []model.Bookmark, store *fakeStore, subs *fakeSubscriber) *ViewModel {
	return New(testUser, snapshot, store, subs, nil)
}

func TestAddRejectsEmptyFields(t *testing.T) {
	store := &fakeStore{}
	vm := newViewModel(nil, store, &fakeSubscriber{sub: newFakeSubscription()})

	for _, tc := range [][2]string{
		{"", "https://x.com"},
		{"X", ""},
		{"   ", "https://x.com"},
		{"X", "  \t"},
	} {
		err := vm.Add(context.Background(), tc[0], tc[1])
		assert.ErrorIs(t, err, ErrValidation)
	}
	// A validation failure must never reach the store.
	assert.Equal(t, 0, store.insertCount())
	assert.Equal(t, 0, vm.Len())
}

func TestAddAppliesServerAssignedRecord(t *testing.T) {
	store := &fakeStore{}
	vm := newViewModel(nil, store, &fakeSubscriber{sub: newFakeSubscription()})

	require.NoError(t, vm.Add(context.Background(), "  Google ", " https://google.com "))

	visible := vm.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "srv-1", visible[0].ID)
	assert.Equal(t, "Google", visible[0].Title)
	assert.Equal(t, "https://google.com", visible[0].URL)
}

func TestAddFailureLeavesCollectionUntouched(t *testing.T) {
	store := &fakeStore{insertErr: fmt.Errorf("store down")}
	vm := newViewModel(nil, store, &fakeSubscriber{sub: newFakeSubscription()})

	err := vm.Add(context.Background(), "Google", "https://google.com")
	require.Error(t, err)
	assert.Equal(t, 0, vm.Len())
	assert.Equal(t, 0, vm.Pending())
}

func TestAddThenStreamEventDeduplicates(t *testing.T) {
	store := &fakeStore{}
	sub := newFakeSubscription()
	vm := newViewModel(nil, store, &fakeSubscriber{sub: sub})
	require.NoError(t, vm.Subscribe(context.Background()))
	defer vm.Unsubscribe()

	require.NoError(t, vm.Add(context.Background(), "Google", "https://google.com"))
	added := vm.Visible()[0]

	// The stream delivers the creation the command already applied.
	sub.events <- model.ChangeEvent{Type: model.EventInsert, UserID: testUser, Bookmark: &added}

	assert.Eventually(t, func() bool { return vm.Len() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, vm.Len())
}

func TestPendingTracksInFlightAdds(t *testing.T) {
	release := make(chan struct{})
	store := &fakeStore{insertGo: release}
	vm := newViewModel(nil, store, &fakeSubscriber{sub: newFakeSubscription()})

	done := make(chan error, 1)
	go func() { done <- vm.Add(context.Background(), "Google", "https://google.com") }()

	require.Eventually(t, func() bool { return vm.Pending() == 1 }, time.Second, time.Millisecond)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 0, vm.Pending())
}

func TestDeleteOptimisticallyRemoves(t *testing.T) {
	now := time.Now()
	store := &fakeStore{}
	vm := newViewModel([]model.Bookmark{bm("5", "Five", "https://five.com", now)}, store, &fakeSubscriber{sub: newFakeSubscription()})

	require.NoError(t, vm.Delete(context.Background(), "5"))
	assert.Equal(t, 0, vm.Len())
	assert.Equal(t, []string{"5"}, store.deleted)
}

func TestDeleteReinsertsOnFailure(t *testing.T) {
	now := time.Now()
	held := bm("5", "Five", "https://five.com", now)
	store := &fakeStore{deleteErr: fmt.Errorf("store down")}
	vm := newViewModel([]model.Bookmark{held}, store, &fakeSubscriber{sub: newFakeSubscription()})

	err := vm.Delete(context.Background(), "5")
	require.Error(t, err)

	// The optimistic removal must be undone: the record is back, intact.
	visible := vm.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, held, visible[0])
}

func TestDeleteAbsentIDStillIssuesRequest(t *testing.T) {
	store := &fakeStore{}
	vm := newViewModel(nil, store, &fakeSubscriber{sub: newFakeSubscription()})

	require.NoError(t, vm.Delete(context.Background(), "ghost"))
	assert.Equal(t, []string{"ghost"}, store.deleted)
}

func TestDuplicateStreamDeleteIsNoOp(t *testing.T) {
	now := time.Now()
	store := &fakeStore{}
	sub := newFakeSubscription()
	vm := newViewModel([]model.Bookmark{bm("5", "Five", "https://five.com", now)}, store, &fakeSubscriber{sub: sub})
	require.NoError(t, vm.Subscribe(context.Background()))
	defer vm.Unsubscribe()

	require.NoError(t, vm.Delete(context.Background(), "5"))

	// The stream confirms the deletion the command already applied.
	sub.events <- model.ChangeEvent{Type: model.EventDelete, UserID: testUser, ID: "5"}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, vm.Len())
}

func TestSubscribeTwiceFails(t *testing.T) {
	vm := newViewModel(nil, &fakeStore{}, &fakeSubscriber{sub: newFakeSubscription()})
	require.NoError(t, vm.Subscribe(context.Background()))
	defer vm.Unsubscribe()

	assert.ErrorIs(t, vm.Subscribe(context.Background()), ErrAlreadySubscribed)
}

func TestUnsubscribeIsIdempotentAndClosesOnce(t *testing.T) {
	sub := newFakeSubscription()
	vm := newViewModel(nil, &fakeStore{}, &fakeSubscriber{sub: sub})

	// No subscription yet: must be a safe no-op.
	vm.Unsubscribe()
	assert.Equal(t, 0, sub.closed())

	require.NoError(t, vm.Subscribe(context.Background()))
	vm.Unsubscribe()
	vm.Unsubscribe()
	assert.Equal(t, 1, sub.closed())
	assert.False(t, vm.Subscribed())
}

func TestNoEventsAppliedAfterUnsubscribe(t *testing.T) {
	sub := newFakeSubscription()
	vm := newViewModel(nil, &fakeStore{}, &fakeSubscriber{sub: sub})
	require.NoError(t, vm.Subscribe(context.Background()))
	vm.Unsubscribe()

	// An event already in flight when teardown began must be dropped.
	b := bm("1", "Late", "https://late.com", time.Now())
	sub.events <- model.ChangeEvent{Type: model.EventInsert, UserID: testUser, Bookmark: &b}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, vm.Len())
}

func TestStreamDropMarksStale(t *testing.T) {
	sub := newFakeSubscription()
	vm := newViewModel(nil, &fakeStore{}, &fakeSubscriber{sub: sub})
	require.NoError(t, vm.Subscribe(context.Background()))

	// Transport failure: the event channel closes underneath the view model.
	close(sub.events)
	require.Eventually(t, func() bool { return !vm.Subscribed() }, time.Second, time.Millisecond)

	// Re-subscribing must work without having leaked the old subscription.
	fresh := newFakeSubscription()
	vm.subs = &fakeSubscriber{sub: fresh}
	require.NoError(t, vm.Subscribe(context.Background()))
	vm.Unsubscribe()
}

func TestStreamEventsReachTheCollection(t *testing.T) {
	sub := newFakeSubscription()
	vm := newViewModel(nil, &fakeStore{}, &fakeSubscriber{sub: sub})

	var mu sync.Mutex
	changes := 0
	vm.OnChange = func() { mu.Lock(); changes++; mu.Unlock() }

	require.NoError(t, vm.Subscribe(context.Background()))
	defer vm.Unsubscribe()

	b := bm("2", "Bing", "https://bing.com", time.Now())
	sub.events <- model.ChangeEvent{Type: model.EventInsert, UserID: testUser, Bookmark: &b}

	require.Eventually(t, func() bool { return vm.Len() == 1 }, time.Second, time.Millisecond)
	mu.Lock()
	assert.GreaterOrEqual(t, changes, 1)
	mu.Unlock()
}

func TestNewFromStoreSeedsSnapshot(t *testing.T) {
	now := time.Now()
	store := &fakeStore{snapshot: []model.Bookmark{bm("1", "Google", "https://google.com", now)}}

	vm, err := NewFromStore(context.Background(), testUser, store, &fakeSubscriber{sub: newFakeSubscription()}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, vm.Len())
}
