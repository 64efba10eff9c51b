package reviewcache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/review_comments/internal/model"
)

func newTestStore(t *testing.T) *CommentStore {
	t.Helper()
	store, err := NewCommentStore(16)
	require.NoError(t, err)
	return store
}

func newTestReconciler(t *testing.T, sub Subscriber, notifier CreatedNotifier, toaster Toaster) (*Reconciler, *CommentStore) {
	t.Helper()
	store := newTestStore(t)
	r := NewReconciler(store, sub, notifier, toaster, ReconcilerConfig{
		ReconnectDelay: time.Millisecond,
		ErrorToastGap:  time.Hour,
	})
	t.Cleanup(r.Close)
	return r, store
}

func TestReconcile_CreateAppends(t *testing.T) {
	current := []model.Comment{newComment(1, nil, 0, "alice")}

	next := Reconcile(current, model.CreatedComment{Comment: newComment(2, nil, 1, "bob")})

	assert.Equal(t, []int64{1, 2}, commentIDs(next))
	assert.Len(t, current, 1, "input must not be modified")
}

func TestReconcile_UpdateMovesToEnd(t *testing.T) {
	current := []model.Comment{newComment(1, nil, 0, "alice"), newComment(2, nil, 1, "bob")}
	edited := newComment(1, nil, 0, "alice")
	edited.Text = "edited"

	next := Reconcile(current, model.UpdatedComment{Comment: edited})

	require.Equal(t, []int64{2, 1}, commentIDs(next))
	assert.Equal(t, "edited", next[1].Text)
	assert.Equal(t, "comment", current[0].Text)
}

func TestReconcile_UpdateWithoutCreateInserts(t *testing.T) {
	next := Reconcile(nil, model.UpdatedComment{Comment: newComment(7, nil, 0, "bob")})

	assert.Equal(t, []int64{7}, commentIDs(next))
}

func TestReconcile_DeleteRemoves(t *testing.T) {
	current := []model.Comment{newComment(1, nil, 0, "alice"), newComment(4, nil, 1, "bob")}

	next := Reconcile(current, model.DeletedComment{Review: testReview, CommentID: 4})
	assert.Equal(t, []int64{1}, commentIDs(next))

	again := Reconcile(next, model.DeletedComment{Review: testReview, CommentID: 4})
	assert.Equal(t, []int64{1}, commentIDs(again))
}

func TestReconcile_Idempotent(t *testing.T) {
	base := []model.Comment{newComment(1, nil, 0, "alice"), newComment(2, nil, 1, "bob")}

	events := []model.ReviewUpdate{
		model.CreatedComment{Comment: newComment(3, nil, 2, "carol")},
		model.CreatedComment{Comment: newComment(1, nil, 0, "alice")},
		model.UpdatedComment{Comment: newComment(2, nil, 5, "bob")},
		model.UpdatedComment{Comment: newComment(9, int64Ptr(1), 0, "dave")},
	}

	for _, e := range events {
		once := Reconcile(base, e)
		twice := Reconcile(once, e)
		assert.Equal(t, once, twice, "%T applied twice", e)
	}
}

func TestReconcile_DeletionAbsorbing(t *testing.T) {
	sequences := [][]model.ReviewUpdate{
		{model.CreatedComment{Comment: newComment(5, nil, 0, "a")}},
		{model.UpdatedComment{Comment: newComment(5, nil, 0, "a")}, model.CreatedComment{Comment: newComment(5, nil, 0, "a")}},
		{model.CreatedComment{Comment: newComment(5, nil, 0, "a")}, model.UpdatedComment{Comment: newComment(5, nil, 3, "a")}, model.UpdatedComment{Comment: newComment(5, nil, 1, "a")}},
		{},
	}

	for _, seq := range sequences {
		state := []model.Comment{newComment(1, nil, 0, "alice")}
		for _, e := range seq {
			state = Reconcile(state, e)
		}
		state = Reconcile(state, model.DeletedComment{Review: testReview, CommentID: 5})

		assert.NotContains(t, commentIDs(state), int64(5))
		assert.Contains(t, commentIDs(state), int64(1))
	}
}

func TestReconciler_ApplyCacheMiss(t *testing.T) {
	// 场景 1：评审从未拉取过，事件被丢弃且不创建缓存项
	r, store := newTestReconciler(t, &fakeSubscriber{}, nil, nil)

	applied := r.Apply(model.CreatedComment{Comment: newComment(5, nil, 0, "bob")})

	assert.False(t, applied)
	assert.False(t, store.Has(testReview))

	for _, e := range []model.ReviewUpdate{
		model.UpdatedComment{Comment: newComment(5, nil, 0, "bob")},
		model.DeletedComment{Review: testReview, CommentID: 5},
	} {
		assert.False(t, r.Apply(e))
	}
	_, ok := store.Get(testReview)
	assert.False(t, ok)
}

func TestReconciler_ApplyUpdate(t *testing.T) {
	// 场景 2
	r, store := newTestReconciler(t, &fakeSubscriber{}, nil, nil)
	store.Set(testReview, []model.Comment{newComment(1, nil, 0, "alice"), newComment(2, nil, 1, "bob")})

	edited := newComment(1, nil, 0, "alice")
	edited.Text = "edited"
	assert.True(t, r.Apply(model.UpdatedComment{Comment: edited}))

	got, ok := store.Get(testReview)
	require.True(t, ok)
	require.Equal(t, []int64{2, 1}, commentIDs(got))
	assert.Equal(t, "edited", got[1].Text)
}

func TestReconciler_ApplyNotifiesCreated(t *testing.T) {
	notifier := &recordingNotifier{}
	r, store := newTestReconciler(t, &fakeSubscriber{}, notifier, nil)
	store.Set(testReview, nil)

	r.Apply(model.CreatedComment{Comment: newComment(3, nil, 0, "bob")})
	r.Apply(model.UpdatedComment{Comment: newComment(3, nil, 0, "bob")})
	r.Apply(model.DeletedComment{Review: testReview, CommentID: 3})

	require.Len(t, notifier.events, 1)
	assert.Equal(t, int64(3), notifier.events[0].Comment.ID)
}

func TestReconciler_ApplyRecoversPanic(t *testing.T) {
	r, store := newTestReconciler(t, &fakeSubscriber{}, panickingNotifier{}, nil)
	store.Set(testReview, nil)

	assert.NotPanics(t, func() {
		assert.True(t, r.Apply(model.CreatedComment{Comment: newComment(3, nil, 0, "bob")}))
	})

	// 合并在通知之前完成
	got, _ := store.Get(testReview)
	assert.Equal(t, []int64{3}, commentIDs(got))
}

func TestReconciler_ApplyNil(t *testing.T) {
	r, store := newTestReconciler(t, &fakeSubscriber{}, nil, nil)
	store.Set(testReview, []model.Comment{newComment(1, nil, 0, "alice")})

	assert.False(t, r.Apply(nil))

	got, _ := store.Get(testReview)
	assert.Equal(t, []int64{1}, commentIDs(got))
}

func TestReconciler_WatchDeliversEvents(t *testing.T) {
	sub := &fakeSubscriber{}
	r, store := newTestReconciler(t, sub, nil, nil)
	store.Set(testReview, []model.Comment{newComment(1, nil, 0, "alice"), newComment(4, nil, 1, "bob")})

	require.True(t, r.Watch([]string{testReview}))
	require.Eventually(t, func() bool { return sub.activeCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.True(t, sub.emit(model.DeletedComment{Review: testReview, CommentID: 4}))

	got, _ := store.Get(testReview)
	assert.Equal(t, []int64{1}, commentIDs(got))
}

func TestReconciler_WatchComparesByValue(t *testing.T) {
	sub := &fakeSubscriber{}
	r, _ := newTestReconciler(t, sub, nil, nil)

	require.True(t, r.Watch([]string{"R2", "R1"}))
	require.Eventually(t, func() bool { return sub.activeCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, r.Watch([]string{"R1", "R2"}))
	assert.False(t, r.Watch([]string{"R1", "R2", "R1", ""}))
	assert.Equal(t, 1, sub.callCount())
	assert.Equal(t, []string{"R1", "R2"}, r.Watched())
}

func TestReconciler_WatchResubscribesAfterTeardown(t *testing.T) {
	sub := &fakeSubscriber{}
	r, _ := newTestReconciler(t, sub, nil, nil)

	require.True(t, r.Watch([]string{"R1"}))
	require.Eventually(t, func() bool { return sub.activeCount() == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, r.Watch([]string{"R1", "R2"}))
	require.Eventually(t, func() bool { return sub.callCount() == 2 && sub.activeCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"R1", "R2"}, sub.lastCall())
	assert.Equal(t, 1, sub.maxActiveCount(), "old subscription must be torn down first")
}

func TestReconciler_WatchEmptyTearsDown(t *testing.T) {
	sub := &fakeSubscriber{}
	r, _ := newTestReconciler(t, sub, nil, nil)

	assert.False(t, r.Watch(nil), "initial watch set is empty")

	require.True(t, r.Watch([]string{"R1"}))
	require.Eventually(t, func() bool { return sub.activeCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.True(t, r.Watch([]string{}))
	assert.Equal(t, 0, sub.activeCount())
	assert.Equal(t, 1, sub.callCount())
}

func TestReconciler_Close(t *testing.T) {
	sub := &fakeSubscriber{}
	r, _ := newTestReconciler(t, sub, nil, nil)

	r.Watch([]string{"R1"})
	require.Eventually(t, func() bool { return sub.activeCount() == 1 }, time.Second, 5*time.Millisecond)

	r.Close()
	assert.Equal(t, 0, sub.activeCount())
	assert.Empty(t, r.Watched())

	// 关闭后可以重新订阅同一集合
	assert.True(t, r.Watch([]string{"R1"}))
}

func TestReconciler_TransportErrorToastOnce(t *testing.T) {
	sub := &fakeSubscriber{err: errors.New("connection refused")}
	toaster := &recordingToaster{}
	r, store := newTestReconciler(t, sub, nil, toaster)
	store.Set(testReview, []model.Comment{newComment(1, nil, 0, "alice")})

	r.Watch([]string{testReview})
	require.Eventually(t, func() bool { return sub.callCount() >= 3 }, time.Second, time.Millisecond)
	r.Close()

	toasts := toaster.all()
	require.Len(t, toasts, 1)
	assert.Equal(t, TransportErrorToastID, toasts[0].ID)
	assert.Equal(t, ToastError, toasts[0].Level)

	// 缓存仍可读
	got, ok := store.Get(testReview)
	assert.True(t, ok)
	assert.Equal(t, []int64{1}, commentIDs(got))
}

func TestNormalizeIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, normalizeIDs([]string{"b", "a", "b", ""}))
	assert.Empty(t, normalizeIDs(nil))
}
