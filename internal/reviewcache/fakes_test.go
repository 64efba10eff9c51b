package reviewcache

import (
	"context"
	"sync"
	"time"

	"github.com/qs3c/review_comments/internal/model"
)

const testReview = "R1"

func int64Ptr(v int64) *int64 {
	return &v
}

func newComment(id int64, parent *int64, index int, commenter string) model.Comment {
	return model.Comment{
		ID:              id,
		ReviewID:        testReview,
		ParentCommentID: parent,
		CommentIndex:    index,
		CommenterID:     commenter,
		Text:            "comment",
		Entities:        []model.EntityRef{{ID: "track-1", Type: model.EntityTypeTrack}},
		CreatedAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func commentIDs(comments []model.Comment) []int64 {
	ids := make([]int64, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	return ids
}

type indexCall struct {
	ReviewID    string
	CommentID   int64
	TargetIndex int
}

type createCall struct {
	ReviewID string
	ParentID *int64
	Entity   model.EntityRef
	Text     string
}

// fakeAPI 内存版评论服务
type fakeAPI struct {
	mu sync.Mutex

	comments   map[string][]model.Comment
	fetchCalls map[string]int
	nextID     int64

	fetchErr  error
	createErr error
	updateErr error
	deleteErr error
	indexErr  error

	// deleteGate 非 nil 时 DeleteComment 阻塞到它关闭
	deleteGate chan struct{}

	created    []createCall
	updated    []int64
	deleted    []int64
	indexCalls []indexCall
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		comments:   make(map[string][]model.Comment),
		fetchCalls: make(map[string]int),
		nextID:     100,
	}
}

func (f *fakeAPI) DetailedReviewComments(ctx context.Context, reviewID string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchCalls[reviewID]++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]model.Comment(nil), f.comments[reviewID]...), nil
}

func (f *fakeAPI) CreateComment(ctx context.Context, reviewID string, parentCommentID *int64, entity model.EntityRef, text string) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.created = append(f.created, createCall{ReviewID: reviewID, ParentID: parentCommentID, Entity: entity, Text: text})
	if f.createErr != nil {
		return nil, f.createErr
	}

	f.nextID++
	c := model.Comment{
		ID:              f.nextID,
		ReviewID:        reviewID,
		ParentCommentID: parentCommentID,
		Text:            text,
		Entities:        []model.EntityRef{entity},
	}
	f.comments[reviewID] = append(f.comments[reviewID], c)
	return &c, nil
}

func (f *fakeAPI) UpdateComment(ctx context.Context, reviewID string, commentID int64, text string) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updated = append(f.updated, commentID)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &model.Comment{ID: commentID, ReviewID: reviewID, Text: text}, nil
}

func (f *fakeAPI) DeleteComment(ctx context.Context, reviewID string, commentID int64) error {
	f.mu.Lock()
	gate := f.deleteGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, commentID)
	return f.deleteErr
}

func (f *fakeAPI) UpdateCommentIndex(ctx context.Context, reviewID string, commentID int64, targetIndex int) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.indexCalls = append(f.indexCalls, indexCall{ReviewID: reviewID, CommentID: commentID, TargetIndex: targetIndex})
	if f.indexErr != nil {
		return nil, f.indexErr
	}
	return &model.Comment{ID: commentID, ReviewID: reviewID, CommentIndex: targetIndex}, nil
}

func (f *fakeAPI) fetchCount(reviewID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls[reviewID]
}

// fakeSubscriber 记录订阅并允许测试直接投递事件
type fakeSubscriber struct {
	mu sync.Mutex

	err       error
	calls     [][]string
	handler   func(model.ReviewUpdate)
	active    int
	maxActive int
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, reviewIDs []string, handler func(model.ReviewUpdate)) error {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), reviewIDs...))
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.active++
	s.maxActive = max(s.maxActive, s.active)
	s.handler = handler
	s.mu.Unlock()

	<-ctx.Done()

	s.mu.Lock()
	s.active--
	s.handler = nil
	s.mu.Unlock()
	return ctx.Err()
}

func (s *fakeSubscriber) emit(u model.ReviewUpdate) bool {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()

	if handler == nil {
		return false
	}
	handler(u)
	return true
}

func (s *fakeSubscriber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeSubscriber) lastCall() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

func (s *fakeSubscriber) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

type recordingToaster struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *recordingToaster) Show(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recordingToaster) all() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.CreatedComment
}

func (n *recordingNotifier) Notify(e model.CreatedComment) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return true
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(model.CreatedComment) bool {
	panic("boom")
}

func (s *fakeSubscriber) maxActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive
}
