package reviewcache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/review_comments/internal/model"
)

// CommentAPI 评论服务端接口
type CommentAPI interface {
	DetailedReviewComments(ctx context.Context, reviewID string) ([]model.Comment, error)
	CreateComment(ctx context.Context, reviewID string, parentCommentID *int64, entity model.EntityRef, text string) (*model.Comment, error)
	UpdateComment(ctx context.Context, reviewID string, commentID int64, text string) (*model.Comment, error)
	DeleteComment(ctx context.Context, reviewID string, commentID int64) error
	UpdateCommentIndex(ctx context.Context, reviewID string, commentID int64, targetIndex int) (*model.Comment, error)
}

// CommentFetcher 只需要查询能力的调用方使用
type CommentFetcher interface {
	DetailedReviewComments(ctx context.Context, reviewID string) ([]model.Comment, error)
}

const refetchTimeout = 30 * time.Second

// CommentQuery detailedReviewComments 查询。
// 被观察的评审失效后会在后台重新拉取。
type CommentQuery struct {
	fetcher CommentFetcher
	store   *CommentStore

	mu       sync.Mutex
	observed map[string]int
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCommentQuery(fetcher CommentFetcher, store *CommentStore) *CommentQuery {
	ctx, cancel := context.WithCancel(context.Background())
	q := &CommentQuery{
		fetcher:  fetcher,
		store:    store,
		observed: make(map[string]int),
		ctx:      ctx,
		cancel:   cancel,
	}
	store.OnInvalidate(q.onInvalidate)
	return q
}

// Load 优先返回缓存，未命中时拉取并写入缓存
func (q *CommentQuery) Load(ctx context.Context, reviewID string) ([]model.Comment, error) {
	if comments, ok := q.store.Get(reviewID); ok {
		return comments, nil
	}
	return q.Refetch(ctx, reviewID)
}

// Refetch 强制从服务端拉取。拉取期间如果缓存又被失效，结果不写入缓存。
func (q *CommentQuery) Refetch(ctx context.Context, reviewID string) ([]model.Comment, error) {
	version := q.store.Version(reviewID)

	comments, err := q.fetcher.DetailedReviewComments(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []model.Comment{}
	}

	q.store.SetIfVersion(reviewID, comments, version)

	return comments, nil
}

// Observe 标记评审正在展示
func (q *CommentQuery) Observe(reviewID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.observed[reviewID]++
}

func (q *CommentQuery) Unobserve(reviewID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.observed[reviewID] <= 1 {
		delete(q.observed, reviewID)
		return
	}
	q.observed[reviewID]--
}

func (q *CommentQuery) IsObserved(reviewID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.observed[reviewID] > 0
}

// Close 停止后台拉取并等待退出
func (q *CommentQuery) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

func (q *CommentQuery) onInvalidate(reviewID string) {
	q.mu.Lock()
	refetch := !q.closed && q.observed[reviewID] > 0
	if refetch {
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if !refetch {
		return
	}

	go func() {
		defer q.wg.Done()

		ctx, cancel := context.WithTimeout(q.ctx, refetchTimeout)
		defer cancel()

		if _, err := q.Refetch(ctx, reviewID); err != nil && q.ctx.Err() == nil {
			log.Printf("Failed to refetch comments for review %s: %v", reviewID, err)
		}
	}()
}
