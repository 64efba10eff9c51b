package reviewcache

import (
	"slices"

	"github.com/qs3c/review_comments/internal/model"
)

// QueryDetailedReviewComments 评审评论列表查询名
const QueryDetailedReviewComments = "detailedReviewComments"

func commentsKey(reviewID string) QueryKey {
	return QueryKey{Name: QueryDetailedReviewComments, Params: reviewID}
}

// CommentStore 按评审缓存评论列表。
// 列表中的评论是值，写入一律通过生成新切片完成，不修改已有元素。
type CommentStore struct {
	cache *QueryCache[[]model.Comment]
}

func NewCommentStore(size int) (*CommentStore, error) {
	cache, err := NewQueryCache[[]model.Comment](size)
	if err != nil {
		return nil, err
	}
	return &CommentStore{cache: cache}, nil
}

// Get 返回缓存列表的副本
func (s *CommentStore) Get(reviewID string) ([]model.Comment, bool) {
	comments, ok := s.cache.Get(commentsKey(reviewID))
	if !ok {
		return nil, false
	}
	return slices.Clone(comments), true
}

func (s *CommentStore) Set(reviewID string, comments []model.Comment) {
	if comments == nil {
		comments = []model.Comment{}
	}
	s.cache.Set(commentsKey(reviewID), slices.Clone(comments))
}

// Version 评审缓存的失效计数
func (s *CommentStore) Version(reviewID string) uint64 {
	return s.cache.Version(commentsKey(reviewID))
}

// SetIfVersion 评审自 version 起未失效时写入，否则丢弃并返回 false
func (s *CommentStore) SetIfVersion(reviewID string, comments []model.Comment, version uint64) bool {
	if comments == nil {
		comments = []model.Comment{}
	}
	return s.cache.SetIfVersion(commentsKey(reviewID), slices.Clone(comments), version)
}

func (s *CommentStore) Invalidate(reviewID string) {
	s.cache.Invalidate(commentsKey(reviewID))
}

// Update 对已缓存的列表应用 old -> new 转换，fn 不得修改入参。
// 评审未缓存时什么也不做并返回 false。
func (s *CommentStore) Update(reviewID string, fn func([]model.Comment) []model.Comment) bool {
	return s.cache.Update(commentsKey(reviewID), fn)
}

func (s *CommentStore) Has(reviewID string) bool {
	return s.cache.Contains(commentsKey(reviewID))
}

// OnInvalidate 评审缓存失效时回调
func (s *CommentStore) OnInvalidate(fn func(reviewID string)) {
	s.cache.Listen(func(key QueryKey, ev CacheEvent) {
		if key.Name == QueryDetailedReviewComments && ev == CacheInvalidated {
			fn(key.Params)
		}
	})
}

// OnChange 评审缓存被写入时回调
func (s *CommentStore) OnChange(fn func(reviewID string)) {
	s.cache.Listen(func(key QueryKey, ev CacheEvent) {
		if key.Name == QueryDetailedReviewComments && ev == CacheSet {
			fn(key.Params)
		}
	})
}
