package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/review_comments/internal/model"
)

// TestComment 创建测试评论
func TestComment(t *testing.T, db *gorm.DB, reviewID, commenterID string, opts ...func(*model.Comment)) *model.Comment {
	t.Helper()

	comment := &model.Comment{
		ReviewID:    reviewID,
		CommenterID: commenterID,
		Text:        fmt.Sprintf("comment %d", time.Now().UnixNano()%10000),
		Entities:    []model.EntityRef{{ID: "track-1", Type: model.EntityTypeTrack}},
	}

	for _, opt := range opts {
		opt(comment)
	}

	if err := db.Create(comment).Error; err != nil {
		t.Fatalf("Failed to create test comment: %v", err)
	}

	return comment
}

// WithText 设置正文
func WithText(text string) func(*model.Comment) {
	return func(c *model.Comment) {
		c.Text = text
	}
}

// WithParent 设置父评论
func WithParent(parentID int64) func(*model.Comment) {
	return func(c *model.Comment) {
		c.ParentCommentID = &parentID
	}
}

// WithIndex 设置 comment_index
func WithIndex(index int) func(*model.Comment) {
	return func(c *model.Comment) {
		c.CommentIndex = index
	}
}

// WithDeleted 设置为已软删除
func WithDeleted() func(*model.Comment) {
	return func(c *model.Comment) {
		c.Deleted = true
		c.Text = model.DeletedPlaceholder
	}
}

// WithUpdatedAt 设置更新时间
func WithUpdatedAt(at time.Time) func(*model.Comment) {
	return func(c *model.Comment) {
		c.UpdatedAt = at
	}
}

// Int64Ptr 返回指针，方便构造可空字段
func Int64Ptr(v int64) *int64 {
	return &v
}
