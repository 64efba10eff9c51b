package repository

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/review_comments/internal/model"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create 创建评论
func (r *CommentRepository) Create(comment *model.Comment) error {
	return r.db.Create(comment).Error
}

// GetByID 根据 ID 获取评论
func (r *CommentRepository) GetByID(id int64) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.Where("id = ?", id).First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByReviewID 获取评审下的全部评论（含软删除）
func (r *CommentRepository) ListByReviewID(reviewID string) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.Where("review_id = ?", reviewID).
		Order("comment_index ASC").
		Order("id ASC").
		Find(&comments).Error
	return comments, err
}

// NextSiblingIndex 返回追加到同级末尾时应使用的 comment_index
func (r *CommentRepository) NextSiblingIndex(reviewID string, parentID *int64) (int, error) {
	var maxIndex sql.NullInt64
	row := siblingScope(r.db.Model(&model.Comment{}), reviewID, parentID).
		Select("MAX(comment_index)").
		Row()
	if err := row.Scan(&maxIndex); err != nil {
		return 0, err
	}
	if !maxIndex.Valid {
		return 0, nil
	}
	return int(maxIndex.Int64) + 1, nil
}

// UpdateText 修改评论正文
func (r *CommentRepository) UpdateText(comment *model.Comment, text string) error {
	return r.db.Model(comment).Update("text", text).Error
}

// SoftDelete 软删除：保留记录以维持回复链，正文替换为占位文本
func (r *CommentRepository) SoftDelete(comment *model.Comment) error {
	return r.db.Model(comment).Updates(map[string]interface{}{
		"deleted": true,
		"text":    model.DeletedPlaceholder,
	}).Error
}

// MoveToIndex 把评论移动到同级评论中的第 target 个显示位置，并将整组 comment_index 重排为 0..n-1。
// 返回 comment_index 实际发生变化的评论。
func (r *CommentRepository) MoveToIndex(comment *model.Comment, target int) ([]*model.Comment, error) {
	var changed []*model.Comment

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var siblings []*model.Comment
		err := siblingScope(tx, comment.ReviewID, comment.ParentCommentID).
			Order("comment_index ASC").
			Order("id ASC").
			Find(&siblings).Error
		if err != nil {
			return err
		}

		ordered := make([]*model.Comment, 0, len(siblings))
		var moving *model.Comment
		for _, s := range siblings {
			if s.ID == comment.ID {
				moving = s
				continue
			}
			ordered = append(ordered, s)
		}
		if moving == nil {
			return gorm.ErrRecordNotFound
		}

		if target < 0 {
			target = 0
		}
		if target > len(ordered) {
			target = len(ordered)
		}
		ordered = append(ordered[:target], append([]*model.Comment{moving}, ordered[target:]...)...)

		for i, s := range ordered {
			if s.CommentIndex == i {
				continue
			}
			if err := tx.Model(s).Update("comment_index", i).Error; err != nil {
				return err
			}
			s.CommentIndex = i
			changed = append(changed, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return changed, nil
}

// CountByReviewID 获取评审下未删除的评论数
func (r *CommentRepository) CountByReviewID(reviewID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Comment{}).
		Where("review_id = ? AND deleted = ?", reviewID, false).
		Count(&count).Error
	return count, err
}

// purgeableScope 软删除早于 before 且已没有任何回复的评论
func purgeableScope(db *gorm.DB, before time.Time) *gorm.DB {
	return db.Model(&model.Comment{}).
		Where("deleted = ? AND updated_at < ?", true, before).
		Where("NOT EXISTS (SELECT 1 FROM review_comments AS child WHERE child.parent_comment_id = review_comments.id)")
}

// ListPurgeable 列出可以物理删除的软删除评论
func (r *CommentRepository) ListPurgeable(before time.Time) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := purgeableScope(r.db, before).Order("id ASC").Find(&comments).Error
	return comments, err
}

// PurgeDeletedLeaves 物理删除软删除且没有回复的评论。
// 删除叶子后父评论可能变成新的叶子，循环直到没有可删除的记录。
func (r *CommentRepository) PurgeDeletedLeaves(before time.Time) (int64, error) {
	var total int64
	for {
		var ids []int64
		if err := purgeableScope(r.db, before).Pluck("id", &ids).Error; err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		result := r.db.Where("id IN ?", ids).Delete(&model.Comment{})
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}
}

func siblingScope(db *gorm.DB, reviewID string, parentID *int64) *gorm.DB {
	db = db.Where("review_id = ?", reviewID)
	if parentID == nil {
		return db.Where("parent_comment_id IS NULL")
	}
	return db.Where("parent_comment_id = ?", *parentID)
}
