package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/review_comments/config"
	"github.com/qs3c/review_comments/internal/model"
	"github.com/qs3c/review_comments/internal/model/dto"
	"github.com/qs3c/review_comments/internal/repository"
)

var (
	ErrCommentNotFound   = errors.New("评论不存在")
	ErrCommentPermission = errors.New("无权操作此评论")
	ErrCommentDeleted    = errors.New("评论已删除")
	ErrParentNotFound    = errors.New("父评论不存在")
	ErrParentNotInReview = errors.New("父评论不属于该评审")
	ErrEmptyText         = errors.New("评论内容不能为空")
)

// UpdatePublisher 推送评审更新事件，生产环境为 Redis 发布者
type UpdatePublisher interface {
	Publish(ctx context.Context, update model.ReviewUpdate) error
}

type CommentService struct {
	commentRepo *repository.CommentRepository
	publisher   UpdatePublisher
	cfg         *config.Config
}

func NewCommentService(
	commentRepo *repository.CommentRepository,
	publisher UpdatePublisher,
	cfg *config.Config,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// List 获取评审下的全部评论（detailedReviewComments）
func (s *CommentService) List(reviewID string) ([]*model.Comment, error) {
	comments, err := s.commentRepo.ListByReviewID(reviewID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*model.Comment{}
	}
	return comments, nil
}

// Create 发表评论，回复时父评论必须已存在于同一评审
func (s *CommentService) Create(ctx context.Context, viewerID, reviewID string, req *dto.CreateCommentRequest) (*model.Comment, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	if req.ParentCommentID != nil {
		parent, err := s.commentRepo.GetByID(*req.ParentCommentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}

		if parent.ReviewID != reviewID {
			return nil, ErrParentNotInReview
		}
	}

	// 新评论追加在同级末尾
	index, err := s.commentRepo.NextSiblingIndex(reviewID, req.ParentCommentID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		ReviewID:        reviewID,
		ParentCommentID: req.ParentCommentID,
		CommentIndex:    index,
		CommenterID:     viewerID,
		Text:            text,
		Entities:        []model.EntityRef{{ID: req.TrackID, Type: model.EntityTypeTrack}},
	}

	if err := s.commentRepo.Create(comment); err != nil {
		return nil, err
	}

	s.publish(ctx, model.CreatedComment{Comment: *comment})

	return comment, nil
}

// Update 修改评论正文
func (s *CommentService) Update(ctx context.Context, viewerID, reviewID string, commentID int64, req *dto.UpdateCommentRequest) (*model.Comment, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	comment, err := s.getOwned(viewerID, reviewID, commentID)
	if err != nil {
		return nil, err
	}

	if comment.Deleted {
		return nil, ErrCommentDeleted
	}

	if err := s.commentRepo.UpdateText(comment, text); err != nil {
		return nil, err
	}
	comment.Text = text

	s.publish(ctx, model.UpdatedComment{Comment: *comment})

	return comment, nil
}

// Delete 软删除评论，回复链保留；推送 DeletedComment
func (s *CommentService) Delete(ctx context.Context, viewerID, reviewID string, commentID int64) error {
	comment, err := s.getOwned(viewerID, reviewID, commentID)
	if err != nil {
		return err
	}

	if !comment.Deleted {
		if err := s.commentRepo.SoftDelete(comment); err != nil {
			return err
		}
	}

	s.publish(ctx, model.DeletedComment{Review: reviewID, CommentID: commentID})

	return nil
}

// UpdateIndex 把评论移动到同级中的 targetIndex 位置，整组重新编号
func (s *CommentService) UpdateIndex(ctx context.Context, viewerID, reviewID string, commentID int64, targetIndex int) (*model.Comment, error) {
	comment, err := s.getOwned(viewerID, reviewID, commentID)
	if err != nil {
		return nil, err
	}

	changed, err := s.commentRepo.MoveToIndex(comment, targetIndex)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	for _, c := range changed {
		if c.ID == comment.ID {
			comment.CommentIndex = c.CommentIndex
		}
		s.publish(ctx, model.UpdatedComment{Comment: *c})
	}

	return comment, nil
}

func (s *CommentService) getOwned(viewerID, reviewID string, commentID int64) (*model.Comment, error) {
	comment, err := s.commentRepo.GetByID(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	if comment.ReviewID != reviewID {
		return nil, ErrCommentNotFound
	}

	if comment.CommenterID != viewerID {
		return nil, ErrCommentPermission
	}

	return comment, nil
}

// publish 推送失败不影响写入结果，订阅方会在下次拉取时得到权威数据
func (s *CommentService) publish(ctx context.Context, update model.ReviewUpdate) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, update); err != nil {
		log.Printf("Failed to publish review update for %s: %v", update.ReviewKey(), err)
	}
}
