package reviewcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/qs3c/review_comments/internal/model"
)

var ErrMutationPending = errors.New("a comment is already being saved")

// ModalMode 编辑框用途
type ModalMode int

const (
	ModalCreate ModalMode = iota + 1
	ModalReply
	ModalEdit
)

func (m ModalMode) String() string {
	switch m {
	case ModalCreate:
		return "create"
	case ModalReply:
		return "reply"
	case ModalEdit:
		return "edit"
	default:
		return "closed"
	}
}

// ModalState 评论编辑框状态，Open 为 false 时其余字段无意义
type ModalState struct {
	Open            bool
	Mode            ModalMode
	ReviewID        string
	ParentCommentID *int64
	CommentID       int64
	TrackID         string
	Text            string
	Pending         bool
}

type CreateInput struct {
	ReviewID        string
	ParentCommentID *int64
	TrackID         string
	Text            string
	// Invalidate 成功后主动失效缓存，用于推送通道可能还没连上的场景
	Invalidate bool
}

type UpdateInput struct {
	ReviewID   string
	CommentID  int64
	Text       string
	Invalidate bool
}

// MutationCoordinator 包装评论的增删改。
// 成功时关闭编辑框，缓存默认依赖推送事件更新；失败时提示并恢复到请求前的状态，不重试。
type MutationCoordinator struct {
	api     CommentAPI
	store   *CommentStore
	toaster Toaster

	mu    sync.Mutex
	modal ModalState

	deletion *DeleteConfirmation
}

func NewMutationCoordinator(api CommentAPI, store *CommentStore, toaster Toaster) *MutationCoordinator {
	c := &MutationCoordinator{
		api:     api,
		store:   store,
		toaster: toaster,
	}
	c.deletion = newDeleteConfirmation(c)
	return c
}

// Deletion 删除确认状态机，整个界面共用一个
func (c *MutationCoordinator) Deletion() *DeleteConfirmation {
	return c.deletion
}

func (c *MutationCoordinator) Modal() ModalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modal
}

// OpenCreate 在曲目上新建一级评论
func (c *MutationCoordinator) OpenCreate(reviewID, trackID string) {
	c.setModal(ModalState{Open: true, Mode: ModalCreate, ReviewID: reviewID, TrackID: trackID})
}

// OpenReply 回复 parent
func (c *MutationCoordinator) OpenReply(parent model.Comment) {
	parentID := parent.ID
	c.setModal(ModalState{
		Open:            true,
		Mode:            ModalReply,
		ReviewID:        parent.ReviewID,
		ParentCommentID: &parentID,
		TrackID:         parent.TrackID(),
	})
}

// OpenEdit 编辑已有评论
func (c *MutationCoordinator) OpenEdit(comment model.Comment) {
	c.setModal(ModalState{
		Open:            true,
		Mode:            ModalEdit,
		ReviewID:        comment.ReviewID,
		ParentCommentID: comment.ParentCommentID,
		CommentID:       comment.ID,
		TrackID:         comment.TrackID(),
		Text:            comment.Text,
	})
}

func (c *MutationCoordinator) CloseModal() {
	c.setModal(ModalState{})
}

func (c *MutationCoordinator) setModal(s ModalState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modal = s
}

// Create 发表评论
func (c *MutationCoordinator) Create(ctx context.Context, in CreateInput) (*model.Comment, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}

	entity := model.EntityRef{ID: in.TrackID, Type: model.EntityTypeTrack}
	comment, err := c.api.CreateComment(ctx, in.ReviewID, in.ParentCommentID, entity, in.Text)
	if err != nil {
		c.fail("Failed to create comment", err)
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	c.succeed(in.ReviewID, in.Invalidate)
	return comment, nil
}

// Update 修改评论正文
func (c *MutationCoordinator) Update(ctx context.Context, in UpdateInput) (*model.Comment, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}

	comment, err := c.api.UpdateComment(ctx, in.ReviewID, in.CommentID, in.Text)
	if err != nil {
		c.fail("Failed to update comment", err)
		return nil, fmt.Errorf("failed to update comment %d: %w", in.CommentID, err)
	}

	c.succeed(in.ReviewID, in.Invalidate)
	return comment, nil
}

// deleteComment 只能经由 DeleteConfirmation 调用
func (c *MutationCoordinator) deleteComment(ctx context.Context, target DeletePending) error {
	if err := c.api.DeleteComment(ctx, target.ReviewID, target.CommentID); err != nil {
		c.toast("Failed to delete comment", err)
		return fmt.Errorf("failed to delete comment %d: %w", target.CommentID, err)
	}

	if target.Invalidate {
		c.store.Invalidate(target.ReviewID)
	}
	return nil
}

// begin 编辑框打开时标记提交中，防止重复提交
func (c *MutationCoordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.modal.Pending {
		return ErrMutationPending
	}
	if c.modal.Open {
		c.modal.Pending = true
	}
	return nil
}

func (c *MutationCoordinator) succeed(reviewID string, invalidate bool) {
	c.CloseModal()
	if invalidate {
		c.store.Invalidate(reviewID)
	}
}

func (c *MutationCoordinator) fail(title string, err error) {
	c.mu.Lock()
	c.modal.Pending = false
	c.mu.Unlock()

	c.toast(title, err)
}

func (c *MutationCoordinator) toast(title string, err error) {
	if c.toaster == nil {
		return
	}
	c.toaster.Show(Toast{
		Level:       ToastError,
		Title:       title,
		Description: err.Error(),
	})
}
