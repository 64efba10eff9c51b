package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/review_comments/internal/api/middleware"
	"github.com/qs3c/review_comments/internal/model/dto"
	"github.com/qs3c/review_comments/internal/pkg/response"
	"github.com/qs3c/review_comments/internal/service"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// List 获取评审的全部评论
// GET /api/v1/reviews/:review_id/comments
func (h *CommentHandler) List(c *gin.Context) {
	reviewID := c.Param("review_id")

	comments, err := h.commentService.List(reviewID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, comments)
}

// Create 发表评论
// POST /api/v1/reviews/:review_id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	viewerID, ok := middleware.GetViewerID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), viewerID, c.Param("review_id"), &req)
	if err != nil {
		writeCommentError(c, err)
		return
	}

	response.SuccessWithMessage(c, "评论成功", comment)
}

// Update 修改评论
// PUT /api/v1/reviews/:review_id/comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	viewerID, ok := middleware.GetViewerID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	commentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的评论ID")
		return
	}

	var req dto.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	comment, err := h.commentService.Update(c.Request.Context(), viewerID, c.Param("review_id"), commentID, &req)
	if err != nil {
		writeCommentError(c, err)
		return
	}

	response.SuccessWithMessage(c, "修改成功", comment)
}

// Delete 删除评论
// DELETE /api/v1/reviews/:review_id/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	viewerID, ok := middleware.GetViewerID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	commentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的评论ID")
		return
	}

	if err := h.commentService.Delete(c.Request.Context(), viewerID, c.Param("review_id"), commentID); err != nil {
		writeCommentError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// UpdateIndex 调整评论在同级中的位置
// PUT /api/v1/reviews/:review_id/comments/:id/index
func (h *CommentHandler) UpdateIndex(c *gin.Context) {
	viewerID, ok := middleware.GetViewerID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	commentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的评论ID")
		return
	}

	var req dto.UpdateCommentIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	comment, err := h.commentService.UpdateIndex(c.Request.Context(), viewerID, c.Param("review_id"), commentID, *req.TargetIndex)
	if err != nil {
		writeCommentError(c, err)
		return
	}

	response.SuccessWithMessage(c, "排序已更新", comment)
}

func writeCommentError(c *gin.Context, err error) {
	switch err {
	case service.ErrCommentNotFound, service.ErrParentNotFound:
		response.NotFoundError(c, err.Error())
	case service.ErrCommentPermission:
		response.PermissionError(c, err.Error())
	case service.ErrParentNotInReview, service.ErrEmptyText:
		response.ParamError(c, err.Error())
	case service.ErrCommentDeleted:
		response.InvalidStateError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
