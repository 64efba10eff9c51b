package dto

// CreateCommentRequest 发表评论请求
type CreateCommentRequest struct {
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
	TrackID         string `json:"track_id" binding:"required"`
	Text            string `json:"text" binding:"required,min=1,max=5000"`
}

// UpdateCommentRequest 修改评论请求
type UpdateCommentRequest struct {
	Text string `json:"text" binding:"required,min=1,max=5000"`
}

// UpdateCommentIndexRequest 调整评论排序请求，TargetIndex 为同级评论中的目标显示位置
type UpdateCommentIndexRequest struct {
	TargetIndex *int `json:"target_index" binding:"required,min=0"`
}
