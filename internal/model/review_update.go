package model

// ReviewUpdate 推送通道上的评审更新事件，只有下面三种实现
type ReviewUpdate interface {
	ReviewKey() string
	reviewUpdate()
}

// CreatedComment 新评论
type CreatedComment struct {
	Comment Comment
}

// UpdatedComment 评论被修改（正文、排序或软删除状态）
type UpdatedComment struct {
	Comment Comment
}

// DeletedComment 评论被删除
type DeletedComment struct {
	Review    string
	CommentID int64
}

func (e CreatedComment) ReviewKey() string { return e.Comment.ReviewID }
func (e UpdatedComment) ReviewKey() string { return e.Comment.ReviewID }
func (e DeletedComment) ReviewKey() string { return e.Review }

func (CreatedComment) reviewUpdate() {}
func (UpdatedComment) reviewUpdate() {}
func (DeletedComment) reviewUpdate() {}
