package model

import (
	"time"
)

// DeletedPlaceholder 软删除后替换评论正文的占位文本
const DeletedPlaceholder = "[deleted]"

// EntityTypeTrack 评论锚定的曲目
const EntityTypeTrack = "track"

// EntityRef 评论引用的领域实体（曲目、专辑等），只有第一个会被使用
type EntityRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Comment 评审下的一条评论。
// 进入客户端缓存后视为不可变值：更新一律按 ID 整体替换。
type Comment struct {
	ID              int64       `gorm:"primaryKey" json:"id"`
	ReviewID        string      `gorm:"type:varchar(64);not null;index:idx_review_parent" json:"review_id"`
	ParentCommentID *int64      `gorm:"index:idx_review_parent" json:"parent_comment_id"`
	CommentIndex    int         `gorm:"not null;default:0" json:"comment_index"`
	CommenterID     string      `gorm:"type:varchar(64);not null;index" json:"commenter_id"`
	Text            string      `gorm:"type:text;not null" json:"text"`
	Deleted         bool        `gorm:"not null;default:false" json:"deleted"`
	Entities        []EntityRef `gorm:"serializer:json;type:text" json:"entities"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (Comment) TableName() string {
	return "review_comments"
}

// IsRoot 是否为一级评论
func (c Comment) IsRoot() bool {
	return c.ParentCommentID == nil
}

// Entity 返回第一个引用实体
func (c Comment) Entity() (EntityRef, bool) {
	if len(c.Entities) == 0 {
		return EntityRef{}, false
	}
	return c.Entities[0], true
}

// TrackID 评论锚定的曲目 ID，没有则为空
func (c Comment) TrackID() string {
	e, ok := c.Entity()
	if !ok || e.Type != EntityTypeTrack {
		return ""
	}
	return e.ID
}

// SameParent 判断两条评论是否挂在同一个父评论下
func SameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
