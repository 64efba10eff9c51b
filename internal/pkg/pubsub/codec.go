package pubsub

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/qs3c/review_comments/internal/model"
)

// 事件类型，对应推送消息中的 type 字段
const (
	TypeCreatedComment = "CreatedComment"
	TypeUpdatedComment = "UpdatedComment"
	TypeDeletedComment = "DeletedComment"
)

var (
	ErrUnknownUpdateType = errors.New("unknown review update type")
	ErrMalformedUpdate   = errors.New("malformed review update")
)

// Envelope 推送通道上的消息格式
type Envelope struct {
	Type      string         `json:"type"`
	ReviewID  string         `json:"review_id"`
	Comment   *model.Comment `json:"comment,omitempty"`
	CommentID int64          `json:"comment_id,omitempty"`
}

// EncodeUpdate 将事件编码为 JSON
func EncodeUpdate(update model.ReviewUpdate) ([]byte, error) {
	var env Envelope
	switch u := update.(type) {
	case model.CreatedComment:
		c := u.Comment
		env = Envelope{Type: TypeCreatedComment, ReviewID: c.ReviewID, Comment: &c}
	case model.UpdatedComment:
		c := u.Comment
		env = Envelope{Type: TypeUpdatedComment, ReviewID: c.ReviewID, Comment: &c}
	case model.DeletedComment:
		env = Envelope{Type: TypeDeletedComment, ReviewID: u.Review, CommentID: u.CommentID}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownUpdateType, update)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal review update: %w", err)
	}
	return data, nil
}

// DecodeUpdate 解析推送消息，未知类型返回 ErrUnknownUpdateType
func DecodeUpdate(data []byte) (model.ReviewUpdate, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
	}

	switch env.Type {
	case TypeCreatedComment, TypeUpdatedComment:
		if env.Comment == nil {
			return nil, fmt.Errorf("%w: %s without comment", ErrMalformedUpdate, env.Type)
		}
		if env.Type == TypeCreatedComment {
			return model.CreatedComment{Comment: *env.Comment}, nil
		}
		return model.UpdatedComment{Comment: *env.Comment}, nil
	case TypeDeletedComment:
		if env.ReviewID == "" || env.CommentID == 0 {
			return nil, fmt.Errorf("%w: %s without target", ErrMalformedUpdate, env.Type)
		}
		return model.DeletedComment{Review: env.ReviewID, CommentID: env.CommentID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownUpdateType, env.Type)
	}
}
