package reviewcache

import (
	"fmt"

	"github.com/qs3c/review_comments/internal/model"
)

const notifyPreviewLen = 80

// ReplyOpener 打开回复编辑框
type ReplyOpener interface {
	OpenReply(parent model.Comment)
}

// NotificationGate 决定新评论事件是否提示当前查看者
type NotificationGate struct {
	viewerID string
	toaster  Toaster
	opener   ReplyOpener
}

func NewNotificationGate(viewerID string, toaster Toaster, opener ReplyOpener) *NotificationGate {
	return &NotificationGate{
		viewerID: viewerID,
		toaster:  toaster,
		opener:   opener,
	}
}

// ShouldNotify 自己发的评论不提示
func (g *NotificationGate) ShouldNotify(comment model.Comment) bool {
	return comment.CommenterID != g.viewerID
}

// Notify 弹出带“回复”按钮的提示，返回是否弹出
func (g *NotificationGate) Notify(event model.CreatedComment) bool {
	comment := event.Comment
	if !g.ShouldNotify(comment) || g.toaster == nil {
		return false
	}

	toast := Toast{
		ID:          fmt.Sprintf("comment-created-%d", comment.ID),
		Level:       ToastInfo,
		Title:       fmt.Sprintf("%s commented", comment.CommenterID),
		Description: preview(comment.Text),
	}
	if g.opener != nil {
		toast.Action = &ToastAction{
			Label: "Reply",
			Run:   func() { g.opener.OpenReply(comment) },
		}
	}

	g.toaster.Show(toast)
	return true
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= notifyPreviewLen {
		return text
	}
	return string(runes[:notifyPreviewLen]) + "…"
}
