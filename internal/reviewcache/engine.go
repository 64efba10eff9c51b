package reviewcache

import (
	"fmt"

	"github.com/qs3c/review_comments/config"
)

// Engine 组装客户端评论缓存的各个部件
type Engine struct {
	Store      *CommentStore
	Query      *CommentQuery
	Reconciler *Reconciler
	Ordering   *OrderingEngine
	Mutations  *MutationCoordinator
	Gate       *NotificationGate
}

// NewEngine viewerID 是当前查看者，用于过滤自己的新评论提示和拖拽权限
func NewEngine(api CommentAPI, subscriber Subscriber, toaster Toaster, viewerID string, cfg *config.Config) (*Engine, error) {
	store, err := NewCommentStore(cfg.Cache.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment store: %w", err)
	}

	mutations := NewMutationCoordinator(api, store, toaster)
	gate := NewNotificationGate(viewerID, toaster, mutations)

	return &Engine{
		Store: store,
		Query: NewCommentQuery(api, store),
		Reconciler: NewReconciler(store, subscriber, gate, toaster, ReconcilerConfig{
			ReconnectDelay: cfg.Client.ReconnectDelay,
			ErrorToastGap:  cfg.Client.ErrorToastGap,
		}),
		Ordering:  NewOrderingEngine(api, store, toaster, viewerID),
		Mutations: mutations,
		Gate:      gate,
	}, nil
}

// Close 停止订阅和后台拉取
func (e *Engine) Close() {
	e.Reconciler.Close()
	e.Query.Close()
}
