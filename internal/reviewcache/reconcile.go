package reviewcache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/qs3c/review_comments/internal/model"
)

// TransportErrorToastID 推送通道错误共用一个提示 ID，重连时不会反复弹出
const TransportErrorToastID = "review-updates-error"

const maxReconnectDelay = 30 * time.Second

var errStreamClosed = errors.New("review updates stream closed")

// Subscriber 推送通道。Subscribe 阻塞直到 ctx 取消或连接出错，
// handler 按投递顺序串行调用。
type Subscriber interface {
	Subscribe(ctx context.Context, reviewIDs []string, handler func(model.ReviewUpdate)) error
}

// CreatedNotifier 接收新评论事件
type CreatedNotifier interface {
	Notify(event model.CreatedComment) bool
}

// Reconcile 把一条推送事件合并进评论列表，返回新列表，不修改 current。
// Created 和 Updated 走同一条合并路径：先按 ID 移除再追加，重复投递结果不变。
func Reconcile(current []model.Comment, update model.ReviewUpdate) []model.Comment {
	switch u := update.(type) {
	case model.CreatedComment:
		return mergeComment(current, u.Comment)
	case model.UpdatedComment:
		return mergeComment(current, u.Comment)
	case model.DeletedComment:
		return removeComment(current, u.CommentID)
	default:
		log.Printf("Ignoring unknown review update %T", update)
		return current
	}
}

func mergeComment(current []model.Comment, comment model.Comment) []model.Comment {
	return append(removeComment(current, comment.ID), comment)
}

func removeComment(current []model.Comment, commentID int64) []model.Comment {
	next := make([]model.Comment, 0, len(current)+1)
	for _, c := range current {
		if c.ID != commentID {
			next = append(next, c)
		}
	}
	return next
}

type ReconcilerConfig struct {
	ReconnectDelay time.Duration
	ErrorToastGap  time.Duration
}

// Reconciler 维护推送订阅并把事件折叠进 CommentStore
type Reconciler struct {
	store      *CommentStore
	subscriber Subscriber
	notifier   CreatedNotifier
	toaster    Toaster

	reconnectDelay time.Duration
	errorLimiter   *rate.Limiter

	mu      sync.Mutex
	watched []string
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewReconciler(store *CommentStore, subscriber Subscriber, notifier CreatedNotifier, toaster Toaster, cfg ReconcilerConfig) *Reconciler {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}

	limit := rate.Inf
	if cfg.ErrorToastGap > 0 {
		limit = rate.Every(cfg.ErrorToastGap)
	}

	return &Reconciler{
		store:          store,
		subscriber:     subscriber,
		notifier:       notifier,
		toaster:        toaster,
		reconnectDelay: delay,
		errorLimiter:   rate.NewLimiter(limit, 1),
	}
}

// Apply 应用一条事件，返回事件是否合并进了缓存。
// 未缓存的评审直接丢弃事件；新评论事件无论是否命中都会交给 notifier，
// notifier 出错不影响已完成的合并。
func (r *Reconciler) Apply(update model.ReviewUpdate) (applied bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered while applying review update %T: %v", update, rec)
		}
	}()

	if update == nil {
		log.Println("Ignoring nil review update")
		return false
	}

	applied = r.store.Update(update.ReviewKey(), func(current []model.Comment) []model.Comment {
		return Reconcile(current, update)
	})

	if created, ok := update.(model.CreatedComment); ok && r.notifier != nil {
		r.notifier.Notify(created)
	}

	return applied
}

// Watch 设置需要订阅的评审集合。集合按值比较（忽略顺序和重复），
// 没变化时不重新订阅；变化时先停掉旧订阅再建立新订阅，空集合只停不建。
func (r *Reconciler) Watch(reviewIDs []string) bool {
	ids := normalizeIDs(reviewIDs)

	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Equal(ids, r.watched) {
		return false
	}

	r.stopLocked()
	r.watched = ids
	if len(ids) == 0 {
		return true
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go r.run(ctx, ids, done)
	return true
}

// Watched 当前订阅的评审集合
func (r *Reconciler) Watched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.watched)
}

// Close 停止订阅
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	r.watched = nil
}

func (r *Reconciler) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil
}

func (r *Reconciler) run(ctx context.Context, ids []string, done chan struct{}) {
	defer close(done)

	delay := r.reconnectDelay
	for {
		started := time.Now()
		err := r.subscriber.Subscribe(ctx, ids, func(u model.ReviewUpdate) {
			r.Apply(u)
		})
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errStreamClosed
		}

		log.Printf("Review updates subscription %v interrupted: %v", ids, err)
		r.reportTransportError(err)

		// 连接稳定过一段时间后从最小间隔重新开始退避
		if time.Since(started) > maxReconnectDelay {
			delay = r.reconnectDelay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		delay = min(delay*2, maxReconnectDelay)
	}
}

func (r *Reconciler) reportTransportError(err error) {
	if r.toaster == nil || !r.errorLimiter.Allow() {
		return
	}
	r.toaster.Show(Toast{
		ID:          TransportErrorToastID,
		Level:       ToastError,
		Title:       "Live comment updates unavailable",
		Description: fmt.Sprintf("Reconnecting: %v", err),
	})
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
