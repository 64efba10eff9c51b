package reviewcache

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrDeleteAlreadyPending = errors.New("another deletion is awaiting confirmation")
	ErrNoPendingDelete      = errors.New("no deletion awaiting confirmation")
	ErrDeleteInFlight       = errors.New("deletion is already in progress")
)

// DeleteState 删除确认状态：DeleteIdle 或 DeletePending
type DeleteState interface {
	deleteState()
}

type DeleteIdle struct{}

// DeletePending 等待确认的删除，目标和 Invalidate 总是一起设置
type DeletePending struct {
	ReviewID   string
	CommentID  int64
	Invalidate bool
}

func (DeleteIdle) deleteState()    {}
func (DeletePending) deleteState() {}

// DeleteConfirmation 两步删除。同一时间只有一个待确认的删除。
type DeleteConfirmation struct {
	coordinator *MutationCoordinator

	mu       sync.Mutex
	state    DeleteState
	inFlight bool
}

func newDeleteConfirmation(c *MutationCoordinator) *DeleteConfirmation {
	return &DeleteConfirmation{
		coordinator: c,
		state:       DeleteIdle{},
	}
}

func (d *DeleteConfirmation) State() DeleteState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Request 请求删除，进入待确认状态
func (d *DeleteConfirmation) Request(reviewID string, commentID int64, invalidate bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.state.(DeletePending); ok {
		return ErrDeleteAlreadyPending
	}
	d.state = DeletePending{ReviewID: reviewID, CommentID: commentID, Invalidate: invalidate}
	return nil
}

// Cancel 取消待确认的删除，不访问服务端。删除已在进行时不能取消。
func (d *DeleteConfirmation) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inFlight {
		return false
	}
	_, pending := d.state.(DeletePending)
	d.state = DeleteIdle{}
	return pending
}

// Confirm 执行删除。无论成败都回到 DeleteIdle，失败只通过提示告知。
func (d *DeleteConfirmation) Confirm(ctx context.Context) error {
	d.mu.Lock()
	target, ok := d.state.(DeletePending)
	if !ok {
		d.mu.Unlock()
		return ErrNoPendingDelete
	}
	if d.inFlight {
		d.mu.Unlock()
		return ErrDeleteInFlight
	}
	d.inFlight = true
	d.mu.Unlock()

	err := d.coordinator.deleteComment(ctx, target)

	d.mu.Lock()
	d.state = DeleteIdle{}
	d.inFlight = false
	d.mu.Unlock()

	return err
}
