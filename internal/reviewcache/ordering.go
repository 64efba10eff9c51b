package reviewcache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/qs3c/review_comments/internal/model"
)

var (
	ErrNotOwner        = errors.New("only the author can move this comment")
	ErrInvalidDrop     = errors.New("comments can only be reordered among siblings")
	ErrReviewNotCached = errors.New("review comments are not loaded")
)

// compareComments 同级评论按 (CommentIndex, ID) 升序
func compareComments(a, b model.Comment) int {
	if c := cmp.Compare(a.CommentIndex, b.CommentIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortSiblings 返回排好序的副本
func SortSiblings(comments []model.Comment) []model.Comment {
	sorted := slices.Clone(comments)
	slices.SortStableFunc(sorted, compareComments)
	return sorted
}

// Thread 按父评论分组后的评论树
type Thread struct {
	roots    []model.Comment
	children map[int64][]model.Comment
}

// GroupByParent 按 ParentCommentID 分组，每组排序。
// 父评论不在列表中的孤儿评论不展示。
func GroupByParent(comments []model.Comment) Thread {
	present := make(map[int64]struct{}, len(comments))
	for _, c := range comments {
		present[c.ID] = struct{}{}
	}

	t := Thread{children: make(map[int64][]model.Comment)}
	for _, c := range comments {
		if c.IsRoot() {
			t.roots = append(t.roots, c)
			continue
		}
		if _, ok := present[*c.ParentCommentID]; ok {
			t.children[*c.ParentCommentID] = append(t.children[*c.ParentCommentID], c)
		}
	}

	slices.SortStableFunc(t.roots, compareComments)
	for id := range t.children {
		slices.SortStableFunc(t.children[id], compareComments)
	}
	return t
}

func (t Thread) Roots() []model.Comment {
	return slices.Clone(t.roots)
}

func (t Thread) Children(parentID int64) []model.Comment {
	return slices.Clone(t.children[parentID])
}

// Walk 深度优先遍历，depth 从 0 开始
func (t Thread) Walk(fn func(c model.Comment, depth int)) {
	var visit func(c model.Comment, depth int)
	visit = func(c model.Comment, depth int) {
		fn(c, depth)
		for _, child := range t.children[c.ID] {
			visit(child, depth+1)
		}
	}
	for _, root := range t.roots {
		visit(root, 0)
	}
}

// DragItem 拖拽时携带的数据
type DragItem struct {
	ReviewID        string
	CommentID       int64
	ParentCommentID *int64
	CommentIndex    int
}

func NewDragItem(c model.Comment) DragItem {
	return DragItem{
		ReviewID:        c.ReviewID,
		CommentID:       c.ID,
		ParentCommentID: c.ParentCommentID,
		CommentIndex:    c.CommentIndex,
	}
}

// CanDrag 只有作者可以拖动自己未删除的评论
func CanDrag(c model.Comment, viewerID string) bool {
	return viewerID != "" && c.CommenterID == viewerID && !c.Deleted
}

// CanDrop 只能放到同一评审、同一父评论下的另一条评论上
func CanDrop(item DragItem, target model.Comment) bool {
	return item.ReviewID == target.ReviewID &&
		item.CommentID != target.ID &&
		model.SameParent(item.ParentCommentID, target.ParentCommentID)
}

// DropGeometry 放置目标的纵向范围和指针位置
type DropGeometry struct {
	Top      float64
	Bottom   float64
	PointerY float64
}

// Above 指针在目标中线以上
func (g DropGeometry) Above() bool {
	return g.PointerY < (g.Top+g.Bottom)/2
}

// TargetIndex 计算拖动后评论在同级中的展示位置（移除自身后的下标）。
// moved 为 false 表示位置不变或拖动项/目标不在 siblings 中。
func TargetIndex(siblings []model.Comment, item DragItem, target model.Comment, g DropGeometry) (index int, moved bool) {
	sorted := SortSiblings(siblings)

	from := slices.IndexFunc(sorted, func(c model.Comment) bool { return c.ID == item.CommentID })
	to := slices.IndexFunc(sorted, func(c model.Comment) bool { return c.ID == target.ID })
	if from < 0 || to < 0 {
		return 0, false
	}

	insert := to
	if !g.Above() {
		insert++
	}
	if from < insert {
		insert--
	}
	return insert, insert != from
}

// IndexUpdater 调整评论顺序的服务端接口
type IndexUpdater interface {
	UpdateCommentIndex(ctx context.Context, reviewID string, commentID int64, targetIndex int) (*model.Comment, error)
}

// OrderingEngine 把拖拽转换成 updateCommentIndex 请求。
// 不在本地重排，请求结束后（无论成败）失效缓存，由重新拉取给出权威顺序。
type OrderingEngine struct {
	api      IndexUpdater
	store    *CommentStore
	toaster  Toaster
	viewerID string
}

func NewOrderingEngine(api IndexUpdater, store *CommentStore, toaster Toaster, viewerID string) *OrderingEngine {
	return &OrderingEngine{
		api:      api,
		store:    store,
		toaster:  toaster,
		viewerID: viewerID,
	}
}

// BeginDrag 开始拖动
func (e *OrderingEngine) BeginDrag(c model.Comment) (DragItem, error) {
	if !CanDrag(c, e.viewerID) {
		return DragItem{}, ErrNotOwner
	}
	return NewDragItem(c), nil
}

// Reorder 处理一次放置，返回是否发出了请求
func (e *OrderingEngine) Reorder(ctx context.Context, item DragItem, target model.Comment, g DropGeometry) (bool, error) {
	if !CanDrop(item, target) {
		return false, ErrInvalidDrop
	}

	current, ok := e.store.Get(item.ReviewID)
	if !ok {
		return false, ErrReviewNotCached
	}

	siblings := slices.DeleteFunc(current, func(c model.Comment) bool {
		return !model.SameParent(c.ParentCommentID, item.ParentCommentID)
	})

	index, moved := TargetIndex(siblings, item, target, g)
	if !moved {
		return false, nil
	}

	_, err := e.api.UpdateCommentIndex(ctx, item.ReviewID, item.CommentID, index)
	e.store.Invalidate(item.ReviewID)
	if err != nil {
		if e.toaster != nil {
			e.toaster.Show(Toast{
				Level:       ToastError,
				Title:       "Failed to reorder comment",
				Description: err.Error(),
			})
		}
		return true, fmt.Errorf("failed to reorder comment %d: %w", item.CommentID, err)
	}

	return true, nil
}
