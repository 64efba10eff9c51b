package reviewcache

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// ToastLevel 提示级别
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastError
)

func (l ToastLevel) String() string {
	if l == ToastError {
		return "error"
	}
	return "info"
}

// ToastAction 提示上附带的操作按钮
type ToastAction struct {
	Label string
	Run   func()
}

// Toast 一条用户可见的提示。ID 相同的提示互相替换。
type Toast struct {
	ID          string
	Level       ToastLevel
	Title       string
	Description string
	Action      *ToastAction
}

// Toaster 展示提示
type Toaster interface {
	Show(t Toast)
}

// ToastCenter 按 ID 去重的提示中心
type ToastCenter struct {
	mu     sync.Mutex
	active map[string]Toast
	order  []string
	onShow func(Toast)
}

// NewToastCenter onShow 只在提示第一次出现时调用，可以为 nil
func NewToastCenter(onShow func(Toast)) *ToastCenter {
	return &ToastCenter{
		active: make(map[string]Toast),
		onShow: onShow,
	}
}

// Show 展示提示。已有同 ID 的提示时只替换内容，不重复弹出。
func (tc *ToastCenter) Show(t Toast) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	tc.mu.Lock()
	_, exists := tc.active[t.ID]
	tc.active[t.ID] = t
	if !exists {
		tc.order = append(tc.order, t.ID)
	}
	onShow := tc.onShow
	tc.mu.Unlock()

	if exists {
		return
	}

	log.Printf("[toast] %s %s: %s", t.Level, t.Title, t.Description)
	if onShow != nil {
		onShow(t)
	}
}

// Dismiss 关闭提示，之后同 ID 的提示会再次弹出
func (tc *ToastCenter) Dismiss(id string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if _, ok := tc.active[id]; !ok {
		return
	}
	delete(tc.active, id)
	for i, v := range tc.order {
		if v == id {
			tc.order = append(tc.order[:i:i], tc.order[i+1:]...)
			break
		}
	}
}

// Active 当前可见的提示，按首次出现的顺序
func (tc *ToastCenter) Active() []Toast {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	toasts := make([]Toast, 0, len(tc.order))
	for _, id := range tc.order {
		toasts = append(toasts, tc.active[id])
	}
	return toasts
}

// Get 按 ID 获取可见提示
func (tc *ToastCenter) Get(id string) (Toast, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	t, ok := tc.active[id]
	return t, ok
}
