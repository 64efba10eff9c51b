package reviewcache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryKey 查询缓存的键：查询名 + 参数
type QueryKey struct {
	Name   string
	Params string
}

// CacheEvent 缓存变化类型
type CacheEvent int

const (
	CacheSet CacheEvent = iota
	CacheInvalidated
)

// QueryCache 有容量上限的通用查询缓存。
// Update 在锁内完成读改写，是唯一的增量写入路径。
type QueryCache[V any] struct {
	mu        sync.Mutex
	entries   *lru.Cache[QueryKey, V]
	versions  map[QueryKey]uint64
	listeners []func(QueryKey, CacheEvent)
}

func NewQueryCache[V any](size int) (*QueryCache[V], error) {
	entries, err := lru.New[QueryKey, V](size)
	if err != nil {
		return nil, err
	}
	return &QueryCache[V]{entries: entries, versions: make(map[QueryKey]uint64)}, nil
}

// Listen 注册变化监听，回调在锁外执行
func (qc *QueryCache[V]) Listen(fn func(QueryKey, CacheEvent)) {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.listeners = append(qc.listeners, fn)
}

func (qc *QueryCache[V]) Get(key QueryKey) (V, bool) {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return qc.entries.Get(key)
}

func (qc *QueryCache[V]) Set(key QueryKey, value V) {
	qc.mu.Lock()
	qc.entries.Add(key, value)
	qc.mu.Unlock()

	qc.emit(key, CacheSet)
}

// Invalidate 删除缓存项并通知监听者。即使键不存在也会通知，
// 以便观察者重新拉取。
func (qc *QueryCache[V]) Invalidate(key QueryKey) {
	qc.mu.Lock()
	qc.entries.Remove(key)
	qc.versions[key]++
	qc.mu.Unlock()

	qc.emit(key, CacheInvalidated)
}

// Update 用 fn 把旧值转换为新值。键不存在时不调用 fn、不创建键，返回 false。
// fn 发生 panic 时锁会被释放，缓存保持原值。
func (qc *QueryCache[V]) Update(key QueryKey, fn func(V) V) bool {
	if !qc.update(key, fn) {
		return false
	}
	qc.emit(key, CacheSet)
	return true
}

func (qc *QueryCache[V]) update(key QueryKey, fn func(V) V) bool {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	old, ok := qc.entries.Get(key)
	if !ok {
		return false
	}
	qc.entries.Add(key, fn(old))
	return true
}

// Version 键的失效次数。配合 SetIfVersion 丢弃失效前发起的查询结果。
func (qc *QueryCache[V]) Version(key QueryKey) uint64 {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return qc.versions[key]
}

// SetIfVersion 仅当键自 version 之后没有失效过才写入
func (qc *QueryCache[V]) SetIfVersion(key QueryKey, value V, version uint64) bool {
	qc.mu.Lock()
	if qc.versions[key] != version {
		qc.mu.Unlock()
		return false
	}
	qc.entries.Add(key, value)
	qc.mu.Unlock()

	qc.emit(key, CacheSet)
	return true
}

func (qc *QueryCache[V]) Contains(key QueryKey) bool {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return qc.entries.Contains(key)
}

func (qc *QueryCache[V]) Len() int {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return qc.entries.Len()
}

func (qc *QueryCache[V]) emit(key QueryKey, ev CacheEvent) {
	qc.mu.Lock()
	listeners := qc.listeners
	qc.mu.Unlock()

	for _, fn := range listeners {
		fn(key, ev)
	}
}
