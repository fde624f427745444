// ============================================================================
// Paginated Collection Fetcher
// ============================================================================
//
// Package: internal/pager
// 文件: pager.go
// 功能: 管理單一遠端列表的分頁狀態（頁碼、篩選條件、項目、是否有下一頁）
//
// 載入規則:
//   - 每次頁碼或篩選條件改變發出一次請求
//   - 成功：以回應取代項目，HasNext 取自回應
//   - 失敗：清空項目、HasNext=false，記錄錯誤，不重試
//   - page != 1 且回應為空：重設為第 1 頁並重新載入一次
//
// 世代計數:
//   每次載入遞增 generation 並取消上一個尚未完成的請求。
//   回應的 generation 不是最新時直接丟棄，過期的頁面不會覆蓋較新的頁面。
//
// ============================================================================

package pager

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

var log = slog.Default()

// ErrSuperseded 表示此次載入已被較新的載入取代，結果已丟棄
var ErrSuperseded = errors.New("pager: load superseded by a newer one")

// Source 取得一頁資料
type Source[T, F any] interface {
	Fetch(ctx context.Context, page, perPage int, filter F) (api.Page[T], error)
}

// SourceFunc 讓普通函式實作 Source
type SourceFunc[T, F any] func(ctx context.Context, page, perPage int, filter F) (api.Page[T], error)

func (fn SourceFunc[T, F]) Fetch(ctx context.Context, page, perPage int, filter F) (api.Page[T], error) {
	return fn(ctx, page, perPage, filter)
}

// Recorder 接收被丟棄的過期回應（metrics.Collector 實作此介面）
type Recorder interface {
	RecordStaleResponse(resource string)
}

type nopRecorder struct{}

func (nopRecorder) RecordStaleResponse(string) {}

type options struct {
	recorder Recorder
}

// Option 設定 Fetcher
type Option func(*options)

// WithRecorder 設定過期回應的記錄器
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// Fetcher 一個分頁列表的狀態
type Fetcher[T, F any] struct {
	resource string
	source   Source[T, F]
	perPage  int
	recorder Recorder

	mu      sync.Mutex
	page    int
	filter  F
	items   []T
	hasNext bool
	err     error
	gen     uint64
	cancel  context.CancelFunc
}

// New 建立 Fetcher，初始為第 1 頁、空列表；呼叫 Load 才會發出請求
func New[T, F any](resource string, source Source[T, F], perPage int, filter F, opts ...Option) *Fetcher[T, F] {
	o := options{recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Fetcher[T, F]{
		resource: resource,
		source:   source,
		perPage:  perPage,
		recorder: o.recorder,
		page:     1,
		filter:   filter,
		items:    []T{},
	}
}

// Resource 回傳列表名稱（用於 log 與 metrics）
func (f *Fetcher[T, F]) Resource() string {
	return f.resource
}

// PerPage 回傳每頁筆數
func (f *Fetcher[T, F]) PerPage() int {
	return f.perPage
}

// Load 載入目前的頁碼與篩選條件
func (f *Fetcher[T, F]) Load(ctx context.Context) error {
	return f.load(ctx, true)
}

// Next 前往下一頁；沒有下一頁時不做任何事
func (f *Fetcher[T, F]) Next(ctx context.Context) error {
	f.mu.Lock()
	if !f.hasNext {
		f.mu.Unlock()
		return nil
	}
	f.page++
	f.mu.Unlock()
	return f.load(ctx, true)
}

// Prev 前往上一頁；在第 1 頁時不做任何事
func (f *Fetcher[T, F]) Prev(ctx context.Context) error {
	f.mu.Lock()
	if f.page <= 1 {
		f.mu.Unlock()
		return nil
	}
	f.page--
	f.mu.Unlock()
	return f.load(ctx, true)
}

// GoTo 前往指定頁碼，小於 1 時視為 1
func (f *Fetcher[T, F]) GoTo(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	f.mu.Lock()
	f.page = page
	f.mu.Unlock()
	return f.load(ctx, true)
}

// SetFilter 變更篩選條件並回到第 1 頁
func (f *Fetcher[T, F]) SetFilter(ctx context.Context, filter F) error {
	f.mu.Lock()
	f.filter = filter
	f.page = 1
	f.mu.Unlock()
	return f.load(ctx, true)
}

// Filter 回傳目前的篩選條件
func (f *Fetcher[T, F]) Filter() F {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

// State 回傳目前狀態的複本
func (f *Fetcher[T, F]) State() types.PageState[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]T, len(f.items))
	copy(items, f.items)
	return types.PageState[T]{Page: f.page, Items: items, HasNext: f.hasNext}
}

// Err 回傳最近一次載入的錯誤
func (f *Fetcher[T, F]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Mutate 就地修改目前顯示的項目（新增、取代、移除）
//
// 進行中的載入不受影響；若其較晚完成，會以伺服器的內容取代。
func (f *Fetcher[T, F]) Mutate(fn func(items []T) []T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]T, len(f.items))
	copy(items, f.items)
	items = fn(items)
	if items == nil {
		items = []T{}
	}
	f.items = items
}

// Close 取消尚未完成的載入
func (f *Fetcher[T, F]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
}

// load 發出一次請求；allowReset 為 true 時，空白的非首頁會重設為第 1 頁並再載入一次
func (f *Fetcher[T, F]) load(parent context.Context, allowReset bool) error {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	f.cancel = cancel
	page, filter := f.page, f.filter
	f.mu.Unlock()
	defer cancel()

	result, err := f.source.Fetch(ctx, page, f.perPage, filter)

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		f.recorder.RecordStaleResponse(f.resource)
		log.Debug("discarded stale page", "resource", f.resource, "page", page, "generation", gen)
		return ErrSuperseded
	}
	f.cancel = nil

	if err != nil {
		f.items = []T{}
		f.hasNext = false
		f.err = err
		f.mu.Unlock()
		log.Warn("page load failed", "resource", f.resource, "page", page, "error", err)
		return err
	}

	if len(result.Items) == 0 && page != 1 && allowReset {
		f.page = 1
		f.mu.Unlock()
		log.Debug("empty page, resetting to first page", "resource", f.resource, "page", page)
		return f.load(parent, false)
	}

	items := result.Items
	if items == nil {
		items = []T{}
	}
	f.items = items
	f.hasNext = result.HasNext
	f.err = nil
	f.mu.Unlock()
	return nil
}
