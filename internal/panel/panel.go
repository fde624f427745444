// ============================================================================
// Mutating Form Panel - 列表上的新增、修改、刪除
// ============================================================================
//
// Package: internal/panel
// 文件: panel.go
//
// 規則:
//   - Submit：existingID 非 0 時為修改，否則為新增
//   - 新增成功：回傳的項目放在列表最前面
//   - 修改成功：以 Key() 找到同一筆並就地取代，筆數不變
//   - 刪除：先經過 Confirmer 確認，拒絕時不發出請求；成功後移除該筆
//   - 任何失敗：發出錯誤通知，列表不變
//
// ============================================================================

package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

var log = slog.Default()

// ErrDeclined 使用者在確認提示中拒絕了操作
var ErrDeclined = errors.New("panel: action declined")

// Confirmer 阻塞式的確認提示
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc 讓普通函式實作 Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (fn ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return fn(ctx, prompt)
}

// AutoConfirm 一律同意（--yes）
var AutoConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// Resource 可變更的遠端集合
type Resource[T types.Keyed, In any] interface {
	Create(ctx context.Context, in In) (T, error)
	Update(ctx context.Context, id int64, in In) (T, error)
	Delete(ctx context.Context, id int64) error
}

// List 目前顯示的列表（pager.Fetcher 實作此介面）
type List[T any] interface {
	Mutate(fn func(items []T) []T)
}

// Recorder 記錄變更結果（metrics.Collector 實作此介面）
type Recorder interface {
	RecordMutation(kind string, err error)
}

// Journal 記錄成功的變更（journal.Journal 實作此介面）
type Journal interface {
	Record(ctx context.Context, kind string, id int64, payload any) error
}

type nopRecorder struct{}

func (nopRecorder) RecordMutation(string, error) {}

type options struct {
	recorder Recorder
	journal  Journal
}

// Option 設定 Panel
type Option func(*options)

// WithRecorder 設定變更結果的記錄器
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithJournal 設定變更日誌
func WithJournal(j Journal) Option {
	return func(o *options) { o.journal = j }
}

// Panel 綁定一個列表與一個可變更資源的表單
type Panel[T types.Keyed, In any] struct {
	noun      string // "job"
	resource  Resource[T, In]
	list      List[T]
	notifier  *Notifier
	confirmer Confirmer
	recorder  Recorder
	journal   Journal
}

// New 建立 Panel；noun 用於通知訊息與 metrics 標籤
func New[T types.Keyed, In any](noun string, resource Resource[T, In], list List[T], notifier *Notifier, confirmer Confirmer, opts ...Option) *Panel[T, In] {
	o := options{recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	if confirmer == nil {
		confirmer = AutoConfirm
	}
	return &Panel[T, In]{
		noun:      noun,
		resource:  resource,
		list:      list,
		notifier:  notifier,
		confirmer: confirmer,
		recorder:  o.recorder,
		journal:   o.journal,
	}
}

// Submit 新增（existingID == 0）或修改一筆資料
func (p *Panel[T, In]) Submit(ctx context.Context, in In, existingID int64) (T, error) {
	if existingID != 0 {
		return p.update(ctx, existingID, in)
	}
	return p.create(ctx, in)
}

func (p *Panel[T, In]) create(ctx context.Context, in In) (T, error) {
	kind := p.noun + ".create"
	item, err := p.resource.Create(ctx, in)
	p.recorder.RecordMutation(kind, err)
	if err != nil {
		log.Warn("create failed", "resource", p.noun, "error", err)
		p.notifier.Error(fmt.Sprintf("Failed to save %s", p.noun))
		return item, fmt.Errorf("create %s: %w", p.noun, err)
	}

	p.list.Mutate(func(items []T) []T {
		return append([]T{item}, items...)
	})
	p.record(ctx, kind, item.Key(), item)
	p.notifier.Success(fmt.Sprintf("%s created successfully", capitalize(p.noun)))
	return item, nil
}

func (p *Panel[T, In]) update(ctx context.Context, id int64, in In) (T, error) {
	kind := p.noun + ".update"
	item, err := p.resource.Update(ctx, id, in)
	p.recorder.RecordMutation(kind, err)
	if err != nil {
		log.Warn("update failed", "resource", p.noun, "id", id, "error", err)
		p.notifier.Error(fmt.Sprintf("Failed to save %s", p.noun))
		return item, fmt.Errorf("update %s %d: %w", p.noun, id, err)
	}

	p.list.Mutate(func(items []T) []T {
		for i := range items {
			if items[i].Key() == id {
				items[i] = item
			}
		}
		return items
	})
	p.record(ctx, kind, id, item)
	p.notifier.Success(fmt.Sprintf("%s updated successfully", capitalize(p.noun)))
	return item, nil
}

// Delete 經確認後刪除一筆資料；使用者拒絕時回傳 ErrDeclined 且不發出請求
func (p *Panel[T, In]) Delete(ctx context.Context, id int64) error {
	ok, err := p.confirmer.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete this %s?", p.noun))
	if err != nil {
		return fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		return ErrDeclined
	}

	kind := p.noun + ".delete"
	err = p.resource.Delete(ctx, id)
	p.recorder.RecordMutation(kind, err)
	if err != nil {
		log.Warn("delete failed", "resource", p.noun, "id", id, "error", err)
		p.notifier.Error(fmt.Sprintf("Failed to delete %s", p.noun))
		return fmt.Errorf("delete %s %d: %w", p.noun, id, err)
	}

	p.list.Mutate(func(items []T) []T {
		kept := items[:0]
		for _, item := range items {
			if item.Key() != id {
				kept = append(kept, item)
			}
		}
		return kept
	})
	p.record(ctx, kind, id, nil)
	p.notifier.Success(fmt.Sprintf("%s deleted successfully", capitalize(p.noun)))
	return nil
}

// record 寫入變更日誌；失敗只記錄 log
func (p *Panel[T, In]) record(ctx context.Context, kind string, id int64, payload any) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Record(ctx, kind, id, payload); err != nil {
		log.Warn("journal write failed", "kind", kind, "id", id, "error", err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
