// ============================================================================
// TalentHub Dashboard - 畫面協調器
// ============================================================================
//
// Package: internal/dashboard
// 文件: dashboard.go
// 功能: 把 session、路由守衛、分頁列表、表單面板組合成各角色的儀表板
//
// 架構:
//
//   ┌──────────┐   token    ┌──────────┐   Me()    ┌────────────┐
//   │ storage  │ ─────────▶ │  guard   │ ────────▶ │  session   │
//   └──────────┘            └──────────┘           └────────────┘
//                                │ Authorized
//                                ▼
//   ┌────────────────────────────────────────────────────────────┐
//   │ AdminView / EmployerView / ApplicantView                   │
//   │   pager.Fetcher × N ── Refresh() 經 worker.RunAll 並行載入 │
//   │   panel.Panel（職缺）  journal（成功的變更）               │
//   └────────────────────────────────────────────────────────────┘
//
// 畫面生命週期:
//   1. OpenXxx(ctx) - 守衛檢查一次，未授權時回傳 *RedirectError
//   2. Refresh(ctx) - 並行載入畫面上的所有列表
//   3. 操作方法（Apply、Review、Jobs 面板...）
//
// ============================================================================

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/ChuLiYu/talenthub-cli/internal/guard"
	"github.com/ChuLiYu/talenthub-cli/internal/pager"
	"github.com/ChuLiYu/talenthub-cli/internal/panel"
	"github.com/ChuLiYu/talenthub-cli/internal/session"
	"github.com/ChuLiYu/talenthub-cli/internal/storage"
	"github.com/ChuLiYu/talenthub-cli/internal/worker"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

var log = slog.Default()

// ============================================================================
// 錯誤定義
// ============================================================================

var (
	// ErrInvalidCredentials 登入失敗（帳密錯誤或無法確認身分）
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSignupFailed 註冊失敗
	ErrSignupFailed = errors.New("signup failed")
	// ErrRedirected 守衛拒絕顯示畫面
	ErrRedirected = errors.New("dashboard: redirected")
	// ErrUserNotLoaded 尚未取得使用者 id，無法申請
	ErrUserNotLoaded = errors.New("user not loaded")
	// ErrAlreadyApplied 已申請過此職缺
	ErrAlreadyApplied = errors.New("already applied to this job")
	// ErrNoResume 申請沒有附上履歷
	ErrNoResume = errors.New("no resume available")
	// ErrNotOnPage 項目不在目前顯示的頁面上
	ErrNotOnPage = errors.New("not on the current page")
)

// 顯示給使用者的訊息
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgAccountCreated     = "Account created! Please log in."
	MsgSignupFailed       = "Signup failed"
	MsgUserNotLoaded      = "Unable to apply: user not loaded yet."
	MsgAlreadyApplied     = "You have already applied for this job"
	MsgApplied            = "Application submitted successfully"
	MsgApplyFailed        = "Failed to submit application"
	MsgNoResume           = "No resume available for this applicant"
	MsgReviewFailed       = "Failed to update application"
)

// RedirectError 守衛判定為 Unauthorized，畫面應導向 To
type RedirectError struct {
	From guard.Route
	To   guard.Route
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s is not available for this session, redirecting to %s", e.From, e.To)
}

func (e *RedirectError) Is(target error) bool {
	return target == ErrRedirected
}

// ============================================================================
// 設定
// ============================================================================

// Config 儀表板設定
type Config struct {
	JobsPerPage         int           // 職缺列表每頁筆數（雇主、申請者）
	ApplicationsPerPage int           // 申請者的申請列表每頁筆數
	ApplicantsPerPage   int           // 雇主的申請者表格每頁筆數
	AdminPerPage        int           // 管理員表格每頁筆數
	SessionMaxAge       time.Duration // session 可直接信任的時間，0 表示每次都重新驗證
	RequestTimeout      time.Duration // 每個列表載入的超時時間
	Workers             int           // Refresh 並行載入的 Worker 數量
	AppliedCheck        AppliedCheck  // 申請前如何判斷是否已申請
}

// DefaultConfig 回傳與原始網頁相同的每頁筆數
func DefaultConfig() Config {
	return Config{
		JobsPerPage:         6,
		ApplicationsPerPage: 6,
		ApplicantsPerPage:   5,
		AdminPerPage:        5,
		RequestTimeout:      10 * time.Second,
		Workers:             3,
		AppliedCheck:        CheckFullHistory,
	}
}

// Recorder 儀表板使用的所有指標（metrics.Collector 實作此介面）
type Recorder interface {
	guard.Recorder
	pager.Recorder
	panel.Recorder
}

type nopRecorder struct{}

func (nopRecorder) RecordGuardOutcome(string, string) {}
func (nopRecorder) RecordStaleResponse(string)        {}
func (nopRecorder) RecordMutation(string, error)      {}

// Option 設定 App
type Option func(*App)

// WithRecorder 設定指標記錄器
func WithRecorder(r Recorder) Option {
	return func(a *App) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithJournal 設定變更日誌
func WithJournal(j panel.Journal) Option {
	return func(a *App) { a.journal = j }
}

// WithConfirmer 設定阻塞式確認提示（刪除、申請）
func WithConfirmer(c panel.Confirmer) Option {
	return func(a *App) {
		if c != nil {
			a.confirmer = c
		}
	}
}

// WithNotifier 設定通知器
func WithNotifier(n *panel.Notifier) Option {
	return func(a *App) {
		if n != nil {
			a.notifier = n
		}
	}
}

// ============================================================================
// App
// ============================================================================

// App 持有所有畫面共用的相依物件
type App struct {
	client    *api.Client
	store     *storage.Store
	resolver  *session.Resolver
	cfg       Config
	recorder  Recorder
	journal   panel.Journal
	confirmer panel.Confirmer
	notifier  *panel.Notifier

	mu      sync.Mutex
	session types.Session // 最近一次驗證成功的 session
}

// New 建立 App
func New(client *api.Client, store *storage.Store, cfg Config, opts ...Option) *App {
	defaults := DefaultConfig()
	if cfg.JobsPerPage <= 0 {
		cfg.JobsPerPage = defaults.JobsPerPage
	}
	if cfg.ApplicationsPerPage <= 0 {
		cfg.ApplicationsPerPage = defaults.ApplicationsPerPage
	}
	if cfg.ApplicantsPerPage <= 0 {
		cfg.ApplicantsPerPage = defaults.ApplicantsPerPage
	}
	if cfg.AdminPerPage <= 0 {
		cfg.AdminPerPage = defaults.AdminPerPage
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}

	a := &App{
		client:    client,
		store:     store,
		resolver:  session.NewResolver(client),
		cfg:       cfg,
		recorder:  nopRecorder{},
		confirmer: panel.AutoConfirm,
		notifier:  panel.NewNotifier(panel.DefaultTTL, nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config 回傳生效的設定
func (a *App) Config() Config {
	return a.cfg
}

// Notifier 回傳畫面共用的通知器
func (a *App) Notifier() *panel.Notifier {
	return a.notifier
}

// mount 對受保護路由執行一次守衛檢查
func (a *App) mount(ctx context.Context, route guard.Route) (types.Session, error) {
	required, ok := guard.RequiredRole(route)
	if !ok {
		return types.Session{}, fmt.Errorf("route %s is not protected", route)
	}
	token, err := a.store.Token()
	if err != nil {
		return types.Session{}, fmt.Errorf("failed to read stored token: %w", err)
	}

	g := guard.New(required, guard.WithRecorder(a.recorder))
	var state guard.State
	if cached := a.cachedSession(); cached.Authenticated() && cached.Token == token {
		state = g.MountSession(ctx, a.resolver, cached, a.cfg.SessionMaxAge)
	} else {
		state = g.Mount(ctx, a.resolver, token)
	}
	if state != guard.Authorized {
		log.Info("guard redirected", "route", route, "to", g.Redirect())
		return types.Session{}, &RedirectError{From: route, To: g.Redirect()}
	}
	a.remember(g.Session())
	return g.Session(), nil
}

func (a *App) cachedSession() types.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) remember(sess types.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = sess
}

// record 寫入變更日誌；失敗只記錄 log，不影響變更本身
func (a *App) record(ctx context.Context, kind string, id int64, payload any) {
	if a.journal == nil {
		return
	}
	if err := a.journal.Record(ctx, kind, id, payload); err != nil {
		log.Warn("journal write failed", "kind", kind, "id", id, "error", err)
	}
}

// loadTask 把一個列表的 Load 包成 worker 任務
func (a *App) loadTask(name string, load func(ctx context.Context) error) worker.Task {
	return worker.Task{
		Name: name,
		Run: func(ctx context.Context) error {
			err := load(ctx)
			if errors.Is(err, pager.ErrSuperseded) {
				return nil
			}
			return err
		},
		Timeout: a.cfg.RequestTimeout,
	}
}

// refresh 並行執行 tasks；個別失敗已由 Fetcher 轉為空白狀態，這裡合併回報
func (a *App) refresh(ctx context.Context, tasks ...worker.Task) error {
	var errs []error
	for _, result := range worker.RunAll(ctx, a.cfg.Workers, tasks) {
		if result.Error != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", result.Name, result.Error))
		}
	}
	return errors.Join(errs...)
}

// ============================================================================
// 主題
// ============================================================================

// Theme 回傳儲存的主題
func (a *App) Theme() (storage.Theme, error) {
	return a.store.Theme()
}

// SetTheme 設定主題
func (a *App) SetTheme(theme storage.Theme) error {
	return a.store.SetTheme(theme)
}

// ToggleTheme 切換 light/dark 並回傳新的主題
func (a *App) ToggleTheme() (storage.Theme, error) {
	return a.store.ToggleTheme()
}
