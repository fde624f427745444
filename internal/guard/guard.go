// ============================================================================
// Route Guard - 依角色決定受保護畫面是否顯示
// ============================================================================
//
// Package: internal/guard
// 文件: guard.go
//
// 狀態機:
//
//   Loading ──Resolve 成功且角色相符──▶ Authorized
//      │
//      └──Resolve 失敗或角色不符──────▶ Unauthorized（導向 "/"）
//
//   Authorized / Unauthorized 為終態，掛載期間不再重新檢查。
//
// 安全模型:
//   Guard 只決定客戶端顯示什麼，不保護任何資料。
//   授權由遠端服務對每個請求強制執行。
//
// ============================================================================

package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

var log = slog.Default()

// State 守衛狀態
type State int

const (
	Loading State = iota
	Authorized
	Unauthorized
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resolver 驗證 token 並產生 session（session.Resolver 實作此介面）
type Resolver interface {
	Resolve(ctx context.Context, token string) (types.Session, error)
	Refresh(ctx context.Context, sess types.Session, maxAge time.Duration) (types.Session, error)
}

// Recorder 接收守衛判定結果（metrics.Collector 實作此介面）
type Recorder interface {
	RecordGuardOutcome(role, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordGuardOutcome(string, string) {}

// Option 設定 Guard
type Option func(*Guard)

// WithRecorder 設定判定結果的記錄器
func WithRecorder(r Recorder) Option {
	return func(g *Guard) {
		if r != nil {
			g.recorder = r
		}
	}
}

// Guard 一個受保護畫面的守衛，每次掛載建立一個
type Guard struct {
	required types.Role
	recorder Recorder

	once    sync.Once
	mu      sync.Mutex
	state   State
	session types.Session
}

// New 建立要求 required 角色的守衛，初始狀態為 Loading
func New(required types.Role, opts ...Option) *Guard {
	g := &Guard{required: required, recorder: nopRecorder{}, state: Loading}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Required 回傳守衛要求的角色
func (g *Guard) Required() types.Role {
	return g.required
}

// Mount 以儲存的 token 執行一次檢查
//
// 只有第一次呼叫會發出請求，之後回傳快取的結果。
func (g *Guard) Mount(ctx context.Context, r Resolver, token string) State {
	g.once.Do(func() {
		sess, err := r.Resolve(ctx, token)
		g.settle(sess, err)
	})
	return g.State()
}

// MountSession 以已驗證的 session 執行一次檢查
//
// session 在 maxAge 內仍新鮮時不發出請求。
func (g *Guard) MountSession(ctx context.Context, r Resolver, sess types.Session, maxAge time.Duration) State {
	g.once.Do(func() {
		refreshed, err := r.Refresh(ctx, sess, maxAge)
		g.settle(refreshed, err)
	})
	return g.State()
}

func (g *Guard) settle(sess types.Session, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case err != nil:
		g.state = Unauthorized
		log.Debug("guard rejected session", "required", g.required, "error", err)
	case sess.Role != g.required || g.required == types.RoleNone:
		g.state = Unauthorized
		log.Debug("guard role mismatch", "required", g.required, "actual", sess.Role)
	default:
		g.state = Authorized
		g.session = sess
	}
	g.recorder.RecordGuardOutcome(g.required.String(), g.state.String())
}

// State 回傳目前狀態
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session 回傳授權成功時的 session；其他狀態回傳零值
func (g *Guard) Session() types.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Redirect 回傳 Unauthorized 時應導向的路由；其他狀態為空字串
func (g *Guard) Redirect() Route {
	if g.State() == Unauthorized {
		return RouteLanding
	}
	return ""
}
