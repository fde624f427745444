// Package storage 保存客戶端在多次執行之間需要保留的少量狀態
package storage

// ============================================================================
// 職責說明：
// 1. 將 authToken 與 theme 序列化為 JSON 狀態檔
// 2. 使用原子性寫入（temp file + rename）防止損壞
// 3. 載入時驗證 schema 版本相容性
// 4. 狀態檔不存在時回傳預設值（首次執行）
// ============================================================================

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var log = slog.Default()

// ============================================================================
// 錯誤定義
// ============================================================================

var (
	ErrCorruptedState      = errors.New("state file is corrupted")
	ErrIncompatibleVersion = errors.New("state schema version is incompatible")
	ErrInvalidTheme        = errors.New("theme must be light or dark")
)

// SchemaVersion 目前的狀態檔版本
const SchemaVersion = 1

// Theme 介面主題
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme 解析主題字串
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Toggle 回傳另一個主題
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// State 持久化的客戶端狀態
type State struct {
	SchemaVer int    `json:"schema_ver"`
	AuthToken string `json:"authToken,omitempty"`
	Theme     Theme  `json:"theme"`
}

func defaultState() State {
	return State{SchemaVer: SchemaVersion, Theme: ThemeLight}
}

// ============================================================================
// Store
// ============================================================================

// Store 狀態檔管理器
type Store struct {
	path string     // 狀態檔路徑
	mu   sync.Mutex // 保護檔案操作
}

// NewStore 建立狀態檔管理器
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path 取得狀態檔路徑（用於測試與除錯）
func (s *Store) Path() string {
	return s.path
}

// Load 載入狀態
//
// 行為：
//   - 檔案不存在時回傳預設狀態（無 token、light 主題）
//   - 驗證 schema 版本
//   - 未知的主題值回退為 light
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Save 原子性寫入狀態
func (s *Store) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(state)
}

// Update 在鎖內讀取、修改並寫回狀態
func (s *Store) Update(fn func(*State)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return state, err
	}
	fn(&state)
	if err := s.saveLocked(state); err != nil {
		return state, err
	}
	return state, nil
}

// Token 回傳儲存的 auth token，沒有時為空字串
func (s *Store) Token() (string, error) {
	state, err := s.Load()
	if err != nil {
		return "", err
	}
	return state.AuthToken, nil
}

// SetToken 儲存 auth token
func (s *Store) SetToken(token string) error {
	_, err := s.Update(func(st *State) { st.AuthToken = token })
	return err
}

// ClearToken 移除 auth token（登出）
//
// 狀態檔損壞時以預設狀態覆寫，登出後即可恢復使用
func (s *Store) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	switch {
	case errors.Is(err, ErrCorruptedState):
		log.Warn("state file corrupted, resetting", "path", s.path, "error", err)
		state = defaultState()
	case err != nil:
		return err
	}
	state.AuthToken = ""
	return s.saveLocked(state)
}

// Theme 回傳目前主題
func (s *Store) Theme() (Theme, error) {
	state, err := s.Load()
	if err != nil {
		return "", err
	}
	return state.Theme, nil
}

// SetTheme 設定主題
func (s *Store) SetTheme(theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}
	_, err := s.Update(func(st *State) { st.Theme = theme })
	return err
}

// ToggleTheme 切換主題並回傳新主題
func (s *Store) ToggleTheme() (Theme, error) {
	state, err := s.Update(func(st *State) { st.Theme = st.Theme.Toggle() })
	if err != nil {
		return "", err
	}
	return state.Theme, nil
}

// ============================================================================
// 內部方法（呼叫者需持有 s.mu）
// ============================================================================

func (s *Store) loadLocked() (State, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// 首次執行，回傳預設狀態
			return defaultState(), nil
		}
		return State{}, fmt.Errorf("failed to read state: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrCorruptedState, err)
	}
	if state.SchemaVer != SchemaVersion {
		return State{}, fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, state.SchemaVer, SchemaVersion)
	}
	if _, err := ParseTheme(string(state.Theme)); err != nil {
		state.Theme = ThemeLight
	}
	return state, nil
}

// saveLocked 使用原子性寫入流程：
// 1. 寫入臨時檔案（.tmp）
// 2. 使用 os.Rename 原子性替換原始檔案
func (s *Store) saveLocked(state State) error {
	state.SchemaVer = SchemaVersion
	if state.Theme == "" {
		state.Theme = ThemeLight
	}

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create state dir: %w", err)
		}
	}

	// token 屬於憑證，檔案權限限制為擁有者可讀寫
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write temp state: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename state: %w", err)
	}
	return nil
}
