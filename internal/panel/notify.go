package panel

import (
	"sync"
	"time"
)

// DefaultTTL 通知顯示時間
const DefaultTTL = 3 * time.Second

// Level 通知類型
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification 一則暫時性的通知
type Notification struct {
	Level   Level
	Message string
	At      time.Time
}

// Notifier 保留最新的一則通知，TTL 過後自動失效
type Notifier struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	current *Notification
	sink    func(Notification)
}

// NewNotifier 建立通知器；sink 不為 nil 時每則通知都會即時送出（CLI 直接印出）
func NewNotifier(ttl time.Duration, sink func(Notification)) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{ttl: ttl, now: time.Now, sink: sink}
}

// Success 發出成功通知
func (n *Notifier) Success(msg string) {
	n.notify(LevelSuccess, msg)
}

// Error 發出錯誤通知
func (n *Notifier) Error(msg string) {
	n.notify(LevelError, msg)
}

func (n *Notifier) notify(level Level, msg string) {
	n.mu.Lock()
	note := Notification{Level: level, Message: msg, At: n.now()}
	n.current = &note
	sink := n.sink
	n.mu.Unlock()

	if sink != nil {
		sink(note)
	}
}

// Current 回傳在 now 時仍有效的通知
func (n *Notifier) Current(now time.Time) (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil || now.Sub(n.current.At) >= n.ttl {
		return Notification{}, false
	}
	return *n.current, true
}

// Clear 移除目前的通知
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
}
