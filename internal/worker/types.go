package worker

import (
	"context"
	"time"
)

// Task 代表要執行的任務（例如載入一個列表）
type Task struct {
	Name    string                          // 任務名稱，用於 log 與結果對應
	Run     func(ctx context.Context) error // 任務邏輯，需遵守 ctx 的取消
	Timeout time.Duration                   // 執行超時時間，0 表示不限
}

// Result 代表任務執行結果
type Result struct {
	Name     string        // 任務名稱
	Success  bool          // 執行是否成功
	Error    error         // 錯誤訊息（如果有）
	Duration time.Duration // 實際執行時間
}
