// ============================================================================
// TalentHub Worker Pool - 並發任務執行器
// ============================================================================
//
// Package: internal/worker
// 文件: worker_pool.go
// 功能: 讓畫面中互不相依的列表載入並行執行（例如管理員的三個表格）
//
// 設計模式:
//   採用 Worker Pool 模式（工作池模式）：
//   1. 固定數量的 Worker goroutine 持續運行
//   2. 通過共享的任務 channel 分發任務
//   3. 通過結果 channel 收集執行結果
//
// 架構組件:
//   ┌─────────────┐
//   │  Dashboard  │ --Submit()--> taskCh
//   └─────────────┘
//         ↑
//   ReceiveResult()
//         ↑
//   ┌─────────────┐
//   │   Pool      │
//   │  ┌────────┐ │
//   │  │Worker 1│←── taskCh
//   │  │Worker 2│←── taskCh   ──→ resultCh
//   │  │Worker 3│←── taskCh
//   │  └────────┘ │
//   └─────────────┘
//
// 生命週期:
//   1. NewPool() - 創建 Pool，初始化 channels
//   2. Start(ctx, n) - 啟動 n 個 Worker goroutines
//   3. Submit(task) - 提交任務到 taskCh
//   4. ReceiveResult() - 從 resultCh 讀取結果
//   5. Stop() - 關閉 taskCh，等待所有 Worker 完成
//
//   RunAll 將以上流程包成一次呼叫，回傳與任務同順序的結果。
//
// 錯誤處理:
//   - ErrPoolNotStarted: Pool 未啟動時提交任務
//   - ErrPoolClosed: Pool 已關閉時提交任務
//   - 任務超時由 Worker 內部的 Context 處理
//
// ============================================================================

package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var log = slog.Default()

// ============================================================================
// 錯誤定義
// ============================================================================

var (
	// ErrPoolClosed 表示當前 Pool 已關閉，無法提交新任務
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrPoolNotStarted 表示 Pool 尚未啟動，無法提交任務
	ErrPoolNotStarted = errors.New("worker pool not started")
)

// ============================================================================
// 資料結構定義
// ============================================================================

// Pool 代表 Worker 池，管理多個並發的 Worker
type Pool struct {
	workers  []*Worker      // Worker 列表
	taskCh   chan Task      // 任務通道
	resultCh chan Result    // 結果通道
	stopCh   chan struct{}  // 停止訊號
	wg       sync.WaitGroup // 等待所有 Worker 完成
	started  bool
	stopped  bool
	mu       sync.Mutex // 保護 started 和 stopped，並讓 Submit 與 Stop 互斥
}

// ============================================================================
// 核心方法實作
// ============================================================================

// NewPool 建立新的 Worker Pool
// 參數：
//   - bufferSize: 任務和結果通道的緩衝大小
func NewPool(bufferSize int) *Pool {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Pool{
		workers:  make([]*Worker, 0),
		taskCh:   make(chan Task, bufferSize),
		resultCh: make(chan Result, bufferSize),
		stopCh:   make(chan struct{}),
	}
}

// Start 啟動指定數量的 Worker；ctx 取消時所有執行中的任務一併取消
func (p *Pool) Start(ctx context.Context, workerCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("pool already started")
	}
	if workerCount < 1 {
		workerCount = 1
	}

	for i := 0; i < workerCount; i++ {
		worker := newWorker(ctx, i, p.taskCh, p.resultCh, p.stopCh)
		p.workers = append(p.workers, worker)

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run()
		}(worker)
	}

	p.started = true
	return nil
}

// Submit 提交任務到 Worker Pool
//
// 發送時持有 mu，Stop 無法在發送途中關閉 taskCh。
// 緩衝區已滿時 Submit 會阻塞，直到有 Worker 取走任務或 Pool 停止。
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolClosed
	}

	select {
	case p.taskCh <- task:
		return nil
	case <-p.stopCh:
		return ErrPoolClosed
	}
}

// ReceiveResult 從結果通道接收執行結果
func (p *Pool) ReceiveResult() (Result, error) {
	select {
	case result, ok := <-p.resultCh:
		if !ok {
			return Result{}, ErrPoolClosed
		}
		return result, nil
	case <-p.stopCh:
		return Result{}, ErrPoolClosed
	}
}

// Stop 優雅地關閉 Worker Pool
// 關閉流程：
//  1. 設定 stopped 標誌
//  2. 關閉 stopCh，通知所有 Worker 停止回報結果
//  3. 關閉 taskCh，結束 Worker 的 range 循環
//  4. 等待所有 Worker 完成當前任務
//  5. 關閉 resultCh
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopCh)
	close(p.taskCh)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.resultCh)
}

// GetWorkerCount 返回當前 Worker 數量
func (p *Pool) GetWorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// IsStarted 檢查 Pool 是否已啟動
func (p *Pool) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// RunAll 以 workerCount 個 Worker 並行執行 tasks，並依 tasks 的順序回傳結果
//
// 任務失敗只記錄在 Result 中，不會中斷其他任務。
func RunAll(ctx context.Context, workerCount int, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}
	if workerCount > len(tasks) {
		workerCount = len(tasks)
	}

	pool := NewPool(len(tasks))
	results := make([]Result, len(tasks))
	if err := pool.Start(ctx, workerCount); err != nil {
		for i, task := range tasks {
			results[i] = Result{Name: task.Name, Error: err}
		}
		return results
	}
	defer pool.Stop()

	index := make(map[string][]int, len(tasks))
	pending := 0
	for i, task := range tasks {
		if err := pool.Submit(task); err != nil {
			results[i] = Result{Name: task.Name, Error: err}
			continue
		}
		index[task.Name] = append(index[task.Name], i)
		pending++
	}

	for ; pending > 0; pending-- {
		result, err := pool.ReceiveResult()
		if err != nil {
			break
		}
		slots := index[result.Name]
		results[slots[0]] = result
		index[result.Name] = slots[1:]
		if result.Error != nil {
			log.Warn("task failed", "task", result.Name, "error", result.Error)
		}
	}
	return results
}
