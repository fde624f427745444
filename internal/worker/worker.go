// ============================================================================
// TalentHub Worker - Task Execution Unit
// ============================================================================
//
// Package: internal/worker
// File: worker.go
// Function: Work unit that executes tasks, each Worker runs in an independent goroutine
//
// How it works:
//   Each Worker is an independent goroutine that continuously executes the following loop:
//   1. Receive task from taskCh (blocking wait)
//   2. Execute task.Run with its own timeout
//   3. Send result to resultCh
//   4. Repeat until taskCh is closed
//
// Timeout Control:
//   Each task gets a Context derived from the pool's Context:
//   - Timeout > 0 wraps it with context.WithTimeout
//   - Canceling the pool's Context cancels every running task
//
// Error Handling:
//   - Timeout error: ctx.Err() returns DeadlineExceeded
//   - Panics inside task.Run are recovered and reported as errors
//   - All errors are encapsulated in Result and returned
//
// ============================================================================

package worker

import (
	"context"
	"fmt"
	"time"
)

// Worker represents a work execution unit
type Worker struct {
	id       int           // Worker unique identifier, used for logging and debugging
	ctx      context.Context
	taskCh   <-chan Task   // Task channel (read-only), receives tasks to execute
	resultCh chan<- Result // Result channel (write-only), sends task execution results
	stopCh   <-chan struct{}
}

// newWorker creates a new Worker instance
func newWorker(ctx context.Context, id int, taskCh <-chan Task, resultCh chan<- Result, stopCh <-chan struct{}) *Worker {
	return &Worker{
		id:       id,
		ctx:      ctx,
		taskCh:   taskCh,
		resultCh: resultCh,
		stopCh:   stopCh,
	}
}

// Run is the main loop of Worker, receives tasks from task channel and executes them
func (w *Worker) Run() {
	for task := range w.taskCh {
		start := time.Now()
		err := w.execute(task)

		result := Result{
			Name:     task.Name,
			Success:  err == nil,
			Error:    err,
			Duration: time.Since(start),
		}
		log.Debug("task finished", "worker", w.id, "task", task.Name, "duration", result.Duration, "error", err)

		select {
		case w.resultCh <- result:
		case <-w.stopCh:
			// Pool 已停止，沒有人會讀取結果
		}
	}
}

// execute runs the task with its timeout and converts panics into errors
func (w *Worker) execute(task Task) (err error) {
	if task.Run == nil {
		return fmt.Errorf("task %q has no Run function", task.Name)
	}

	ctx := w.ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", task.Name, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return task.Run(ctx)
}
