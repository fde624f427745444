// Package journal keeps a local, append-only record of the mutations this
// client issued against the remote service.
package journal

// ============================================================================
// Journal 核心實作
// 職責：
// 1. 追加成功的變更紀錄到日誌檔案（append-only，每行一筆 JSON）
// 2. 提供重放功能（history 命令）
// 3. 支援日誌旋轉
// 4. 每筆紀錄帶 CRC32 校驗和，重放時驗證
//
// 日誌只供參考，遠端服務才是資料的來源。
// ============================================================================

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
)

var log = slog.Default()

// maxLineSize 單筆紀錄的上限（payload 為伺服器回傳的完整資料）
const maxLineSize = 1 << 20

// Journal 表示一個變更日誌實例
type Journal struct {
	mu      sync.Mutex    // 保護並發寫入
	file    *os.File      // 日誌檔案
	encoder *json.Encoder // JSON 編碼器
	path    string        // 日誌檔案路徑
	seq     uint64        // 目前的紀錄序號
	closed  bool
	now     func() time.Time
}

// ============================================================================
// 公開介面
// ============================================================================

/*
Open 建立或開啟一個日誌

行為：
- 如果檔案不存在，建立新檔案，seq 從 0 開始
- 如果檔案已存在，讀取最後一筆紀錄的 seq 並繼續
- 以追加模式（O_APPEND）開啟，確保寫入不覆蓋
*/
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create journal dir: %w", err)
		}
	}

	var seq uint64
	last, err := LastEntry(path)
	switch {
	case err == nil && last != nil:
		seq = last.Seq
	case err != nil && !os.IsNotExist(err):
		// 損毀的尾端不阻止新的紀錄，序號從可讀的最後一筆之後繼續
		log.Warn("journal tail unreadable", "path", path, "error", err)
		if last != nil {
			seq = last.Seq
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return &Journal{
		file:    file,
		encoder: json.NewEncoder(file),
		path:    path,
		seq:     seq,
		now:     time.Now,
	}, nil
}

// Path 取得日誌檔案路徑
func (j *Journal) Path() string {
	return j.path
}

// Record 追加一筆成功的變更
//
// 行為：
// - 自動遞增 seq，產生紀錄 uuid
// - request id 取自 ctx（api.WithRequestID）
// - 計算 checksum，寫入檔案並同步到磁碟
//
// nil 的 Journal 不做任何事，讓停用日誌時呼叫端不需判斷。
func (j *Journal) Record(ctx context.Context, kind string, resourceID int64, payload any) error {
	if j == nil {
		return nil
	}

	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("journal: encode payload: %w", err)
		}
		raw = encoded
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrJournalClosed
	}

	entry := Entry{
		Seq:        j.seq + 1,
		ID:         uuid.NewString(),
		Kind:       kind,
		ResourceID: resourceID,
		RequestID:  api.RequestID(ctx),
		Timestamp:  j.now().UnixMilli(),
		Payload:    raw,
	}
	entry.Checksum = CalculateChecksum(entry)

	if err := j.encoder.Encode(entry); err != nil {
		return fmt.Errorf("journal: append seq=%d: %w", entry.Seq, err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("journal: sync seq=%d: %w", entry.Seq, err)
	}
	j.seq = entry.Seq
	return nil
}

// Replay 依序重放所有紀錄
//
// 行為：
// - 從頭讀取日誌檔案
// - 驗證每筆紀錄的 checksum
// - 呼叫 handler
// - 遇到錯誤立即停止
func (j *Journal) Replay(handler EntryHandler) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Replay(j.path, handler)
}

// Rotate 將目前的日誌改名保存，並以空白檔案重新開始
func (j *Journal) Rotate() (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return "", ErrJournalClosed
	}

	if err := j.file.Close(); err != nil {
		return "", err
	}

	backupPath := j.path + "." + j.now().Format("20060102_150405")
	if err := os.Rename(j.path, backupPath); err != nil {
		return "", err
	}

	newFile, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		j.closed = true
		return "", err
	}

	j.file = newFile
	j.encoder = json.NewEncoder(newFile)
	j.seq = 0
	return backupPath, nil
}

// LastSeq 取得目前的紀錄序號
func (j *Journal) LastSeq() uint64 {
	if j == nil {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// Close 關閉日誌，關閉後不可再使用
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// ============================================================================
// 檔案層級的工具
// ============================================================================

// Replay 重放 path 的所有紀錄；檔案不存在視為空白日誌
func Replay(path string, handler EntryHandler) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return &CorruptionError{Line: line, Cause: err}
		}
		if expected := CalculateChecksum(entry); expected != entry.Checksum {
			return &ChecksumError{Seq: entry.Seq, Expected: expected, Actual: entry.Checksum}
		}
		if err := handler(entry); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &CorruptionError{Line: line + 1, Cause: err}
	}
	return nil
}

// LastEntry 讀取 path 的最後一筆紀錄
//
// 檔案不存在時回傳 os.IsNotExist 錯誤；檔案為空時回傳 (nil, nil)。
// 中途遇到損毀時回傳最後一筆可讀的紀錄與錯誤。
func LastEntry(path string) (*Entry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var last *Entry
	err := Replay(path, func(entry Entry) error {
		e := entry
		last = &e
		return nil
	})
	return last, err
}

// Count 計算日誌中的紀錄總數
func Count(path string) (int, error) {
	n := 0
	err := Replay(path, func(Entry) error {
		n++
		return nil
	})
	return n, err
}

// Validate 驗證日誌的完整性：JSON 格式、校驗和，以及 seq 從 1 開始連續
func Validate(path string) error {
	var lastSeq uint64
	return Replay(path, func(entry Entry) error {
		if entry.Seq != lastSeq+1 {
			return fmt.Errorf("%w: seq %d follows %d", ErrCorruptedJournal, entry.Seq, lastSeq)
		}
		lastSeq = entry.Seq
		return nil
	})
}
