package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ChuLiYu/talenthub-cli/internal/panel"
)

// prompter 從 stdin 讀取回答（確認、密碼）
type prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// readLine 印出 label 並讀取一行；輸入結束且沒有內容時回傳 io.EOF
func (p *prompter) readLine(label string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirmer 回傳阻塞式確認；assumeYes 時一律同意
func (p *prompter) confirmer(assumeYes bool) panel.Confirmer {
	if assumeYes {
		return panel.AutoConfirm
	}
	return panel.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		answer, err := p.readLine(prompt + " [y/N]: ")
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}
