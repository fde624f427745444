package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ChuLiYu/talenthub-cli/pkg/types"
	"gopkg.in/yaml.v3"
)

// 輸出格式
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// renderer 依 --output 輸出資料
type renderer struct {
	format string
	out    io.Writer
}

func newRenderer(format string, out io.Writer) (*renderer, error) {
	switch strings.ToLower(format) {
	case "", formatTable:
		return &renderer{format: formatTable, out: out}, nil
	case formatJSON, formatYAML:
		return &renderer{format: strings.ToLower(format), out: out}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// emit 以 JSON/YAML 輸出 value；表格格式時呼叫 table
func (r *renderer) emit(value any, table func(w io.Writer)) error {
	switch r.format {
	case formatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case formatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

// message 輸出一行訊息（表格格式）或 {"message": ...}
func (r *renderer) message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return r.emit(map[string]string{"message": msg}, func(w io.Writer) {
		fmt.Fprintln(w, msg)
	})
}

// pageView 分頁列表的輸出結構
type pageView[T any] struct {
	Page    int    `json:"page" yaml:"page"`
	HasPrev bool   `json:"has_prev" yaml:"has_prev"`
	HasNext bool   `json:"has_next" yaml:"has_next"`
	Items   []T    `json:"items" yaml:"items"`
	Empty   string `json:"empty_message,omitempty" yaml:"empty_message,omitempty"`
}

func newPageView[T any](state types.PageState[T], empty string) pageView[T] {
	v := pageView[T]{Page: state.Page, HasPrev: state.HasPrev(), HasNext: state.HasNext, Items: state.Items}
	if len(state.Items) == 0 {
		v.Empty = empty
		v.HasPrev, v.HasNext = false, false
	}
	return v
}

func footer[T any](w io.Writer, v pageView[T]) {
	if len(v.Items) == 0 {
		fmt.Fprintln(w, v.Empty)
	}
	fmt.Fprintf(w, "\nPage %d\t%s\t%s\n", v.Page, control("Previous", v.HasPrev), control("Next", v.HasNext))
}

func control(label string, enabled bool) string {
	if enabled {
		return "[" + label + "]"
	}
	return "(" + label + ")"
}

// jobRow 職缺列表的一列；Applied 只在申請者畫面有意義
type jobRow struct {
	types.Job `yaml:",inline"`
	Applied   bool `json:"applied,omitempty" yaml:"applied,omitempty"`
}

func (r *renderer) jobs(state types.PageState[types.Job], applied func(id int64) bool) error {
	rows := make([]jobRow, len(state.Items))
	for i, job := range state.Items {
		rows[i] = jobRow{Job: job}
		if applied != nil {
			rows[i].Applied = applied(job.ID)
		}
	}
	view := newPageView(types.PageState[jobRow]{Page: state.Page, Items: rows, HasNext: state.HasNext}, "No jobs found.")
	return r.emit(view, func(w io.Writer) {
		if len(rows) > 0 {
			header := "ID\tTITLE\tSALARY\tPOSTED"
			if applied != nil {
				header += "\tAPPLIED"
			}
			fmt.Fprintln(w, header)
		}
		for _, row := range rows {
			line := fmt.Sprintf("%d\t%s\t%s\t%s", row.ID, row.Title, row.DisplaySalary(), date(row.CreatedAt))
			if applied != nil {
				line += "\t" + yesNo(row.Applied)
			}
			fmt.Fprintln(w, line)
		}
		footer(w, view)
	})
}

func (r *renderer) applications(state types.PageState[types.Application], empty string) error {
	view := newPageView(state, empty)
	return r.emit(view, func(w io.Writer) {
		if len(view.Items) > 0 {
			fmt.Fprintln(w, "ID\tJOB\tAPPLICANT\tSTATUS\tAPPLIED AT")
		}
		for _, app := range view.Items {
			title := app.Title()
			if title == "" {
				title = fmt.Sprintf("Job #%d", app.Job.ID)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", app.ID, title, orNA(app.Username), orNA(string(app.Status)), date(app.AppliedAt))
		}
		footer(w, view)
	})
}

func (r *renderer) users(state types.PageState[types.User]) error {
	view := newPageView(state, "No users found.")
	return r.emit(view, func(w io.Writer) {
		if len(view.Items) > 0 {
			fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE")
		}
		for _, u := range view.Items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, orNA(u.Email), orNA(u.Role))
		}
		footer(w, view)
	})
}

// sessionView 不包含 token
type sessionView struct {
	UserID     int64      `json:"user_id" yaml:"user_id"`
	Username   string     `json:"username" yaml:"username"`
	Role       types.Role `json:"role" yaml:"role"`
	VerifiedAt time.Time  `json:"verified_at" yaml:"verified_at"`
}

func (r *renderer) session(sess types.Session) error {
	view := sessionView{UserID: sess.UserID, Username: sess.Username, Role: sess.Role, VerifiedAt: sess.VerifiedAt}
	return r.emit(view, func(w io.Writer) {
		fmt.Fprintf(w, "User:\t%s (id %d)\n", sess.Username, sess.UserID)
		fmt.Fprintf(w, "Role:\t%s\n", sess.Role)
		fmt.Fprintf(w, "Verified:\t%s\n", sess.VerifiedAt.Format(time.RFC3339))
	})
}

func date(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("2006-01-02")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
