// Package types 定義了 talenthub 客戶端使用的核心領域模型
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role 身分角色，由遠端身分服務回報
type Role string

// 定義角色常數
const (
	RoleNone      Role = ""          // 未登入或後端回報 not_assigned
	RoleAdmin     Role = "admin"     // 管理員：檢視所有使用者、職缺、申請
	RoleEmployer  Role = "employer"  // 雇主：管理自己的職缺並審核申請者
	RoleApplicant Role = "applicant" // 申請者：瀏覽職缺並提出申請
)

// ParseRole 將遠端回報的字串轉為 Role，未知的角色一律視為 RoleNone
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleEmployer, RoleApplicant:
		return r
	default:
		return RoleNone
	}
}

// Valid 回報角色是否為三種已知角色之一
func (r Role) Valid() bool {
	return ParseRole(string(r)) != RoleNone
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// ApplicationStatus 申請狀態
type ApplicationStatus string

// 定義申請狀態常數
const (
	StatusApplied     ApplicationStatus = "applied"     // 已申請：申請者送出後的初始狀態
	StatusShortlisted ApplicationStatus = "shortlisted" // 入選：雇主標記為候選
	StatusRejected    ApplicationStatus = "rejected"    // 拒絕：雇主拒絕此申請
)

// ApplicationStatuses 申請列表可用的篩選條件，依畫面顯示順序排列
var ApplicationStatuses = []ApplicationStatus{StatusApplied, StatusShortlisted, StatusRejected}

// ParseApplicationStatus 解析申請狀態字串
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	status := ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ApplicationStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown application status %q (want applied, shortlisted or rejected)", s)
}

// Session 一次已驗證的登入狀態
//
// Role 只以最後一次成功的身分查詢為準，客戶端不驗證 token 的真偽或期限。
// VerifiedAt 讓「何時重新驗證」成為明確的策略，而不是一次性檢查的副作用。
type Session struct {
	Token      string    `json:"-"`
	Role       Role      `json:"role"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Authenticated 回報此 session 是否經過身分服務驗證
func (s Session) Authenticated() bool {
	return s.Token != "" && !s.VerifiedAt.IsZero()
}

// Fresh 回報 session 在 maxAge 內是否仍可直接信任
// maxAge <= 0 表示每次掛載都必須重新驗證
func (s Session) Fresh(now time.Time, maxAge time.Duration) bool {
	if !s.Authenticated() || maxAge <= 0 {
		return false
	}
	return now.Sub(s.VerifiedAt) < maxAge
}

// Keyed 具有伺服器端識別碼的列表項目
type Keyed interface {
	Key() int64
}

// Salary 薪資，可能缺省
//
// 後端的 DecimalField 會序列化成字串（"120000.00"），隱藏薪資時可能回傳
// "Confidential"，因此解碼同時接受數字、數字字串與 null。
type Salary struct {
	Amount float64
	Valid  bool
}

// NewSalary 建立有效的薪資值
func NewSalary(amount float64) Salary {
	return Salary{Amount: amount, Valid: true}
}

func (s Salary) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Amount)
}

func (s *Salary) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = Salary{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			// "Confidential" 等非數字字串視為缺省
			return nil
		}
		*s = NewSalary(amount)
		return nil
	}
	var amount float64
	if err := json.Unmarshal(data, &amount); err != nil {
		return fmt.Errorf("invalid salary %s: %w", data, err)
	}
	*s = NewSalary(amount)
	return nil
}

func (s Salary) MarshalYAML() (interface{}, error) {
	if !s.Valid {
		return nil, nil
	}
	return s.Amount, nil
}

func (s Salary) String() string {
	if !s.Valid {
		return "-"
	}
	return strconv.FormatFloat(s.Amount, 'f', -1, 64)
}

// Job 職缺，由雇主建立、編輯、刪除；客戶端只保留當前頁面的暫存副本
type Job struct {
	ID                 int64     `json:"id" yaml:"id"`
	Title              string    `json:"title" yaml:"title"`
	Description        string    `json:"description" yaml:"description"`
	Requirements       string    `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Salary             Salary    `json:"salary" yaml:"salary"`
	SalaryConfidential bool      `json:"salary_confidential" yaml:"salary_confidential"`
	CreatedAt          time.Time `json:"created_at" yaml:"created_at"`
	CreatedBy          string    `json:"created_by,omitempty" yaml:"created_by,omitempty"`
}

func (j Job) Key() int64 { return j.ID }

// DisplaySalary 依 salary_confidential 回傳可顯示的薪資
func (j Job) DisplaySalary() string {
	if j.SalaryConfidential {
		return "Confidential"
	}
	return j.Salary.String()
}

// JobRef 申請所指向的職缺，後端可能回傳 id 或內嵌摘要
type JobRef struct {
	ID    int64
	Title string
}

func (r JobRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

func (r JobRef) MarshalYAML() (interface{}, error) {
	return r.ID, nil
}

func (r *JobRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = JobRef{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		var summary struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(data, &summary); err != nil {
			return err
		}
		*r = JobRef{ID: summary.ID, Title: summary.Title}
		return nil
	}
	return json.Unmarshal(data, &r.ID)
}

// Application 申請紀錄，每個使用者對每個職缺只能有一筆（由伺服器保證）
type Application struct {
	ID             int64             `json:"id" yaml:"id"`
	Job            JobRef            `json:"job" yaml:"job"`
	JobTitle       string            `json:"job_title,omitempty" yaml:"job_title,omitempty"`
	JobDescription string            `json:"job_description,omitempty" yaml:"job_description,omitempty"`
	User           int64             `json:"user" yaml:"user"`
	Username       string            `json:"username,omitempty" yaml:"username,omitempty"`
	Status         ApplicationStatus `json:"status" yaml:"status"`
	AppliedAt      time.Time         `json:"applied_at" yaml:"applied_at"`
	ResumeURL      string            `json:"resume_url,omitempty" yaml:"resume_url,omitempty"`
	Resume         string            `json:"resume,omitempty" yaml:"-"`
}

func (a Application) Key() int64 { return a.ID }

// Title 回傳申請對應的職缺標題
func (a Application) Title() string {
	if a.JobTitle != "" {
		return a.JobTitle
	}
	return a.Job.Title
}

// ResumeLink 回傳履歷連結；resume_url 優先，其次為檔案欄位
func (a Application) ResumeLink() string {
	if a.ResumeURL != "" {
		return a.ResumeURL
	}
	return a.Resume
}

// User 使用者紀錄（管理員表格）
type User struct {
	ID       int64  `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
	Role     string `json:"role" yaml:"role"`
}

func (u User) Key() int64 { return u.ID }

// PageState 單一列表的分頁狀態
type PageState[T any] struct {
	Page    int  `json:"page"`     // 從 1 開始的頁碼
	Items   []T  `json:"items"`    // 目前顯示的項目
	HasNext bool `json:"has_next"` // 伺服器是否回報還有下一頁
}

// HasPrev 回報「上一頁」是否可用
func (p PageState[T]) HasPrev() bool {
	return p.Page > 1
}
