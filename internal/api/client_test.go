package api

// ============================================================================
// API Client 測試檔案
// 職責：驗證標頭、錯誤對應、分頁解碼與各端點的請求格式
// ============================================================================

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ChuLiYu/talenthub-cli/internal/fakehub"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method   string
	resource string
	code     int
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) ObserveRequest(method, resource string, code int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{method: method, resource: resource, code: code})
}

// newStubClient 建立一個指向單一 handler 的客戶端
func newStubClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/auth/", srv.URL+"/api/", srv.Client())
}

// ============================================================================
// 標頭與請求格式
// ============================================================================

// TestRequestHeaders 測試 Authorization 與 X-Request-ID
func TestRequestHeaders(t *testing.T) {
	var got http.Header
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`[]`))
	})

	ctx := WithRequestID(context.Background(), "req-123")
	_, err := client.ListJobs(ctx, "abc", JobQuery{PageQuery: PageQuery{Page: 1, PerPage: 6}})
	require.NoError(t, err)

	assert.Equal(t, "Token abc", got.Get("Authorization"))
	assert.Equal(t, "req-123", got.Get("X-Request-ID"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

// TestGeneratedRequestID 測試未提供時自動產生 request id
func TestGeneratedRequestID(t *testing.T) {
	var got string
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		w.Write([]byte(`[]`))
	})

	_, err := client.ListJobs(context.Background(), "abc", JobQuery{})
	require.NoError(t, err)
	assert.Len(t, got, 36, "expected a uuid")
}

// TestAnonymousCallsCarryNoToken 測試登入請求不帶 Authorization
func TestAnonymousCallsCarryNoToken(t *testing.T) {
	var auth string
	var body map[string]string
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "/auth/token/login/", r.URL.Path)
		payload, _ := io.ReadAll(r.Body)
		json.Unmarshal(payload, &body)
		w.Write([]byte(`{"auth_token":"t-1"}`))
	})

	token, err := client.Login(context.Background(), " alice ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "t-1", token)
	assert.Empty(t, auth)
	assert.Equal(t, "alice", body["username"])
}

// TestListQueryParameters 測試分頁與篩選參數
func TestListQueryParameters(t *testing.T) {
	var query map[string][]string
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`[]`))
	})

	_, err := client.ListJobs(context.Background(), "t", JobQuery{
		PageQuery: PageQuery{Page: 0, PerPage: 6},
		Title:     "engineer",
		Sort:      "title",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, query["page"], "page is clamped to 1")
	assert.Equal(t, []string{"6"}, query["perpage"])
	assert.Equal(t, []string{"engineer"}, query["title"])
	assert.Equal(t, []string{"title"}, query["sort"])

	_, err = client.ListUsers(context.Background(), "t", UserQuery{
		PageQuery: PageQuery{Page: 2, PerPage: 5},
		Role:      "employer",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, query["page"])
	assert.Equal(t, []string{"employer"}, query["role"])
	assert.NotContains(t, query, "username")
}

// ============================================================================
// 錯誤對應
// ============================================================================

// TestStatusMapping 測試狀態碼對應至哨兵錯誤
func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
		detail string
	}{
		{http.StatusBadRequest, `{"title":["This field is required."]}`, ErrBadRequest, "title: This field is required."},
		{http.StatusUnauthorized, `{"detail":"Invalid token."}`, ErrUnauthorized, "Invalid token."},
		{http.StatusForbidden, `{"detail":"Permission denied"}`, ErrForbidden, "Permission denied"},
		{http.StatusNotFound, `{"detail":"Not found."}`, ErrNotFound, "Not found."},
		{http.StatusInternalServerError, `<html>boom</html>`, nil, "<html>boom</html>"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.ListJobs(context.Background(), "t", JobQuery{})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.detail, apiErr.Detail)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				for _, sentinel := range []error{ErrBadRequest, ErrUnauthorized, ErrForbidden, ErrNotFound} {
					assert.NotErrorIs(t, err, sentinel)
				}
			}
		})
	}
}

// TestParseDetail 測試 DRF 錯誤格式的解析
func TestParseDetail(t *testing.T) {
	assert.Equal(t, "", parseDetail(nil))
	assert.Equal(t, "Unable to log in with provided credentials.",
		parseDetail([]byte(`{"non_field_errors":["Unable to log in with provided credentials."]}`)))
	assert.Equal(t, "email: Enter a valid email., username: taken; too short",
		parseDetail([]byte(`{"username":["taken","too short"],"email":["Enter a valid email."]}`)))
	assert.Equal(t, "status: bad", parseDetail([]byte(`{"status":"bad"}`)))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, parseDetail(long), maxDetailLen+3)
}

// TestRecorderObservesCalls 測試每次請求都會記錄指標
func TestRecorderObservesCalls(t *testing.T) {
	rec := &fakeRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	client := NewClient(srv.URL+"/auth", srv.URL+"/api", srv.Client(), WithRecorder(rec))
	err := client.DeleteJob(context.Background(), "t", 7)
	assert.ErrorIs(t, err, ErrForbidden)

	srv.Close()
	_, err = client.ListJobs(context.Background(), "t", JobQuery{})
	require.Error(t, err)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, recordedCall{method: http.MethodDelete, resource: "jobs", code: 403}, rec.calls[0])
	assert.Equal(t, 0, rec.calls[1].code, "transport failures are recorded with code 0")
}

// ============================================================================
// 分頁解碼
// ============================================================================

// TestDecodePage 測試裸陣列與信封格式的 HasNext 判定
func TestDecodePage(t *testing.T) {
	q := PageQuery{Page: 2, PerPage: 2}

	tests := []struct {
		name    string
		payload string
		items   int
		hasNext bool
		count   int
	}{
		{"empty body", ``, 0, false, -1},
		{"full array", `[{"id":1},{"id":2}]`, 2, true, -1},
		{"short array", `[{"id":1}]`, 1, false, -1},
		{"envelope next", `{"results":[{"id":3}],"next":"http://x/?page=3","count":9}`, 1, true, 9},
		{"envelope null next", `{"results":[{"id":3},{"id":4}],"next":null,"count":4}`, 2, false, 4},
		{"envelope count only", `{"results":[{"id":3},{"id":4}],"count":5}`, 2, true, 5},
		{"envelope count exhausted", `{"results":[{"id":3},{"id":4}],"count":4}`, 2, false, 4},
		{"envelope bare", `{"results":[{"id":3},{"id":4}]}`, 2, true, -1},
		{"envelope null results", `{"results":null,"next":null}`, 0, false, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := decodePage[types.Job]([]byte(tt.payload), q)
			require.NoError(t, err)
			assert.Len(t, page.Items, tt.items)
			assert.NotNil(t, page.Items)
			assert.Equal(t, tt.hasNext, page.HasNext)
			assert.Equal(t, tt.count, page.Count)
		})
	}

	_, err := decodePage[types.Job]([]byte(`[{"id":"x"}]`), q)
	assert.Error(t, err)
}

// TestDecodeBackendShapes 測試後端回傳的薪資字串與內嵌職缺
func TestDecodeBackendShapes(t *testing.T) {
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/jobs/":
			w.Write([]byte(`[
				{"id":1,"title":"Backend","salary":"120000.00","salary_confidential":false},
				{"id":2,"title":"Secret","salary":"Confidential","salary_confidential":true},
				{"id":3,"title":"Unpaid","salary":null}
			]`))
		case "/api/applications/":
			w.Write([]byte(`[
				{"id":10,"job":{"id":1,"title":"Backend"},"user":4,"status":"applied"},
				{"id":11,"job":2,"job_title":"Secret","user":4,"status":"shortlisted"}
			]`))
		}
	})

	jobs, err := client.ListJobs(context.Background(), "t", JobQuery{})
	require.NoError(t, err)
	require.Len(t, jobs.Items, 3)
	assert.Equal(t, types.NewSalary(120000), jobs.Items[0].Salary)
	assert.Equal(t, "120000", jobs.Items[0].DisplaySalary())
	assert.Equal(t, "Confidential", jobs.Items[1].DisplaySalary())
	assert.False(t, jobs.Items[2].Salary.Valid)
	assert.Equal(t, "-", jobs.Items[2].DisplaySalary())

	apps, err := client.ListApplications(context.Background(), "t", ApplicationQuery{Status: types.StatusApplied})
	require.NoError(t, err)
	require.Len(t, apps.Items, 2)
	assert.Equal(t, int64(1), apps.Items[0].Job.ID)
	assert.Equal(t, "Backend", apps.Items[0].Title())
	assert.Equal(t, int64(2), apps.Items[1].Job.ID)
	assert.Equal(t, "Secret", apps.Items[1].Title())
}

// ============================================================================
// 端點（使用 fakehub）
// ============================================================================

// TestAuthFlow 測試註冊、登入、身分查詢與登出
func TestAuthFlow(t *testing.T) {
	hub := fakehub.New(t)
	client := NewClient(hub.AuthBase(), hub.APIBase(), nil)
	ctx := context.Background()

	user, err := client.Signup(ctx, SignupRequest{
		Username: "erin", Email: "erin@example.com", Password: "pw", Role: types.RoleEmployer,
	})
	require.NoError(t, err)
	assert.Equal(t, "erin", user.Username)

	_, err = client.Signup(ctx, SignupRequest{Username: "erin", Password: "pw2"})
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = client.Login(ctx, "erin", "wrong")
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = client.Login(ctx, "", "pw")
	assert.ErrorIs(t, err, ErrBadRequest)

	token, err := client.Login(ctx, "erin", "pw")
	require.NoError(t, err)

	me, err := client.Me(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, types.RoleEmployer, types.ParseRole(me.Role))

	require.NoError(t, client.Logout(ctx, token))
	_, err = client.Me(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = client.Me(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NoError(t, client.Logout(ctx, ""))
}

// TestJobLifecycle 測試職缺建立、更新、刪除
func TestJobLifecycle(t *testing.T) {
	hub := fakehub.New(t)
	client := NewClient(hub.AuthBase(), hub.APIBase(), nil)
	ctx := context.Background()
	_, token := hub.AddUser("erin", "pw", types.RoleEmployer)

	_, err := client.CreateJob(ctx, token, JobInput{Title: "  "})
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = client.CreateJob(ctx, token, JobInput{Title: "X", Salary: types.NewSalary(-1)})
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Zero(t, hub.CallCount("POST /api/jobs/"), "invalid input never reaches the service")

	job, err := client.CreateJob(ctx, token, JobInput{Title: "Backend Engineer", Salary: types.NewSalary(120000)})
	require.NoError(t, err)
	assert.NotZero(t, job.ID)
	assert.Equal(t, "erin", job.CreatedBy)

	in := InputFromJob(job)
	in.Title = "Senior Backend Engineer"
	updated, err := client.UpdateJob(ctx, token, job.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Senior Backend Engineer", updated.Title)
	assert.Equal(t, types.NewSalary(120000), updated.Salary)

	require.NoError(t, client.DeleteJob(ctx, token, job.ID))
	assert.ErrorIs(t, client.DeleteJob(ctx, token, job.ID), ErrNotFound)
}

// TestApplicationLifecycle 測試申請與審核
func TestApplicationLifecycle(t *testing.T) {
	hub := fakehub.New(t)
	client := NewClient(hub.AuthBase(), hub.APIBase(), nil)
	ctx := context.Background()
	employer, employerToken := hub.AddUser("erin", "pw", types.RoleEmployer)
	applicant, applicantToken := hub.AddUser("alice", "pw", types.RoleApplicant)
	job := hub.AddJob(employer.ID, types.Job{Title: "Backend"})

	app, err := client.CreateApplication(ctx, applicantToken, job.ID, applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApplied, app.Status)
	assert.Equal(t, job.ID, app.Job.ID)

	_, err = client.CreateApplication(ctx, applicantToken, job.ID, applicant.ID)
	assert.ErrorIs(t, err, ErrBadRequest, "duplicates are rejected by the service")

	_, err = client.UpdateApplicationStatus(ctx, employerToken, app.ID, "hired")
	assert.ErrorIs(t, err, ErrBadRequest)

	reviewed, err := client.UpdateApplicationStatus(ctx, employerToken, app.ID, types.StatusShortlisted)
	require.NoError(t, err)
	assert.Equal(t, types.StatusShortlisted, reviewed.Status)

	page, err := client.ListApplications(ctx, applicantToken, ApplicationQuery{
		PageQuery: PageQuery{Page: 1, PerPage: 6},
		Status:    types.StatusShortlisted,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, app.ID, page.Items[0].ID)

	_, err = client.ListUsers(ctx, applicantToken, UserQuery{})
	assert.ErrorIs(t, err, ErrForbidden)
}

// TestEnvelopePaging 測試信封格式下 next 的判定
func TestEnvelopePaging(t *testing.T) {
	hub := fakehub.New(t)
	hub.Envelope = true
	client := NewClient(hub.AuthBase(), hub.APIBase(), nil)
	employer, token := hub.AddUser("erin", "pw", types.RoleEmployer)
	for i := 0; i < 4; i++ {
		hub.AddJob(employer.ID, types.Job{Title: "job"})
	}

	first, err := client.ListJobs(context.Background(), token, JobQuery{PageQuery: PageQuery{Page: 1, PerPage: 2}})
	require.NoError(t, err)
	assert.True(t, first.HasNext)
	assert.Equal(t, 4, first.Count)

	last, err := client.ListJobs(context.Background(), token, JobQuery{PageQuery: PageQuery{Page: 2, PerPage: 2}})
	require.NoError(t, err)
	assert.Len(t, last.Items, 2)
	assert.False(t, last.HasNext, "an exactly full last page has no successor when next is reported")
}
