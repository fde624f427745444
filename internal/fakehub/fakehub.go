// Package fakehub is an in-memory stand-in for the TalentHub REST service,
// used by tests of the api client, the session resolver and the dashboards.
//
// It follows the original service's behavior: token auth, role-scoped
// application lists, Django style paging (a page past the end is an empty
// list) and DRF style error bodies.
package fakehub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

type account struct {
	user     types.User
	password string
}

// Server is a fake TalentHub service.
type Server struct {
	mu       sync.Mutex
	accounts map[int64]*account
	tokens   map[string]int64
	jobs     []types.Job // newest first
	owners   map[int64]int64
	apps     []types.Application // newest first
	nextID   int64
	failures map[string][]int
	calls    []string

	// Envelope switches list responses from bare arrays to
	// {"results": [...], "next": ..., "count": N}.
	Envelope bool

	srv *httptest.Server
}

// New starts a fake service that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[int64]*account),
		tokens:   make(map[string]int64),
		owners:   make(map[int64]int64),
		failures: make(map[string][]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token/login/{$}", s.login)
	mux.HandleFunc("POST /auth/token/logout/{$}", s.logout)
	mux.HandleFunc("POST /auth/users/{$}", s.signup)
	mux.HandleFunc("GET /auth/users/me/{$}", s.me)
	mux.HandleFunc("GET /api/jobs/{$}", s.listJobs)
	mux.HandleFunc("POST /api/jobs/{$}", s.createJob)
	mux.HandleFunc("PUT /api/jobs/{id}/{$}", s.updateJob)
	mux.HandleFunc("DELETE /api/jobs/{id}/{$}", s.deleteJob)
	mux.HandleFunc("GET /api/applications/{$}", s.listApplications)
	mux.HandleFunc("POST /api/applications/{$}", s.createApplication)
	mux.HandleFunc("PATCH /api/applications/{id}/{$}", s.reviewApplication)
	mux.HandleFunc("GET /api/admin/users/{$}", s.listUsers)

	s.srv = httptest.NewServer(s.intercept(mux))
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the root of the fake service.
func (s *Server) URL() string { return s.srv.URL }

// AuthBase is the base URL of the auth endpoints.
func (s *Server) AuthBase() string { return s.srv.URL + "/auth" }

// APIBase is the base URL of the api endpoints.
func (s *Server) APIBase() string { return s.srv.URL + "/api" }

// AddUser registers an account and returns it with a valid token.
func (s *Server) AddUser(username, password string, role types.Role) (types.User, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.addUserLocked(username, "", password, string(role))
	return user, s.issueTokenLocked(user.ID)
}

// AddJob stores a job owned by ownerID and returns it with its id.
func (s *Server) AddJob(ownerID int64, job types.Job) types.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addJobLocked(ownerID, job)
}

// AddApplication stores an application of userID to jobID.
func (s *Server) AddApplication(jobID, userID int64, status types.ApplicationStatus) types.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addApplicationLocked(jobID, userID, status)
}

// Fail makes the next request whose "METHOD /path" starts with prefix answer
// with status instead of being served. Calls stack in FIFO order.
func (s *Server) Fail(prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = append(s.failures[prefix], status)
}

// Calls returns the "METHOD /path?query" of every request received.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount counts received requests whose "METHOD /path?query" starts with prefix.
func (s *Server) CallCount(prefix string) int {
	count := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c, prefix) {
			count++
		}
	}
	return count
}

// Jobs returns the stored jobs, newest first.
func (s *Server) Jobs() []types.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Job(nil), s.jobs...)
}

// Applications returns the stored applications, newest first.
func (s *Server) Applications() []types.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Application(nil), s.apps...)
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		line := r.Method + " " + r.URL.Path
		if r.URL.RawQuery != "" {
			line += "?" + r.URL.RawQuery
		}
		s.mu.Lock()
		s.calls = append(s.calls, line)
		status := 0
		for prefix, queued := range s.failures {
			if len(queued) > 0 && strings.HasPrefix(line, prefix) {
				status = queued[0]
				s.failures[prefix] = queued[1:]
				break
			}
		}
		s.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"detail": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ============================================================================
// auth
// ============================================================================

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.Username == req.Username && acc.password == req.Password {
			writeJSON(w, http.StatusOK, map[string]string{"auth_token": s.issueTokenLocked(acc.user.ID)})
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string][]string{
		"non_field_errors": {"Unable to log in with provided credentials."},
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authenticateLocked(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
		return
	}
	delete(s.tokens, tokenOf(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.Username == req.Username {
			writeJSON(w, http.StatusBadRequest, map[string][]string{
				"username": {"A user with that username already exists."},
			})
			return
		}
	}
	if req.Role == "" {
		req.Role = "not_assigned"
	}
	writeJSON(w, http.StatusCreated, s.addUserLocked(req.Username, req.Email, req.Password, req.Role))
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.authenticateLocked(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ============================================================================
// jobs
// ============================================================================

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requireRoleLocked(w, r, "admin", "employer", "applicant"); !ok {
		return
	}
	title := strings.ToLower(r.URL.Query().Get("title"))
	jobs := make([]types.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if title == "" || strings.Contains(strings.ToLower(job.Title), title) {
			jobs = append(jobs, job)
		}
	}
	switch r.URL.Query().Get("sort") {
	case "title":
		sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Title < jobs[j].Title })
	case "id":
		sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	}
	s.writePageLocked(w, r, jobs, 6)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.requireRoleLocked(w, r, "admin", "employer")
	if !ok {
		return
	}
	var job types.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil || strings.TrimSpace(job.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"title": {"This field is required."}})
		return
	}
	writeJSON(w, http.StatusCreated, s.addJobLocked(user.ID, job))
}

func (s *Server) updateJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.requireRoleLocked(w, r, "admin", "employer")
	if !ok {
		return
	}
	idx, ok := s.jobIndexLocked(w, r)
	if !ok {
		return
	}
	job := s.jobs[idx]
	if s.owners[job.ID] != user.ID && user.Role != "admin" {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Permission denied"})
		return
	}
	var in types.Job
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"title": {"This field is required."}})
		return
	}
	job.Title = in.Title
	job.Description = in.Description
	job.Requirements = in.Requirements
	job.Salary = in.Salary
	job.SalaryConfidential = in.SalaryConfidential
	s.jobs[idx] = job
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.requireRoleLocked(w, r, "admin", "employer")
	if !ok {
		return
	}
	idx, ok := s.jobIndexLocked(w, r)
	if !ok {
		return
	}
	job := s.jobs[idx]
	if s.owners[job.ID] != user.ID && user.Role != "admin" {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Permission denied"})
		return
	}
	s.jobs = append(s.jobs[:idx], s.jobs[idx+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Job successfully deleted"})
}

// ============================================================================
// applications
// ============================================================================

func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.requireRoleLocked(w, r, "admin", "employer", "applicant")
	if !ok {
		return
	}
	status := strings.ToLower(r.URL.Query().Get("status"))
	apps := make([]types.Application, 0, len(s.apps))
	for _, app := range s.apps {
		switch user.Role {
		case "applicant":
			if app.User != user.ID {
				continue
			}
		case "employer":
			if s.owners[app.Job.ID] != user.ID {
				continue
			}
		}
		if status != "" && string(app.Status) != status {
			continue
		}
		apps = append(apps, app)
	}
	s.writePageLocked(w, r, apps, 6)
}

func (s *Server) createApplication(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.requireRoleLocked(w, r, "applicant")
	if !ok {
		return
	}
	var req struct {
		Job int64 `json:"job"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	found := false
	for _, job := range s.jobs {
		if job.ID == req.Job {
			found = true
			break
		}
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	for _, app := range s.apps {
		if app.Job.ID == req.Job && app.User == user.ID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "You have already applied to this job"})
			return
		}
	}
	writeJSON(w, http.StatusCreated, s.addApplicationLocked(req.Job, user.ID, types.StatusApplied))
}

func (s *Server) reviewApplication(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.requireRoleLocked(w, r, "admin", "employer")
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	status, err := types.ParseApplicationStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid status."})
		return
	}
	for i, app := range s.apps {
		if app.ID != id {
			continue
		}
		if s.owners[app.Job.ID] != user.ID && user.Role != "admin" {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Permission denied"})
			return
		}
		s.apps[i].Status = status
		writeJSON(w, http.StatusOK, s.apps[i])
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

// ============================================================================
// admin
// ============================================================================

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requireRoleLocked(w, r, "admin"); !ok {
		return
	}
	q := r.URL.Query()
	users := make([]types.User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		u := acc.user
		if v := q.Get("username"); v != "" && !strings.Contains(strings.ToLower(u.Username), strings.ToLower(v)) {
			continue
		}
		if v := q.Get("email"); v != "" && !strings.Contains(strings.ToLower(u.Email), strings.ToLower(v)) {
			continue
		}
		if v := q.Get("role"); v != "" && !strings.EqualFold(u.Role, v) {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	s.writePageLocked(w, r, users, 10)
}

// ============================================================================
// helpers (callers hold s.mu)
// ============================================================================

func (s *Server) addUserLocked(username, email, password, role string) types.User {
	s.nextID++
	if email == "" {
		email = username + "@example.com"
	}
	user := types.User{ID: s.nextID, Username: username, Email: email, Role: role}
	s.accounts[user.ID] = &account{user: user, password: password}
	return user
}

func (s *Server) issueTokenLocked(userID int64) string {
	s.nextID++
	token := fmt.Sprintf("tok-%d-%d", userID, s.nextID)
	s.tokens[token] = userID
	return token
}

func (s *Server) addJobLocked(ownerID int64, job types.Job) types.Job {
	s.nextID++
	job.ID = s.nextID
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	if acc, ok := s.accounts[ownerID]; ok {
		job.CreatedBy = acc.user.Username
	}
	s.owners[job.ID] = ownerID
	s.jobs = append([]types.Job{job}, s.jobs...)
	return job
}

func (s *Server) addApplicationLocked(jobID, userID int64, status types.ApplicationStatus) types.Application {
	s.nextID++
	app := types.Application{
		ID:        s.nextID,
		Job:       types.JobRef{ID: jobID},
		User:      userID,
		Status:    status,
		AppliedAt: time.Now().UTC().Truncate(time.Second),
	}
	for _, job := range s.jobs {
		if job.ID == jobID {
			app.JobTitle = job.Title
			app.JobDescription = job.Description
		}
	}
	if acc, ok := s.accounts[userID]; ok {
		app.Username = acc.user.Username
		app.ResumeURL = "https://files.example.com/resumes/" + acc.user.Username + ".pdf"
	}
	s.apps = append([]types.Application{app}, s.apps...)
	return app
}

func tokenOf(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Token ")
}

func (s *Server) authenticateLocked(r *http.Request) (types.User, bool) {
	userID, ok := s.tokens[tokenOf(r)]
	if !ok {
		return types.User{}, false
	}
	acc, ok := s.accounts[userID]
	if !ok {
		return types.User{}, false
	}
	return acc.user, true
}

func (s *Server) requireRoleLocked(w http.ResponseWriter, r *http.Request, roles ...string) (types.User, bool) {
	user, ok := s.authenticateLocked(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
		return types.User{}, false
	}
	for _, role := range roles {
		if user.Role == role {
			return user, true
		}
	}
	writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Permission denied"})
	return types.User{}, false
}

func (s *Server) jobIndexLocked(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err == nil {
		for i, job := range s.jobs {
			if job.ID == id {
				return i, true
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	return 0, false
}

func writePage[T any](w http.ResponseWriter, r *http.Request, items []T, defaultPerPage int, envelope bool) {
	q := r.URL.Query()
	perPage := defaultPerPage
	if v, err := strconv.Atoi(q.Get("perpage")); err == nil && v > 0 {
		perPage = v
	}
	page := 1
	if v := q.Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid page."})
			return
		}
		page = parsed
	}

	out := []T{}
	start := (page - 1) * perPage
	if page >= 1 && start < len(items) {
		end := start + perPage
		if end > len(items) {
			end = len(items)
		}
		out = items[start:end]
	}

	if !envelope {
		writeJSON(w, http.StatusOK, out)
		return
	}
	var next *string
	if page >= 1 && page*perPage < len(items) {
		link := fmt.Sprintf("%s?page=%d&perpage=%d", r.URL.Path, page+1, perPage)
		next = &link
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(items),
		"next":    next,
		"results": out,
	})
}

func (s *Server) writePageLocked(w http.ResponseWriter, r *http.Request, items any, defaultPerPage int) {
	switch v := items.(type) {
	case []types.Job:
		writePage(w, r, v, defaultPerPage, s.Envelope)
	case []types.Application:
		writePage(w, r, v, defaultPerPage, s.Envelope)
	case []types.User:
		writePage(w, r, v, defaultPerPage, s.Envelope)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
