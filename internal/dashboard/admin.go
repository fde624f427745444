package dashboard

import (
	"context"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/ChuLiYu/talenthub-cli/internal/guard"
	"github.com/ChuLiYu/talenthub-cli/internal/pager"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

// UserFilter 管理員使用者表格的篩選條件
type UserFilter struct {
	Username string
	Email    string
	Role     string
}

// JobFilter 職缺列表的篩選與排序
type JobFilter struct {
	Title string
	Sort  string
}

// AdminView 管理員儀表板：三個互不相依的唯讀表格
type AdminView struct {
	Session      types.Session
	Users        *pager.Fetcher[types.User, UserFilter]
	Jobs         *pager.Fetcher[types.Job, JobFilter]
	Applications *pager.Fetcher[types.Application, types.ApplicationStatus]

	app *App
}

// OpenAdmin 掛載管理員儀表板；尚未載入任何列表
func (a *App) OpenAdmin(ctx context.Context) (*AdminView, error) {
	sess, err := a.mount(ctx, guard.RouteAdmin)
	if err != nil {
		return nil, err
	}
	perPage := a.cfg.AdminPerPage
	return &AdminView{
		Session:      sess,
		Users:        pager.New("admin.users", a.userSource(sess.Token), perPage, UserFilter{}, pager.WithRecorder(a.recorder)),
		Jobs:         pager.New("admin.jobs", a.jobSource(sess.Token), perPage, JobFilter{}, pager.WithRecorder(a.recorder)),
		Applications: pager.New("admin.applications", a.applicationSource(sess.Token), perPage, types.ApplicationStatus(""), pager.WithRecorder(a.recorder)),
		app:          a,
	}, nil
}

// Refresh 並行載入三個表格
func (v *AdminView) Refresh(ctx context.Context) error {
	return v.app.refresh(ctx,
		v.app.loadTask(v.Users.Resource(), v.Users.Load),
		v.app.loadTask(v.Jobs.Resource(), v.Jobs.Load),
		v.app.loadTask(v.Applications.Resource(), v.Applications.Load),
	)
}

// Close 取消尚未完成的載入
func (v *AdminView) Close() {
	v.Users.Close()
	v.Jobs.Close()
	v.Applications.Close()
}

// ============================================================================
// 列表來源（管理員、雇主、申請者共用）
// ============================================================================

func (a *App) userSource(token string) pager.Source[types.User, UserFilter] {
	return pager.SourceFunc[types.User, UserFilter](func(ctx context.Context, page, perPage int, f UserFilter) (api.Page[types.User], error) {
		return a.client.ListUsers(ctx, token, api.UserQuery{
			PageQuery: api.PageQuery{Page: page, PerPage: perPage},
			Username:  f.Username,
			Email:     f.Email,
			Role:      f.Role,
		})
	})
}

func (a *App) jobSource(token string) pager.Source[types.Job, JobFilter] {
	return pager.SourceFunc[types.Job, JobFilter](func(ctx context.Context, page, perPage int, f JobFilter) (api.Page[types.Job], error) {
		return a.client.ListJobs(ctx, token, api.JobQuery{
			PageQuery: api.PageQuery{Page: page, PerPage: perPage},
			Title:     f.Title,
			Sort:      f.Sort,
		})
	})
}

func (a *App) applicationSource(token string) pager.Source[types.Application, types.ApplicationStatus] {
	return pager.SourceFunc[types.Application, types.ApplicationStatus](func(ctx context.Context, page, perPage int, status types.ApplicationStatus) (api.Page[types.Application], error) {
		return a.client.ListApplications(ctx, token, api.ApplicationQuery{
			PageQuery: api.PageQuery{Page: page, PerPage: perPage},
			Status:    status,
		})
	})
}
