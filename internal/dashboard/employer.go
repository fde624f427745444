package dashboard

import (
	"context"
	"fmt"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/ChuLiYu/talenthub-cli/internal/guard"
	"github.com/ChuLiYu/talenthub-cli/internal/journal"
	"github.com/ChuLiYu/talenthub-cli/internal/pager"
	"github.com/ChuLiYu/talenthub-cli/internal/panel"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

// EmployerView is the employer dashboard: the job list with its form panel
// and the read-only applicant table.
type EmployerView struct {
	Session    types.Session
	Jobs       *pager.Fetcher[types.Job, JobFilter]
	Applicants *pager.Fetcher[types.Application, types.ApplicationStatus]
	JobPanel   *panel.Panel[types.Job, api.JobInput]

	app *App
}

// OpenEmployer mounts the employer dashboard. No list is loaded yet.
func (a *App) OpenEmployer(ctx context.Context) (*EmployerView, error) {
	sess, err := a.mount(ctx, guard.RouteEmployer)
	if err != nil {
		return nil, err
	}

	jobs := pager.New("employer.jobs", a.jobSource(sess.Token), a.cfg.JobsPerPage, JobFilter{}, pager.WithRecorder(a.recorder))
	opts := []panel.Option{panel.WithRecorder(a.recorder)}
	if a.journal != nil {
		opts = append(opts, panel.WithJournal(a.journal))
	}
	return &EmployerView{
		Session:    sess,
		Jobs:       jobs,
		Applicants: pager.New("employer.applicants", a.applicationSource(sess.Token), a.cfg.ApplicantsPerPage, types.ApplicationStatus(""), pager.WithRecorder(a.recorder)),
		JobPanel:   panel.New[types.Job, api.JobInput]("job", jobResource{client: a.client, token: sess.Token}, jobs, a.notifier, a.confirmer, opts...),
		app:        a,
	}, nil
}

// Refresh loads the job list and the applicant table concurrently.
func (v *EmployerView) Refresh(ctx context.Context) error {
	return v.app.refresh(ctx,
		v.app.loadTask(v.Jobs.Resource(), v.Jobs.Load),
		v.app.loadTask(v.Applicants.Resource(), v.Applicants.Load),
	)
}

// Close cancels in-flight loads.
func (v *EmployerView) Close() {
	v.Jobs.Close()
	v.Applicants.Close()
}

// Resume returns the resume link carried by an application on the current
// applicant page. Nothing is fetched.
func (v *EmployerView) Resume(id int64) (string, error) {
	app, ok := findByKey(v.Applicants.State().Items, id)
	if !ok {
		return "", fmt.Errorf("application %d: %w", id, ErrNotOnPage)
	}
	link := app.ResumeLink()
	if link == "" {
		v.app.notifier.Error(MsgNoResume)
		return "", fmt.Errorf("application %d: %w", id, ErrNoResume)
	}
	return link, nil
}

// Review sets the status of an application and patches the applicant row.
func (v *EmployerView) Review(ctx context.Context, id int64, status types.ApplicationStatus) (types.Application, error) {
	app, err := v.app.client.UpdateApplicationStatus(ctx, v.Session.Token, id, status)
	v.app.recorder.RecordMutation(journal.KindReview, err)
	if err != nil {
		log.Warn("review failed", "application", id, "status", status, "error", err)
		v.app.notifier.Error(MsgReviewFailed)
		return app, fmt.Errorf("review application %d: %w", id, err)
	}

	v.Applicants.Mutate(func(items []types.Application) []types.Application {
		for i := range items {
			if items[i].ID == id {
				items[i] = app
			}
		}
		return items
	})
	v.app.record(ctx, journal.KindReview, id, app)
	v.app.notifier.Success(fmt.Sprintf("Application marked as %s", app.Status))
	return app, nil
}

// jobResource adapts the api client to panel.Resource for one token.
type jobResource struct {
	client *api.Client
	token  string
}

func (r jobResource) Create(ctx context.Context, in api.JobInput) (types.Job, error) {
	return r.client.CreateJob(ctx, r.token, in)
}

func (r jobResource) Update(ctx context.Context, id int64, in api.JobInput) (types.Job, error) {
	return r.client.UpdateJob(ctx, r.token, id, in)
}

func (r jobResource) Delete(ctx context.Context, id int64) error {
	return r.client.DeleteJob(ctx, r.token, id)
}

func findByKey[T types.Keyed](items []T, id int64) (T, bool) {
	for _, item := range items {
		if item.Key() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}
