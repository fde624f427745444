package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/ChuLiYu/talenthub-cli/internal/guard"
	"github.com/ChuLiYu/talenthub-cli/internal/journal"
	"github.com/ChuLiYu/talenthub-cli/internal/pager"
	"github.com/ChuLiYu/talenthub-cli/internal/panel"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

// AppliedCheck selects how Apply decides that a job was already applied to.
// The service rejects duplicates either way.
type AppliedCheck int

const (
	// CheckLoadedPage looks only at the applications on the current page and
	// at the jobs applied to through this view.
	CheckLoadedPage AppliedCheck = iota
	// CheckFullHistory also walks every page of the applicant's applications,
	// across all statuses, before applying.
	CheckFullHistory
)

// maxHistoryPages bounds the CheckFullHistory walk.
const maxHistoryPages = 50

// ParseAppliedCheck parses "page" or "history".
func ParseAppliedCheck(s string) (AppliedCheck, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "page", "loaded_page":
		return CheckLoadedPage, nil
	case "", "history", "full_history":
		return CheckFullHistory, nil
	default:
		return CheckLoadedPage, fmt.Errorf("unknown applied check %q (want page or history)", s)
	}
}

func (c AppliedCheck) String() string {
	if c == CheckFullHistory {
		return "history"
	}
	return "page"
}

// ApplicantView is the applicant dashboard: the job list and the applicant's
// own applications filtered by status.
type ApplicantView struct {
	Session      types.Session
	Jobs         *pager.Fetcher[types.Job, JobFilter]
	Applications *pager.Fetcher[types.Application, types.ApplicationStatus]

	app     *App
	mu      sync.Mutex
	applied map[int64]bool
}

// OpenApplicant mounts the applicant dashboard. The applications list starts
// on the applied filter. No list is loaded yet.
func (a *App) OpenApplicant(ctx context.Context) (*ApplicantView, error) {
	sess, err := a.mount(ctx, guard.RouteApplicant)
	if err != nil {
		return nil, err
	}
	return &ApplicantView{
		Session:      sess,
		Jobs:         pager.New("applicant.jobs", a.jobSource(sess.Token), a.cfg.JobsPerPage, JobFilter{}, pager.WithRecorder(a.recorder)),
		Applications: pager.New("applicant.applications", a.applicationSource(sess.Token), a.cfg.ApplicationsPerPage, types.StatusApplied, pager.WithRecorder(a.recorder)),
		app:          a,
		applied:      make(map[int64]bool),
	}, nil
}

// Refresh loads the job list and the applications list concurrently.
func (v *ApplicantView) Refresh(ctx context.Context) error {
	return v.app.refresh(ctx,
		v.app.loadTask(v.Jobs.Resource(), v.Jobs.Load),
		v.app.loadTask(v.Applications.Resource(), v.Applications.Load),
	)
}

// Close cancels in-flight loads.
func (v *ApplicantView) Close() {
	v.Jobs.Close()
	v.Applications.Close()
}

// SetStatus switches the applications filter and goes back to page 1.
func (v *ApplicantView) SetStatus(ctx context.Context, status types.ApplicationStatus) error {
	if _, err := types.ParseApplicationStatus(string(status)); err != nil {
		return err
	}
	return v.Applications.SetFilter(ctx, status)
}

// EmptyMessage returns the placeholder shown for an empty applications list,
// or "" when the list has items.
func (v *ApplicantView) EmptyMessage() string {
	if len(v.Applications.State().Items) > 0 {
		return ""
	}
	return fmt.Sprintf("No %s applications found.", v.Applications.Filter())
}

// Controls reports whether the Previous and Next controls of the
// applications list are enabled. Both are disabled on an empty list.
func (v *ApplicantView) Controls() (prev, next bool) {
	state := v.Applications.State()
	if len(state.Items) == 0 {
		return false, false
	}
	return state.HasPrev(), state.HasNext
}

// IsApplied reports whether jobID is known to be applied to, from the
// applications on the current page or the applications made in this view.
func (v *ApplicantView) IsApplied(jobID int64) bool {
	v.mu.Lock()
	marked := v.applied[jobID]
	v.mu.Unlock()
	if marked {
		return true
	}
	for _, app := range v.Applications.State().Items {
		if app.Job.ID == jobID {
			return true
		}
	}
	return false
}

// Apply submits an application of the session user to jobID after a
// confirmation. On success the application is added once to the list when
// the applied filter is shown, and the job is marked applied.
func (v *ApplicantView) Apply(ctx context.Context, jobID int64) (types.Application, error) {
	if v.Session.UserID == 0 {
		v.app.notifier.Error(MsgUserNotLoaded)
		return types.Application{}, ErrUserNotLoaded
	}

	applied, err := v.alreadyApplied(ctx, jobID)
	if err != nil {
		return types.Application{}, err
	}
	if applied {
		v.app.notifier.Error(MsgAlreadyApplied)
		return types.Application{}, fmt.Errorf("job %d: %w", jobID, ErrAlreadyApplied)
	}

	title := "this job"
	if job, ok := findByKey(v.Jobs.State().Items, jobID); ok && job.Title != "" {
		title = job.Title
	}
	ok, err := v.app.confirmer.Confirm(ctx, fmt.Sprintf("Are you sure you want to apply for \"%s\"?", title))
	if err != nil {
		return types.Application{}, fmt.Errorf("confirm apply: %w", err)
	}
	if !ok {
		return types.Application{}, panel.ErrDeclined
	}

	app, err := v.app.client.CreateApplication(ctx, v.Session.Token, jobID, v.Session.UserID)
	v.app.recorder.RecordMutation(journal.KindApply, err)
	if err != nil {
		log.Warn("apply failed", "job", jobID, "error", err)
		v.app.notifier.Error(MsgApplyFailed)
		return app, fmt.Errorf("apply to job %d: %w", jobID, err)
	}

	v.mu.Lock()
	v.applied[jobID] = true
	v.mu.Unlock()
	if v.Applications.Filter() == types.StatusApplied {
		v.Applications.Mutate(func(items []types.Application) []types.Application {
			if _, exists := findByKey(items, app.ID); exists {
				return items
			}
			return append(items, app)
		})
	}
	v.app.record(ctx, journal.KindApply, app.ID, app)
	v.app.notifier.Success(MsgApplied)
	return app, nil
}

// alreadyApplied applies the configured AppliedCheck. A failed history walk
// is logged and treated as not applied; the service still refuses duplicates.
func (v *ApplicantView) alreadyApplied(ctx context.Context, jobID int64) (bool, error) {
	if v.IsApplied(jobID) {
		return true, nil
	}
	if v.app.cfg.AppliedCheck != CheckFullHistory {
		return false, nil
	}

	for page := 1; page <= maxHistoryPages; page++ {
		result, err := v.app.client.ListApplications(ctx, v.Session.Token, api.ApplicationQuery{
			PageQuery: api.PageQuery{Page: page, PerPage: v.app.cfg.ApplicationsPerPage},
		})
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			log.Warn("application history walk failed", "page", page, "error", err)
			return false, nil
		}
		found := false
		v.mu.Lock()
		for _, app := range result.Items {
			v.applied[app.Job.ID] = true
			if app.Job.ID == jobID {
				found = true
			}
		}
		v.mu.Unlock()
		if found {
			return true, nil
		}
		if !result.HasNext || len(result.Items) == 0 {
			return false, nil
		}
	}
	return false, nil
}
