package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/ChuLiYu/talenthub-cli/internal/dashboard"
	"github.com/ChuLiYu/talenthub-cli/internal/guard"
	"github.com/ChuLiYu/talenthub-cli/internal/pager"
	"github.com/ChuLiYu/talenthub-cli/internal/panel"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// maxLookupPages 更新職缺時尋找原始資料的頁數上限
const maxLookupPages = 20

// mutationContext 為每個修改操作產生 request id，日誌與請求共用
func mutationContext(ctx context.Context) context.Context {
	return api.WithRequestID(ctx, uuid.NewString())
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// loadPage 套用篩選條件後前往指定頁；篩選條件變更時先回到第 1 頁
func loadPage[T any, F comparable](ctx context.Context, f *pager.Fetcher[T, F], filter F, page int) error {
	var zero F
	if filter != zero {
		if err := f.SetFilter(ctx, filter); err != nil {
			return err
		}
		if page <= 1 {
			return nil
		}
	}
	return f.GoTo(ctx, page)
}

// ============================================================================
// jobs
// ============================================================================

func buildJobsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Browse jobs and manage your postings",
	}
	cmd.AddCommand(buildJobsListCommand(opts))
	cmd.AddCommand(buildJobsCreateCommand(opts))
	cmd.AddCommand(buildJobsUpdateCommand(opts))
	cmd.AddCommand(buildJobsDeleteCommand(opts))
	return cmd
}

func buildJobsListCommand(opts *rootOptions) *cobra.Command {
	var filter dashboard.JobFilter
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs on the dashboard of your role",
		RunE: opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
			route, _, err := rt.app.Landing(ctx)
			if err != nil {
				return err
			}

			switch route {
			case guard.RouteApplicant:
				view, err := rt.app.OpenApplicant(ctx)
				if err != nil {
					return rt.redirected(ctx, err)
				}
				defer view.Close()
				// 申請列表只用來標示已申請的職缺
				if err := view.Applications.Load(ctx); err != nil {
					log.Warn("applications not loaded", "error", err)
				}
				if err := loadPage(ctx, view.Jobs, filter, page); err != nil {
					log.Warn("jobs not loaded", "error", err)
				}
				return rt.render.jobs(view.Jobs.State(), view.IsApplied)
			case guard.RouteEmployer:
				view, err := rt.app.OpenEmployer(ctx)
				if err != nil {
					return rt.redirected(ctx, err)
				}
				defer view.Close()
				if err := loadPage(ctx, view.Jobs, filter, page); err != nil {
					log.Warn("jobs not loaded", "error", err)
				}
				return rt.render.jobs(view.Jobs.State(), nil)
			case guard.RouteAdmin:
				view, err := rt.app.OpenAdmin(ctx)
				if err != nil {
					return rt.redirected(ctx, err)
				}
				defer view.Close()
				if err := loadPage(ctx, view.Jobs, filter, page); err != nil {
					log.Warn("jobs not loaded", "error", err)
				}
				return rt.render.jobs(view.Jobs.State(), nil)
			default:
				fmt.Fprintf(rt.stderr, "↪ %s\n", route)
				return rt.show(ctx, route)
			}
		}),
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().StringVar(&filter.Title, "title", "", "filter by title (case-insensitive)")
	cmd.Flags().StringVar(&filter.Sort, "sort", "", "sort by id, title, salary or created_at")
	return cmd
}

// jobFlags 職缺表單欄位
type jobFlags struct {
	title        string
	description  string
	requirements string
	salary       float64
	confidential bool
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "job title")
	cmd.Flags().StringVar(&f.description, "description", "", "job description")
	cmd.Flags().StringVar(&f.requirements, "requirements", "", "job requirements")
	cmd.Flags().Float64Var(&f.salary, "salary", 0, "salary")
	cmd.Flags().BoolVar(&f.confidential, "confidential", false, "hide the salary from applicants")
}

// apply 只覆寫命令列上有指定的欄位
func (f *jobFlags) apply(cmd *cobra.Command, in api.JobInput) api.JobInput {
	changed := cmd.Flags().Changed
	if changed("title") {
		in.Title = f.title
	}
	if changed("description") {
		in.Description = f.description
	}
	if changed("requirements") {
		in.Requirements = f.requirements
	}
	if changed("salary") {
		in.Salary = types.NewSalary(f.salary)
	}
	if changed("confidential") {
		in.SalaryConfidential = f.confidential
	}
	return in
}

func (rt *runtime) jobResult(job types.Job) error {
	return rt.render.emit(job, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tTITLE\tSALARY\tPOSTED")
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", job.ID, job.Title, job.DisplaySalary(), date(job.CreatedAt))
	})
}

func buildJobsCreateCommand(opts *rootOptions) *cobra.Command {
	var flags jobFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Post a new job (employer)",
	}
	cmd.RunE = opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
		view, err := rt.app.OpenEmployer(ctx)
		if err != nil {
			return rt.redirected(ctx, err)
		}
		defer view.Close()

		job, err := view.JobPanel.Submit(mutationContext(ctx), flags.apply(cmd, api.JobInput{}), 0)
		if err != nil {
			return err
		}
		return rt.jobResult(job)
	})
	flags.register(cmd)
	return cmd
}

func buildJobsUpdateCommand(opts *rootOptions) *cobra.Command {
	var flags jobFlags

	cmd := &cobra.Command{
		Use:   "update <job-id>",
		Short: "Edit one of your jobs (employer)",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = opts.run(func(ctx context.Context, rt *runtime, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		view, err := rt.app.OpenEmployer(ctx)
		if err != nil {
			return rt.redirected(ctx, err)
		}
		defer view.Close()

		current, err := findJob(ctx, view.Jobs, id)
		if err != nil {
			return err
		}
		job, err := view.JobPanel.Submit(mutationContext(ctx), flags.apply(cmd, api.InputFromJob(current)), id)
		if err != nil {
			return err
		}
		return rt.jobResult(job)
	})
	flags.register(cmd)
	return cmd
}

// findJob 逐頁尋找職缺，作為更新表單的預設值
func findJob(ctx context.Context, jobs *pager.Fetcher[types.Job, dashboard.JobFilter], id int64) (types.Job, error) {
	if err := jobs.Load(ctx); err != nil {
		return types.Job{}, fmt.Errorf("failed to load jobs: %w", err)
	}
	for i := 0; i < maxLookupPages; i++ {
		state := jobs.State()
		for _, job := range state.Items {
			if job.ID == id {
				return job, nil
			}
		}
		if !state.HasNext {
			break
		}
		if err := jobs.Next(ctx); err != nil {
			return types.Job{}, fmt.Errorf("failed to load jobs: %w", err)
		}
		// 最後一頁剛好滿時下一頁為空，pager 會回到第 1 頁
		if jobs.State().Page <= state.Page {
			break
		}
	}
	return types.Job{}, fmt.Errorf("job %d: %w", id, api.ErrNotFound)
}

func buildJobsDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete one of your jobs (employer)",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, rt *runtime, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			view, err := rt.app.OpenEmployer(ctx)
			if err != nil {
				return rt.redirected(ctx, err)
			}
			defer view.Close()

			err = view.JobPanel.Delete(mutationContext(ctx), id)
			if errors.Is(err, panel.ErrDeclined) {
				return rt.render.message("Job %d kept", id)
			}
			return err
		}),
	}
}

// ============================================================================
// applicant: apply / applications
// ============================================================================

func buildApplyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <job-id>",
		Short: "Apply to a job (applicant)",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, rt *runtime, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			view, err := rt.app.OpenApplicant(ctx)
			if err != nil {
				return rt.redirected(ctx, err)
			}
			defer view.Close()
			// 職缺列表提供確認訊息的標題，申請列表提供已申請標記
			if err := view.Refresh(ctx); err != nil {
				log.Debug("applicant lists partially loaded", "error", err)
			}

			app, err := view.Apply(mutationContext(ctx), jobID)
			switch {
			case errors.Is(err, panel.ErrDeclined):
				return rt.render.message("Application cancelled")
			case err != nil:
				return err
			}
			return rt.render.emit(app, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tJOB\tSTATUS")
				fmt.Fprintf(w, "%d\t%d\t%s\n", app.ID, app.Job.ID, app.Status)
			})
		}),
	}
}

func buildApplicationsCommand(opts *rootOptions) *cobra.Command {
	var status string
	var page int

	cmd := &cobra.Command{
		Use:   "applications",
		Short: "List your applications by status (applicant)",
		RunE: opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
			parsed, err := types.ParseApplicationStatus(status)
			if err != nil {
				return err
			}
			view, err := rt.app.OpenApplicant(ctx)
			if err != nil {
				return rt.redirected(ctx, err)
			}
			defer view.Close()

			if err := view.SetStatus(ctx, parsed); err != nil {
				log.Warn("applications not loaded", "error", err)
			} else if page > 1 {
				if err := view.Applications.GoTo(ctx, page); err != nil {
					log.Warn("applications not loaded", "page", page, "error", err)
				}
			}
			return rt.render.applications(view.Applications.State(), view.EmptyMessage())
		}),
	}

	cmd.Flags().StringVar(&status, "status", string(types.StatusApplied), "applied, shortlisted or rejected")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

// ============================================================================
// employer: applicants / resume / review
// ============================================================================

func buildApplicantsCommand(opts *rootOptions) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "applicants",
		Short: "List applicants to your jobs (employer)",
		RunE: opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
			view, err := rt.app.OpenEmployer(ctx)
			if err != nil {
				return rt.redirected(ctx, err)
			}
			defer view.Close()

			if err := view.Applicants.GoTo(ctx, page); err != nil {
				log.Warn("applicants not loaded", "error", err)
			}
			return rt.render.applications(view.Applicants.State(), "No applicants found.")
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func buildResumeCommand(opts *rootOptions) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "resume <application-id>",
		Short: "Show the resume link of an applicant (employer)",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, rt *runtime, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			view, err := rt.app.OpenEmployer(ctx)
			if err != nil {
				return rt.redirected(ctx, err)
			}
			defer view.Close()

			if err := view.Applicants.GoTo(ctx, page); err != nil {
				return fmt.Errorf("failed to load applicants: %w", err)
			}
			link, err := view.Resume(id)
			if err != nil {
				return err
			}
			return rt.render.emit(map[string]string{"resume": link}, func(w io.Writer) {
				fmt.Fprintln(w, link)
			})
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "applicant page the application is on")
	return cmd
}

func buildReviewCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "review <application-id> <applied|shortlisted|rejected>",
		Short:     "Set the status of an application (employer)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"applied", "shortlisted", "rejected"},
		RunE: opts.run(func(ctx context.Context, rt *runtime, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := types.ParseApplicationStatus(args[1])
			if err != nil {
				return err
			}
			view, err := rt.app.OpenEmployer(ctx)
			if err != nil {
				return rt.redirected(ctx, err)
			}
			defer view.Close()

			app, err := view.Review(mutationContext(ctx), id, status)
			if err != nil {
				return err
			}
			return rt.render.emit(app, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tAPPLICANT\tSTATUS")
				fmt.Fprintf(w, "%d\t%s\t%s\n", app.ID, orNA(app.Username), app.Status)
			})
		}),
	}
}
