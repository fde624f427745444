package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ChuLiYu/talenthub-cli/internal/dashboard"
	"github.com/ChuLiYu/talenthub-cli/internal/journal"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
	"github.com/spf13/cobra"
)

// ============================================================================
// admin - 唯讀表格
// ============================================================================

func buildAdminCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin tables: users, jobs and applications",
	}
	cmd.AddCommand(buildAdminUsersCommand(opts))
	cmd.AddCommand(buildAdminJobsCommand(opts))
	cmd.AddCommand(buildAdminApplicationsCommand(opts))
	return cmd
}

func buildAdminUsersCommand(opts *rootOptions) *cobra.Command {
	var filter dashboard.UserFilter
	var page int

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		RunE: opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
			view, err := rt.app.OpenAdmin(ctx)
			if err != nil {
				return rt.redirected(ctx, err)
			}
			defer view.Close()

			if err := loadPage(ctx, view.Users, filter, page); err != nil {
				log.Warn("users not loaded", "error", err)
			}
			return rt.render.users(view.Users.State())
		}),
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().StringVar(&filter.Username, "username", "", "filter by username")
	cmd.Flags().StringVar(&filter.Email, "email", "", "filter by email")
	cmd.Flags().StringVar(&filter.Role, "role", "", "filter by role")
	return cmd
}

func buildAdminJobsCommand(opts *rootOptions) *cobra.Command {
	var filter dashboard.JobFilter
	var page int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List all jobs",
		RunE: opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
			view, err := rt.app.OpenAdmin(ctx)
			if err != nil {
				return rt.redirected(ctx, err)
			}
			defer view.Close()

			if err := loadPage(ctx, view.Jobs, filter, page); err != nil {
				log.Warn("jobs not loaded", "error", err)
			}
			return rt.render.jobs(view.Jobs.State(), nil)
		}),
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().StringVar(&filter.Title, "title", "", "filter by title")
	cmd.Flags().StringVar(&filter.Sort, "sort", "", "sort by id, title, salary or created_at")
	return cmd
}

func buildAdminApplicationsCommand(opts *rootOptions) *cobra.Command {
	var status string
	var page int

	cmd := &cobra.Command{
		Use:   "applications",
		Short: "List all applications",
		RunE: opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
			var filter types.ApplicationStatus
			if status != "" {
				parsed, err := types.ParseApplicationStatus(status)
				if err != nil {
					return err
				}
				filter = parsed
			}
			view, err := rt.app.OpenAdmin(ctx)
			if err != nil {
				return rt.redirected(ctx, err)
			}
			defer view.Close()

			if err := loadPage(ctx, view.Applications, filter, page); err != nil {
				log.Warn("applications not loaded", "error", err)
			}
			return rt.render.applications(view.Applications.State(), "No applications found.")
		}),
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

// ============================================================================
// history - 本機變更日誌
// ============================================================================

func buildHistoryCommand(opts *rootOptions) *cobra.Command {
	var rotate bool
	var kind string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the local journal of mutations made from this machine",
		Long: `Replay the mutation journal: job creates, updates and deletes,
applications and reviews issued by this client. The remote service is the
source of truth; the journal only records what this client did.`,
		RunE: opts.run(func(_ context.Context, rt *runtime, _ []string) error {
			if rotate {
				if rt.journal == nil {
					return fmt.Errorf("journal is disabled")
				}
				backup, err := rt.journal.Rotate()
				if err != nil {
					return fmt.Errorf("failed to rotate journal: %w", err)
				}
				return rt.render.message("Journal rotated to %s", backup)
			}

			var entries []journal.Entry
			err := journal.Replay(rt.cfg.Journal.Path, func(e journal.Entry) error {
				if kind == "" || e.Kind == kind {
					entries = append(entries, e)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to replay journal: %w", err)
			}
			return rt.history(entries)
		}),
	}

	cmd.Flags().BoolVar(&rotate, "rotate", false, "start a new journal, keeping the old one as a backup")
	cmd.Flags().StringVar(&kind, "kind", "", "only show entries of this kind (job.create, job.update, job.delete, apply, review)")
	return cmd
}

// historyRow 輸出用，不含 payload 與校驗和
type historyRow struct {
	Seq        uint64    `json:"seq" yaml:"seq"`
	Time       time.Time `json:"time" yaml:"time"`
	Kind       string    `json:"kind" yaml:"kind"`
	ResourceID int64     `json:"resource_id" yaml:"resource_id"`
	RequestID  string    `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}

func (rt *runtime) history(entries []journal.Entry) error {
	rows := make([]historyRow, len(entries))
	for i, e := range entries {
		rows[i] = historyRow{
			Seq:        e.Seq,
			Time:       time.UnixMilli(e.Timestamp),
			Kind:       e.Kind,
			ResourceID: e.ResourceID,
			RequestID:  e.RequestID,
		}
	}
	return rt.render.emit(rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "No history yet.")
			return
		}
		fmt.Fprintln(w, "SEQ\tTIME\tKIND\tRESOURCE\tREQUEST")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", r.Seq, r.Time.Format(time.DateTime), r.Kind, r.ResourceID, orNA(r.RequestID))
		}
	})
}
