package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ChuLiYu/talenthub-cli/internal/dashboard"
	"github.com/ChuLiYu/talenthub-cli/internal/guard"
	"github.com/ChuLiYu/talenthub-cli/internal/storage"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
	"github.com/spf13/cobra"
)

// ============================================================================
// open - 路由與儀表板
// ============================================================================

func buildOpenCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open [route]",
		Short: "Resolve the session and show a page",
		Long: `Show a page of the client. Without a route the stored session decides:
an authenticated user lands on the dashboard of their role, everyone else
on the public landing page.

Routes: / /login /signup /admin-landing /employer-landing /applicant-landing`,
		Args: cobra.MaximumNArgs(1),
		RunE: opts.run(func(ctx context.Context, rt *runtime, args []string) error {
			if len(args) == 0 {
				route, _, err := rt.app.Landing(ctx)
				if err != nil {
					return err
				}
				return rt.show(ctx, route)
			}
			route, err := guard.ParseRoute(args[0])
			if err != nil {
				return err
			}
			return rt.show(ctx, route)
		}),
	}
}

// show 顯示 route；守衛拒絕時改顯示導向的頁面
func (rt *runtime) show(ctx context.Context, route guard.Route) error {
	switch route {
	case guard.RouteAdmin:
		return rt.showAdmin(ctx)
	case guard.RouteEmployer:
		return rt.showEmployer(ctx)
	case guard.RouteApplicant:
		return rt.showApplicant(ctx)
	case guard.RouteLogin:
		return rt.render.message("Log in with: talenthub login -u <username>")
	case guard.RouteSignup:
		return rt.render.message("Create an account with: talenthub signup --username <name> --email <email> --role applicant|employer")
	default:
		return rt.render.message("Welcome to TalentHub. Log in or sign up to continue.")
	}
}

// redirected 處理守衛導向：印出導向目標並顯示該頁
func (rt *runtime) redirected(ctx context.Context, err error) error {
	var redirect *dashboard.RedirectError
	if !errors.As(err, &redirect) {
		return err
	}
	fmt.Fprintf(rt.stderr, "↪ %s\n", redirect.To)
	if redirect.To == redirect.From {
		return nil
	}
	return rt.show(ctx, redirect.To)
}

func (rt *runtime) showAdmin(ctx context.Context) error {
	view, err := rt.app.OpenAdmin(ctx)
	if err != nil {
		return rt.redirected(ctx, err)
	}
	defer view.Close()
	// 單一表格失敗只會讓該表格為空
	if err := view.Refresh(ctx); err != nil {
		log.Debug("admin dashboard partially loaded", "error", err)
	}

	rt.heading("Users")
	if err := rt.render.users(view.Users.State()); err != nil {
		return err
	}
	rt.heading("Jobs")
	if err := rt.render.jobs(view.Jobs.State(), nil); err != nil {
		return err
	}
	rt.heading("Applications")
	return rt.render.applications(view.Applications.State(), "No applications found.")
}

func (rt *runtime) showEmployer(ctx context.Context) error {
	view, err := rt.app.OpenEmployer(ctx)
	if err != nil {
		return rt.redirected(ctx, err)
	}
	defer view.Close()
	if err := view.Refresh(ctx); err != nil {
		log.Debug("employer dashboard partially loaded", "error", err)
	}

	rt.heading("Your jobs")
	if err := rt.render.jobs(view.Jobs.State(), nil); err != nil {
		return err
	}
	rt.heading("Applicants")
	return rt.render.applications(view.Applicants.State(), "No applicants found.")
}

func (rt *runtime) showApplicant(ctx context.Context) error {
	view, err := rt.app.OpenApplicant(ctx)
	if err != nil {
		return rt.redirected(ctx, err)
	}
	defer view.Close()
	if err := view.Refresh(ctx); err != nil {
		log.Debug("applicant dashboard partially loaded", "error", err)
	}

	rt.heading("Jobs")
	if err := rt.render.jobs(view.Jobs.State(), view.IsApplied); err != nil {
		return err
	}
	rt.heading("My applications (" + string(view.Applications.Filter()) + ")")
	return rt.render.applications(view.Applications.State(), view.EmptyMessage())
}

// heading 只在表格格式輸出標題
func (rt *runtime) heading(title string) {
	if rt.render.format != formatTable {
		return
	}
	fmt.Fprintf(rt.render.out, "\n== %s ==\n", title)
}

// ============================================================================
// login / signup / logout / whoami
// ============================================================================

func buildLoginCommand(opts *rootOptions) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
			if password == "" {
				p, err := rt.prompt.readLine("Password: ")
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = p
			}

			route, sess, err := rt.app.Login(ctx, username, password)
			if err != nil {
				rt.alert(dashboard.MsgInvalidCredentials)
				return err
			}
			return rt.render.emit(map[string]any{
				"username": sess.Username,
				"role":     sess.Role,
				"route":    route,
			}, func(w io.Writer) {
				fmt.Fprintf(w, "Logged in as %s (%s)\n", sess.Username, sess.Role)
				fmt.Fprintf(w, "Next: talenthub open %s\n", route)
			})
		}),
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func buildSignupCommand(opts *rootOptions) *cobra.Command {
	var in dashboard.SignupInput
	var role string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an applicant or employer account",
		RunE: opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
			if in.Password == "" {
				p, err := rt.prompt.readLine("Password: ")
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("failed to read password: %w", err)
				}
				in.Password = p
			}
			in.Role = types.Role(strings.ToLower(strings.TrimSpace(role)))

			route, _, err := rt.app.Signup(ctx, in)
			if err != nil {
				rt.alert(dashboard.MsgSignupFailed)
				return err
			}
			rt.alert(dashboard.MsgAccountCreated)
			return rt.render.message("Next: talenthub open %s", route)
		}),
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "username")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&role, "role", string(types.RoleApplicant), "account role: applicant or employer")
	return cmd
}

func buildLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored session token",
		RunE: opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
			route, err := rt.app.Logout(ctx)
			if err != nil {
				return err
			}
			return rt.render.message("Logged out. Next: talenthub open %s", route)
		}),
	}
}

func buildWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user behind the stored token",
		RunE: opts.run(func(ctx context.Context, rt *runtime, _ []string) error {
			sess, err := rt.app.Whoami(ctx)
			if err != nil {
				return fmt.Errorf("not logged in: %w", err)
			}
			return rt.render.session(sess)
		}),
	}
}

// ============================================================================
// theme
// ============================================================================

func buildThemeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the persisted theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: opts.run(func(_ context.Context, rt *runtime, args []string) error {
			var theme storage.Theme
			var err error
			switch {
			case len(args) == 0:
				theme, err = rt.app.Theme()
			case args[0] == "toggle":
				theme, err = rt.app.ToggleTheme()
			default:
				theme, err = storage.ParseTheme(args[0])
				if err == nil {
					err = rt.app.SetTheme(theme)
				}
			}
			if err != nil {
				return err
			}
			return rt.render.emit(map[string]string{"theme": string(theme)}, func(w io.Writer) {
				fmt.Fprintf(w, "Theme: %s\n", theme)
			})
		}),
	}
}
