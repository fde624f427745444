// ============================================================================
// TalentHub CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Terminal client for the TalentHub job board, built on Cobra
//
// Command Structure:
//   talenthub                          # Root command
//   ├── open [route]                   # Resolve session and show a dashboard
//   ├── login / signup / logout        # Session management
//   ├── whoami                         # Show the verified session
//   ├── theme [light|dark|toggle]      # Persisted theme preference
//   ├── jobs list|create|update|delete # Job list and employer job panel
//   ├── apply <job-id>                 # Applicant: apply to a job
//   ├── applications                   # Applicant: own applications by status
//   ├── applicants / resume / review   # Employer: applicant table
//   ├── admin users|jobs|applications  # Admin: read-only tables
//   ├── history [--rotate]             # Local mutation journal
//   ├── --config, -c                   # Config file (default: configs/default.yaml)
//   ├── --output, -o                   # table, json or yaml
//   ├── --verbose, -v                  # Debug logging
//   └── --yes, -y                      # Answer yes to confirmations
//
// Configuration Management:
//   YAML config file, falling back to built-in defaults when missing.
//   TALENTHUB_AUTH_BASE, TALENTHUB_API_BASE and TALENTHUB_STATE_PATH
//   override the file.
//
// Per-command lifecycle:
//   1. Load config, configure slog
//   2. Open state file, mutation journal, start metrics server (if enabled)
//   3. Run the command under a context canceled by SIGINT/SIGTERM
//   4. Close journal, stop metrics server
//
//   The metrics server only lives for one invocation, so scrapes only see
//   commands that wait on a prompt or a slow service.
//
// Error Handling:
//   - Login failure: "Invalid credentials" alert, exit code 1
//   - Guard redirect: route printed, exit code 0 (not an error)
//   - Load failures: empty table, logged at warn
//   - Mutation failures: error notification, exit code 1
//
// ============================================================================

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/ChuLiYu/talenthub-cli/internal/dashboard"
	"github.com/ChuLiYu/talenthub-cli/internal/journal"
	"github.com/ChuLiYu/talenthub-cli/internal/metrics"
	"github.com/ChuLiYu/talenthub-cli/internal/panel"
	"github.com/ChuLiYu/talenthub-cli/internal/storage"
	"github.com/spf13/cobra"
)

var log = slog.Default()

// rootOptions holds the persistent flags
type rootOptions struct {
	configFile string
	output     string
	verbose    bool
	yes        bool
}

// BuildCLI 建立完整的命令樹
func BuildCLI() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "talenthub",
		Short: "TalentHub: job board client for admins, employers and applicants",
		Long: `TalentHub connects employers and applicants:
- employers post jobs and review applicants
- applicants browse jobs and track their applications
- admins oversee users, jobs and applications`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "configs/default.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", formatTable, "output format: table, json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&opts.yes, "yes", "y", false, "answer yes to confirmation prompts")

	rootCmd.AddCommand(buildOpenCommand(opts))
	rootCmd.AddCommand(buildLoginCommand(opts))
	rootCmd.AddCommand(buildSignupCommand(opts))
	rootCmd.AddCommand(buildLogoutCommand(opts))
	rootCmd.AddCommand(buildWhoamiCommand(opts))
	rootCmd.AddCommand(buildThemeCommand(opts))
	rootCmd.AddCommand(buildJobsCommand(opts))
	rootCmd.AddCommand(buildApplyCommand(opts))
	rootCmd.AddCommand(buildApplicationsCommand(opts))
	rootCmd.AddCommand(buildApplicantsCommand(opts))
	rootCmd.AddCommand(buildResumeCommand(opts))
	rootCmd.AddCommand(buildReviewCommand(opts))
	rootCmd.AddCommand(buildAdminCommand(opts))
	rootCmd.AddCommand(buildHistoryCommand(opts))

	return rootCmd
}

// ============================================================================
// Runtime
// ============================================================================

// runtime is everything a command needs, built once per invocation
type runtime struct {
	cfg     *Config
	store   *storage.Store
	app     *dashboard.App
	journal *journal.Journal
	metrics *metrics.Server
	render  *renderer
	prompt  *prompter
	stderr  io.Writer
}

// run wraps a command body with runtime setup and teardown
func (o *rootOptions) run(body func(ctx context.Context, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := o.setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return body(ctx, rt, args)
	}
}

func (o *rootOptions) setup(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	configureLogging(cfg, o.verbose, cmd.ErrOrStderr())

	render, err := newRenderer(o.output, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:    cfg,
		store:  storage.NewStore(cfg.Storage.Path),
		render: render,
		prompt: newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		stderr: cmd.ErrOrStderr(),
	}

	var clientOpts []api.Option
	dashOpts := []dashboard.Option{
		dashboard.WithConfirmer(rt.prompt.confirmer(o.yes)),
		dashboard.WithNotifier(panel.NewNotifier(panel.DefaultTTL, rt.notify)),
	}

	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector()
		clientOpts = append(clientOpts, api.WithRecorder(collector))
		dashOpts = append(dashOpts, dashboard.WithRecorder(collector))
		rt.metrics = metrics.StartServer(cfg.Metrics.Port)
	}

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			// 日誌只是輔助紀錄，開啟失敗不阻止命令
			log.Warn("mutation journal unavailable", "path", cfg.Journal.Path, "error", err)
		} else {
			rt.journal = j
			dashOpts = append(dashOpts, dashboard.WithJournal(j))
		}
	}

	client := api.NewClient(cfg.API.AuthBase, cfg.API.APIBase, &http.Client{Timeout: cfg.HTTP.Timeout}, clientOpts...)
	rt.app = dashboard.New(client, rt.store, cfg.dashboardConfig(), dashOpts...)
	return rt, nil
}

func (rt *runtime) close() {
	if err := rt.journal.Close(); err != nil {
		log.Warn("failed to close journal", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rt.metrics.Shutdown(ctx); err != nil {
		log.Warn("failed to stop metrics server", "error", err)
	}
}

// notify prints dashboard notifications on stderr
func (rt *runtime) notify(n panel.Notification) {
	icon := "✅"
	if n.Level == panel.LevelError {
		icon = "❌"
	}
	fmt.Fprintf(rt.stderr, "%s %s\n", icon, n.Message)
}

// alert prints a blocking alert (login and signup results)
func (rt *runtime) alert(msg string) {
	fmt.Fprintf(rt.stderr, "⚠️  %s\n", msg)
}

func configureLogging(cfg *Config, verbose bool, w io.Writer) {
	level := cfg.logLevel()
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	// 各套件在初始化時取得的 logger 經由 log 套件輸出，門檻由此設定
	slog.SetLogLoggerLevel(level)
}
