package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pulseline/internal/app"
	"pulseline/internal/config"
	"pulseline/internal/db"
	"pulseline/internal/domain"
	"pulseline/internal/engine"
	"pulseline/internal/migrate"
	"pulseline/internal/repo"
	"pulseline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "pl",
	Short: "Pulseline CLI",
	Long: `Pulseline tracks project health from weekly signals.
- Workspace: your .pulseline directory holding the database.
- Project: owns check-ins, feedback, risks, and a 0-100 health score.
- Check-ins: weekly employee pulse (confidence, completion, blockers).
- Feedback: weekly client pulse (satisfaction, clarity, flagged issues).
- Risks: open risks drag the score down until resolved or deleted.
- Every signal write recalculates the score and may flip the status
  between ON_TRACK, AT_RISK, and CRITICAL; COMPLETED is terminal.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PULSELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "acting user identifier")
	rootCmd.PersistentFlags().String("project", "", "project id (defaults to the single project in the workspace)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func registerCommands() {
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(checkinCmd())
	rootCmd.AddCommand(feedbackCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(notificationCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Println("database is up to date:", db.Path(viper.GetString("workspace")))
			return nil
		},
	}
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectCompleteCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var id, name, desc, start, end, adminID, clientID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := parseDate(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			endDate, err := parseDate(end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			admin := adminID
			if admin == "" {
				admin = viper.GetString("actor-id")
			}
			e := engine.New(conn, config.Default(id), zap.NewNop())
			p, err := e.InitProject(cmd.Context(), engine.ProjectCreateOptions{
				ID:          id,
				Name:        name,
				Description: desc,
				StartDate:   startDate,
				EndDate:     endDate,
				AdminID:     admin,
				ClientID:    clientID,
				ActorID:     viper.GetString("actor-id"),
			})
			if err != nil {
				return err
			}
			return printJSONOrTable(p)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "project id (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&adminID, "admin-id", "", "admin user (defaults to --actor-id)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "client user")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func projectListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProjects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Score", "Start", "End"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status, p.HealthScore, p.StartDate, p.EndDate})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark the active project completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CompleteProject(ctx, e.Config.Project.ID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Scoring configuration"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configApplyCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default pulseline.yml to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			content := config.GenerateDefault(viper.GetString("project"))
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active scoring config",
		Long:  "Shows the workspace pulseline.yml when present, otherwise the active project's stored config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg, err := config.LoadOptional(viper.GetString("workspace")); err != nil {
				return err
			} else if cfg != nil {
				return printJSONOrTable(cfg)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configApplyCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a config file to the active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				path := file
				if path == "" {
					path = config.Path(viper.GetString("workspace"))
				}
				cfg, err := config.FromFile(path)
				if err != nil {
					return err
				}
				if err := e.Repo.UpsertProjectConfig(ctx, e.Config.Project.ID, cfg); err != nil {
					return err
				}
				fmt.Println("applied", path, "to", e.Config.Project.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config file (defaults to pulseline.yml in the workspace)")
	return cmd
}

func checkinCmd() *cobra.Command {
	ci := &cobra.Command{Use: "checkin", Short: "Weekly employee check-ins"}
	ci.AddCommand(checkinSubmitCmd())
	ci.AddCommand(checkinListCmd())
	return ci
}

func checkinSubmitCmd() *cobra.Command {
	var summary, blockers string
	var confidence, completion int
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit this week's check-in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ci, err := e.SubmitCheckIn(ctx, engine.CheckInOptions{
					ProjectID:         e.Config.Project.ID,
					EmployeeID:        viper.GetString("actor-id"),
					ProgressSummary:   summary,
					Blockers:          blockers,
					ConfidenceLevel:   confidence,
					CompletionPercent: completion,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(ci)
			})
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "progress summary")
	cmd.Flags().StringVar(&blockers, "blockers", "", "current blockers")
	cmd.Flags().IntVar(&confidence, "confidence", 0, "confidence level (1-5)")
	cmd.Flags().IntVar(&completion, "completion", 0, "completion percent (0-100)")
	_ = cmd.MarkFlagRequired("summary")
	_ = cmd.MarkFlagRequired("confidence")
	return cmd
}

func checkinListCmd() *cobra.Command {
	var employeeID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List check-ins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListCheckIns(ctx, e.Config.Project.ID, employeeID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Week", "Year", "Employee", "Confidence", "Completion", "Summary"})
				for _, ci := range items {
					tw.AppendRow(table.Row{ci.WeekNumber, ci.Year, ci.EmployeeID, ci.ConfidenceLevel, ci.CompletionPercent, ci.ProgressSummary})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "filter by employee")
	return cmd
}

func feedbackCmd() *cobra.Command {
	fb := &cobra.Command{Use: "feedback", Short: "Weekly client feedback"}
	fb.AddCommand(feedbackSubmitCmd())
	fb.AddCommand(feedbackListCmd())
	return fb
}

func feedbackSubmitCmd() *cobra.Command {
	var comments string
	var satisfaction, clarity int
	var flagIssue bool
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit this week's feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				fb, err := e.SubmitFeedback(ctx, engine.FeedbackOptions{
					ProjectID:            e.Config.Project.ID,
					ClientID:             viper.GetString("actor-id"),
					SatisfactionRating:   satisfaction,
					CommunicationClarity: clarity,
					Comments:             comments,
					FlaggedIssue:         flagIssue,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(fb)
			})
		},
	}
	cmd.Flags().IntVar(&satisfaction, "satisfaction", 0, "satisfaction rating (1-5)")
	cmd.Flags().IntVar(&clarity, "clarity", 0, "communication clarity (1-5)")
	cmd.Flags().StringVar(&comments, "comments", "", "free-form comments")
	cmd.Flags().BoolVar(&flagIssue, "flag-issue", false, "flag an issue for the admin")
	_ = cmd.MarkFlagRequired("satisfaction")
	_ = cmd.MarkFlagRequired("clarity")
	return cmd
}

func feedbackListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListFeedback(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Week", "Year", "Client", "Satisfaction", "Clarity", "Flagged"})
				for _, fb := range items {
					tw.AppendRow(table.Row{fb.WeekNumber, fb.Year, fb.ClientID, fb.SatisfactionRating, fb.CommunicationClarity, fb.FlaggedIssue})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func riskCmd() *cobra.Command {
	rk := &cobra.Command{Use: "risk", Short: "Manage risks"}
	rk.AddCommand(riskAddCmd())
	rk.AddCommand(riskListCmd())
	rk.AddCommand(riskUpdateCmd())
	rk.AddCommand(riskResolveCmd())
	rk.AddCommand(riskDeleteCmd())
	return rk
}

func riskAddCmd() *cobra.Command {
	var title, desc, severity, mitigation string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Open a risk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rk, err := e.CreateRisk(ctx, engine.RiskCreateOptions{
					ProjectID:      e.Config.Project.ID,
					Title:          title,
					Description:    desc,
					Severity:       domain.RiskSeverity(strings.ToUpper(severity)),
					MitigationPlan: mitigation,
					ActorID:        viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(rk)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "risk title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&severity, "severity", "MEDIUM", "LOW, MEDIUM, or HIGH")
	cmd.Flags().StringVar(&mitigation, "mitigation", "", "mitigation plan")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func riskListCmd() *cobra.Command {
	var severity, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List risks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListRisks(ctx, e.Config.Project.ID,
					domain.RiskSeverity(strings.ToUpper(severity)), domain.RiskStatus(strings.ToUpper(status)))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Severity", "Status", "Resolved"})
				for _, rk := range items {
					resolved := ""
					if rk.ResolvedAt != nil {
						resolved = *rk.ResolvedAt
					}
					tw.AppendRow(table.Row{rk.ID, rk.Title, rk.Severity, rk.Status, resolved})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&severity, "severity", "", "severity filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func riskUpdateCmd() *cobra.Command {
	var id, title, desc, severity, mitigation, status string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a risk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.RiskUpdateOptions{
					ID:             id,
					Title:          optionalString(title),
					Description:    optionalString(desc),
					MitigationPlan: optionalString(mitigation),
					ActorID:        viper.GetString("actor-id"),
				}
				if severity != "" {
					sev := domain.RiskSeverity(strings.ToUpper(severity))
					opts.Severity = &sev
				}
				if status != "" {
					st := domain.RiskStatus(strings.ToUpper(status))
					opts.Status = &st
				}
				rk, err := e.UpdateRisk(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(rk)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "risk id")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&desc, "description", "", "new description")
	cmd.Flags().StringVar(&severity, "severity", "", "new severity")
	cmd.Flags().StringVar(&mitigation, "mitigation", "", "new mitigation plan")
	cmd.Flags().StringVar(&status, "status", "", "OPEN or RESOLVED")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func riskResolveCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a risk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				st := domain.RiskResolved
				rk, err := e.UpdateRisk(ctx, engine.RiskUpdateOptions{
					ID:      id,
					Status:  &st,
					ActorID: viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(rk)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "risk id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func riskDeleteCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a risk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteRisk(ctx, id, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "risk id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func scoreCmd() *cobra.Command {
	sc := &cobra.Command{Use: "score", Short: "Health score"}
	sc.AddCommand(scoreShowCmd())
	sc.AddCommand(scoreRecalcCmd())
	return sc
}

func scoreShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current score and status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{
					"project_id":   p.ID,
					"health_score": p.HealthScore,
					"status":       p.Status,
				})
			})
		},
	}
	return cmd
}

func scoreRecalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate the score from current signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				score, err := e.RecalculateHealthScore(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				p, err := e.Repo.GetProject(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{
					"project_id":   p.ID,
					"health_score": score,
					"status":       p.Status,
				})
			})
		},
	}
	return cmd
}

func activityCmd() *cobra.Command {
	act := &cobra.Command{
		Use:   "activity",
		Short: "Activity log",
	}
	act.AddCommand(activityTailCmd())
	return act
}

func activityTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListActivity(ctx, e.Config.Project.ID, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Type", "Title", "User"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.CreatedAt, a.Type, a.Title, a.UserID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	return cmd
}

func notificationCmd() *cobra.Command {
	nt := &cobra.Command{Use: "notification", Short: "Notifications"}
	nt.AddCommand(notificationListCmd())
	nt.AddCommand(notificationReadAllCmd())
	return nt
}

func notificationListCmd() *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications for the acting user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListNotifications(ctx, viper.GetString("actor-id"), unread)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Type", "Title", "Read"})
				for _, n := range items {
					tw.AppendRow(table.Row{n.CreatedAt, n.Type, n.Title, n.Read})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "unread only")
	return cmd
}

func notificationReadAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark all notifications read",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				n, err := r.MarkAllNotificationsRead(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				fmt.Printf("marked %d notifications read\n", n)
				return nil
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			_, cfg, err := app.ResolveProjectAndConfig(cmd.Context(), viper.GetString("project"), r)
			if err != nil {
				return err
			}
			log, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer log.Sync()
			e := engine.New(conn, cfg, log)
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Log: log})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Pulseline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs, metrics at /metrics)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	_, cfg, err := app.ResolveProjectAndConfig(ctx, viper.GetString("project"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg, zap.NewNop())
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
