package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resourcemap/internal/app"
	"resourcemap/internal/config"
	"resourcemap/internal/db"
	"resourcemap/internal/domain"
	"resourcemap/internal/editor"
	"resourcemap/internal/engine"
	"resourcemap/internal/export"
	"resourcemap/internal/ingest"
	"resourcemap/internal/logging"
	"resourcemap/internal/migrate"
	"resourcemap/internal/oracle"
	"resourcemap/internal/projection"
	"resourcemap/internal/render"
	"resourcemap/internal/repo"
	"resourcemap/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "rmap",
	Short: "Resource map CLI",
	Long: `rmap turns a free-text or spreadsheet description of an organization into a
structured resource map and shows it from several angles.
- Analyze: send text (or a flattened .xlsx/.csv) to the configured language model;
  the structured result is stored as a report in .resourcemap/resourcemap.db.
- Views: project -> task -> people, manager -> team -> people -> projects,
  person -> project -> tasks, large/small project buckets and a summary.
- Tasks: edit names, status, progress, ETA, project and assignee; every edit is
  committed back to the report as a whole.
- Export: render a view to HTML, or to PDF/PNG with headless Chrome.
- Serve: the same operations over an authenticated HTTP API (see /docs).`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(); err != nil {
			return err
		}
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
		render.ErrorBanner(os.Stderr, err, useColor())
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("RESOURCEMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier recorded in events")
	rootCmd.PersistentFlags().StringP("report", "r", "", "report id (defaults to the latest report)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	for _, name := range []string{"workspace", "json", "actor-id", "report", "log-level", "log-file", "no-color"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(viewCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(configCmd())
}

func setupLogging() error {
	level, err := logging.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	var w io.Writer = os.Stderr
	if path := viper.GetString("log-file"); path != "" {
		f, err := logging.OpenFile(path)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = f
	}
	logging.Init(w, level)
	return nil
}

func useColor() bool {
	return !viper.GetBool("no-color") && os.Getenv("NO_COLOR") == ""
}

// --- analyze ---

func analyzeCmd() *cobra.Command {
	var file, text, title string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Structure text or a spreadsheet into a new report",
		Long: `Reads the description from --text, --file or stdin. Files ending in
.xlsx, .xlsm or .csv are flattened sheet by sheet before analysis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				oracle.LogSummary(logging.Logger, e.Config.Oracle)
				actor := viper.GetString("actor-id")
				var rep domain.Report
				var err error
				switch {
				case file != "" && ingest.Supported(file):
					f, openErr := os.Open(file)
					if openErr != nil {
						return openErr
					}
					defer f.Close()
					rep, err = e.AnalyzeSpreadsheet(ctx, file, f, title, actor)
				case file != "":
					data, readErr := os.ReadFile(file)
					if readErr != nil {
						return readErr
					}
					rep, err = e.Analyze(ctx, engine.AnalyzeRequest{Text: string(data), Title: title, Source: domain.SourceText, ActorID: actor})
				default:
					if text == "" {
						data, readErr := io.ReadAll(cmd.InOrStdin())
						if readErr != nil {
							return readErr
						}
						text = string(data)
					}
					rep, err = e.Analyze(ctx, engine.AnalyzeRequest{Text: text, Title: title, Source: domain.SourceText, ActorID: actor})
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Report %s (%s)\n", rep.ID, rep.Title)
				views := projection.Build(rep.Model)
				render.SummaryTable(out, views.Summary)
				render.Tree(out, projection.ProjectNodes(views.Projects), useColor())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read input from a text, .xlsx or .csv file")
	cmd.Flags().StringVarP(&text, "text", "t", "", "input text")
	cmd.Flags().StringVar(&title, "title", "", "report title")
	return cmd
}

// --- report ---

func reportCmd() *cobra.Command {
	rep := &cobra.Command{Use: "report", Short: "Manage stored reports"}
	rep.AddCommand(reportListCmd())
	rep.AddCommand(reportShowCmd())
	rep.AddCommand(reportDeleteCmd())
	return rep
}

func reportListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListReports(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				render.ReportsTable(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of reports")
	return cmd
}

func reportShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a report's metadata and summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReport(cmd.Context(), args, func(ctx context.Context, e engine.Engine, rep domain.Report) error {
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:      %s\nTitle:   %s\nSource:  %s\nCreated: %s\nUpdated: %s\n", rep.ID, rep.Title, rep.Source, rep.CreatedAt, rep.UpdatedAt)
				render.SummaryTable(out, projection.Build(rep.Model).Summary)
				return nil
			})
		},
	}
}

func reportDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteReport(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

// --- views ---

func viewCmd() *cobra.Command {
	var nodes bool
	cmd := &cobra.Command{
		Use:       "view <project|org|people|buckets|summary>",
		Short:     "Show one projection of a report",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"project", "org", "organization", "people", "buckets", "summary"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReport(cmd.Context(), nil, func(ctx context.Context, e engine.Engine, rep domain.Report) error {
				views := projection.Build(rep.Model)
				return printView(cmd.OutOrStdout(), views, args[0], nodes)
			})
		},
	}
	cmd.Flags().BoolVar(&nodes, "nodes", false, "with --json, print the render-neutral node tree")
	return cmd
}

func printView(out io.Writer, views projection.Views, name string, nodes bool) error {
	asJSON := viper.GetBool("json")
	color := useColor()
	switch strings.ToLower(name) {
	case "buckets":
		if asJSON {
			return printJSON(views.Buckets)
		}
		render.Buckets(out, views.Buckets, color)
		return nil
	case "summary":
		if asJSON {
			return printJSON(views.Summary)
		}
		render.SummaryTable(out, views.Summary)
		return nil
	}
	view, err := export.ParseView(name)
	if err != nil {
		return err
	}
	req := export.Request{View: view, Views: views}
	if asJSON {
		if nodes {
			return printJSON(req.Nodes())
		}
		switch view {
		case export.ViewOrganization:
			return printJSON(views.Organization)
		case export.ViewPeople:
			return printJSON(views.People)
		}
		return printJSON(views.Projects)
	}
	fmt.Fprintln(out, view.Title())
	render.Tree(out, req.Nodes(), color)
	return nil
}

func riskCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Show the risk analysis of a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReport(cmd.Context(), nil, func(ctx context.Context, e engine.Engine, rep domain.Report) error {
				if viper.GetBool("json") {
					return printJSON(map[string]string{"riskAnalysis": rep.Model.RiskAnalysis})
				}
				if strings.TrimSpace(rep.Model.RiskAnalysis) == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No risk analysis in this report.")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), render.Markdown(rep.Model.RiskAnalysis, width))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 100, "wrap width")
	return cmd
}

// --- tasks ---

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "List and edit a report's tasks"}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskAssignCmd())
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var q editor.Query
	var sortRaw string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks with project and assignee",
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := editor.ParseSortOrder(sortRaw)
			if err != nil {
				return err
			}
			q.SortETA = order
			return withReport(cmd.Context(), nil, func(ctx context.Context, e engine.Engine, rep domain.Report) error {
				rows := editor.Rows(rep.Model, q)
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				render.TaskTable(cmd.OutOrStdout(), rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&q.ProjectID, "project", "", "project id filter")
	cmd.Flags().StringVar(&q.PersonID, "person", "", "assignee id filter")
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "case-insensitive search over task, project and person names")
	cmd.Flags().StringVar(&sortRaw, "sort-eta", "", "sort by ETA: asc, desc or none")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var name, status, eta, projectID string
	var progress int
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return editReport(cmd, func(d *editor.Draft) error {
				flags := cmd.Flags()
				if flags.Changed("name") {
					if err := d.SetTaskName(id, name); err != nil {
						return err
					}
				}
				if flags.Changed("status") {
					if err := d.SetTaskStatus(id, status); err != nil {
						return err
					}
				}
				if flags.Changed("progress") {
					if err := d.SetTaskProgress(id, progress); err != nil {
						return err
					}
				}
				if flags.Changed("eta") {
					if err := d.SetTaskETA(id, eta); err != nil {
						return err
					}
				}
				if flags.Changed("project") {
					if err := d.SetTaskProject(id, projectID); err != nil {
						return err
					}
				}
				if !d.Dirty() {
					return errors.New("nothing to update; pass --name, --status, --progress, --eta or --project")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "task name")
	cmd.Flags().StringVar(&status, "status", "", "In-progress, Done, On-hold or Cancelled")
	cmd.Flags().IntVar(&progress, "progress", 0, "progress percentage (0-100)")
	cmd.Flags().StringVar(&eta, "eta", "", "ETA (YYYY-MM-DD)")
	cmd.Flags().StringVar(&projectID, "project", "", "move the task to this project")
	return cmd
}

func taskAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <task-id> [person-id]",
		Short: "Assign a task to one person, or unassign it when no person is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			personID := ""
			if len(args) == 2 {
				personID = args[1]
			}
			return editReport(cmd, func(d *editor.Draft) error {
				return d.Assign(args[0], personID)
			})
		},
	}
}

func taskAddCmd() *cobra.Command {
	var in editor.NewTask
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editReport(cmd, func(d *editor.Draft) error {
				task, err := d.AddTask(in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", task.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "task name (required)")
	cmd.Flags().StringVar(&in.ProjectID, "project", "", "project id (required)")
	cmd.Flags().StringVar(&in.ETA, "eta", "", "ETA (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&in.PersonID, "person", "", "assignee id")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editReport(cmd, func(d *editor.Draft) error {
				return d.DeleteTask(args[0])
			})
		},
	}
}

// editReport applies fn to a draft of the active report and commits it.
func editReport(cmd *cobra.Command, fn func(*editor.Draft) error) error {
	return withReport(cmd.Context(), nil, func(ctx context.Context, e engine.Engine, rep domain.Report) error {
		d := editor.New(rep.Model)
		if err := fn(d); err != nil {
			return err
		}
		updated, err := e.CommitDraft(ctx, rep.ID, d, viper.GetString("actor-id"))
		if err != nil {
			return err
		}
		if viper.GetBool("json") {
			return printJSON(updated)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "report %s updated at %s\n", updated.ID, updated.UpdatedAt)
		return nil
	})
}

// --- export ---

func exportCmd() *cobra.Command {
	var formatRaw, viewRaw, out string
	var noRisks bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a view as PDF, PNG or HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(formatRaw)
			if err != nil {
				return err
			}
			view, err := export.ParseView(viewRaw)
			if err != nil {
				return err
			}
			return withReport(cmd.Context(), nil, func(ctx context.Context, e engine.Engine, rep domain.Report) error {
				x := export.New(e.Config.Export, logging.Logger)
				res, err := x.Export(ctx, format, export.Request{
					Title:        rep.Title,
					View:         view,
					Views:        projection.Build(rep.Model),
					GeneratedAt:  time.Now(),
					IncludeRisks: !noRisks,
				})
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = res.Filename
				} else if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					path = filepath.Join(path, res.Filename)
				}
				if err := os.WriteFile(path, res.Data, 0o644); err != nil {
					return err
				}
				if err := e.RecordExport(ctx, rep.ID, string(format), filepath.Base(path), viper.GetString("actor-id")); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(res.Data))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&formatRaw, "format", "pdf", "pdf, png or html")
	cmd.Flags().StringVar(&viewRaw, "view", "project", "project, organization or people")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory (defaults to a name derived from the title)")
	cmd.Flags().BoolVar(&noRisks, "no-risks", false, "leave the risk analysis out")
	return cmd
}

// --- log ---

func logCmd() *cobra.Command {
	logc := &cobra.Command{Use: "log", Short: "Event log"}
	logc.AddCommand(logTailCmd())
	return logc
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, reportID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, 0, reportID, evtType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				render.EventsTable(cmd.OutOrStdout(), events)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&reportID, "for", "", "only events of this report")
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if strings.TrimSpace(e.Config.Server.JWTSecret) == "" {
					return errors.New("RESOURCEMAP_JWT_SECRET must be set to serve the API")
				}
				oracle.LogSummary(logging.Logger, e.Config.Oracle)
				if addr == "" {
					addr = e.Config.Server.Addr
				}
				if basePath == "" {
					basePath = e.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{
					Engine:   e,
					Exporter: export.New(e.Config.Export, logging.Logger),
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: e.Config.Server.JWTSecret, Logger: logging.Logger},
					Logger:   logging.Logger,
				})
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				server.StartWebhooks(ctx, e.Repo, e.Config.Webhooks, logging.Logger)

				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				errCh := make(chan error, 1)
				go func() { errCh <- srv.ListenAndServe() }()
				fmt.Fprintf(cmd.OutOrStdout(), "serving on http://%s (docs at /docs)\n", addr)
				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return err
				case <-ctx.Done():
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				}
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config server.base_path)")
	return cmd
}

func tokenCmd() *cobra.Command {
	var subject string
	var roles []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if subject == "" {
				subject = viper.GetString("actor-id")
			}
			token, err := server.SignToken(cfg.Server.JWTSecret, subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (defaults to --actor-id)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role claim (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime; 0 for no expiry")
	return cmd
}

func apiKeyCmd() *cobra.Command {
	keys := &cobra.Command{Use: "apikey", Short: "Manage API keys for the HTTP API"}
	var name string
	create := &cobra.Command{
		Use:   "create [actor-id]",
		Short: "Create an API key; the secret is printed once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor := viper.GetString("actor-id")
			if len(args) == 1 {
				actor = args[0]
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				secret, key, err := e.CreateAPIKey(ctx, actor, name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"key": key, "secret": secret})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\nid: %s (actor %s)\n", secret, key.ID, key.ActorID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "label for the key")
	var actorFilter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, actorFilter)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				render.APIKeysTable(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
	list.Flags().StringVar(&actorFilter, "actor", "", "only keys of this actor")
	revoke := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.DeleteAPIKey(ctx, args[0]); err != nil {
					return fmt.Errorf("revoke %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
				return nil
			})
		},
	}
	keys.AddCommand(create, list, revoke)
	return keys
}

// --- config ---

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration without secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{
					"oracle": map[string]any{
						"provider":        cfg.Oracle.Provider,
						"model":           cfg.Oracle.EffectiveModel(),
						"gateway_url":     cfg.Oracle.GatewayURL,
						"has_credentials": cfg.Oracle.HasCredentials(),
					},
					"server":   cfg.Server,
					"export":   cfg.Export,
					"webhooks": cfg.Webhooks,
				})
			}
			out, err := cfg.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			fmt.Fprintf(cmd.OutOrStdout(), "# credentials for %s: %v\n", cfg.Oracle.Provider, cfg.Oracle.HasCredentials())
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate resourcemap.yml and the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if err := cfg.ApplyEnv(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok (provider %s, model %s)\n", cfg.Oracle.Provider, cfg.Oracle.EffectiveModel())
			if !cfg.Oracle.HasCredentials() {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s credentials are not set\n", cfg.Oracle.Provider)
			}
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default resourcemap.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return withRepo(ctx, func(ctx context.Context, r repo.Repo) error {
		o := oracle.New(cfg.Oracle, oracle.WithLogger(logging.Logger))
		e := engine.New(r.DB, cfg, o)
		e.Logger = logging.Logger
		return fn(ctx, e)
	})
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(ctx, conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

// withReport resolves the report named by args[0], --report, or the latest
// report, in that order.
func withReport(ctx context.Context, args []string, fn func(context.Context, engine.Engine, domain.Report) error) error {
	override := viper.GetString("report")
	if len(args) > 0 {
		override = args[0]
	}
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		rep, err := app.ResolveReport(ctx, override, e.Repo)
		if err != nil {
			return err
		}
		return fn(ctx, e, rep)
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
