// Package main is the havik terminal issues dashboard.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/raklev/havik/internal/adapters/provider/filesource"
	"github.com/raklev/havik/internal/adapters/server/mcpapi"
	"github.com/raklev/havik/internal/adapters/storage/sqlite"
	"github.com/raklev/havik/internal/app"
	"github.com/raklev/havik/internal/board"
	"github.com/raklev/havik/internal/config"
	"github.com/raklev/havik/internal/platform"
	"github.com/raklev/havik/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// rootFlags carries the persistent CLI flags shared by every command.
type rootFlags struct {
	configPath string
	dataPath   string
	dbPath     string
	appName    string
	devMode    bool
}

// runtime bundles everything the commands wire up from flags, env, and
// the config file.
type runtime struct {
	flags  rootFlags
	paths  platform.Paths
	cfg    config.Config
	logger *runtimeLogger
}

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run builds the command tree and executes it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// newRootCmd assembles the havik command tree.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := rootFlags{}

	root := &cobra.Command{
		Use:          "havik",
		Short:        "Terminal dashboard for issues across repos and task streams",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBoard(flags, stderr)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&flags.dataPath, "data", "", "path to the board data file")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "path to the action-log sqlite database")
	root.PersistentFlags().StringVar(&flags.appName, "app", "", "application name for config/data path resolution")
	root.PersistentFlags().BoolVar(&flags.devMode, "dev", version == "dev", "use dev mode paths (<app>-dev)")

	root.AddCommand(newServeCmd(&flags, stderr))
	root.AddCommand(newSnapshotCmd(&flags, stdout))
	root.AddCommand(newPathsCmd(&flags, stdout))
	return root
}

// newPathsCmd prints the resolved filesystem locations.
func newPathsCmd(flags *rootFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data locations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(*flags, io.Discard)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Close() }()
			_, _ = fmt.Fprintf(stdout, "app: %s\n", rt.flags.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", rt.flags.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", rt.flags.configPath)
			_, _ = fmt.Fprintf(stdout, "data: %s\n", rt.flags.dataPath)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", rt.flags.dbPath)
			_, _ = fmt.Fprintf(stdout, "log: %s\n", rt.paths.LogPath)
			return nil
		},
	}
}

// resolveRuntime folds env overrides into the flags, resolves platform
// paths, and loads the config file.
func resolveRuntime(flags rootFlags, stderr io.Writer) (runtime, error) {
	if flags.appName == "" {
		if envApp := strings.TrimSpace(os.Getenv("HAVIK_APP_NAME")); envApp != "" {
			flags.appName = envApp
		} else {
			flags.appName = "havik"
		}
	}
	if envDev, ok := parseBoolEnv("HAVIK_DEV_MODE"); ok {
		flags.devMode = envDev
	}

	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: flags.appName,
		DevMode: flags.devMode,
	})
	if err != nil {
		return runtime{}, err
	}

	if flags.configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("HAVIK_CONFIG")); envPath != "" {
			flags.configPath = envPath
		} else {
			flags.configPath = paths.ConfigPath
		}
	}
	if flags.dataPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("HAVIK_DATA")); envPath != "" {
			flags.dataPath = envPath
		} else {
			flags.dataPath = filepath.Join(paths.DataDir, "board.json")
		}
	}
	dbOverridden := strings.TrimSpace(flags.dbPath) != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("HAVIK_DB_PATH")); envPath != "" {
			flags.dbPath = envPath
			dbOverridden = true
		} else {
			flags.dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(flags.configPath, config.Default(flags.dbPath))
	if err != nil {
		return runtime{}, fmt.Errorf("load config %q: %w", flags.configPath, err)
	}
	if dbOverridden {
		cfg.Log.Path = flags.dbPath
	}

	logger, err := newRuntimeLogger(stderr, flags.appName, flags.devMode, paths.LogPath)
	if err != nil {
		return runtime{}, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger.base.Info("startup configuration resolved", "app", flags.appName, "dev_mode", flags.devMode)
	logger.base.Debug("runtime paths resolved", "config_path", flags.configPath, "data_path", flags.dataPath, "db_path", cfg.Log.Path, "log_path", paths.LogPath)

	return runtime{flags: flags, paths: paths, cfg: cfg, logger: logger}, nil
}

// engine is the fully wired session stack shared by the board and
// serve commands.
type engine struct {
	session   *app.Session
	orch      *app.Orchestrator
	actions   *app.ActionLog
	data      app.DataProvider
	refresher *app.Refresher
	details   *app.DetailCache
	notices   chan app.Notice
	store     *sqlite.Store
}

// close releases the engine's durable resources.
func (e *engine) close(logger *charmLog.Logger) {
	if err := e.store.Close(); err != nil {
		logger.Warn("sqlite close failed", "err", err)
	}
}

// buildEngine wires the provider, store, and session engine from the
// resolved runtime.
func buildEngine(rt runtime) (*engine, error) {
	logger := rt.logger.base

	if err := filesource.Seed(rt.flags.dataPath, seedSources(rt.cfg.Sources)); err != nil {
		return nil, fmt.Errorf("seed board file: %w", err)
	}
	provider, err := filesource.New(rt.flags.dataPath)
	if err != nil {
		return nil, fmt.Errorf("open board file: %w", err)
	}

	logger.Info("opening action-log store", "db_path", rt.cfg.Log.Path)
	store, err := sqlite.Open(rt.cfg.Log.Path)
	if err != nil {
		return nil, fmt.Errorf("open action-log store: %w", err)
	}

	session := app.NewSession(board.Config{TerminalStatuses: rt.cfg.Board.TerminalStatuses})
	actions := app.NewActionLog(store, logger)
	notices := make(chan app.Notice, 16)
	notify := func(n app.Notice) {
		select {
		case notices <- n:
		default:
		}
	}
	orch := app.NewOrchestrator(session, provider, provider, actions, notify, completionRules(rt.cfg.Completion), logger)
	refresher := app.NewRefresher(
		time.Duration(rt.cfg.Refresh.IntervalSeconds)*time.Second,
		rt.cfg.Refresh.PauseAfter,
	)

	return &engine{
		session:   session,
		orch:      orch,
		actions:   actions,
		data:      provider,
		refresher: refresher,
		details:   app.NewDetailCache(),
		notices:   notices,
		store:     store,
	}, nil
}

// runBoard launches the interactive dashboard.
func runBoard(flags rootFlags, stderr io.Writer) error {
	rt, err := resolveRuntime(flags, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Close() }()
	// Keep TUI rendering clean: runtime logs go to the file sink only
	// while the board is active.
	rt.logger.SetConsoleEnabled(false)
	logger := rt.logger.base

	eng, err := buildEngine(rt)
	if err != nil {
		logger.Error("engine wiring failed", "err", err)
		return err
	}
	defer eng.close(logger)

	m := tui.New(
		tui.Deps{
			Session:   eng.session,
			Orch:      eng.orch,
			Actions:   eng.actions,
			Data:      eng.data,
			Refresher: eng.refresher,
			Details:   eng.details,
			Notices:   eng.notices,
		},
		tui.WithKeyOverrides(rt.cfg.Keys.MultiSelect, rt.cfg.Keys.Undo, rt.cfg.Keys.Yank),
		tui.WithVersion(version),
	)

	logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("tui program complete")
	return nil
}

// newServeCmd exposes the live board over streamable HTTP MCP.
func newServeCmd(flags *rootFlags, stderr io.Writer) *cobra.Command {
	var (
		httpBind    string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board to agent clients over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *flags, stderr, httpBind, mcpEndpoint)
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "127.0.0.1:8080", "HTTP listen address")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "/mcp", "MCP streamable HTTP endpoint")
	return cmd
}

// runServe runs the serve subcommand flow.
func runServe(ctx context.Context, flags rootFlags, stderr io.Writer, httpBind, mcpEndpoint string) error {
	rt, err := resolveRuntime(flags, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Close() }()
	logger := rt.logger.base

	eng, err := buildEngine(rt)
	if err != nil {
		logger.Error("engine wiring failed", "err", err)
		return err
	}
	defer eng.close(logger)

	if err := eng.orch.Refetch(ctx); err != nil {
		logger.Error("initial fetch failed", "err", err)
		return fmt.Errorf("initial fetch: %w", err)
	}

	handler, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    rt.flags.appName,
		ServerVersion: version,
		EndpointPath:  mcpEndpoint,
	}, eng.session, eng.actions, eng.orch)
	if err != nil {
		return fmt.Errorf("configure mcp handler: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go refreshLoop(ctx, eng, logger)

	srv := &http.Server{
		Addr:              httpBind,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("mcp server listening", "addr", httpBind, "endpoint", mcpEndpoint)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown mcp server: %w", err)
		}
		logger.Info("mcp server stopped")
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("mcp server failed", "err", err)
			return fmt.Errorf("serve mcp: %w", err)
		}
		return nil
	}
}

// refreshLoop keeps the served board fresh on the configured interval.
func refreshLoop(ctx context.Context, eng *engine, logger *charmLog.Logger) {
	ticker := time.NewTicker(eng.refresher.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !eng.refresher.Begin() {
				continue
			}
			err := eng.orch.Refetch(ctx)
			eng.refresher.Finish(err)
			if err != nil {
				logger.Warn("background refresh failed", "err", err, "failures", eng.refresher.Failures())
			}
		}
	}
}

// seedSources converts configured sources into board-file seeds.
func seedSources(sources []config.SourceConfig) []filesource.SeedSource {
	out := make([]filesource.SeedSource, 0, len(sources))
	for _, src := range sources {
		out = append(out, filesource.SeedSource{
			ID:     src.ID,
			Name:   src.Name,
			Kind:   src.Kind,
			Groups: src.Groups,
		})
	}
	return out
}

// completionRules converts configured completion rules into their
// orchestrator form.
func completionRules(rules []config.CompletionRule) []app.CompletionRule {
	out := make([]app.CompletionRule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, app.CompletionRule{
			Status: rule.Status,
			Action: app.CompletionAction(strings.ToLower(strings.TrimSpace(rule.Action))),
			Arg:    rule.Arg,
		})
	}
	return out
}

// parseBoolEnv reads an optional boolean environment variable.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
