package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"setupclojure/internal/actions"
	"setupclojure/internal/config"
	"setupclojure/internal/metrics"
	"setupclojure/internal/setup"
	"setupclojure/internal/tools"
	"setupclojure/internal/tui"
)

var (
	installToken      string
	installInvalidate bool
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [tool[=version] ...]",
		Short: "Install Clojure tools",
		Long: `Install the given tools. A tool without a version installs the latest release.
Without arguments the tools listed in the config file are installed.

Example:
  setup-clojure install cli=1.11.1.1413 bb clj-kondo=2024.02.12`,
		RunE: runInstall,
	}

	cmd.Flags().StringVar(&installToken, "github-token", os.Getenv("GITHUB_TOKEN"), "Token for GitHub API and download requests")
	cmd.Flags().BoolVar(&installInvalidate, "invalidate-cache", false, "Skip restoring tools from the persistent cache")

	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	over := config.Config{GitHubToken: installToken, InvalidateCache: installInvalidate}
	if len(args) > 0 {
		pins, err := parseToolArgs(args)
		if err != nil {
			return err
		}
		cfg.Tools = pins
	}

	var act *actions.Runner
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		act = actions.New(cmd.OutOrStdout(), nil)
	}
	return install(cmd, cfg.Merge(over), act)
}

// parseToolArgs turns "tool=version" arguments into tool pins. A bare tool
// name pins "latest".
func parseToolArgs(args []string) (map[string]string, error) {
	pins := make(map[string]string, len(args))
	for _, arg := range args {
		name, version, found := strings.Cut(arg, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		version = strings.TrimSpace(version)
		if name == "" {
			return nil, fmt.Errorf("invalid tool argument %q", arg)
		}
		if !found || version == "" {
			version = tools.Latest
		}
		if _, dup := pins[name]; dup {
			return nil, fmt.Errorf("tool %q given more than once", name)
		}
		pins[name] = version
	}
	return pins, nil
}

// install runs the whole pipeline for cfg. act is nil outside a workflow job.
func install(cmd *cobra.Command, cfg config.Config, act *actions.Runner) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if envCache := env.runner.CacheConfig(); envCache.Dir != "" || envCache.Bucket != "" {
		cfg.Cache = envCache
	}

	for _, r := range cfg.Validate() {
		if r.Level == "warning" {
			log.Warn(r.Message)
		}
	}
	if err := cfg.Err(); err != nil {
		return err
	}

	reqs, err := setup.Plan(setup.Inputs(cfg.Tools), cfg.GitHubToken, env.platform)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	mode := tui.DetectMode(out, plainOutput, outputJSON, env.runner.UnderActions())

	var installOutput io.Writer = cmd.ErrOrStderr()
	if mode == tui.ModeTUI {
		installOutput = io.Discard
	}

	rec := metrics.New()
	installer, err := env.installer(installOutput, rec)
	if err != nil {
		return err
	}

	var publisher tools.Publisher = &processPublisher{}
	if act != nil {
		publisher = act
	}
	orch := &setup.Orchestrator{
		Installer: installer,
		Publisher: publisher,
		Cache:     env.persistentCache(cmd.Context(), cfg.Cache),
		Metrics:   rec,
	}
	opts := setup.Options{
		Requests:        reqs,
		InvalidateCache: cfg.InvalidateCache,
		Platform:        env.platform,
		ToolCacheDir:    env.paths.ToolCacheDir,
		CacheRevision:   Version,
	}

	var (
		summary setup.Summary
		runErr  error
	)
	if mode == tui.ModeTUI {
		names := make([]string, len(reqs))
		versions := make([]string, len(reqs))
		for i, r := range reqs {
			names[i], versions[i] = r.Tool, r.Version
		}
		model := tui.NewProgressModel("Installing Clojure tools", names, versions)
		err := tui.RunWithWork(cmd.Context(), out, model, func(ctx context.Context, send func(tea.Msg)) {
			orch.Reporter = tui.NewInstallReporter(send)
			summary, runErr = orch.Run(ctx, opts)
		})
		if err != nil {
			return err
		}
	} else {
		summary, runErr = orch.Run(cmd.Context(), opts)
	}

	switch mode {
	case tui.ModeJSON:
		data, err := json.MarshalIndent(tui.SummaryRows(summary), "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case tui.ModePlain:
		tui.RenderSummary(out, summary)
	default:
		for _, res := range summary.Failed() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Request.Tool, res.Err)
		}
	}

	if act != nil {
		act.Summary(tui.Markdown(summary))
	}
	if err := rec.WriteFile(metricsFile); err != nil {
		log.WithError(err).Warn("cannot write metrics file")
	}
	return runErr
}

// processPublisher exports into the current process only. Installs publish
// concurrently, so PATH updates are serialized.
type processPublisher struct {
	mu sync.Mutex
}

func (p *processPublisher) SetEnv(name, value string) {
	log.WithField(name, value).Debug("export")
	_ = os.Setenv(name, value)
}

func (p *processPublisher) AddPath(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	log.WithField("path", dir).Debug("add to PATH")
	_ = os.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
