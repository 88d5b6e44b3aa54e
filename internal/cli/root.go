package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"setupclojure/internal/actions"
	"setupclojure/internal/config"
	"setupclojure/internal/logx"
)

// Version is set during the build using ldflags. It is also the revision
// baked into persistent cache keys.
var Version = "dev"

var (
	configFile    string
	verbose       bool
	outputJSON    bool
	plainOutput   bool
	metricsFile   string
	toolCacheFlag string
	tempDirFlag   string
	logDir        string
)

// Execute runs the root cobra command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		reportFailure(os.Stdout, os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// reportFailure emits err once: as an error annotation inside a workflow job
// and as a plain line elsewhere.
func reportFailure(stdout, stderr io.Writer, err error) {
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		actions.New(stdout, nil).Fail(err.Error())
		return
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup-clojure",
		Short: "Install Clojure build tools and linters on CI runners",
		Long: `setup-clojure installs Leiningen, Boot, the Clojure CLI, Babashka, clj-kondo,
cljfmt, cljstyle and zprint into the runner tool cache and exports them to
later steps of the job.

Run without a subcommand inside a workflow step it reads the action inputs
(INPUT_LEIN, INPUT_CLI, ...). Use "install" to pick tools from the command
line or a config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logx.Setup(logx.Options{
				Out:     cmd.ErrOrStderr(),
				Actions: os.Getenv("GITHUB_ACTIONS") == "true",
				Verbose: verbose,
			})
			if logDir != "" {
				closer, err := logx.OpenFile(logDir)
				if err != nil {
					return err
				}
				cobra.OnFinalize(func() { _ = closer.Close() })
			}
			return nil
		},
		RunE: runAction,
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultFile, "Path to the config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "Disable the live progress view")
	cmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write install metrics in Prometheus text format to this file")
	cmd.PersistentFlags().StringVar(&toolCacheFlag, "tool-cache", "", "Tool cache root (default $RUNNER_TOOL_CACHE)")
	cmd.PersistentFlags().StringVar(&tempDirFlag, "temp", "", "Scratch directory for downloads (default $RUNNER_TEMP)")
	cmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write a timestamped log file into this directory")

	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// runAction is the workflow entry point: inputs win over the config file.
func runAction(cmd *cobra.Command, _ []string) error {
	act := actions.New(cmd.OutOrStdout(), nil)

	fromInputs, err := config.FromInputs(act.Input)
	if err != nil {
		return err
	}
	fileCfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log.WithField("config", configFile).Debug("loaded config")

	return install(cmd, fileCfg.Merge(fromInputs), act)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of this build",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
