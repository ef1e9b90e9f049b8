package commands

import (
	"context"
	"runtime"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metacore/internal/cli/config"
	"github.com/conduit-lang/metacore/internal/logging"
	mcruntime "github.com/conduit-lang/metacore/internal/runtime"
	"github.com/conduit-lang/metacore/internal/telemetry"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	configFile string
	logLevel   string
	extensions []mcruntime.Extension

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	shutdown telemetry.Shutdown
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	if a.logger, err = logging.New(cfg.Log); err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.shutdown, err = telemetry.Setup(cmd.Context(), cfg.Telemetry, Version, a.logger)
	return err
}

// teardown flushes the exporter and the logger. It may be called more
// than once.
func (a *app) teardown() error {
	var err error
	if a.shutdown != nil {
		err = a.shutdown(context.Background())
		a.shutdown = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

// NewRootCommand creates the root command. The extensions are registered
// with every runtime the subcommands create.
func NewRootCommand(extensions ...mcruntime.Extension) *cobra.Command {
	cmd, _ := newRootCommand(extensions...)
	return cmd
}

func newRootCommand(extensions ...mcruntime.Extension) (*cobra.Command, *app) {
	a := &app{extensions: extensions}

	rootCmd := &cobra.Command{
		Use:   "metacore",
		Short: "Incremental compiler for metamodel sources",
		Long: color.CyanString(`metacore - incremental metamodel compiler

metacore parses model sources into an instance graph, binds references
between elements and keeps the graph consistent as sources are created,
modified and deleted.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is ./metacore.yml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newCompileCommand(a))
	rootCmd.AddCommand(newIDsCommand(a))
	rootCmd.AddCommand(newExportCommand(a))
	rootCmd.AddCommand(newInspectCommand(a))
	rootCmd.AddCommand(newWatchCommand(a))

	return rootCmd, a
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the metacore version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "metacore version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute(ctx context.Context, extensions ...mcruntime.Extension) error {
	rootCmd, a := newRootCommand(extensions...)
	defer a.teardown()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
