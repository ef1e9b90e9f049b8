package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/metacore/internal/watch"
)

func newWatchCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "watch [dirs...]",
		Short: "Recompile the sources whenever they change",
		Long: `Compile the sources, then watch their directories and recompile
incrementally whenever a source is created, modified or deleted.

With --addr (or watch.metrics_addr) an HTTP server publishes:
  /events   compile events over WebSocket
  /status   the outcome of the last compile
  /sources  the known sources
  /metrics  Prometheus metrics

Examples:
  metacore watch
  metacore watch --addr localhost:9090
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.Watch.Addr
			}
			dirs := a.sourcePaths(args)
			for _, dir := range dirs {
				if info, err := os.Stat(dir); err != nil || !info.IsDir() {
					return fmt.Errorf("source directory %s not found", dir)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			obs, _, closeTrace, err := a.observers(ctx, a.cfg.Compile.Observers)
			if err != nil {
				return err
			}
			defer closeTrace()

			rt, err := a.newRuntime(obs)
			if err != nil {
				return err
			}

			events := watch.NewEventServer(a.logger.Named("events"))
			defer events.Close()

			session, err := watch.NewSession(rt, dirs, a.cfg.Sources.Extension,
				watch.WithSessionLogger(a.logger.Named("watch")),
				watch.WithEvents(events),
				watch.WithRegisterer(a.registry),
				watch.WithSessionDebounce(a.cfg.Watch.Debounce),
				watch.WithSessionIgnored(a.cfg.Watch.Ignore...),
			)
			if err != nil {
				return err
			}

			banner := color.New(color.FgCyan, color.Bold)
			info := color.New(color.FgWhite)
			out := cmd.OutOrStdout()

			fmt.Fprintln(out)
			banner.Fprintln(out, "metacore watch")
			for _, dir := range dirs {
				info.Fprintf(out, "   Watching: %s (*%s)\n", dir, a.cfg.Sources.Extension)
			}

			if addr != "" {
				server := watch.NewServer(session, events,
					watch.WithServerLogger(a.logger.Named("http")),
					watch.WithGatherer(a.registry),
					watch.WithProfiling(a.cfg.Watch.Profiling),
				)
				bound, err := server.Start(addr)
				if err != nil {
					return fmt.Errorf("failed to start HTTP server: %w", err)
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					server.Shutdown(shutdownCtx)
				}()
				info.Fprintf(out, "   Events:   ws://%s/events\n", bound)
				info.Fprintf(out, "   Metrics:  http://%s/metrics\n", bound)
			}
			fmt.Fprintln(out)
			color.New(color.FgYellow).Fprintln(out, "Press Ctrl+C to stop")
			fmt.Fprintln(out)

			if err := session.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}

			fmt.Fprintln(out, "\nShutting down...")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address of the events and metrics server (default is watch.metrics_addr)")

	return cmd
}
