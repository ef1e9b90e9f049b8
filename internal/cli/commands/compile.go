package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/metacore/internal/cli/ui"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

func newCompileCommand(a *app) *cobra.Command {
	var (
		observers []string
		top       int
		snapshot  string
	)

	cmd := &cobra.Command{
		Use:   "compile [dirs...]",
		Short: "Compile the model sources",
		Long: `Compile every model source under the given directories, or under the
configured sources.paths when none are given.

Examples:
  # Compile the configured sources
  metacore compile

  # Show the ten elements that took longest to bind
  metacore compile --observer timing --top 10

  # Write a canonical snapshot of the compiled graph
  metacore compile --snapshot build/graph.msgpack
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			names := append(append([]string(nil), a.cfg.Compile.Observers...), observers...)
			obs, timing, closeTrace, err := a.observers(ctx, names)
			if err != nil {
				return err
			}
			defer closeTrace()

			rt, err := a.newRuntime(obs)
			if err != nil {
				return err
			}
			metrics, err := a.load(ctx, rt, a.sourcePaths(args), out)
			if err != nil {
				return err
			}
			a.printSummary(out, metrics)

			if timing != nil {
				n := a.cfg.Compile.Top
				if cmd.Flags().Changed("top") {
					n = top
				}
				printTimings(out, rt.Support(), timing, n)
			}

			if snapshot != "" {
				data, err := rt.Snapshot(ctx)
				if err != nil {
					return fmt.Errorf("snapshot: %w", err)
				}
				if err := os.WriteFile(snapshot, data, 0o644); err != nil {
					return fmt.Errorf("write snapshot: %w", err)
				}
				fmt.Fprintf(out, "Snapshot written to %s (%d bytes)\n", snapshot, len(data))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&observers, "observer", nil, "additional observers (timing, trace, log, metrics, span)")
	cmd.Flags().IntVar(&top, "top", 10, "number of timings to show")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "write a snapshot of the compiled graph to this file")

	return cmd
}

func printTimings(w io.Writer, support *navigation.Support, timing timings, n int) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "\nProcessing time (%d instances, %s total)\n", timing.Len(), timing.Total())
	table := ui.NewTable(w, "  ", "INSTANCE", "CLASSIFIER", "DURATION")
	for _, t := range timing.Longest(n) {
		table.AddRow(describe(support, t.Instance), classifier(t.Instance), t.Duration.String())
	}
	table.Render()
}

func describe(support *navigation.Support, instance model.CoreInstance) string {
	if support.IsPackageable(instance) {
		return support.UserPath(instance)
	}
	if name := instance.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("Anonymous_%d", instance.ID())
}

func classifier(instance model.CoreInstance) string {
	if c := instance.Classifier(); c != nil {
		return c.Name()
	}
	return ""
}
