package commands

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/reference"
	"github.com/conduit-lang/metacore/internal/serialization"
)

func newInspectCommand(a *app) *cobra.Command {
	var (
		warm        bool
		concurrency int
		depth       int
	)

	cmd := &cobra.Command{
		Use:   "inspect [ids...]",
		Short: "Read a saved graph from the element store",
		Long: `Open the graph saved by 'metacore export' and print the instances with the
given reference ids, or list the stored elements when none are given.
Elements are loaded lazily; --warm loads every element and property up
front using several goroutines.

Examples:
  metacore inspect
  metacore inspect my::Person --depth 2
  metacore inspect --warm
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			s, err := a.openStore(a.cfg.Store)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			rt, err := a.newRuntime(nil)
			if err != nil {
				return err
			}
			resolver, err := rt.ReferenceIDs().Resolver(a.cfg.ReferenceIDs.Version)
			if err != nil {
				return err
			}
			loader := serialization.NewLoader(s, rt.Support(),
				serialization.WithLoaderLogger(a.logger),
				serialization.WithResolver(resolver))
			if err := loader.Open(ctx); err != nil {
				return err
			}

			if warm {
				start := time.Now()
				if err := loader.Warm(ctx, concurrency); err != nil {
					return fmt.Errorf("warm: %w", err)
				}
				color.New(color.FgGreen, color.Bold).Fprint(out, "✓ ")
				fmt.Fprintf(out, "Loaded %d element(s) in %s\n", len(loader.Paths()), time.Since(start).Round(time.Microsecond))
			}

			if len(args) == 0 {
				paths := loader.Paths()
				sort.Strings(paths)
				for _, path := range paths {
					fmt.Fprintln(out, path)
				}
				return nil
			}

			for i, id := range args {
				instance, err := lookup(ctx, loader, id)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := model.Print(out, instance, depth); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&warm, "warm", false, "load every element before printing")
	cmd.Flags().IntVar(&concurrency, "concurrency", runtime.GOMAXPROCS(0), "goroutines used by --warm")
	cmd.Flags().IntVar(&depth, "depth", 1, "levels of property values to print")

	return cmd
}

// lookup resolves id, materializing the element when id names a stored
// element rather than an instance inside one.
func lookup(ctx context.Context, loader *serialization.Loader, id string) (model.CoreInstance, error) {
	element, segments, err := reference.ParsePath(id)
	if err != nil {
		return nil, err
	}
	paths := loader.Paths()
	if !slices.Contains(paths, element) {
		return nil, notFound(element, paths)
	}
	if len(segments) == 0 {
		return loader.Element(ctx, id)
	}
	return loader.Resolve(ctx, id)
}
