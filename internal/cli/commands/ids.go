package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metacore/internal/cli/ui"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
	"github.com/conduit-lang/metacore/internal/reference"
	"github.com/conduit-lang/metacore/internal/serialization"
)

func newIDsCommand(a *app) *cobra.Command {
	var (
		dirs    []string
		resolve string
		depth   int
	)

	cmd := &cobra.Command{
		Use:   "ids [elements...]",
		Short: "List or resolve reference ids",
		Long: `Compile the sources and list the reference id of every instance owned by
the given elements, or by every element when none are given. With
--resolve, print the instance an id denotes instead.

Examples:
  metacore ids my::Person
  metacore ids --resolve "my::Person.properties['name']"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			rt, err := a.newRuntime(nil)
			if err != nil {
				return err
			}
			if _, err := a.load(ctx, rt, a.sourcePaths(dirs), out); err != nil {
				return err
			}
			support := rt.Support()
			version := a.cfg.ReferenceIDs.Version

			if resolve != "" {
				resolver, err := rt.ReferenceIDs().Resolver(version)
				if err != nil {
					return err
				}
				instance, err := resolver.ResolveReference(resolve)
				if err != nil {
					return err
				}
				return model.Print(out, instance, depth)
			}

			provider, err := rt.ReferenceIDs().Provider(version)
			if err != nil {
				return err
			}
			var elements []model.CoreInstance
			if len(args) == 0 {
				for _, e := range support.Elements() {
					if serialization.Serializable(support, e) {
						elements = append(elements, e)
					}
				}
			}
			for _, path := range args {
				e := support.PackageByUserPath(path)
				if e == nil {
					return notFound(path, elementPaths(support))
				}
				elements = append(elements, e)
			}

			table := ui.NewTable(out, "", "ID", "CLASSIFIER")
			for _, e := range elements {
				var ids []string
				classifiers := make(map[string]string)
				for instance := range reference.ElementPaths(support, e) {
					if !provider.HasReferenceID(instance) {
						continue
					}
					id, err := provider.ReferenceID(instance)
					if err != nil {
						return err
					}
					ids = append(ids, id)
					classifiers[id] = classifier(instance)
				}
				sort.Strings(ids)
				for _, id := range ids {
					table.AddRow(id, classifiers[id])
				}
			}
			return table.Render()
		},
	}

	cmd.Flags().StringSliceVar(&dirs, "dir", nil, "source directories (default is sources.paths)")
	cmd.Flags().StringVar(&resolve, "resolve", "", "print the instance with this reference id")
	cmd.Flags().IntVar(&depth, "depth", 1, "levels of property values printed with --resolve")

	return cmd
}

func elementPaths(support *navigation.Support) []string {
	var paths []string
	for _, e := range support.Elements() {
		if serialization.Serializable(support, e) {
			paths = append(paths, support.UserPath(e))
		}
	}
	return paths
}

// notFound reports a missing element, suggesting the closest known paths.
func notFound(path string, known []string) error {
	if similar := ui.Suggest(path, known, 3); len(similar) > 0 {
		return fmt.Errorf("element %s not found, did you mean: %s?", path, strings.Join(similar, ", "))
	}
	return fmt.Errorf("element %s not found", path)
}
