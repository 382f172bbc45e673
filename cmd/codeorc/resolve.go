package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/codeorc/internal/resolver"
)

func newResolveCmd(a *app) *cobra.Command {
	var layers bool

	cmd := &cobra.Command{
		Use:   "resolve <modules.yaml>",
		Short: "Print the generation order of a module batch",
		Long: `Validates the module definitions and prints the order modules would be
generated in. Unknown dependencies and dependency cycles are reported.

Example:
  codeorc resolve modules.yaml
  codeorc resolve modules.yaml --layers`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modules, err := loadModules(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			order, err := resolver.Resolve(modules)
			if err != nil {
				return err
			}

			if layers {
				groups, err := resolver.Layers(modules)
				if err != nil {
					return err
				}
				for i, group := range groups {
					fmt.Fprintf(out, "%s %s\n", heading.Sprintf("layer %d:", i), strings.Join(group, ", "))
				}
				return nil
			}

			for i, id := range order {
				deps := modules[id].Dependencies
				if len(deps) == 0 {
					fmt.Fprintf(out, "%2d. %s\n", i+1, id)
					continue
				}
				fmt.Fprintf(out, "%2d. %s %s\n", i+1, id, faint.Sprintf("← %s", strings.Join(deps, ", ")))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&layers, "layers", false, "Group modules whose dependencies are all satisfied by earlier layers")
	return cmd
}
