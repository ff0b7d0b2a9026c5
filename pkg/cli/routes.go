package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashgrove/mimic/pkg/engine"

	_ "github.com/ashgrove/mimic/pkg/plugin/openapi"
	_ "github.com/ashgrove/mimic/pkg/plugin/rest"
)

func newRoutesCommand() *cobra.Command {
	var dirs []string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List every resource the loaded configuration resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(dirs) == 0 {
				dirs = []string{"."}
			}
			return runRoutes(cmd, dirs)
		},
	}

	cmd.Flags().StringSliceVarP(&dirs, "dir", "d", nil, "configuration directory to load (repeatable, default \".\")")
	return cmd
}

func runRoutes(cmd *cobra.Command, dirs []string) error {
	manager := engine.NewManager()
	loadErrors, err := manager.Load(dirs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, le := range loadErrors {
		fmt.Fprintf(out, "warning: %s: %s\n", le.Path, le.Message)
	}

	for _, res := range manager.Routes() {
		method := res.Method
		if method == "" {
			method = "*"
		}
		fmt.Fprintf(out, "%-7s %s\n", method, res.Path)
	}
	return nil
}
