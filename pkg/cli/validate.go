package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashgrove/mimic/pkg/config"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate configuration documents without starting the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(cmd, dir)
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, dir string) error {
	loader := config.NewDirectoryLoader(dir)
	result, err := loader.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(result.Errors) == 0 {
		fmt.Fprintf(out, "%d document(s) loaded from %s, no errors\n", result.FileCount, dir)
		return nil
	}

	for _, e := range result.Errors {
		fmt.Fprintf(out, "%s: %s\n", e.Path, e.Message)
	}
	return fmt.Errorf("%d of %d document(s) failed to load", len(result.Errors), result.FileCount)
}
