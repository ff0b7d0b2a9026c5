// Package cli implements mockd's command tree: serve runs the mock
// server, validate and routes inspect a configuration directory
// without starting anything, and init scaffolds a starter document.
package cli

import (
	"github.com/spf13/cobra"
)

// BuildInfo carries version metadata injected at build time via
// ldflags, mirroring the teacher's cmd/mockd variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// NewRootCommand assembles the full mockd command tree.
func NewRootCommand(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:           "mockd",
		Short:         "Configuration-driven HTTP mock server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newServeCommand(),
		newValidateCommand(),
		newRoutesCommand(),
		newInitCommand(),
		newVersionCommand(info),
	)

	return root
}

// Execute runs the root command against os.Args and returns its exit
// code.
func Execute(info BuildInfo) int {
	if err := NewRootCommand(info).Execute(); err != nil {
		return 1
	}
	return 0
}
