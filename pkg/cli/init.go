package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const starterConfig = `plugin: rest
resources:
  - method: GET
    path: /hello
    response:
      statusCode: 200
      data: '{"message": "hello from mockd"}'
`

func newInitCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "mockd.yaml", "path to write the starter configuration to")
	return cmd
}

func runInit(cmd *cobra.Command, file string) error {
	if _, err := os.Stat(file); err == nil {
		return fmt.Errorf("%s already exists", file)
	}

	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	if err := os.WriteFile(file, []byte(starterConfig), 0o644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", file)
	return nil
}
