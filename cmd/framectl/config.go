package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newConfigCmd())
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `The config command prints the configuration after defaults, the --config
file and FRAMEALLOC_* environment variables have been applied.

Example:
  framectl config
  framectl config --config framealloc.yaml --json
  FRAMEALLOC_TIERS_SMALL_PAGE_SIZE=131072 framectl config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig()
		},
	}
	return cmd
}

func runConfig() error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(c)
	}

	out, err := c.YAML()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
