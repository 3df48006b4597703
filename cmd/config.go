package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yarlson/ralph-loop/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	flags := &overrideFlags{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved settings",
		Long:  "Merge the settings files with the command-line overrides, validate them, and print the result as YAML.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(cmd, a, flags)
		},
	}

	addOverrideFlags(cmd, flags)

	return cmd
}

func runConfig(cmd *cobra.Command, a *app, f *overrideFlags) error {
	settings, err := config.Inspect(a.configOptions(cmd, "", "", f))
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return enc.Close()
}
