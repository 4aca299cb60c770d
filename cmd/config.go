package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vybe/internal/config"
	"vybe/internal/walker"
)

var flagForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the project configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newWorkingDirApp()
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := a.cfg.Marshal()
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config and ignore file for the current project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		path := flagConfig
		if path == "" {
			path = config.DefaultPath(wd)
		}
		out := cmd.OutOrStdout()

		if _, err := os.Stat(path); err == nil && !flagForce {
			fmt.Fprintf(out, "%s already exists (use --force to overwrite)\n", path)
		} else {
			cfg := config.DefaultConfig()
			applyFlags(cfg)
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", path)
		}

		wrote, err := walker.WriteIgnoreFile(wd, config.DefaultConfig().Index.Ignore)
		if err != nil {
			return fmt.Errorf("write %s: %w", walker.IgnoreFile, err)
		}
		if wrote {
			fmt.Fprintf(out, "Wrote %s\n", walker.IgnoreFile)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
