package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/rain-ambience/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after merging defaults, the config file, RAIN_* environment variables and flags.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Encode(cmd.OutOrStdout(), a.cfg, format)
		},
	}
	show.Flags().StringVarP(&format, "format", "f", config.FormatYAML, "output format: yaml or toml")

	var write, force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Print the commented default configuration",
		Long: `Print the commented default configuration. With --write, save it to the
--config path or the default location instead.`,
		Args: cobra.NoArgs,
		// The template must not depend on an existing, possibly broken, config
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if !write {
				_, err := fmt.Fprint(cmd.OutOrStdout(), config.DefaultConfigTemplate())
				return err
			}

			path := a.cfgFile
			if path == "" {
				path = config.DefaultPath()
			}
			if path == "" {
				return errors.New("cannot determine config location, pass --config")
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&write, "write", "w", false, "write the file instead of printing it")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, initCmd)
	return cmd
}
