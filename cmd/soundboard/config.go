package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/soundboard/internal/config"
)

var configShowOpts struct {
	format string
}

// configCmd represents the config command group.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration file merged over the defaults, after validation.

Formats: toml (default), yaml.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config, socket and log file paths",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config: %s\n", configPath())
		fmt.Fprintf(out, "socket: %s\n", socketPath())
		fmt.Fprintf(out, "log:    %s\n", config.LogPath())
	},
}

func init() {
	configShowCmd.Flags().StringVarP(&configShowOpts.format, "format", "f", "toml",
		"Output format (toml, yaml)")

	configCmd.AddCommand(configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := formatConfig(cfg, configShowOpts.format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func formatConfig(cfg *config.Config, format string) ([]byte, error) {
	switch format {
	case "toml", "":
		return cfg.Marshal()
	case "yaml", "yml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want toml or yaml)", format)
	}
}
