package main

import (
	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/infobot/core/cmd"
	"github.com/m3rciful/infobot/internal/app"
)

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(cmd.Context(), corecmd.Options{
				ConfigPath:        configPath,
				ConfigEnvVar:      corecmd.DefaultConfigEnvVar,
				DefaultConfigPath: "config.yaml",
				LoadConfig:        app.LoadConfig,
				Bootstrap:         app.Bootstrap,
			})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config (default $CONFIG_PATH or config.yaml)")
	return cmd
}
