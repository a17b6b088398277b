package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/infobot/core/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "infobot %s\n", buildinfo.String())
			return err
		},
	}
}
