package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/m3rciful/infobot/core/menu/content"
)

func newScreensCmd() *cobra.Command {
	var (
		contentFile string
		backToken   string
	)
	cmd := &cobra.Command{
		Use:   "screens",
		Short: "Validate a content file and list its screens in menu order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := content.Load(contentFile, backToken)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tSCREEN\tLABEL")
			for _, s := range reg.Screens() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Token, s.ID, s.Label)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", reg.BackToken(), content.Menu, reg.BackLabel())
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&contentFile, "content", "", "content file (built-in menu when empty)")
	cmd.Flags().StringVar(&backToken, "back-token", "", "override the back control token")
	return cmd
}
