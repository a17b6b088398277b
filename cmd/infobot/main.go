// Command infobot serves the project information menu over Telegram.
package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Printf("infobot: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "infobot",
		Short:         "Telegram bot with a project information menu",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newScreensCmd())
	root.AddCommand(newVersionCmd())

	return root
}
