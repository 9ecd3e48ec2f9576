// Package cli implements faqctl, the operator command line for the FAQ
// service. It drives the same components as the HTTP server against the
// local database.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/yuh2k/FAQ-system/internal/app"
)

// NewRootCmd creates the top-level "faqctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(a *app.App) *cobra.Command {
	root := &cobra.Command{
		Use:           "faqctl",
		Short:         "Operate the FAQ assistant from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newAskCmd(a),
		newChatCmd(a),
		newTicketsCmd(a),
		newKBCmd(a),
	)

	return root
}
