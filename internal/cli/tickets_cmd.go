package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yuh2k/FAQ-system/internal/app"
	"github.com/yuh2k/FAQ-system/internal/domain"
)

func newTicketsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Inspect and update support tickets",
	}

	cmd.AddCommand(
		newTicketsListCmd(a),
		newTicketsStatusCmd(a),
	)

	return cmd
}

func newTicketsListCmd(a *app.App) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status domain.TicketStatus
			if statusFlag != "" {
				parsed, err := domain.ParseTicketStatus(statusFlag)
				if err != nil {
					return err
				}
				status = parsed
			}

			tickets, err := a.Repo.ListTickets(cmd.Context(), status)
			if err != nil {
				return err
			}
			if len(tickets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tickets.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tCONTACT\tCREATED\tQUESTION")
			for _, t := range tickets {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
					t.ID, t.Status, t.UserContact, t.CreatedAt.Format("2006-01-02 15:04"), truncate(t.UserQuestion, 60))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status (open, in_progress, closed)")

	return cmd
}

func newTicketsStatusCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a ticket to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ticket id %q", args[0])
			}
			status, err := domain.ParseTicketStatus(args[1])
			if err != nil {
				return err
			}

			t, err := a.Repo.UpdateTicketStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ticket #%d is now %s\n", t.ID, t.Status)
			return nil
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
