package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuh2k/FAQ-system/internal/app"
	"github.com/yuh2k/FAQ-system/internal/chat"
	"github.com/yuh2k/FAQ-system/internal/compose"
)

func newAskCmd(a *app.App) *cobra.Command {
	var sessionID, contact string

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.Chat.Handle(cmd.Context(), chat.Request{
				Message:     strings.Join(args, " "),
				SessionID:   sessionID,
				UserContact: contact,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderReply(out, resp)
			fmt.Fprintf(out, "session: %s\n", resp.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Continue an existing session")
	cmd.Flags().StringVar(&contact, "contact", "", "Contact e-mail stored with the session and tickets")

	return cmd
}

func newChatCmd(a *app.App) *cobra.Command {
	var sessionID, contact string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively until the conversation ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())

			fmt.Fprint(out, "> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					fmt.Fprint(out, "> ")
					continue
				}

				resp, err := a.Chat.Handle(cmd.Context(), chat.Request{
					Message:     line,
					SessionID:   sessionID,
					UserContact: contact,
				})
				if err != nil {
					return err
				}
				sessionID = resp.SessionID
				renderReply(out, resp)
				if resp.ChatEnded {
					return nil
				}
				fmt.Fprint(out, "> ")
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Continue an existing session")
	cmd.Flags().StringVar(&contact, "contact", "", "Contact e-mail stored with the session and tickets")

	return cmd
}

// renderReply prints the visible text and turns the choice block into a
// numbered menu.
func renderReply(w io.Writer, resp *chat.Response) {
	visible, options := compose.ParseChoices(resp.Response)
	fmt.Fprintln(w, visible)
	for i, o := range options {
		fmt.Fprintf(w, "  [%d] %s: %s\n", i+1, o.Label, o.Description)
	}
	if resp.TicketCreated && resp.TicketID != nil {
		fmt.Fprintf(w, "ticket: #%d\n", *resp.TicketID)
	}
	if resp.ChatEnded {
		fmt.Fprintln(w, "(conversation ended)")
	}
}
