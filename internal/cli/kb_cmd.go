package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuh2k/FAQ-system/internal/app"
)

func newKBCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect the knowledge base",
	}

	cmd.AddCommand(
		newKBListCmd(a),
		newKBSearchCmd(a),
		newKBTopicCmd(a),
	)

	return cmd
}

func newKBListCmd(a *app.App) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List question/answer pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pairs := a.KB.Filter(filter)
			fmt.Fprintf(out, "Knowledge base %s (%d pairs)\n", a.KB.Name(), len(pairs))
			for _, p := range pairs {
				fmt.Fprintf(out, "\nQ: %s\nA: %s\n", p.Question, p.Answer)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Fuzzy filter on questions")

	return cmd
}

func newKBSearchCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Show the best matching question and its score",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.KB.Search(strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Question == "" {
				fmt.Fprintln(out, "No match.")
				return nil
			}
			fmt.Fprintf(out, "score: %.3f (threshold %.2f, matched %t)\n", res.Score, a.KB.Threshold(), res.Matched)
			fmt.Fprintf(out, "Q: %s\n", res.Question)
			if res.Matched {
				fmt.Fprintf(out, "A: %s\n", res.Answer)
			}
			return nil
		},
	}
}

func newKBTopicCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "topic",
		Short: "Detect the topic of the active knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.KB.DetectTopic())
			return nil
		},
	}
}
