package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrewsamuelsen/bowen/pkg/client"
	"github.com/andrewsamuelsen/bowen/pkg/config"
	"github.com/andrewsamuelsen/bowen/pkg/metrics"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/session"
	"github.com/andrewsamuelsen/bowen/pkg/utils"
	"github.com/andrewsamuelsen/bowen/pkg/workspace"
)

// flushTimeout bounds the final save when a client command exits.
const flushTimeout = 15 * time.Second

func newAPIClient() (*client.Client, *config.AppConfig, error) {
	cfg, _, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Client.Token == "" {
		return nil, nil, errors.New("no API token: set client.token or BOWEN_TOKEN")
	}
	return client.New(client.DefaultConfig(cfg.ClientBaseURL()), client.StaticToken(cfg.Client.Token)), cfg, nil
}

// withWorkspace loads the user's documents, runs fn and saves whatever fn
// changed before returning.
func withWorkspace(ctx context.Context, fn func(w *workspace.Workspace) error) error {
	c, cfg, err := newAPIClient()
	if err != nil {
		return err
	}
	w := workspace.New(c, nil,
		session.WithDelay(cfg.SaveDelay()),
		session.WithLogger(utils.GetLogger()),
		session.WithErrorHandler(func(name string, err error) {
			metrics.ClientSaveFailuresTotal.WithLabelValues(name).Inc()
		}),
	)
	defer w.Close()

	if err := w.Load(ctx); err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}
	runErr := fn(w)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	return errors.Join(runErr, w.Flush(flushCtx))
}

func printer(out io.Writer) func(string) {
	return func(chunk string) { fmt.Fprint(out, chunk) }
}

func newClientCmds() []*cobra.Command {
	chat := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a message to the therapist chat",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(w *workspace.Workspace) error {
				err := w.Send(cmd.Context(), strings.Join(args, " "), printer(cmd.OutOrStdout()))
				fmt.Fprintln(cmd.OutOrStdout())
				return err
			})
		},
	}

	var filter string
	cards := &cobra.Command{
		Use:   "cards",
		Short: "List reflection cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd.Context(), func(w *workspace.Workspace) error {
				doc := w.Cards.Snapshot()
				now := time.Now()
				for _, card := range models.DisplayCards(filter, &doc) {
					mark := " "
					if s := doc.Session(card.ID); s.Started() && (!card.Evergreen || models.CompletedToday(card, s, now)) {
						mark = "x"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %-20s %-18s %s\n", mark, card.ID, card.Category, card.Title)
				}
				return nil
			})
		},
	}
	cards.Flags().StringVar(&filter, "filter", "All", "category, All or Completed")

	card := &cobra.Command{
		Use:   "card <card-id> [reply]",
		Short: "Open a card, or reply to it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withWorkspace(cmd.Context(), func(w *workspace.Workspace) error {
				var err error
				if len(args) > 1 {
					err = w.ReplyToCard(cmd.Context(), args[0], strings.Join(args[1:], " "), printer(out))
				} else {
					err = w.GenerateInsight(cmd.Context(), args[0], printer(out))
				}
				fmt.Fprintln(out)
				return err
			})
		},
	}

	report := &cobra.Command{
		Use:   "report <framework>",
		Short: "Generate a framework report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(w *workspace.Workspace) error {
				saved, err := w.RunReport(cmd.Context(), models.Framework(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), saved.Report)
				return nil
			})
		},
	}

	people := &cobra.Command{
		Use:   "people",
		Short: "List people and relationship progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd.Context(), func(w *workspace.Workspace) error {
				g := w.Graph.Snapshot()
				progress := w.Progress()
				for _, p := range g.Nodes {
					fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", p.ID, p.Label)
				}
				for _, e := range g.Edges {
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s  %d%%\n", g.Label(e.Source), g.Label(e.Target), progress[e.ID])
				}
				return nil
			})
		},
	}

	usage := &cobra.Command{
		Use:   "usage",
		Short: "Show token usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := newAPIClient()
			if err != nil {
				return err
			}
			m, err := c.Metrics(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "input tokens:  %d\noutput tokens: %d\n", m.TotalInputTokens, m.TotalOutputTokens)
			if m.LastUpdated != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "last updated:  %s\n", m.LastUpdated.Local().Format(time.DateTime))
			}
			return nil
		},
	}

	return []*cobra.Command{chat, cards, card, report, people, usage}
}
