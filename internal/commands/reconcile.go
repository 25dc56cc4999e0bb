package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jask/splitledger/internal/tui"
)

func newReconcileCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <session-id>",
		Short: "Run the matching engine over a session",
		Long: "Runs transfer detection, the three matching passes, settlement detection and\n" +
			"categorization. Safe to repeat: a second run changes nothing unless rules or\n" +
			"manual decisions changed in between.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			select {
			case res := <-a.svc.Reconcile.Start(ctx, args[0]):
				if res.Err != nil {
					return res.Err
				}
				a.printer(cmd).Summary(res.Summary)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

func newUnmatchedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unmatched <session-id>",
		Short: "List unresolved paid-for-group records with ranked bank candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sugg, err := a.svc.Manual.Unresolved(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printer(cmd).Suggestions(sugg)
			return nil
		},
	}
}

func newLinkCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <shared-id> <bank-id>",
		Short: "Confirm a shared record and bank record as the same payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.svc.Manual.Link(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			a.printer(cmd).Notice(fmt.Sprintf("linked %s <-> %s (%s)", l.SharedID, l.BankID, l.Method))
			return nil
		},
	}
}

func newSkipCommand(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "skip <shared-id>",
		Short: "Close a shared record without a bank match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Manual.Skip(cmd.Context(), args[0], reason); err != nil {
				return err
			}
			a.printer(cmd).Notice("skipped " + args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the record has no bank match (required)")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newReviewCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "review <session-id>",
		Short: "Interactively link or skip unresolved records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := tui.NewReview(cmd.Context(), a.svc.Manual, args[0], a.cfg.UI.CurrencySymbol)
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
			_, err := p.Run()
			return err
		},
	}
}
