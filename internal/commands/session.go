package commands

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jask/splitledger/internal/model"
)

func newSessionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create and list monthly reconciliation sessions",
	}
	cmd.AddCommand(newSessionCreateCommand(a), newSessionListCommand(a), newSessionReplaceCommand(a))
	return cmd
}

func newSessionCreateCommand(a *app) *cobra.Command {
	var month, rent string
	var household []string
	var allowDuplicate bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a session for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if existing, err := a.svc.Sessions.FindForMonth(ctx, month); err != nil {
				return err
			} else if existing != nil && !allowDuplicate {
				return fmt.Errorf("session %s already covers %s; use it, replace it, or pass --allow-duplicate", existing.ID, month)
			}
			rentCents, err := parseCents(rent)
			if err != nil {
				return err
			}
			sess, err := a.svc.Sessions.CreateSession(ctx, month, household, rentCents)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month covered, YYYY-MM (required)")
	_ = cmd.MarkFlagRequired("month")
	cmd.Flags().StringSliceVar(&household, "household", nil, "household member names, comma separated")
	cmd.Flags().StringVar(&rent, "rent", "", "monthly rent amount")
	cmd.Flags().BoolVar(&allowDuplicate, "allow-duplicate", false, "create even if the month already has a session")
	return cmd
}

func newSessionListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.svc.Sessions.List(cmd.Context())
			if err != nil {
				return err
			}
			a.printer(cmd).Sessions(list)
			return nil
		},
	}
}

func newSessionReplaceCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replace <session-id>",
		Short: "Delete every record and link of a session so its feeds can be uploaded again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Sessions.ReplaceSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printer(cmd).Notice("cleared " + args[0])
			return nil
		},
	}
}

func newIngestCommand(a *app) *cobra.Command {
	var bankPath, sharedPath string
	var replace bool

	cmd := &cobra.Command{
		Use:   "ingest <session-id>",
		Short: "Load both feeds into a session and reconcile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if replace {
				if err := a.svc.Sessions.ReplaceSession(ctx, args[0]); err != nil {
					return err
				}
			}
			sess, err := a.svc.Sessions.Get(ctx, args[0])
			if err != nil {
				return err
			}
			bank, err := os.Open(bankPath)
			if err != nil {
				return fmt.Errorf("open bank feed: %w", err)
			}
			defer bank.Close()
			shared, err := os.Open(sharedPath)
			if err != nil {
				return fmt.Errorf("open shared feed: %w", err)
			}
			defer shared.Close()

			res, err := a.svc.Pipeline.Process(ctx, sess, bank, shared)
			a.printer(cmd).Process(res)
			return err
		},
	}
	cmd.Flags().StringVar(&bankPath, "bank", "", "bank statement CSV (required)")
	cmd.Flags().StringVar(&sharedPath, "shared", "", "shared-expense CSV export (required)")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("shared")
	cmd.Flags().BoolVar(&replace, "replace", false, "clear the session's records first")
	return cmd
}

// parseCents reads an optional decimal amount.
func parseCents(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", s, model.ErrInvalidInput)
	}
	c := d.Shift(2).Round(0).IntPart()
	return &c, nil
}
