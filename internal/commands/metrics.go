package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jask/splitledger/internal/database/repository"
	"github.com/jask/splitledger/internal/model"
)

func newEntriesCommand(a *app) *cobra.Command {
	var f repository.EntryFilter
	var source, status string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "entries <session-id>",
		Short: "Page through a session's records with their status and link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.SessionID = args[0]
			f.Source = model.Source(source)
			f.Status = model.Status(status)
			page, err := a.svc.Sessions.Entries(cmd.Context(), f)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(page)
			}
			a.printer(cmd).Entries(page)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "BANK or SPLITWISE")
	cmd.Flags().StringVar(&status, "status", "", "UNLINKED, LINKED, TRANSFER or SKIPPED")
	cmd.Flags().StringVar(&f.Category, "category", "", "exact category")
	cmd.Flags().IntVar(&f.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.Limit, "limit", repository.DefaultEntryLimit, "records per page (max 100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newMetricsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <session-id>",
		Short: "Show net consumption and its category breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.svc.Metrics.Session(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printer(cmd).Metrics(m)
			return nil
		},
	}
}

func newCompareCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <session-id>",
		Short: "Compare category spend with the previous completed session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.svc.Metrics.Compare(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printer(cmd).Comparison(c)
			return nil
		},
	}
}

func newRecurringCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recurring",
		Short: "Detect monthly subscriptions across all sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := a.svc.Metrics.Recurring(cmd.Context())
			if err != nil {
				return err
			}
			a.printer(cmd).Recurring(recs)
			return nil
		},
	}
}
