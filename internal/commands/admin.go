package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jask/splitledger/internal/config"
	"github.com/jask/splitledger/internal/testdata"
)

func newResetCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all sessions, records and rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset deletes everything; pass --yes to confirm")
			}
			if err := a.svc.Maintenance.Reset(cmd.Context()); err != nil {
				return err
			}
			a.printer(cmd).Notice("database reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Inspect or write the config file",
		Annotations: map[string]string{"db": "none"},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Save(a.configPath, a.cfg); err != nil {
				return err
			}
			a.printer(cmd).Notice("config written")
			return nil
		},
	})
	return cmd
}

func newSampleCommand(a *app) *cobra.Command {
	var month, dir, other string
	var seed uint64
	cmd := &cobra.Command{
		Use:         "sample",
		Short:       "Write a synthetic bank statement and shared-expense export",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"db": "none"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := time.Parse("2006-01", month)
			if err != nil {
				return fmt.Errorf("month %q: want YYYY-MM", month)
			}
			member := a.cfg.User.SplitwiseName
			if member == "" {
				member = "Me"
			}
			f := testdata.Generate(m, member, other, seed)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			for name, data := range map[string][]byte{"bank.csv": f.Bank, "shared.csv": f.Shared} {
				if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
					return err
				}
			}
			a.printer(cmd).Notice(fmt.Sprintf("wrote %d shared and %d personal expenses to %s", f.Pairs, f.Solo, dir))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", time.Now().Format("2006-01"), "statement month (YYYY-MM)")
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	cmd.Flags().StringVar(&other, "member", "Flatmate", "the other ledger member")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	return cmd
}
