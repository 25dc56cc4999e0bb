package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jask/splitledger/internal/model"
)

func newRulesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules (applied on the next reconcile)",
	}
	cmd.AddCommand(
		newRulesAddCommand(a),
		newRulesListCommand(a),
		newRulesDeleteCommand(a),
		newRulesExportCommand(a),
		newRulesImportCommand(a),
		newRulesSuggestCommand(a),
	)
	return cmd
}

func newRulesAddCommand(a *app) *cobra.Command {
	var r model.Rule
	var match, scope string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r.MatchType = model.MatchType(match)
			r.Scope = model.RuleScope(scope)
			saved, err := a.svc.Rules.Create(cmd.Context(), r)
			if err != nil {
				return err
			}
			a.printer(cmd).Notice(fmt.Sprintf("rule %q -> %s (%s, %s)", saved.Pattern, saved.Category, saved.MatchType, saved.Scope))
			return nil
		},
	}
	cmd.Flags().StringVar(&r.Pattern, "pattern", "", "text to look for in the description (required)")
	cmd.Flags().StringVar(&r.Category, "category", "", "category to assign (required)")
	cmd.Flags().StringVar(&match, "match", string(model.MatchContains), "contains, exact or starts_with")
	cmd.Flags().StringVar(&scope, "scope", string(model.ScopeBoth), "BANK, SPLITWISE or BOTH")
	_ = cmd.MarkFlagRequired("pattern")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newRulesListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules, highest precedence first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := a.svc.Rules.List(cmd.Context())
			if err != nil {
				return err
			}
			a.printer(cmd).Rules(rules)
			return nil
		},
	}
}

func newRulesDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Rules.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printer(cmd).Notice("deleted " + args[0])
			return nil
		},
	}
}

func newRulesExportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write rules as YAML to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.svc.Rules.Export(cmd.Context(), cmd.OutOrStdout())
			}
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			if err := a.svc.Rules.Export(cmd.Context(), f); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func newRulesImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add every rule of a YAML rules file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()
			n, err := a.svc.Rules.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			a.printer(cmd).Notice(fmt.Sprintf("imported %d rules", n))
			return nil
		},
	}
}

func newRulesSuggestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <description>",
		Short: "Propose a rule pattern for a bank description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.svc.Rules.SuggestPattern(args[0])
			if p == "" {
				return fmt.Errorf("no merchant token in %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}
