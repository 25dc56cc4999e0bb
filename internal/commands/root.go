package commands

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/splitledger/internal/config"
	"github.com/jask/splitledger/internal/database"
	"github.com/jask/splitledger/internal/report"
	"github.com/jask/splitledger/internal/service"
)

// app is the state shared by every sub-command once the root pre-run has
// loaded config and opened the database.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg config.Config
	db  *sql.DB
	svc *service.Services
	log *slog.Logger
}

func (a *app) printer(cmd *cobra.Command) report.Printer {
	return report.Printer{W: cmd.OutOrStdout(), Currency: a.cfg.UI.CurrencySymbol}
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "splitledger",
		Short: "Reconcile a bank statement against a shared-expense ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $HOME/.config/splitledger/config.toml)")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "sqlite database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newSessionCommand(a),
		newIngestCommand(a),
		newReconcileCommand(a),
		newUnmatchedCommand(a),
		newLinkCommand(a),
		newSkipCommand(a),
		newReviewCommand(a),
		newEntriesCommand(a),
		newMetricsCommand(a),
		newCompareCommand(a),
		newRecurringCommand(a),
		newRulesCommand(a),
		newResetCommand(a),
		newConfigCommand(a),
		newSampleCommand(a),
	)
	return rootCmd
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg
	a.log = newLogger(cmd, cfg.Log.Level, a.verbose)
	slog.SetDefault(a.log)

	if skipsDatabase(cmd) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := database.RunMigrationsWithDB(db); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	a.db = db
	a.svc = service.New(db, service.Options{
		UserID:               cfg.User.ID,
		SplitwiseName:        cfg.User.SplitwiseName,
		KnownNames:           cfg.Matching.KnownNames,
		SettlementWindowDays: cfg.Matching.SettlementWindowDays,
		Loc:                  cfg.Location(),
		Log:                  a.log,
	})
	return nil
}

// skipsDatabase reports whether cmd only touches the config file.
func skipsDatabase(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["db"] == "none" {
			return true
		}
	}
	return false
}

func newLogger(cmd *cobra.Command, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
}
