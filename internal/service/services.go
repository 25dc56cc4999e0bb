package service

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/jask/splitledger/internal/database/repository"
)

// Options carries the user-level settings the services need.
type Options struct {
	UserID               string
	SplitwiseName        string
	KnownNames           []string
	SettlementWindowDays int
	Loc                  *time.Location
	Log                  *slog.Logger
}

// Services is the wired service layer over one database.
type Services struct {
	Sessions    *SessionService
	Ingest      *IngestService
	Reconcile   *ReconcileService
	Pipeline    *Pipeline
	Manual      *ManualService
	Rules       *RuleService
	Metrics     *MetricsService
	Maintenance *MaintenanceService
}

// New builds the repositories and services. Every service that mutates a
// session shares one set of session locks.
func New(db *sql.DB, opts Options) *Services {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	store := Store{
		Sessions: repository.NewSessionRepo(db),
		Bank:     repository.NewBankRepo(db),
		Shared:   repository.NewSharedRepo(db),
		Ledger:   repository.NewLedgerRepo(db),
		Rules:    repository.NewRuleRepo(db),
	}
	locks := &SessionLocks{}
	ingest := &IngestService{
		Sessions:      store.Sessions,
		Bank:          store.Bank,
		Shared:        store.Shared,
		Locks:         locks,
		SplitwiseName: opts.SplitwiseName,
		Loc:           opts.Loc,
		Log:           opts.Log,
	}
	reconcile := &ReconcileService{
		Store:                store,
		Locks:                locks,
		KnownNames:           opts.KnownNames,
		SettlementWindowDays: opts.SettlementWindowDays,
		Log:                  opts.Log,
	}
	return &Services{
		Sessions: &SessionService{
			DB:       db,
			Sessions: store.Sessions,
			Records:  repository.NewEntryRepo(db),
			Locks:    locks,
			UserID:   opts.UserID,
		},
		Ingest:      ingest,
		Reconcile:   reconcile,
		Pipeline:    &Pipeline{Ingest: ingest, Reconcile: reconcile},
		Manual:      &ManualService{Store: store, Locks: locks, Log: opts.Log},
		Rules:       &RuleService{Rules: store.Rules, UserID: opts.UserID},
		Metrics:     &MetricsService{Store: store, UserID: opts.UserID},
		Maintenance: &MaintenanceService{DB: db},
	}
}
