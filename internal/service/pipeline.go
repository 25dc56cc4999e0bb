package service

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/jask/splitledger/internal/model"
	"github.com/jask/splitledger/internal/recon"
)

// Pipeline ingests both feeds of a session concurrently and reconciles
// once both are persisted.
type Pipeline struct {
	Ingest    *IngestService
	Reconcile *ReconcileService
}

// ProcessResult reports one full upload.
type ProcessResult struct {
	Bank    IngestResult
	Shared  IngestResult
	Summary recon.Summary
}

// Process is the upload entry point. Wait on the errgroup is the barrier:
// reconciliation never sees a partially ingested feed. An ingestion
// failure marks the session failed and skips reconciliation. The session
// lock is held for the ingest phase and taken again by the run.
func (p *Pipeline) Process(ctx context.Context, sess model.Session, bank, shared io.Reader) (ProcessResult, error) {
	var res ProcessResult
	unlock := p.Ingest.Locks.Lock(sess.ID)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := p.Ingest.importBank(gctx, sess, bank)
		res.Bank = r
		return err
	})
	g.Go(func() error {
		r, err := p.Ingest.importShared(gctx, sess, shared)
		res.Shared = r
		return err
	})
	err := g.Wait()
	unlock()
	if err != nil {
		p.Reconcile.fail(ctx, sess.ID, err)
		return res, fmt.Errorf("ingest session %s: %w", sess.ID, err)
	}
	sum, err := p.Reconcile.Run(ctx, sess.ID)
	res.Summary = sum
	return res, err
}
