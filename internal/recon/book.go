package recon

import (
	"context"
	"sort"

	"github.com/jask/splitledger/internal/model"
)

// Book is the in-memory view of one session: two maps keyed by id plus
// the symmetric link relation. Order slices hold ids sorted by (date, id)
// so every scan is deterministic.
type Book struct {
	Bank   map[string]*model.BankRecord
	Shared map[string]*model.SharedRecord

	bankOrder   []string
	sharedOrder []string

	bySharedID map[string]model.Link
	byBankID   map[string]string
}

// NewBook copies the records into a Book.
func NewBook(bank []model.BankRecord, shared []model.SharedRecord, links []model.Link) *Book {
	b := &Book{
		Bank:       make(map[string]*model.BankRecord, len(bank)),
		Shared:     make(map[string]*model.SharedRecord, len(shared)),
		bySharedID: make(map[string]model.Link, len(links)),
		byBankID:   make(map[string]string, len(links)),
	}
	for i := range bank {
		rec := bank[i]
		b.Bank[rec.ID] = &rec
		b.bankOrder = append(b.bankOrder, rec.ID)
	}
	for i := range shared {
		rec := shared[i]
		b.Shared[rec.ID] = &rec
		b.sharedOrder = append(b.sharedOrder, rec.ID)
	}
	sort.SliceStable(b.bankOrder, func(i, j int) bool {
		x, y := b.Bank[b.bankOrder[i]], b.Bank[b.bankOrder[j]]
		if !x.Date.Equal(y.Date) {
			return x.Date.Before(y.Date)
		}
		return x.ID < y.ID
	})
	sort.SliceStable(b.sharedOrder, func(i, j int) bool {
		x, y := b.Shared[b.sharedOrder[i]], b.Shared[b.sharedOrder[j]]
		if !x.Date.Equal(y.Date) {
			return x.Date.Before(y.Date)
		}
		return x.ID < y.ID
	})
	for _, l := range links {
		b.bySharedID[l.SharedID] = l
		b.byBankID[l.BankID] = l.SharedID
	}
	return b
}

// BankRecords returns the bank records in (date, id) order.
func (b *Book) BankRecords() []*model.BankRecord {
	out := make([]*model.BankRecord, 0, len(b.bankOrder))
	for _, id := range b.bankOrder {
		out = append(out, b.Bank[id])
	}
	return out
}

// SharedRecords returns the shared records in (date, id) order.
func (b *Book) SharedRecords() []*model.SharedRecord {
	out := make([]*model.SharedRecord, 0, len(b.sharedOrder))
	for _, id := range b.sharedOrder {
		out = append(out, b.Shared[id])
	}
	return out
}

// LinkForShared returns the link that involves the shared record.
func (b *Book) LinkForShared(id string) (model.Link, bool) {
	l, ok := b.bySharedID[id]
	return l, ok
}

// LinkForBank returns the link that involves the bank record.
func (b *Book) LinkForBank(id string) (model.Link, bool) {
	sid, ok := b.byBankID[id]
	if !ok {
		return model.Link{}, false
	}
	return b.bySharedID[sid], true
}

// Links returns every link ordered by shared record order.
func (b *Book) Links() []model.Link {
	var out []model.Link
	for _, id := range b.sharedOrder {
		if l, ok := b.bySharedID[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// LinkChange is one atomic mutual update: both records move from
// UNLINKED to Status and, when Category is set, both take that category.
type LinkChange struct {
	Link           model.Link
	Status         model.Status
	Category       string
	CategorySource model.CategorySource
}

// Sink commits engine mutations. Link and MarkTransfer must fail with
// model.ErrStateConflict if a record is no longer UNLINKED.
type Sink interface {
	Link(ctx context.Context, change LinkChange) error
	MarkTransfer(ctx context.Context, bankID, category string) error
	Skip(ctx context.Context, sharedID, reason string) error
	SetCategory(ctx context.Context, source model.Source, id, category string, from model.CategorySource) error
}

func (b *Book) applyLink(c LinkChange) {
	bank, shared := b.Bank[c.Link.BankID], b.Shared[c.Link.SharedID]
	bank.Status, shared.Status = c.Status, c.Status
	if c.Category != "" {
		bank.Category, bank.CategorySource = c.Category, c.CategorySource
		shared.Category, shared.CategorySource = c.Category, c.CategorySource
	}
	b.bySharedID[c.Link.SharedID] = c.Link
	b.byBankID[c.Link.BankID] = c.Link.SharedID
}

// CommitLink writes the change through the sink and, on success, applies
// it to the book.
func (b *Book) CommitLink(ctx context.Context, sink Sink, c LinkChange) error {
	if err := sink.Link(ctx, c); err != nil {
		return err
	}
	b.applyLink(c)
	return nil
}
