package recon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/splitledger/internal/model"
)

// memSink applies mutations to its own copy of the records and enforces
// the UNLINKED precondition like the sqlite repository does.
type memSink struct {
	bank   map[string]*model.BankRecord
	shared map[string]*model.SharedRecord
	links  []model.Link
	writes int
	fail   error
}

func newMemSink(bank []model.BankRecord, shared []model.SharedRecord) *memSink {
	s := &memSink{bank: map[string]*model.BankRecord{}, shared: map[string]*model.SharedRecord{}}
	for i := range bank {
		b := bank[i]
		s.bank[b.ID] = &b
	}
	for i := range shared {
		r := shared[i]
		s.shared[r.ID] = &r
	}
	return s
}

func (m *memSink) Link(_ context.Context, c LinkChange) error {
	if m.fail != nil {
		return m.fail
	}
	b, s := m.bank[c.Link.BankID], m.shared[c.Link.SharedID]
	if b.Status != model.StatusUnlinked || s.Status != model.StatusUnlinked {
		return model.ErrStateConflict
	}
	b.Status, s.Status = c.Status, c.Status
	if c.Category != "" {
		b.Category, b.CategorySource = c.Category, c.CategorySource
		s.Category, s.CategorySource = c.Category, c.CategorySource
	}
	m.links = append(m.links, c.Link)
	m.writes++
	return nil
}

func (m *memSink) MarkTransfer(_ context.Context, id, category string) error {
	b := m.bank[id]
	if b.Status != model.StatusUnlinked {
		return model.ErrStateConflict
	}
	b.Status, b.Category, b.CategorySource = model.StatusTransfer, category, model.CategoryFromTransfer
	m.writes++
	return nil
}

func (m *memSink) Skip(_ context.Context, id, reason string) error {
	s := m.shared[id]
	if s.Status != model.StatusUnlinked {
		return model.ErrStateConflict
	}
	s.Status, s.SkipReason = model.StatusSkipped, reason
	m.writes++
	return nil
}

func (m *memSink) SetCategory(_ context.Context, src model.Source, id, category string, from model.CategorySource) error {
	if src == model.SourceBank {
		m.bank[id].Category, m.bank[id].CategorySource = category, from
	} else {
		m.shared[id].Category, m.shared[id].CategorySource = category, from
	}
	m.writes++
	return nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func bank(id, date string, cents int64, desc string) model.BankRecord {
	return model.BankRecord{ID: id, SessionID: "s1", Date: day(date), AmountCents: cents, Description: desc, Status: model.StatusUnlinked}
}

func payer(id, date string, total, contribution int64, desc string) model.SharedRecord {
	role, share := model.DeriveRole(false, total, contribution)
	return model.SharedRecord{
		ID: id, SessionID: "s1", Date: day(date), Description: desc,
		TotalCents: total, ContributionCents: contribution,
		Role: role, MyShareCents: share, FeedCategory: "General",
		Status: model.StatusUnlinked,
	}
}

func settlement(id, date string, total, contribution int64, desc string) model.SharedRecord {
	role, share := model.DeriveRole(true, total, contribution)
	return model.SharedRecord{
		ID: id, SessionID: "s1", Date: day(date), Description: desc,
		TotalCents: total, ContributionCents: contribution,
		Role: role, MyShareCents: share, FeedCategory: "Payment",
		Status: model.StatusUnlinked,
	}
}

func quietEngine() *Engine {
	return &Engine{Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func run(t *testing.T, e *Engine, bankRecs []model.BankRecord, shared []model.SharedRecord) (*Book, *memSink, Summary) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	book := NewBook(bankRecs, shared, nil)
	sink := newMemSink(bankRecs, shared)
	sum, err := e.Run(ctx, book, sink)
	require.NoError(t, err)
	return book, sink, sum
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"one shared token", "SWIGGY BANGALORE", "Swiggy dinner", 0.90},
		{"two shared tokens", "UPI RAHUL SHARMA OKAXIS", "Rahul Sharma", 0.95},
		{"clamped", "a b c d e", "a b c d e", 1.0},
		{"noise only shared", "UPI TXN 1", "UPI TXN 2", 0},
		{"identical after cleaning", "uber", "UBER", 0.90},
		{"empty", "", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.InDelta(t, tc.want, Similarity(tc.a, tc.b), 1e-9)
		})
	}

	// fallback, no shared token
	got := Similarity("abcd", "abce")
	require.InDelta(t, 0.75, got, 1e-9)

	// hyphens do not split tokens
	got = Similarity("UPI-SWIGGY-1234", "Swiggy dinner")
	require.Less(t, got, 0.85)
	require.InDelta(t, Ratio("upi-swiggy-1234", "swiggy dinner"), got, 1e-9)
}

func TestDeriveRole(t *testing.T) {
	t.Parallel()

	role, share := model.DeriveRole(false, 100000, 40000)
	require.Equal(t, model.RolePayer, role)
	require.Equal(t, int64(60000), share)

	role, share = model.DeriveRole(false, 100000, -25000)
	require.Equal(t, model.RoleBorrower, role)
	require.Equal(t, int64(25000), share)

	role, share = model.DeriveRole(false, 100000, 0)
	require.Equal(t, model.RoleParticipant, role)
	require.Zero(t, share)

	role, share = model.DeriveRole(true, 200000, 200000)
	require.Equal(t, model.RoleSettlementPayer, role)
	require.Zero(t, share)

	role, _ = model.DeriveRole(true, 200000, -200000)
	require.Equal(t, model.RoleSettlementReceiver, role)
}

func TestExactSingleCandidate(t *testing.T) {
	t.Parallel()

	s := payer("sw1", "2026-03-05", 100000, 40000, "Dinner")
	require.Equal(t, int64(60000), s.MyShareCents)
	book, sink, sum := run(t, quietEngine(),
		[]model.BankRecord{bank("b1", "2026-03-05", -100000, "POS 4321 SOMEWHERE")},
		[]model.SharedRecord{s})

	require.Equal(t, 1, sum.Exact)
	l, ok := book.LinkForShared("sw1")
	require.True(t, ok)
	require.Equal(t, "b1", l.BankID)
	require.Equal(t, 1.0, l.Confidence)
	require.Equal(t, model.MethodExact, l.Method)
	require.Equal(t, model.StatusLinked, sink.bank["b1"].Status)
	require.Equal(t, model.StatusLinked, sink.shared["sw1"].Status)
}

func TestExactTieBreakPrefersTokenOverlap(t *testing.T) {
	t.Parallel()

	book, _, sum := run(t, quietEngine(),
		[]model.BankRecord{
			bank("b1", "2026-03-05", -50000, "ATM WITHDRAWAL"),
			bank("b2", "2026-03-05", -50000, "SWIGGY BANGALORE"),
		},
		[]model.SharedRecord{payer("sw1", "2026-03-05", 50000, 25000, "Swiggy dinner")})

	require.Equal(t, 1, sum.Exact)
	l, ok := book.LinkForShared("sw1")
	require.True(t, ok)
	require.Equal(t, "b2", l.BankID)
	// 0.90 + 0.10 * 0.90
	require.InDelta(t, 0.99, l.Confidence, 1e-9)
	require.Equal(t, model.MethodExactTieBreak, l.Method)
	require.Equal(t, model.StatusUnlinked, book.Bank["b1"].Status)
}

func TestExactTieOnSimilarityPicksFirst(t *testing.T) {
	t.Parallel()

	book, _, _ := run(t, quietEngine(),
		[]model.BankRecord{
			bank("b2", "2026-03-05", -50000, "CAFE ONE"),
			bank("b1", "2026-03-05", -50000, "CAFE TWO"),
		},
		[]model.SharedRecord{payer("sw1", "2026-03-05", 50000, 25000, "cafe")})

	l, _ := book.LinkForShared("sw1")
	require.Equal(t, "b1", l.BankID)
}

func TestFuzzyDateThreshold(t *testing.T) {
	t.Parallel()

	book, _, sum := run(t, quietEngine(),
		[]model.BankRecord{
			bank("b1", "2026-03-07", -30050, "ZOMATO ORDER"),
			bank("b2", "2026-03-12", -90000, "QWERTY"),
		},
		[]model.SharedRecord{
			payer("sw1", "2026-03-05", 30000, 15000, "zomato lunch"),
			payer("sw2", "2026-03-10", 90000, 45000, "xyz"),
		})

	require.Equal(t, 1, sum.FuzzyDate)
	l, ok := book.LinkForShared("sw1")
	require.True(t, ok)
	require.Equal(t, model.MethodFuzzyDate, l.Method)
	require.InDelta(t, 0.70+0.15*0.90, l.Confidence, 1e-9)

	_, ok = book.LinkForShared("sw2")
	require.False(t, ok)
}

func TestBlindTrustRejectsMultipleCandidates(t *testing.T) {
	t.Parallel()

	// similarity 1/6: below the fuzzy-date threshold, above blind trust
	e := quietEngine()
	book, _, sum := run(t, e,
		[]model.BankRecord{
			bank("b1", "2026-03-06", -20000, "azzzzz"),
			bank("b2", "2026-03-04", -20000, "ayyyyy"),
		},
		[]model.SharedRecord{payer("sw1", "2026-03-05", 20000, 10000, "abcdxx")})
	require.Zero(t, sum.FuzzyDate)
	require.Zero(t, sum.BlindTrust)
	_, ok := book.LinkForShared("sw1")
	require.False(t, ok)

	book, _, sum = run(t, e,
		[]model.BankRecord{bank("b1", "2026-03-06", -20000, "azzzzz")},
		[]model.SharedRecord{payer("sw1", "2026-03-05", 20000, 10000, "abcdxx")})
	require.Equal(t, 1, sum.BlindTrust)
	l, ok := book.LinkForShared("sw1")
	require.True(t, ok)
	require.Equal(t, model.MethodBlindTrust, l.Method)
	require.InDelta(t, 0.625, l.Confidence, 1e-9)
}

func TestPassConfidenceMonotonic(t *testing.T) {
	t.Parallel()

	for _, sim := range []float64{0.16, 0.3, 0.5, 0.9, 1.0} {
		p1 := 0.90 + 0.10*sim
		p2 := 0.70 + 0.15*sim
		p3 := 0.60 + 0.15*sim
		require.GreaterOrEqual(t, p1, p2)
		require.GreaterOrEqual(t, p2, p3)
	}
}

func TestSettlementLinksAndExcludes(t *testing.T) {
	t.Parallel()

	book, sink, sum := run(t, quietEngine(),
		[]model.BankRecord{bank("b1", "2026-03-07", -198000, "UPI-RAHUL-OKICICI")},
		[]model.SharedRecord{settlement("sw1", "2026-03-05", 200000, 200000, "Rahul paid back")})

	require.Equal(t, 1, sum.Settlements)
	require.Equal(t, model.StatusTransfer, sink.bank["b1"].Status)
	require.Equal(t, model.StatusTransfer, sink.shared["sw1"].Status)
	require.Equal(t, model.CategorySettlement, sink.bank["b1"].Category)
	require.Equal(t, model.CategorySettlement, sink.shared["sw1"].Category)
	require.Zero(t, book.Shared["sw1"].MyShareCents)

	m := ComputeMetrics(book)
	require.Zero(t, m.NetConsumptionCents)
	require.Equal(t, int64(198000), m.CashOutflowCents)
}

func TestSettlementOutsideWindowOrTolerance(t *testing.T) {
	t.Parallel()

	_, sink, sum := run(t, quietEngine(),
		[]model.BankRecord{
			bank("b1", "2026-03-08", -200000, "late"),
			bank("b2", "2026-03-05", -190000, "too small"),
		},
		[]model.SharedRecord{settlement("sw1", "2026-03-05", 200000, 200000, "settle up")})

	require.Zero(t, sum.Settlements)
	require.Equal(t, model.StatusUnlinked, sink.shared["sw1"].Status)
}

func TestSettlementNameTieBreak(t *testing.T) {
	t.Parallel()

	e := quietEngine()
	e.Config = model.BatchConfig{Household: []string{"Priya"}}
	book, _, _ := run(t, e,
		[]model.BankRecord{
			bank("b1", "2026-03-05", -100000, "NEFT-ACME CORP"),
			bank("b2", "2026-03-06", -100000, "UPI-PRIYA-OKHDFC"),
		},
		[]model.SharedRecord{settlement("sw1", "2026-03-05", 100000, 100000, "Priya settle")})

	l, ok := book.LinkForShared("sw1")
	require.True(t, ok)
	require.Equal(t, "b2", l.BankID)
	require.InDelta(t, 0.9, l.Confidence, 1e-9)
}

func TestSettlementReceiverUsesCredits(t *testing.T) {
	t.Parallel()

	book, _, _ := run(t, quietEngine(),
		[]model.BankRecord{
			bank("b1", "2026-03-05", -50000, "outgoing"),
			bank("b2", "2026-03-05", 50000, "incoming"),
		},
		[]model.SharedRecord{settlement("sw1", "2026-03-05", 50000, -50000, "Payment")})

	l, ok := book.LinkForShared("sw1")
	require.True(t, ok)
	require.Equal(t, "b2", l.BankID)
}

func TestTransfersOnlyLabelUnmatchedDebits(t *testing.T) {
	t.Parallel()

	e := quietEngine()
	book, sink, sum := run(t, e,
		[]model.BankRecord{
			bank("b1", "2026-03-05", -100000, "POS 512345XXXXXX1234 DEBIT CARD TOIT BREWPUB"),
			bank("b2", "2026-03-05", -500000, "ZERODHA BROKING"),
			bank("b3", "2026-03-06", -120000, "CC PAYMENT HDFC"),
			bank("b4", "2026-03-07", -30000, "SELF TRANSFER TO SAVINGS"),
		},
		[]model.SharedRecord{payer("sw1", "2026-03-05", 100000, 40000, "Toit dinner")})

	require.Equal(t, 1, sum.Exact)
	require.Equal(t, 3, sum.Transfers)
	l, ok := book.LinkForShared("sw1")
	require.True(t, ok)
	require.Equal(t, "b1", l.BankID)
	require.Equal(t, 1.0, l.Confidence)
	require.Equal(t, model.StatusLinked, sink.bank["b1"].Status)
	require.Equal(t, "Investment", sink.bank["b2"].Category)
	require.Equal(t, "Credit Card", sink.bank["b3"].Category)
	require.Equal(t, "Savings", sink.bank["b4"].Category)

	m := ComputeMetrics(book)
	require.Zero(t, m.SoloSpendCents)

	writes := sink.writes
	again, err := e.Run(context.Background(), book, sink)
	require.NoError(t, err)
	require.Zero(t, again.Linked())
	require.Zero(t, again.Transfers)
	require.Equal(t, writes, sink.writes)
}

func TestCategoryPriority(t *testing.T) {
	t.Parallel()

	rent := int64(1500000)
	e := quietEngine()
	e.Config = model.BatchConfig{Household: []string{"Asha"}, MonthlyRentCents: rent}
	e.Rules = []model.Rule{
		{Pattern: "old", MatchType: model.MatchContains, Category: "Old Rule", Scope: model.ScopeBank, CreatedAt: day("2026-01-01")},
		{Pattern: "BLUE TOKAI", MatchType: model.MatchStartsWith, Category: "Coffee", Scope: model.ScopeBoth, CreatedAt: day("2026-02-01")},
		{Pattern: "blue", MatchType: model.MatchContains, Category: "Older Coffee", Scope: model.ScopeBank, CreatedAt: day("2025-12-01")},
	}
	_, sink, _ := run(t, e,
		[]model.BankRecord{
			bank("b1", "2026-03-01", -45000, "BLUE TOKAI INDIRANAGAR"),
			bank("b2", "2026-03-02", -200000, "UPI-ASHA-MOM"),
			bank("b3", "2026-03-03", -1520000, "NEFT LANDLORD"),
			bank("b4", "2026-03-04", -60000, "SWIGGY ORDER"),
			bank("b5", "2026-03-05", -1000, "RANDOM THING"),
			bank("b6", "2026-03-06", 1500000, "SALARY"),
		}, nil)

	require.Equal(t, "Coffee", sink.bank["b1"].Category)
	require.Equal(t, model.CategoryFamily, sink.bank["b2"].Category)
	require.Equal(t, model.CategoryRent, sink.bank["b3"].Category)
	require.Equal(t, model.CategoryFromRent, sink.bank["b3"].CategorySource)
	require.Equal(t, "Food & Dining", sink.bank["b4"].Category)
	require.Equal(t, model.CategoryOther, sink.bank["b5"].Category)
	require.Equal(t, model.CategoryOther, sink.bank["b6"].Category)
}

func TestRentDisabledWithoutConfig(t *testing.T) {
	t.Parallel()

	_, sink, _ := run(t, quietEngine(),
		[]model.BankRecord{bank("b1", "2026-03-03", -1520000, "NEFT LANDLORD")}, nil)
	require.Equal(t, model.CategoryOther, sink.bank["b1"].Category)
}

func TestSharedCategoriesFromFeedAndRules(t *testing.T) {
	t.Parallel()

	e := quietEngine()
	e.Rules = []model.Rule{{Pattern: "goa", Category: "Travel", Scope: model.ScopeSplitwise, MatchType: model.MatchContains}}
	a := payer("sw1", "2026-03-01", 1000, 500, "Goa trip")
	b := payer("sw2", "2026-03-01", 1000, 500, "Fuel")
	b.FeedCategory = "Gas/fuel"
	_, sink, _ := run(t, e, nil, []model.SharedRecord{a, b})

	require.Equal(t, "Travel", sink.shared["sw1"].Category)
	require.Equal(t, "Transport", sink.shared["sw2"].Category)
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bankRecs := []model.BankRecord{
		bank("b1", "2026-03-05", -100000, "POS SOMEWHERE"),
		bank("b2", "2026-03-06", -20000, "abcdef"),
		bank("b3", "2026-03-04", -20000, "abcdeg"),
		bank("b4", "2026-03-06", -20000, "zzz"),
		bank("b5", "2026-03-10", -500000, "GROWW"),
		bank("b6", "2026-03-12", -99000, "UPI-RAHUL"),
		bank("b7", "2026-03-14", -12300, "SWIGGY"),
	}
	shared := []model.SharedRecord{
		payer("sw1", "2026-03-05", 100000, 40000, "Dinner"),
		payer("sw2", "2026-03-05", 20000, 10000, "abcdxx"),
		payer("sw3", "2026-03-05", 20000, 10000, "abcdef"),
		settlement("sw4", "2026-03-12", 100000, 100000, "Rahul paid back"),
	}
	e := quietEngine()
	book := NewBook(bankRecs, shared, nil)
	sink := newMemSink(bankRecs, shared)
	_, err := e.Run(ctx, book, sink)
	require.NoError(t, err)

	snapshot := snapshotOf(sink)
	writes := sink.writes

	// second run over freshly loaded state
	book2 := NewBook(values(sink.bank), valuesShared(sink.shared), sink.links)
	sum, err := e.Run(ctx, book2, sink)
	require.NoError(t, err)
	require.Zero(t, sum.Linked())
	require.Zero(t, sum.Transfers)
	require.Zero(t, sum.Categorized)
	require.Equal(t, writes, sink.writes)
	require.Equal(t, snapshot, snapshotOf(sink))
}

func TestLinksAreSymmetric(t *testing.T) {
	t.Parallel()

	book, _, _ := run(t, quietEngine(),
		[]model.BankRecord{
			bank("b1", "2026-03-05", -100000, "x"),
			bank("b2", "2026-03-07", -30050, "ZOMATO ORDER"),
		},
		[]model.SharedRecord{
			payer("sw1", "2026-03-05", 100000, 40000, "Dinner"),
			payer("sw2", "2026-03-05", 30000, 15000, "zomato lunch"),
		})

	for _, l := range book.Links() {
		back, ok := book.LinkForBank(l.BankID)
		require.True(t, ok)
		require.Equal(t, l, back)
		require.Equal(t, book.Bank[l.BankID].Status, book.Shared[l.SharedID].Status)
	}
	require.Len(t, book.Links(), 2)
}

func TestRunAbortsOnSinkError(t *testing.T) {
	t.Parallel()

	bankRecs := []model.BankRecord{bank("b1", "2026-03-05", -100000, "x")}
	shared := []model.SharedRecord{payer("sw1", "2026-03-05", 100000, 40000, "Dinner")}
	book := NewBook(bankRecs, shared, nil)
	sink := newMemSink(bankRecs, shared)
	sink.fail = fmt.Errorf("disk gone")

	_, err := quietEngine().Run(context.Background(), book, sink)
	require.ErrorContains(t, err, "disk gone")
	require.Equal(t, model.StatusUnlinked, book.Shared["sw1"].Status)
}

func snapshotOf(m *memSink) map[string]string {
	out := map[string]string{}
	for id, b := range m.bank {
		out[id] = fmt.Sprintf("%s|%s|%s", b.Status, b.Category, b.CategorySource)
	}
	for id, s := range m.shared {
		out[id] = fmt.Sprintf("%s|%s|%s", s.Status, s.Category, s.CategorySource)
	}
	for _, l := range m.links {
		out["link:"+l.SharedID] = fmt.Sprintf("%s|%v|%s", l.BankID, l.Confidence, l.Method)
	}
	return out
}

func values(m map[string]*model.BankRecord) []model.BankRecord {
	var out []model.BankRecord
	for _, v := range m {
		out = append(out, *v)
	}
	return out
}

func valuesShared(m map[string]*model.SharedRecord) []model.SharedRecord {
	var out []model.SharedRecord
	for _, v := range m {
		out = append(out, *v)
	}
	return out
}
