// Package report renders sessions, metrics and review queues for the
// terminal.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jask/splitledger/internal/database/repository"
	"github.com/jask/splitledger/internal/model"
	"github.com/jask/splitledger/internal/recon"
	"github.com/jask/splitledger/internal/service"
)

// Catppuccin Mocha subset.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorLavender lipgloss.Color = "#b4befe"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	labelStyle  = lipgloss.NewStyle().Foreground(colorOverlay1).Width(22)
	valueStyle  = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(colorYellow)
	errorStyle  = lipgloss.NewStyle().Foreground(colorRed)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorLavender).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorOverlay1)
)

// Printer writes styled output. Currency prefixes every amount.
type Printer struct {
	W        io.Writer
	Currency string
}

// Money formats cents with the currency symbol, sign first.
func (p Printer) Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + p.Currency + recon.Amount(cents).StringFixed(2)
}

func (p Printer) line(s string) {
	fmt.Fprintln(p.W, s)
}

func (p Printer) kv(label, value string) {
	p.line(labelStyle.Render(label) + valueStyle.Render(value))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorSurface1)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// Sessions lists batches newest first.
func (p Printer) Sessions(sessions []model.Session) {
	if len(sessions) == 0 {
		p.line(mutedStyle.Render("no sessions"))
		return
	}
	t := newTable("ID", "MONTH", "STATUS", "BANK", "SHARED", "EXCLUDED", "ERROR")
	for _, s := range sessions {
		t.Row(s.ID, s.Month, p.status(s.Status), fmt.Sprint(s.BankCount), fmt.Sprint(s.SharedCount),
			fmt.Sprint(s.ExcludedCount), s.Error)
	}
	p.line(t.Render())
}

func (p Printer) status(s model.SessionStatus) string {
	switch s {
	case model.SessionCompleted:
		return okStyle.Render(string(s))
	case model.SessionFailed:
		return errorStyle.Render(string(s))
	}
	return warnStyle.Render(string(s))
}

// Process summarizes an upload followed by reconciliation.
func (p Printer) Process(res service.ProcessResult) {
	p.line(titleStyle.Render("Ingestion"))
	p.ingest("bank", res.Bank)
	p.ingest("shared", res.Shared)
	p.line("")
	p.Summary(res.Summary)
}

func (p Printer) ingest(feed string, r service.IngestResult) {
	p.kv(feed, fmt.Sprintf("%d imported, %d duplicate, %d outside month", r.Imported, r.Skipped, r.Excluded))
	for _, err := range r.Errors {
		p.line("  " + warnStyle.Render("dropped: "+err.Error()))
	}
}

// Summary prints what one reconciliation run changed.
func (p Printer) Summary(s recon.Summary) {
	p.line(titleStyle.Render("Reconciliation"))
	p.kv("transfers", fmt.Sprint(s.Transfers))
	p.kv("exact", fmt.Sprint(s.Exact))
	p.kv("fuzzy date", fmt.Sprint(s.FuzzyDate))
	p.kv("blind trust", fmt.Sprint(s.BlindTrust))
	p.kv("settlements", fmt.Sprint(s.Settlements))
	p.kv("categorized", fmt.Sprint(s.Categorized))
}

// Metrics prints the net consumption report of one session.
func (p Printer) Metrics(m recon.Metrics) {
	p.line(titleStyle.Render("Net consumption"))
	p.kv("net consumption", p.Money(m.NetConsumptionCents))
	p.kv("  solo spend", p.Money(m.SoloSpendCents))
	p.kv("  paid for group", p.Money(m.PayerShareCents))
	p.kv("  owed to others", p.Money(m.BorrowerShareCents))
	p.kv("cash outflow", p.Money(m.CashOutflowCents))
	p.kv("float", p.Money(m.FloatCents))
	p.line("")

	if len(m.Categories) > 0 {
		t := newTable("CATEGORY", "AMOUNT", "%")
		for _, c := range m.Categories {
			t.Row(c.Category, p.Money(c.Cents), fmt.Sprintf("%.1f", c.Percent))
		}
		p.line(t.Render())
	}

	p.line(titleStyle.Render("Records"))
	p.kv("total", fmt.Sprint(m.Stats.TotalRecords))
	p.kv("bank", fmt.Sprintf("%d (%s)", m.Stats.BankRecords, statusCounts(m.Stats.BankStatus)))
	p.kv("shared", fmt.Sprintf("%d (%s)", m.Stats.SharedRecords, statusCounts(m.Stats.SharedStatus)))
	p.kv("average expense", p.Money(m.Stats.AverageExpenseCents))
	if m.Stats.LargestExpense != "" {
		p.kv("largest expense", p.Money(m.Stats.LargestExpenseCents)+" "+m.Stats.LargestExpense)
	}

	if len(m.UnlinkedPayers) > 0 {
		p.line("")
		p.line(warnStyle.Render(fmt.Sprintf("%d paid-for-group records have no bank match; their full cost may be counted twice:", len(m.UnlinkedPayers))))
		for _, u := range m.UnlinkedPayers {
			p.line(fmt.Sprintf("  %s  %s  %s total, %s owed to you", u.Date, u.Description, p.Money(u.TotalCents), p.Money(u.OwedCents)))
		}
	}
}

func statusCounts(m map[model.Status]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", strings.ToLower(k), m[model.Status(k)]))
	}
	return strings.Join(parts, ", ")
}

// Suggestions prints the manual review queue.
func (p Printer) Suggestions(sugg []recon.Suggestion) {
	if len(sugg) == 0 {
		p.line(okStyle.Render("nothing to review"))
		return
	}
	for _, s := range sugg {
		p.line(titleStyle.Render(fmt.Sprintf("%s  %s  %s", s.Shared.Date.Format("2006-01-02"), s.Shared.Description, p.Money(s.Shared.TotalCents))) +
			mutedStyle.Render("  "+s.Shared.ID))
		if len(s.Candidates) == 0 {
			p.line(mutedStyle.Render("  no candidates within 5 days and 15%"))
			continue
		}
		t := newTable("", "BANK ID", "DATE", "DESCRIPTION", "AMOUNT", "SCORE")
		for _, c := range s.Candidates {
			mark := ""
			if c.Bank.ID == s.Preselected {
				mark = "*"
			}
			t.Row(mark, c.Bank.ID, c.Bank.Date.Format("2006-01-02"), c.Bank.Description,
				p.Money(c.Bank.AmountCents), fmt.Sprintf("%.2f", c.Score))
		}
		p.line(t.Render())
	}
}

// Entries prints one page of the unified record view.
func (p Printer) Entries(page repository.EntryPage) {
	t := newTable("SOURCE", "DATE", "DESCRIPTION", "AMOUNT", "CATEGORY", "STATUS", "METHOD", "CONF")
	for _, e := range page.Entries {
		conf := ""
		if e.Confidence != nil {
			conf = fmt.Sprintf("%.2f", *e.Confidence)
		}
		t.Row(string(e.Source), e.Date, e.Description, p.Money(e.AmountCents), e.Category, string(e.Status), e.Method, conf)
	}
	p.line(t.Render())
	p.line(mutedStyle.Render(fmt.Sprintf("page %d of %d, %d records", page.Page, page.TotalPages, page.Total)))
}

// Comparison prints category movement against the previous session.
func (p Printer) Comparison(c service.Comparison) {
	if c.Previous == nil {
		p.line(mutedStyle.Render("no earlier completed session"))
		return
	}
	p.line(titleStyle.Render("Compared with " + c.Previous.Month))
	if len(c.Changes) == 0 {
		p.line(mutedStyle.Render("no category moved by 10% or more"))
		return
	}
	t := newTable("CATEGORY", "BEFORE", "NOW", "CHANGE")
	for _, ch := range c.Changes {
		style := warnStyle
		if ch.Direction == recon.Decrease {
			style = okStyle
		}
		t.Row(ch.Category, p.Money(ch.PreviousCents), p.Money(ch.CurrentCents), style.Render(fmt.Sprintf("%+.1f%%", ch.ChangePct)))
	}
	p.line(t.Render())
	for _, ch := range c.Highlights.Increases {
		p.line(warnStyle.Render(fmt.Sprintf("%s up %.1f%%: %s. %s", ch.Category, ch.ChangePct, ch.Reason, ch.Recommendation)))
	}
	for _, ch := range c.Highlights.Decreases {
		p.line(okStyle.Render(fmt.Sprintf("%s down %.1f%%: saved %s", ch.Category, -ch.ChangePct, p.Money(ch.PreviousCents-ch.CurrentCents))))
	}
}

// Recurring prints detected subscriptions.
func (p Printer) Recurring(recs []recon.Recurring) {
	if len(recs) == 0 {
		p.line(mutedStyle.Render("no recurring payments found"))
		return
	}
	t := newTable("MERCHANT", "COUNT", "EVERY", "AVERAGE", "LAST", "CATEGORY")
	for _, r := range recs {
		t.Row(r.Merchant, fmt.Sprint(r.Count), fmt.Sprintf("%dd", r.IntervalDays), p.Money(r.AverageCents),
			r.LastDate.Format("2006-01-02"), r.Category)
	}
	p.line(t.Render())
}

// Rules lists categorization rules in precedence order.
func (p Printer) Rules(rules []model.Rule) {
	if len(rules) == 0 {
		p.line(mutedStyle.Render("no rules"))
		return
	}
	t := newTable("ID", "PATTERN", "MATCH", "SCOPE", "CATEGORY")
	for _, r := range rules {
		t.Row(r.ID, r.Pattern, string(r.MatchType), string(r.Scope), r.Category)
	}
	p.line(t.Render())
}

// Notice prints a one-line confirmation.
func (p Printer) Notice(msg string) {
	p.line(lipgloss.NewStyle().Foreground(colorTeal).Render(msg))
}
