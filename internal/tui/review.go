// Package tui is the interactive manual review screen: walk the
// unresolved shared records, pick a ranked bank candidate and link it, or
// skip the record with a reason.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/splitledger/internal/model"
	"github.com/jask/splitledger/internal/recon"
)

// Resolver is the manual override surface the screen drives.
type Resolver interface {
	Unresolved(ctx context.Context, sessionID string) ([]recon.Suggestion, error)
	Link(ctx context.Context, sharedID, bankID string) (model.Link, error)
	Skip(ctx context.Context, sharedID, reason string) error
}

type mode int

const (
	modeBrowse mode = iota
	modeReason
)

type (
	loadedMsg []recon.Suggestion
	actionMsg struct {
		status string
		items  []recon.Suggestion
	}
	errMsg struct{ error }
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f5c2e7"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#b4befe"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#94e2d5"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
)

// Review is the bubbletea model.
type Review struct {
	ctx       context.Context
	resolver  Resolver
	sessionID string
	currency  string

	items  []recon.Suggestion
	cursor int
	cand   int
	mode   mode
	reason string
	status string
	failed bool
}

func NewReview(ctx context.Context, r Resolver, sessionID, currency string) *Review {
	return &Review{ctx: ctx, resolver: r, sessionID: sessionID, currency: currency}
}

func (m *Review) Init() tea.Cmd {
	return m.load()
}

func (m *Review) load() tea.Cmd {
	return func() tea.Msg {
		items, err := m.resolver.Unresolved(m.ctx, m.sessionID)
		if err != nil {
			return errMsg{err}
		}
		return loadedMsg(items)
	}
}

func (m *Review) linkCmd(sharedID, bankID string) tea.Cmd {
	return m.act("linked", func() error {
		_, err := m.resolver.Link(m.ctx, sharedID, bankID)
		return err
	})
}

func (m *Review) skipCmd(sharedID, reason string) tea.Cmd {
	return m.act("skipped", func() error {
		return m.resolver.Skip(m.ctx, sharedID, reason)
	})
}

// act runs fn and reloads the queue in the same command so the list
// never shows a record that was just resolved.
func (m *Review) act(status string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errMsg{err}
		}
		items, err := m.resolver.Unresolved(m.ctx, m.sessionID)
		if err != nil {
			return errMsg{err}
		}
		return actionMsg{status: status, items: items}
	}
}

func (m *Review) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeReason {
			return m.updateReason(msg)
		}
		return m.updateBrowse(msg)
	case loadedMsg:
		m.setItems(msg)
	case actionMsg:
		m.setItems(msg.items)
		m.status, m.failed = msg.status, false
	case errMsg:
		m.status, m.failed = "error: "+msg.Error(), true
	}
	return m, nil
}

func (m *Review) updateBrowse(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.selectDefault()
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
			m.selectDefault()
		}
	case "left", "h":
		if m.cand > 0 {
			m.cand--
		}
	case "right", "l", "tab":
		if cur, ok := m.current(); ok && m.cand < len(cur.Candidates)-1 {
			m.cand++
		}
	case "enter", "y":
		cur, ok := m.current()
		if !ok || len(cur.Candidates) == 0 {
			return m, nil
		}
		return m, m.linkCmd(cur.Shared.ID, cur.Candidates[m.cand].Bank.ID)
	case "s":
		if _, ok := m.current(); ok {
			m.mode, m.reason = modeReason, ""
		}
	case "r":
		return m, m.load()
	}
	return m, nil
}

func (m *Review) updateReason(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
	case tea.KeyEnter:
		cur, ok := m.current()
		m.mode = modeBrowse
		if !ok || strings.TrimSpace(m.reason) == "" {
			m.status, m.failed = "skip needs a reason", true
			return m, nil
		}
		return m, m.skipCmd(cur.Shared.ID, m.reason)
	case tea.KeyBackspace:
		if r := []rune(m.reason); len(r) > 0 {
			m.reason = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.reason += " "
	case tea.KeyRunes:
		m.reason += string(k.Runes)
	}
	return m, nil
}

func (m *Review) setItems(items []recon.Suggestion) {
	m.items = items
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
	m.selectDefault()
}

func (m *Review) current() (recon.Suggestion, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return recon.Suggestion{}, false
	}
	return m.items[m.cursor], true
}

// selectDefault points at the preselected candidate, else the first.
func (m *Review) selectDefault() {
	m.cand = 0
	cur, ok := m.current()
	if !ok {
		return
	}
	for i, c := range cur.Candidates {
		if c.Bank.ID == cur.Preselected {
			m.cand = i
			return
		}
	}
}

func (m *Review) money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return sign + m.currency + recon.Amount(cents).StringFixed(2)
}

func (m *Review) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Review %s  (%d unresolved)", m.sessionID, len(m.items))))
	b.WriteString("\n\n")
	if len(m.items) == 0 {
		b.WriteString(mutedStyle.Render("nothing to review"))
		b.WriteString("\n")
	}
	for i, it := range m.items {
		line := fmt.Sprintf("%s  %-30s %12s", it.Shared.Date.Format("2006-01-02"), it.Shared.Description, m.money(it.Shared.TotalCents))
		if i != m.cursor {
			b.WriteString("  " + line + "\n")
			continue
		}
		b.WriteString(selectedStyle.Render("> "+line) + "\n")
		if len(it.Candidates) == 0 {
			b.WriteString(mutedStyle.Render("      no candidates; press s to skip") + "\n")
			continue
		}
		for j, c := range it.Candidates {
			marker := "   "
			if j == m.cand {
				marker = " ->"
			}
			pre := ""
			if c.Bank.ID == it.Preselected {
				pre = " (suggested)"
			}
			cl := fmt.Sprintf("%s %s  %-30s %12s  %.2f%s", marker, c.Bank.Date.Format("2006-01-02"), c.Bank.Description,
				m.money(c.Bank.AmountCents), c.Score, pre)
			if j == m.cand {
				cl = selectedStyle.Render(cl)
			}
			b.WriteString("   " + cl + "\n")
		}
	}
	b.WriteString("\n")
	if m.mode == modeReason {
		b.WriteString("skip reason: " + m.reason + "_\n")
	}
	if m.status != "" {
		style := statusStyle
		if m.failed {
			style = errorStyle
		}
		b.WriteString(style.Render(m.status) + "\n")
	}
	b.WriteString(mutedStyle.Render("j/k record  h/l candidate  enter link  s skip  r reload  q quit"))
	return b.String()
}
