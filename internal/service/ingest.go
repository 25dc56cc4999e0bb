package service

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jask/splitledger/internal/database/repository"
	"github.com/jask/splitledger/internal/model"
)

// IngestService loads the two monthly feeds into a session.
type IngestService struct {
	Sessions *repository.SessionRepo
	Bank     *repository.BankRepo
	Shared   *repository.SharedRepo
	Locks    *SessionLocks
	// SplitwiseName selects the column holding the user's net balance.
	SplitwiseName string
	Loc           *time.Location
	Log           *slog.Logger
}

// IngestResult reports one feed upload. Skipped rows were already stored;
// Excluded rows fall outside the session month. Errors holds the dropped
// malformed rows.
type IngestResult struct {
	Imported int
	Skipped  int
	Excluded int
	Errors   []error
}

func (s *IngestService) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func (s *IngestService) drop(res *IngestResult, feed string, line int, err error) {
	err = fmt.Errorf("line %d: %w", line, err)
	res.Errors = append(res.Errors, err)
	s.log().Warn("dropped feed row", "feed", feed, "err", err)
}

var bankFooters = []string{"End Of Statement", "STATEMENT SUMMARY"}

// ImportBank reads a bank statement export. The header row is found by
// its Date, Narration and Withdrawal Amt. columns; rows after the
// statement footer are ignored.
func (s *IngestService) ImportBank(ctx context.Context, sess model.Session, r io.Reader) (IngestResult, error) {
	unlock := s.Locks.Lock(sess.ID)
	defer unlock()
	return s.importBank(ctx, sess, r)
}

func (s *IngestService) importBank(ctx context.Context, sess model.Session, r io.Reader) (IngestResult, error) {
	res := IngestResult{}
	rows, err := readRows(r)
	if err != nil {
		return res, fmt.Errorf("bank feed: %w", err)
	}
	start, cols := findHeader(rows, func(cols map[string]int) bool {
		_, d := cols["date"]
		_, n := cols["narration"]
		return d && n && colPrefix(cols, "withdrawal amt") >= 0
	})
	if start < 0 {
		return res, fmt.Errorf("bank feed: header row not found: %w", model.ErrInvalidInput)
	}
	dateCol, descCol := cols["date"], cols["narration"]
	outCol, inCol := colPrefix(cols, "withdrawal amt"), colPrefix(cols, "deposit amt")

	seen := map[string]int{}
	for i := start + 1; i < len(rows); i++ {
		row, line := rows[i], i+1
		if containsAny(strings.Join(row, " "), bankFooters) {
			break
		}
		if blank(row) {
			continue
		}
		dateStr := cell(row, dateCol)
		if strings.Contains(dateStr, "*") {
			continue
		}
		date, err := parseFeedDate(dateStr, s.Loc)
		if err != nil {
			s.drop(&res, "bank", line, err)
			continue
		}
		out, err := parseMoney(cell(row, outCol))
		if err != nil {
			s.drop(&res, "bank", line, fmt.Errorf("withdrawal: %w", err))
			continue
		}
		in, err := parseMoney(cell(row, inCol))
		if err != nil {
			s.drop(&res, "bank", line, fmt.Errorf("deposit: %w", err))
			continue
		}
		desc := cell(row, descCol)
		if desc == "" {
			s.drop(&res, "bank", line, fmt.Errorf("narration required: %w", model.ErrInvalidInput))
			continue
		}
		if !sess.Contains(date) {
			res.Excluded++
			continue
		}
		amount := in - out
		key := fmt.Sprintf("%s|%d|%s", date.Format(time.DateOnly), amount, desc)
		seen[key]++
		rec := model.BankRecord{
			ID:          uuid.NewString(),
			SessionID:   sess.ID,
			Date:        date,
			AmountCents: amount,
			Description: desc,
			Status:      model.StatusUnlinked,
			SourceHash:  hashSource(sess.ID, string(model.SourceBank), key, strconv.Itoa(seen[key])),
		}
		if err := s.Bank.Insert(ctx, rec); err != nil {
			if repository.IsUniqueViolation(err) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("bank feed line %d insert: %w", line, err)
		}
		res.Imported++
	}
	if err := s.Sessions.AddCounts(ctx, sess.ID, res.Imported, 0, res.Excluded); err != nil {
		return res, fmt.Errorf("bank feed counts: %w", err)
	}
	s.log().Info("bank feed ingested", "session", sess.ID, "imported", res.Imported,
		"skipped", res.Skipped, "excluded", res.Excluded, "dropped", len(res.Errors))
	return res, nil
}

var settlementWords = []string{"payment", "settle", "paid back"}

// ImportShared reads a shared-expense export: Date, Description,
// Category, Cost, Currency and one net-balance column per member. Rows
// from the "Total balance" footer on are ignored.
func (s *IngestService) ImportShared(ctx context.Context, sess model.Session, r io.Reader) (IngestResult, error) {
	unlock := s.Locks.Lock(sess.ID)
	defer unlock()
	return s.importShared(ctx, sess, r)
}

func (s *IngestService) importShared(ctx context.Context, sess model.Session, r io.Reader) (IngestResult, error) {
	res := IngestResult{}
	rows, err := readRows(r)
	if err != nil {
		return res, fmt.Errorf("shared feed: %w", err)
	}
	start, cols := findHeader(rows, func(cols map[string]int) bool {
		_, d := cols["date"]
		_, c := cols["cost"]
		return d && c
	})
	if start < 0 {
		return res, fmt.Errorf("shared feed: header row not found: %w", model.ErrInvalidInput)
	}
	userCol := userColumn(rows[start], s.SplitwiseName)
	if userCol < 0 {
		return res, fmt.Errorf("shared feed: no column for member %q: %w", s.SplitwiseName, model.ErrInvalidInput)
	}
	dateCol, costCol := cols["date"], cols["cost"]
	descCol, catCol := colOr(cols, "description"), colOr(cols, "category")

	seen := map[string]int{}
	for i := start + 1; i < len(rows); i++ {
		row, line := rows[i], i+1
		if strings.Contains(strings.ToLower(strings.Join(row, " ")), "total balance") {
			break
		}
		if blank(row) {
			continue
		}
		date, err := parseFeedDate(cell(row, dateCol), s.Loc)
		if err != nil {
			s.drop(&res, "shared", line, err)
			continue
		}
		total, err := requireMoney(cell(row, costCol))
		if err != nil {
			s.drop(&res, "shared", line, fmt.Errorf("cost: %w", err))
			continue
		}
		contribution, err := parseMoney(cell(row, userCol))
		if err != nil {
			s.drop(&res, "shared", line, fmt.Errorf("balance: %w", err))
			continue
		}
		desc, category := cell(row, descCol), cell(row, catCol)
		if desc == "" {
			s.drop(&res, "shared", line, fmt.Errorf("description required: %w", model.ErrInvalidInput))
			continue
		}
		if !sess.Contains(date) {
			res.Excluded++
			continue
		}
		settlement := strings.EqualFold(category, "Payment") || containsAny(strings.ToLower(desc), settlementWords)
		role, share := model.DeriveRole(settlement, total, contribution)
		if role == model.RolePayer && contribution > total {
			s.drop(&res, "shared", line, fmt.Errorf("balance %d exceeds cost %d: %w", contribution, total, model.ErrInvalidInput))
			continue
		}

		key := fmt.Sprintf("%s|%d|%d|%s", date.Format(time.DateOnly), total, contribution, desc)
		seen[key]++
		rec := model.SharedRecord{
			ID:                uuid.NewString(),
			SessionID:         sess.ID,
			Date:              date,
			Description:       desc,
			TotalCents:        total,
			ContributionCents: contribution,
			Role:              role,
			MyShareCents:      share,
			FeedCategory:      category,
			Status:            model.StatusUnlinked,
			SourceHash:        hashSource(sess.ID, string(model.SourceSplitwise), key, strconv.Itoa(seen[key])),
		}
		if err := s.Shared.Insert(ctx, rec); err != nil {
			if repository.IsUniqueViolation(err) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("shared feed line %d insert: %w", line, err)
		}
		res.Imported++
	}
	if err := s.Sessions.AddCounts(ctx, sess.ID, 0, res.Imported, res.Excluded); err != nil {
		return res, fmt.Errorf("shared feed counts: %w", err)
	}
	s.log().Info("shared feed ingested", "session", sess.ID, "imported", res.Imported,
		"skipped", res.Skipped, "excluded", res.Excluded, "dropped", len(res.Errors))
	return res, nil
}

func readRows(r io.Reader) ([][]string, error) {
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1
	csvr.LazyQuotes = true
	var rows [][]string
	for {
		rec, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}

// findHeader returns the index of the first row accepted by ok together
// with its lower-cased column index.
func findHeader(rows [][]string, ok func(map[string]int) bool) (int, map[string]int) {
	for i, row := range rows {
		cols := make(map[string]int, len(row))
		for j, c := range row {
			key := strings.ToLower(strings.TrimSpace(c))
			if _, dup := cols[key]; !dup {
				cols[key] = j
			}
		}
		if ok(cols) {
			return i, cols
		}
	}
	return -1, nil
}

func colPrefix(cols map[string]int, prefix string) int {
	best := -1
	for name, i := range cols {
		if strings.HasPrefix(name, prefix) && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

func colOr(cols map[string]int, name string) int {
	if i, ok := cols[name]; ok {
		return i
	}
	return -1
}

// userColumn matches the member name exactly, then by its first token.
func userColumn(header []string, name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return -1
	}
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == name {
			return i
		}
	}
	first := strings.Fields(name)[0]
	for i, h := range header {
		if strings.Contains(strings.ToLower(h), first) {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// parseMoney converts a decimal amount to cents. Blank means zero.
func parseMoney(s string) (int64, error) {
	s = strings.NewReplacer(",", "", "₹", "", "$", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, model.ErrInvalidInput)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// requireMoney is parseMoney for cells that must not be blank.
func requireMoney(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("amount required: %w", model.ErrInvalidInput)
	}
	return parseMoney(s)
}

// Day-first layouts; single-digit day and month parse too.
var feedDateLayouts = []string{"2/1/06", "2/1/2006", "2006-01-02", "2-1-2006", "2 Jan 2006"}

func parseFeedDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range feedDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return model.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: %w", s, model.ErrInvalidInput)
}

func hashSource(parts ...string) string {
	joined := strings.Join(parts, "|")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%x", sum[:])
}
