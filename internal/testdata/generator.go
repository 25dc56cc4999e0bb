// Package testdata generates synthetic statement and shared-expense feeds
// for demos and end-to-end tests.
package testdata

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"time"
)

// Feeds is one generated month. Every shared expense the member paid has
// exactly one same-day bank debit, so a reconcile run links all Pairs with
// the exact pass and leaves the Solo debits as personal spend.
type Feeds struct {
	Bank   []byte
	Shared []byte
	Pairs  int
	Solo   int
}

var merchants = []struct {
	narration, description, category string
}{
	{"UPI-SWIGGY-SWIGGY@AXIS", "Swiggy dinner", "Dining out"},
	{"UPI-ZOMATO-ZOMATO@HDFC", "Zomato order", "Dining out"},
	{"UPI-BLINKIT-BLINKIT@YBL", "Blinkit groceries", "Groceries"},
	{"UPI-BIGBASKET-BB@ICICI", "BigBasket order", "Groceries"},
	{"UPI-UBER INDIA-UBER@AXIS", "Uber to airport", "Taxi"},
	{"PVR CINEMAS", "Movie night", "Movies"},
}

var solos = []string{"NETFLIX.COM", "APOLLO PHARMACY", "AMAZON PAY", "AIRTEL RECHARGE"}

// Generate builds feeds for month with rows split between member (the
// user's ledger column) and other. A fixed seed yields identical output.
func Generate(month time.Time, member, other string, seed uint64) Feeds {
	r := rand.New(rand.NewPCG(seed, seed^0x5eed))
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)

	var bank, shared bytes.Buffer
	bw, sw := csv.NewWriter(&bank), csv.NewWriter(&shared)
	_ = bw.Write([]string{"Date", "Narration", "Chq./Ref.No.", "Value Dt", "Withdrawal Amt.", "Deposit Amt.", "Closing Balance"})
	_ = sw.Write([]string{"Date", "Description", "Category", "Cost", "Currency", member, other})

	f := Feeds{}
	balance := int64(5_000_000)
	debit := func(day time.Time, narration string, cents int64) {
		balance -= cents
		d := day.Format("02/01/06")
		_ = bw.Write([]string{d, fmt.Sprintf("%s-%06d", narration, r.IntN(1_000_000)), fmt.Sprintf("%07d", r.IntN(10_000_000)), d, rupees(cents), "", rupees(balance)})
	}

	// Pairs land on odd days and solos on even days; amounts climb so no
	// two rows fall inside the exact pass tolerance.
	for i, m := range merchants {
		day := first.AddDate(0, 0, 2*i)
		total := int64(300+150*i+r.IntN(100)) * 100
		owed := total / 2
		debit(day, m.narration, total)
		_ = sw.Write([]string{day.Format("2006-01-02"), m.description, m.category, rupees(total), "INR", rupees(owed), rupees(-owed)})
		f.Pairs++
	}
	for i, narration := range solos {
		day := first.AddDate(0, 0, 2*i+1)
		debit(day, narration, int64(199+211*i+r.IntN(10))*100)
		f.Solo++
	}

	bw.Flush()
	sw.Flush()
	f.Bank, f.Shared = bank.Bytes(), shared.Bytes()
	return f
}

func rupees(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
