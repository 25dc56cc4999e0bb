package recon

import (
	"strings"

	"github.com/jask/splitledger/internal/model"
)

type keywordGroup struct {
	Label    string
	Keywords []string
}

// transferGroups are checked in order; the first hit labels the record.
var transferGroups = []keywordGroup{
	{"Investment", []string{"ZERODHA", "GROWW", "UPSTOX", "KUVERA", "COIN", "SMALLCASE"}},
	{"Credit Card", []string{"CREDIT CARD", "CC PAYMENT", "CRED", "CARD BILL"}},
	{"Savings", []string{"TO SAVINGS", "FIXED DEPOSIT", "FD ", "RD "}},
	{"Self Transfer", []string{"SELF TRANSFER", "OWN ACCOUNT"}},
}

// categoryGroups is the spending keyword table. Order is priority.
var categoryGroups = []keywordGroup{
	{"Food & Dining", []string{
		"SWIGGY", "ZOMATO", "RESTAURANT", "CAFE", "KFC", "MCDONALD",
		"PIZZA", "STARBUCKS", "DOMINOS", "SUBWAY", "BURGER", "HOTEL",
		"KITCHEN", "CANTEEN", "FOOD", "DINING", "DUNKIN", "BASKIN",
	}},
	{"Groceries", []string{
		"INSTAMART", "BLINKIT", "ZEPTO", "BIGBASKET", "DMART",
		"SUPERMARKET", "GROCERY", "FRESH", "VEGETABLES", "FRUITS",
	}},
	{"Transport", []string{
		"UBER", "OLA", "RAPIDO", "METRO", "IRCTC", "BUS", "PETROL",
		"FUEL", "TRAIN", "FLIGHT", "AIRLINE", "MAKEMYTRIP", "GOIBIBO",
		"CAB", "TAXI", "AUTO",
	}},
	{"Shopping", []string{
		"AMAZON", "FLIPKART", "MYNTRA", "AJIO", "MEESHO", "MALL",
		"SHOP", "STORE", "RETAIL", "NYKAA", "LENSKART",
	}},
	{"Entertainment", []string{
		"NETFLIX", "PRIME", "HOTSTAR", "BOOKMYSHOW", "PVR", "INOX",
		"SPOTIFY", "YOUTUBE", "CINEMA", "MOVIE", "GAME", "GAMING",
	}},
	{"Bills & Utilities", []string{
		"ELECTRICITY", "WATER", "GAS", "BROADBAND", "MOBILE", "RECHARGE",
		"AIRTEL", "JIO", "VODAFONE", "BILL", "TATA POWER", "BSNL",
	}},
	{"Health", []string{
		"PHARMACY", "MEDICINE", "APOLLO", "MEDPLUS", "HOSPITAL",
		"DOCTOR", "CLINIC", "HEALTH", "MEDICAL", "1MG", "PHARMEASY",
	}},
	{"Investment", []string{"GROWW", "ZERODHA", "ANGEL ONE", "UPSTOX"}},
}

// feedCategoryAliases maps shared-feed categories onto the bank labels.
var feedCategoryAliases = map[string]string{
	"General":           model.CategoryOther,
	"Gas/fuel":          "Transport",
	"Bus/train":         "Transport",
	"Utilities - Other": "Bills & Utilities",
}

func lookup(groups []keywordGroup, description string) (string, bool) {
	d := strings.ToUpper(description)
	for _, g := range groups {
		for _, k := range g.Keywords {
			if strings.Contains(d, k) {
				return g.Label, true
			}
		}
	}
	return "", false
}

// TransferCategory returns the transfer label for a description, if any.
func TransferCategory(description string) (string, bool) {
	return lookup(transferGroups, description)
}

// KeywordCategory returns the spending label from the keyword table, if any.
func KeywordCategory(description string) (string, bool) {
	return lookup(categoryGroups, description)
}

// IsTransferCategory reports whether a category marks a non-spending movement.
func IsTransferCategory(category string) bool {
	if category == model.CategorySettlement {
		return true
	}
	for _, g := range transferGroups {
		if g.Label == category {
			return true
		}
	}
	return false
}

// NormalizeFeedCategory maps a shared-feed category onto the bank labels.
func NormalizeFeedCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return model.CategoryOther
	}
	if alias, ok := feedCategoryAliases[category]; ok {
		return alias
	}
	return category
}
