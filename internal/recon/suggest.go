package recon

import (
	"regexp"
	"strings"
)

var (
	railPrefixes   = []string{"UPI-", "POS-", "IMPS-", "NEFT-", "ATM-", "RTGS-"}
	trailingDigits = regexp.MustCompile(`[-\d]+$`)
	segmentSplit   = regexp.MustCompile(`[-.]`)
)

// SuggestPattern extracts a merchant token from a bank narration, e.g.
// "UPI-SWIGGY-8123-OK" yields "SWIGGY". It returns "" when nothing longer
// than two characters remains.
func SuggestPattern(description string) string {
	cleaned := strings.TrimSpace(description)
	for _, p := range railPrefixes {
		if strings.HasPrefix(strings.ToUpper(cleaned), p) {
			cleaned = cleaned[len(p):]
			break
		}
	}
	cleaned = trailingDigits.ReplaceAllString(cleaned, "")
	parts := segmentSplit.Split(cleaned, -1)
	if len(parts) == 0 {
		return ""
	}
	merchant := strings.TrimSpace(parts[0])
	if len(merchant) <= 2 {
		return ""
	}
	return strings.ToUpper(merchant)
}
