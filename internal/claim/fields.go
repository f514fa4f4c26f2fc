package claim

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/divan/num2words"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const checkMark = "✔"

var titleCaser = cases.Title(language.English)

// FormatDate turns an ISO YYYY-MM-DD input into the DD-MM-YYYY display
// format. A blank input means today.
func FormatDate(iso string, now time.Time) (string, error) {
	if iso == "" {
		return now.Format("02-01-2006"), nil
	}
	d, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: expected YYYY-MM-DD", iso)
	}
	return d.Format("02-01-2006"), nil
}

// RemainingBalance computes budgeted minus spent as integer text. If either
// value is absent the balance is blank; if either is present but not numeric
// the whole field fails with a FormatError.
func RemainingBalance(budgeted, spent string) (string, error) {
	if budgeted == "" || spent == "" {
		return "", nil
	}
	b, err := strconv.Atoi(strings.TrimSpace(budgeted))
	if err != nil {
		return "", &FormatError{Field: "budgeted_amount", Value: budgeted}
	}
	s, err := strconv.Atoi(strings.TrimSpace(spent))
	if err != nil {
		return "", &FormatError{Field: "amount_spent", Value: spent}
	}
	return strconv.Itoa(b - s), nil
}

// AmountInWords spells out an amount as "Rupees <Words> Only". The amount is
// truncated to a whole number and spelled with Indian-system grouping
// (crore/lakh/thousand). An unparseable amount yields an empty string.
func AmountInWords(amount string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return ""
	}
	words := indianWords(int(f))
	words = strings.ReplaceAll(words, "-", " ")
	return "Rupees " + titleCaser.String(words) + " Only"
}

// indianWords spells a whole number using crore/lakh/thousand grouping,
// falling back to the generic converter below a thousand.
func indianWords(n int) string {
	if n < 0 {
		return "minus " + indianWords(-n)
	}
	if n < 1000 {
		return num2words.Convert(n)
	}
	groups := []struct {
		div  int
		name string
	}{
		{10000000, "crore"},
		{100000, "lakh"},
		{1000, "thousand"},
	}
	var parts []string
	for _, g := range groups {
		if q := n / g.div; q > 0 {
			parts = append(parts, num2words.Convert(q)+" "+g.name)
			n %= g.div
		}
	}
	if n > 0 {
		parts = append(parts, num2words.Convert(n))
	}
	return strings.Join(parts, " ")
}

// PlaceholderMap derives the full token-to-value mapping for one claim,
// combining raw fields with the computed display fields.
func PlaceholderMap(rec Record, now time.Time) (map[string]string, error) {
	date, err := FormatDate(rec.Date, now)
	if err != nil {
		return nil, err
	}

	balance, err := RemainingBalance(rec.BudgetedAmount, rec.AmountSpent)
	if err != nil {
		return nil, err
	}

	amount := rec.Amount
	if amount == "" {
		amount = "0"
	}
	words := rec.AmountWords
	if words == "" {
		words = AmountInWords(amount)
	}

	var vendor, reimbursement, advance string
	switch rec.PaymentType {
	case PaymentVendor:
		vendor = checkMark
	case PaymentReimbursement:
		reimbursement = checkMark
	case PaymentAdvance:
		advance = checkMark
	}

	return map[string]string{
		"{{DATE}}":               date,
		"{{TOTAL_AMOUNT}}":       amount,
		"{{TOTAL_AMOUNT_WORDS}}": words,
		"{{EVENT_NAME}}":         rec.EventName,
		"{{REMARKS}}":            rec.Purpose,
		"{{BUDGET_NAME}}":        rec.BudgetName,
		"{{BUDGET_HEAD}}":        rec.BudgetHead,
		"{{BUDGETED_AMOUNT}}":    rec.BudgetedAmount,
		"{{AMOUNT_SPENT}}":       rec.AmountSpent,
		"{{BALANCE_AVAILABLE}}":  balance,
		"{{V}}":                  vendor,
		"{{R}}":                  reimbursement,
		"{{A}}":                  advance,
		"{{ACCOUNT_NUMBER}}":     rec.AccountNumber,
		"{{ACCOUNT_HOLDER}}":     rec.AccountHolder,
		"{{BANK_NAME}}":          rec.BankName,
		"{{IFSC}}":               rec.IFSC,
		"{{BRANCH}}":             rec.Branch,
	}, nil
}
