package parser

import (
	"regexp"
	"strings"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

const (
	// DefaultCRDBProductLabel is the deposit account every CRDB line is booked to
	DefaultCRDBProductLabel = "CRDB Collection AC"
	crdbPaymentMethod       = "Transfer"
)

var (
	// Date: "20.01.2026"
	crdbDatePattern = regexp.MustCompile(`\b(\d{2})\.(\d{2})\.(\d{4})\b`)

	// Two-decimal amount token, optionally comma grouped: "0.00", "12,500.00"
	crdbAmountToken = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}$`)

	// Account number: ":963330000396 "
	crdbAccountPattern = regexp.MustCompile(`:(\d{10,14})\s`)

	// Reference: "REF:19bdb0f42ad57818"
	crdbReferencePattern = regexp.MustCompile(`REF:([A-Za-z0-9]+)`)

	// Name between colons, directly followed by 10 to 14 account digits
	crdbNamePattern = regexp.MustCompile(`:([A-Za-z ]+):\d{10,14}`)
)

var (
	crdbAccountRules   = []rule{capture(crdbAccountPattern, 1)}
	crdbReferenceRules = []rule{capture(crdbReferencePattern, 1)}
	crdbNameRules      = []rule{capture(crdbNamePattern, 1)}
)

// ParseCRDB extracts a transaction from one CRDB statement line.
// sep replaces the dots of the DD.MM.YYYY date; "/" is used when empty.
func ParseCRDB(line, sep string) statement.Transaction {
	if sep == "" {
		sep = "/"
	}

	tx := statement.Transaction{
		RawLine:          line,
		TransactionDate:  crdbDate(line, sep),
		Amount:           SelectCRDBAmount(crdbAmounts(line)),
		AccountOrUserID:  firstMatch(line, crdbAccountRules),
		ReferenceID:      firstMatch(line, crdbReferenceRules),
		CounterpartyName: firstMatch(line, crdbNameRules),
		PaymentMethod:    crdbPaymentMethod,
		ProductLabel:     DefaultCRDBProductLabel,
		Direction:        statement.Credit,
	}

	if tx.Amount == "" && tx.TransactionDate == "" {
		tx.ErrorMessage = ErrMissingCRDBFields
		return tx
	}
	tx.IsValid = true
	return tx
}

func crdbDate(line, sep string) string {
	m := crdbDatePattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return strings.Join(m[1:4], sep)
}

// crdbAmounts returns every two-decimal number in the line, left to right
func crdbAmounts(line string) []string {
	var amounts []string
	for _, field := range strings.Fields(line) {
		if crdbAmountToken.MatchString(field) {
			amounts = append(amounts, field)
		}
	}
	return amounts
}

// SelectCRDBAmount picks the credit amount out of the amounts found on a CRDB
// line. Lines end with debit, credit and running balance, so with three or
// more candidates the second-to-last one is the credit.
func SelectCRDBAmount(amounts []string) string {
	switch n := len(amounts); {
	case n >= 3:
		return amounts[n-2]
	case n >= 1:
		return amounts[n-1]
	default:
		return ""
	}
}
