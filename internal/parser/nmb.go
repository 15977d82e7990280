package parser

import (
	"regexp"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

// DefaultNMBProductLabel is used when a line carries no branch code
const DefaultNMBProductLabel = "NMB Collection AC"

const numericGroup = `\d[\d,]*(?:\.\d{2})?`

var (
	// Date: "20 Jan 2026", "20  Jan 2026"
	nmbDatePattern = regexp.MustCompile(`\b\d{1,2}\s+[A-Za-z]{3}\s+\d{4}\b`)

	// Reference: "Description 963330000141"
	nmbReferencePattern = regexp.MustCompile(`Description\s+(\d+)`)

	// User id: "@22410063786@"
	nmbUserIDPattern = regexp.MustCompile(`@(\d+)@`)

	// Counterpart name: free text after "=>", ending at a tab, a run of
	// spaces, the amount before TZS or the end of the line
	nmbNamePattern = regexp.MustCompile(`=> *(\S+(?: \S+)*?)(?:\t| {2,}|\s+` + numericGroup + `\s*TZS|\s*$)`)

	// Amount, tab delimited and followed by tabs then TZS or end of line
	nmbAmountTabbed = regexp.MustCompile(`\t(` + numericGroup + `)\t+(?:TZS|$)`)

	// Amount followed by optional tabs/spaces then TZS
	nmbAmountBeforeCurrency = regexp.MustCompile(`(?:^|\s)(` + numericGroup + `)[\t ]*TZS`)

	// Any numeric group directly followed by a tab or TZS
	nmbAmountLoose = regexp.MustCompile(`(` + numericGroup + `)(?:\t|TZS)`)

	// Branch: "101 - NMB Head Office - ..."
	nmbProductPattern = regexp.MustCompile(`\d{3}\s*-\s*([^-]+)-`)
)

var (
	nmbDateRules = []rule{
		func(line string) (string, bool) {
			m := nmbDatePattern.FindString(line)
			return collapseSpaces(m), m != ""
		},
	}

	nmbReferenceRules = []rule{
		capture(nmbReferencePattern, 1),
	}

	nmbUserIDRules = []rule{
		capture(nmbUserIDPattern, 1),
	}

	nmbNameRules = []rule{
		func(line string) (string, bool) {
			v, ok := capture(nmbNamePattern, 1)(line)
			if !ok {
				return "", false
			}
			v = collapseSpaces(v)
			return v, v != ""
		},
	}

	nmbAmountRules = []rule{
		capture(nmbAmountTabbed, 1),
		capture(nmbAmountBeforeCurrency, 1),
		capture(nmbAmountLoose, 1),
	}

	nmbProductRules = []rule{
		capture(nmbProductPattern, 1),
	}

	nmbPaymentKeywords = []keyword{
		{needle: "transfer", label: "Transfer"},
		{needle: "mobile", label: "Mobile Banking"},
		{needle: "atm", label: "ATM"},
		{needle: "cheque", label: "Cheque"},
	}
)

// ParseNMB extracts a transaction from one NMB statement line.
// The line is expected to be trimmed and non-empty.
func ParseNMB(line string) statement.Transaction {
	tx := statement.Transaction{
		RawLine:         line,
		TransactionDate: firstMatch(line, nmbDateRules),
		ReferenceID:     firstMatch(line, nmbReferenceRules),
		Amount:          firstMatch(line, nmbAmountRules),
		PaymentMethod:   classify(line, nmbPaymentKeywords, "Cash"),
		ProductLabel:    firstMatch(line, nmbProductRules),
	}

	name := firstMatch(line, nmbNameRules)
	tx.CounterpartyName = name
	tx.AccountOrUserID = firstMatch(line, nmbUserIDRules)
	if tx.AccountOrUserID == "" {
		tx.AccountOrUserID = name
	}

	if tx.ProductLabel == "" {
		tx.ProductLabel = DefaultNMBProductLabel
	}

	if tx.ReferenceID == "" && tx.Amount == "" && tx.TransactionDate == "" {
		tx.ErrorMessage = ErrMissingNMBFields
		return tx
	}
	tx.IsValid = true
	return tx
}
