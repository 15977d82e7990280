package parser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

// Failure messages carried by invalid transactions
const (
	ErrEmptyLine         = "empty line"
	ErrMissingNMBFields  = "missing required fields: date, reference and amount"
	ErrMissingCRDBFields = "missing required fields: date and amount"
)

// extractors dispatches a line to the extractor of its format
var extractors = map[statement.BankFormat]func(line, dateSep string) statement.Transaction{
	statement.FormatNMB:  func(line, _ string) statement.Transaction { return ParseNMB(line) },
	statement.FormatCRDB: ParseCRDB,
}

// Parser turns pasted statement text into transactions
type Parser struct {
	// DateSeparator is used for CRDB dates ("/" or "-")
	DateSeparator string
}

// New creates a Parser. An empty separator defaults to "/".
func New(dateSeparator string) *Parser {
	if dateSeparator == "" {
		dateSeparator = "/"
	}
	return &Parser{DateSeparator: dateSeparator}
}

// ParseLine parses a single line in the given format. It never panics: a fault
// inside an extraction rule becomes an invalid transaction.
func (p *Parser) ParseLine(format statement.BankFormat, line string) (tx statement.Transaction) {
	line = strings.TrimSpace(line)
	if line == "" {
		return statement.Transaction{ErrorMessage: ErrEmptyLine}
	}

	defer func() {
		if r := recover(); r != nil {
			tx = statement.Transaction{
				RawLine:      line,
				ErrorMessage: fmt.Sprintf("extraction failed: %v", r),
			}
		}
	}()

	extract, ok := extractors[format]
	if !ok {
		return statement.Transaction{
			RawLine:      line,
			ErrorMessage: fmt.Sprintf("unsupported bank format: %q", format),
		}
	}
	return extract(line, p.DateSeparator)
}

// Parse splits text into lines and parses each of them in input order.
// Blank lines are dropped before counting.
func (p *Parser) Parse(format statement.BankFormat, text string) statement.ParseResult {
	result := statement.ParseResult{BankFormat: format}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		result.TotalLines++

		tx := p.ParseLine(format, line)
		if tx.IsValid {
			result.Successful = append(result.Successful, tx)
		} else {
			result.Failed = append(result.Failed, tx)
		}
	}

	result.SuccessCount = len(result.Successful)
	result.FailCount = len(result.Failed)
	return result
}

// Aggregate computes batch totals. Amounts that cannot be parsed count as zero.
func Aggregate(result statement.ParseResult) statement.Totals {
	return statement.Totals{
		TotalLines:   result.TotalLines,
		SuccessCount: result.SuccessCount,
		FailCount:    result.FailCount,
		TotalAmount:  SumAmounts(result.Successful),
	}
}

// SumAmounts adds up the amounts of txns
func SumAmounts(txns []statement.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txns {
		total = total.Add(ParseAmount(tx.Amount))
	}
	return total
}

// ParseAmount parses a comma-grouped amount such as "12,500.00".
// It returns zero when the value is not a number.
func ParseAmount(s string) decimal.Decimal {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
