package statement

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BankFormat identifies one of the supported statement layouts
type BankFormat string

const (
	FormatNMB  BankFormat = "NMB"
	FormatCRDB BankFormat = "CRDB"
)

// ParseBankFormat converts user input such as "nmb" into a BankFormat
func ParseBankFormat(s string) (BankFormat, error) {
	switch BankFormat(strings.ToUpper(strings.TrimSpace(s))) {
	case FormatNMB:
		return FormatNMB, nil
	case FormatCRDB:
		return FormatCRDB, nil
	default:
		return "", fmt.Errorf("unsupported bank format: %q", s)
	}
}

// Direction is the side of the account a transaction lands on
type Direction string

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

// Transaction is one normalized statement line
type Transaction struct {
	TransactionDate  string
	ReferenceID      string
	AccountOrUserID  string
	Amount           string
	CounterpartyName string
	ProductLabel     string
	PaymentMethod    string
	Direction        Direction
	RawLine          string
	IsValid          bool
	ErrorMessage     string

	// Set by identity resolution only
	CustomerName string
	MemberID     string
	NationalID   string
}

// ParseResult holds the outcome of parsing one pasted batch
type ParseResult struct {
	Successful   []Transaction
	Failed       []Transaction
	TotalLines   int
	SuccessCount int
	FailCount    int
	BankFormat   BankFormat
}

// CustomerMapping links a member to the identifiers that show up on statements
type CustomerMapping struct {
	MemberID      string
	ReferenceID   string
	CustomerName  string
	AccountNumber string
	ProductLabel  string
	NationalID    string
}

// Totals are the aggregate counters of a batch
type Totals struct {
	TotalLines   int
	SuccessCount int
	FailCount    int
	TotalAmount  decimal.Decimal
}

// KeyField names the transaction field used to detect already stored records
type KeyField string

const (
	KeyReferenceID     KeyField = "reference_id"
	KeyAccountOrUserID KeyField = "account_or_user_id"

	// KeyLineHash identifies a record by its raw statement line. It is the
	// fallback for records whose configured key is empty.
	KeyLineHash KeyField = "line_hash"
)

// ParseKeyField validates a configured dedup key
func ParseKeyField(s string) (KeyField, error) {
	switch KeyField(strings.ToLower(strings.TrimSpace(s))) {
	case KeyReferenceID:
		return KeyReferenceID, nil
	case KeyAccountOrUserID:
		return KeyAccountOrUserID, nil
	case KeyLineHash:
		return KeyLineHash, nil
	default:
		return "", fmt.Errorf("unsupported dedup key: %q", s)
	}
}

// Value returns the key value of tx for this field
func (k KeyField) Value(tx Transaction) string {
	switch k {
	case KeyAccountOrUserID:
		return tx.AccountOrUserID
	case KeyLineHash:
		return LineHash(tx.RawLine)
	default:
		return tx.ReferenceID
	}
}

// LineHash fingerprints a statement line. Runs of whitespace are collapsed so
// the same line pasted with different spacing hashes the same. An empty line
// has no hash.
func LineHash(line string) string {
	normalized := strings.Join(strings.Fields(line), " ")
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
