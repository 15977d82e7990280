// Package pages holds the HTML components of the web UI. Components are
// written in .templ files; run `templ generate` after editing them.
package pages

// PreviewIdentifier is an identifier found in a raw line
type PreviewIdentifier struct {
	Type  string
	Value string
}

// PreviewTransaction is one parsed row as shown before import
type PreviewTransaction struct {
	Date          string
	Reference     string
	AccountOrUser string
	Counterparty  string
	Customer      string
	MemberID      string
	Product       string
	PaymentMethod string
	Amount        string
	Identifiers   []PreviewIdentifier
}

// FailedLine is a line that could not be parsed
type FailedLine struct {
	Line  string
	Error string
}

type PreviewData struct {
	Format       string
	Data         string
	TotalLines   int
	SuccessCount int
	FailCount    int
	Resolved     int
	TotalAmount  string
	Transactions []PreviewTransaction
	Failed       []FailedLine
}

type ImportResultData struct {
	BatchID      string
	Name         string
	Written      int
	Skipped      int
	Unsaved      int
	FailedChunks int
	FailCount    int
}

type BatchRow struct {
	ID          string
	Name        string
	Format      string
	CreatedAt   string
	TotalLines  int
	Stored      int
	Skipped     int
	FailCount   int
	TotalAmount string
}
