package store

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

var (
	ErrBatchNotFound = errors.New("batch not found")
	ErrEmptyName     = errors.New("batch name must not be empty")
)

// Batch is one stored import
type Batch struct {
	ID               string
	Name             string
	BankFormat       statement.BankFormat
	TotalLines       int
	SuccessCount     int
	FailCount        int
	SkippedCount     int
	TotalAmount      decimal.Decimal
	CreatedAt        time.Time
	TransactionCount int
}

// BatchFilter narrows ListBatches. Zero values match everything.
type BatchFilter struct {
	Format statement.BankFormat
	Name   string // substring, case-insensitive
	Limit  int
}
