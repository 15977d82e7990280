package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestBatch(t *testing.T, s *Store, name string, format statement.BankFormat, created time.Time) string {
	t.Helper()
	id, err := s.InsertBatch(context.Background(), Batch{
		Name:         name,
		BankFormat:   format,
		TotalLines:   3,
		SuccessCount: 2,
		FailCount:    1,
		TotalAmount:  decimal.RequireFromString("25000.50"),
		CreatedAt:    created,
	})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	return id
}

func sampleTxns() []statement.Transaction {
	return []statement.Transaction{
		{TransactionDate: "20 Jan 2026", ReferenceID: "963330000141", AccountOrUserID: "22410063786", Amount: "12500.00", PaymentMethod: "Cash", IsValid: true},
		{TransactionDate: "20 Jan 2026", ReferenceID: "963330000142", AccountOrUserID: "22410063787", Amount: "12,500.50", CustomerName: "Asha", IsValid: true},
	}
}

func TestNewStoreIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		s, err := NewStore(path)
		if err != nil {
			t.Fatalf("NewStore run %d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestInsertAndGetBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := insertTestBatch(t, s, " January NMB ", statement.FormatNMB, time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC))
	if id == "" {
		t.Fatal("Expected generated batch id")
	}

	written, err := s.InsertTransactions(ctx, id, statement.FormatNMB, sampleTxns())
	if err != nil {
		t.Fatalf("InsertTransactions: %v", err)
	}
	if written != 2 {
		t.Errorf("Expected 2 written, got %d", written)
	}

	b, err := s.GetBatch(ctx, id)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if b.Name != "January NMB" {
		t.Errorf("Expected trimmed name 'January NMB', got '%s'", b.Name)
	}
	if b.BankFormat != statement.FormatNMB {
		t.Errorf("Expected format NMB, got %s", b.BankFormat)
	}
	if !b.TotalAmount.Equal(decimal.RequireFromString("25000.50")) {
		t.Errorf("Expected total 25000.50, got %s", b.TotalAmount)
	}
	if b.TransactionCount != 2 {
		t.Errorf("Expected 2 stored transactions, got %d", b.TransactionCount)
	}

	txns, err := s.GetBatchTransactions(ctx, id)
	if err != nil {
		t.Fatalf("GetBatchTransactions: %v", err)
	}
	if len(txns) != 2 || txns[1].CustomerName != "Asha" || txns[1].Amount != "12,500.50" {
		t.Errorf("Unexpected stored transactions: %+v", txns)
	}
}

func TestInsertBatchRequiresName(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertBatch(context.Background(), Batch{Name: "  ", BankFormat: statement.FormatNMB})
	if !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
}

func TestExistingKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := insertTestBatch(t, s, "batch", statement.FormatNMB, time.Now())
	if _, err := s.InsertTransactions(ctx, id, statement.FormatNMB, sampleTxns()); err != nil {
		t.Fatal(err)
	}

	found, err := s.ExistingKeys(ctx, statement.FormatNMB, statement.KeyReferenceID, []string{"963330000141", "000"})
	if err != nil {
		t.Fatalf("ExistingKeys: %v", err)
	}
	if len(found) != 1 || found[0] != "963330000141" {
		t.Errorf("Expected [963330000141], got %v", found)
	}

	found, err = s.ExistingKeys(ctx, statement.FormatNMB, statement.KeyAccountOrUserID, []string{"22410063786", "22410063787"})
	if err != nil {
		t.Fatalf("ExistingKeys: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("Expected 2 account keys, got %v", found)
	}

	// Keys are scoped to the bank format
	found, err = s.ExistingKeys(ctx, statement.FormatCRDB, statement.KeyReferenceID, []string{"963330000141"})
	if err != nil {
		t.Fatalf("ExistingKeys: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Expected no CRDB keys, got %v", found)
	}

	if _, err := s.ExistingKeys(ctx, statement.FormatNMB, statement.KeyField("amount; DROP TABLE"), []string{"1"}); err == nil {
		t.Error("Expected error for unknown key field")
	}
}

func TestListBatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	insertTestBatch(t, s, "NMB week 1", statement.FormatNMB, base)
	insertTestBatch(t, s, "CRDB week 1", statement.FormatCRDB, base.Add(time.Hour))
	insertTestBatch(t, s, "NMB week 2", statement.FormatNMB, base.Add(2*time.Hour))

	all, err := s.ListBatches(ctx, BatchFilter{})
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 batches, got %d", len(all))
	}
	if all[0].Name != "NMB week 2" {
		t.Errorf("Expected newest first, got '%s'", all[0].Name)
	}

	nmb, _ := s.ListBatches(ctx, BatchFilter{Format: statement.FormatNMB})
	if len(nmb) != 2 {
		t.Errorf("Expected 2 NMB batches, got %d", len(nmb))
	}

	named, _ := s.ListBatches(ctx, BatchFilter{Name: "crdb"})
	if len(named) != 1 || named[0].BankFormat != statement.FormatCRDB {
		t.Errorf("Expected the CRDB batch by name, got %+v", named)
	}

	limited, _ := s.ListBatches(ctx, BatchFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("Expected limit 1, got %d", len(limited))
	}
}

func TestRenameBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := insertTestBatch(t, s, "old", statement.FormatNMB, time.Now())

	if err := s.RenameBatch(ctx, id, "new name"); err != nil {
		t.Fatalf("RenameBatch: %v", err)
	}
	b, _ := s.GetBatch(ctx, id)
	if b.Name != "new name" {
		t.Errorf("Expected 'new name', got '%s'", b.Name)
	}

	if err := s.RenameBatch(ctx, "missing", "x"); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("Expected ErrBatchNotFound, got %v", err)
	}
	if err := s.RenameBatch(ctx, id, ""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
}

func TestDeleteBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := insertTestBatch(t, s, "to delete", statement.FormatNMB, time.Now())
	if _, err := s.InsertTransactions(ctx, id, statement.FormatNMB, sampleTxns()); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteBatch(ctx, id); err != nil {
		t.Fatalf("DeleteBatch: %v", err)
	}
	if _, err := s.GetBatch(ctx, id); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("Expected ErrBatchNotFound after delete, got %v", err)
	}

	found, _ := s.ExistingKeys(ctx, statement.FormatNMB, statement.KeyReferenceID, []string{"963330000141"})
	if len(found) != 0 {
		t.Errorf("Expected transactions to be deleted with the batch, got %v", found)
	}

	if err := s.DeleteBatch(ctx, id); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("Expected ErrBatchNotFound for second delete, got %v", err)
	}
}

func TestDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := insertTestBatch(t, s, "first", statement.FormatNMB, time.Now())
	second := insertTestBatch(t, s, "second", statement.FormatNMB, time.Now())
	s.InsertTransactions(ctx, first, statement.FormatNMB, sampleTxns())
	s.InsertTransactions(ctx, second, statement.FormatNMB, sampleTxns()[:1])

	n, err := s.DuplicateCount(ctx, statement.KeyReferenceID)
	if err != nil {
		t.Fatalf("DuplicateCount: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 duplicate, got %d", n)
	}

	deleted, err := s.PruneDuplicates(ctx, statement.KeyReferenceID)
	if err != nil {
		t.Fatalf("PruneDuplicates: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", deleted)
	}

	txns, _ := s.GetBatchTransactions(ctx, first)
	if len(txns) != 2 {
		t.Errorf("Expected earliest rows to be kept, got %d in first batch", len(txns))
	}
}
