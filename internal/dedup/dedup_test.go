package dedup_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Iamcalix/quickbooksupload/internal/dedup"
	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

type MockStore struct {
	existing map[string]bool
	failOn   int // 1-based call number that fails, 0 never
	calls    [][]string
}

func (m *MockStore) ExistingKeys(ctx context.Context, format statement.BankFormat, field statement.KeyField, keys []string) ([]string, error) {
	m.calls = append(m.calls, keys)
	if m.failOn == len(m.calls) {
		return nil, errors.New("connection reset")
	}
	var found []string
	for _, k := range keys {
		if m.existing[k] {
			found = append(found, k)
		}
	}
	return found, nil
}

func refs(n int) []statement.Transaction {
	txns := make([]statement.Transaction, n)
	for i := range txns {
		txns[i] = statement.Transaction{ReferenceID: fmt.Sprintf("REF%03d", i), IsValid: true}
	}
	return txns
}

func TestFilterRemovesExisting(t *testing.T) {
	store := &MockStore{existing: map[string]bool{"REF001": true, "REF003": true}}
	filter := dedup.NewFilter(store, 2, log.New(io.Discard))

	result, err := filter.Apply(context.Background(), statement.FormatCRDB, statement.KeyReferenceID, refs(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", result.Skipped)
	}
	if len(result.Kept) != 3 {
		t.Fatalf("Expected 3 kept, got %d", len(result.Kept))
	}
	for i, want := range []string{"REF000", "REF002", "REF004"} {
		if result.Kept[i].ReferenceID != want {
			t.Errorf("Kept[%d]: Expected %s, got %s", i, want, result.Kept[i].ReferenceID)
		}
	}

	// 5 keys in chunks of 2
	if len(store.calls) != 3 {
		t.Errorf("Expected 3 chunk queries, got %d", len(store.calls))
	}
	for _, call := range store.calls {
		if len(call) > 2 {
			t.Errorf("Expected chunks of at most 2 keys, got %d", len(call))
		}
	}
}

func TestFilterAbortsOnChunkFailure(t *testing.T) {
	store := &MockStore{existing: map[string]bool{}, failOn: 2}
	filter := dedup.NewFilter(store, 2, log.New(io.Discard))

	result, err := filter.Apply(context.Background(), statement.FormatNMB, statement.KeyReferenceID, refs(6))
	if err == nil {
		t.Fatal("Expected error when a chunk query fails")
	}
	if len(result.Kept) != 0 || result.Skipped != 0 {
		t.Errorf("Expected no partial result, got %+v", result)
	}
	if len(store.calls) != 2 {
		t.Errorf("Expected processing to stop at failing chunk, got %d calls", len(store.calls))
	}
}

func TestFilterKeepsEmptyKeysAndQueriesDistinct(t *testing.T) {
	store := &MockStore{existing: map[string]bool{"22410063786": true}}
	filter := dedup.NewFilter(store, 0, log.New(io.Discard))

	txns := []statement.Transaction{
		{AccountOrUserID: "22410063786"},
		{AccountOrUserID: ""},
		{AccountOrUserID: "22410063786"},
		{AccountOrUserID: "555"},
	}

	result, err := filter.Apply(context.Background(), statement.FormatNMB, statement.KeyAccountOrUserID, txns)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", result.Skipped)
	}
	if len(result.Kept) != 2 {
		t.Errorf("Expected 2 kept, got %d", len(result.Kept))
	}
	if len(store.calls) != 1 || len(store.calls[0]) != 2 {
		t.Errorf("Expected one query with 2 distinct keys, got %v", store.calls)
	}
}

func TestFilterFallsBackToLineHash(t *testing.T) {
	stored := "20 Jan 2026 Cash Deposit @22410063786@ => JOHN DOE 12,500.00 TZS"
	store := &MockStore{existing: map[string]bool{
		"REF001":                   true,
		statement.LineHash(stored): true,
	}}
	filter := dedup.NewFilter(store, 0, log.New(io.Discard))

	txns := []statement.Transaction{
		{ReferenceID: "REF001", RawLine: "REF001 line"},
		{RawLine: "20 Jan 2026  Cash Deposit @22410063786@ =>  JOHN DOE 12,500.00 TZS"},
		{RawLine: "21 Jan 2026 Cash Deposit => ASHA ALLY 1,000.50 TZS"},
	}

	result, err := filter.Apply(context.Background(), statement.FormatNMB, statement.KeyReferenceID, txns)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", result.Skipped)
	}
	if len(result.Kept) != 1 || result.Kept[0].RawLine != txns[2].RawLine {
		t.Errorf("Expected only the new key-less line kept, got %+v", result.Kept)
	}
	if len(store.calls) != 2 {
		t.Errorf("Expected one reference query and one line hash query, got %d", len(store.calls))
	}
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		name      string
		tx        statement.Transaction
		wantField statement.KeyField
		wantKey   string
	}{
		{"configured key", statement.Transaction{ReferenceID: "R1", RawLine: "a"}, statement.KeyReferenceID, "R1"},
		{"fallback", statement.Transaction{RawLine: "a  b"}, statement.KeyLineHash, statement.LineHash("a b")},
		{"nothing to key on", statement.Transaction{}, statement.KeyLineHash, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, key := dedup.KeyOf(statement.KeyReferenceID, tt.tx)
			if field != tt.wantField || key != tt.wantKey {
				t.Errorf("Expected %s=%q, got %s=%q", tt.wantField, tt.wantKey, field, key)
			}
		})
	}
}

func TestFilterNilLogger(t *testing.T) {
	filter := dedup.NewFilter(&MockStore{}, 0, nil)
	if _, err := filter.Apply(context.Background(), statement.FormatNMB, statement.KeyReferenceID, refs(2)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestFilterNoCandidates(t *testing.T) {
	store := &MockStore{}
	filter := dedup.NewFilter(store, 10, log.New(io.Discard))

	result, err := filter.Apply(context.Background(), statement.FormatNMB, statement.KeyReferenceID, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("Expected no store queries, got %d", len(store.calls))
	}
	if result.Skipped != 0 || len(result.Kept) != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestChunk(t *testing.T) {
	chunks := dedup.Chunk([]int{1, 2, 3, 4, 5, 6, 7}, 3)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 1 || chunks[2][0] != 7 {
		t.Errorf("Expected last chunk [7], got %v", chunks[2])
	}
	if len(dedup.Chunk([]int{}, 3)) != 0 {
		t.Error("Expected no chunks for empty input")
	}
}
