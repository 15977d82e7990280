package directory

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/xuri/excelize/v2"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

func TestDecodeCSV(t *testing.T) {
	data := []byte("Member_ID,Customer Name,Account No.,Branch,NIDA\n" +
		"22410063786.0,Vitus Itaba,963330000396,Mwanza,1990-01\n" +
		",No Keys,,,\n" +
		"MC001ABC, Asha Juma ,,Dar,\n")

	mappings, err := Decode(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(mappings) != 2 {
		t.Fatalf("Expected 2 mappings, got %d", len(mappings))
	}

	first := mappings[0]
	if first.MemberID != "22410063786" {
		t.Errorf("Expected coerced member id '22410063786', got '%s'", first.MemberID)
	}
	if first.AccountNumber != "963330000396" {
		t.Errorf("Expected account '963330000396', got '%s'", first.AccountNumber)
	}
	if first.NationalID != "1990-01" {
		t.Errorf("Expected national id '1990-01', got '%s'", first.NationalID)
	}
	if first.ProductLabel != "" {
		t.Errorf("Expected unknown 'Branch' column to be ignored, got '%s'", first.ProductLabel)
	}
	if mappings[1].CustomerName != "Asha Juma" {
		t.Errorf("Expected trimmed name 'Asha Juma', got '%s'", mappings[1].CustomerName)
	}
}

func TestDecodeRequiresCustomerName(t *testing.T) {
	_, err := Decode([]byte("member id,account\n1,2\n"))
	if err == nil {
		t.Error("Expected error for missing customer name column")
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, err := Decode([]byte("")); err == nil {
		t.Error("Expected error for empty directory")
	}
}

func TestDecodeExcel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"Member ID", "Reference ID", "Name", "Product"},
		{"MC100XYZ", "963330000141", "Hassan Ngunde", "Savings"},
		{"MC200XYZ", "", "Neema Mollel", ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	mappings, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("Expected 2 mappings, got %d", len(mappings))
	}
	if mappings[0].ReferenceID != "963330000141" || mappings[0].ProductLabel != "Savings" {
		t.Errorf("Unexpected first mapping: %+v", mappings[0])
	}
	if mappings[1].CustomerName != "Neema Mollel" {
		t.Errorf("Expected 'Neema Mollel', got '%s'", mappings[1].CustomerName)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.csv")
	if err := os.WriteFile(path, []byte("member id,customer name\n7,Zuberi\n"), 0644); err != nil {
		t.Fatal(err)
	}

	mappings, err := NewFileSource(path).FetchMappings(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(mappings) != 1 || mappings[0].CustomerName != "Zuberi" {
		t.Errorf("Unexpected mappings: %+v", mappings)
	}

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.csv")).FetchMappings(context.Background())
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

type mockSource struct {
	calls    int
	mappings []statement.CustomerMapping
	err      error
}

func (m *mockSource) FetchMappings(ctx context.Context) ([]statement.CustomerMapping, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.mappings, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCache(src Source, clock *fakeClock) *Cache {
	return NewCache(src, log.New(io.Discard), WithClock(clock.Now), WithTTL(time.Hour))
}

func TestCacheServesFreshSnapshot(t *testing.T) {
	src := &mockSource{mappings: []statement.CustomerMapping{{MemberID: "1", CustomerName: "A"}}}
	clock := &fakeClock{now: time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)}
	cache := newTestCache(src, clock)

	for i := 0; i < 3; i++ {
		snap, err := cache.Get(context.Background())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(snap.Mappings) != 1 {
			t.Errorf("Expected 1 mapping, got %d", len(snap.Mappings))
		}
		clock.now = clock.now.Add(10 * time.Minute)
	}

	if src.calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", src.calls)
	}
}

func TestCacheRefetchesAfterTTL(t *testing.T) {
	src := &mockSource{mappings: []statement.CustomerMapping{{MemberID: "1", CustomerName: "A"}}}
	clock := &fakeClock{now: time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)}
	cache := newTestCache(src, clock)

	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	clock.now = clock.now.Add(time.Hour)
	src.mappings = append(src.mappings, statement.CustomerMapping{MemberID: "2", CustomerName: "B"})

	snap, err := cache.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Errorf("Expected 2 fetches, got %d", src.calls)
	}
	if len(snap.Mappings) != 2 {
		t.Errorf("Expected refreshed data, got %d mappings", len(snap.Mappings))
	}
	if !snap.FetchedAt.Equal(clock.now) {
		t.Errorf("Expected fetchedAt %v, got %v", clock.now, snap.FetchedAt)
	}
}

func TestCacheFallsBackToStale(t *testing.T) {
	src := &mockSource{mappings: []statement.CustomerMapping{{MemberID: "1", CustomerName: "A"}}}
	start := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	cache := newTestCache(src, clock)

	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	clock.now = start.Add(2 * time.Hour)
	src.err = errors.New("sheet unavailable")

	snap, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Expected stale fallback, got error: %v", err)
	}
	if len(snap.Mappings) != 1 || !snap.FetchedAt.Equal(start) {
		t.Errorf("Expected stale snapshot from %v, got %+v", start, snap)
	}
}

func TestCacheErrorsWithoutData(t *testing.T) {
	src := &mockSource{err: errors.New("sheet unavailable")}
	cache := newTestCache(src, &fakeClock{now: time.Now()})

	if _, err := cache.Get(context.Background()); err == nil {
		t.Error("Expected error when nothing was ever fetched")
	}
}

func TestCacheNilLogger(t *testing.T) {
	src := &mockSource{err: errors.New("sheet unavailable")}
	cache := NewCache(src, nil)

	if _, err := cache.Get(context.Background()); err == nil {
		t.Error("Expected error when nothing was ever fetched")
	}

	src.err = nil
	src.mappings = []statement.CustomerMapping{{MemberID: "1", CustomerName: "A"}}
	cache.Invalidate()
	if _, err := cache.Get(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestCacheInvalidate(t *testing.T) {
	src := &mockSource{mappings: []statement.CustomerMapping{{MemberID: "1", CustomerName: "A"}}}
	cache := newTestCache(src, &fakeClock{now: time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)})

	cache.Get(context.Background())
	cache.Invalidate()
	cache.Get(context.Background())

	if src.calls != 2 {
		t.Errorf("Expected invalidate to force a refetch, got %d fetches", src.calls)
	}
}
