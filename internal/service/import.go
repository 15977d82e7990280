package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/Iamcalix/quickbooksupload/internal/dedup"
	"github.com/Iamcalix/quickbooksupload/internal/directory"
	"github.com/Iamcalix/quickbooksupload/internal/matcher"
	"github.com/Iamcalix/quickbooksupload/internal/parser"
	"github.com/Iamcalix/quickbooksupload/internal/statement"
	"github.com/Iamcalix/quickbooksupload/internal/store"
)

// DefaultWriteChunkSize is the number of records written per SQL transaction
const DefaultWriteChunkSize = 100

// BatchStore is the part of the record store used by imports
type BatchStore interface {
	dedup.ExistenceChecker
	InsertBatch(ctx context.Context, b store.Batch) (string, error)
	InsertTransactions(ctx context.Context, batchID string, format statement.BankFormat, records []statement.Transaction) (int, error)
}

// MappingCache provides the current customer directory snapshot
type MappingCache interface {
	Get(ctx context.Context) (directory.Snapshot, error)
}

// Preview is a parsed and enriched batch that has not been stored
type Preview struct {
	Result   statement.ParseResult
	Totals   statement.Totals
	Resolved int
}

type ImportRequest struct {
	Format statement.BankFormat
	Text   string
	Name   string
}

// Report describes what an import stored. Totals covers every parsed line;
// ImportedAmount only the records left after duplicates were removed.
type Report struct {
	BatchID        string
	Result         statement.ParseResult
	Totals         statement.Totals
	ImportedAmount decimal.Decimal
	Skipped        int
	Written        int
	Unsaved        int
	FailedChunks   int
}

// ImportService runs pasted statements through parsing, identity resolution,
// duplicate filtering and persistence.
type ImportService struct {
	store      BatchStore
	cache      MappingCache
	parser     *parser.Parser
	filter     *dedup.Filter
	keys       map[statement.BankFormat]statement.KeyField
	writeChunk int
	logger     *log.Logger
}

// Options tune an ImportService. Zero values use defaults.
type Options struct {
	DateSeparator  string
	DedupChunkSize int
	WriteChunkSize int
	Keys           map[statement.BankFormat]statement.KeyField
}

func NewImportService(s BatchStore, cache MappingCache, opts Options, logger *log.Logger) *ImportService {
	keys := map[statement.BankFormat]statement.KeyField{
		statement.FormatNMB:  statement.KeyReferenceID,
		statement.FormatCRDB: statement.KeyReferenceID,
	}
	for f, k := range opts.Keys {
		keys[f] = k
	}
	writeChunk := opts.WriteChunkSize
	if writeChunk <= 0 {
		writeChunk = DefaultWriteChunkSize
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &ImportService{
		store:      s,
		cache:      cache,
		parser:     parser.New(opts.DateSeparator),
		filter:     dedup.NewFilter(s, opts.DedupChunkSize, logger),
		keys:       keys,
		writeChunk: writeChunk,
		logger:     logger,
	}
}

// Preview parses text and enriches the successful records from the customer
// directory. Nothing is read from or written to the record store.
func (s *ImportService) Preview(ctx context.Context, format statement.BankFormat, text string) (Preview, error) {
	if _, ok := s.keys[format]; !ok {
		return Preview{}, fmt.Errorf("unsupported bank format: %q", format)
	}

	result := s.parser.Parse(format, text)
	resolved := 0
	if len(result.Successful) > 0 {
		resolved = s.enrich(ctx, result.Successful)
	}

	s.logger.Debug("statement parsed",
		"format", format,
		"lines", result.TotalLines,
		"ok", result.SuccessCount,
		"failed", result.FailCount,
		"resolved", resolved)

	return Preview{
		Result:   result,
		Totals:   parser.Aggregate(result),
		Resolved: resolved,
	}, nil
}

// Import previews text, drops records already stored, saves the batch and
// writes the remaining records chunk by chunk. A failed duplicate check or
// batch insert aborts with nothing written. A failed write chunk is logged and
// counted in Report.Unsaved while the remaining chunks are still written.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (Report, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Report{}, store.ErrEmptyName
	}

	preview, err := s.Preview(ctx, req.Format, req.Text)
	if err != nil {
		return Report{}, err
	}

	key := s.keys[req.Format]
	filtered, err := s.filter.Apply(ctx, req.Format, key, preview.Result.Successful)
	if err != nil {
		return Report{}, fmt.Errorf("duplicate check failed, import aborted: %w", err)
	}

	report := Report{
		Result:         preview.Result,
		Totals:         preview.Totals,
		ImportedAmount: parser.SumAmounts(filtered.Kept),
		Skipped:        filtered.Skipped,
	}

	batchID, err := s.store.InsertBatch(ctx, store.Batch{
		Name:         name,
		BankFormat:   req.Format,
		TotalLines:   preview.Totals.TotalLines,
		SuccessCount: preview.Totals.SuccessCount,
		FailCount:    preview.Totals.FailCount,
		SkippedCount: filtered.Skipped,
		TotalAmount:  report.ImportedAmount,
	})
	if err != nil {
		return Report{}, fmt.Errorf("saving batch: %w", err)
	}
	report.BatchID = batchID

	for i, chunk := range dedup.Chunk(filtered.Kept, s.writeChunk) {
		n, err := s.store.InsertTransactions(ctx, batchID, req.Format, chunk)
		if err != nil {
			s.logger.Error("failed to write transaction chunk, skipping",
				"batch", batchID,
				"chunk", i+1,
				"records", len(chunk),
				"err", err)
			report.FailedChunks++
			report.Unsaved += len(chunk)
			continue
		}
		report.Written += n
	}

	s.logger.Info("batch imported",
		"batch", batchID,
		"name", name,
		"format", req.Format,
		"written", report.Written,
		"skipped", report.Skipped,
		"unsaved", report.Unsaved)

	return report, nil
}

// enrich applies the directory snapshot to txns. A directory that cannot be
// loaded leaves the batch unenriched.
func (s *ImportService) enrich(ctx context.Context, txns []statement.Transaction) int {
	if s.cache == nil {
		return 0
	}
	snap, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("customer directory unavailable, continuing without enrichment", "err", err)
		return 0
	}
	return matcher.NewResolver(snap.Mappings).Apply(txns)
}
