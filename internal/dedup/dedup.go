package dedup

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

// DefaultChunkSize bounds the number of keys sent in one existence query
const DefaultChunkSize = 100

// ExistenceChecker reports which of the given keys are already stored
type ExistenceChecker interface {
	ExistingKeys(ctx context.Context, format statement.BankFormat, field statement.KeyField, keys []string) ([]string, error)
}

// Result is the outcome of filtering a candidate list
type Result struct {
	Kept    []statement.Transaction
	Skipped int
}

// Filter removes transactions whose dedup key already exists in the store
type Filter struct {
	store     ExistenceChecker
	chunkSize int
	logger    *log.Logger
}

// NewFilter creates a Filter. A non-positive chunkSize uses DefaultChunkSize
// and a nil logger discards output.
func NewFilter(store ExistenceChecker, chunkSize int, logger *log.Logger) *Filter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Filter{store: store, chunkSize: chunkSize, logger: logger}
}

// KeyOf returns the field and value a transaction is deduplicated by. Records
// with an empty value for field fall back to the hash of their raw line.
func KeyOf(field statement.KeyField, tx statement.Transaction) (statement.KeyField, string) {
	if k := field.Value(tx); k != "" {
		return field, k
	}
	return statement.KeyLineHash, statement.KeyLineHash.Value(tx)
}

// Apply queries the store chunk by chunk and drops candidates whose key was
// found. Any failed query aborts the whole check.
func (f *Filter) Apply(ctx context.Context, format statement.BankFormat, field statement.KeyField, txns []statement.Transaction) (Result, error) {
	existing := make(map[statement.KeyField]map[string]bool)
	for _, group := range groupKeys(field, txns) {
		found, err := f.existing(ctx, format, group.field, group.keys)
		if err != nil {
			return Result{}, err
		}
		existing[group.field] = found
	}

	result := Result{Kept: make([]statement.Transaction, 0, len(txns))}
	for _, tx := range txns {
		kf, k := KeyOf(field, tx)
		if k != "" && existing[kf][k] {
			result.Skipped++
			continue
		}
		result.Kept = append(result.Kept, tx)
	}

	f.logger.Debug("duplicate check finished",
		"format", format,
		"key", field,
		"candidates", len(txns),
		"skipped", result.Skipped)

	return result, nil
}

func (f *Filter) existing(ctx context.Context, format statement.BankFormat, field statement.KeyField, keys []string) (map[string]bool, error) {
	found := make(map[string]bool)
	for i, chunk := range Chunk(keys, f.chunkSize) {
		stored, err := f.store.ExistingKeys(ctx, format, field, chunk)
		if err != nil {
			return nil, fmt.Errorf("checking existing records (%s chunk %d, %d keys): %w", field, i+1, len(chunk), err)
		}
		for _, k := range stored {
			found[k] = true
		}
	}
	return found, nil
}

type keyGroup struct {
	field statement.KeyField
	keys  []string
}

// groupKeys collects the distinct keys of txns, split by the field they are
// looked up in. The configured field comes first.
func groupKeys(field statement.KeyField, txns []statement.Transaction) []keyGroup {
	groups := []keyGroup{{field: field}}
	if field != statement.KeyLineHash {
		groups = append(groups, keyGroup{field: statement.KeyLineHash})
	}

	seen := make(map[string]bool)
	for _, tx := range txns {
		kf, k := KeyOf(field, tx)
		if k == "" || seen[string(kf)+":"+k] {
			continue
		}
		seen[string(kf)+":"+k] = true
		for i := range groups {
			if groups[i].field == kf {
				groups[i].keys = append(groups[i].keys, k)
			}
		}
	}
	return groups
}

// Chunk splits items into consecutive slices of at most size elements
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
