package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InsertBatch stores batch metadata and returns the new batch id.
// ID and CreatedAt are assigned when empty.
func (s *Store) InsertBatch(ctx context.Context, b Batch) (string, error) {
	if strings.TrimSpace(b.Name) == "" {
		return "", ErrEmptyName
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (id, name, bank_format, total_lines, success_count, fail_count, skipped_count, total_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, strings.TrimSpace(b.Name), string(b.BankFormat), b.TotalLines, b.SuccessCount, b.FailCount,
		b.SkippedCount, b.TotalAmount.String(), b.CreatedAt.Unix())
	if err != nil {
		return "", fmt.Errorf("inserting batch: %w", err)
	}
	return b.ID, nil
}

// GetBatch returns one batch with its stored transaction count
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, batchSelect+` WHERE b.id = ?`, id)
	b, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("batch %s: %w", id, ErrBatchNotFound)
		}
		return nil, fmt.Errorf("querying batch %s: %w", id, err)
	}
	return b, nil
}

// ListBatches returns batches newest first
func (s *Store) ListBatches(ctx context.Context, filter BatchFilter) ([]*Batch, error) {
	query := batchSelect
	var (
		where []string
		args  []any
	)
	if filter.Format != "" {
		where = append(where, "b.bank_format = ?")
		args = append(args, string(filter.Format))
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		where = append(where, "LOWER(b.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(name)+"%")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.created_at DESC, b.rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// RenameBatch changes the display name of a batch
func (s *Store) RenameBatch(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	res, err := s.db.ExecContext(ctx, `UPDATE batches SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("renaming batch %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// DeleteBatch removes a batch and all of its transactions
func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	return s.ExecTx(ctx, func(tx *Store) error {
		if _, err := tx.db.ExecContext(ctx, `DELETE FROM transactions WHERE batch_id = ?`, id); err != nil {
			return fmt.Errorf("deleting transactions of batch %s: %w", id, err)
		}
		res, err := tx.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting batch %s: %w", id, err)
		}
		return requireAffected(res, id)
	})
}

const batchSelect = `
	SELECT b.id, b.name, b.bank_format, b.total_lines, b.success_count, b.fail_count,
		b.skipped_count, b.total_amount, b.created_at,
		(SELECT COUNT(*) FROM transactions t WHERE t.batch_id = b.id)
	FROM batches b`

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*Batch, error) {
	b := &Batch{}
	var createdAt int64
	err := row.Scan(
		&b.ID, &b.Name, &b.BankFormat, &b.TotalLines, &b.SuccessCount, &b.FailCount,
		&b.SkippedCount, &b.TotalAmount, &createdAt, &b.TransactionCount,
	)
	if err != nil {
		return nil, err
	}
	b.CreatedAt = time.Unix(createdAt, 0)
	return b, nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("batch %s: %w", id, ErrBatchNotFound)
	}
	return nil
}
