package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

// InsertTransactions stores records under batchID in a single database
// transaction and returns the number of rows written.
func (s *Store) InsertTransactions(ctx context.Context, batchID string, format statement.BankFormat, records []statement.Transaction) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	written := 0
	err := s.ExecTx(ctx, func(tx *Store) error {
		stmt, err := tx.db.PrepareContext(ctx, `
			INSERT INTO transactions (
				batch_id, bank_format, transaction_date, reference_id, account_or_user_id, amount,
				counterparty_name, customer_name, member_id, national_id, product_label,
				payment_method, direction, raw_line, line_hash, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing transaction insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().Unix()
		for _, r := range records {
			_, err := stmt.ExecContext(ctx,
				batchID, string(format), r.TransactionDate, r.ReferenceID, r.AccountOrUserID, r.Amount,
				r.CounterpartyName, r.CustomerName, r.MemberID, r.NationalID, r.ProductLabel,
				r.PaymentMethod, string(r.Direction), r.RawLine, statement.LineHash(r.RawLine), now,
			)
			if err != nil {
				return fmt.Errorf("inserting transaction (reference %q): %w", r.ReferenceID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// ExistingKeys returns the subset of keys already stored for format in the
// column named by field
func (s *Store) ExistingKeys(ctx context.Context, format statement.BankFormat, field statement.KeyField, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	col, err := keyColumn(field)
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, string(format))
	for _, k := range keys {
		args = append(args, k)
	}

	query := fmt.Sprintf(`SELECT DISTINCT %s FROM transactions WHERE bank_format = ? AND %s IN (%s)`,
		col, col, placeholders(len(keys)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying existing keys: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		found = append(found, k)
	}
	return found, rows.Err()
}

// GetBatchTransactions returns the stored transactions of a batch in insert order
func (s *Store) GetBatchTransactions(ctx context.Context, batchID string) ([]statement.Transaction, error) {
	if _, err := s.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_date, reference_id, account_or_user_id, amount, counterparty_name,
			customer_name, member_id, national_id, product_label, payment_method, direction, raw_line
		FROM transactions
		WHERE batch_id = ?
		ORDER BY id
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions of batch %s: %w", batchID, err)
	}
	defer rows.Close()

	var txns []statement.Transaction
	for rows.Next() {
		tx := statement.Transaction{IsValid: true}
		err := rows.Scan(
			&tx.TransactionDate, &tx.ReferenceID, &tx.AccountOrUserID, &tx.Amount, &tx.CounterpartyName,
			&tx.CustomerName, &tx.MemberID, &tx.NationalID, &tx.ProductLabel, &tx.PaymentMethod,
			&tx.Direction, &tx.RawLine,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, tx)
	}
	return txns, rows.Err()
}

// DuplicateCount counts stored transactions whose key repeats an earlier row
// of the same bank format
func (s *Store) DuplicateCount(ctx context.Context, field statement.KeyField) (int, error) {
	col, err := keyColumn(field)
	if err != nil {
		return 0, err
	}

	var n int
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM transactions t1
		WHERE t1.%[1]s <> ''
		AND EXISTS (
			SELECT 1 FROM transactions t2
			WHERE t2.id < t1.id
			AND t2.bank_format = t1.bank_format
			AND t2.%[1]s = t1.%[1]s
		)`, col)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting duplicates: %w", err)
	}
	return n, nil
}

// PruneDuplicates deletes repeated keys, keeping the earliest row
func (s *Store) PruneDuplicates(ctx context.Context, field statement.KeyField) (int64, error) {
	col, err := keyColumn(field)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM transactions
		WHERE %[1]s <> ''
		AND id NOT IN (
			SELECT MIN(id) FROM transactions
			WHERE %[1]s <> ''
			GROUP BY bank_format, %[1]s
		)`, col))
	if err != nil {
		return 0, fmt.Errorf("deleting duplicates: %w", err)
	}
	return res.RowsAffected()
}

// keyColumn maps a dedup key onto its column. Only known columns are allowed
// into the generated SQL.
func keyColumn(field statement.KeyField) (string, error) {
	switch field {
	case statement.KeyReferenceID:
		return "reference_id", nil
	case statement.KeyAccountOrUserID:
		return "account_or_user_id", nil
	case statement.KeyLineHash:
		return "line_hash", nil
	default:
		return "", fmt.Errorf("unsupported dedup key: %q", field)
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
