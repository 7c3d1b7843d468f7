package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harborstay/loyalty/internal/model"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	var refType, refID sql.NullString
	var expiresAt, expiredAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.AccountID, &t.Type, &t.Points, &t.Description,
		&refType, &refID, &expiresAt, &expiredAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ReferenceType = refType.String
	t.ReferenceID = refID.String
	if expiresAt.Valid {
		t.ExpiresAt = &expiresAt.Time
	}
	if expiredAt.Valid {
		t.ExpiredAt = &expiredAt.Time
	}
	return &t, nil
}

const transactionCols = `id, account_id, type, points, description, reference_type, reference_id, expires_at, expired_at, created_at`

// execer is satisfied by both *sql.DB and *sql.Tx so the write helpers
// can run standalone or inside a transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertTransaction(e execer, t *model.Transaction) error {
	var refType, refID sql.NullString
	if t.ReferenceType != "" {
		refType = sql.NullString{String: t.ReferenceType, Valid: true}
	}
	if t.ReferenceID != "" {
		refID = sql.NullString{String: t.ReferenceID, Valid: true}
	}
	var expiresAt, expiredAt sql.NullTime
	if t.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *t.ExpiresAt, Valid: true}
	}
	if t.ExpiredAt != nil {
		expiredAt = sql.NullTime{Time: *t.ExpiredAt, Valid: true}
	}

	_, err := e.Exec(
		`INSERT INTO loyalty_transactions (`+transactionCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Type, t.Points, t.Description,
		refType, refID, expiresAt, expiredAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *TransactionStore) Add(t *model.Transaction) error {
	return insertTransaction(s.db, t)
}

func (s *TransactionStore) GetByID(id string) (*model.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM loyalty_transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListByAccount returns up to limit entries for the account, newest first.
func (s *TransactionStore) ListByAccount(accountID string, limit int) ([]model.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM loyalty_transactions
		 WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListExpiring returns earn/bonus entries due to expire at or before asOf
// that have not yet been swept, oldest expiry first.
func (s *TransactionStore) ListExpiring(accountID string, asOf time.Time) ([]model.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM loyalty_transactions
		 WHERE account_id = ? AND expires_at IS NOT NULL AND expires_at <= ? AND expired_at IS NULL
		 ORDER BY expires_at ASC`,
		accountID, asOf,
	)
	if err != nil {
		return nil, fmt.Errorf("list expiring transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// MarkExpired stamps the given entries as swept so they are never expired
// twice.
func (s *TransactionStore) MarkExpired(ids []string, at time.Time) error {
	return markExpired(s.db, ids, at)
}

func markExpired(e execer, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, 0, len(ids)+1)
	args = append(args, at)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := e.Exec(
		`UPDATE loyalty_transactions SET expired_at = ? WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	return nil
}

// RecordExpiry persists one completed sweep atomically: the compensating
// expire entries, the expired_at marks on the swept source rows, and the
// account's updated balances. A partial sweep never becomes visible, so a
// retried sweep either sees everything done or nothing done.
func (s *TransactionStore) RecordExpiry(a *model.Account, entries []model.Transaction, sweptIDs []string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin sweep: %w", err)
	}
	defer tx.Rollback()

	for i := range entries {
		if err := insertTransaction(tx, &entries[i]); err != nil {
			return err
		}
	}
	if err := markExpired(tx, sweptIDs, at); err != nil {
		return err
	}
	if err := updateAccount(tx, a); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sweep: %w", err)
	}
	return nil
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txs []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
