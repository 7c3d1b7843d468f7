package store

import (
	"database/sql"
	"fmt"

	"github.com/harborstay/loyalty/internal/model"
)

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func scanAccount(scanner interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	var tierExpires sql.NullTime

	err := scanner.Scan(
		&a.ID, &a.MemberID, &a.TotalPoints, &a.AvailablePoints, &a.LifetimePoints,
		&a.Tier, &tierExpires, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tierExpires.Valid {
		a.TierExpiresAt = &tierExpires.Time
	}
	return &a, nil
}

const accountCols = `id, member_id, total_points, available_points, lifetime_points, tier, tier_expires_at, created_at, updated_at`

func (s *AccountStore) Create(a *model.Account) error {
	var tierExpires sql.NullTime
	if a.TierExpiresAt != nil {
		tierExpires = sql.NullTime{Time: *a.TierExpiresAt, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO loyalty_accounts (`+accountCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.MemberID, a.TotalPoints, a.AvailablePoints, a.LifetimePoints,
		a.Tier, tierExpires, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *AccountStore) GetByMemberID(memberID string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM loyalty_accounts WHERE member_id = ?`, memberID)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByID(id string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM loyalty_accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// Update persists the account's mutable fields: balances, tier and
// timestamps. Identity fields never change.
func (s *AccountStore) Update(a *model.Account) error {
	return updateAccount(s.db, a)
}

func updateAccount(e execer, a *model.Account) error {
	var tierExpires sql.NullTime
	if a.TierExpiresAt != nil {
		tierExpires = sql.NullTime{Time: *a.TierExpiresAt, Valid: true}
	}

	_, err := e.Exec(
		`UPDATE loyalty_accounts
		 SET total_points = ?, available_points = ?, lifetime_points = ?, tier = ?, tier_expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		a.TotalPoints, a.AvailablePoints, a.LifetimePoints, a.Tier, tierExpires, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// List returns all accounts ordered by lifetime points, highest first.
func (s *AccountStore) List() ([]model.Account, error) {
	rows, err := s.db.Query(`SELECT ` + accountCols + ` FROM loyalty_accounts ORDER BY lifetime_points DESC, member_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}
