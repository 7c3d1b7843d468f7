package model

import "time"

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxEarn   TransactionType = "earn"
	TxRedeem TransactionType = "redeem"
	TxExpire TransactionType = "expire"
	TxAdjust TransactionType = "adjust"
	TxBonus  TransactionType = "bonus"
)

// TransactionTypes returns every valid ledger entry type.
func TransactionTypes() []TransactionType {
	return []TransactionType{TxEarn, TxRedeem, TxExpire, TxAdjust, TxBonus}
}

// Transaction is an immutable, append-only ledger entry. Points carries the
// signed delta applied to the account balance when the entry was recorded:
// positive for earn/bonus, negative for redeem/expire, either for adjust.
//
// ExpiresAt is only set on earn/bonus entries. ExpiredAt marks an earn/bonus
// entry whose points have already been swept into a compensating expire
// entry, so a sweep never consumes the same entry twice.
type Transaction struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Type          TransactionType `json:"type"`
	Points        int64           `json:"points"`
	Description   string          `json:"description"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	ExpiredAt     *time.Time      `json:"expired_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
