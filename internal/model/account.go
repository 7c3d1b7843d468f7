package model

import "time"

// Tier is an ordered membership level. Higher tiers earn points faster.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// TierLevel describes one row of the tier schedule.
type TierLevel struct {
	Tier       Tier     `json:"tier"`
	MinPoints  int64    `json:"min_points"`
	Multiplier float64  `json:"multiplier"`
	Benefits   []string `json:"benefits"`
}

// Account is the per-member loyalty ledger header.
//
// TotalPoints is the net of every movement including expiry.
// AvailablePoints is the spendable balance and never goes negative.
// LifetimePoints only ever grows (earns, bonuses, positive adjustments)
// and is the sole driver of tier.
type Account struct {
	ID              string     `json:"id"`
	MemberID        string     `json:"member_id"`
	TotalPoints     int64      `json:"total_points"`
	AvailablePoints int64      `json:"available_points"`
	LifetimePoints  int64      `json:"lifetime_points"`
	Tier            Tier       `json:"tier"`
	TierExpiresAt   *time.Time `json:"tier_expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Stats aggregates the ledger across all accounts.
type Stats struct {
	TotalAccounts       int64          `json:"total_accounts"`
	TotalPointsIssued   int64          `json:"total_points_issued"`
	TotalPointsRedeemed int64          `json:"total_points_redeemed"`
	AccountsByTier      map[Tier]int64 `json:"accounts_by_tier"`
}
