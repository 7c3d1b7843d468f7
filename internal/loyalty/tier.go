package loyalty

import (
	"math"
	"time"

	"github.com/harborstay/loyalty/internal/model"
)

const (
	// PointsPerUnit is how many base points one currency unit of spend earns.
	PointsPerUnit = 10

	// RedemptionRate is how many points convert to one currency unit.
	RedemptionRate = 100

	// ExpirationPeriod is how long earned and bonus points stay spendable.
	ExpirationPeriod = 365 * 24 * time.Hour

	// TierValidity is how long an upgraded tier is advertised as valid.
	TierValidity = 365 * 24 * time.Hour
)

// Schedule is an immutable, ordered tier table injected into the Engine.
// Levels are ordered by ascending MinPoints with the lowest at zero.
type Schedule struct {
	levels []model.TierLevel
}

// DefaultSchedule returns the standard tier table.
func DefaultSchedule() Schedule {
	return NewSchedule([]model.TierLevel{
		{Tier: model.TierBronze, MinPoints: 0, Multiplier: 1.0, Benefits: []string{"Member rates", "Earn 10 points per unit spent"}},
		{Tier: model.TierSilver, MinPoints: 1000, Multiplier: 1.25, Benefits: []string{"1.25x points", "Late checkout"}},
		{Tier: model.TierGold, MinPoints: 5000, Multiplier: 1.5, Benefits: []string{"1.5x points", "Room upgrades", "Late checkout"}},
		{Tier: model.TierPlatinum, MinPoints: 15000, Multiplier: 2.0, Benefits: []string{"2x points", "Suite upgrades", "Lounge access"}},
	})
}

// NewSchedule builds a Schedule from the given levels. The slice is copied
// so callers cannot mutate the table after construction.
func NewSchedule(levels []model.TierLevel) Schedule {
	cp := make([]model.TierLevel, len(levels))
	copy(cp, levels)
	return Schedule{levels: cp}
}

// Levels returns a copy of the tier table, lowest tier first.
func (s Schedule) Levels() []model.TierLevel {
	cp := make([]model.TierLevel, len(s.levels))
	copy(cp, s.levels)
	return cp
}

// TierFor returns the highest tier whose threshold the given lifetime
// points meet.
func (s Schedule) TierFor(lifetimePoints int64) model.Tier {
	tier := s.levels[0].Tier
	for _, lvl := range s.levels {
		if lifetimePoints >= lvl.MinPoints {
			tier = lvl.Tier
		}
	}
	return tier
}

// Rank returns the position of a tier in the ordered table, or -1 if the
// tier is not in the table.
func (s Schedule) Rank(tier model.Tier) int {
	for i, lvl := range s.levels {
		if lvl.Tier == tier {
			return i
		}
	}
	return -1
}

// Multiplier returns the earn multiplier for a tier. Unknown tiers fall
// back to the lowest level's multiplier.
func (s Schedule) Multiplier(tier model.Tier) float64 {
	for _, lvl := range s.levels {
		if lvl.Tier == tier {
			return lvl.Multiplier
		}
	}
	return s.levels[0].Multiplier
}

// PointsForPurchase converts a purchase amount into points at the given
// tier's multiplier: floor(floor(amount * PointsPerUnit) * multiplier).
// Returns 0 for non-positive amounts.
func (s Schedule) PointsForPurchase(amount float64, tier model.Tier) int64 {
	if amount <= 0 {
		return 0
	}
	base := math.Floor(amount * PointsPerUnit)
	return int64(math.Floor(base * s.Multiplier(tier)))
}

// RedemptionValue converts points into currency units: floor(points / 100).
// Returns 0 for non-positive point counts.
func RedemptionValue(points int64) int64 {
	if points <= 0 {
		return 0
	}
	return points / RedemptionRate
}
