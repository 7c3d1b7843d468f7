package loyalty

import (
	"testing"

	"github.com/harborstay/loyalty/internal/model"
)

func TestTierForThresholds(t *testing.T) {
	s := DefaultSchedule()

	tests := []struct {
		lifetime int64
		want     model.Tier
	}{
		{0, model.TierBronze},
		{999, model.TierBronze},
		{1000, model.TierSilver},
		{4999, model.TierSilver},
		{5000, model.TierGold},
		{14999, model.TierGold},
		{15000, model.TierPlatinum},
		{1000000, model.TierPlatinum},
	}
	for _, tt := range tests {
		if got := s.TierFor(tt.lifetime); got != tt.want {
			t.Errorf("TierFor(%d) = %q, want %q", tt.lifetime, got, tt.want)
		}
	}
}

func TestTierRankOrdering(t *testing.T) {
	s := DefaultSchedule()

	order := []model.Tier{model.TierBronze, model.TierSilver, model.TierGold, model.TierPlatinum}
	for i := 1; i < len(order); i++ {
		if s.Rank(order[i]) <= s.Rank(order[i-1]) {
			t.Errorf("Rank(%q) should outrank Rank(%q)", order[i], order[i-1])
		}
	}
	if s.Rank("diamond") != -1 {
		t.Errorf("Rank of unknown tier = %d, want -1", s.Rank("diamond"))
	}
}

func TestMultiplier(t *testing.T) {
	s := DefaultSchedule()

	tests := []struct {
		tier model.Tier
		want float64
	}{
		{model.TierBronze, 1.0},
		{model.TierSilver, 1.25},
		{model.TierGold, 1.5},
		{model.TierPlatinum, 2.0},
	}
	for _, tt := range tests {
		if got := s.Multiplier(tt.tier); got != tt.want {
			t.Errorf("Multiplier(%q) = %v, want %v", tt.tier, got, tt.want)
		}
	}

	// Unknown tier falls back to the lowest level
	if got := s.Multiplier("diamond"); got != 1.0 {
		t.Errorf("Multiplier(unknown) = %v, want 1.0", got)
	}
}

func TestPointsForPurchase(t *testing.T) {
	s := DefaultSchedule()

	tests := []struct {
		amount float64
		tier   model.Tier
		want   int64
	}{
		{100, model.TierBronze, 1000},
		{100, model.TierSilver, 1250},
		{100, model.TierGold, 1500},
		{100, model.TierPlatinum, 2000},
		{10.99, model.TierBronze, 109},
		{10.99, model.TierSilver, 136}, // floor(109 * 1.25)
		{0.05, model.TierBronze, 0},
		{0, model.TierBronze, 0},
		{-50, model.TierGold, 0},
	}
	for _, tt := range tests {
		if got := s.PointsForPurchase(tt.amount, tt.tier); got != tt.want {
			t.Errorf("PointsForPurchase(%v, %q) = %d, want %d", tt.amount, tt.tier, got, tt.want)
		}
	}
}

func TestRedemptionValue(t *testing.T) {
	tests := []struct {
		points int64
		want   int64
	}{
		{150, 1},
		{99, 0},
		{100, 1},
		{250, 2},
		{0, 0},
		{-100, 0},
	}
	for _, tt := range tests {
		if got := RedemptionValue(tt.points); got != tt.want {
			t.Errorf("RedemptionValue(%d) = %d, want %d", tt.points, got, tt.want)
		}
	}
}

func TestScheduleLevelsImmutable(t *testing.T) {
	s := DefaultSchedule()

	levels := s.Levels()
	levels[0].MinPoints = 9999

	if s.Levels()[0].MinPoints != 0 {
		t.Error("mutating the returned slice should not affect the schedule")
	}
}
