package domain

// ResellerLevel is the tier a reseller has reached by cumulative commission
type ResellerLevel string

const (
	LevelSilver   ResellerLevel = "silver"
	LevelGold     ResellerLevel = "gold"
	LevelPlatinum ResellerLevel = "platinum"
)

// Cumulative commission needed to reach a tier.
const (
	GoldThreshold     int64 = 50000
	PlatinumThreshold int64 = 80000
)

// CommissionPercent is the flat share of the undiscounted base a reseller earns.
const CommissionPercent int64 = 10

// DiscountPercent returns the purchase discount for the level
func (l ResellerLevel) DiscountPercent() int64 {
	switch l {
	case LevelSilver:
		return 10
	case LevelGold:
		return 20
	case LevelPlatinum:
		return 30
	default:
		return 0
	}
}

// Valid reports whether l is a known level
func (l ResellerLevel) Valid() bool {
	switch l {
	case LevelSilver, LevelGold, LevelPlatinum:
		return true
	}
	return false
}

// LevelFor returns the level earned with the given cumulative commission
func LevelFor(totalCommission int64) ResellerLevel {
	switch {
	case totalCommission >= PlatinumThreshold:
		return LevelPlatinum
	case totalCommission >= GoldThreshold:
		return LevelGold
	default:
		return LevelSilver
	}
}

// Commission returns the reseller commission for a sale of days at base price
func Commission(basePrice int64, days int) int64 {
	return basePrice * int64(days) * CommissionPercent / 100
}

// Rank orders levels from silver (1) to platinum (3); unknown levels are 0
func (l ResellerLevel) Rank() int {
	switch l {
	case LevelSilver:
		return 1
	case LevelGold:
		return 2
	case LevelPlatinum:
		return 3
	}
	return 0
}
