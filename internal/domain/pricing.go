package domain

// Durations are the purchasable periods in days
var Durations = []int{1, 3, 7, 10, 14, 30}

// ValidDuration reports whether days is one of Durations
func ValidDuration(days int) bool {
	for _, d := range Durations {
		if d == days {
			return true
		}
	}
	return false
}

// Quote is the priced result of a purchase request
type Quote struct {
	BasePrice       int64
	Days            int
	DiscountPercent int64
	UnitPrice       int64
	Total           int64
	Commission      int64
}

// multiplier returns the price multiplier of p as a fraction
func multiplier(p Protocol) (num, den int64) {
	if p == ProtocolBundle {
		return 3, 2
	}
	return 1, 1
}

// PriceQuote computes the price of days of protocol p on a server with base
// price basePrice for buyer u.
//
// unit = floor(base * (1 - discount) * multiplier), total = unit * days.
// Integer arithmetic keeps the floor exact.
func PriceQuote(u *User, p Protocol, basePrice int64, days int) Quote {
	discount := u.Discount()
	num, den := multiplier(p)
	unit := basePrice * (100 - discount) * num / (100 * den)

	q := Quote{
		BasePrice:       basePrice,
		Days:            days,
		DiscountPercent: discount,
		UnitPrice:       unit,
		Total:           unit * int64(days),
	}
	if u.IsReseller() {
		q.Commission = Commission(basePrice, days)
	}
	return q
}
