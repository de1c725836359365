package domain

import "time"

// Role distinguishes plain buyers from resellers
type Role string

const (
	RoleMember   Role = "member"
	RoleReseller Role = "reseller"
)

// User represents a registered bot user
type User struct {
	ID              int64
	Username        string
	Saldo           int64
	Role            Role
	Level           ResellerLevel
	TotalCommission int64
	CreatedAt       time.Time
}

// IsReseller reports whether the user buys at reseller prices
func (u *User) IsReseller() bool {
	return u != nil && u.Role == RoleReseller
}

// Discount returns the discount percentage applied to the user's purchases
func (u *User) Discount() int64 {
	if !u.IsReseller() {
		return 0
	}
	return u.Level.DiscountPercent()
}
