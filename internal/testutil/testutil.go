package testutil

import (
	"time"

	"go.uber.org/zap"

	"vpnstore/internal/domain"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestUser creates a plain member with the given balance
func NewTestUser(id, saldo int64) *domain.User {
	return &domain.User{
		ID:        id,
		Username:  "user",
		Saldo:     saldo,
		Role:      domain.RoleMember,
		CreatedAt: time.Now(),
	}
}

// NewTestReseller creates a reseller at the given level
func NewTestReseller(id, saldo int64, level domain.ResellerLevel) *domain.User {
	u := NewTestUser(id, saldo)
	u.Role = domain.RoleReseller
	u.Level = level
	return u
}

// NewTestServer creates a server with room for accounts
func NewTestServer(id, price int64) *domain.Server {
	return &domain.Server{
		ID:          id,
		Name:        "SG-1",
		Domain:      "sg1.example.com",
		CountryCode: "SG",
		Price:       price,
		QuotaGB:     100,
		IPLimit:     2,
		MaxAccounts: 50,
		CreatedAt:   time.Now(),
	}
}
