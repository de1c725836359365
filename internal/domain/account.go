package domain

import "time"

// ActiveAccount is a provisioned account currently sold to a user
type ActiveAccount struct {
	ID        int64
	UserID    int64
	ServerID  int64
	Username  string
	Protocol  Protocol
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Invoice records a completed purchase
type Invoice struct {
	ID        string
	UserID    int64
	ServerID  int64
	Protocol  Protocol
	Action    Action
	Username  string
	Days      int
	Amount    int64
	CreatedAt time.Time
}

// ResellerSale records the commission earned on a reseller purchase
type ResellerSale struct {
	ResellerID int64
	InvoiceID  string
	Username   string
	Protocol   Protocol
	Amount     int64
	Commission int64
}

// BalanceLog is an audit entry for every balance movement
type BalanceLog struct {
	UserID    int64
	Amount    int64 // signed
	Kind      string
	Reference string
}

// Balance log kinds.
const (
	BalanceKindPurchase = "purchase"
	BalanceKindDeposit  = "deposit"
	BalanceKindTopUp    = "topup"
)
