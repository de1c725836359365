package domain

import "time"

// DepositStatus is the lifecycle position of a deposit
type DepositStatus string

const (
	DepositPending              DepositStatus = "pending"
	DepositAwaitingVerification DepositStatus = "awaiting_verification"
	DepositApproved             DepositStatus = "approved"
	DepositRejected             DepositStatus = "rejected"
	DepositExpired              DepositStatus = "expired"
)

// Open reports whether the deposit can still be approved or rejected
func (s DepositStatus) Open() bool {
	return s == DepositPending || s == DepositAwaitingVerification
}

// DepositMethod is how the buyer pays
type DepositMethod string

const (
	MethodGateway    DepositMethod = "gateway"
	MethodStaticQRIS DepositMethod = "static_qris"
)

// Deposit is a balance top-up request
type Deposit struct {
	ID          string
	UserID      int64
	Amount      int64
	Method      DepositMethod
	Status      DepositStatus
	Reference   string
	ProofFileID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
