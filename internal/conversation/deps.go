package conversation

import (
	"context"
	"io"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/service"
)

// Purchases prices and commits account orders
type Purchases interface {
	Quote(ctx context.Context, userID, serverID int64, protocol domain.Protocol, days int) (domain.Quote, error)
	CheckUsername(ctx context.Context, action domain.Action, protocol domain.Protocol, username string) error
	Commit(ctx context.Context, o service.Order) (*service.Receipt, error)
}

// Servers reads and edits the server inventory
type Servers interface {
	Get(ctx context.Context, id int64) (*domain.Server, error)
	Add(ctx context.Context, draft domain.ServerDraft, maxAccounts int64) (*domain.Server, error)
	UpdateField(ctx context.Context, id int64, field domain.ServerField, value int64) error
}

// Users reads users and credits balances
type Users interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	TopUp(ctx context.Context, adminID, userID, amount int64) (*domain.User, error)
}

// Resellers changes reseller roles and levels
type Resellers interface {
	Promote(ctx context.Context, userID int64) (*domain.User, error)
	SetLevel(ctx context.Context, userID int64, level domain.ResellerLevel) (*domain.User, error)
}

// Deposits opens deposits and collects payment proofs
type Deposits interface {
	MinDeposit() int64
	ValidateAmount(amount int64) error
	Create(ctx context.Context, userID, amount int64, method domain.DepositMethod) (*domain.Deposit, []byte, error)
	SubmitProof(ctx context.Context, userID int64, depositID, fileID string) error
}

// Broadcaster sends one message to every user
type Broadcaster interface {
	Broadcast(ctx context.Context, msg chat.Message) (service.Tally, error)
}

// Restorer replaces the live database with an uploaded copy
type Restorer interface {
	RestoreFrom(ctx context.Context, r io.Reader) error
}

// Files downloads files users sent to the bot
type Files interface {
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Deps are the collaborators the flows drive
type Deps struct {
	Purchases   Purchases
	Servers     Servers
	Users       Users
	Resellers   Resellers
	Deposits    Deposits
	Broadcaster Broadcaster
	Restorer    Restorer
	Files       Files
	Notifier    chat.Notifier
	Settings    service.Settings
}
