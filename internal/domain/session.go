package domain

import "time"

// FlowKind identifies a multi-step conversation
type FlowKind string

const (
	FlowPurchase  FlowKind = "purchase"
	FlowAddServer FlowKind = "add_server"
	FlowEditField FlowKind = "edit_field"
	FlowTopUp     FlowKind = "topup"
	FlowDeposit   FlowKind = "deposit"
	FlowBroadcast FlowKind = "broadcast"
	FlowPromote   FlowKind = "promote"
	FlowSetLevel  FlowKind = "set_level"
	FlowRestore   FlowKind = "restore"
)

// Phase is the position inside a flow
type Phase string

const (
	// purchase
	PhaseUsername       Phase = "username"
	PhasePassword       Phase = "password"
	PhaseDuration       Phase = "duration"
	PhasePaymentConfirm Phase = "payment_confirm"

	// add server
	PhaseServerName        Phase = "server_name"
	PhaseServerDomain      Phase = "server_domain"
	PhaseServerCountry     Phase = "server_country"
	PhaseServerAuth        Phase = "server_auth"
	PhaseServerPrice       Phase = "server_price"
	PhaseServerQuota       Phase = "server_quota"
	PhaseServerIPLimit     Phase = "server_ip_limit"
	PhaseServerMaxAccounts Phase = "server_max_accounts"

	// keypad edits and top-up
	PhaseTargetUser Phase = "target_user"
	PhaseKeypad     Phase = "keypad"

	// deposit
	PhaseAmount      Phase = "amount"
	PhaseMethod      Phase = "method"
	PhaseProofUpload Phase = "proof_upload"

	// admin one-shots
	PhaseBroadcastText Phase = "broadcast_text"
	PhaseLevelChoice   Phase = "level_choice"
	PhaseRestoreUpload Phase = "restore_upload"
)

// ServerDraft accumulates the fields of a server being added
type ServerDraft struct {
	Name        string
	Domain      string
	CountryCode string
	Auth        string
	Price       int64
	QuotaGB     int64
	IPLimit     int64
}

// Session is the conversation state of one chat
type Session struct {
	ChatID     int64
	Flow       FlowKind
	Phase      Phase
	Generation uint64
	Step       uint64
	CreatedAt  time.Time

	Action   Action
	Protocol Protocol
	ServerID int64
	Username string
	Password string
	Days     int

	Amount       int64
	DepositID    string
	Field        ServerField
	TargetUserID int64
	Keypad       Keypad
	Draft        ServerDraft

	// Rendered is the last text drawn for this flow's on-screen message.
	Rendered string
}

// ClearCredentials drops the username and password, keeping every other selection
func (s *Session) ClearCredentials() {
	s.Username = ""
	s.Password = ""
}
