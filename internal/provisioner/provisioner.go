// Package provisioner creates, renews and deletes network accounts on the
// servers being sold.
package provisioner

import (
	"context"
	"time"

	"vpnstore/internal/domain"
)

// Request describes an account to create or renew
type Request struct {
	Server   domain.Server
	Protocol domain.Protocol
	Username string
	Password string
	Days     int
}

// Account is the structured result of a provisioning call
type Account struct {
	Username  string
	Password  string
	Protocol  domain.Protocol
	Domain    string
	ExpiresAt time.Time
	// Links holds the client connection strings keyed by transport name.
	Links map[string]string
}

// ProtocolProvisioner manages accounts on a server. Create returns
// domain.ErrUsernameTaken when the username already exists remotely.
type ProtocolProvisioner interface {
	Create(ctx context.Context, req Request) (*Account, error)
	Renew(ctx context.Context, req Request) (*Account, error)
	Delete(ctx context.Context, server domain.Server, protocol domain.Protocol, username string) error
}
