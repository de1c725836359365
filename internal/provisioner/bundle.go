package provisioner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"vpnstore/internal/domain"
)

// Bundle expands 3-in-1 requests into one call per member protocol and
// passes everything else through.
type Bundle struct {
	inner  ProtocolProvisioner
	logger *zap.Logger
}

// NewBundle wraps a single-protocol provisioner
func NewBundle(inner ProtocolProvisioner, logger *zap.Logger) *Bundle {
	return &Bundle{inner: inner, logger: logger}
}

// Create creates the account; for a bundle the members already created are
// deleted again when a later member fails.
func (b *Bundle) Create(ctx context.Context, req Request) (*Account, error) {
	if req.Protocol != domain.ProtocolBundle {
		return b.inner.Create(ctx, req)
	}

	var created []*Account
	for _, p := range domain.BundleProtocols {
		member := req
		member.Protocol = p
		acc, err := b.inner.Create(ctx, member)
		if err != nil {
			b.rollback(ctx, req.Server, created)
			return nil, err
		}
		created = append(created, acc)
	}
	return merge(req, created), nil
}

// Renew renews every member of a bundle
func (b *Bundle) Renew(ctx context.Context, req Request) (*Account, error) {
	if req.Protocol != domain.ProtocolBundle {
		return b.inner.Renew(ctx, req)
	}

	var renewed []*Account
	for _, p := range domain.BundleProtocols {
		member := req
		member.Protocol = p
		acc, err := b.inner.Renew(ctx, member)
		if err != nil {
			return nil, fmt.Errorf("renew %s: %w", p, err)
		}
		renewed = append(renewed, acc)
	}
	return merge(req, renewed), nil
}

// Delete removes the account from every member protocol
func (b *Bundle) Delete(ctx context.Context, server domain.Server, protocol domain.Protocol, username string) error {
	var errs []error
	for _, p := range protocol.Members() {
		if err := b.inner.Delete(ctx, server, p, username); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bundle) rollback(ctx context.Context, server domain.Server, created []*Account) {
	for _, acc := range created {
		if err := b.inner.Delete(ctx, server, acc.Protocol, acc.Username); err != nil {
			b.logger.Error("Failed to roll back bundle member",
				zap.String("protocol", string(acc.Protocol)),
				zap.String("username", acc.Username),
				zap.Error(err),
			)
		}
	}
}

func merge(req Request, members []*Account) *Account {
	out := &Account{
		Username: req.Username,
		Password: req.Password,
		Protocol: domain.ProtocolBundle,
		Domain:   req.Server.Domain,
		Links:    make(map[string]string),
	}
	for _, m := range members {
		if m.Domain != "" {
			out.Domain = m.Domain
		}
		if out.ExpiresAt.IsZero() || (!m.ExpiresAt.IsZero() && m.ExpiresAt.Before(out.ExpiresAt)) {
			out.ExpiresAt = m.ExpiresAt
		}
		for k, v := range m.Links {
			out.Links[string(m.Protocol)+" "+k] = v
		}
	}
	return out
}
