package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vpnstore/internal/domain"
	"vpnstore/internal/provisioner"
	"vpnstore/internal/repository"
)

// TrialCooldown is how long a user waits between trials of one protocol
const TrialCooldown = 24 * time.Hour

// TrialService hands out one-day trial accounts
type TrialService struct {
	store       repository.Store
	provisioner provisioner.ProtocolProvisioner
	settings    Settings
	logger      *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewTrialService creates a new trial service
func NewTrialService(store repository.Store, prov provisioner.ProtocolProvisioner, settings Settings, logger *zap.Logger) *TrialService {
	return &TrialService{
		store:       store,
		provisioner: prov,
		settings:    settings,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Create provisions a trial account of protocol on the server
func (s *TrialService) Create(ctx context.Context, userID, serverID int64, protocol domain.Protocol) (*Receipt, error) {
	if cfg := s.settings.Current(); cfg == nil || !cfg.TrialEnabled {
		return nil, fmt.Errorf("%w: trials are disabled", domain.ErrForbidden)
	}

	now := s.now()
	last, ok, err := s.store.Trials().LastTrial(ctx, userID, protocol)
	if err != nil {
		return nil, fmt.Errorf("last trial: %w", err)
	}
	if ok && now.Sub(last) < TrialCooldown {
		return nil, domain.ErrTrialUsed
	}

	server, err := s.store.Servers().GetServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}
	members := protocol.Members()
	if server.MaxAccounts > 0 && server.TotalAccounts+int64(len(members)) > server.MaxAccounts {
		return nil, domain.ErrServerFull
	}

	token := strings.ReplaceAll(s.newID(), "-", "")
	req := provisioner.Request{
		Server:   *server,
		Protocol: protocol,
		Username: "trial" + token[:6],
		Days:     1,
	}
	if protocol.NeedsPassword() {
		req.Password = token[6:14]
	}

	acc, err := s.provisioner.Create(ctx, req)
	if err != nil {
		if !errors.Is(err, domain.ErrUsernameTaken) {
			s.logger.Error("Trial provisioning failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return nil, err
	}

	expires := acc.ExpiresAt
	if expires.IsZero() {
		expires = now.AddDate(0, 0, 1)
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Servers().IncrementAccounts(ctx, server.ID, len(members)); err != nil {
			return fmt.Errorf("increment accounts: %w", err)
		}
		for _, p := range members {
			if err := tx.Accounts().SaveAccount(ctx, &domain.ActiveAccount{
				UserID:    userID,
				ServerID:  server.ID,
				Username:  req.Username,
				Protocol:  p,
				ExpiresAt: expires,
			}); err != nil {
				return fmt.Errorf("save account: %w", err)
			}
		}
		return tx.Trials().LogTrial(ctx, userID, protocol, req.Username)
	})
	if err != nil {
		if delErr := s.provisioner.Delete(context.WithoutCancel(ctx), *server, protocol, req.Username); delErr != nil {
			s.logger.Error("Failed to delete trial after aborted record", zap.String("username", req.Username), zap.Error(delErr))
		}
		return nil, fmt.Errorf("record trial: %w", err)
	}

	s.logger.Info("Trial created",
		zap.Int64("user_id", userID),
		zap.String("protocol", string(protocol)),
		zap.String("username", req.Username),
	)

	return &Receipt{
		Invoice: domain.Invoice{
			ID:        "TRIAL-" + strings.ToUpper(token[:8]),
			UserID:    userID,
			ServerID:  server.ID,
			Protocol:  protocol,
			Action:    domain.ActionCreate,
			Username:  req.Username,
			Days:      1,
			CreatedAt: now,
		},
		Server:    *server,
		Account:   *acc,
		ExpiresAt: expires,
	}, nil
}
