package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vpnstore/internal/domain"
	"vpnstore/internal/repository"
)

// ServerService manages the server inventory
type ServerService struct {
	servers repository.ServerRepository
	logger  *zap.Logger
}

// NewServerService creates a new server service
func NewServerService(servers repository.ServerRepository, logger *zap.Logger) *ServerService {
	return &ServerService{servers: servers, logger: logger}
}

// List returns all servers
func (s *ServerService) List(ctx context.Context) ([]domain.Server, error) {
	return s.servers.ListServers(ctx)
}

// Get returns a server
func (s *ServerService) Get(ctx context.Context, id int64) (*domain.Server, error) {
	return s.servers.GetServer(ctx, id)
}

// Add stores a new server built from the draft
func (s *ServerService) Add(ctx context.Context, draft domain.ServerDraft, maxAccounts int64) (*domain.Server, error) {
	srv := &domain.Server{
		Name:        strings.TrimSpace(draft.Name),
		Domain:      strings.TrimSpace(draft.Domain),
		CountryCode: strings.ToUpper(strings.TrimSpace(draft.CountryCode)),
		Auth:        strings.TrimSpace(draft.Auth),
		Price:       draft.Price,
		QuotaGB:     draft.QuotaGB,
		IPLimit:     draft.IPLimit,
		MaxAccounts: maxAccounts,
	}
	if srv.Name == "" || srv.Domain == "" {
		return nil, fmt.Errorf("%w: name and domain are required", domain.ErrInvalidInput)
	}
	if srv.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrInvalidInput)
	}

	id, err := s.servers.CreateServer(ctx, srv)
	if err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}
	srv.ID = id

	s.logger.Info("Server added", zap.Int64("server_id", id), zap.String("name", srv.Name))
	return srv, nil
}

// UpdateField sets a numeric server attribute
func (s *ServerService) UpdateField(ctx context.Context, id int64, field domain.ServerField, value int64) error {
	if value < 0 || (field == domain.FieldPrice && value == 0) {
		return fmt.Errorf("%w: %s cannot be %d", domain.ErrInvalidInput, field, value)
	}
	if err := s.servers.UpdateServerField(ctx, id, field, value); err != nil {
		return err
	}
	s.logger.Info("Server updated",
		zap.Int64("server_id", id),
		zap.String("field", string(field)),
		zap.Int64("value", value),
	)
	return nil
}

// Delete removes a server
func (s *ServerService) Delete(ctx context.Context, id int64) error {
	if err := s.servers.DeleteServer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Server deleted", zap.Int64("server_id", id))
	return nil
}
