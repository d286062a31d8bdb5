package service

import (
	"log/slog"

	"github.com/ajisaka/favtune/internal/config"
	"github.com/ajisaka/favtune/internal/domain"
)

// SessionService manages account session operations.
type SessionService struct {
	keys   domain.KeyLifecycle
	store  domain.Store
	logger *slog.Logger
}

func NewSessionService(keys domain.KeyLifecycle, store domain.Store, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		keys:   keys,
		store:  store,
		logger: logger,
	}
}

// Logout clears the stored credentials, the signing keys, and all cached
// data. Cached state is account-scoped, so none of it survives a logout.
func (s *SessionService) Logout() error {
	s.keys.ClearKeys()

	if err := config.ClearAccount(); err != nil {
		return err
	}
	s.store.InvalidateAll()

	s.logger.Info("logged out, cache cleared")
	return nil
}
