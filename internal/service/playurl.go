package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ajisaka/favtune/internal/domain"
)

// PlayURLService resolves playable audio streams through a fixed-TTL
// cache. Stream URLs expire server-side, so entries carry an absolute
// expiry stamped at write time.
type PlayURLService struct {
	resolver domain.PlayURLResolver
	store    domain.Store
	logger   *slog.Logger

	now func() time.Time
}

func NewPlayURLService(resolver domain.PlayURLResolver, store domain.Store, logger *slog.Logger) *PlayURLService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlayURLService{
		resolver: resolver,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// GetValid returns the cached entry for bvid if it has not expired.
// Expired entries read as absent but are left in place for the periodic
// purge to collect.
func (s *PlayURLService) GetValid(bvid string) (*domain.PlayURLEntry, bool) {
	entry, ok := s.store.GetPlayURL(bvid)
	if !ok {
		return nil, false
	}
	if !entry.Valid(s.now()) {
		return nil, false
	}
	return entry, true
}

// Resolve returns a playable entry for bvid, from cache when valid,
// otherwise resolving upstream and caching the result.
func (s *PlayURLService) Resolve(ctx context.Context, bvid string) (*domain.PlayURLEntry, error) {
	if entry, ok := s.GetValid(bvid); ok {
		s.logger.Debug("playurl cache hit", "bvid", bvid)
		return entry, nil
	}

	entry, err := s.resolver.ResolveAudio(ctx, bvid)
	if err != nil {
		s.logger.Error("failed to resolve play url", "bvid", bvid, "error", err)
		return nil, err
	}

	now := s.now()
	entry.CachedAt = now
	entry.ExpiresAt = now.Add(domain.PlayURLTTL)
	if err := s.store.PutPlayURL(*entry); err != nil {
		// The resolved URL is still usable this once.
		s.logger.Warn("failed to cache play url", "bvid", bvid, "error", err)
	}

	s.logger.Debug("resolved play url", "bvid", bvid, "expiresAt", entry.ExpiresAt)
	return entry, nil
}

// Invalidate drops the cached entry for bvid, forcing the next Resolve
// to go upstream. Used when playback fails with a cached URL.
func (s *PlayURLService) Invalidate(bvid string) error {
	return s.store.DeletePlayURL(bvid)
}

// PurgeExpired removes all expired entries and returns how many were
// dropped.
func (s *PlayURLService) PurgeExpired() (int, error) {
	n, err := s.store.PurgeExpiredPlayURLs(s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("purged expired play urls", "count", n)
	}
	return n, nil
}
