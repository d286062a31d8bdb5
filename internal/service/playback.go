package service

import (
	"context"
	"log/slog"

	"github.com/ajisaka/favtune/internal/domain"
)

// launcher abstracts the external audio player (consumer-defined
// interface).
type launcher interface {
	Launch(entry *domain.PlayURLEntry) error
	LaunchAndWait(entry *domain.PlayURLEntry) error
}

// PlaybackService resolves audio streams and hands them to the player.
type PlaybackService struct {
	launcher launcher
	playurls *PlayURLService
	logger   *slog.Logger
}

func NewPlaybackService(launcher launcher, playurls *PlayURLService, logger *slog.Logger) *PlaybackService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaybackService{
		launcher: launcher,
		playurls: playurls,
		logger:   logger,
	}
}

// Play resolves the item's audio stream and launches the player. A
// stale cached URL is invalidated and resolved once more before the
// error is surfaced.
func (s *PlaybackService) Play(ctx context.Context, item domain.FavMediaItem) error {
	return s.play(ctx, item, s.launcher.Launch)
}

func (s *PlaybackService) play(ctx context.Context, item domain.FavMediaItem, launch func(*domain.PlayURLEntry) error) error {
	entry, err := s.playurls.Resolve(ctx, item.BVID)
	if err != nil {
		return err
	}

	s.logger.Info("launching playback", "title", item.Title, "bvid", item.BVID)

	launchErr := launch(entry)
	if launchErr == nil {
		return nil
	}
	s.logger.Warn("playback failed with cached url, re-resolving", "bvid", item.BVID, "error", launchErr)

	if err := s.playurls.Invalidate(item.BVID); err != nil {
		return err
	}
	entry, err = s.playurls.Resolve(ctx, item.BVID)
	if err != nil {
		return err
	}
	return launch(entry)
}

// PlayQueue plays items sequentially starting at index, waiting for the
// player to exit before advancing to the next track. A single failed
// item is logged and skipped so one dead stream does not stop the queue.
func (s *PlaybackService) PlayQueue(ctx context.Context, items []domain.FavMediaItem, start int) error {
	if start < 0 || start >= len(items) {
		return domain.ErrItemNotFound
	}

	for _, item := range items[start:] {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.play(ctx, item, s.launcher.LaunchAndWait); err != nil {
			s.logger.Warn("skipping unplayable item", "bvid", item.BVID, "title", item.Title, "error", err)
		}
	}
	return nil
}
