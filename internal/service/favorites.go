// Package service implements the caching policies between the TUI and
// the platform API: favorite folders, folder contents, and playback URLs
// are served from the local store and refreshed when stale.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ajisaka/favtune/internal/domain"
)

const (
	// FolderListTTL is how long the cached folder list is trusted before
	// a read triggers a background refresh.
	FolderListTTL = 5 * time.Minute

	// DefaultPageSize matches the upstream page size for folder contents
	DefaultPageSize = 20

	refreshTimeout = 30 * time.Second
)

// FavoritesService serves favorite folders and their contents, preferring
// cache and refreshing transparently when stale.
type FavoritesService struct {
	repo   domain.FavoriteRepository
	store  domain.Store
	logger *slog.Logger
	mid    int64

	now   func() time.Time // injectable clock
	spawn func(func())     // background task executor

	mu         sync.Mutex
	refreshing bool // folder-list refresh in flight
}

// NewFavoritesService creates the favorites caching service for one
// account.
func NewFavoritesService(repo domain.FavoriteRepository, store domain.Store, mid int64, logger *slog.Logger) *FavoritesService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FavoritesService{
		repo:   repo,
		store:  store,
		logger: logger,
		mid:    mid,
		now:    time.Now,
		spawn:  func(task func()) { go task() },
	}
}

// === Folder list policy ===

// Folders returns the favorite folder list. Fresh cache is returned
// directly; stale cache is returned immediately while a single background
// refresh runs; an empty cache (or force) fetches synchronously.
func (s *FavoritesService) Folders(ctx context.Context, force bool) ([]domain.FavFolder, error) {
	if force {
		return s.fetchFolders(ctx)
	}

	cached, ok := s.store.GetFolders()
	if !ok {
		return s.fetchFolders(ctx)
	}

	if s.foldersStale() {
		s.logger.Debug("folder list stale, refreshing in background")
		s.triggerBackgroundRefresh()
	}
	return cached, nil
}

// foldersStale reports whether the newest cached folder is older than the
// list TTL.
func (s *FavoritesService) foldersStale() bool {
	newest, ok := s.store.NewestFolderCachedAt()
	if !ok {
		return true
	}
	return s.now().Sub(newest) > FolderListTTL
}

// triggerBackgroundRefresh submits one fire-and-forget refresh task.
// Concurrent stale reads coalesce on the in-flight guard. The caller is
// never blocked; failures are logged and swallowed since nobody waits.
func (s *FavoritesService) triggerBackgroundRefresh() {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return
	}
	s.refreshing = true
	s.mu.Unlock()

	s.spawn(func() {
		defer func() {
			s.mu.Lock()
			s.refreshing = false
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if _, err := s.fetchFolders(ctx); err != nil {
			s.logger.Warn("background folder refresh failed", "error", err)
		}
	})
}

// fetchFolders fetches the folder list and replaces the cached scope.
// An empty successful response is a valid zero-folder result and still
// clears previously cached rows.
func (s *FavoritesService) fetchFolders(ctx context.Context) ([]domain.FavFolder, error) {
	folders, err := s.repo.ListFolders(ctx, s.mid)
	if err != nil {
		s.logger.Error("failed to list folders", "mid", s.mid, "error", err)
		return nil, err
	}

	now := s.now()
	for i := range folders {
		folders[i].CachedAt = now
		folders[i].UpdatedAt = now
	}
	if err := s.store.ReplaceFolders(folders); err != nil {
		s.logger.Error("failed to cache folders", "error", err)
		return nil, err
	}

	s.logger.Info("refreshed folder list", "count", len(folders))
	return folders, nil
}

// === Folder contents policy ===

// CachedItems returns all cached items for the folder ordered by
// position. False only when zero rows are cached.
func (s *FavoritesService) CachedItems(folderID int64) ([]domain.FavMediaItem, bool) {
	return s.store.GetFolderItems(folderID)
}

// ReplaceAll handles the very first successful fetch of a folder: the
// previous scope is dropped and items get dense positions 0..n-1 in the
// given order.
func (s *FavoritesService) ReplaceAll(folderID int64, items []domain.FavMediaItem) error {
	if err := s.store.DeleteFolderItems(folderID); err != nil {
		return err
	}
	return s.writePage(folderID, items, 0)
}

// RefreshPage re-writes one page in place. Rows already cached at the
// page's position slots are overwritten, new rows are inserted, and rows
// outside the page's position range are never deleted.
func (s *FavoritesService) RefreshPage(folderID int64, items []domain.FavMediaItem, pageNumber, pageSize int) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return s.writePage(folderID, items, (pageNumber-1)*pageSize)
}

// AppendPage writes a page starting at an explicit position offset, used
// when growing the tail via "load more".
func (s *FavoritesService) AppendPage(folderID int64, items []domain.FavMediaItem, startPosition int) error {
	return s.writePage(folderID, items, startPosition)
}

func (s *FavoritesService) writePage(folderID int64, items []domain.FavMediaItem, start int) error {
	now := s.now()
	for i := range items {
		items[i].FolderID = folderID
		items[i].Position = start + i
		items[i].CachedAt = now
	}
	if err := s.store.UpsertFolderItems(items); err != nil {
		s.logger.Error("failed to cache folder page", "folderID", folderID, "start", start, "error", err)
		return err
	}
	return nil
}

// SyncFolder fetches a folder's contents page by page until exhausted,
// replacing the cached scope on the first page and appending the rest.
// Returns the full cached sequence. With force false, an already cached
// folder is served as-is without a network call.
func (s *FavoritesService) SyncFolder(ctx context.Context, folderID int64, force bool) ([]domain.FavMediaItem, error) {
	if !force {
		if cached, ok := s.CachedItems(folderID); ok {
			s.logger.Debug("folder contents cache hit", "folderID", folderID, "count", len(cached))
			return cached, nil
		}
	}

	pn := 1
	loaded := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		items, _, hasMore, err := s.repo.ListFolderItems(ctx, folderID, pn, DefaultPageSize)
		if err != nil {
			s.logger.Error("failed to fetch folder page", "folderID", folderID, "pn", pn, "error", err)
			return nil, err
		}

		if pn == 1 {
			if err := s.ReplaceAll(folderID, items); err != nil {
				return nil, err
			}
		} else if err := s.AppendPage(folderID, items, loaded); err != nil {
			return nil, err
		}
		loaded += len(items)

		if !hasMore || len(items) == 0 {
			break
		}
		pn++
	}

	s.logger.Info("synced folder contents", "folderID", folderID, "count", loaded)
	items, _ := s.CachedItems(folderID)
	return items, nil
}
