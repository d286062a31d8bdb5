package domain

import "time"

// Store handles local cache persistence (bbolt + memory).
// The store owns persisted records exclusively: policies never mutate
// records directly, only through these operations. Overwriting by primary
// key is the only destructive operation, and it is explicit at every
// call site.
type Store interface {
	// === Favorite folders (scope: the whole account) ===

	// GetFolders returns all cached folders in SortOrder. The bool is
	// false only when zero folders are cached.
	GetFolders() ([]FavFolder, bool)

	// ReplaceFolders atomically deletes the previous folder set and writes
	// the new one. An empty slice is a valid result and clears the scope.
	ReplaceFolders(folders []FavFolder) error

	// NewestFolderCachedAt returns the most recent CachedAt across all
	// cached folders, or false when none are cached.
	NewestFolderCachedAt() (time.Time, bool)

	CountFolders() int

	// === Folder contents (scope: one folder ID) ===

	// GetFolderItems returns all cached items for the folder ordered by
	// Position ascending. The bool is false only when zero rows exist.
	GetFolderItems(folderID int64) ([]FavMediaItem, bool)

	// UpsertFolderItems inserts new rows or fully overwrites rows sharing
	// the same (FolderID, BVID) key. Atomic per call; rows outside the
	// given set are never touched, even within the same folder.
	UpsertFolderItems(items []FavMediaItem) error

	// DeleteFolderItems removes every cached row for the folder
	DeleteFolderItems(folderID int64) error

	CountFolderItems(folderID int64) int

	// === Playback URLs (scope: one BVID) ===

	// GetPlayURL returns the cached entry regardless of expiry; callers
	// apply the validity window. False when absent.
	GetPlayURL(bvid string) (*PlayURLEntry, bool)

	// PutPlayURL upserts the entry by BVID
	PutPlayURL(entry PlayURLEntry) error

	// DeletePlayURL removes one entry
	DeletePlayURL(bvid string) error

	// PurgeExpiredPlayURLs deletes all entries with ExpiresAt before now
	// and returns how many were removed.
	PurgeExpiredPlayURLs(now time.Time) (int, error)

	// InvalidateAll wipes every cached record
	InvalidateAll()

	Close() error
}
