package domain

import (
	"context"
)

// FavoriteRepository provides access to the platform's favorites API.
// Implementations handle request signing internally.
type FavoriteRepository interface {
	// ListFolders returns all favorite folders created by the given account
	ListFolders(ctx context.Context, mid int64) ([]FavFolder, error)

	// ListFolderItems returns one page of a folder's contents.
	// Returns (items, total, hasMore, error).
	ListFolderItems(ctx context.Context, folderID int64, pn, ps int) ([]FavMediaItem, int, bool, error)
}

// PlayURLResolver resolves the audio stream of a video.
type PlayURLResolver interface {
	// ResolveAudio returns a freshly resolved, time-limited audio stream
	// entry for the given video. CachedAt/ExpiresAt are set by the caller.
	ResolveAudio(ctx context.Context, bvid string) (*PlayURLEntry, error)
}

// KeyLifecycle is the signature engine surface the session layer needs.
type KeyLifecycle interface {
	ClearKeys()
	Initialized() bool
}
