package tui

import (
	"github.com/ajisaka/favtune/internal/domain"
	"github.com/ajisaka/favtune/internal/download"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// FoldersLoadedMsg signals that the folder list has been loaded
type FoldersLoadedMsg struct {
	Folders []domain.FavFolder
}

// FolderItemsLoadedMsg signals that a folder's contents have been loaded
type FolderItemsLoadedMsg struct {
	FolderID int64
	Items    []domain.FavMediaItem
}

// PlaybackStartedMsg signals that the player was launched
type PlaybackStartedMsg struct {
	Item domain.FavMediaItem
}

// DownloadQueuedMsg signals that a download task was accepted
type DownloadQueuedMsg struct {
	Task *download.Task
}

// DownloadUpdateMsg carries a download task state change
type DownloadUpdateMsg struct {
	Task *download.Task
}

// PurgeTickMsg triggers periodic expired play-url cleanup
type PurgeTickMsg struct{}

// PurgedMsg reports how many expired play urls were removed
type PurgedMsg struct {
	Count int
}

// LoggedOutMsg signals that the session was cleared
type LoggedOutMsg struct{}
