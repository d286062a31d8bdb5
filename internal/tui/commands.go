package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ajisaka/favtune/internal/domain"
	"github.com/ajisaka/favtune/internal/download"
	"github.com/ajisaka/favtune/internal/service"
)

// Command factories for async operations

const purgeInterval = 30 * time.Minute

// LoadFoldersCmd loads the favorite folder list
func LoadFoldersCmd(svc *service.FavoritesService, force bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		folders, err := svc.Folders(ctx, force)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading folders"}
		}
		return FoldersLoadedMsg{Folders: folders}
	}
}

// LoadFolderItemsCmd loads a folder's contents, page by page on a cold
// cache
func LoadFolderItemsCmd(svc *service.FavoritesService, folderID int64, force bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		items, err := svc.SyncFolder(ctx, folderID, force)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading folder contents"}
		}
		return FolderItemsLoadedMsg{FolderID: folderID, Items: items}
	}
}

// PlayItemCmd resolves and launches playback of one item
func PlayItemCmd(svc *service.PlaybackService, item domain.FavMediaItem) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := svc.Play(ctx, item); err != nil {
			return ErrMsg{Err: err, Context: "starting playback"}
		}
		return PlaybackStartedMsg{Item: item}
	}
}

// QueueDownloadCmd queues an audio download
func QueueDownloadCmd(svc *download.Service, item domain.FavMediaItem) tea.Cmd {
	return func() tea.Msg {
		task, err := svc.Add(item)
		if err != nil {
			return ErrMsg{Err: err, Context: "queuing download"}
		}
		return DownloadQueuedMsg{Task: task}
	}
}

// WaitForDownloadUpdateCmd forwards the next download state change into
// the update loop
func WaitForDownloadUpdateCmd(updates <-chan *download.Task) tea.Cmd {
	return func() tea.Msg {
		task, ok := <-updates
		if !ok {
			return nil
		}
		return DownloadUpdateMsg{Task: task}
	}
}

// PurgeTickCmd schedules the next expired play-url cleanup
func PurgeTickCmd() tea.Cmd {
	return tea.Tick(purgeInterval, func(time.Time) tea.Msg {
		return PurgeTickMsg{}
	})
}

// PurgeExpiredCmd removes expired play urls from the cache
func PurgeExpiredCmd(svc *service.PlayURLService) tea.Cmd {
	return func() tea.Msg {
		n, err := svc.PurgeExpired()
		if err != nil {
			return ErrMsg{Err: err, Context: "purging expired urls"}
		}
		return PurgedMsg{Count: n}
	}
}

// LogoutCmd clears the session and cached data
func LogoutCmd(svc *service.SessionService) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Logout(); err != nil {
			return ErrMsg{Err: err, Context: "logging out"}
		}
		return LoggedOutMsg{}
	}
}
