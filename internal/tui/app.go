// Package tui implements the terminal interface: a folder browser over
// the cached favorites library with playback and download actions.
package tui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ajisaka/favtune/internal/domain"
	"github.com/ajisaka/favtune/internal/download"
	"github.com/ajisaka/favtune/internal/service"
	"github.com/ajisaka/favtune/internal/tui/styles"
)

// view is the active screen
type view int

const (
	viewFolders view = iota
	viewItems
	viewSearch
	viewError
)

// Services bundles everything the TUI depends on.
type Services struct {
	Favorites *service.FavoritesService
	Playback  *service.PlaybackService
	PlayURLs  *service.PlayURLService
	Search    *service.SearchService
	Session   *service.SessionService
	Downloads *download.Service
}

// folderEntry adapts a favorite folder to the list component.
type folderEntry struct {
	folder domain.FavFolder
}

func (e folderEntry) Title() string {
	title := e.folder.Title
	if e.folder.IsPrivate() {
		title = styles.PrivateChar + " " + title
	}
	return title
}

func (e folderEntry) Description() string {
	return fmt.Sprintf("%d tracks", e.folder.MediaCount)
}

func (e folderEntry) FilterValue() string { return e.folder.Title }

// itemEntry adapts a cached media item to the list component.
type itemEntry struct {
	item domain.FavMediaItem
}

func (e itemEntry) Title() string { return e.item.Title }

func (e itemEntry) Description() string {
	return fmt.Sprintf("%s · %s", e.item.UpName, e.item.FormattedDuration())
}

func (e itemEntry) FilterValue() string {
	return e.item.Title + " " + e.item.UpName
}

// Model is the root bubbletea model.
type Model struct {
	services Services
	keys     KeyMap
	logger   *slog.Logger

	view          view
	prevView      view
	currentFolder domain.FavFolder

	folderList  list.Model
	itemList    list.Model
	searchList  list.Model
	searchInput textinput.Model
	spin        spinner.Model

	downloadUpdates chan *download.Task
	activeDownloads int

	loading bool
	status  string
	err     error

	width  int
	height int
}

// NewModel builds the root model and hooks download progress into the
// update loop.
func NewModel(services Services, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(styles.BiliPink).
		BorderForeground(styles.BiliPink)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(styles.BiliPink).
		BorderForeground(styles.BiliPink)

	folderList := list.New(nil, delegate, 0, 0)
	folderList.Title = "Favorites"
	folderList.SetShowStatusBar(false)
	folderList.Styles.Title = styles.TitleStyle.Background(styles.BiliPink)

	itemList := list.New(nil, delegate, 0, 0)
	itemList.SetShowStatusBar(false)
	itemList.Styles.Title = styles.TitleStyle.Background(styles.BiliPink)

	searchList := list.New(nil, delegate, 0, 0)
	searchList.Title = "Search"
	searchList.SetShowStatusBar(false)
	searchList.SetFilteringEnabled(false)
	searchList.Styles.Title = styles.TitleStyle.Background(styles.BiliPink)

	searchInput := textinput.New()
	searchInput.Placeholder = "search cached folders"
	searchInput.Prompt = styles.AccentStyle.Render("/ ")

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.AccentStyle

	updates := make(chan *download.Task, 16)
	services.Downloads.SetUpdateCallback(func(task *download.Task) {
		select {
		case updates <- task:
		default:
		}
	})

	return &Model{
		services:        services,
		keys:            DefaultKeyMap(),
		logger:          logger,
		view:            viewFolders,
		folderList:      folderList,
		itemList:        itemList,
		searchList:      searchList,
		searchInput:     searchInput,
		spin:            spin,
		downloadUpdates: updates,
		loading:         true,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		LoadFoldersCmd(m.services.Favorites, false),
		WaitForDownloadUpdateCmd(m.downloadUpdates),
		PurgeTickCmd(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		listHeight := m.height - 2 // status bar
		m.folderList.SetSize(m.width, listHeight)
		m.itemList.SetSize(m.width, listHeight)
		m.searchList.SetSize(m.width, listHeight-2)
		m.searchInput.Width = m.width - 4
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case FoldersLoadedMsg:
		m.loading = false
		m.err = nil
		entries := make([]list.Item, len(msg.Folders))
		for i, folder := range msg.Folders {
			entries[i] = folderEntry{folder: folder}
		}
		m.folderList.SetItems(entries)
		return m, nil

	case FolderItemsLoadedMsg:
		m.loading = false
		m.err = nil
		if msg.FolderID != m.currentFolder.ID {
			return m, nil
		}
		entries := make([]list.Item, len(msg.Items))
		for i, item := range msg.Items {
			entries[i] = itemEntry{item: item}
		}
		m.itemList.SetItems(entries)
		m.services.Search.IndexItems(msg.Items)
		m.view = viewItems
		return m, nil

	case PlaybackStartedMsg:
		m.loading = false
		m.status = "playing " + msg.Item.Title
		return m, nil

	case DownloadQueuedMsg:
		m.status = "download queued: " + msg.Task.DisplayTitle()
		return m, nil

	case DownloadUpdateMsg:
		m.activeDownloads = m.services.Downloads.ActiveCount()
		switch msg.Task.Status {
		case download.TaskStatusCompleted:
			m.status = "downloaded " + msg.Task.DisplayTitle()
		case download.TaskStatusError:
			m.status = "download failed: " + msg.Task.DisplayTitle()
		}
		return m, WaitForDownloadUpdateCmd(m.downloadUpdates)

	case PurgeTickMsg:
		return m, tea.Batch(
			PurgeExpiredCmd(m.services.PlayURLs),
			PurgeTickCmd(),
		)

	case PurgedMsg:
		if msg.Count > 0 {
			m.logger.Debug("purged expired play urls", "count", msg.Count)
		}
		return m, nil

	case LoggedOutMsg:
		return m, tea.Quit

	case ErrMsg:
		m.loading = false
		m.err = msg
		m.view = viewError
		m.logger.Error("ui error", "context", msg.Context, "error", msg.Err)
		return m, nil
	}

	return m, m.updateActiveList(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == viewSearch {
		return m.handleSearchKey(msg)
	}

	// while the list filter is open, keys belong to it
	if m.activeList().FilterState() == list.Filtering {
		return m, m.updateActiveList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Logout):
		return m, LogoutCmd(m.services.Session)

	case key.Matches(msg, m.keys.Back):
		switch m.view {
		case viewItems:
			m.view = viewFolders
			return m, nil
		case viewError:
			m.err = nil
			m.view = viewFolders
			return m, nil
		}

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		switch m.view {
		case viewFolders, viewError:
			m.view = viewFolders
			return m, tea.Batch(m.spin.Tick, LoadFoldersCmd(m.services.Favorites, true))
		case viewItems:
			return m, tea.Batch(m.spin.Tick, LoadFolderItemsCmd(m.services.Favorites, m.currentFolder.ID, true))
		}

	case key.Matches(msg, m.keys.Enter):
		switch m.view {
		case viewFolders:
			entry, ok := m.folderList.SelectedItem().(folderEntry)
			if !ok {
				return m, nil
			}
			m.currentFolder = entry.folder
			m.itemList.Title = entry.folder.Title
			m.loading = true
			return m, tea.Batch(m.spin.Tick, LoadFolderItemsCmd(m.services.Favorites, entry.folder.ID, false))
		case viewItems:
			return m.playSelected()
		}

	case key.Matches(msg, m.keys.Play):
		if m.view == viewItems {
			return m.playSelected()
		}

	case key.Matches(msg, m.keys.PlayAll):
		if m.view == viewItems {
			return m.playFromSelected()
		}

	case key.Matches(msg, m.keys.Search):
		if m.view == viewFolders || m.view == viewItems {
			m.prevView = m.view
			m.view = viewSearch
			m.searchInput.SetValue("")
			m.searchList.SetItems(nil)
			m.searchInput.Focus()
			return m, textinput.Blink
		}

	case key.Matches(msg, m.keys.Download):
		if m.view == viewItems {
			entry, ok := m.itemList.SelectedItem().(itemEntry)
			if !ok {
				return m, nil
			}
			return m, QueueDownloadCmd(m.services.Downloads, entry.item)
		}
	}

	return m, m.updateActiveList(msg)
}

// handleSearchKey drives the cross-folder search view: typing queries
// the index, vertical keys move the result cursor, enter plays.
func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchInput.Blur()
		m.view = m.prevView
		return m, nil

	case "enter":
		entry, ok := m.searchList.SelectedItem().(itemEntry)
		if !ok {
			return m, nil
		}
		m.searchInput.Blur()
		m.view = m.prevView
		m.status = "resolving " + entry.item.Title
		return m, PlayItemCmd(m.services.Playback, entry.item)

	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.searchList, cmd = m.searchList.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	results := m.services.Search.Filter(m.searchInput.Value())
	entries := make([]list.Item, len(results))
	for i, r := range results {
		entries[i] = itemEntry{item: r.Item}
	}
	m.searchList.SetItems(entries)
	return m, cmd
}

func (m *Model) playSelected() (tea.Model, tea.Cmd) {
	entry, ok := m.itemList.SelectedItem().(itemEntry)
	if !ok {
		return m, nil
	}
	m.status = "resolving " + entry.item.Title
	return m, PlayItemCmd(m.services.Playback, entry.item)
}

// playFromSelected queues the rest of the folder starting at the cursor.
func (m *Model) playFromSelected() (tea.Model, tea.Cmd) {
	entry, ok := m.itemList.SelectedItem().(itemEntry)
	if !ok {
		return m, nil
	}
	items, ok := m.services.Favorites.CachedItems(m.currentFolder.ID)
	if !ok {
		return m, nil
	}
	start := entry.item.Position
	m.status = fmt.Sprintf("queue from %q (%d tracks)", entry.item.Title, len(items)-start)
	playback := m.services.Playback
	return m, func() tea.Msg {
		if err := playback.PlayQueue(context.Background(), items, start); err != nil {
			return ErrMsg{Err: err, Context: "playing queue"}
		}
		return PlaybackStartedMsg{Item: items[start]}
	}
}

func (m *Model) activeList() *list.Model {
	if m.view == viewItems {
		return &m.itemList
	}
	return &m.folderList
}

func (m *Model) updateActiveList(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if m.view == viewItems {
		m.itemList, cmd = m.itemList.Update(msg)
	} else {
		m.folderList, cmd = m.folderList.Update(msg)
	}
	return cmd
}

func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var body string
	switch m.view {
	case viewError:
		body = m.errorView()
	case viewItems:
		body = styles.ListStyle.Render(m.itemList.View())
	case viewSearch:
		body = styles.ListStyle.Render(
			m.searchInput.View() + "\n\n" + m.searchList.View())
	default:
		body = styles.ListStyle.Render(m.folderList.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar())
}

func (m *Model) errorView() string {
	msg := "something went wrong"
	if m.err != nil {
		msg = m.err.Error()
	}
	box := styles.ErrorBoxStyle.Render(
		styles.ErrorStyle.Render(msg) + "\n\n" +
			styles.DimStyle.Render("r retry · esc back · q quit"),
	)
	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) statusBar() string {
	left := m.status
	if m.loading {
		left = m.spin.View() + " loading"
	}

	right := ""
	if m.activeDownloads > 0 {
		right = styles.StatusBadgeStyle.Render(
			fmt.Sprintf("%s %d", styles.DownloadChar, m.activeDownloads))
	}

	bar := styles.StatusBarStyle.Width(m.width - lipgloss.Width(right)).Render(left)
	return lipgloss.JoinHorizontal(lipgloss.Top, bar, right)
}
