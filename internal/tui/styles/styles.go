package styles

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	BiliPink  = lipgloss.Color("#FB7299")
	SlateDark = lipgloss.Color("#1F2937")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(BiliPink)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)
)

// Status bar
var (
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Background(SlateDark).
			Padding(0, 1)

	StatusBadgeStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(BiliPink).
				Padding(0, 1)
)

// Panels
var (
	ListStyle = lipgloss.NewStyle().
			Padding(1, 2)

	ErrorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Red).
			Padding(1, 2)
)

// Help
var (
	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(BiliPink)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

// Markers
const (
	PrivateChar  = "🔒"
	DownloadChar = "↓"
)
