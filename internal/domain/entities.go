package domain

import (
	"fmt"
	"time"
)

// FavFolder represents one favorite folder on the platform.
// The cached copy is replaced wholesale on every successful list refresh;
// individual folders are never partially mutated.
type FavFolder struct {
	ID         int64  // Globally unique folder identifier
	FID        int64  // Folder identifier scoped to the owner
	Mid        int64  // Owner account identifier
	Title      string // Display title
	Cover      string // Cover image URL (may be empty)
	MediaCount int    // Number of videos in the folder
	Attr       int    // Bitflags: bit 0 = privacy, bit 1 = default folder
	CTime      int64  // Unix timestamp when the folder was created
	MTime      int64  // Unix timestamp when the folder was last modified
	SortOrder  int    // Display order, assigned from API response order
	CachedAt   time.Time
	UpdatedAt  time.Time
}

// IsPrivate reports whether the folder is visible to its owner only.
func (f FavFolder) IsPrivate() bool {
	return f.Attr&1 == 1
}

// FavMediaItem represents one video inside a favorite folder.
// Identified by the composite key (FolderID, BVID). Position is dense and
// zero-based within a folder's cached set and determines display and
// playback order.
type FavMediaItem struct {
	FolderID  int64         // Parent folder ID
	AVID      int64         // Numeric video identifier
	BVID      string        // Public short video code, natural key
	Type      int           // Upstream media type (2 = video)
	Title     string        // Display title
	Cover     string        // Cover image URL
	Intro     string        // Description text
	UpMid     int64         // Uploader account identifier
	UpName    string        // Uploader display name
	UpFace    string        // Uploader avatar URL
	Duration  time.Duration // Total runtime
	CTime     int64         // Unix timestamp when favorited
	PubTime   int64         // Unix timestamp when published
	Position  int           // Zero-based slot within the folder
	CachedAt  time.Time
}

// FormattedDuration returns the runtime in a human-readable format.
func (m FavMediaItem) FormattedDuration() string {
	h := int(m.Duration.Hours())
	mins := int(m.Duration.Minutes()) % 60
	secs := int(m.Duration.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// PlayURLTTL is the upstream platform's published lifetime for resolved
// streaming URLs. It is a contract of the origin server, not a tunable:
// a longer value fails playback mid-stream with an authorization error.
const PlayURLTTL = 6 * time.Hour

// PlayURLEntry is a resolved, time-limited audio stream URL for one video.
// Keyed by BVID. An entry past ExpiresAt must be treated as absent.
type PlayURLEntry struct {
	BVID      string        // Public short video code, primary key
	CID       int64         // Stream identifier for the encoded media
	AudioURL  string        // Direct audio stream URL
	Title     string        // Track title for the player/media session
	Artist    string        // Uploader name
	CoverURL  string        // Cover art URL
	Duration  time.Duration // Total runtime
	CachedAt  time.Time
	ExpiresAt time.Time
}

// Valid reports whether the entry is still inside its validity window.
func (e PlayURLEntry) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
