// Package download saves resolved audio streams to local files with a
// bounded number of parallel transfers.
package download

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a download task.
type TaskStatus string

const (
	TaskStatusPending     TaskStatus = "pending"
	TaskStatusDownloading TaskStatus = "downloading"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusError       TaskStatus = "error"
	TaskStatusStopped     TaskStatus = "stopped"
)

// IsFinished reports whether the task reached a terminal state.
func (s TaskStatus) IsFinished() bool {
	return s == TaskStatusCompleted || s == TaskStatusError || s == TaskStatusStopped
}

// IsActive reports whether the task is running or queued to run.
func (s TaskStatus) IsActive() bool {
	return s == TaskStatusPending || s == TaskStatusDownloading
}

// Task is a single audio download.
type Task struct {
	ID         string
	BVID       string
	Title      string
	Status     TaskStatus
	Progress   float64 // 0.0 to 1.0, stays 0 when total size is unknown
	Downloaded int64   // bytes written so far
	Total      int64   // expected bytes, -1 if unknown
	OutputPath string
	LastError  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// DisplayTitle returns the track title, falling back to the bvid.
func (t *Task) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.BVID
}

// sanitizeFilename strips characters that are unsafe in filenames.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
