// Package player launches audio streams in an external player. Stream
// CDNs reject requests without the right Referer and User-Agent, so a
// player is only usable if it can set request headers.
package player

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ajisaka/favtune/internal/domain"
)

const (
	streamReferer   = "https://www.bilibili.com"
	streamUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// playerConfig defines how one player takes headers and metadata flags
type playerConfig struct {
	headerArgs func(entry *domain.PlayURLEntry) []string
}

// players registry - single source of truth for player flag shapes
var players = map[string]playerConfig{
	"mpv": {
		headerArgs: func(entry *domain.PlayURLEntry) []string {
			args := []string{
				"--no-video",
				"--referrer=" + streamReferer,
				"--user-agent=" + streamUserAgent,
			}
			if entry.Title != "" {
				args = append(args, "--force-media-title="+entry.Title)
			}
			return args
		},
	},
	"vlc": {
		headerArgs: func(entry *domain.PlayURLEntry) []string {
			return []string{
				"--no-video",
				"--http-referrer=" + streamReferer,
				"--http-user-agent=" + streamUserAgent,
			}
		},
	},
}

// candidatePlayers defines the preferred player order for each platform
var candidatePlayers = map[string][]string{
	"darwin":  {"mpv", "vlc"},
	"linux":   {"mpv", "vlc"},
	"windows": {"mpv", "vlc"},
}

// Launcher launches audio URLs in an external player.
type Launcher struct {
	command string   // configured player command, empty for auto-detect
	args    []string // extra user-configured arguments
	logger  *slog.Logger
}

func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command: command,
		args:    args,
		logger:  logger,
	}
}

// Launch starts the player and returns as soon as the process is up.
// Used for one-off playback where the UI stays interactive.
func (l *Launcher) Launch(entry *domain.PlayURLEntry) error {
	cmd, err := l.playerCommand(entry)
	if err != nil {
		return err
	}
	l.logger.Info("launching player", "command", cmd.Path, "title", entry.Title)
	return cmd.Start()
}

// LaunchAndWait blocks until the player exits. Queue playback depends on
// this: the next track must not start while the current one is playing.
func (l *Launcher) LaunchAndWait(entry *domain.PlayURLEntry) error {
	cmd, err := l.playerCommand(entry)
	if err != nil {
		return err
	}
	l.logger.Info("launching player", "command", cmd.Path, "title", entry.Title, "wait", true)
	return cmd.Run()
}

// playerCommand builds the player invocation: the configured command, or
// the first candidate found in PATH.
func (l *Launcher) playerCommand(entry *domain.PlayURLEntry) (*exec.Cmd, error) {
	if l.command != "" {
		args := append([]string{}, l.args...)

		base := strings.ToLower(filepath.Base(l.command))
		base = strings.TrimSuffix(base, filepath.Ext(base))
		if cfg, ok := players[base]; ok {
			args = append(args, cfg.headerArgs(entry)...)
		} else {
			l.logger.Warn("unknown player, stream headers not set, playback may be rejected",
				"command", l.command)
		}
		args = append(args, entry.AudioURL)
		return exec.Command(l.command, args...), nil
	}

	candidates, ok := candidatePlayers[runtime.GOOS]
	if !ok {
		candidates = candidatePlayers["linux"]
	}
	for _, name := range candidates {
		path, err := exec.LookPath(name)
		if err != nil {
			l.logger.Debug("player not in PATH", "player", name)
			continue
		}
		args := append(players[name].headerArgs(entry), entry.AudioURL)
		return exec.Command(path, args...), nil
	}

	return nil, fmt.Errorf("no usable audio player found, install mpv or vlc")
}
