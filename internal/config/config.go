// Package config loads and persists application configuration with viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/ajisaka/favtune/internal/log"
)

// Config holds all application configuration
type Config struct {
	Account  AccountConfig  `mapstructure:"account"`
	Player   PlayerConfig   `mapstructure:"player"`
	Download DownloadConfig `mapstructure:"download"`
	UI       UIConfig       `mapstructure:"ui"`
	Logging  log.Config     `mapstructure:"logging"`
}

// AccountConfig holds the logged-in account and its session cookies
type AccountConfig struct {
	Mid      int64  `mapstructure:"mid"`      // Account identifier
	Username string `mapstructure:"username"` // Display name
	SESSDATA string `mapstructure:"sessdata"` // Session cookie
	BiliJCT  string `mapstructure:"bili_jct"` // CSRF token cookie
}

// PlayerConfig holds external player configuration
type PlayerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// DownloadConfig holds audio download configuration
type DownloadConfig struct {
	Dir         string `mapstructure:"dir"`
	MaxParallel int    `mapstructure:"max_parallel"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	Theme string `mapstructure:"theme"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Command: "mpv",
		},
		Download: DownloadConfig{
			Dir:         defaultDownloadPath(),
			MaxParallel: 2,
		},
		UI: UIConfig{
			Theme: "default",
		},
		Logging: log.Config{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "favtune", "favtune.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "favtune", "favtune.log")
	}
}

func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "favtune")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "favtune")
	}
}

func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "favtune", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "favtune", "cache")
	}
}

func defaultDownloadPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Music", "favtune")
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("FAVTUNE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveAccount persists account identity and session cookies.
func SaveAccount(acct AccountConfig) error {
	viper.Set("account.mid", acct.Mid)
	viper.Set("account.username", acct.Username)
	viper.Set("account.sessdata", acct.SESSDATA)
	viper.Set("account.bili_jct", acct.BiliJCT)
	return writeConfig()
}

// ClearAccount removes the account section while preserving other
// settings (player, download, UI, logging).
func ClearAccount() error {
	viper.Set("account.mid", 0)
	viper.Set("account.username", "")
	viper.Set("account.sessdata", "")
	viper.Set("account.bili_jct", "")
	return writeConfig()
}

func writeConfig() error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsLoggedIn reports whether a session cookie is configured.
func (c *Config) IsLoggedIn() bool {
	return c.Account.SESSDATA != "" && c.Account.Mid != 0
}

// ClearCache removes all cached data
func ClearCache() error {
	cachePath := defaultCachePath()
	if err := os.RemoveAll(cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// GetCachePath returns the cache directory path
func GetCachePath() string {
	return defaultCachePath()
}
