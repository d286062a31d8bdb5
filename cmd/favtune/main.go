package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/term"

	"github.com/ajisaka/favtune/internal/bili"
	"github.com/ajisaka/favtune/internal/config"
	"github.com/ajisaka/favtune/internal/download"
	"github.com/ajisaka/favtune/internal/log"
	"github.com/ajisaka/favtune/internal/player"
	"github.com/ajisaka/favtune/internal/service"
	"github.com/ajisaka/favtune/internal/sign"
	"github.com/ajisaka/favtune/internal/store"
	"github.com/ajisaka/favtune/internal/tui"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	relogin := flag.Bool("login", false, "log in again even if a session exists")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("favtune " + version)
		return nil
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting favtune", "version", version)

	if *relogin || !cfg.IsLoggedIn() {
		if err := runLoginFlow(logger); err != nil {
			return err
		}
		// reload to pick up the saved account
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to reload config: %w", err)
		}
	}

	// API client with request signing
	wbi := sign.New()
	client := bili.NewClient(cfg.Account.SESSDATA, wbi, logger)

	// Local cache
	cacheStore, err := store.New(config.GetCachePath())
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer cacheStore.Close()

	// Player launcher
	launcher := player.NewLauncher(cfg.Player.Command, cfg.Player.Args, logger)

	// Services
	favoritesSvc := service.NewFavoritesService(client, cacheStore, cfg.Account.Mid, logger)
	playurlSvc := service.NewPlayURLService(client, cacheStore, logger)
	playbackSvc := service.NewPlaybackService(launcher, playurlSvc, logger)
	searchSvc := service.NewSearchService(logger)
	sessionSvc := service.NewSessionService(wbi, cacheStore, logger)
	downloadSvc := download.NewService(playurlSvc, cfg.Download.Dir, cfg.Download.MaxParallel, logger)

	// Startup housekeeping: drop play urls that expired since last run
	if n, err := playurlSvc.PurgeExpired(); err == nil && n > 0 {
		logger.Info("purged expired play urls on startup", "count", n)
	}

	model := tui.NewModel(tui.Services{
		Favorites: favoritesSvc,
		Playback:  playbackSvc,
		PlayURLs:  playurlSvc,
		Search:    searchSvc,
		Session:   sessionSvc,
		Downloads: downloadSvc,
	}, logger)

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runLoginFlow signs the user in with a QR code, or a pasted session
// cookie for terminals where scanning is not an option.
func runLoginFlow(logger *slog.Logger) error {
	fmt.Println("Welcome to favtune!")
	fmt.Println()
	fmt.Println("  [1] Log in by scanning a QR code (recommended)")
	fmt.Println("  [2] Paste a SESSDATA cookie manually")
	fmt.Println()
	fmt.Print("Choose: ")

	var choice string
	fmt.Scanln(&choice)

	if strings.TrimSpace(choice) == "2" {
		return manualLogin(logger)
	}
	return qrLogin(logger)
}

func qrLogin(logger *slog.Logger) error {
	client := bili.NewClient("", sign.New(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ticket, err := client.QRGenerate(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate login QR: %w", err)
	}

	code, err := qrcode.New(ticket.URL, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to render QR: %w", err)
	}

	fmt.Println()
	fmt.Println(code.ToSmallString(false))
	fmt.Println("Scan with the bilibili app to log in.")
	fmt.Println()

	creds, err := client.WaitForQRLogin(ctx, ticket, 2*time.Second, func(state bili.QRState) {
		if state == bili.QRScanned {
			fmt.Println("Scanned, confirm on your phone...")
		}
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	return saveSession(ctx, client, creds, logger)
}

func manualLogin(logger *slog.Logger) error {
	fmt.Print("SESSDATA: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read cookie: %w", err)
	}

	sessdata := strings.TrimSpace(string(raw))
	if sessdata == "" {
		return fmt.Errorf("empty SESSDATA")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := bili.NewClient(sessdata, sign.New(), logger)
	return saveSession(ctx, client, &bili.Credentials{SESSDATA: sessdata}, logger)
}

// saveSession verifies the credentials and persists the account.
func saveSession(ctx context.Context, client *bili.Client, creds *bili.Credentials, logger *slog.Logger) error {
	nav, err := client.Nav(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify session: %w", err)
	}
	if !nav.LoggedIn {
		return fmt.Errorf("session rejected, log in again")
	}

	err = config.SaveAccount(config.AccountConfig{
		Mid:      nav.Mid,
		Username: nav.Username,
		SESSDATA: creds.SESSDATA,
		BiliJCT:  creds.BiliJCT,
	})
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	logger.Info("logged in", "mid", nav.Mid, "username", nav.Username)
	fmt.Printf("\n✓ Logged in as %s\n\n", nav.Username)
	return nil
}
