package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ajisaka/favtune/internal/domain"
)

const (
	streamReferer   = "https://www.bilibili.com"
	streamUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultMaxParallel = 2
)

// resolver resolves a bvid to a playable audio stream (consumer-defined
// interface, satisfied by the playurl service).
type resolver interface {
	Resolve(ctx context.Context, bvid string) (*domain.PlayURLEntry, error)
}

// Service runs audio downloads with a bounded number of parallel
// transfers. Excess tasks queue as pending and start as slots free up.
type Service struct {
	resolver    resolver
	downloadDir string
	maxParallel int
	httpClient  *http.Client
	logger      *slog.Logger

	mu          sync.RWMutex
	tasks       map[string]*Task
	order       []string // task IDs in creation order
	activeCount int
	onUpdate    func(*Task)
}

// NewService creates the download service writing into downloadDir.
func NewService(resolver resolver, downloadDir string, maxParallel int, logger *slog.Logger) *Service {
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		resolver:    resolver,
		downloadDir: downloadDir,
		maxParallel: maxParallel,
		httpClient:  &http.Client{Timeout: 10 * time.Minute},
		logger:      logger,
		tasks:       make(map[string]*Task),
	}
}

// SetUpdateCallback sets the callback invoked on every task state
// change. The callback runs on download goroutines and receives a
// snapshot of the task, safe to read without locking.
func (s *Service) SetUpdateCallback(callback func(*Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = callback
}

// Add queues a download for the given item. Adding an item that already
// has an unfinished task is an error.
func (s *Service) Add(item domain.FavMediaItem) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range s.tasks {
		if task.BVID == item.BVID && !task.Status.IsFinished() {
			return nil, fmt.Errorf("download already in progress for %s", item.BVID)
		}
	}

	task := &Task{
		ID:        uuid.NewString(),
		BVID:      item.BVID,
		Title:     item.Title,
		Status:    TaskStatusPending,
		Total:     -1,
		StartedAt: time.Now(),
	}
	s.tasks[task.ID] = task
	s.order = append(s.order, task.ID)

	if s.activeCount < s.maxParallel {
		s.activeCount++
		go s.run(task)
	}
	snapshot := *task
	return &snapshot, nil
}

// Get returns a snapshot of the task with the given ID.
func (s *Service) Get(id string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	snapshot := *task
	return &snapshot, true
}

// All returns snapshots of every task in creation order.
func (s *Service) All() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		snapshot := *s.tasks[id]
		out = append(out, &snapshot)
	}
	return out
}

// ActiveCount returns the number of running downloads.
func (s *Service) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCount
}

func (s *Service) run(task *Task) {
	defer func() {
		s.mu.Lock()
		s.activeCount--
		s.mu.Unlock()
		s.startNextPending()
	}()

	s.setStatus(task, TaskStatusDownloading)

	err := s.download(task)

	s.mu.Lock()
	if err != nil {
		task.Status = TaskStatusError
		task.LastError = err.Error()
	} else {
		task.Status = TaskStatusCompleted
		task.Progress = 1.0
	}
	task.FinishedAt = time.Now()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("download failed", "bvid", task.BVID, "error", err)
	} else {
		s.logger.Info("download completed", "bvid", task.BVID, "path", task.OutputPath)
	}
	s.notify(task)
}

// download resolves the stream and writes it to a .part file, renaming
// on success so partial files never look complete.
func (s *Service) download(task *Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	entry, err := s.resolver.Resolve(ctx, task.BVID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
		return err
	}

	name := sanitizeFilename(task.DisplayTitle()) + ".m4a"
	finalPath := filepath.Join(s.downloadDir, name)
	partPath := finalPath + ".part"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.AudioURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Referer", streamReferer)
	req.Header.Set("User-Agent", streamUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream request failed with status %d", resp.StatusCode)
	}

	s.mu.Lock()
	task.Total = resp.ContentLength
	s.mu.Unlock()

	out, err := os.Create(partPath)
	if err != nil {
		return err
	}

	if err := s.copyWithProgress(task, out, resp.Body); err != nil {
		out.Close()
		os.Remove(partPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(partPath)
		return err
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		return err
	}

	s.mu.Lock()
	task.OutputPath = finalPath
	s.mu.Unlock()
	return nil
}

func (s *Service) copyWithProgress(task *Task, dst io.Writer, src io.Reader) error {
	buf := make([]byte, 64*1024)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return err
			}
			s.mu.Lock()
			task.Downloaded += int64(n)
			if task.Total > 0 {
				task.Progress = float64(task.Downloaded) / float64(task.Total)
			}
			s.mu.Unlock()
			s.notify(task)
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func (s *Service) startNextPending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeCount >= s.maxParallel {
		return
	}
	for _, id := range s.order {
		task := s.tasks[id]
		if task.Status == TaskStatusPending {
			s.activeCount++
			go s.run(task)
			return
		}
	}
}

func (s *Service) setStatus(task *Task, status TaskStatus) {
	s.mu.Lock()
	task.Status = status
	s.mu.Unlock()
	s.notify(task)
}

// notify hands the callback a snapshot, never the live task: download
// goroutines keep mutating the task under s.mu while the receiver reads.
func (s *Service) notify(task *Task) {
	s.mu.RLock()
	callback := s.onUpdate
	snapshot := *task
	s.mu.RUnlock()
	if callback != nil {
		callback(&snapshot)
	}
}
